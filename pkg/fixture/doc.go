// Package fixture is the catalogue of variable-kind units and the three
// fixture variants that walk them.
//
// Each unit declares locals of one kind and ends in exactly one checkpoint
// named after it. A Variant lists, in order, the units it invokes and the
// top-level checkpoints its entry routine reaches, and how the run ends.
// Observers derive the expected checkpoint sequence from the same Variant
// value (Expected) instead of hard-coding the full catalogue.
package fixture
