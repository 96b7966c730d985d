// Package verify checks that a run reaches the checkpoints its variant
// declares, in order, with the outcome it declares. A Verifier is a
// checkpoint.Observer: it compares every delivery against an Expectation,
// runs the inspection hook registered for the checkpoint and reports
// violations once the run finishes.
package verify
