package fixture

import (
	"sort"

	"github.com/willibrandon/rummage/pkg/checkpoint"
)

// Each step carries its checkpoint as a marker comment so the sequences
// can be found by scanning this file.

// Full walks every unit including the pointer unit and aborts after tests_done.
var Full = Variant{
	Name:   "full",
	Tag:    checkpoint.TagRummage,
	Params: Params{StructB: 3.5},
	Steps: []Step{
		unit(UnitInt),     // @rummage: test_int
		unit(UnitFloat),   // @rummage: test_float
		unit(UnitBool),    // @rummage: test_bool
		unit(UnitStruct),  // @rummage: test_struct
		unit(UnitArray),   // @rummage: test_array
		unit(UnitPointer), // @rummage: test_pointer
		done(),            // @rummage: tests_done
	},
	Terminal:    checkpoint.AbortedDeliberately,
	AbortReason: "End of main reached",
}

// Basic walks the scalar, struct and array units and returns normally.
var Basic = Variant{
	Name:   "basic",
	Tag:    checkpoint.TagLoupe,
	Params: Params{StructB: 3.67},
	Steps: []Step{
		unit(UnitInt),    // @loupe: test_int
		unit(UnitFloat),  // @loupe: test_float
		unit(UnitBool),   // @loupe: test_bool
		unit(UnitStruct), // @loupe: test_struct
		unit(UnitArray),  // @loupe: test_array
		done(),           // @loupe: tests_done
	},
	Terminal: checkpoint.CompletedNormally,
}

// TopLevel interleaves the scalar and struct units with checkpoints reached
// directly from the entry routine, and returns normally.
var TopLevel = Variant{
	Name:   "toplevel",
	Tag:    checkpoint.TagLoupe,
	Params: Params{StructB: 3.5},
	Steps: []Step{
		marker(JustChecking),   // @loupe: just_checking
		marker(BreakMain),      // @loupe: break_main
		unit(UnitInt),          // @loupe: test_int
		unit(UnitFloat),        // @loupe: test_float
		unit(UnitBool),         // @loupe: test_bool
		unit(UnitStruct),       // @loupe: test_struct
		marker(DerefPointer),   // @loupe: deref_pointer
		marker(IndexIntArray),  // @loupe: index_int_array
		marker(JustChecking),   // @loupe: just_checking
		marker(StructChildren), // @loupe: struct_children
		marker(BreakMain),      // @loupe: break_main
	},
	Terminal: checkpoint.CompletedNormally,
}

var variants = map[string]Variant{
	Full.Name:     Full,
	Basic.Name:    Basic,
	TopLevel.Name: TopLevel,
}

// Lookup finds a variant by name.
func Lookup(name string) (Variant, bool) {
	v, ok := variants[name]
	return v, ok
}

// Variants returns all variants sorted by name.
func Variants() []Variant {
	all := make([]Variant, 0, len(variants))
	for _, v := range variants {
		all = append(all, v)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}
