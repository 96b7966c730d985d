package fixture

import "github.com/willibrandon/rummage/pkg/checkpoint"

// Kind names the variable kind a unit exercises.
type Kind string

const (
	KindInteger Kind = "integer"
	KindFloat   Kind = "float"
	KindBool    Kind = "bool"
	KindStruct  Kind = "struct"
	KindArray   Kind = "array"
	KindPointer Kind = "pointer"
)

// Params are the constants that differ between variants.
type Params struct {
	StructB float32 // float field of the struct unit
}

// Unit is a self-contained routine that declares locals of one kind and
// reaches the checkpoint named after it exactly once.
type Unit struct {
	Name string
	Kind Kind
	Body func(r *checkpoint.Run, p Params)
}

// Unit checkpoint names.
const (
	UnitInt     = "test_int"
	UnitFloat   = "test_float"
	UnitBool    = "test_bool"
	UnitStruct  = "test_struct"
	UnitArray   = "test_array"
	UnitPointer = "test_pointer"
	TestsDone   = "tests_done"
)

// Top-level checkpoint names. They have no unit body.
const (
	BreakMain      = "break_main"
	DerefPointer   = "deref_pointer"
	IndexIntArray  = "index_int_array"
	StructChildren = "struct_children"
	JustChecking   = "just_checking"
)

var catalogue = []Unit{
	{Name: UnitInt, Kind: KindInteger, Body: testInt},
	{Name: UnitFloat, Kind: KindFloat, Body: testFloat},
	{Name: UnitBool, Kind: KindBool, Body: testBool},
	{Name: UnitStruct, Kind: KindStruct, Body: testStruct},
	{Name: UnitArray, Kind: KindArray, Body: testArray},
	{Name: UnitPointer, Kind: KindPointer, Body: testPointer},
}

// Catalogue returns every unit in canonical order.
func Catalogue() []Unit {
	return append([]Unit(nil), catalogue...)
}

// LookupUnit finds a unit by its checkpoint name.
func LookupUnit(name string) (Unit, bool) {
	for _, u := range catalogue {
		if u.Name == name {
			return u, true
		}
	}
	return Unit{}, false
}

func testInt(r *checkpoint.Run, _ Params) {
	one := int32(1)
	r.Checkpoint(UnitInt, checkpoint.Bind("one", &one))
}

func testFloat(r *checkpoint.Run, _ Params) {
	half := float32(0.5)
	r.Checkpoint(UnitFloat, checkpoint.Bind("half", &half))
}

func testBool(r *checkpoint.Run, _ Params) {
	truth := true
	lie := false
	r.Checkpoint(UnitBool,
		checkpoint.Bind("truth", &truth),
		checkpoint.Bind("lie", &lie),
	)
}

func testStruct(r *checkpoint.Run, p Params) {
	aStruct := TestStruct{A: 1, B: p.StructB}
	r.Checkpoint(UnitStruct, checkpoint.Bind("a_struct", &aStruct))
}

func testArray(r *checkpoint.Run, _ Params) {
	multiplicity := [9]int32{1, 2, 3, 4, 5, 6, 7, 8, 9}
	r.Checkpoint(UnitArray, checkpoint.Bind("multiplicity", &multiplicity))
}

func testPointer(r *checkpoint.Run, _ Params) {
	here := int32(5)
	there := &here
	notAPointer := NotAPointer{Deref: 15}

	length := int32(10)
	buf := r.Heap().AllocInts(int(length))
	defer buf.Free()
	for i := range buf.Data() {
		buf.Data()[i] = int32(i + 1)
	}
	array := buf.Ptr()

	c := checkpoint.Char('c')
	text := "Lorem Ipsum"
	longText := "Lorem ipsum dolor sit amet"
	var billionDollarMistake *int32

	r.Checkpoint(UnitPointer,
		checkpoint.Bind("here", &here),
		checkpoint.Bind("there", &there),
		checkpoint.Bind("not_a_pointer", &notAPointer),
		checkpoint.Bind("len", &length),
		checkpoint.Bind("array", &array),
		checkpoint.Bind("c", &c),
		checkpoint.Bind("text", &text),
		checkpoint.Bind("long_text", &longText),
		checkpoint.Bind("billion_dollar_mistake", &billionDollarMistake),
	)
}
