package fixture

import "github.com/willibrandon/rummage/pkg/checkpoint"

// TestStruct is the (int, float) aggregate of the struct unit.
type TestStruct struct {
	A int32   `rummage:"a"`
	B float32 `rummage:"b"`
}

// NotAPointer has a field named like a dereference. It is not a reference.
type NotAPointer struct {
	Deref int32 `rummage:"deref"`
}

// SomeStruct is the entry-level aggregate.
type SomeStruct struct {
	NumBlorps     int32   `rummage:"num_blorps"`
	AvgBlorp      float32 `rummage:"avg_blorp"`
	JustSomeChars string  `rummage:"just_some_chars"`
}

// ImAnInt is a named integer type.
type ImAnInt int32

// Context holds the entry-level bindings. They are live for the whole run.
type Context struct {
	ItsAnArg   string
	SomeValue  ImAnInt
	ImABool    bool
	ImAFloat   float32
	Array      [4]float32
	A          int32
	Point      *ImAnInt
	SomeStruct SomeStruct
}

// NewContext initialises the entry-level bindings from the argument vector.
// Only argv[0] and argc are read.
func NewContext(args []string) *Context {
	c := &Context{}
	if len(args) > 0 {
		c.ItsAnArg = args[0]
	}
	c.SomeValue = 1
	c.ImABool = false
	c.ImAFloat = 4.8
	c.Array = [4]float32{1, 1, 2, 3}
	c.A = int32(c.SomeValue) + int32(len(args))
	c.Point = &c.SomeValue
	c.SomeValue = 2
	c.SomeStruct = SomeStruct{
		NumBlorps:     56,
		AvgBlorp:      3.14,
		JustSomeChars: "look, it's a string!",
	}
	return c
}

// Bindings exposes the context under the names an observer looks up.
func (c *Context) Bindings() []checkpoint.Binding {
	return []checkpoint.Binding{
		checkpoint.Bind("its_an_arg", &c.ItsAnArg),
		checkpoint.Bind("some_value", &c.SomeValue),
		checkpoint.Bind("im_a_bool", &c.ImABool),
		checkpoint.Bind("im_a_float", &c.ImAFloat),
		checkpoint.Bind("array", &c.Array),
		checkpoint.Bind("a", &c.A),
		checkpoint.Bind("point", &c.Point),
		checkpoint.Bind("some_struct", &c.SomeStruct),
	}
}
