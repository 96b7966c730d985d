package verify

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/willibrandon/rummage/pkg/fixture"
	"github.com/willibrandon/rummage/pkg/inspect"
	"github.com/willibrandon/rummage/pkg/logging"
)

// Hook inspects the frame of one checkpoint. A returned error is reported as
// a HookFailed violation; the run continues either way.
type Hook func(*HookContext) error

// HookContext is what a hook sees at a checkpoint.
type HookContext struct {
	Frame  *inspect.Frame
	Logger logging.Logger

	emit func(line string)
}

// Var looks up a visible variable.
func (c *HookContext) Var(name string) (inspect.Value, error) {
	return c.Frame.Var(name)
}

// Emit writes "file:line <(type) name = value>" for each value.
func (c *HookContext) Emit(values ...inspect.Value) {
	for _, v := range values {
		c.emitLine(c.Frame.Location() + " " + v.Info())
	}
}

// Emitf writes a formatted line prefixed with the checkpoint location.
func (c *HookContext) Emitf(format string, args ...any) {
	c.emitLine(c.Frame.Location() + " " + fmt.Sprintf(format, args...))
}

func (c *HookContext) emitLine(line string) {
	if c.emit != nil {
		c.emit(line)
	}
}

// DefaultHooks returns the inspection hooks for every checkpoint the fixture
// variants declare. just_checking has none: it only marks a position.
func DefaultHooks() map[string]Hook {
	return map[string]Hook{
		fixture.UnitInt:        checkInt,
		fixture.UnitFloat:      checkFloat,
		fixture.UnitBool:       checkBool,
		fixture.UnitStruct:     checkStruct,
		fixture.UnitArray:      checkArray,
		fixture.UnitPointer:    checkPointer,
		fixture.TestsDone:      testsDone,
		fixture.BreakMain:      breakMain,
		fixture.IndexIntArray:  indexIntArray,
		fixture.StructChildren: structChildren,
		fixture.DerefPointer:   derefPointer,
	}
}

func wantInt(v inspect.Value, want int64) error {
	got, err := v.Int()
	if err != nil {
		return err
	}
	if got != want {
		return errors.Errorf("%s = %d, want %d", v.Name(), got, want)
	}
	return nil
}

func wantString(what, got, want string) error {
	if got != want {
		return errors.Errorf("%s renders as %q, want %q", what, got, want)
	}
	return nil
}

func checkInt(c *HookContext) error {
	one, err := c.Var("one")
	if err != nil {
		return err
	}
	if err := wantInt(one, 1); err != nil {
		return err
	}
	if n, _ := one.Int(); n+2 != 3 {
		return errors.Errorf("one + 2 = %d", n+2)
	}
	return wantString("one", one.Info(), "<(int32) one = 1>")
}

func checkFloat(c *HookContext) error {
	half, err := c.Var("half")
	if err != nil {
		return err
	}
	f, err := half.Float()
	if err != nil {
		return err
	}
	if f != 0.5 || f+f != 1 || f <= 0 {
		return errors.Errorf("half = %v, want 0.5", f)
	}
	return wantString("half", half.String(), "0.5")
}

func checkBool(c *HookContext) error {
	truth, err := c.Var("truth")
	if err != nil {
		return err
	}
	lie, err := c.Var("lie")
	if err != nil {
		return err
	}
	t, err := truth.Bool()
	if err != nil {
		return err
	}
	l, err := lie.Bool()
	if err != nil {
		return err
	}
	if !t || l {
		return errors.Errorf("truth = %v, lie = %v", t, l)
	}
	if err := wantString("truth", truth.String(), "true"); err != nil {
		return err
	}
	return wantString("lie", lie.String(), "false")
}

func checkStruct(c *HookContext) error {
	s, err := c.Var("a_struct")
	if err != nil {
		return err
	}
	if s.Len() != 2 {
		return errors.Errorf("a_struct has %d fields, want 2", s.Len())
	}
	if names := s.FieldNames(); strings.Join(names, ",") != "a,b" {
		return errors.Errorf("a_struct fields are %v, want [a b]", names)
	}
	fields, err := s.Fields()
	if err != nil {
		return err
	}
	for _, f := range fields {
		byName, err := s.Field(strings.TrimPrefix(f.Name(), "a_struct."))
		if err != nil {
			return err
		}
		if byName.Interface() != f.Interface() {
			return errors.Errorf("%s differs by position and by name", f.Name())
		}
	}
	if !fields[0].Kind().IsNumeric() || fields[0].Kind() == inspect.Float {
		return errors.Errorf("a_struct.a is %s, want an integer", fields[0].Kind())
	}
	if fields[1].Kind() != inspect.Float {
		return errors.Errorf("a_struct.b is %s, want a float", fields[1].Kind())
	}
	if err := wantInt(fields[0], 1); err != nil {
		return err
	}
	if err := wantString("a_struct", s.String(), "<(TestStruct) a_struct>"); err != nil {
		return err
	}
	if info := s.Info(); !strings.HasPrefix(info, "<(TestStruct) a_struct = (a = 1, b = ") {
		return errors.Errorf("a_struct info is %q", info)
	}
	c.Emit(s)
	return nil
}

func checkArray(c *HookContext) error {
	array, err := c.Var("multiplicity")
	if err != nil {
		return err
	}
	if array.Len() != 9 {
		return errors.Errorf("multiplicity has %d elements, want 9", array.Len())
	}
	elems, err := array.Elems()
	if err != nil {
		return err
	}
	for i, e := range elems {
		if err := wantInt(e, int64(i+1)); err != nil {
			return err
		}
		at, err := array.Index(i)
		if err != nil {
			return err
		}
		if at.Interface() != e.Interface() {
			return errors.Errorf("multiplicity[%d] differs by index and by iteration", i)
		}
	}
	return nil
}

func checkPointer(c *HookContext) error {
	there, err := c.Var("there")
	if err != nil {
		return err
	}
	pointee, err := there.Deref()
	if err != nil {
		return err
	}
	if err := wantInt(pointee, 5); err != nil {
		return err
	}

	notAPointer, err := c.Var("not_a_pointer")
	if err != nil {
		return err
	}
	if _, err := notAPointer.Deref(); !errors.Is(err, inspect.ErrNotPointer) {
		return errors.Errorf("not_a_pointer dereferenced: %v", err)
	}
	member, err := notAPointer.Field("deref")
	if err != nil {
		return err
	}
	if err := wantInt(member, 15); err != nil {
		return err
	}

	array, err := c.Var("array")
	if err != nil {
		return err
	}
	if array.Len() != 1 {
		return errors.Errorf("array pointer has %d children, want 1", array.Len())
	}
	first, err := array.Index(0)
	if err != nil {
		return err
	}
	if err := wantInt(first, 1); err != nil {
		return err
	}
	whole, err := array.AsArray(10)
	if err != nil {
		return err
	}
	if whole.Len() != 10 {
		return errors.Errorf("array viewed as 10 elements has %d", whole.Len())
	}
	elems, _ := whole.Elems()
	for i, e := range elems {
		if err := wantInt(e, int64(i+1)); err != nil {
			return err
		}
	}
	if _, err := array.AsArray(11); !errors.Is(err, inspect.ErrOutOfRange) {
		return errors.Errorf("array viewed past its buffer: %v", err)
	}

	for name, want := range map[string]string{
		"text":      "Lorem Ipsum",
		"c":         "c",
		"long_text": "Lorem ipsum dolor si...",
	} {
		v, err := c.Var(name)
		if err != nil {
			return err
		}
		if err := wantString(name, v.String(), want); err != nil {
			return err
		}
	}
	longText, err := c.Var("long_text")
	if err != nil {
		return err
	}
	full, err := longText.Str()
	if err != nil {
		return err
	}
	if full != "Lorem ipsum dolor sit amet" {
		return errors.Errorf("long_text reads as %q", full)
	}

	mistake, err := c.Var("billion_dollar_mistake")
	if err != nil {
		return err
	}
	if null, err := mistake.IsNull(); err != nil || !null {
		return errors.Errorf("billion_dollar_mistake is not null (%v)", err)
	}
	c.Emit(there, member)
	return nil
}

func testsDone(c *HookContext) error {
	c.Logger.Debug("tests passed", zap.String("at", c.Frame.Location()))
	return nil
}

func breakMain(c *HookContext) error {
	v, err := c.Var("some_value")
	if err != nil {
		return err
	}
	c.Emit(v)
	return nil
}

func indexIntArray(c *HookContext) error {
	array, err := c.Var("array")
	if err != nil {
		return err
	}
	el, err := array.Index(3)
	if err != nil {
		return err
	}
	if f, err := el.Float(); err != nil || f != 3 {
		return errors.Errorf("array[3] = %v, want 3 (%v)", f, err)
	}
	c.Emit(el)
	return nil
}

func structChildren(c *HookContext) error {
	s, err := c.Var("some_struct")
	if err != nil {
		return err
	}
	child, err := s.Field("avg_blorp")
	if err != nil {
		return err
	}
	c.Emit(s, child)
	return nil
}

func derefPointer(c *HookContext) error {
	point, err := c.Var("point")
	if err != nil {
		return err
	}
	value, err := point.Deref()
	if err != nil {
		return err
	}
	someValue, err := c.Var("some_value")
	if err != nil {
		return err
	}
	// point was taken before some_value was reassigned
	if err := wantInt(value, 2); err != nil {
		return err
	}
	if value.Address() != someValue.Address() {
		return errors.New("point does not alias some_value")
	}
	c.Emit(point, value)
	return nil
}
