package inspect

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// maxStringChars is how many characters of a string are shown before "...".
const maxStringChars = 20

// String renders scalars as their value, strings truncated, pointers as a
// hex address and aggregates as "<(type) name>".
func (x Value) String() string {
	switch x.ti.kind {
	case Int, Uint, Float, Bool:
		return x.scalar()
	case Char:
		return string(rune(x.v.Uint()))
	case String:
		return truncate(x.v.String(), maxStringChars)
	case Pointer:
		return fmt.Sprintf("%#x", x.v.Pointer())
	}
	return fmt.Sprintf("<(%s) %s>", x.ti.canonical, x.name)
}

// truncate keeps the first n runes of s and marks the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for j := range s {
		if i == n {
			return s[:j] + "..."
		}
		i++
	}
	return s
}

// Info renders the value with its type and name: "<(int32) one = 1>".
func (x Value) Info() string {
	return fmt.Sprintf("<(%s) %s = %s>", x.ti.canonical, x.name, x.repr())
}

func (x Value) scalar() string {
	switch x.ti.kind {
	case Int:
		return strconv.FormatInt(x.v.Int(), 10)
	case Uint:
		return strconv.FormatUint(x.v.Uint(), 10)
	case Float:
		return strconv.FormatFloat(x.v.Float(), 'g', -1, x.v.Type().Bits())
	case Bool:
		return strconv.FormatBool(x.v.Bool())
	}
	return ""
}

func (x Value) repr() string {
	switch x.ti.kind {
	case String:
		return strconv.Quote(x.v.String())
	case Char:
		return strconv.QuoteRune(rune(x.v.Uint()))
	case Pointer:
		if x.v.IsNil() {
			return "0x0"
		}
		return x.String()
	case Struct:
		fields, _ := x.Fields()
		parts := make([]string, len(fields))
		for i, f := range fields {
			parts[i] = x.ti.fields[i] + " = " + f.repr()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case Array:
		elems, _ := x.Elems()
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = e.repr()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case Invalid:
		return "?"
	}
	return x.String()
}
