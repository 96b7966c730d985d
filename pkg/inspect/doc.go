// Package inspect decodes the bindings of a checkpoint snapshot the way an
// observer sees them: by name, kind and shape, independent of the Go types
// the fixture happens to use.
//
//	f := inspect.NewFrame(snap)
//	there, _ := f.Var("there")
//	here, _ := there.Deref()
//	n, _ := here.Int() // 5
//
// A struct field that is merely named like an operation (for example a field
// called "deref") is reached with Field and never confused with Deref, which
// only accepts real pointers.
package inspect
