package recorder

import (
	"github.com/willibrandon/rummage/pkg/checkpoint"
	"github.com/willibrandon/rummage/pkg/inspect"
)

// VarRecord is the rendered state of one variable at a checkpoint.
type VarRecord struct {
	Name  string
	Type  string
	Kind  string
	Value string
}

// CaptureSnapshot renders every variable visible in snap, innermost first.
// The rendering is a copy; later writes through the bindings do not change it.
func CaptureSnapshot(snap *checkpoint.Snapshot) []VarRecord {
	vars := inspect.NewFrame(snap).Vars()
	records := make([]VarRecord, 0, len(vars))
	for _, v := range vars {
		records = append(records, VarRecord{
			Name:  v.Name(),
			Type:  v.TypeName(),
			Kind:  v.Kind().String(),
			Value: v.String(),
		})
	}
	return records
}

// Lookup finds a captured variable by name.
func Lookup(records []VarRecord, name string) (VarRecord, bool) {
	for _, r := range records {
		if r.Name == name {
			return r, true
		}
	}
	return VarRecord{}, false
}
