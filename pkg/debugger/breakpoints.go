package debugger

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/willibrandon/rummage/pkg/checkpoint"
)

// BreakpointType defines the type of breakpoint
type BreakpointType int

const (
	// LocationBreakpoint matches the checkpoint at a specific file:line
	LocationBreakpoint BreakpointType = iota
	// MarkerBreakpoint matches "@tag: name", the tag included
	MarkerBreakpoint
	// CheckpointBreakpoint matches checkpoint names by pattern
	CheckpointBreakpoint
)

// Breakpoint selects which checkpoints a trace reports
type Breakpoint struct {
	ID      int
	Type    BreakpointType
	File    string         // For LocationBreakpoint
	Line    int            // For LocationBreakpoint
	Tag     checkpoint.Tag // For MarkerBreakpoint
	Pattern string         // For MarkerBreakpoint and CheckpointBreakpoint
	Enabled bool
}

// BreakpointManager manages breakpoints for the debugger
type BreakpointManager struct {
	breakpoints []*Breakpoint
	nextID      int
}

// NewBreakpointManager creates a new breakpoint manager
func NewBreakpointManager() *BreakpointManager {
	return &BreakpointManager{
		breakpoints: make([]*Breakpoint, 0),
		nextID:      1,
	}
}

// AddBreakpoint adds a breakpoint. location is "@tag: name", "file:line",
// or a checkpoint name pattern ("test_*", "test_...").
func (bm *BreakpointManager) AddBreakpoint(location string) (*Breakpoint, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("empty breakpoint location")
	}

	bp := &Breakpoint{Enabled: true}

	if m, ok := checkpoint.ParseMarker(location); ok {
		bp.Type = MarkerBreakpoint
		bp.Tag = m.Tag
		bp.Pattern = m.Name
	} else if i := strings.LastIndex(location, ":"); i >= 0 {
		// Find the last colon to handle Windows paths (e.g., C:/path/to/file.go:42)
		line, err := strconv.Atoi(location[i+1:])
		if err != nil {
			return nil, fmt.Errorf("invalid line number in %q: %v", location, err)
		}
		bp.Type = LocationBreakpoint
		bp.File = location[:i]
		bp.Line = line
	} else {
		if _, err := filepath.Match(location, ""); err != nil {
			return nil, fmt.Errorf("invalid checkpoint pattern %q: %v", location, err)
		}
		bp.Type = CheckpointBreakpoint
		bp.Pattern = location
	}

	bp.ID = bm.nextID
	bm.nextID++
	bm.breakpoints = append(bm.breakpoints, bp)
	return bp, nil
}

// GetBreakpoints returns all breakpoints
func (bm *BreakpointManager) GetBreakpoints() []*Breakpoint {
	return bm.breakpoints
}

// RemoveBreakpoint removes a breakpoint by ID
func (bm *BreakpointManager) RemoveBreakpoint(id int) error {
	for i, bp := range bm.breakpoints {
		if bp.ID == id {
			bm.breakpoints = append(bm.breakpoints[:i], bm.breakpoints[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("breakpoint %d not found", id)
}

// EnableBreakpoint enables a breakpoint by ID
func (bm *BreakpointManager) EnableBreakpoint(id int) error {
	return bm.setEnabled(id, true)
}

// DisableBreakpoint disables a breakpoint by ID
func (bm *BreakpointManager) DisableBreakpoint(id int) error {
	return bm.setEnabled(id, false)
}

func (bm *BreakpointManager) setEnabled(id int, enabled bool) error {
	for _, bp := range bm.breakpoints {
		if bp.ID == id {
			bp.Enabled = enabled
			return nil
		}
	}
	return fmt.Errorf("breakpoint %d not found", id)
}

// CheckBreakpoint reports whether an enabled breakpoint matches cp
func (bm *BreakpointManager) CheckBreakpoint(cp checkpoint.Checkpoint) bool {
	for _, bp := range bm.breakpoints {
		if bp.Enabled && bp.matches(cp) {
			return true
		}
	}
	return false
}

// Matches is CheckBreakpoint, except that a manager without enabled
// breakpoints matches everything.
func (bm *BreakpointManager) Matches(cp checkpoint.Checkpoint) bool {
	for _, bp := range bm.breakpoints {
		if bp.Enabled {
			return bm.CheckBreakpoint(cp)
		}
	}
	return true
}

func (bp *Breakpoint) matches(cp checkpoint.Checkpoint) bool {
	switch bp.Type {
	case LocationBreakpoint:
		if bp.Line != cp.Line {
			return false
		}
		want, got := filepath.ToSlash(bp.File), filepath.ToSlash(cp.File)
		return want == got || strings.HasSuffix(got, "/"+want)
	case MarkerBreakpoint:
		return (cp.Tag == "" || cp.Tag == bp.Tag) && matchName(bp.Pattern, cp.Name)
	case CheckpointBreakpoint:
		return matchName(bp.Pattern, cp.Name)
	}
	return false
}

func matchName(pattern, name string) bool {
	opts := checkpoint.Options{Enabled: true, Only: []string{pattern}}
	return opts.ShouldObserve(name)
}
