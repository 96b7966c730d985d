package checkpoint

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
)

// Tag identifies which observer protocol version a marker belongs to.
// Both tags carry identical semantics.
type Tag string

const (
	// TagRummage is the tag used by the earliest fixture variant
	TagRummage Tag = "rummage"
	// TagLoupe is the tag shared by the later fixture variants
	TagLoupe Tag = "loupe"
)

// Known reports whether t is one of the protocol tags.
func (t Tag) Known() bool {
	return t == TagRummage || t == TagLoupe
}

// Marker is a checkpoint annotation: "@<tag>: <name>".
type Marker struct {
	Tag  Tag
	Name string
}

func (m Marker) String() string {
	return fmt.Sprintf("@%s: %s", m.Tag, m.Name)
}

var markerPattern = regexp.MustCompile(`@([A-Za-z][A-Za-z0-9_]*)\s*:\s*([A-Za-z_][A-Za-z0-9_]*)\s*$`)

// ParseMarker extracts a marker from the end of a source line.
func ParseMarker(line string) (Marker, bool) {
	m := markerPattern.FindStringSubmatch(line)
	if m == nil {
		return Marker{}, false
	}
	tag := Tag(m[1])
	if !tag.Known() {
		return Marker{}, false
	}
	return Marker{Tag: tag, Name: m[2]}, true
}

// MarkerLocation is a marker found in a source file.
type MarkerLocation struct {
	Marker
	File string
	Line int
}

func (l MarkerLocation) String() string {
	return fmt.Sprintf("%s:%d %s", l.File, l.Line, l.Marker)
}

// ScanMarkers returns every marker annotation in r, in source order.
// This is how fixtures that carry markers as comments are mapped to
// breakpoint locations.
func ScanMarkers(r io.Reader, filename string) ([]MarkerLocation, error) {
	var locs []MarkerLocation
	var lineno int
	scan := bufio.NewScanner(r)
	for scan.Scan() {
		lineno++
		m, ok := ParseMarker(scan.Text())
		if !ok {
			continue
		}
		locs = append(locs, MarkerLocation{Marker: m, File: filename, Line: lineno})
	}
	if err := scan.Err(); err != nil {
		return nil, fmt.Errorf("%s:%d: %v", filename, lineno, err)
	}
	return locs, nil
}
