package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	old := Version
	defer func() { Version = old }()

	Version = "1.2.3"
	info := Get()
	if info.Version != "1.2.3" {
		t.Errorf("Expected version 1.2.3, got %s", info.Version)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("Expected go version %s, got %s", runtime.Version(), info.GoVersion)
	}
	if !strings.HasPrefix(GetVersionInfo(), "rummage 1.2.3 (built: ") {
		t.Errorf("Unexpected version string %q", GetVersionInfo())
	}
}
