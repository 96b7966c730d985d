// Package version reports the build of the rummage tools.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/willibrandon/rummage/pkg/version.Version=..."
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Delve     string `json:"delve,omitempty"`
}

// Get collects the build information. A dev build takes its version from
// the module information when go install stamped one.
func Get() Info {
	info := Info{
		Version:   Version,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, dep := range bi.Deps {
			if dep.Path == "github.com/go-delve/delve" {
				info.Delve = dep.Version
			}
		}
	}
	return info
}

func (i Info) String() string {
	s := fmt.Sprintf("rummage %s (built: %s, %s, %s)", i.Version, i.BuildTime, i.GoVersion, i.Platform)
	if i.Delve != "" {
		s += ", delve " + i.Delve
	}
	return s
}

// GetVersionInfo returns a formatted string with version information
func GetVersionInfo() string {
	return Get().String()
}
