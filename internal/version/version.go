// Package version provides the build version of the tools
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set by the linker:
//
//	-ldflags "-X github.com/effective-security/xcred/internal/version.version=v1.2.3 -X ...commit=abc"
var (
	version = ""
	commit  = ""
)

// Info describes the build
type Info struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit,omitempty" yaml:"commit,omitempty"`
	Runtime string `json:"runtime" yaml:"runtime"`
}

// Current returns the version of the running binary
func Current() Info {
	v := Info{
		Version: version,
		Commit:  commit,
		Runtime: runtime.Version(),
	}
	if v.Version == "" {
		v.Version = "v0.0.0-dev"
		if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			v.Version = bi.Main.Version
		}
	}
	return v
}

func (v Info) String() string {
	if v.Commit != "" {
		return fmt.Sprintf("%s (%s) %s", v.Version, v.Commit, v.Runtime)
	}
	return fmt.Sprintf("%s %s", v.Version, v.Runtime)
}
