package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is the current application version.
// This is a var (not const) so it can be overridden at build time via:
//
//	go build -ldflags "-X github.com/vanderheijden86/pairplot/pkg/version.Version=v1.2.3"
var Version = "v0.1.0"

// String returns the version line printed by -version. Builds from a module
// checkout append the VCS revision when it is known.
func String() string {
	s := fmt.Sprintf("pairplot %s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH)
	if rev := revision(); rev != "" {
		s += " " + rev
	}
	return s
}

func revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	var rev, dirty string
	for _, kv := range info.Settings {
		switch kv.Key {
		case "vcs.revision":
			rev = kv.Value
		case "vcs.modified":
			if kv.Value == "true" {
				dirty = "-dirty"
			}
		}
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if rev == "" {
		return ""
	}
	return rev + dirty
}
