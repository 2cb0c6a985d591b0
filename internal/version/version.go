// Package version reports the build stamped into the binary.
package version

import (
	"fmt"
	"runtime"
)

// Set with -ldflags "-X .../internal/version.Version=... -X .../internal/version.BuildTime=...".
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Info is the build information exported on /metrics.
type Info struct {
	Version   string
	BuildTime string
	GoVersion string
}

// Current returns the build information of the running binary.
func Current() Info {
	return Info{
		Version:   Version,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}

// String returns the one-line version banner printed by `zigmirror version`.
func String() string {
	i := Current()
	return fmt.Sprintf("zigmirror version %s (built %s, %s)", i.Version, i.BuildTime, i.GoVersion)
}
