// Package version holds build-time identification stamped into binaries
// via -ldflags, with defaults for unstamped development builds.
package version

import (
	"fmt"
	"runtime"
)

// These are overridden at build time with:
//
//	-ldflags "-X github.com/NERVsystems/scenicloops/pkg/version.BuildVersion=... \
//	           -X github.com/NERVsystems/scenicloops/pkg/version.Commit=... \
//	           -X github.com/NERVsystems/scenicloops/pkg/version.BuildDate=..."
var (
	BuildVersion = "dev"
	Commit       = "unknown"
	BuildDate    = "unknown"
)

// String renders a one-line human-readable version banner.
func String() string {
	return fmt.Sprintf("scenicloopd %s (commit %s, built %s, %s)", BuildVersion, Commit, BuildDate, runtime.Version())
}

// Info returns the build stamp as a flat string map, the shape the
// monitoring package's Prometheus label set and health payload expect.
func Info() map[string]string {
	return map[string]string{
		"version":    BuildVersion,
		"commit":     Commit,
		"build_date": BuildDate,
		"go_version": runtime.Version(),
	}
}
