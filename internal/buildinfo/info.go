// Package buildinfo carries the version stamped into the kasboek binary.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

var (
	// Version is set via ldflags during build.
	Version = "dev"
	// Commit is set via ldflags during build.
	Commit = "none"
	// Date is set via ldflags during build.
	Date = "unknown"
)

// String formats the version line of `kasboek --version`. An unstamped
// build falls back to the module version the Go toolchain recorded.
func String() string {
	version := Version
	if version == "dev" {
		if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			version = bi.Main.Version
		}
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, Commit, Date)
}
