// Package version holds build metadata set with -ldflags "-X".
package version

import "fmt"

//nolint:gochecknoglobals // written by the linker
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String formats the build metadata as "v1.2.0 (abc123, 2026-01-02)".
func String() string {
	return fmt.Sprintf("%s (%s, %s)", Version, Commit, Date)
}
