// Package version reports build information, set with -ldflags.
package version

import "fmt"

// Version is the release, set at build time.
var Version = "dev"

// BuildTime is when the binary was built.
var BuildTime = "unknown"

// String returns the formatted version information.
func String() string {
	return fmt.Sprintf("promptlab version %s (built %s)", Version, BuildTime)
}
