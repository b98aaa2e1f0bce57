// Package version reports build information stamped via ldflags.
package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// String returns the human readable build description.
func String() string {
	return fmt.Sprintf("fleetbot %s (commit: %s, built: %s, %s)", Version, ShortCommit(), BuildTime, runtime.Version())
}

// ShortCommit returns the first seven characters of the commit hash.
func ShortCommit() string {
	if len(Commit) > 7 {
		return Commit[:7]
	}
	return Commit
}
