// pkg/utils/clock_unix.go

package utils

import "time"

var started = time.Now()

// Now returns the current wall-clock time.
func Now() time.Time {
	return time.Now()
}

// Clock returns elapsed time since the process started. Comparing two
// Clock() readings gives elapsed real time without keeping a time.Time
// around.
func Clock() time.Duration {
	return time.Since(started)
}
