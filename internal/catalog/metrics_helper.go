package catalog

import "time"

// recordStart returns a closure yielding elapsed time, letting call sites
// write one-liners around metrics.RecordDBQuery instead of repeating
// time.Since(start) everywhere.
func recordStart() func() time.Duration {
	start := time.Now()
	return func() time.Duration { return time.Since(start) }
}
