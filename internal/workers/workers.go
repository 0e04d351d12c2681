package workers

import (
	"os"
	"runtime"
	"strconv"
)

// Count returns the number of concurrent encodes to allow within a single
// asset. It respects container CPU limits via GOMAXPROCS (Go 1.19+).
//
// The limit parameter caps the worker count to prevent resource exhaustion
// on constrained build machines. Use 0 for no limit.
//
// Can be overridden with the ENCODE_WORKERS environment variable.
func Count(limit int) int {
	if override := os.Getenv("ENCODE_WORKERS"); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	// GOMAXPROCS is automatically set to container CPU limit in Go 1.19+
	available := runtime.GOMAXPROCS(0)

	workers := available
	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}
