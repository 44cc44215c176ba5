package workers

import (
	"os"
	"runtime"
	"strconv"

	"photo-recovery/internal/logging"
)

// OverrideEnv names the environment variable that pins the worker count.
const OverrideEnv = "RECOVERY_WORKERS"

// Count returns the number of workers for a task type, scaled from
// GOMAXPROCS (which honours container CPU limits) by multiplier and
// capped at limit. A limit of 0 means uncapped. RECOVERY_WORKERS, when
// set to a positive integer, replaces the computed value but is still
// capped at limit.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(OverrideEnv); override != "" {
		count, err := strconv.Atoi(override)
		if err == nil && count > 0 {
			return capAt(count, limit)
		}
		logging.Warn("Ignoring invalid %s=%q", OverrideEnv, override)
	}

	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	if workers < 1 {
		workers = 1
	}
	return capAt(workers, limit)
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForMixed returns worker count for tasks that mix decoding with disk
// writes (1.5 per CPU), such as archive extraction.
func ForMixed(limit int) int {
	return Count(1.5, limit)
}

func capAt(n, limit int) int {
	if limit > 0 && n > limit {
		return limit
	}
	return n
}
