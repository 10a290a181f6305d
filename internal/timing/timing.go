// Package timing records how long pipeline phases take. Durations are logged
// per phase so slow runs can be broken down after the fact.
package timing

import (
	"time"

	"github.com/gyorilab/trialsynth/pkg/logger"
)

// Phase starts measuring a named phase and returns the function that stops
// the clock and logs the elapsed time. Use with defer or call explicitly at
// the phase boundary.
func Phase(log *logger.Logger, name string) func() {
	start := time.Now()
	return func() {
		log.Info("[timing] phase complete",
			"phase", name,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// Timed runs fn as a named phase and logs its duration even when fn fails.
func Timed(log *logger.Logger, name string, fn func() error) error {
	done := Phase(log, name)
	defer done()
	return fn()
}
