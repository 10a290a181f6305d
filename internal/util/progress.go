package util

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gyorilab/trialsynth/pkg/logger"
)

// Tracker reports progress over a known total of work items. Grounding runs
// over hundreds of thousands of entities, so it logs at a fixed interval
// rather than per item. Add is safe to call from multiple goroutines.
type Tracker struct {
	log      *logger.Logger
	label    string
	unit     string
	total    int64
	done     atomic.Int64
	started  time.Time
	interval int64
}

// NewTracker creates a progress tracker for total items. Progress is logged
// every interval items and once on Finish; interval <= 0 picks roughly one
// hundred log lines per run.
func NewTracker(log *logger.Logger, label, unit string, total int, interval int) *Tracker {
	iv := int64(interval)
	if iv <= 0 {
		iv = int64(total) / 100
		if iv < 1 {
			iv = 1
		}
	}
	return &Tracker{
		log:      log,
		label:    label,
		unit:     unit,
		total:    int64(total),
		started:  time.Now(),
		interval: iv,
	}
}

// Add records n completed items and logs when an interval boundary is crossed.
func (t *Tracker) Add(n int) {
	done := t.done.Add(int64(n))
	if done%t.interval != 0 && done != t.total {
		return
	}
	t.report(done)
}

// Finish logs the final count and total elapsed time.
func (t *Tracker) Finish() {
	done := t.done.Load()
	elapsed := time.Since(t.started)
	t.log.Info(t.label+" finished",
		t.unit+"s", done,
		"duration", formatDuration(elapsed),
	)
}

func (t *Tracker) report(done int64) {
	elapsed := time.Since(t.started)
	rate := float64(done) / elapsed.Seconds()
	pct := int64(0)
	if t.total > 0 {
		pct = done * 100 / t.total
	}
	t.log.Info(t.label,
		"progress", fmt.Sprintf("%d/%d", done, t.total),
		"pct", fmt.Sprintf("%d%%", pct),
		"rate", fmt.Sprintf("%.1f %s/s", rate, t.unit),
	)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
