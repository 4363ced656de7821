// Package progress derives throughput and completion estimates for a run.
package progress

import (
	"fmt"
	"math"
	"time"

	"mailbucket/internal/model"
)

// Calculating stands in for any estimate that cannot be computed yet.
const Calculating = "Calculating..."

// ClockLayout is the wall-clock format of the ETA.
const ClockLayout = "15:04:05"

// Compute returns the progress after processed of total messages, elapsed
// seconds after the run started. now anchors the wall-clock ETA.
//
// When elapsed is zero (or the resulting estimate is not finite) the speed,
// remaining time and ETA are reported as Calculating.
func Compute(processed, total int, elapsed float64, now time.Time) model.FetchProgress {
	p := model.FetchProgress{
		Processed:      processed,
		Total:          total,
		ElapsedSeconds: elapsed,
		Remaining:      total - processed,
	}
	if elapsed <= 0 {
		return calculating(p)
	}
	p.SpeedPerSecond = float64(processed) / elapsed
	p.ETASeconds = float64(p.Remaining) / p.SpeedPerSecond
	if math.IsInf(p.ETASeconds, 0) || math.IsNaN(p.ETASeconds) || p.ETASeconds < 0 {
		return calculating(p)
	}
	p.RemainingTime = FormatDuration(p.ETASeconds)
	p.ETA = now.Add(time.Duration(p.ETASeconds * float64(time.Second))).Format(ClockLayout)
	return p
}

func calculating(p model.FetchProgress) model.FetchProgress {
	p.SpeedPerSecond = 0
	p.ETASeconds = 0
	p.RemainingTime = Calculating
	p.ETA = Calculating
	p.Calculating = true
	return p
}

// Speed renders the per-second rate, or Calculating.
func Speed(p model.FetchProgress) string {
	if p.Calculating {
		return Calculating
	}
	return fmt.Sprintf("%.2f/s", p.SpeedPerSecond)
}

// FormatDuration renders seconds as "1h 1m 5s".
func FormatDuration(seconds float64) string {
	if math.IsInf(seconds, 0) || math.IsNaN(seconds) {
		return Calculating
	}
	s := int64(math.Floor(seconds))
	return fmt.Sprintf("%dh %dm %ds", s/3600, (s%3600)/60, s%60)
}

// Tracker remembers when a run started so callers only pass counters.
type Tracker struct {
	start time.Time
	now   func() time.Time
}

// NewTracker starts tracking at now().
func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{start: now(), now: now}
}

// Update computes the progress for the given counters at the current time.
func (t *Tracker) Update(processed, total int) model.FetchProgress {
	now := t.now()
	return Compute(processed, total, now.Sub(t.start).Seconds(), now)
}
