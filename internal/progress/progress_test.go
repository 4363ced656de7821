package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCompute_ZeroElapsedIsCalculating(t *testing.T) {
	p := Compute(0, 10, 0, time.Now())

	assert.True(t, p.Calculating)
	assert.Equal(t, Calculating, Speed(p))
	assert.Equal(t, Calculating, p.RemainingTime)
	assert.Equal(t, Calculating, p.ETA)
	assert.Equal(t, 10, p.Remaining)
}

func TestCompute_HalfwayEstimate(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := Compute(5, 10, 10, now)

	assert.False(t, p.Calculating)
	assert.InDelta(t, 0.5, p.SpeedPerSecond, 1e-9)
	assert.Equal(t, 5, p.Remaining)
	assert.InDelta(t, 10, p.ETASeconds, 1e-9)
	assert.Equal(t, "0h 0m 10s", p.RemainingTime)
	assert.Equal(t, "12:00:10", p.ETA)
	assert.Equal(t, "0.50/s", Speed(p))
}

func TestCompute_NothingProcessedYet(t *testing.T) {
	p := Compute(0, 10, 3, time.Now())
	assert.True(t, p.Calculating)
	assert.Equal(t, Calculating, p.ETA)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{3665, "1h 1m 5s"},
		{59.9, "0h 0m 59s"},
		{0, "0h 0m 0s"},
		{7200, "2h 0m 0s"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, FormatDuration(tc.in), "FormatDuration(%v)", tc.in)
	}
}

func TestTracker_UsesInjectedClock(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	now := start
	tr := NewTracker(func() time.Time { return now })

	assert.True(t, tr.Update(0, 4).Calculating)

	now = start.Add(4 * time.Second)
	p := tr.Update(2, 4)
	assert.InDelta(t, 0.5, p.SpeedPerSecond, 1e-9)
	assert.Equal(t, "12:00:08", p.ETA)
}
