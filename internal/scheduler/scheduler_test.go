package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayHelpers(t *testing.T) {
	loc := time.FixedZone("KST", 9*3600)
	at := time.Date(2024, 3, 1, 16, 30, 0, 0, time.UTC) // 2024-03-02 01:30 KST

	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, loc), DayStart(loc, at))
	assert.Equal(t, time.Date(2024, 3, 3, 0, 0, 0, 0, loc), NextDayStart(loc, at))
	assert.Equal(t, "2024-03-02", DayKey(loc, at))
	assert.Equal(t, "2024-03-01", DayKey(time.UTC, at))

	assert.True(t, SameDay(loc, at, at.Add(20*time.Hour)))
	assert.False(t, SameDay(loc, at, at.Add(23*time.Hour)))
}

func TestLoadLocationFallback(t *testing.T) {
	assert.Equal(t, time.UTC, LoadLocation(""))
	assert.Equal(t, time.UTC, LoadLocation("Not/AZone"))
}

func TestNextRunWithOffset(t *testing.T) {
	s := NewDailyScheduler(time.UTC, 5*time.Minute)
	now := time.Date(2024, 3, 1, 0, 2, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 5, 0, 0, time.UTC), s.NextRun(now))

	now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 5, 0, 0, time.UTC), s.NextRun(now))
}

func TestDailySchedulerRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC)
	s := NewDailyScheduler(time.UTC, 0)
	s.nowFn = func() time.Time { return clock }
	var waits []time.Duration
	s.sleepFn = func(_ context.Context, d time.Duration) bool {
		waits = append(waits, d)
		clock = clock.Add(d)
		return len(waits) <= 2
	}

	var fired []time.Time
	s.Run(ctx, func(at time.Time) { fired = append(fired, at) })

	require.Len(t, fired, 2)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), fired[0])
	assert.Equal(t, time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), fired[1])
	assert.Equal(t, time.Hour, waits[0])
	assert.Equal(t, 24*time.Hour, waits[1])
}

func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, Sleep(ctx, time.Hour))
	assert.False(t, Sleep(ctx, 0))
	assert.True(t, Sleep(context.Background(), time.Millisecond))
}
