package scheduler

import (
	"context"
	"time"

	"tierbot/internal/logger"
)

// Sleep waits for d or until ctx is done; it reports false when cancelled.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// DailyScheduler 在每个自然日边界（加上 Offset）执行一次任务。
type DailyScheduler struct {
	Location *time.Location
	Offset   time.Duration

	nowFn   func() time.Time
	sleepFn func(context.Context, time.Duration) bool
}

func NewDailyScheduler(loc *time.Location, offset time.Duration) *DailyScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &DailyScheduler{Location: loc, Offset: offset, nowFn: time.Now, sleepFn: Sleep}
}

// NextRun is the next day boundary plus offset strictly after now.
func (s *DailyScheduler) NextRun(now time.Time) time.Time {
	next := NextDayStart(s.Location, now).Add(s.Offset)
	if prev := DayStart(s.Location, now).Add(s.Offset); prev.After(now) {
		next = prev
	}
	return next
}

// Run blocks until ctx is done. The task receives the boundary it was
// scheduled for.
func (s *DailyScheduler) Run(ctx context.Context, task func(at time.Time)) {
	if task == nil {
		logger.Warnf("DailyScheduler: task is nil, exit")
		return
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}
	if s.sleepFn == nil {
		s.sleepFn = Sleep
	}
	for {
		now := s.nowFn()
		at := s.NextRun(now)
		wait := at.Sub(now)
		logger.Debugf("DailyScheduler: next run at %s (in %s)", at.Format(time.RFC3339), wait.Truncate(time.Second))
		if !s.sleepFn(ctx, wait) {
			logger.Infof("DailyScheduler: ctx done, exit")
			return
		}
		task(at)
	}
}
