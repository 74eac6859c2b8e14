package scheduler

import (
	"strings"
	"time"
)

// LoadLocation falls back to UTC on an empty or unknown zone name.
func LoadLocation(name string) *time.Location {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DayStart 返回 t 在 loc 时区的当日 00:00。
func DayStart(loc *time.Location, t time.Time) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// NextDayStart uses calendar arithmetic so DST days are not assumed to be 24h.
func NextDayStart(loc *time.Location, t time.Time) time.Time {
	start := DayStart(loc, t)
	y, m, d := start.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, start.Location())
}

func SameDay(loc *time.Location, a, b time.Time) bool {
	return DayStart(loc, a).Equal(DayStart(loc, b))
}

// DayKey formats the calendar day, e.g. "2024-03-01".
func DayKey(loc *time.Location, t time.Time) string {
	return DayStart(loc, t).Format("2006-01-02")
}
