package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts the wall clock so date comparisons can be driven in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// Today truncates c.Now() to midnight UTC.
func Today(c Clock) time.Time {
	return DateOf(c.Now())
}

// DateOf returns the UTC calendar date of t at midnight.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

var Module = fx.Module("clock",
	fx.Provide(func() Clock { return SystemClock{} }),
)
