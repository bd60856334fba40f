package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTodayTruncatesToUTCMidnight(t *testing.T) {
	loc := time.FixedZone("COT", -5*3600)
	c := NewFakeClock(time.Date(2024, 1, 10, 22, 30, 0, 0, loc))

	got := Today(c)

	assert.Equal(t, time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC), got)
}

func TestFakeClockAdvance(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)
	c.Advance(48 * time.Hour)
	assert.Equal(t, start.AddDate(0, 0, 2), c.Now())

	c.Set(start)
	assert.Equal(t, start, c.Now())
}
