package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCacheExpires(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newTTLCache[string, int](func() time.Time { return now })

	c.Set("a", 1, time.Minute)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Empty(t, c.items)
}

func TestTTLCacheNoExpiryAndPurge(t *testing.T) {
	c := NewTTLCache[string, string]()
	c.Set("k", "v", 0)
	c.Set("x", "y", time.Hour)

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	c.Delete("x")
	_, ok = c.Get("x")
	assert.False(t, ok)

	c.Purge()
	_, ok = c.Get("k")
	assert.False(t, ok)
}
