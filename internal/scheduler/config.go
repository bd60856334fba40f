package scheduler

import (
	"strings"
	"time"

	"github.com/smallbiznis/cicilan/internal/config"
)

// Config controls scheduler cadence and batch sizes.
type Config struct {
	DispatchInterval time.Duration
	DailySpec        string
	BatchSize        int
	MaxDispatchLoops int
	JobTimeout       time.Duration
	LockTTL          time.Duration
	EnabledJobs      []string
}

func DefaultConfig() Config {
	return Config{
		DispatchInterval: time.Minute,
		DailySpec:        "0 6 * * *",
		BatchSize:        50,
		MaxDispatchLoops: 20,
		JobTimeout:       10 * time.Minute,
		LockTTL:          15 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	out := DefaultConfig()
	out.DispatchInterval = cfg.Scheduler.DispatchInterval
	out.DailySpec = strings.TrimSpace(cfg.Scheduler.DailySpec)
	return out.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.DispatchInterval <= 0 {
		c.DispatchInterval = defaults.DispatchInterval
	}
	if c.DailySpec == "" {
		c.DailySpec = defaults.DailySpec
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.MaxDispatchLoops <= 0 {
		c.MaxDispatchLoops = defaults.MaxDispatchLoops
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	return c
}
