package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/cicilan/internal/config"
)

const keyPublicClient = "cicilan:ratelimit:public:%s"

// PublicLimiter throttles unauthenticated calculator calls per client.
type PublicLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

// NewPublicLimiter returns nil when limiting is off or Redis is absent.
func NewPublicLimiter(cfg config.Config, client *redis.Client) *PublicLimiter {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled || client == nil {
		return nil
	}
	if limitCfg.PublicRate <= 0 || limitCfg.PublicBurst <= 0 {
		return nil
	}
	return &PublicLimiter{
		bucket: NewTokenBucket(client),
		rate:   limitCfg.PublicRate,
		burst:  limitCfg.PublicBurst,
	}
}

func (l *PublicLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *PublicLimiter) Allow(ctx context.Context, clientKey string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyPublicClient, strings.TrimSpace(clientKey)), l.rate, l.burst)
}
