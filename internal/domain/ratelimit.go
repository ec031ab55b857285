package domain

import (
	"context"
	"time"
)

// RateLimitDecision is returned for every Allow call, including
// rejected ones, so handlers can emit RateLimit-* response headers.
type RateLimitDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (RateLimitDecision, error)
}
