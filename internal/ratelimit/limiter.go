package ratelimit

import "context"

// RateLimiter controls push gateway throughput per platform.
type RateLimiter interface {
	Allow(ctx context.Context, platform string) (bool, error)
	Wait(ctx context.Context, platform string) error
}
