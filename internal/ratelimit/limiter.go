package ratelimit

import "context"

// RateLimiter bounds outbound send throughput per destination number.
type RateLimiter interface {
	Allow(ctx context.Context, destination string) (bool, error)
	Wait(ctx context.Context, destination string) error
}
