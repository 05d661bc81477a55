package ratelimit

import (
	"context"
	"math"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces outbound requests
type Limiter interface {
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
}

// TokenBucket is a Limiter backed by golang.org/x/time/rate
type TokenBucket struct {
	limiter *rate.Limiter
}

// NewTokenBucket allows burst requests at once, refilled one token every
// interval. A non-positive interval disables limiting.
func NewTokenBucket(burst int, interval time.Duration) *TokenBucket {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	if burst < 1 {
		burst = 1
	}
	return &TokenBucket{limiter: rate.NewLimiter(limit, burst)}
}

// NewPerSecond builds a limiter from a requests-per-second figure. Zero or
// negative means unlimited.
func NewPerSecond(rps float64, burst int) *TokenBucket {
	if rps <= 0 || math.IsInf(rps, 1) {
		return NewTokenBucket(burst, 0)
	}
	return NewTokenBucket(burst, time.Duration(float64(time.Second)/rps))
}

func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.limiter.Wait(ctx)
}

// Unlimited never blocks
type Unlimited struct{}

func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }
