package web

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter governs outbound request pacing for web_search and url_fetch,
// grounded on the goadesign-goa-ai pack member's use of golang.org/x/time/rate
// at the model-client request boundary (features/model/middleware/ratelimit.go),
// simplified here to a plain token bucket since the tools issue one
// synchronous HTTP call per invocation rather than a streamed completion.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter builds a limiter allowing burst requests immediately and
// replenishing at ratePerSecond thereafter. ratePerSecond <= 0 disables
// limiting.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	if ratePerSecond <= 0 {
		return &RateLimiter{}
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

// Wait blocks until a request token is available or ctx is cancelled.
func (l *RateLimiter) Wait(ctx context.Context) error {
	if l == nil || l.limiter == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}
