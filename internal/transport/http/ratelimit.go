package http

import "golang.org/x/time/rate"

// rateLimiter bounds how fast one connection may send messages.
type rateLimiter struct {
	limiter *rate.Limiter
}

// newRateLimiter returns a token bucket refilled at perSecond with the given
// burst. A non-positive rate disables limiting.
func newRateLimiter(perSecond float64, burst int) *rateLimiter {
	if perSecond <= 0 {
		return &rateLimiter{}
	}
	if burst <= 0 {
		burst = 1
	}
	return &rateLimiter{
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (r *rateLimiter) allow() bool {
	if r == nil || r.limiter == nil {
		return true
	}
	return r.limiter.Allow()
}
