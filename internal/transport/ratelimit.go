package transport

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimitTransport delays requests so that at most Limiter's rate leaves
// the process. It is shared by all workers, so the limit is global.
type RateLimitTransport struct {
	Base    http.RoundTripper
	Limiter *rate.Limiter
}

// NewRateLimitTransport wraps base with a limiter allowing perSecond
// requests per second with the given burst. perSecond <= 0 returns base.
func NewRateLimitTransport(base http.RoundTripper, perSecond float64, burst int) http.RoundTripper {
	if perSecond <= 0 {
		return base
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitTransport{
		Base:    base,
		Limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// RoundTrip implements http.RoundTripper.
func (t *RateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.Limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.Base.RoundTrip(req)
}
