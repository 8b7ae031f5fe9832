package insights

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// pacedLLM spreads requests over time with a token bucket so batch insight
// generation after a cycle closes does not trip provider rate limits.
type pacedLLM struct {
	next    CoreLLM
	limiter *rate.Limiter
}

// RateLimitMiddleware paces requests at a sustained requests-per-second
// rate with a short-term burst allowance. A burst below one is raised to one
// so the limiter can always hand out a token.
func RateLimitMiddleware(requestsPerSecond float64, burst int) Middleware {
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(requestsPerSecond), burst)

	return func(next CoreLLM) CoreLLM {
		return &pacedLLM{next: next, limiter: limiter}
	}
}

// DoRequest blocks until the limiter grants a token, then forwards the
// request. Context cancellation aborts the wait.
func (p *pacedLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", 0, 0, fmt.Errorf("request pacing: %w", err)
	}
	return p.next.DoRequest(ctx, prompt, opts)
}

func (p *pacedLLM) GetModel() string  { return p.next.GetModel() }
func (p *pacedLLM) SetModel(m string) { p.next.SetModel(m) }
