package llm

import (
	"context"

	"golang.org/x/time/rate"

	llmclient "github.com/ashiqtasdid/pegasus-sub000/internal/llm/client"
)

// RateLimit limits request rate. If rps <= 0 the limiter is disabled.
func RateLimit(rps float64, burst int) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		if rps <= 0 {
			return next
		}
		if burst < 1 {
			burst = 1
		}
		return &rateLimited{next: next, rl: rate.NewLimiter(rate.Limit(rps), burst)}
	}
}

type rateLimited struct {
	next llmclient.LLMClient
	rl   *rate.Limiter
}

func (c *rateLimited) Name() string { return c.next.Name() }
func (c *rateLimited) Close() error { return c.next.Close() }

func (c *rateLimited) Generate(ctx context.Context, req llmclient.Request) (llmclient.Response, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return llmclient.Response{}, err
	}
	return c.next.Generate(ctx, req)
}
