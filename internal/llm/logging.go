package llm

import (
	"context"
	"log/slog"
	"time"

	llmclient "github.com/ashiqtasdid/pegasus-sub000/internal/llm/client"
)

// WithLogging logs request size, latency and errors. A nil logger uses
// slog.Default().
func WithLogging(logger *slog.Logger) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next llmclient.LLMClient
	log  *slog.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }

func (l *logging) Generate(ctx context.Context, req llmclient.Request) (llmclient.Response, error) {
	log := l.log
	if log == nil {
		log = slog.Default()
	}
	start := time.Now()
	log.DebugContext(ctx, "llm request", "client", l.next.Name(), "bytes", len(req.SystemPrompt)+len(req.UserPrompt))
	resp, err := l.next.Generate(ctx, req)
	if err != nil {
		log.WarnContext(ctx, "llm error", "client", l.next.Name(), "error", err, "elapsed", time.Since(start))
		return resp, err
	}
	log.InfoContext(ctx, "llm response",
		"client", l.next.Name(),
		"model", resp.Model,
		"tokens", resp.Usage.TotalTokens,
		"elapsed", time.Since(start))
	return resp, nil
}
