package llm

import (
	"context"
	"sync"

	llmclient "github.com/ashiqtasdid/pegasus-sub000/internal/llm/client"
)

// UsageLedger accumulates token usage across calls. Safe for concurrent use.
type UsageLedger struct {
	mu       sync.Mutex
	requests int64
	errors   int64
	total    llmclient.Usage
	models   map[string]llmclient.Usage
}

type UsageSnapshot struct {
	Requests int64                      `json:"requests"`
	Errors   int64                      `json:"errors"`
	Total    llmclient.Usage            `json:"total"`
	Models   map[string]llmclient.Usage `json:"models"`
}

func NewUsageLedger() *UsageLedger {
	return &UsageLedger{models: map[string]llmclient.Usage{}}
}

func (l *UsageLedger) record(model string, u llmclient.Usage, failed bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests++
	if failed {
		l.errors++
		return
	}
	if model == "" {
		model = "unknown"
	}
	l.total = l.total.Add(u)
	l.models[model] = l.models[model].Add(u)
}

func (l *UsageLedger) Snapshot() UsageSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	models := make(map[string]llmclient.Usage, len(l.models))
	for k, v := range l.models {
		models[k] = v
	}
	return UsageSnapshot{Requests: l.requests, Errors: l.errors, Total: l.total, Models: models}
}

// WithUsage records every call into ledger.
func WithUsage(ledger *UsageLedger) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		if ledger == nil {
			return next
		}
		return &usageClient{next: next, ledger: ledger}
	}
}

type usageClient struct {
	next   llmclient.LLMClient
	ledger *UsageLedger
}

func (u *usageClient) Name() string { return u.next.Name() }
func (u *usageClient) Close() error { return u.next.Close() }

func (u *usageClient) Generate(ctx context.Context, req llmclient.Request) (llmclient.Response, error) {
	resp, err := u.next.Generate(ctx, req)
	u.ledger.record(resp.Model, resp.Usage, err != nil)
	return resp, err
}
