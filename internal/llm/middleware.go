// Package llm decorates model clients with cross-cutting behavior:
// retries, rate limiting, logging and usage accounting.
package llm

import (
	llmclient "github.com/ashiqtasdid/pegasus-sub000/internal/llm/client"
)

// Middleware decorates an LLMClient.
type Middleware func(llmclient.LLMClient) llmclient.LLMClient

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner llmclient.LLMClient, mws ...Middleware) llmclient.LLMClient {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			out = mws[i](out)
		}
	}
	return out
}
