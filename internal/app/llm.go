package app

import (
	"context"
	"fmt"

	"github.com/ashiqtasdid/pegasus-sub000/internal/config"
	llmclient "github.com/ashiqtasdid/pegasus-sub000/internal/llm/client"
)

func newLLMClient(ctx context.Context, cfg config.LLMConfig) (llmclient.LLMClient, error) {
	switch cfg.Provider {
	case "openai":
		return llmclient.NewOpenAIClient(llmclient.OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
	case "gemini":
		return llmclient.NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
	case "fake", "":
		// Empty replies make generation fall back to the skeleton project.
		return llmclient.NewFakeText(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
