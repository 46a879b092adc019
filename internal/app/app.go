// Package app assembles the service graph from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ashiqtasdid/pegasus-sub000/internal/builder"
	"github.com/ashiqtasdid/pegasus-sub000/internal/config"
	"github.com/ashiqtasdid/pegasus-sub000/internal/fixer"
	"github.com/ashiqtasdid/pegasus-sub000/internal/generator"
	"github.com/ashiqtasdid/pegasus-sub000/internal/llm"
	llmclient "github.com/ashiqtasdid/pegasus-sub000/internal/llm/client"
	"github.com/ashiqtasdid/pegasus-sub000/internal/server"
	"github.com/ashiqtasdid/pegasus-sub000/internal/service"
	"github.com/ashiqtasdid/pegasus-sub000/internal/session"
)

type App struct {
	Config  *config.Config
	Service *service.Service
	Usage   *llm.UsageLedger
	Logger  *slog.Logger

	llm    llmclient.LLMClient
	stores *stores
}

// Options lets callers swap the model client or builder, mainly for tests.
type Options struct {
	LLM     llmclient.LLMClient
	Builder builder.Runner
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ledger := llm.NewUsageLedger()

	inner := opts.LLM
	if inner == nil {
		var err error
		inner, err = newLLMClient(ctx, cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("llm client: %w", err)
		}
	}
	client := llm.Wrap(inner,
		llm.WithLogging(logger),
		llm.WithUsage(ledger),
		llm.Retry(cfg.LLM.RetryAttempts, cfg.LLM.RetryDelay),
		llm.RateLimit(cfg.LLM.RPS, cfg.LLM.Burst),
	)

	runner := opts.Builder
	if runner == nil {
		runner = builder.NewMavenRunner(builder.Config{Command: cfg.Build.Command, Timeout: cfg.Build.Timeout}, logger)
	}

	st, err := initStores(ctx, cfg, logger)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	svc, err := service.New(service.Deps{
		LLM:          client,
		Builder:      runner,
		Projects:     st.projects,
		Artifacts:    st.artifacts,
		Guard:        session.NewGuard(cfg.Fix.MaxConcurrentSessions),
		Logger:       logger,
		ProjectsRoot: cfg.Store.ProjectsRoot,
		Fix: fixer.Config{
			MaxIterations: cfg.Fix.MaxIterations,
			Model:         cfg.LLM.Model,
			Temperature:   cfg.LLM.Temperature,
			MaxTokens:     cfg.LLM.MaxTokens,
		},
		Generation: generator.Options{
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		},
	})
	if err != nil {
		_ = st.Close()
		_ = client.Close()
		return nil, err
	}
	logger.Info("pegasus ready", "llm", client.Name(), "projects_root", cfg.Store.ProjectsRoot)
	return &App{Config: cfg, Service: svc, Usage: ledger, Logger: logger, llm: client, stores: st}, nil
}

// Server builds the HTTP server for the configured address.
func (a *App) Server() *server.Server {
	h := server.NewHandler(a.Service, a.Config.Server.AllowedOrigins, a.Logger)
	return server.New(a.Config.Server.Addr, server.NewMux(h, a.Config.Server.AllowedOrigins), a.Logger)
}

func (a *App) Close() error {
	return errors.Join(a.stores.Close(), a.llm.Close())
}
