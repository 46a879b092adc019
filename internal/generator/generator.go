// Package generator turns a plugin request into a project tree via the model.
package generator

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	llmclient "github.com/ashiqtasdid/pegasus-sub000/internal/llm/client"
	"github.com/ashiqtasdid/pegasus-sub000/internal/prompts"
	"github.com/ashiqtasdid/pegasus-sub000/internal/structured"
	"github.com/ashiqtasdid/pegasus-sub000/internal/types"
	"github.com/ashiqtasdid/pegasus-sub000/internal/workspace"
)

var tracer = otel.Tracer("pegasus/generator")

type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// Result is a generated project plus how it was recovered from model text.
type Result struct {
	Project types.Project             `json:"project"`
	Outcome structured.ProjectOutcome `json:"outcome"`
	Usage   llmclient.Usage           `json:"usage"`
}

type Generator struct {
	llm     llmclient.LLMClient
	decoder *structured.Decoder
	opts    Options
	logger  *slog.Logger
}

func New(llm llmclient.LLMClient, opts Options, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{llm: llm, decoder: structured.NewDecoder(logger), opts: opts, logger: logger}
}

// Generate asks the model for a project. Unusable text never fails the call:
// the decoder sanitizes it or falls back to the skeleton project. Only the
// model call itself can return an error.
func (g *Generator) Generate(ctx context.Context, req types.GenerationRequest) (Result, error) {
	ctx, span := tracer.Start(ctx, "generator.generate",
		trace.WithAttributes(
			attribute.String("plugin.name", req.PluginName),
			attribute.String("llm.client", g.llm.Name()),
		))
	defer span.End()

	system, user, err := prompts.Generation(req)
	if err != nil {
		return Result{}, err
	}
	resp, err := g.llm.Generate(ctx, llmclient.Request{
		SystemPrompt: system,
		UserPrompt:   user,
		Model:        g.opts.Model,
		Temperature:  g.opts.Temperature,
		MaxTokens:    g.opts.MaxTokens,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, fmt.Errorf("generate %s: %w", req.PluginName, err)
	}

	project, outcome := g.decoder.DecodeProject(resp.Text, req)
	span.SetAttributes(
		attribute.String("parse.strategy", outcome.Strategy),
		attribute.Bool("parse.valid", outcome.Valid),
		attribute.Bool("project.fallback", outcome.Sanitize.UsedFallback),
		attribute.Int("project.files", len(project.Files)),
	)
	g.logger.InfoContext(ctx, "project generated",
		"plugin", req.PluginName,
		"strategy", outcome.Strategy,
		"files", len(project.Files),
		"fallback", outcome.Sanitize.UsedFallback,
		"tokens", resp.Usage.TotalTokens)
	return Result{Project: project, Outcome: outcome, Usage: resp.Usage}, nil
}

// GenerateTo generates and replaces the tree at root with the result.
func (g *Generator) GenerateTo(ctx context.Context, root string, req types.GenerationRequest) (Result, error) {
	res, err := g.Generate(ctx, req)
	if err != nil {
		return res, err
	}
	if err := workspace.ReplaceProject(root, res.Project); err != nil {
		return res, fmt.Errorf("write project: %w", err)
	}
	return res, nil
}
