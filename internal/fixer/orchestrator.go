// Package fixer runs the bounded build, diagnose, patch, apply loop.
package fixer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ashiqtasdid/pegasus-sub000/internal/builder"
	"github.com/ashiqtasdid/pegasus-sub000/internal/fileops"
	llmclient "github.com/ashiqtasdid/pegasus-sub000/internal/llm/client"
	"github.com/ashiqtasdid/pegasus-sub000/internal/prompts"
	"github.com/ashiqtasdid/pegasus-sub000/internal/structured"
	"github.com/ashiqtasdid/pegasus-sub000/internal/types"
	"github.com/ashiqtasdid/pegasus-sub000/internal/workspace"
)

const DefaultMaxIterations = 5

var tracer = otel.Tracer("pegasus/fixer")

// Config holds model parameters for patch requests.
type Config struct {
	MaxIterations int
	Model         string
	Temperature   float32
	MaxTokens     int
}

// Deps are the collaborators of an Orchestrator. Builder and LLM are required.
type Deps struct {
	Builder   builder.Runner
	LLM       llmclient.LLMClient
	Executor  *fileops.Executor
	Auditor   Auditor
	Observers []Observer
	Logger    *slog.Logger
	Now       func() time.Time
}

// Session identifies one fix run.
type Session struct {
	ID            string
	ProjectKey    string
	Root          string
	MaxIterations int
	// StartIteration resumes a crashed session at Building with this many
	// build calls already spent.
	StartIteration int
}

// Outcome is the structured report of a finished session.
type Outcome struct {
	SessionID            string                  `json:"sessionId"`
	Success              bool                    `json:"success"`
	Iterations           int                     `json:"iterations"`
	MaxIterationsReached bool                    `json:"maxIterationsReached"`
	State                State                   `json:"state"`
	Message              string                  `json:"message"`
	LastResult           types.CompilationResult `json:"lastCompilationResult"`
	FirstErrors          string                  `json:"firstErrors,omitempty"`
	ArtifactPath         string                  `json:"artifactPath,omitempty"`
	AppliedOperations    int                     `json:"appliedOperations"`
	Usage                llmclient.Usage         `json:"usage"`
	Transitions          []Transition            `json:"transitions"`
}

type Orchestrator struct {
	cfg     Config
	deps    Deps
	decoder *structured.Decoder
	logger  *slog.Logger
}

func New(cfg Config, deps Deps) *Orchestrator {
	if cfg.MaxIterations < 1 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Executor == nil {
		deps.Executor = fileops.NewExecutor(deps.Logger)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Orchestrator{cfg: cfg, deps: deps, decoder: structured.NewDecoder(deps.Logger), logger: deps.Logger}
}

// run carries the mutable state of one session.
type run struct {
	o       *Orchestrator
	sess    Session
	st      SessionState
	out     Outcome
	applied int
	log     *slog.Logger
}

func (r *run) advance(ctx context.Context, to State, detail string) {
	if !CanTransition(r.st.State, to) {
		panic(fmt.Sprintf("fixer: illegal transition %s -> %s", r.st.State, to))
	}
	t := Transition{From: r.st.State, To: to, Iteration: r.st.Iteration, At: r.o.deps.Now(), Detail: detail}
	r.st.State = to
	r.out.Transitions = append(r.out.Transitions, t)
	r.log.DebugContext(ctx, "fix state", "from", t.From, "state", to, "iteration", t.Iteration)
	ev := Event{SessionID: r.sess.ID, ProjectKey: r.sess.ProjectKey, Transition: t}
	for _, obs := range r.o.deps.Observers {
		obs.OnTransition(ctx, ev)
	}
}

func (r *run) finish(ctx context.Context, to State, msg string) Outcome {
	r.advance(ctx, to, msg)
	r.out.State = to
	r.out.Success = to == StateSuccess
	r.out.Iterations = r.st.Iteration
	r.out.MaxIterationsReached = to == StateExhausted
	r.out.Message = msg
	r.out.FirstErrors = r.st.FirstErrors
	r.out.AppliedOperations = r.applied
	if r.st.LastResult != nil {
		r.out.LastResult = *r.st.LastResult
		r.out.ArtifactPath = r.st.LastResult.ArtifactPath
	}
	fixSessionsTotal.WithLabelValues(string(to)).Inc()
	fixIterations.Observe(float64(r.st.Iteration))
	r.log.InfoContext(ctx, "fix session finished", "state", to, "iterations", r.st.Iteration, "applied", r.applied, "message", msg)
	return r.out
}

// partial reports progress of a session that stopped on an error.
func (r *run) partial() Outcome {
	r.out.State = r.st.State
	r.out.Iterations = r.st.Iteration
	r.out.FirstErrors = r.st.FirstErrors
	r.out.AppliedOperations = r.applied
	if r.st.LastResult != nil {
		r.out.LastResult = *r.st.LastResult
	}
	return r.out
}

// Run drives one session to a terminal state. Every expected failure is
// reported in the Outcome; the error is non-nil only for a cancelled ctx or a
// filesystem failure outside the executor contract.
func (o *Orchestrator) Run(ctx context.Context, sess Session) (Outcome, error) {
	limit := sess.MaxIterations
	if limit < 1 {
		limit = o.cfg.MaxIterations
	}
	r := &run{
		o:    o,
		sess: sess,
		st:   SessionState{MaxIterations: limit, State: StateIdle, Iteration: min(max(0, sess.StartIteration), limit)},
		out:  Outcome{SessionID: sess.ID},
		log:  o.logger.With("project", sess.ProjectKey, "session", sess.ID),
	}

	if info, err := os.Stat(sess.Root); err != nil || !info.IsDir() {
		return r.finish(ctx, StateUnrecoverable, fmt.Sprintf("project directory %s does not exist", sess.Root)), nil
	}
	if r.st.Iteration >= limit {
		return r.finish(ctx, StateExhausted, fmt.Sprintf("iteration budget already spent (%d of %d)", r.st.Iteration, limit)), nil
	}

	for {
		r.advance(ctx, StateBuilding, "")
		res, err := o.build(ctx, sess.Root, r.st.Iteration+1)
		switch {
		case ctx.Err() != nil:
			return r.partial(), ctx.Err()
		case errors.Is(err, builder.ErrProjectMissing):
			return r.finish(ctx, StateUnrecoverable, res.Errors), nil
		case err != nil && !errors.Is(err, builder.ErrManifestMissing):
			return r.partial(), err
		}
		r.st.Iteration++
		r.st.LastResult = &res

		if res.Success {
			return r.finish(ctx, StateSuccess, fmt.Sprintf("build succeeded after %d iteration(s)", r.st.Iteration)), nil
		}
		if r.st.FirstErrors == "" {
			r.st.FirstErrors = res.Diagnostics()
		}
		if r.st.Iteration >= limit {
			return r.finish(ctx, StateExhausted, fmt.Sprintf("build still failing after %d attempt(s)", r.st.Iteration)), nil
		}

		r.advance(ctx, StateDiagnosing, string(res.Failure))
		project, _, err := workspace.ReadProject(sess.Root)
		if err != nil && !errors.Is(err, workspace.ErrNoProject) {
			return r.partial(), fmt.Errorf("read project: %w", err)
		}
		system, user, err := prompts.Fix(project, res, r.st.Iteration)
		if err != nil {
			return r.partial(), err
		}

		r.advance(ctx, StatePatching, "")
		text, err := o.askModel(ctx, r, system, user)
		if ctx.Err() != nil {
			return r.partial(), ctx.Err()
		}
		if err != nil {
			return r.finish(ctx, StateUnrecoverable, "model call failed: "+err.Error()), nil
		}
		if strings.TrimSpace(text) == "" {
			return r.finish(ctx, StateUnrecoverable, "model returned an empty response"), nil
		}
		patch, pout := o.decoder.DecodePatch(text)
		if len(patch.Operations) == 0 {
			msg := "model produced no actionable fix"
			if !pout.Parsed {
				msg = "model response could not be parsed into a patch"
			}
			return r.finish(ctx, StateUnrecoverable, msg), nil
		}

		r.advance(ctx, StateApplying, patch.Description)
		results, err := o.deps.Executor.Apply(ctx, sess.Root, patch.Operations)
		if err != nil {
			return r.partial(), err
		}
		sum := fileops.Summarize(results)
		r.applied += sum.Applied
		o.audit(ctx, r, patch, sum)
		if sum.Applied == 0 {
			return r.finish(ctx, StateUnrecoverable, "no operation of the patch could be applied"), nil
		}
	}
}

func (o *Orchestrator) build(ctx context.Context, root string, attempt int) (types.CompilationResult, error) {
	ctx, span := tracer.Start(ctx, "fixer.build", trace.WithAttributes(attribute.Int("fix.attempt", attempt)))
	defer span.End()
	res, err := o.deps.Builder.Build(ctx, root)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.Bool("build.success", res.Success), attribute.String("build.failure", string(res.Failure)))
	return res, err
}

func (o *Orchestrator) askModel(ctx context.Context, r *run, system, user string) (string, error) {
	ctx, span := tracer.Start(ctx, "fixer.model",
		trace.WithAttributes(attribute.String("llm.client", o.deps.LLM.Name()), attribute.Int("fix.iteration", r.st.Iteration)))
	defer span.End()
	resp, err := o.deps.LLM.Generate(ctx, llmclient.Request{
		SystemPrompt: system,
		UserPrompt:   user,
		Model:        o.cfg.Model,
		Temperature:  o.cfg.Temperature,
		MaxTokens:    o.cfg.MaxTokens,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	r.out.Usage = r.out.Usage.Add(resp.Usage)
	return resp.Text, nil
}

func (o *Orchestrator) audit(ctx context.Context, r *run, patch types.Patch, sum fileops.Summary) {
	if o.deps.Auditor == nil {
		return
	}
	rec := AuditRecord{
		SessionID:         r.sess.ID,
		ProjectKey:        r.sess.ProjectKey,
		Iteration:         r.st.Iteration,
		FixDescription:    patch.Description,
		OperationsApplied: sum.Applied,
		OperationsFailed:  sum.Failed,
		At:                o.deps.Now(),
	}
	if err := o.deps.Auditor.RecordFix(ctx, rec); err != nil {
		r.log.WarnContext(ctx, "fix audit not recorded", "err", err)
	}
}
