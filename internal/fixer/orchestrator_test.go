package fixer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashiqtasdid/pegasus-sub000/internal/builder"
	llmclient "github.com/ashiqtasdid/pegasus-sub000/internal/llm/client"
	"github.com/ashiqtasdid/pegasus-sub000/internal/tester"
	"github.com/ashiqtasdid/pegasus-sub000/internal/types"
)

// scriptedRunner succeeds on the build calls listed in okOn (1-based).
type scriptedRunner struct {
	mu    sync.Mutex
	calls int
	okOn  map[int]bool
}

func (s *scriptedRunner) Build(ctx context.Context, root string) (types.CompilationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.okOn[s.calls] {
		return types.CompilationResult{Success: true, ArtifactPath: filepath.Join(root, "target", "demo.jar")}, nil
	}
	return types.CompilationResult{
		Failure:     types.FailureToolFailed,
		BuildOutput: fmt.Sprintf("build %d failed", s.calls),
		Errors:      fmt.Sprintf("[ERROR] failure #%d", s.calls),
	}, nil
}

func (s *scriptedRunner) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func failingRunner() *scriptedRunner { return &scriptedRunner{okOn: map[int]bool{}} }

type memAuditor struct {
	mu   sync.Mutex
	recs []AuditRecord
}

func (m *memAuditor) RecordFix(_ context.Context, rec AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

func patchJSON(i int) string {
	return fmt.Sprintf(`{"description":"fix %d","operations":[{"kind":"update","path":"src/Main.java","content":"class Main { int v = %d; }","reason":"compile error"}]}`, i, i)
}

func newProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "pom.xml"), []byte("<project/>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "Main.java"), []byte("class Main {"), 0o644))
	return root
}

func newOrchestrator(r builder.Runner, llm llmclient.LLMClient, extra ...func(*Deps)) *Orchestrator {
	deps := Deps{Builder: r, LLM: llm}
	for _, f := range extra {
		f(&deps)
	}
	return New(Config{MaxIterations: 5}, deps)
}

func TestCompilesOnFirstIteration(t *testing.T) {
	runner := &scriptedRunner{okOn: map[int]bool{1: true}}
	llm := llmclient.NewFakeText(patchJSON(1))
	o := newOrchestrator(runner, llm)

	out, err := o.Run(context.Background(), Session{ID: "s1", Root: newProject(t)})
	require.NoError(t, err)
	tester.True(t, out.Success)
	tester.Eq(t, out.Iterations, 1)
	tester.Eq(t, out.State, StateSuccess)
	tester.True(t, out.ArtifactPath != "")
	tester.Eq(t, len(llm.Calls()), 0)
}

func TestSucceedsOnThirdIteration(t *testing.T) {
	root := newProject(t)
	runner := &scriptedRunner{okOn: map[int]bool{3: true}}
	llm := llmclient.NewFakeText(patchJSON(1), patchJSON(2))
	audit := &memAuditor{}
	o := newOrchestrator(runner, llm, func(d *Deps) { d.Auditor = audit })

	out, err := o.Run(context.Background(), Session{ID: "s2", ProjectKey: "u/p", Root: root, MaxIterations: 5})
	require.NoError(t, err)
	tester.True(t, out.Success)
	tester.Eq(t, out.Iterations, 3)
	tester.False(t, out.MaxIterationsReached)
	tester.Eq(t, runner.Calls(), 3)
	tester.Eq(t, len(llm.Calls()), 2)
	tester.Eq(t, out.AppliedOperations, 2)
	tester.Eq(t, out.FirstErrors, "[ERROR] failure #1")

	b, err := os.ReadFile(filepath.Join(root, "src", "Main.java"))
	require.NoError(t, err)
	tester.Eq(t, string(b), "class Main { int v = 2; }")

	require.Len(t, audit.recs, 2)
	tester.Eq(t, audit.recs[0].FixDescription, "fix 1")
	tester.Eq(t, audit.recs[0].OperationsApplied, 1)
	tester.Eq(t, audit.recs[1].Iteration, 2)
	tester.Eq(t, audit.recs[1].ProjectKey, "u/p")
}

func TestExhaustsIterationBudget(t *testing.T) {
	runner := failingRunner()
	llm := llmclient.NewFakeText(patchJSON(1))
	o := newOrchestrator(runner, llm)

	out, err := o.Run(context.Background(), Session{Root: newProject(t), MaxIterations: 3})
	require.NoError(t, err)
	tester.False(t, out.Success)
	tester.Eq(t, out.Iterations, 3)
	tester.True(t, out.MaxIterationsReached)
	tester.Eq(t, out.State, StateExhausted)
	tester.Eq(t, runner.Calls(), 3)
	tester.Eq(t, out.FirstErrors, "[ERROR] failure #1")
	tester.Eq(t, out.LastResult.Errors, "[ERROR] failure #3")
}

func TestEmptyModelTextIsUnrecoverable(t *testing.T) {
	for _, text := range []string{"", "   \n\t"} {
		runner := failingRunner()
		o := newOrchestrator(runner, llmclient.NewFakeText(text))

		out, err := o.Run(context.Background(), Session{Root: newProject(t), MaxIterations: 5})
		require.NoError(t, err)
		tester.False(t, out.Success)
		tester.Eq(t, out.State, StateUnrecoverable)
		tester.False(t, out.MaxIterationsReached)
		tester.Eq(t, out.Iterations, 1)
		tester.Eq(t, runner.Calls(), 1)
	}
}

func TestUnparseablePatchIsUnrecoverable(t *testing.T) {
	o := newOrchestrator(failingRunner(), llmclient.NewFakeText("I think you should add an import."))
	out, err := o.Run(context.Background(), Session{Root: newProject(t)})
	require.NoError(t, err)
	tester.Eq(t, out.State, StateUnrecoverable)
	assert.Contains(t, out.Message, "could not be parsed")
}

func TestPatchWithoutValidOperationsIsUnrecoverable(t *testing.T) {
	text := `{"description":"x","operations":[{"kind":"update","path":"../evil","content":"x","reason":"r"}]}`
	o := newOrchestrator(failingRunner(), llmclient.NewFakeText(text))
	out, err := o.Run(context.Background(), Session{Root: newProject(t)})
	require.NoError(t, err)
	tester.Eq(t, out.State, StateUnrecoverable)
	assert.Contains(t, out.Message, "no actionable fix")
}

func TestModelErrorIsUnrecoverable(t *testing.T) {
	llm := llmclient.NewFakeClient(llmclient.FakeReply{Err: errors.New("connection refused")})
	o := newOrchestrator(failingRunner(), llm)
	out, err := o.Run(context.Background(), Session{Root: newProject(t)})
	require.NoError(t, err)
	tester.Eq(t, out.State, StateUnrecoverable)
	assert.Contains(t, out.Message, "connection refused")
}

func TestMissingProjectDirectory(t *testing.T) {
	runner := failingRunner()
	o := newOrchestrator(runner, llmclient.NewFakeText())
	out, err := o.Run(context.Background(), Session{Root: filepath.Join(t.TempDir(), "missing")})
	require.NoError(t, err)
	tester.Eq(t, out.State, StateUnrecoverable)
	tester.Eq(t, out.Iterations, 0)
	tester.Eq(t, runner.Calls(), 0)
}

func TestLoopTerminatesWithinBudget(t *testing.T) {
	for n := 1; n <= 6; n++ {
		runner := failingRunner()
		o := newOrchestrator(runner, llmclient.NewFakeText(patchJSON(n)))
		out, err := o.Run(context.Background(), Session{Root: newProject(t), MaxIterations: n})
		require.NoError(t, err)
		tester.True(t, out.State.Terminal())
		tester.True(t, runner.Calls() <= n, fmt.Sprintf("n=%d calls=%d", n, runner.Calls()))
		tester.Eq(t, out.Iterations, n)
	}
}

func TestResumeHonorsSpentIterations(t *testing.T) {
	runner := failingRunner()
	o := newOrchestrator(runner, llmclient.NewFakeText(patchJSON(1)))
	out, err := o.Run(context.Background(), Session{Root: newProject(t), MaxIterations: 4, StartIteration: 2})
	require.NoError(t, err)
	tester.Eq(t, out.Iterations, 4)
	tester.Eq(t, runner.Calls(), 2)
}

func TestResumeWithSpentBudgetIsExhausted(t *testing.T) {
	runner := failingRunner()
	o := newOrchestrator(runner, llmclient.NewFakeText(patchJSON(1)))
	for _, start := range []int{3, 7} {
		out, err := o.Run(context.Background(), Session{Root: newProject(t), MaxIterations: 3, StartIteration: start})
		require.NoError(t, err)
		tester.Eq(t, out.State, StateExhausted)
		tester.True(t, out.MaxIterationsReached)
		tester.False(t, out.Success)
		tester.Eq(t, out.Iterations, 3)
		require.Len(t, out.Transitions, 1)
		tester.Eq(t, out.Transitions[0].From, StateIdle)
	}
	tester.Eq(t, runner.Calls(), 0)
}

func TestTransitionsAreObserved(t *testing.T) {
	var seen []State
	obs := ObserverFunc(func(_ context.Context, ev Event) {
		seen = append(seen, ev.Transition.To)
		tester.Eq(t, ev.SessionID, "obs")
	})
	runner := &scriptedRunner{okOn: map[int]bool{2: true}}
	o := newOrchestrator(runner, llmclient.NewFakeText(patchJSON(1)), func(d *Deps) { d.Observers = []Observer{obs} })

	out, err := o.Run(context.Background(), Session{ID: "obs", Root: newProject(t)})
	require.NoError(t, err)
	want := []State{StateBuilding, StateDiagnosing, StatePatching, StateApplying, StateBuilding, StateSuccess}
	tester.Eq(t, seen, want)
	require.Len(t, out.Transitions, len(want))
	tester.Eq(t, out.Transitions[0].From, StateIdle)
	for _, tr := range out.Transitions {
		tester.True(t, CanTransition(tr.From, tr.To), fmt.Sprintf("%s -> %s", tr.From, tr.To))
	}
}

func TestCancelledContextStopsSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := newOrchestrator(failingRunner(), llmclient.NewFakeText(patchJSON(1)))
	_, err := o.Run(ctx, Session{Root: newProject(t)})
	require.ErrorIs(t, err, context.Canceled)
}

func TestCanTransition(t *testing.T) {
	tester.True(t, CanTransition(StateIdle, StateBuilding))
	tester.True(t, CanTransition(StateIdle, StateExhausted))
	tester.True(t, CanTransition(StateApplying, StateBuilding))
	tester.False(t, CanTransition(StateIdle, StateSuccess))
	tester.False(t, CanTransition(StateSuccess, StateBuilding))
	tester.False(t, CanTransition(StatePatching, StateBuilding))
	tester.True(t, StateExhausted.Terminal())
	tester.False(t, StateDiagnosing.Terminal())
}
