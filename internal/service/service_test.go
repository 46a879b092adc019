package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashiqtasdid/pegasus-sub000/internal/fixer"
	llmclient "github.com/ashiqtasdid/pegasus-sub000/internal/llm/client"
	"github.com/ashiqtasdid/pegasus-sub000/internal/repository/artifact"
	projectrepo "github.com/ashiqtasdid/pegasus-sub000/internal/repository/project"
	"github.com/ashiqtasdid/pegasus-sub000/internal/session"
	"github.com/ashiqtasdid/pegasus-sub000/internal/tester"
	"github.com/ashiqtasdid/pegasus-sub000/internal/types"
)

const projectJSON = `{"name":"Greeter","files":[` +
	`{"path":"pom.xml","content":"<project/>","type":"xml"},` +
	`{"path":"src/main/java/com/x/Greeter.java","content":"class Greeter {","type":"java"}]}`

const patchJSON = `{"description":"close brace","operations":[` +
	`{"kind":"update","path":"src/main/java/com/x/Greeter.java","content":"class Greeter {}","reason":"syntax"}]}`

// jarRunner fails until call okOn, then drops a jar into target/.
type jarRunner struct {
	mu    sync.Mutex
	calls int
	okOn  int
	block chan struct{}
}

func (r *jarRunner) Build(ctx context.Context, root string) (types.CompilationResult, error) {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return types.CompilationResult{}, ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.okOn > 0 && r.calls >= r.okOn {
		jar := filepath.Join(root, "target", "greeter.jar")
		if err := os.MkdirAll(filepath.Dir(jar), 0o755); err != nil {
			return types.CompilationResult{}, err
		}
		if err := os.WriteFile(jar, []byte("PK"), 0o644); err != nil {
			return types.CompilationResult{}, err
		}
		return types.CompilationResult{Success: true, ArtifactPath: jar}, nil
	}
	return types.CompilationResult{Failure: types.FailureToolFailed, Errors: "[ERROR] ';' expected"}, nil
}

type fixture struct {
	svc       *Service
	llm       *llmclient.FakeClient
	runner    *jarRunner
	projects  projectrepo.Store
	artifacts *artifact.MemoryStore
	root      string
}

func newFixture(t *testing.T, runner *jarRunner, replies ...string) *fixture {
	t.Helper()
	f := &fixture{
		llm:       llmclient.NewFakeText(replies...),
		runner:    runner,
		projects:  projectrepo.NewFileStore(filepath.Join(t.TempDir(), "projects.json")),
		artifacts: artifact.NewMemoryStore(),
		root:      t.TempDir(),
	}
	svc, err := New(Deps{
		LLM:          f.llm,
		Builder:      runner,
		Projects:     f.projects,
		Artifacts:    f.artifacts,
		ProjectsRoot: f.root,
		Fix:          fixer.Config{MaxIterations: 3},
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

var greeter = types.GenerationRequest{UserID: "u1", PluginName: "Greeter", Requirements: "greet players"}

func TestGenerateHealsAndPublishes(t *testing.T) {
	f := newFixture(t, &jarRunner{okOn: 2}, projectJSON, patchJSON)

	resp, err := f.svc.Generate(context.Background(), greeter)
	require.NoError(t, err)
	tester.True(t, resp.Success)
	tester.Eq(t, resp.Iterations, 2)
	tester.Eq(t, resp.State, fixer.StateSuccess)
	tester.Eq(t, resp.ProjectRoot, filepath.Join(f.root, "u1", "Greeter"))
	tester.Eq(t, resp.ArtifactURL, "mem://u1/Greeter/greeter.jar")
	tester.Eq(t, resp.FirstErrors, "[ERROR] ';' expected")
	require.NotNil(t, resp.Generation)
	tester.True(t, resp.Generation.Valid)
	tester.True(t, resp.Usage.TotalTokens > 0)
	tester.True(t, resp.SessionID != "")

	b, err := os.ReadFile(filepath.Join(resp.ProjectRoot, "src/main/java/com/x/Greeter.java"))
	require.NoError(t, err)
	tester.Eq(t, string(b), "class Greeter {}")

	p, err := f.projects.GetProject(context.Background(), "u1/Greeter")
	require.NoError(t, err)
	gf, ok := p.FileByPath("src/main/java/com/x/Greeter.java")
	require.True(t, ok)
	tester.Eq(t, gf.Content, "class Greeter {}")

	arts, err := f.svc.Artifacts(context.Background(), "u1", "Greeter")
	require.NoError(t, err)
	tester.Eq(t, arts, []ArtifactInfo{{Name: "greeter.jar", URL: "mem://u1/Greeter/greeter.jar"}})
	jar, err := f.svc.ReadArtifact(context.Background(), "u1", "Greeter", "greeter.jar")
	require.NoError(t, err)
	tester.Eq(t, string(jar), "PK")
	_, err = f.svc.ReadArtifact(context.Background(), "u1", "Greeter", "other.jar")
	tester.ErrIs(t, err, ErrArtifactNotFound)
	_, err = f.svc.ReadArtifact(context.Background(), "u1", "Greeter", "../../x.jar")
	tester.ErrIs(t, err, ErrInvalidRequest)

	fixes, err := f.svc.Fixes(context.Background(), "u1", "Greeter")
	require.NoError(t, err)
	require.Len(t, fixes, 1)
	tester.Eq(t, fixes[0].FixDescription, "close brace")
	tester.Eq(t, fixes[0].SessionID, resp.SessionID)
}

func TestGenerateReportsExhaustion(t *testing.T) {
	f := newFixture(t, &jarRunner{}, projectJSON, patchJSON)
	resp, err := f.svc.Generate(context.Background(), greeter)
	require.NoError(t, err)
	tester.False(t, resp.Success)
	tester.True(t, resp.MaxIterationsReached)
	tester.Eq(t, resp.Iterations, 3)
	tester.Eq(t, resp.ArtifactURL, "")

	keys, err := f.artifacts.List(context.Background(), "u1/Greeter")
	require.NoError(t, err)
	tester.Eq(t, len(keys), 0)
}

func TestRequestMaxIterationsOverridesDefault(t *testing.T) {
	f := newFixture(t, &jarRunner{}, projectJSON, patchJSON)
	req := greeter
	req.MaxIterations = 1
	resp, err := f.svc.Generate(context.Background(), req)
	require.NoError(t, err)
	tester.Eq(t, resp.Iterations, 1)
	tester.True(t, resp.MaxIterationsReached)
}

func TestInvalidRequest(t *testing.T) {
	f := newFixture(t, &jarRunner{okOn: 1}, projectJSON)
	for _, req := range []types.GenerationRequest{
		{UserID: "", PluginName: "x"},
		{UserID: "u", PluginName: "../x"},
		{UserID: "u", PluginName: "x", MaxIterations: -1},
	} {
		_, err := f.svc.Generate(context.Background(), req)
		require.ErrorIs(t, err, ErrInvalidRequest)
	}
	_, err := f.svc.Fixes(context.Background(), "a/b", "x")
	require.ErrorIs(t, err, ErrInvalidRequest)
	tester.Eq(t, len(f.llm.Calls()), 0)
}

func TestFixRequiresExistingProject(t *testing.T) {
	f := newFixture(t, &jarRunner{okOn: 1})
	_, err := f.svc.Fix(context.Background(), greeter)
	require.ErrorIs(t, err, ErrProjectNotFound)
}

func TestFixExistingProject(t *testing.T) {
	f := newFixture(t, &jarRunner{okOn: 1})
	dir := filepath.Join(f.root, "u1", "Greeter")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pom.xml"), []byte("<project/>"), 0o644))

	resp, err := f.svc.Fix(context.Background(), greeter)
	require.NoError(t, err)
	tester.True(t, resp.Success)
	tester.Eq(t, resp.Iterations, 1)
	require.Nil(t, resp.Generation)
	tester.Eq(t, len(f.llm.Calls()), 0)
}

func TestConcurrentRequestForSameProjectIsBusy(t *testing.T) {
	runner := &jarRunner{okOn: 1, block: make(chan struct{})}
	f := newFixture(t, runner, projectJSON)

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Generate(context.Background(), greeter)
		done <- err
	}()
	require.Eventually(t, func() bool {
		return f.svc.deps.Guard.Active(greeter.ProjectKey())
	}, 2*time.Second, 5*time.Millisecond)

	_, err := f.svc.Generate(context.Background(), greeter)
	require.True(t, errors.Is(err, session.ErrBusy))

	close(runner.block)
	require.NoError(t, <-done)
	tester.False(t, f.svc.deps.Guard.Active(greeter.ProjectKey()))
}

func TestHubReceivesTransitions(t *testing.T) {
	f := newFixture(t, &jarRunner{okOn: 1}, projectJSON)
	ctx, cancel := context.WithCancel(context.Background())
	events := f.svc.Hub().Subscribe(ctx, greeter.ProjectKey())
	tester.Eq(t, f.svc.Hub().Subscribers(greeter.ProjectKey()), 1)

	_, err := f.svc.Generate(context.Background(), greeter)
	require.NoError(t, err)

	var states []fixer.State
	for len(states) < 2 {
		ev := <-events
		states = append(states, ev.Transition.To)
	}
	tester.Eq(t, states, []fixer.State{fixer.StateBuilding, fixer.StateSuccess})

	cancel()
	for range events {
	}
	assert.Eventually(t, func() bool { return f.svc.Hub().Subscribers(greeter.ProjectKey()) == 0 }, time.Second, 5*time.Millisecond)
}
