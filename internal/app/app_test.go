package app

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ashiqtasdid/pegasus-sub000/internal/config"
	llmclient "github.com/ashiqtasdid/pegasus-sub000/internal/llm/client"
	"github.com/ashiqtasdid/pegasus-sub000/internal/tester"
	"github.com/ashiqtasdid/pegasus-sub000/internal/types"
)

type okRunner struct{}

func (okRunner) Build(context.Context, string) (types.CompilationResult, error) {
	return types.CompilationResult{Success: true}, nil
}

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		LLM:      config.LLMConfig{Provider: "fake", Model: "fake", RetryAttempts: 1},
		Build:    config.BuildConfig{Command: []string{"mvn", "package"}, Timeout: time.Minute},
		Fix:      config.FixConfig{MaxIterations: 2, MaxConcurrentSessions: 1},
		Store:    config.StoreConfig{ProjectsRoot: filepath.Join(dir, "projects"), StatePath: filepath.Join(dir, "state.json")},
		Artifact: config.ArtifactConfig{Dir: filepath.Join(dir, "artifacts")},
		Server:   config.ServerConfig{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second},
	}
}

func TestNewWiresFallbackGeneration(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), nil, Options{Builder: okRunner{}})
	require.NoError(t, err)
	defer a.Close()

	resp, err := a.Service.Generate(context.Background(), types.GenerationRequest{UserID: "u", PluginName: "Demo", Requirements: "x"})
	require.NoError(t, err)
	tester.True(t, resp.Success)
	require.NotNil(t, resp.Generation)
	tester.True(t, resp.Generation.Sanitize.UsedFallback)

	snap := a.Usage.Snapshot()
	tester.Eq(t, snap.Requests, int64(1))
	tester.True(t, a.Server() != nil)
}

func TestNewUsesInjectedClient(t *testing.T) {
	fake := llmclient.NewFakeText(`{"name":"Demo","files":[{"path":"pom.xml","content":"<project/>","type":"xml"}]}`)
	a, err := New(context.Background(), testConfig(t), nil, Options{LLM: fake, Builder: okRunner{}})
	require.NoError(t, err)
	defer a.Close()

	resp, err := a.Service.Generate(context.Background(), types.GenerationRequest{UserID: "u", PluginName: "Demo", Requirements: "x"})
	require.NoError(t, err)
	tester.False(t, resp.Generation.Sanitize.UsedFallback)
	tester.Eq(t, len(fake.Calls()), 1)
}

func TestUnknownProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.Provider = "mystery"
	_, err := New(context.Background(), cfg, nil, Options{})
	require.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "debug", "json").Debug("hello", "k", 1)
	tester.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	NewLogger(&buf, "nonsense", "text").Debug("hidden")
	tester.Eq(t, buf.String(), "")
}
