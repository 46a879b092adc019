package generator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	llmclient "github.com/ashiqtasdid/pegasus-sub000/internal/llm/client"
	"github.com/ashiqtasdid/pegasus-sub000/internal/tester"
	"github.com/ashiqtasdid/pegasus-sub000/internal/types"
)

var req = types.GenerationRequest{UserID: "u1", PluginName: "Greeter", Requirements: "say hi"}

const projectJSON = "Sure! Here is the plugin:\n```json\n" + `{
  "name": "Greeter",
  "targetVersion": "1.20.4",
  "files": [
    {"path": "pom.xml", "content": "<project/>", "type": "xml"},
    {"path": "src/main/java/com/x/Greeter.java", "content": "class Greeter {}", "type": "java"}
  ]
}` + "\n```\n"

func TestGenerateDecodesModelText(t *testing.T) {
	fake := llmclient.NewFakeText(projectJSON)
	g := New(fake, Options{Model: "m", Temperature: 0.2}, nil)

	res, err := g.Generate(context.Background(), req)
	require.NoError(t, err)
	tester.Eq(t, res.Project.Name, "Greeter")
	tester.Eq(t, len(res.Project.Files), 2)
	tester.True(t, res.Outcome.Valid)
	tester.False(t, res.Outcome.Sanitize.UsedFallback)
	tester.True(t, res.Usage.TotalTokens > 0)

	calls := fake.Calls()
	tester.Eq(t, len(calls), 1)
	tester.Eq(t, calls[0].Model, "m")
	tester.Contains(t, calls[0].UserPrompt, "say hi")
}

func TestGenerateFallsBackOnGarbage(t *testing.T) {
	g := New(llmclient.NewFakeText("I cannot help with that."), Options{}, nil)
	res, err := g.Generate(context.Background(), req)
	require.NoError(t, err)
	tester.True(t, res.Outcome.Sanitize.UsedFallback)
	_, ok := res.Project.FileByPath("pom.xml")
	tester.True(t, ok)
}

func TestGeneratePropagatesModelError(t *testing.T) {
	boom := errors.New("network down")
	g := New(llmclient.NewFakeClient(llmclient.FakeReply{Err: boom}), Options{}, nil)
	_, err := g.Generate(context.Background(), req)
	require.ErrorIs(t, err, boom)
}

func TestGenerateToReplacesTree(t *testing.T) {
	root := filepath.Join(t.TempDir(), "u1", "Greeter")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "stale.txt"), []byte("old"), 0o644))

	g := New(llmclient.NewFakeText(projectJSON), Options{}, nil)
	_, err := g.GenerateTo(context.Background(), root, req)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(root, "stale.txt"))
	tester.True(t, os.IsNotExist(err))
	b, err := os.ReadFile(filepath.Join(root, "src/main/java/com/x/Greeter.java"))
	require.NoError(t, err)
	tester.Eq(t, string(b), "class Greeter {}")
}
