package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ashiqtasdid/pegasus-sub000/internal/tester"
	"github.com/ashiqtasdid/pegasus-sub000/internal/types"
)

func TestRenderSections(t *testing.T) {
	out, err := Render(Spec{
		Purpose:      "Do it.",
		OutputFields: []Field{{Name: "a", Type: "string", Required: true, Description: "A."}, {Name: "b", Type: "int"}},
		Rules:        []string{"be brief", "  "},
		OutputFormat: "JSON",
	}, map[string]any{"x": "<y>"})
	require.NoError(t, err)

	for _, sec := range []string{"[PURPOSE]", "[INPUT]", "[OUTPUT]", "[RULES]", "[OUTPUT_FORMAT]"} {
		tester.Contains(t, out, sec, sec)
	}
	tester.False(t, strings.Contains(out, "[BACKGROUND]"))
	tester.Contains(t, out, "- a (string, required): A.")
	tester.Contains(t, out, "- b (int, optional)")
	tester.Contains(t, out, `"x": "<y>"`)
	tester.True(t, strings.HasSuffix(out, "\n"))
}

func TestRenderRequiresPurposeAndFields(t *testing.T) {
	_, err := Render(Spec{OutputFields: []Field{{Name: "a"}}}, nil)
	require.Error(t, err)
	_, err = Render(Spec{Purpose: "x"}, nil)
	require.Error(t, err)
}

func TestGenerationDefaultsVersion(t *testing.T) {
	sys, user, err := Generation(types.GenerationRequest{PluginName: "Hello", Requirements: "greet players"})
	require.NoError(t, err)
	tester.True(t, sys != "")
	tester.Contains(t, user, `"targetVersion": "1.20.4"`)
	tester.Contains(t, user, "greet players")
}

func TestFixIncludesDiagnosticsAndFiles(t *testing.T) {
	p := types.Project{
		TargetVersion: "1.20.4",
		Files: []types.File{
			{Path: "src/Main.java", Content: "class Main {}", Type: "java"},
			{Path: "pom.xml", Content: "<project/>", Type: "xml"},
		},
	}
	res := types.CompilationResult{Failure: types.FailureToolFailed, Errors: "[ERROR] cannot find symbol"}
	_, user, err := Fix(p, res, 2)
	require.NoError(t, err)
	tester.Contains(t, user, "cannot find symbol")
	tester.Contains(t, user, `"failure": "tool_failed"`)
	tester.True(t, strings.Index(user, "pom.xml") < strings.Index(user, "src/Main.java"))
}

func TestSnapshotBudget(t *testing.T) {
	p := types.Project{Files: []types.File{
		{Path: "a.java", Content: strings.Repeat("a", 10)},
		{Path: "b.java", Content: strings.Repeat("b", 10)},
		{Path: "pom.xml", Content: strings.Repeat("p", 5)},
	}}
	got := Snapshot(p, 16)
	tester.Eq(t, got[0].Path, "pom.xml")
	tester.Eq(t, got[1].Content, strings.Repeat("a", 10))
	tester.Eq(t, got[2].Content, "")
	tester.Eq(t, p.Files[1].Content, strings.Repeat("b", 10))
}

func TestClip(t *testing.T) {
	tester.Eq(t, Clip("short", 10), "short")
	tester.Eq(t, Clip("line1\nline2\nline3", 8), "line3")
	tester.Eq(t, Clip("abcdef", 3), "def")
}
