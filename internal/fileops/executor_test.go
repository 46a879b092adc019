package fileops

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashiqtasdid/pegasus-sub000/internal/tester"
	"github.com/ashiqtasdid/pegasus-sub000/internal/types"
)

func readFile(t *testing.T, root, rel string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(b)
}

// snapshot lists every entry under dir, relative and slash separated.
func snapshot(t *testing.T, dir string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, p)
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestApplyMixedBatch(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "old.txt"), []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "gone.txt"), []byte("bye"), 0o644))

	ops := []types.FileOperation{
		{Kind: types.OpCreate, Path: "src/main/java/A.java", Content: types.StrPtr("class A {}"), Reason: "add class"},
		{Kind: types.OpRename, OldPath: "missing.txt", NewPath: "x.txt", Reason: "rename missing"},
		{Kind: types.OpUpdate, Path: "old.txt", Content: types.StrPtr("new"), Reason: "update"},
		{Kind: types.OpDelete, Path: "gone.txt", Reason: "cleanup"},
		{Kind: types.OpRename, OldPath: "old.txt", NewPath: "docs/old.txt", Reason: "move"},
	}
	results, err := NewExecutor(nil).Apply(context.Background(), root, ops)
	require.NoError(t, err)
	require.Len(t, results, len(ops))

	tester.True(t, results[0].Success)
	tester.False(t, results[1].Success, "missing rename source fails only that operation")
	assert.Contains(t, results[1].Error, "missing.txt")
	tester.True(t, results[2].Success)
	tester.True(t, results[3].Success)
	tester.True(t, results[4].Success)

	tester.Eq(t, readFile(t, root, "src/main/java/A.java"), "class A {}")
	tester.Eq(t, readFile(t, root, "docs/old.txt"), "new")
	_, err = os.Stat(filepath.Join(root, "gone.txt"))
	tester.True(t, os.IsNotExist(err))

	sum := Summarize(results)
	tester.Eq(t, sum.Applied, 4)
	tester.Eq(t, sum.Failed, 1)
	tester.Eq(t, sum.ByKind[types.OpRename], 1)
}

func TestApplyIsIdempotent(t *testing.T) {
	root := t.TempDir()
	e := NewExecutor(nil)
	ops := []types.FileOperation{
		{Kind: types.OpCreate, Path: "a/b.txt", Content: types.StrPtr("same"), Reason: "r"},
		{Kind: types.OpDelete, Path: "never-existed.txt", Reason: "r"},
	}
	for i := 0; i < 2; i++ {
		results, err := e.Apply(context.Background(), root, ops)
		require.NoError(t, err)
		for _, r := range results {
			tester.True(t, r.Success, r.Error)
		}
		tester.Eq(t, readFile(t, root, "a/b.txt"), "same")
	}
}

func TestApplyNeverTouchesFilesystemForUnsafePaths(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "project")
	require.NoError(t, os.Mkdir(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(parent, "victim.txt"), []byte("keep"), 0o644))
	before := snapshot(t, parent)

	var ops []types.FileOperation
	for _, p := range []string{"../victim.txt", "a/../../victim.txt", "/etc/passwd", `..\victim.txt`, `sub\file.txt`} {
		ops = append(ops,
			types.FileOperation{Kind: types.OpCreate, Path: p, Content: types.StrPtr("x"), Reason: "r"},
			types.FileOperation{Kind: types.OpDelete, Path: p, Reason: "r"},
			types.FileOperation{Kind: types.OpRename, OldPath: p, NewPath: "stolen.txt", Reason: "r"},
			types.FileOperation{Kind: types.OpRename, OldPath: "x.txt", NewPath: p, Reason: "r"},
		)
	}
	results, err := NewExecutor(nil).Apply(context.Background(), root, ops)
	require.NoError(t, err)
	for _, r := range results {
		tester.False(t, r.Success, r.Operation)
	}
	tester.Eq(t, snapshot(t, parent), before)
	tester.Eq(t, readFile(t, parent, "victim.txt"), "keep")
}

func TestApplyMissingRoot(t *testing.T) {
	_, err := NewExecutor(nil).Apply(context.Background(), filepath.Join(t.TempDir(), "nope"), nil)
	require.Error(t, err)
}
