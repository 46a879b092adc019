package artifact

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ashiqtasdid/pegasus-sub000/internal/tester"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "u1/Greeter", "greeter.jar")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetURL(ctx, "u1/Greeter", "greeter.jar")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "u1/Greeter", "greeter.jar", []byte("PK")))
	require.NoError(t, s.Put(ctx, "u1/Greeter", "greeter-old.jar", []byte("PK0")))
	require.NoError(t, s.Put(ctx, "u2/Other", "other.jar", []byte("x")))

	got, err := s.Get(ctx, "u1/Greeter", "greeter.jar")
	require.NoError(t, err)
	tester.Eq(t, string(got), "PK")

	names, err := s.List(ctx, "u1/Greeter")
	require.NoError(t, err)
	tester.Eq(t, names, []string{"greeter-old.jar", "greeter.jar"})

	u, err := s.GetURL(ctx, "u1/Greeter", "greeter.jar")
	require.NoError(t, err)
	tester.True(t, strings.HasSuffix(u, "u1/Greeter/greeter.jar"), u)

	require.Error(t, s.Put(ctx, "", "x.jar", nil))
	require.Error(t, s.Put(ctx, "k", " ", nil))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestLocalStore(t *testing.T) {
	s, err := NewLocalStore(filepath.Join(t.TempDir(), "artifacts"), "")
	require.NoError(t, err)
	exerciseStore(t, s)

	names, err := s.List(context.Background(), "nobody/none")
	require.NoError(t, err)
	tester.Eq(t, len(names), 0)
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "")
	require.NoError(t, err)
	require.Error(t, s.Put(context.Background(), "../escape", "x.jar", []byte("x")))
}

func TestLocalStoreBaseURL(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "https://cdn.example.com/jars")
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "u/p", "p.jar", []byte("x")))
	u, err := s.GetURL(ctx, "u/p", "p.jar")
	require.NoError(t, err)
	tester.Eq(t, u, "https://cdn.example.com/jars/u/p/p.jar")
}

func TestPublish(t *testing.T) {
	jar := filepath.Join(t.TempDir(), "demo-1.0.jar")
	require.NoError(t, os.WriteFile(jar, []byte("PK\x03\x04"), 0o644))
	s := NewMemoryStore()
	u, err := Publish(context.Background(), s, "u/p", jar)
	require.NoError(t, err)
	tester.Eq(t, u, "mem://u/p/demo-1.0.jar")

	_, err = Publish(context.Background(), s, "u/p", filepath.Join(t.TempDir(), "missing.jar"))
	require.Error(t, err)
}

func TestNewS3StoreValidatesConfig(t *testing.T) {
	_, err := NewS3Store(S3Config{})
	require.Error(t, err)
	_, err = NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	require.Error(t, err)
	s, err := NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "jars"})
	require.NoError(t, err)
	u, err := s.GetURL(context.Background(), "u/p", "p.jar")
	require.NoError(t, err)
	tester.Contains(t, u, "/jars/u/p/p.jar", u)
}
