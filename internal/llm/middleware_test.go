package llm

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	llmclient "github.com/ashiqtasdid/pegasus-sub000/internal/llm/client"
	"github.com/ashiqtasdid/pegasus-sub000/internal/tester"
)

type tagClient struct {
	tags *[]string
	tag  string
	next llmclient.LLMClient
}

func (c *tagClient) Name() string { return c.next.Name() }
func (c *tagClient) Close() error { return c.next.Close() }
func (c *tagClient) Generate(ctx context.Context, req llmclient.Request) (llmclient.Response, error) {
	*c.tags = append(*c.tags, c.tag)
	return c.next.Generate(ctx, req)
}

func tagMW(tags *[]string, tag string) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &tagClient{tags: tags, tag: tag, next: next}
	}
}

func TestWrapOrder(t *testing.T) {
	var tags []string
	cli := Wrap(llmclient.NewFakeText("ok"), tagMW(&tags, "A"), nil, tagMW(&tags, "B"))
	_, err := cli.Generate(context.Background(), llmclient.Request{})
	require.NoError(t, err)
	tester.Eq(t, tags, []string{"A", "B"})
}

func TestRetryRecoversTransientErrors(t *testing.T) {
	fake := llmclient.NewFakeClient(
		llmclient.FakeReply{Err: errors.New("503")},
		llmclient.FakeReply{Err: errors.New("503")},
		llmclient.FakeReply{Text: "done"},
	)
	cli := Wrap(fake, Retry(3, time.Millisecond))
	r, err := cli.Generate(context.Background(), llmclient.Request{})
	require.NoError(t, err)
	tester.Eq(t, r.Text, "done")
	tester.Eq(t, len(fake.Calls()), 3)
}

func TestRetryReturnsLastError(t *testing.T) {
	last := errors.New("still down")
	fake := llmclient.NewFakeClient(llmclient.FakeReply{Err: errors.New("down")}, llmclient.FakeReply{Err: last})
	cli := Wrap(fake, Retry(2, time.Millisecond))
	_, err := cli.Generate(context.Background(), llmclient.Request{})
	require.ErrorIs(t, err, last)
	tester.Eq(t, len(fake.Calls()), 2)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	fake := llmclient.NewFakeClient(llmclient.FakeReply{Err: llmclient.NewPermanentError(errors.New("401"))})
	cli := Wrap(fake, Retry(5, time.Millisecond))
	_, err := cli.Generate(context.Background(), llmclient.Request{})
	tester.True(t, llmclient.IsPermanent(err))
	tester.Eq(t, len(fake.Calls()), 1)
}

func TestRetryHonorsCancellation(t *testing.T) {
	fake := llmclient.NewFakeClient(llmclient.FakeReply{Err: errors.New("down")})
	cli := Wrap(fake, Retry(5, time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := cli.Generate(ctx, llmclient.Request{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRateLimitDisabledPassesThrough(t *testing.T) {
	fake := llmclient.NewFakeText("x")
	cli := Wrap(fake, RateLimit(0, 0))
	tester.True(t, cli == llmclient.LLMClient(fake))
}

func TestRateLimitWaitsRespectsContext(t *testing.T) {
	cli := Wrap(llmclient.NewFakeText("x"), RateLimit(0.001, 1))
	_, err := cli.Generate(context.Background(), llmclient.Request{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = cli.Generate(ctx, llmclient.Request{})
	require.Error(t, err)
}

func TestUsageLedgerConcurrent(t *testing.T) {
	ledger := NewUsageLedger()
	cli := Wrap(llmclient.NewFakeText("four words in reply"), WithUsage(ledger))

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = cli.Generate(context.Background(), llmclient.Request{UserPrompt: "two words"})
		}()
	}
	wg.Wait()

	snap := ledger.Snapshot()
	tester.Eq(t, snap.Requests, int64(10))
	tester.Eq(t, snap.Errors, int64(0))
	tester.Eq(t, snap.Total.PromptTokens, 20)
	tester.Eq(t, snap.Total.CompletionTokens, 40)
	tester.Eq(t, snap.Models["fake"].TotalTokens, 60)
}

func TestUsageLedgerCountsErrors(t *testing.T) {
	ledger := NewUsageLedger()
	cli := Wrap(llmclient.NewFakeClient(llmclient.FakeReply{Err: errors.New("x")}), WithUsage(ledger))
	_, _ = cli.Generate(context.Background(), llmclient.Request{})
	snap := ledger.Snapshot()
	tester.Eq(t, snap.Requests, int64(1))
	tester.Eq(t, snap.Errors, int64(1))
	tester.Eq(t, snap.Total.TotalTokens, 0)
}

func TestWithLoggingWritesRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cli := Wrap(llmclient.NewFakeClient(llmclient.FakeReply{Text: "ok"}, llmclient.FakeReply{Err: errors.New("nope")}), WithLogging(logger))

	_, err := cli.Generate(context.Background(), llmclient.Request{UserPrompt: "hi"})
	require.NoError(t, err)
	_, err = cli.Generate(context.Background(), llmclient.Request{UserPrompt: "hi"})
	require.Error(t, err)

	out := buf.String()
	tester.Contains(t, out, "llm request")
	tester.Contains(t, out, "llm response")
	tester.Contains(t, out, "llm error")
}
