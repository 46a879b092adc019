package llmclient

import (
	"context"
	"sync"
)

// FakeClient replays scripted replies for offline runs and tests.
// Once the script is exhausted the last entry repeats; an empty script
// answers with an empty string.
type FakeClient struct {
	mu     sync.Mutex
	script []FakeReply
	calls  []Request
}

// FakeReply is one scripted answer. Err takes precedence over Text.
type FakeReply struct {
	Text string
	Err  error
}

func NewFakeClient(replies ...FakeReply) *FakeClient {
	return &FakeClient{script: replies}
}

// NewFakeText is shorthand for a script of successful text replies.
func NewFakeText(texts ...string) *FakeClient {
	replies := make([]FakeReply, len(texts))
	for i, t := range texts {
		replies[i] = FakeReply{Text: t}
	}
	return NewFakeClient(replies...)
}

func (f *FakeClient) Name() string { return "fake" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) Generate(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	f.mu.Lock()
	idx := len(f.calls)
	f.calls = append(f.calls, req)
	var reply FakeReply
	switch {
	case len(f.script) == 0:
	case idx < len(f.script):
		reply = f.script[idx]
	default:
		reply = f.script[len(f.script)-1]
	}
	f.mu.Unlock()

	if reply.Err != nil {
		return Response{}, reply.Err
	}
	return Response{Text: reply.Text, Model: "fake", Usage: EstimateUsage(req, reply.Text)}, nil
}

// Calls returns a copy of every request seen so far.
func (f *FakeClient) Calls() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Request, len(f.calls))
	copy(out, f.calls)
	return out
}
