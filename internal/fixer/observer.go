package fixer

import (
	"context"
	"time"
)

// Event is what observers receive for every state change of a session.
type Event struct {
	SessionID  string     `json:"sessionId"`
	ProjectKey string     `json:"projectKey"`
	Transition Transition `json:"transition"`
}

// Observer is notified synchronously on every transition. Implementations
// must not block for long; the session waits for them.
type Observer interface {
	OnTransition(ctx context.Context, ev Event)
}

type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) OnTransition(ctx context.Context, ev Event) { f(ctx, ev) }

// AuditRecord is written after every applied patch.
type AuditRecord struct {
	SessionID         string    `json:"sessionId"`
	ProjectKey        string    `json:"projectKey"`
	Iteration         int       `json:"iteration"`
	FixDescription    string    `json:"fixDescription"`
	OperationsApplied int       `json:"operationsApplied"`
	OperationsFailed  int       `json:"operationsFailed"`
	At                time.Time `json:"at"`
}

// Auditor persists audit records. A failing auditor is logged and ignored.
type Auditor interface {
	RecordFix(ctx context.Context, rec AuditRecord) error
}
