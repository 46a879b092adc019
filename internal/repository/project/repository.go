// Package project mirrors generated projects and their fix history outside
// the project tree.
package project

import (
	"context"
	"errors"
	"time"

	"github.com/ashiqtasdid/pegasus-sub000/internal/fixer"
	"github.com/ashiqtasdid/pegasus-sub000/internal/types"
)

var ErrNotFound = errors.New("project not found")

// Store persists project snapshots keyed by "<userId>/<pluginName>" and the
// audit trail of applied fixes. Every Store is a fixer.Auditor.
type Store interface {
	SaveProject(ctx context.Context, key string, p types.Project) error
	GetProject(ctx context.Context, key string) (types.Project, error)
	RecordFix(ctx context.Context, rec fixer.AuditRecord) error
	ListFixes(ctx context.Context, key string) ([]fixer.AuditRecord, error)
	Close() error
}

// Snapshot is the stored form of a project.
type Snapshot struct {
	Key       string        `json:"key"`
	Project   types.Project `json:"project"`
	UpdatedAt time.Time     `json:"updated_at"`
}

var _ fixer.Auditor = Store(nil)
