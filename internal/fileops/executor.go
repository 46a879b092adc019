package fileops

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/ashiqtasdid/pegasus-sub000/internal/safeio"
	"github.com/ashiqtasdid/pegasus-sub000/internal/types"
)

// Result is the outcome of one operation in a batch.
type Result struct {
	Operation types.FileOperation `json:"operation"`
	Success   bool                `json:"success"`
	Error     string              `json:"error,omitempty"`
}

// Summary aggregates a batch for audit records.
type Summary struct {
	Applied int                         `json:"applied"`
	Failed  int                         `json:"failed"`
	ByKind  map[types.OperationKind]int `json:"byKind,omitempty"`
}

func Summarize(results []Result) Summary {
	s := Summary{ByKind: map[types.OperationKind]int{}}
	for _, r := range results {
		if r.Success {
			s.Applied++
			s.ByKind[r.Operation.Kind]++
		} else {
			s.Failed++
		}
	}
	return s
}

// Executor applies file operations to a project tree.
type Executor struct {
	logger *slog.Logger
	perm   fs.FileMode
}

func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{logger: logger, perm: 0o644}
}

// Apply runs ops against root in order and returns one result per operation.
// A failing operation never stops the batch. The returned error is reserved
// for a root that cannot be opened at all.
func (e *Executor) Apply(ctx context.Context, root string, ops []types.FileOperation) ([]Result, error) {
	sfs, err := safeio.NewSafeFS(root)
	if err != nil {
		return nil, fmt.Errorf("open project root: %w", err)
	}
	results := make([]Result, 0, len(ops))
	for _, op := range ops {
		err := e.applyOne(sfs, op)
		r := Result{Operation: op, Success: err == nil}
		outcome := "ok"
		if err != nil {
			r.Error = err.Error()
			outcome = "failed"
			e.logger.WarnContext(ctx, "file operation failed", "op", op.Kind, "path", op.Target(), "err", err)
		} else {
			e.logger.DebugContext(ctx, "file operation applied", "op", op.Kind, "path", op.Target(), "reason", op.Reason)
		}
		fileOperationsTotal.WithLabelValues(string(op.Kind), outcome).Inc()
		results = append(results, r)
	}
	return results, nil
}

func (e *Executor) applyOne(sfs *safeio.SafeFS, op types.FileOperation) error {
	if problems := op.Problems(); len(problems) > 0 {
		return fmt.Errorf("invalid operation: %s", strings.Join(problems, "; "))
	}
	switch op.Kind {
	case types.OpCreate, types.OpUpdate:
		return sfs.SafeWriteFileAtomic(op.Path, []byte(op.ContentOrEmpty()), e.perm)
	case types.OpDelete:
		err := sfs.SafeRemove(op.Path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	case types.OpRename:
		err := sfs.SafeRename(op.OldPath, op.NewPath)
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("rename source %s does not exist", op.OldPath)
		}
		return err
	}
	return fmt.Errorf("unsupported kind %q", op.Kind)
}
