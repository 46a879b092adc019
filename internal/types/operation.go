package types

import "strings"

type OperationKind string

const (
	OpCreate OperationKind = "create"
	OpUpdate OperationKind = "update"
	OpDelete OperationKind = "delete"
	OpRename OperationKind = "rename"
)

// ParseOperationKind maps a model-supplied kind (any casing) to a known kind.
func ParseOperationKind(s string) (OperationKind, bool) {
	switch OperationKind(strings.ToLower(strings.TrimSpace(s))) {
	case OpCreate:
		return OpCreate, true
	case OpUpdate:
		return OpUpdate, true
	case OpDelete:
		return OpDelete, true
	case OpRename:
		return OpRename, true
	}
	return "", false
}

// FileOperation is one typed mutation of a project tree.
type FileOperation struct {
	Kind    OperationKind `json:"kind"`
	Path    string        `json:"path,omitempty"`
	OldPath string        `json:"oldPath,omitempty"`
	NewPath string        `json:"newPath,omitempty"`
	Content *string       `json:"content,omitempty"`
	Reason  string        `json:"reason"`
}

// Target returns the path the operation ends up writing or removing.
func (op FileOperation) Target() string {
	if op.Kind == OpRename {
		return op.NewPath
	}
	return op.Path
}

// ContentOrEmpty dereferences Content.
func (op FileOperation) ContentOrEmpty() string {
	if op.Content == nil {
		return ""
	}
	return *op.Content
}

// Problems lists the structural violations of op. It mirrors the per-kind
// field requirements; an empty result means the operation is well formed.
func (op FileOperation) Problems() []string {
	var out []string
	if strings.TrimSpace(op.Reason) == "" {
		out = append(out, "reason is required")
	}
	checkPath := func(field, p string) {
		if err := CheckRelPath(p); err != nil {
			out = append(out, field+": "+err.Error())
		}
	}
	switch op.Kind {
	case OpCreate, OpUpdate:
		checkPath("path", op.Path)
		if op.Content == nil {
			out = append(out, "content is required for "+string(op.Kind))
		}
	case OpDelete:
		checkPath("path", op.Path)
	case OpRename:
		checkPath("oldPath", op.OldPath)
		checkPath("newPath", op.NewPath)
	default:
		out = append(out, "unknown kind "+string(op.Kind))
	}
	return out
}

// Patch is a model-proposed set of operations for one fix iteration.
type Patch struct {
	Description     string          `json:"description"`
	Operations      []FileOperation `json:"operations" validate:"dive"`
	BuildCommands   []string        `json:"buildCommands"`
	ExpectedOutcome string          `json:"expectedOutcome"`
}

// StrPtr is a small helper for building operations literally.
func StrPtr(s string) *string { return &s }
