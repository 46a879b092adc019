package structured

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/ashiqtasdid/pegasus-sub000/internal/types"
)

// SanitizeReport records what SanitizeProject changed.
type SanitizeReport struct {
	Defaulted    []string `json:"defaulted,omitempty"`
	DroppedFiles []string `json:"droppedFiles,omitempty"`
	Duplicates   int      `json:"duplicates,omitempty"`
	UsedFallback bool     `json:"usedFallback"`
}

// SanitizeProject turns a partially usable candidate into a Project. It always
// succeeds: unusable files are dropped one by one and when none survive the
// fallback skeleton for req is returned instead.
func SanitizeProject(c Candidate, req types.GenerationRequest) (types.Project, SanitizeReport) {
	var rep SanitizeReport
	p := types.Project{
		Name:              scalar(c["name"]),
		TargetVersion:     scalar(c["targetVersion"]),
		Dependencies:      stringList(c["dependencies"]),
		BuildInstructions: types.NormalizeNewlines(scalar(c["buildInstructions"])),
	}
	if p.Name == "" {
		p.Name = defaultName(req)
		rep.Defaulted = append(rep.Defaulted, "name")
	}
	if p.TargetVersion == "" {
		p.TargetVersion = defaultVersion(req)
		rep.Defaulted = append(rep.Defaulted, "targetVersion")
	}

	index := map[string]int{}
	for i, raw := range fileEntries(c["files"]) {
		f, ok := sanitizeFile(raw)
		if !ok {
			rep.DroppedFiles = append(rep.DroppedFiles, droppedLabel(raw, i))
			continue
		}
		if at, seen := index[f.Path]; seen {
			p.Files[at] = f
			rep.Duplicates++
			continue
		}
		index[f.Path] = len(p.Files)
		p.Files = append(p.Files, f)
	}

	if len(p.Files) == 0 {
		sanitizeFallbackTotal.Inc()
		rep.UsedFallback = true
		return Fallback(req), rep
	}
	return p, rep
}

// fileEntries accepts the usual array of file objects and, leniently, an
// object mapping path to content.
func fileEntries(v any) []map[string]any {
	switch x := v.(type) {
	case []any:
		out := make([]map[string]any, 0, len(x))
		for _, item := range x {
			m, _ := item.(map[string]any)
			out = append(out, m)
		}
		return out
	case map[string]any:
		keys := slices.Sorted(maps.Keys(x))
		out := make([]map[string]any, 0, len(keys))
		for _, k := range keys {
			out = append(out, map[string]any{"path": k, "content": x[k]})
		}
		return out
	}
	return nil
}

func sanitizeFile(m map[string]any) (types.File, bool) {
	if m == nil {
		return types.File{}, false
	}
	path := cleanPath(firstString(m, "path", "filePath", "filename"))
	if types.CheckRelPath(path) != nil {
		return types.File{}, false
	}
	content, ok := m["content"].(string)
	if !ok || strings.TrimSpace(content) == "" {
		return types.File{}, false
	}
	typ := strings.TrimSpace(firstString(m, "type"))
	if typ == "" {
		typ = types.TypeForPath(path)
	}
	return types.File{Path: path, Content: types.NormalizeNewlines(content), Type: typ}, true
}

func droppedLabel(m map[string]any, i int) string {
	if p := firstString(m, "path", "filePath", "filename"); p != "" {
		return p
	}
	return fmt.Sprintf("files[%d]", i)
}

// PatchReport lists the operations SanitizePatch discarded.
type PatchReport struct {
	Dropped []Violation `json:"dropped,omitempty"`
}

// SanitizePatch keeps every individually valid operation and drops the rest.
// The kind is read from kind, type or action in any casing.
func SanitizePatch(c Candidate) (types.Patch, PatchReport) {
	var rep PatchReport
	p := types.Patch{
		Description:     scalar(c["description"]),
		BuildCommands:   stringList(c["buildCommands"]),
		ExpectedOutcome: scalar(c["expectedOutcome"]),
	}
	ops, _ := c["operations"].([]any)
	for i, item := range ops {
		field := fmt.Sprintf("operations[%d]", i)
		m, ok := item.(map[string]any)
		if !ok {
			rep.Dropped = append(rep.Dropped, Violation{Field: field, Message: "not an object"})
			continue
		}
		op, problems := sanitizeOperation(m)
		if len(problems) > 0 {
			rep.Dropped = append(rep.Dropped, Violation{Field: field, Message: strings.Join(problems, "; ")})
			continue
		}
		p.Operations = append(p.Operations, op)
	}
	return p, rep
}

func sanitizeOperation(m map[string]any) (types.FileOperation, []string) {
	rawKind := firstString(m, "kind", "type", "action")
	kind, ok := types.ParseOperationKind(rawKind)
	if !ok {
		return types.FileOperation{}, []string{fmt.Sprintf("unknown kind %q", rawKind)}
	}
	op := types.FileOperation{
		Kind:    kind,
		Path:    cleanPath(firstString(m, "path", "filePath")),
		OldPath: cleanPath(firstString(m, "oldPath", "from")),
		NewPath: cleanPath(firstString(m, "newPath", "to")),
		Reason:  strings.TrimSpace(firstString(m, "reason")),
	}
	if s, ok := m["content"].(string); ok {
		s = types.NormalizeNewlines(s)
		op.Content = &s
	}
	return op, op.Problems()
}

func defaultName(req types.GenerationRequest) string {
	if n := strings.TrimSpace(req.PluginName); n != "" {
		return n
	}
	return fallbackClassName
}

// defaultVersion is the request's version when it is well formed. It ends up
// inside pom.xml, so anything else is replaced.
func defaultVersion(req types.GenerationRequest) string {
	if v := strings.TrimSpace(req.TargetVersion); types.IsTargetVersion(v) {
		return v
	}
	return types.DefaultTargetVersion
}

func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return p
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// scalar renders strings and numbers as text; anything else is empty.
func scalar(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return ""
}

func stringList(v any) []string {
	switch x := v.(type) {
	case string:
		if s := strings.TrimSpace(x); s != "" {
			return []string{s}
		}
	case []any:
		var out []string
		for _, item := range x {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	}
	return nil
}
