package types

import (
	"path"
	"strings"
)

// DefaultTargetVersion is the server API version assumed when the model omits one.
const DefaultTargetVersion = "1.20.4"

// Project is a generated source tree plus its build metadata.
type Project struct {
	Name              string   `json:"name" validate:"required"`
	TargetVersion     string   `json:"targetVersion" validate:"required"`
	Files             []File   `json:"files" validate:"required,min=1,dive"`
	Dependencies      []string `json:"dependencies"`
	BuildInstructions string   `json:"buildInstructions"`
}

type File struct {
	Path    string `json:"path" validate:"required,safepath"`
	Content string `json:"content" validate:"required"`
	Type    string `json:"type" validate:"required"`
}

// FileByPath returns the file stored at rel, if any.
func (p Project) FileByPath(rel string) (File, bool) {
	for _, f := range p.Files {
		if f.Path == rel {
			return f, true
		}
	}
	return File{}, false
}

// Paths lists file paths in project order.
func (p Project) Paths() []string {
	out := make([]string, 0, len(p.Files))
	for _, f := range p.Files {
		out = append(out, f.Path)
	}
	return out
}

// TypeForPath derives the default file type from the path extension ("java", "yml").
// Paths without an extension fall back to "text".
func TypeForPath(p string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(p)), ".")
	if ext == "" {
		return "text"
	}
	return ext
}

// NormalizeNewlines converts CRLF and lone CR line endings to LF.
func NormalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
