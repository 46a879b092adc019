package workspace

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"unicode/utf8"

	"github.com/ashiqtasdid/pegasus-sub000/internal/safeio"
	"github.com/ashiqtasdid/pegasus-sub000/internal/types"
)

// MaxFileBytes bounds the size of a file read back into a Project.
const MaxFileBytes = 512 << 10

var ErrNoProject = errors.New("workspace: project directory does not exist")

// build outputs, VCS and IDE state never belong to the project snapshot
var skipDirs = map[string]bool{
	".git": true, ".hg": true, ".svn": true, "node_modules": true,
	"target": true, "build": true, ".gradle": true, ".idea": true, ".vscode": true,
}

var paperVersionRe = regexp.MustCompile(`(?s)<artifactId>(?:paper|spigot|bukkit)-api</artifactId>\s*<version>([0-9][0-9.]*)`)

// Root returns <base>/<userID>/<pluginName> after checking both segments.
func Root(base, userID, pluginName string) (string, error) {
	req, err := types.GenerationRequest{UserID: userID, PluginName: pluginName}.Normalize()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, req.UserID, req.PluginName), nil
}

// Skipped describes a file left out of a snapshot.
type Skipped struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// ReadProject loads the text files under root into a Project. Build output,
// VCS directories, binaries and files over MaxFileBytes are skipped.
func ReadProject(root string) (types.Project, []Skipped, error) {
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return types.Project{}, nil, fmt.Errorf("%w: %s", ErrNoProject, root)
	}
	sfs, err := safeio.NewSafeFS(root)
	if err != nil {
		return types.Project{}, nil, err
	}

	p := types.Project{Name: filepath.Base(sfs.Root()), TargetVersion: types.DefaultTargetVersion}
	var skipped []Skipped
	err = fs.WalkDir(sfs, ".", func(rel string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if rel != "." && skipDirs[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			skipped = append(skipped, Skipped{rel, "not a regular file"})
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() > MaxFileBytes {
			skipped = append(skipped, Skipped{rel, "too large"})
			return nil
		}
		b, err := fs.ReadFile(sfs, rel)
		if err != nil {
			return err
		}
		if isBinary(b) {
			skipped = append(skipped, Skipped{rel, "binary"})
			return nil
		}
		p.Files = append(p.Files, types.File{
			Path:    rel,
			Content: types.NormalizeNewlines(string(b)),
			Type:    types.TypeForPath(rel),
		})
		return nil
	})
	if err != nil {
		return types.Project{}, nil, err
	}
	sort.Slice(p.Files, func(i, j int) bool { return p.Files[i].Path < p.Files[j].Path })
	if pom, ok := p.FileByPath("pom.xml"); ok {
		if m := paperVersionRe.FindStringSubmatch(pom.Content); m != nil {
			p.TargetVersion = trimVersion(m[1])
		}
	}
	return p, skipped, nil
}

// WriteProject writes every file of p under root, leaving other files alone.
func WriteProject(root string, p types.Project) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}
	sfs, err := safeio.NewSafeFS(root)
	if err != nil {
		return err
	}
	for _, f := range p.Files {
		if err := types.CheckRelPath(f.Path); err != nil {
			return fmt.Errorf("write %q: %w", f.Path, err)
		}
		if err := sfs.SafeWriteFileAtomic(f.Path, []byte(f.Content), 0o644); err != nil {
			return fmt.Errorf("write %q: %w", f.Path, err)
		}
	}
	return nil
}

// ReplaceProject removes whatever is under root and writes p in its place.
func ReplaceProject(root string, p types.Project) error {
	if root == "" || filepath.Clean(root) == string(filepath.Separator) {
		return fmt.Errorf("workspace: refusing to replace %q", root)
	}
	if err := os.RemoveAll(root); err != nil {
		return err
	}
	return WriteProject(root, p)
}

func isBinary(b []byte) bool {
	head := b
	if len(head) > 8000 {
		head = head[:8000]
	}
	return bytes.IndexByte(head, 0) >= 0 || !utf8.Valid(b)
}

func trimVersion(v string) string {
	for len(v) > 0 && v[len(v)-1] == '.' {
		v = v[:len(v)-1]
	}
	if v == "" {
		return types.DefaultTargetVersion
	}
	return v
}
