package builder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ashiqtasdid/pegasus-sub000/internal/types"
)

const (
	DefaultTimeout  = 120 * time.Second
	DefaultManifest = "pom.xml"
	maxErrorLines   = 80
	tailLines       = 40
)

var (
	ErrProjectMissing  = errors.New("builder: project directory does not exist")
	ErrManifestMissing = errors.New("builder: build manifest not found")
)

// DefaultCommand is the Maven invocation used when none is configured.
var DefaultCommand = []string{"mvn", "-B", "-q", "clean", "package", "-DskipTests"}

// Runner compiles a project tree. Build failures are reported in the result;
// the error is non-nil only for missing preconditions (wrapping
// ErrProjectMissing or ErrManifestMissing) or a cancelled ctx.
type Runner interface {
	Build(ctx context.Context, root string) (types.CompilationResult, error)
}

type Config struct {
	Command  []string
	Timeout  time.Duration
	Manifest string
	Env      []string
}

// ParseCommand splits a BUILD_COMMAND style string into argv.
func ParseCommand(s string) []string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return append([]string(nil), DefaultCommand...)
	}
	return fields
}

// MavenRunner shells out to the build tool inside the project root.
type MavenRunner struct {
	cfg    Config
	logger *slog.Logger
}

func NewMavenRunner(cfg Config, logger *slog.Logger) *MavenRunner {
	if len(cfg.Command) == 0 {
		cfg.Command = append([]string(nil), DefaultCommand...)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Manifest == "" {
		cfg.Manifest = DefaultManifest
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MavenRunner{cfg: cfg, logger: logger}
}

func (r *MavenRunner) Build(ctx context.Context, root string) (types.CompilationResult, error) {
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		msg := fmt.Sprintf("project directory %s does not exist", root)
		return types.CompilationResult{Failure: types.FailureProjectMissing, Errors: msg}, fmt.Errorf("%w: %s", ErrProjectMissing, root)
	}
	if _, err := os.Stat(filepath.Join(root, r.cfg.Manifest)); err != nil {
		msg := fmt.Sprintf("%s not found in %s", r.cfg.Manifest, root)
		return types.CompilationResult{Failure: types.FailureManifestMissing, Errors: msg}, fmt.Errorf("%w: %s", ErrManifestMissing, msg)
	}

	start := time.Now()
	bctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(bctx, r.cfg.Command[0], r.cfg.Command[1:]...)
	cmd.Dir = root
	cmd.Env = append(os.Environ(), r.cfg.Env...)
	cmd.WaitDelay = 5 * time.Second

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	runErr := cmd.Run()
	elapsed := time.Since(start)
	out := buf.String()
	res := types.CompilationResult{BuildOutput: out}

	switch {
	case ctx.Err() != nil:
		buildDuration.WithLabelValues("cancelled").Observe(elapsed.Seconds())
		return res, ctx.Err()
	case errors.Is(bctx.Err(), context.DeadlineExceeded):
		res.Failure = types.FailureTimeout
		res.Errors = fmt.Sprintf("build timed out after %s\n%s", r.cfg.Timeout, tail(out, tailLines))
	case runErr != nil:
		res.Failure = types.FailureToolFailed
		if errors.Is(runErr, exec.ErrNotFound) {
			res.Errors = fmt.Sprintf("build tool %q not found: %v", r.cfg.Command[0], runErr)
		} else {
			res.Errors = ExtractErrors(out)
			if res.Errors == "" {
				res.Errors = runErr.Error()
			}
		}
	default:
		jar, ok := FindArtifact(root)
		if !ok {
			res.Failure = types.FailureNoArtifact
			res.Errors = "build succeeded but no jar was produced under target/"
		} else {
			res.Success = true
			res.ArtifactPath = jar
		}
	}

	outcome := "success"
	if !res.Success {
		outcome = string(res.Failure)
	}
	buildDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	r.logger.InfoContext(ctx, "build finished",
		"root", root,
		"success", res.Success,
		"failure", res.Failure,
		"duration", elapsed.Round(time.Millisecond),
	)
	return res, nil
}

// ExtractErrors keeps the [ERROR] lines of a Maven log. When there are none
// the tail of the log is returned instead.
func ExtractErrors(out string) string {
	var lines []string
	for _, l := range strings.Split(out, "\n") {
		if strings.Contains(l, "[ERROR]") {
			lines = append(lines, strings.TrimRight(l, "\r"))
			if len(lines) == maxErrorLines {
				break
			}
		}
	}
	if len(lines) > 0 {
		return strings.Join(lines, "\n")
	}
	return tail(out, tailLines)
}

func tail(s string, n int) string {
	s = strings.TrimRight(s, "\n")
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// FindArtifact returns the newest plugin jar in target/, ignoring shaded
// originals and source/javadoc/test jars.
func FindArtifact(root string) (string, bool) {
	matches, _ := filepath.Glob(filepath.Join(root, "target", "*.jar"))
	type cand struct {
		path string
		mod  time.Time
	}
	var cands []cand
	for _, m := range matches {
		base := filepath.Base(m)
		if strings.HasPrefix(base, "original-") ||
			strings.HasSuffix(base, "-sources.jar") ||
			strings.HasSuffix(base, "-javadoc.jar") ||
			strings.HasSuffix(base, "-tests.jar") {
			continue
		}
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		cands = append(cands, cand{m, info.ModTime()})
	}
	if len(cands) == 0 {
		return "", false
	}
	sort.Slice(cands, func(i, j int) bool {
		if !cands[i].mod.Equal(cands[j].mod) {
			return cands[i].mod.After(cands[j].mod)
		}
		return cands[i].path < cands[j].path
	})
	return cands[0].path, true
}
