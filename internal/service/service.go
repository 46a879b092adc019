// Package service wires generation, the fix loop, persistence and artifact
// publishing behind one request/response API shared by the CLI and HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/ashiqtasdid/pegasus-sub000/internal/builder"
	"github.com/ashiqtasdid/pegasus-sub000/internal/fixer"
	"github.com/ashiqtasdid/pegasus-sub000/internal/generator"
	llmclient "github.com/ashiqtasdid/pegasus-sub000/internal/llm/client"
	"github.com/ashiqtasdid/pegasus-sub000/internal/repository/artifact"
	projectrepo "github.com/ashiqtasdid/pegasus-sub000/internal/repository/project"
	"github.com/ashiqtasdid/pegasus-sub000/internal/session"
	"github.com/ashiqtasdid/pegasus-sub000/internal/structured"
	"github.com/ashiqtasdid/pegasus-sub000/internal/types"
	"github.com/ashiqtasdid/pegasus-sub000/internal/workspace"
)

var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrProjectNotFound  = errors.New("project not found")
	ErrArtifactNotFound = artifact.ErrNotFound
)

// ArtifactInfo names a published jar and where it can be fetched.
type ArtifactInfo struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// Response summarizes one generate or fix request.
type Response struct {
	SessionID            string                     `json:"sessionId"`
	Success              bool                       `json:"success"`
	Iterations           int                        `json:"iterations"`
	MaxIterationsReached bool                       `json:"maxIterationsReached"`
	State                fixer.State                `json:"state"`
	Message              string                     `json:"message"`
	ArtifactPath         string                     `json:"artifactPath,omitempty"`
	ArtifactURL          string                     `json:"artifactURL,omitempty"`
	ProjectRoot          string                     `json:"projectRoot"`
	FirstErrors          string                     `json:"firstErrors,omitempty"`
	Generation           *structured.ProjectOutcome `json:"generation,omitempty"`
	Usage                llmclient.Usage            `json:"usage"`
	LastResult           types.CompilationResult    `json:"lastCompilationResult"`
}

type Deps struct {
	LLM          llmclient.LLMClient
	Builder      builder.Runner
	Projects     projectrepo.Store
	Artifacts    artifact.Store
	Guard        *session.Guard
	Hub          *Hub
	Logger       *slog.Logger
	ProjectsRoot string
	Fix          fixer.Config
	Generation   generator.Options
}

type Service struct {
	deps      Deps
	generator *generator.Generator
	fixer     *fixer.Orchestrator
	logger    *slog.Logger
}

func New(deps Deps) (*Service, error) {
	if deps.LLM == nil || deps.Builder == nil {
		return nil, errors.New("service: LLM and Builder are required")
	}
	if deps.ProjectsRoot == "" {
		return nil, errors.New("service: projects root is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Guard == nil {
		deps.Guard = session.NewGuard(0)
	}
	if deps.Hub == nil {
		deps.Hub = NewHub(0)
	}
	fd := fixer.Deps{
		Builder:   deps.Builder,
		LLM:       deps.LLM,
		Observers: []fixer.Observer{deps.Hub},
		Logger:    deps.Logger,
	}
	if deps.Projects != nil {
		fd.Auditor = deps.Projects
	}
	return &Service{
		deps:      deps,
		generator: generator.New(deps.LLM, deps.Generation, deps.Logger),
		fixer:     fixer.New(deps.Fix, fd),
		logger:    deps.Logger,
	}, nil
}

func (s *Service) Hub() *Hub { return s.deps.Hub }

// Generate creates the project from the model, then builds and heals it.
func (s *Service) Generate(ctx context.Context, req types.GenerationRequest) (Response, error) {
	req, root, err := s.prepare(req)
	if err != nil {
		return Response{}, err
	}
	unlock, err := s.deps.Guard.TryLock(ctx, req.ProjectKey())
	if err != nil {
		return Response{}, err
	}
	defer unlock()

	gen, err := s.generator.GenerateTo(ctx, root, req)
	if err != nil {
		return Response{}, err
	}
	s.mirror(ctx, req.ProjectKey(), gen.Project)

	resp, err := s.runFix(ctx, req, root)
	resp.Generation = &gen.Outcome
	resp.Usage = resp.Usage.Add(gen.Usage)
	return resp, err
}

// Fix builds and heals an existing project tree.
func (s *Service) Fix(ctx context.Context, req types.GenerationRequest) (Response, error) {
	req, root, err := s.prepare(req)
	if err != nil {
		return Response{}, err
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return Response{}, fmt.Errorf("%w: %s", ErrProjectNotFound, req.ProjectKey())
	}
	unlock, err := s.deps.Guard.TryLock(ctx, req.ProjectKey())
	if err != nil {
		return Response{}, err
	}
	defer unlock()
	return s.runFix(ctx, req, root)
}

// Fixes lists the audit trail of a project.
func (s *Service) Fixes(ctx context.Context, userID, pluginName string) ([]fixer.AuditRecord, error) {
	req, err := types.GenerationRequest{UserID: userID, PluginName: pluginName}.Normalize()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if s.deps.Projects == nil {
		return nil, nil
	}
	return s.deps.Projects.ListFixes(ctx, req.ProjectKey())
}

// Artifacts lists the jars published for a project.
func (s *Service) Artifacts(ctx context.Context, userID, pluginName string) ([]ArtifactInfo, error) {
	req, err := types.GenerationRequest{UserID: userID, PluginName: pluginName}.Normalize()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if s.deps.Artifacts == nil {
		return nil, nil
	}
	names, err := s.deps.Artifacts.List(ctx, req.ProjectKey())
	if err != nil {
		return nil, err
	}
	out := make([]ArtifactInfo, 0, len(names))
	for _, name := range names {
		info := ArtifactInfo{Name: name}
		if u, err := s.deps.Artifacts.GetURL(ctx, req.ProjectKey(), name); err == nil {
			info.URL = u
		}
		out = append(out, info)
	}
	return out, nil
}

// ReadArtifact returns the bytes of one published jar.
func (s *Service) ReadArtifact(ctx context.Context, userID, pluginName, name string) ([]byte, error) {
	req, err := types.GenerationRequest{UserID: userID, PluginName: pluginName}.Normalize()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if strings.Contains(name, "/") || types.CheckRelPath(name) != nil {
		return nil, fmt.Errorf("%w: artifact name %q", ErrInvalidRequest, name)
	}
	if s.deps.Artifacts == nil {
		return nil, ErrArtifactNotFound
	}
	return s.deps.Artifacts.Get(ctx, req.ProjectKey(), name)
}

func (s *Service) prepare(req types.GenerationRequest) (types.GenerationRequest, string, error) {
	req, err := req.Normalize()
	if err != nil {
		return req, "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	root, err := workspace.Root(s.deps.ProjectsRoot, req.UserID, req.PluginName)
	if err != nil {
		return req, "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return req, root, nil
}

func (s *Service) runFix(ctx context.Context, req types.GenerationRequest, root string) (Response, error) {
	sess := fixer.Session{
		ID:            uuid.NewString(),
		ProjectKey:    req.ProjectKey(),
		Root:          root,
		MaxIterations: req.MaxIterations,
	}
	out, err := s.fixer.Run(ctx, sess)
	resp := Response{
		SessionID:            out.SessionID,
		Success:              out.Success,
		Iterations:           out.Iterations,
		MaxIterationsReached: out.MaxIterationsReached,
		State:                out.State,
		Message:              out.Message,
		ArtifactPath:         out.ArtifactPath,
		ProjectRoot:          root,
		FirstErrors:          out.FirstErrors,
		LastResult:           out.LastResult,
		Usage:                out.Usage,
	}
	if err != nil {
		return resp, err
	}

	if p, _, rerr := workspace.ReadProject(root); rerr == nil {
		s.mirror(ctx, req.ProjectKey(), p)
	}
	if out.Success && out.ArtifactPath != "" && s.deps.Artifacts != nil {
		u, perr := artifact.Publish(ctx, s.deps.Artifacts, req.ProjectKey(), out.ArtifactPath)
		if perr != nil {
			s.logger.WarnContext(ctx, "artifact not published", "project", req.ProjectKey(), "err", perr)
		} else {
			resp.ArtifactURL = u
		}
	}
	return resp, nil
}

func (s *Service) mirror(ctx context.Context, key string, p types.Project) {
	if s.deps.Projects == nil {
		return
	}
	if err := s.deps.Projects.SaveProject(ctx, key, p); err != nil {
		s.logger.WarnContext(ctx, "project mirror failed", "project", key, "err", err)
	}
}
