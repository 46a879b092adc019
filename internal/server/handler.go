package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ashiqtasdid/pegasus-sub000/internal/fixer"
	"github.com/ashiqtasdid/pegasus-sub000/internal/service"
	"github.com/ashiqtasdid/pegasus-sub000/internal/session"
	"github.com/ashiqtasdid/pegasus-sub000/internal/types"
)

const maxRequestBytes = 1 << 20

// PluginService is what the HTTP layer needs from the application service.
type PluginService interface {
	Generate(ctx context.Context, req types.GenerationRequest) (service.Response, error)
	Fix(ctx context.Context, req types.GenerationRequest) (service.Response, error)
	Fixes(ctx context.Context, userID, pluginName string) ([]fixer.AuditRecord, error)
	Artifacts(ctx context.Context, userID, pluginName string) ([]service.ArtifactInfo, error)
	ReadArtifact(ctx context.Context, userID, pluginName, name string) ([]byte, error)
	Hub() *service.Hub
}

type Handler struct {
	svc            PluginService
	allowedOrigins []string
	logger         *slog.Logger
}

func NewHandler(svc PluginService, allowedOrigins []string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, allowedOrigins: allowedOrigins, logger: logger}
}

func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req types.GenerationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := h.svc.Generate(r.Context(), req)
	h.respond(w, r, resp, err)
}

func (h *Handler) HandleFix(w http.ResponseWriter, r *http.Request) {
	var in struct {
		MaxIterations int `json:"maxIterations,omitempty"`
	}
	if r.ContentLength != 0 && !decodeBody(w, r, &in) {
		return
	}
	req := types.GenerationRequest{
		UserID:        r.PathValue("userId"),
		PluginName:    r.PathValue("pluginName"),
		MaxIterations: in.MaxIterations,
	}
	resp, err := h.svc.Fix(r.Context(), req)
	h.respond(w, r, resp, err)
}

func (h *Handler) HandleFixes(w http.ResponseWriter, r *http.Request) {
	userID, plugin := r.PathValue("userId"), r.PathValue("pluginName")
	recs, err := h.svc.Fixes(r.Context(), userID, plugin)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []fixer.AuditRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"project": userID + "/" + plugin,
		"fixes":   recs,
	})
}

func (h *Handler) HandleArtifacts(w http.ResponseWriter, r *http.Request) {
	userID, plugin := r.PathValue("userId"), r.PathValue("pluginName")
	arts, err := h.svc.Artifacts(r.Context(), userID, plugin)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if arts == nil {
		arts = []service.ArtifactInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"project":   userID + "/" + plugin,
		"artifacts": arts,
	})
}

func (h *Handler) HandleArtifactDownload(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	data, err := h.svc.ReadArtifact(r.Context(), r.PathValue("userId"), r.PathValue("pluginName"), name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/java-archive")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, resp service.Response, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrProjectNotFound), errors.Is(err, service.ErrArtifactNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json body: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
