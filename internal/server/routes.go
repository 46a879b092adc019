package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewMux(h *Handler, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/projects", h.HandleGenerate)
	mux.HandleFunc("POST /api/projects/{userId}/{pluginName}/fix", h.HandleFix)
	mux.HandleFunc("GET /api/projects/{userId}/{pluginName}/fixes", h.HandleFixes)
	mux.HandleFunc("GET /api/projects/{userId}/{pluginName}/artifacts", h.HandleArtifacts)
	mux.HandleFunc("GET /api/projects/{userId}/{pluginName}/artifacts/{name}", h.HandleArtifactDownload)
	mux.HandleFunc("GET /ws/sessions", h.HandleSessionsWS)

	mux.HandleFunc("GET /healthz", h.HandleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return CORS(allowedOrigins, mux)
}
