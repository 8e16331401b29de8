package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/duskstore/filetracker/internal/engine"
	"github.com/duskstore/filetracker/internal/middleware"
)

// Handler holds shared dependencies for all HTTP handlers.
type Handler struct {
	engine  engine.Engine
	logger  *zap.Logger
	metrics *Metrics
}

// New registers all routes and returns the root http.Handler. Uses Go 1.22
// method+path pattern syntax — no external router needed.
//
// Middleware stack (outer → inner):
//
//	RequestLog → ServeMux → OpLimiter → handler
func New(eng engine.Engine, logger *zap.Logger, maxConcurrentOps int) http.Handler {
	h := &Handler{
		engine:  eng,
		logger:  logger,
		metrics: &Metrics{},
	}

	logMW := middleware.RequestLog(logger)
	limiter := middleware.NewOpLimiter(maxConcurrentOps)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /version", getVersion)
	mux.HandleFunc("GET /version/", getVersion)

	mux.Handle("GET /files/{path...}", limiter.Limit(http.HandlerFunc(h.GetFile)))
	mux.Handle("HEAD /files/{path...}", limiter.Limit(http.HandlerFunc(h.HeadFile)))
	mux.Handle("PUT /files/{path...}", limiter.Limit(http.HandlerFunc(h.PutFile)))
	mux.Handle("DELETE /files/{path...}", limiter.Limit(http.HandlerFunc(h.DeleteFile)))

	mux.HandleFunc("GET /list", h.ListFiles)
	mux.HandleFunc("GET /list/{$}", h.ListFiles)
	mux.HandleFunc("GET /list/{prefix...}", h.ListFiles)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /metrics", h.metrics.metricsHandler(limiter.Active))

	// Wrap the entire mux with request logging so every route — including
	// 400s, 404s and 503s from the limiter — gets an access log entry.
	return logMW(mux)
}

// getVersion reports the protocol versions this server understands, for
// filetracker-client compatibility; the trailing-slash alias exists because
// some client versions always append one.
func getVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"protocol_versions": []int{2}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
