// Package api exposes the consistency engine over a JSON HTTP API for
// host and UI use.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"crossview/pkg/engine"
)

// Server is the HTTP API server.
type Server struct {
	engine *engine.Engine
	mux    *http.ServeMux
}

// New creates a new Server.
func New(eng *engine.Engine) *Server {
	s := &Server{
		engine: eng,
		mux:    http.NewServeMux(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	// Tasks
	s.mux.HandleFunc("GET /api/tasks", s.handleTaskList)
	s.mux.HandleFunc("POST /api/tasks", s.handleTaskCreate)
	s.mux.HandleFunc("POST /api/tasks/batch", s.handleTaskBatchCreate)
	s.mux.HandleFunc("POST /api/tasks/batch-delete", s.handleTaskBatchDelete)
	s.mux.HandleFunc("GET /api/tasks/{id}", s.handleTaskGet)
	s.mux.HandleFunc("PATCH /api/tasks/{id}", s.handleTaskUpdate)
	s.mux.HandleFunc("DELETE /api/tasks/{id}", s.handleTaskDelete)

	// Filtering
	s.mux.HandleFunc("POST /api/filter", s.handleFilter)

	// Consistency
	s.mux.HandleFunc("POST /api/consistency/start", s.handleMonitorStart)
	s.mux.HandleFunc("POST /api/consistency/stop", s.handleMonitorStop)
	s.mux.HandleFunc("GET /api/consistency/mismatches", s.handleMismatches)
	s.mux.HandleFunc("GET /api/consistency/summary", s.handleSummary)

	// History
	s.mux.HandleFunc("GET /api/history", s.handleHistoryList)
	s.mux.HandleFunc("POST /api/history/commit", s.handleHistoryCommit)
	s.mux.HandleFunc("POST /api/history/undo", s.handleHistoryUndo)
	s.mux.HandleFunc("POST /api/history/redo", s.handleHistoryRedo)
	s.mux.HandleFunc("POST /api/history/checkpoint", s.handleCheckpointCreate)
	s.mux.HandleFunc("POST /api/history/checkpoint/{id}/restore", s.handleCheckpointRestore)
	s.mux.HandleFunc("POST /api/history/clear", s.handleHistoryClear)

	// System
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	count, err := s.engine.Store().Count(r.Context())
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]any{
		"tasks":      count,
		"monitoring": s.engine.Monitor().Running(),
		"summary":    s.engine.Summary(),
		"can_undo":   s.engine.CanUndo(),
		"can_redo":   s.engine.CanRedo(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
