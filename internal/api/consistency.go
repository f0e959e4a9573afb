package api

import (
	"encoding/json"
	"net/http"

	"crossview/pkg/consistency"
	"crossview/pkg/engine"
)

func (s *Server) handleMonitorStart(w http.ResponseWriter, r *http.Request) {
	var views []consistency.ViewDecl
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&views); err != nil {
			writeError(w, 400, "invalid JSON: "+err.Error())
			return
		}
	}
	if len(views) == 0 {
		views = engine.DefaultViews()
	}
	s.engine.StartMonitoring(views)
	writeJSON(w, 200, map[string]any{"monitoring": true, "views": len(views)})
}

func (s *Server) handleMonitorStop(w http.ResponseWriter, r *http.Request) {
	s.engine.StopMonitoring()
	writeJSON(w, 200, map[string]any{"monitoring": false})
}

func (s *Server) handleMismatches(w http.ResponseWriter, r *http.Request) {
	severity := r.URL.Query().Get("severity")
	limit := queryInt(r, "limit", 50)
	mismatches := s.engine.Mismatches(severity, limit)
	if mismatches == nil {
		mismatches = []consistency.Mismatch{}
	}
	writeJSON(w, 200, mismatches)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, s.engine.Summary())
}
