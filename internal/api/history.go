package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]any{
		"entries":     s.engine.History().Entries(),
		"checkpoints": s.engine.History().Checkpoints(),
		"can_undo":    s.engine.CanUndo(),
		"can_redo":    s.engine.CanRedo(),
	})
}

func (s *Server) handleHistoryCommit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string `json:"description"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, 400, "invalid JSON: "+err.Error())
			return
		}
	}
	if req.Description == "" {
		req.Description = "manual commit"
	}
	if err := s.engine.Commit(r.Context(), req.Description); err != nil {
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]bool{"committed": true})
}

func (s *Server) handleHistoryUndo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]bool{"undone": s.engine.Undo(r.Context())})
}

func (s *Server) handleHistoryRedo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]bool{"redone": s.engine.Redo(r.Context())})
}

func (s *Server) handleCheckpointCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Label string `json:"label"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, 400, "invalid JSON: "+err.Error())
			return
		}
	}
	id, err := s.engine.CreateCheckpoint(r.Context(), req.Label)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, 201, map[string]string{"id": id})
}

func (s *Server) handleCheckpointRestore(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.engine.RestoreCheckpoint(r.Context(), id) {
		writeError(w, 404, "checkpoint not found or restore failed")
		return
	}
	writeJSON(w, 200, map[string]bool{"restored": true})
}

func (s *Server) handleHistoryClear(w http.ResponseWriter, r *http.Request) {
	s.engine.ClearHistory()
	writeJSON(w, 200, map[string]bool{"cleared": true})
}
