package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"crossview/pkg/filter"
	"crossview/pkg/task"
)

func (s *Server) handleTaskList(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.engine.Store().GetAll(r.Context())
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, tasks)
}

func (s *Server) handleTaskGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	t, err := s.engine.Store().GetByID(r.Context(), id)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	if t == nil {
		writeError(w, 404, "task not found")
		return
	}
	writeJSON(w, 200, t)
}

func (s *Server) handleTaskCreate(w http.ResponseWriter, r *http.Request) {
	var t task.Task
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return
	}
	if t.Title == "" {
		writeError(w, 400, "title is required")
		return
	}
	result, err := s.engine.CreateTask(r.Context(), &t)
	if err != nil {
		if errors.Is(err, task.ErrParentCycle) {
			writeError(w, 400, err.Error())
			return
		}
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, 201, result)
}

func (s *Server) handleTaskUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var updates map[string]any
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return
	}
	t, err := s.engine.UpdateTask(r.Context(), id, updates)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			writeError(w, 404, err.Error())
			return
		}
		if errors.Is(err, task.ErrParentCycle) {
			writeError(w, 400, err.Error())
			return
		}
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, t)
}

func (s *Server) handleTaskDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.engine.DeleteTask(r.Context(), id); err != nil {
		if errors.Is(err, task.ErrNotFound) {
			writeError(w, 404, err.Error())
			return
		}
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]string{"deleted": id})
}

func (s *Server) handleTaskBatchCreate(w http.ResponseWriter, r *http.Request) {
	var ts []task.Task
	if err := json.NewDecoder(r.Body).Decode(&ts); err != nil {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return
	}
	if len(ts) == 0 {
		writeError(w, 400, "empty batch")
		return
	}
	created, err := s.engine.BatchCreateTasks(r.Context(), ts)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, 201, created)
}

func (s *Server) handleTaskBatchDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, 400, "empty batch")
		return
	}
	if err := s.engine.BatchDeleteTasks(r.Context(), req.IDs); err != nil {
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]int{"deleted": len(req.IDs)})
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	var cfg filter.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, 400, "invalid JSON: "+err.Error())
		return
	}
	res, err := s.engine.Query(r.Context(), cfg)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, res)
}
