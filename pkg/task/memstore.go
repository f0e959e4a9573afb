package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a task ID does not exist in the store.
var ErrNotFound = errors.New("task not found")

// ErrParentCycle is returned when a parent assignment would make a task its
// own ancestor.
var ErrParentCycle = errors.New("parent task cycle")

// MemStore is an in-memory task store. Insertion order is preserved so
// repeated reads yield the same ordered task list. All tasks are deep
// copied on the way in and out; callers never share memory with the store.
type MemStore struct {
	mu             sync.RWMutex
	tasks          []Task
	index          map[string]int
	defaultProject string
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{index: make(map[string]int)}
}

// SetDefaultProjectID sets the project used when callers ask for a default scope.
func (s *MemStore) SetDefaultProjectID(id string) {
	s.mu.Lock()
	s.defaultProject = id
	s.mu.Unlock()
}

// GetDefaultProjectID returns the configured default project, if any.
func (s *MemStore) GetDefaultProjectID(_ context.Context) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultProject
}

// GetAll returns a deep copy of every task in insertion order.
func (s *MemStore) GetAll(_ context.Context) ([]Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CloneAll(s.tasks), nil
}

// GetByID returns a copy of the task, or nil if it does not exist.
func (s *MemStore) GetByID(_ context.Context, id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return nil, nil
	}
	cp := s.tasks[i].Clone()
	return &cp, nil
}

// Create inserts a new task, assigning an ID and timestamps if unset.
func (s *MemStore) Create(_ context.Context, t *Task) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkParentLocked(t.ID, t.ParentTaskID); err != nil {
		return nil, err
	}
	created := s.insertLocked(*t)
	cp := created.Clone()
	return &cp, nil
}

// checkParentLocked walks the parent chain upward from parentID and rejects
// the assignment when it reaches selfID. Dangling parents are fine; the
// chain just ends there. Caller holds a lock.
func (s *MemStore) checkParentLocked(selfID, parentID string) error {
	steps := 0
	for cur := parentID; cur != ""; steps++ {
		if cur == selfID || steps > len(s.tasks) {
			return fmt.Errorf("parent %s of task %s: %w", parentID, selfID, ErrParentCycle)
		}
		i, ok := s.index[cur]
		if !ok {
			return nil
		}
		cur = s.tasks[i].ParentTaskID
	}
	return nil
}

// insertLocked normalizes and appends a task. Caller holds the write lock.
func (s *MemStore) insertLocked(t Task) Task {
	if t.ID == "" {
		t.ID = uuid.Must(uuid.NewV7()).String()
	}
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = StatusBacklog
	}
	t = t.Clone()
	s.index[t.ID] = len(s.tasks)
	s.tasks = append(s.tasks, t)
	return t
}

// Update modifies task fields. Supported keys: title, status, priority,
// project_id, parent_task_id, instances, scheduled_date, scheduled_time,
// due_date, canvas_position, subtasks, completed_pomodoros.
func (s *MemStore) Update(_ context.Context, id string, updates map[string]any) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("update task %s: %w", id, ErrNotFound)
	}
	if v, ok := updates["parent_task_id"]; ok {
		if sv, ok := v.(string); ok {
			if err := s.checkParentLocked(id, sv); err != nil {
				return nil, err
			}
		}
	}
	t := &s.tasks[i]
	for k, v := range updates {
		switch k {
		case "title":
			if sv, ok := v.(string); ok {
				t.Title = sv
			}
		case "status":
			if sv, ok := v.(string); ok {
				t.Status = sv
			}
		case "priority":
			if sv, ok := v.(string); ok {
				t.Priority = sv
			}
		case "project_id":
			if sv, ok := v.(string); ok {
				t.ProjectID = sv
			}
		case "parent_task_id":
			if sv, ok := v.(string); ok {
				t.ParentTaskID = sv
			}
		case "instances":
			if iv, ok := v.([]Instance); ok {
				t.Instances = append([]Instance(nil), iv...)
			}
		case "scheduled_date":
			if sv, ok := v.(string); ok {
				t.ScheduledDate = sv
			}
		case "scheduled_time":
			if sv, ok := v.(string); ok {
				t.ScheduledTime = sv
			}
		case "due_date":
			if sv, ok := v.(string); ok {
				t.DueDate = sv
			}
		case "canvas_position":
			switch pv := v.(type) {
			case *CanvasPosition:
				if pv == nil {
					t.CanvasPosition = nil
				} else {
					pos := *pv
					t.CanvasPosition = &pos
				}
			case CanvasPosition:
				pos := pv
				t.CanvasPosition = &pos
			case nil:
				t.CanvasPosition = nil
			}
		case "subtasks":
			if sv, ok := v.([]Subtask); ok {
				t.Subtasks = append([]Subtask(nil), sv...)
			}
		case "completed_pomodoros":
			switch nv := v.(type) {
			case int:
				t.CompletedPomodoros = nv
			case float64:
				t.CompletedPomodoros = int(nv)
			}
		}
	}
	t.UpdatedAt = time.Now()
	cp := t.Clone()
	return &cp, nil
}

// Delete removes a task by ID.
func (s *MemStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[id]; !ok {
		return fmt.Errorf("delete task %s: %w", id, ErrNotFound)
	}
	s.removeLocked(map[string]struct{}{id: {}})
	return nil
}

// BatchCreate inserts all tasks under one lock acquisition, so no reader
// observes a partially applied batch.
func (s *MemStore) BatchCreate(_ context.Context, ts []Task) ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, 0, len(ts))
	inserted := make(map[string]struct{}, len(ts))
	for _, t := range ts {
		if err := s.checkParentLocked(t.ID, t.ParentTaskID); err != nil {
			s.removeLocked(inserted)
			return nil, err
		}
		created := s.insertLocked(t)
		inserted[created.ID] = struct{}{}
		out = append(out, created.Clone())
	}
	return out, nil
}

// BatchDelete removes all listed tasks atomically. Unknown IDs are ignored.
func (s *MemStore) BatchDelete(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	s.removeLocked(drop)
	return nil
}

// ReplaceAll swaps the entire collection in one step.
func (s *MemStore) ReplaceAll(_ context.Context, ts []Task) error {
	cloned := CloneAll(ts)
	index := make(map[string]int, len(cloned))
	for i := range cloned {
		index[cloned[i].ID] = i
	}
	s.mu.Lock()
	s.tasks = cloned
	s.index = index
	s.mu.Unlock()
	return nil
}

// Count returns the number of tasks.
func (s *MemStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks), nil
}

// removeLocked drops every task whose ID is in the set and reindexes.
// Caller holds the write lock.
func (s *MemStore) removeLocked(drop map[string]struct{}) {
	kept := s.tasks[:0]
	for i := range s.tasks {
		if _, gone := drop[s.tasks[i].ID]; !gone {
			kept = append(kept, s.tasks[i])
		}
	}
	s.tasks = kept
	s.index = make(map[string]int, len(kept))
	for i := range kept {
		s.index[kept[i].ID] = i
	}
}
