package task

import (
	"context"
	"time"
)

// Task statuses.
const (
	StatusBacklog    = "backlog"
	StatusPlanned    = "planned"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusOnHold     = "on_hold"
)

// ValidStatus reports whether s is one of the known task statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusBacklog, StatusPlanned, StatusInProgress, StatusDone, StatusOnHold:
		return true
	default:
		return false
	}
}

// Instance is one concrete scheduled occurrence of a task, allowing a task
// to appear in multiple calendar slots. Dates are YYYY-MM-DD strings and
// times are HH:MM strings; malformed values classify as "no date" rather
// than failing.
type Instance struct {
	ScheduledDate string `json:"scheduled_date"`
	ScheduledTime string `json:"scheduled_time,omitempty"`
	Duration      int    `json:"duration,omitempty"` // minutes
}

// Subtask is an ordered checklist item within a task.
type Subtask struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

// CanvasPosition places a task on the freeform canvas. Opaque to the
// filtering core beyond presence/absence.
type CanvasPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Task represents a unit of work in the system.
type Task struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Status       string `json:"status"`             // backlog, planned, in_progress, done, on_hold
	Priority     string `json:"priority,omitempty"` // empty = unset
	ProjectID    string `json:"project_id,omitempty"`
	ParentTaskID string `json:"parent_task_id,omitempty"`

	// Instances is the modern scheduling representation. ScheduledDate /
	// ScheduledTime carry the legacy single-slot form; both are normalized
	// through the same seam before any date predicate runs.
	Instances     []Instance `json:"instances,omitempty"`
	ScheduledDate string     `json:"scheduled_date,omitempty"`
	ScheduledTime string     `json:"scheduled_time,omitempty"`

	DueDate            string          `json:"due_date,omitempty"` // YYYY-MM-DD
	CanvasPosition     *CanvasPosition `json:"canvas_position,omitempty"`
	Subtasks           []Subtask       `json:"subtasks,omitempty"`
	CompletedPomodoros int             `json:"completed_pomodoros"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OnCanvas reports whether the task has been placed on the canvas.
func (t *Task) OnCanvas() bool { return t.CanvasPosition != nil }

// InInbox reports whether the task is unfiled: no project and not on the canvas.
func (t *Task) InInbox() bool { return t.ProjectID == "" && t.CanvasPosition == nil }

// Clone returns a deep copy of the task.
func (t *Task) Clone() Task {
	cp := *t
	if t.Instances != nil {
		cp.Instances = make([]Instance, len(t.Instances))
		copy(cp.Instances, t.Instances)
	}
	if t.Subtasks != nil {
		cp.Subtasks = make([]Subtask, len(t.Subtasks))
		copy(cp.Subtasks, t.Subtasks)
	}
	if t.CanvasPosition != nil {
		pos := *t.CanvasPosition
		cp.CanvasPosition = &pos
	}
	return cp
}

// CloneAll returns a deep copy of a task slice.
func CloneAll(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	for i := range tasks {
		out[i] = tasks[i].Clone()
	}
	return out
}

// Source is the narrow read-only capability the filtering and monitoring
// core depends on. Concrete store shapes stay behind it.
type Source interface {
	GetAll(ctx context.Context) ([]Task, error)
	GetByID(ctx context.Context, id string) (*Task, error)
	GetDefaultProjectID(ctx context.Context) string
}

// Store is the contract for task persistence: Source plus mutations.
// ReplaceAll swaps the entire collection in one atomic step and is the
// primitive history restore is built on.
type Store interface {
	Source
	Create(ctx context.Context, t *Task) (*Task, error)
	Update(ctx context.Context, id string, updates map[string]any) (*Task, error)
	Delete(ctx context.Context, id string) error
	BatchCreate(ctx context.Context, ts []Task) ([]Task, error)
	BatchDelete(ctx context.Context, ids []string) error
	ReplaceAll(ctx context.Context, ts []Task) error
	Count(ctx context.Context) (int, error)
}
