package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is a PostgreSQL-backed task store.
type PgStore struct {
	pool           *pgxpool.Pool
	defaultProject string
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// SetDefaultProjectID sets the project used when callers ask for a default scope.
func (s *PgStore) SetDefaultProjectID(id string) { s.defaultProject = id }

// GetDefaultProjectID returns the configured default project, if any.
func (s *PgStore) GetDefaultProjectID(_ context.Context) string { return s.defaultProject }

// EnsureTable creates the tasks table if it doesn't exist.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tasks (
			id                  TEXT PRIMARY KEY,
			title               TEXT NOT NULL,
			status              TEXT NOT NULL DEFAULT 'backlog',
			priority            TEXT NOT NULL DEFAULT '',
			project_id          TEXT NOT NULL DEFAULT '',
			parent_task_id      TEXT NOT NULL DEFAULT '',
			instances           JSONB NOT NULL DEFAULT '[]',
			scheduled_date      TEXT NOT NULL DEFAULT '',
			scheduled_time      TEXT NOT NULL DEFAULT '',
			due_date            TEXT NOT NULL DEFAULT '',
			canvas_position     JSONB,
			subtasks            JSONB NOT NULL DEFAULT '[]',
			completed_pomodoros INTEGER NOT NULL DEFAULT 0,
			created_at          TIMESTAMPTZ DEFAULT NOW(),
			updated_at          TIMESTAMPTZ DEFAULT NOW(),
			position            BIGSERIAL
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id) WHERE project_id != ''`)
	return err
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so insert logic is
// shared between single and transactional paths.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const taskColumns = `id, title, status, priority, project_id, parent_task_id, instances, scheduled_date, scheduled_time, due_date, canvas_position, subtasks, completed_pomodoros, created_at, updated_at`

// Create inserts a new task, assigning an ID and timestamps if unset.
func (s *PgStore) Create(ctx context.Context, t *Task) (*Task, error) {
	cp := t.Clone()
	normalizeNew(&cp)
	if err := checkParent(ctx, s.pool, cp.ID, cp.ParentTaskID); err != nil {
		return nil, err
	}
	if err := insertTask(ctx, s.pool, &cp); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &cp, nil
}

// parentDepthLimit caps the parent-chain walk so a pre-existing loop in the
// table cannot hang a validation query.
const parentDepthLimit = 100

// checkParent walks the parent chain upward and rejects an assignment that
// would make selfID its own ancestor.
func checkParent(ctx context.Context, q querier, selfID, parentID string) error {
	for cur, steps := parentID, 0; cur != ""; steps++ {
		if cur == selfID || steps > parentDepthLimit {
			return fmt.Errorf("parent %s of task %s: %w", parentID, selfID, ErrParentCycle)
		}
		var next string
		err := q.QueryRow(ctx, `SELECT parent_task_id FROM tasks WHERE id = $1`, cur).Scan(&next)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("check parent of task %s: %w", selfID, err)
		}
		cur = next
	}
	return nil
}

func normalizeNew(t *Task) {
	if t.ID == "" {
		t.ID = uuid.Must(uuid.NewV7()).String()
	}
	now := time.Now().Truncate(time.Microsecond)
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = StatusBacklog
	}
}

func insertTask(ctx context.Context, q querier, t *Task) error {
	instJSON, err := json.Marshal(orEmptyInstances(t.Instances))
	if err != nil {
		return fmt.Errorf("marshal instances: %w", err)
	}
	subJSON, err := json.Marshal(orEmptySubtasks(t.Subtasks))
	if err != nil {
		return fmt.Errorf("marshal subtasks: %w", err)
	}
	var posJSON *string
	if t.CanvasPosition != nil {
		b, err := json.Marshal(t.CanvasPosition)
		if err != nil {
			return fmt.Errorf("marshal canvas position: %w", err)
		}
		str := string(b)
		posJSON = &str
	}
	_, err = q.Exec(ctx, `
		INSERT INTO tasks (id, title, status, priority, project_id, parent_task_id, instances, scheduled_date, scheduled_time, due_date, canvas_position, subtasks, completed_pomodoros, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10, $11::jsonb, $12::jsonb, $13, $14, $15)`,
		t.ID, t.Title, t.Status, t.Priority, t.ProjectID, t.ParentTaskID, string(instJSON),
		t.ScheduledDate, t.ScheduledTime, t.DueDate, posJSON, string(subJSON),
		t.CompletedPomodoros, t.CreatedAt, t.UpdatedAt)
	return err
}

func orEmptyInstances(in []Instance) []Instance {
	if in == nil {
		return []Instance{}
	}
	return in
}

func orEmptySubtasks(in []Subtask) []Subtask {
	if in == nil {
		return []Subtask{}
	}
	return in
}

// GetByID retrieves a single task, or nil if it does not exist.
func (s *PgStore) GetByID(ctx context.Context, id string) (*Task, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return t, nil
}

// GetAll returns every task in stable insertion order.
func (s *PgStore) GetAll(ctx context.Context) ([]Task, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

// Update modifies task fields. Supported keys mirror MemStore.Update.
func (s *PgStore) Update(ctx context.Context, id string, updates map[string]any) (*Task, error) {
	if v, ok := updates["parent_task_id"]; ok {
		if sv, ok := v.(string); ok {
			if err := checkParent(ctx, s.pool, id, sv); err != nil {
				return nil, err
			}
		}
	}

	now := time.Now().Truncate(time.Microsecond)

	setClauses := "updated_at = $1"
	args := []any{now}
	argIdx := 2

	addClause := func(col string, v any) {
		setClauses += fmt.Sprintf(", %s = $%d", col, argIdx)
		args = append(args, v)
		argIdx++
	}

	for k, v := range updates {
		switch k {
		case "title", "status", "priority", "project_id", "parent_task_id",
			"scheduled_date", "scheduled_time", "due_date":
			addClause(k, v)
		case "completed_pomodoros":
			addClause(k, v)
		case "instances", "subtasks", "canvas_position":
			if v == nil {
				addClause(k, nil)
				continue
			}
			b, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("marshal %s: %w", k, err)
			}
			setClauses += fmt.Sprintf(", %s = $%d::jsonb", k, argIdx)
			args = append(args, string(b))
			argIdx++
		}
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = $%d RETURNING %s", setClauses, argIdx, taskColumns)

	t, err := scanTask(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", id, err)
	}
	return t, nil
}

// Delete removes a task by ID.
func (s *PgStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete task %s: %w", id, ErrNotFound)
	}
	return nil
}

// BatchCreate inserts all tasks in one transaction.
func (s *PgStore) BatchCreate(ctx context.Context, ts []Task) ([]Task, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("batch create: %w", err)
	}
	defer tx.Rollback(ctx)

	out := make([]Task, 0, len(ts))
	for i := range ts {
		cp := ts[i].Clone()
		normalizeNew(&cp)
		if err := checkParent(ctx, tx, cp.ID, cp.ParentTaskID); err != nil {
			return nil, err
		}
		if err := insertTask(ctx, tx, &cp); err != nil {
			return nil, fmt.Errorf("batch create: %w", err)
		}
		out = append(out, cp)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("batch create commit: %w", err)
	}
	return out, nil
}

// BatchDelete removes all listed tasks in one transaction. Unknown IDs are ignored.
func (s *PgStore) BatchDelete(ctx context.Context, ids []string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("batch delete: %w", err)
	}
	return nil
}

// ReplaceAll swaps the entire collection inside one transaction, so readers
// see either the old state or the new state, never a mix.
func (s *PgStore) ReplaceAll(ctx context.Context, ts []Task) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("replace all: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM tasks`); err != nil {
		return fmt.Errorf("replace all: %w", err)
	}
	for i := range ts {
		cp := ts[i].Clone()
		if err := insertTask(ctx, tx, &cp); err != nil {
			return fmt.Errorf("replace all: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("replace all commit: %w", err)
	}
	return nil
}

// Count returns total task count.
func (s *PgStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&n)
	return n, err
}

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	var instJSON, subJSON, posJSON []byte
	err := row.Scan(&t.ID, &t.Title, &t.Status, &t.Priority, &t.ProjectID, &t.ParentTaskID,
		&instJSON, &t.ScheduledDate, &t.ScheduledTime, &t.DueDate, &posJSON, &subJSON,
		&t.CompletedPomodoros, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(instJSON, &t.Instances); err != nil {
		t.Instances = nil
	}
	if err := json.Unmarshal(subJSON, &t.Subtasks); err != nil {
		t.Subtasks = nil
	}
	if len(t.Instances) == 0 {
		t.Instances = nil
	}
	if len(t.Subtasks) == 0 {
		t.Subtasks = nil
	}
	if len(posJSON) > 0 {
		var pos CanvasPosition
		if err := json.Unmarshal(posJSON, &pos); err == nil {
			t.CanvasPosition = &pos
		}
	}
	return &t, nil
}

func scanTaskRows(rows pgx.Rows) ([]Task, error) {
	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return tasks, nil
}
