// Package engine is the composition root of the cross-view consistency
// core. It wires the task store (through a change-notifying bus), the
// snapshot capturer, the consistency monitor, and the history manager, and
// exposes the combined surface to host callers.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"crossview/pkg/consistency"
	"crossview/pkg/filter"
	"crossview/pkg/history"
	"crossview/pkg/snapshot"
	"crossview/pkg/task"
)

// Engine is the orchestrator facade over the consistency core.
type Engine struct {
	bus      *task.Bus
	capturer *snapshot.Capturer
	monitor  *consistency.Monitor
	history  *history.Manager

	// mu makes a history commit and its corresponding store mutation one
	// atomic logical step: an undo always reverses exactly one operation.
	mu sync.Mutex
}

// New wires an Engine around the given store.
func New(store task.Store) *Engine {
	bus := task.NewBus(store)
	capturer := snapshot.NewCapturer(bus, time.Now)
	return &Engine{
		bus:      bus,
		capturer: capturer,
		monitor:  consistency.New(capturer, bus),
		history:  history.New(bus),
	}
}

// Store returns the change-notifying store the engine mutates through.
func (e *Engine) Store() task.Store { return e.bus }

// Subscribe returns a channel receiving store change notifications. The
// host wires this to whatever change-detection mechanism it uses.
func (e *Engine) Subscribe() chan task.Change { return e.bus.Subscribe() }

// Unsubscribe releases a subscription channel.
func (e *Engine) Unsubscribe(ch chan task.Change) { e.bus.Unsubscribe(ch) }

// Monitor exposes the consistency monitor.
func (e *Engine) Monitor() *consistency.Monitor { return e.monitor }

// Capturer exposes the snapshot capturer.
func (e *Engine) Capturer() *snapshot.Capturer { return e.capturer }

// ApplyFilter runs the pure filter pipeline over the supplied tasks.
func (e *Engine) ApplyFilter(tasks []task.Task, cfg filter.Config) filter.Result {
	return filter.Apply(tasks, cfg, time.Now())
}

// Query filters the engine's current task collection.
func (e *Engine) Query(ctx context.Context, cfg filter.Config) (filter.Result, error) {
	tasks, err := e.bus.GetAll(ctx)
	if err != nil {
		return filter.Result{}, fmt.Errorf("query: %w", err)
	}
	return filter.Apply(tasks, cfg, time.Now()), nil
}

// --- Monitoring ---

// StartMonitoring begins periodic validation of the declared views.
func (e *Engine) StartMonitoring(views []consistency.ViewDecl) { e.monitor.Start(views) }

// StopMonitoring halts validation synchronously.
func (e *Engine) StopMonitoring() { e.monitor.Stop() }

// Mismatches returns recorded mismatches, newest first.
func (e *Engine) Mismatches(severity string, limit int) []consistency.Mismatch {
	return e.monitor.Mismatches(severity, limit)
}

// Summary reports the rolled-up monitor status.
func (e *Engine) Summary() consistency.Summary { return e.monitor.Summary() }

// DefaultViews is the standard view declaration set: every named view is a
// declared subset of the all-tasks view.
func DefaultViews() []consistency.ViewDecl {
	return []consistency.ViewDecl{
		{Name: "all", Config: filter.Config{}},
		{Name: "today", Config: filter.Config{SmartView: filter.SmartToday}, SubsetOf: []string{"all"}},
		{Name: "inbox", Config: filter.Config{IncludeInboxOnly: true}, SubsetOf: []string{"all"}},
		{Name: "canvas", Config: filter.Config{IncludeCanvasOnly: true}, SubsetOf: []string{"all"}},
		{Name: "no-date", Config: filter.Config{TimeFilter: filter.TimeNoDate}, SubsetOf: []string{"all"}},
	}
}

// --- History ---

// Commit records the current task state as an undoable entry.
func (e *Engine) Commit(ctx context.Context, description string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Commit(ctx, description)
}

// Undo restores the most recently committed state.
func (e *Engine) Undo(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Undo(ctx)
}

// Redo reverses the most recent undo.
func (e *Engine) Redo(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Redo(ctx)
}

// CanUndo reports whether an undo entry is available.
func (e *Engine) CanUndo() bool { return e.history.CanUndo() }

// CanRedo reports whether a redo entry is available.
func (e *Engine) CanRedo() bool { return e.history.CanRedo() }

// CreateCheckpoint captures an addressable jump point and returns its ID.
func (e *Engine) CreateCheckpoint(ctx context.Context, label string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.CreateCheckpoint(ctx, label)
}

// RestoreCheckpoint jumps to a checkpoint; false means zero mutation.
func (e *Engine) RestoreCheckpoint(ctx context.Context, id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.RestoreCheckpoint(ctx, id)
}

// ClearHistory drops all undo/redo entries and checkpoints.
func (e *Engine) ClearHistory() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history.Clear()
}

// History exposes the history manager.
func (e *Engine) History() *history.Manager { return e.history }

// --- Mutations ---
// Each helper commits the pre-mutation state and applies the mutation under
// one lock, so a single Undo reverses the whole operation, batches included,
// never a partial subset.

// CreateTask creates one task as one undoable step.
func (e *Engine) CreateTask(ctx context.Context, t *task.Task) (*task.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.history.Commit(ctx, "create task: "+t.Title); err != nil {
		return nil, err
	}
	created, err := e.bus.Create(ctx, t)
	if err != nil {
		e.history.DropLast()
		return nil, err
	}
	return created, nil
}

// UpdateTask updates one task as one undoable step.
func (e *Engine) UpdateTask(ctx context.Context, id string, updates map[string]any) (*task.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.history.Commit(ctx, "update task: "+id); err != nil {
		return nil, err
	}
	updated, err := e.bus.Update(ctx, id, updates)
	if err != nil {
		e.history.DropLast()
		return nil, err
	}
	return updated, nil
}

// DeleteTask deletes one task as one undoable step.
func (e *Engine) DeleteTask(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.history.Commit(ctx, "delete task: "+id); err != nil {
		return err
	}
	if err := e.bus.Delete(ctx, id); err != nil {
		e.history.DropLast()
		return err
	}
	return nil
}

// BatchCreateTasks creates all tasks as one undoable step.
func (e *Engine) BatchCreateTasks(ctx context.Context, ts []task.Task) ([]task.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.history.Commit(ctx, fmt.Sprintf("batch create %d task(s)", len(ts))); err != nil {
		return nil, err
	}
	created, err := e.bus.BatchCreate(ctx, ts)
	if err != nil {
		e.history.DropLast()
		return nil, err
	}
	return created, nil
}

// BatchDeleteTasks deletes all listed tasks as one undoable step.
func (e *Engine) BatchDeleteTasks(ctx context.Context, ids []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.history.Commit(ctx, fmt.Sprintf("batch delete %d task(s)", len(ids))); err != nil {
		return err
	}
	if err := e.bus.BatchDelete(ctx, ids); err != nil {
		e.history.DropLast()
		return err
	}
	return nil
}
