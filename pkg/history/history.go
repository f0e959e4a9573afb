// Package history provides checkpointed undo/redo over task store
// mutations. Entries are full-state captures: simple, correct, and cheap
// for the task-collection sizes this system sees. Undo and redo form a
// strictly linear stack; checkpoints are addressable jump points outside
// that stack, for compound multi-step operations.
package history

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"crossview/pkg/task"
)

// DefaultMaxDepth bounds the linear undo stack. The oldest entry is
// silently evicted when the bound is exceeded.
const DefaultMaxDepth = 200

// Entry is one committed full-state capture.
type Entry struct {
	ID          string      `json:"id"`
	Time        time.Time   `json:"time"`
	Description string      `json:"description"`
	State       []task.Task `json:"-"`
	TaskCount   int         `json:"task_count"`
}

// Manager owns the linear undo/redo stacks and the checkpoint table for
// one task store.
type Manager struct {
	store task.Store

	mu          sync.Mutex
	maxDepth    int
	undo        []Entry
	redo        []Entry
	checkpoints map[string]Entry
}

// New creates a Manager over the given store.
func New(store task.Store) *Manager {
	return &Manager{
		store:       store,
		maxDepth:    DefaultMaxDepth,
		checkpoints: make(map[string]Entry),
	}
}

// SetMaxDepth bounds the undo stack. Values below 1 are ignored.
func (m *Manager) SetMaxDepth(n int) {
	if n < 1 {
		return
	}
	m.mu.Lock()
	m.maxDepth = n
	m.mu.Unlock()
}

func (m *Manager) capture(ctx context.Context, description string) (Entry, error) {
	state, err := m.store.GetAll(ctx)
	if err != nil {
		return Entry{}, fmt.Errorf("capture state: %w", err)
	}
	return Entry{
		ID:          uuid.Must(uuid.NewV7()).String(),
		Time:        time.Now(),
		Description: description,
		State:       state,
		TaskCount:   len(state),
	}, nil
}

// Commit pushes the current full task state onto the undo stack and clears
// the redo stack. History is linear: committing after an undo discards the
// redone-able future.
func (m *Manager) Commit(ctx context.Context, description string) error {
	entry, err := m.capture(ctx, description)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.undo = append(m.undo, entry)
	if over := len(m.undo) - m.maxDepth; over > 0 {
		// Bound reached: drop the oldest entries without complaint.
		m.undo = append([]Entry(nil), m.undo[over:]...)
	}
	m.redo = nil
	m.mu.Unlock()

	commitsTotal.Inc()
	return nil
}

// Undo restores the most recent committed state, pushing the current state
// onto the redo stack. Returns false (and mutates nothing) when the undo
// stack is empty or the restore fails.
func (m *Manager) Undo(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.undo) == 0 {
		return false
	}

	current, err := m.capture(ctx, "before undo")
	if err != nil {
		log.Printf("history: undo capture failed: %v", err)
		return false
	}

	entry := m.undo[len(m.undo)-1]
	if err := m.store.ReplaceAll(ctx, entry.State); err != nil {
		log.Printf("history: undo restore failed: %v", err)
		return false
	}
	m.undo = m.undo[:len(m.undo)-1]
	m.redo = append(m.redo, current)

	undosTotal.Inc()
	return true
}

// Redo restores the state undone by the most recent Undo. Valid only while
// no commit has intervened. Returns false on an empty redo stack.
func (m *Manager) Redo(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.redo) == 0 {
		return false
	}

	current, err := m.capture(ctx, "before redo")
	if err != nil {
		log.Printf("history: redo capture failed: %v", err)
		return false
	}

	entry := m.redo[len(m.redo)-1]
	if err := m.store.ReplaceAll(ctx, entry.State); err != nil {
		log.Printf("history: redo restore failed: %v", err)
		return false
	}
	m.redo = m.redo[:len(m.redo)-1]
	m.undo = append(m.undo, current)

	redosTotal.Inc()
	return true
}

// CanUndo reports whether an undo entry is available.
func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo) > 0
}

// CanRedo reports whether a redo entry is available.
func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo) > 0
}

// CreateCheckpoint captures the current state as an addressable jump point
// outside the linear stack and returns its ID.
func (m *Manager) CreateCheckpoint(ctx context.Context, label string) (string, error) {
	entry, err := m.capture(ctx, label)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.checkpoints[entry.ID] = entry
	m.mu.Unlock()
	return entry.ID, nil
}

// RestoreCheckpoint jumps back to a checkpoint. All-or-nothing: an unknown
// ID or a failed restore returns false with zero mutation. A successful
// restore pushes the pre-restore state as a new undo entry, so the jump
// itself can be undone.
func (m *Manager) RestoreCheckpoint(ctx context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp, ok := m.checkpoints[id]
	if !ok {
		return false
	}

	current, err := m.capture(ctx, "before restore: "+cp.Description)
	if err != nil {
		log.Printf("history: checkpoint capture failed: %v", err)
		return false
	}
	if err := m.store.ReplaceAll(ctx, cp.State); err != nil {
		log.Printf("history: checkpoint restore failed: %v", err)
		return false
	}
	m.undo = append(m.undo, current)
	m.redo = nil
	return true
}

// DropLast removes the newest undo entry without restoring it. Used when
// the mutation a commit was taken for fails, so the stack does not
// accumulate no-op entries.
func (m *Manager) DropLast() {
	m.mu.Lock()
	if n := len(m.undo); n > 0 {
		m.undo = m.undo[:n-1]
	}
	m.mu.Unlock()
}

// Checkpoints lists checkpoint entries, unordered.
func (m *Manager) Checkpoints() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0, len(m.checkpoints))
	for _, cp := range m.checkpoints {
		out = append(out, cp)
	}
	return out
}

// Entries lists the linear undo stack, oldest first.
func (m *Manager) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.undo...)
}

// Clear drops all undo entries, redo entries, and checkpoints.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.undo = nil
	m.redo = nil
	m.checkpoints = make(map[string]Entry)
	m.mu.Unlock()
}
