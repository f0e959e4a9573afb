package task

import (
	"context"
	"errors"
	"testing"
)

func ctx() context.Context { return context.Background() }

// TestMemStoreCreateAssignsDefaults verifies ID, timestamps, and status
// defaulting on create.
func TestMemStoreCreateAssignsDefaults(t *testing.T) {
	s := NewMemStore()
	created, err := s.Create(ctx(), &Task{Title: "first"})
	if err != nil {
		t.Fatal(err)
	}
	if created.ID == "" {
		t.Error("expected an assigned ID")
	}
	if created.Status != StatusBacklog {
		t.Errorf("status: want %s, got %s", StatusBacklog, created.Status)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

// TestMemStoreCopiesAreIsolated verifies that mutating a returned task
// does not leak into the store.
func TestMemStoreCopiesAreIsolated(t *testing.T) {
	s := NewMemStore()
	created, _ := s.Create(ctx(), &Task{
		Title:    "shared?",
		Subtasks: []Subtask{{ID: "s1", Title: "step"}},
	})

	created.Title = "mutated"
	created.Subtasks[0].Done = true

	stored, _ := s.GetByID(ctx(), created.ID)
	if stored.Title != "shared?" {
		t.Errorf("title leaked: got %q", stored.Title)
	}
	if stored.Subtasks[0].Done {
		t.Error("subtask mutation leaked into the store")
	}
}

// TestMemStoreDefaultProject verifies the default-project scope setting.
func TestMemStoreDefaultProject(t *testing.T) {
	s := NewMemStore()
	if got := s.GetDefaultProjectID(ctx()); got != "" {
		t.Fatalf("unset default project: got %q", got)
	}
	s.SetDefaultProjectID("board")
	if got := s.GetDefaultProjectID(ctx()); got != "board" {
		t.Fatalf("default project: got %q", got)
	}
}

// TestMemStoreGetByIDMissing verifies a missing ID yields nil, nil.
func TestMemStoreGetByIDMissing(t *testing.T) {
	s := NewMemStore()
	got, err := s.GetByID(ctx(), "nope")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("want nil for missing task, got %+v", got)
	}
}

// TestMemStoreUpdate verifies field updates and the not-found error.
func TestMemStoreUpdate(t *testing.T) {
	s := NewMemStore()
	created, _ := s.Create(ctx(), &Task{Title: "before"})

	updated, err := s.Update(ctx(), created.ID, map[string]any{
		"title":  "after",
		"status": StatusInProgress,
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Title != "after" || updated.Status != StatusInProgress {
		t.Errorf("update not applied: %+v", updated)
	}

	if _, err := s.Update(ctx(), "missing", map[string]any{"title": "x"}); err == nil {
		t.Error("expected error updating a missing task")
	}
}

// TestMemStoreOrderStable verifies GetAll preserves insertion order across
// deletes.
func TestMemStoreOrderStable(t *testing.T) {
	s := NewMemStore()
	for _, title := range []string{"a", "b", "c", "d"} {
		if _, err := s.Create(ctx(), &Task{ID: title, Title: title}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Delete(ctx(), "b"); err != nil {
		t.Fatal(err)
	}
	all, _ := s.GetAll(ctx())
	want := []string{"a", "c", "d"}
	for i, tk := range all {
		if tk.ID != want[i] {
			t.Errorf("position %d: want %s, got %s", i, want[i], tk.ID)
		}
	}
}

// TestMemStoreParentCycleRejected verifies a parent assignment can never
// make a task its own ancestor.
func TestMemStoreParentCycleRejected(t *testing.T) {
	s := NewMemStore()
	if _, err := s.Create(ctx(), &Task{ID: "a", Title: "root"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx(), &Task{ID: "b", Title: "child", ParentTaskID: "a"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx(), &Task{ID: "c", Title: "grandchild", ParentTaskID: "b"}); err != nil {
		t.Fatal(err)
	}

	// a -> c would close a loop through b
	if _, err := s.Update(ctx(), "a", map[string]any{"parent_task_id": "c"}); !errors.Is(err, ErrParentCycle) {
		t.Fatalf("closing a loop: want ErrParentCycle, got %v", err)
	}
	if _, err := s.Update(ctx(), "a", map[string]any{"parent_task_id": "a"}); !errors.Is(err, ErrParentCycle) {
		t.Fatalf("self parent: want ErrParentCycle, got %v", err)
	}
	if _, err := s.Create(ctx(), &Task{ID: "d", Title: "own parent", ParentTaskID: "d"}); !errors.Is(err, ErrParentCycle) {
		t.Fatalf("self parent on create: want ErrParentCycle, got %v", err)
	}

	// the rejected update must not mutate the task
	a, _ := s.GetByID(ctx(), "a")
	if a.ParentTaskID != "" {
		t.Fatalf("rejected update leaked: %+v", a)
	}

	// reparenting within the tree is fine, as is a dangling parent
	if _, err := s.Update(ctx(), "c", map[string]any{"parent_task_id": "a"}); err != nil {
		t.Fatalf("valid reparent: %v", err)
	}
	if _, err := s.Create(ctx(), &Task{ID: "e", Title: "orphan", ParentTaskID: "missing"}); err != nil {
		t.Fatalf("dangling parent: %v", err)
	}
}

// TestMemStoreBatchCycleRollsBack verifies a batch containing a cycle is
// rejected whole, leaving no partial inserts behind.
func TestMemStoreBatchCycleRollsBack(t *testing.T) {
	s := NewMemStore()
	_, err := s.BatchCreate(ctx(), []Task{
		{ID: "x", Title: "one", ParentTaskID: "y"},
		{ID: "y", Title: "two", ParentTaskID: "x"},
	})
	if !errors.Is(err, ErrParentCycle) {
		t.Fatalf("want ErrParentCycle, got %v", err)
	}
	if n, _ := s.Count(ctx()); n != 0 {
		t.Fatalf("failed batch left %d task(s) behind", n)
	}
}

// TestMemStoreBatchAndReplace verifies batch mutations and the atomic swap.
func TestMemStoreBatchAndReplace(t *testing.T) {
	s := NewMemStore()
	created, err := s.BatchCreate(ctx(), []Task{{Title: "x"}, {Title: "y"}, {Title: "z"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 3 {
		t.Fatalf("batch create: want 3, got %d", len(created))
	}
	created[0].Title = "mutated"
	if stored, _ := s.GetByID(ctx(), created[0].ID); stored.Title != "x" {
		t.Error("batch create must return copies, not shared memory")
	}

	if err := s.BatchDelete(ctx(), []string{created[0].ID, created[2].ID, "unknown"}); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Count(ctx()); n != 1 {
		t.Fatalf("after batch delete: want 1 task, got %d", n)
	}

	if err := s.ReplaceAll(ctx(), []Task{{ID: "only", Title: "only"}}); err != nil {
		t.Fatal(err)
	}
	all, _ := s.GetAll(ctx())
	if len(all) != 1 || all[0].ID != "only" {
		t.Fatalf("replace all: got %+v", all)
	}
	got, _ := s.GetByID(ctx(), "only")
	if got == nil {
		t.Fatal("index not rebuilt after ReplaceAll")
	}
}
