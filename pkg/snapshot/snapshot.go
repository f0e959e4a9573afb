// Package snapshot captures immutable point-in-time records of what a
// named view contains. Capturing is advisory: it never fails, so the host
// can wire it into hot paths without defensive plumbing.
package snapshot

import (
	"context"
	"sync"
	"time"

	"crossview/pkg/filter"
	"crossview/pkg/task"
)

// DefaultRetention is how many snapshots are kept per view before the
// oldest is evicted.
const DefaultRetention = 20

// Snapshot is an immutable point-in-time capture of one view's filtered
// task-id set.
type Snapshot struct {
	ViewName    string        `json:"view_name"`
	Config      filter.Config `json:"config"`
	Time        time.Time     `json:"time"`
	TaskCount   int           `json:"task_count"`
	TaskIDs     []string      `json:"task_ids"`
	Trace       filter.Trace  `json:"trace"`
	Unavailable bool          `json:"unavailable,omitempty"`
}

// Contains reports whether the snapshot includes the given task ID.
func (s *Snapshot) Contains(id string) bool {
	for _, got := range s.TaskIDs {
		if got == id {
			return true
		}
	}
	return false
}

// Capturer runs the filter pipeline per named view and retains a bounded
// ring of prior snapshots per view.
type Capturer struct {
	source task.Source
	now    func() time.Time

	mu     sync.Mutex
	retain int
	rings  map[string][]Snapshot
}

// NewCapturer creates a Capturer reading from source. A nil now falls back
// to time.Now.
func NewCapturer(source task.Source, now func() time.Time) *Capturer {
	if now == nil {
		now = time.Now
	}
	return &Capturer{
		source: source,
		now:    now,
		retain: DefaultRetention,
		rings:  make(map[string][]Snapshot),
	}
}

// SetRetention bounds how many snapshots are kept per view.
func (c *Capturer) SetRetention(n int) {
	if n < 1 {
		n = 1
	}
	c.mu.Lock()
	c.retain = n
	c.mu.Unlock()
}

// Capture filters the current task collection for one view and records the
// result. It never fails: when the task source is missing or unreadable it
// returns a well-formed empty snapshot flagged unavailable, with the reason
// in the trace.
func (c *Capturer) Capture(ctx context.Context, viewName string, cfg filter.Config) Snapshot {
	now := c.now()

	var tasks []task.Task
	unavailable := false
	var reason string
	if c.source == nil {
		unavailable = true
		reason = "task source not wired"
	} else {
		var err error
		tasks, err = c.source.GetAll(ctx)
		if err != nil {
			unavailable = true
			reason = "task source unavailable: " + err.Error()
			tasks = nil
		}
	}

	res := filter.Apply(tasks, cfg, now)
	if unavailable {
		res.Trace.Warnings = append(res.Trace.Warnings, reason)
	}

	snap := Snapshot{
		ViewName:    viewName,
		Config:      cfg,
		Time:        now,
		TaskCount:   len(res.Tasks),
		TaskIDs:     res.IDs(),
		Trace:       res.Trace,
		Unavailable: unavailable,
	}
	c.record(snap)
	return snap
}

// Peek runs the pipeline for a config without recording a snapshot. Used
// for derived comparisons that should not pollute the retained rings.
func (c *Capturer) Peek(ctx context.Context, cfg filter.Config) (int, bool) {
	if c.source == nil {
		return 0, false
	}
	tasks, err := c.source.GetAll(ctx)
	if err != nil {
		return 0, false
	}
	res := filter.Apply(tasks, cfg, c.now())
	return len(res.Tasks), true
}

func (c *Capturer) record(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ring := append(c.rings[snap.ViewName], snap)
	if over := len(ring) - c.retain; over > 0 {
		ring = append([]Snapshot(nil), ring[over:]...)
	}
	c.rings[snap.ViewName] = ring
}

// History returns retained snapshots for a view, oldest first.
func (c *Capturer) History(viewName string) []Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Snapshot(nil), c.rings[viewName]...)
}

// Latest returns the most recent snapshot for a view, or nil if none exists.
func (c *Capturer) Latest(viewName string) *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	ring := c.rings[viewName]
	if len(ring) == 0 {
		return nil
	}
	snap := ring[len(ring)-1]
	return &snap
}
