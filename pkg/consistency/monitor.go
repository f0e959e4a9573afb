// Package consistency implements the cross-view monitor: it periodically
// snapshots a declared set of named views and validates them against a
// fixed rule set, recording violations as deduplicated Mismatch entries.
// The monitor is advisory and never fatal to its host: rule panics are
// contained per cycle, and all failures surface through the mismatch log.
package consistency

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"crossview/pkg/filter"
	"crossview/pkg/snapshot"
	"crossview/pkg/task"
)

// DefaultInterval is the periodic check cadence.
const DefaultInterval = 2 * time.Second

// DefaultDebounce is how long task-change notifications are coalesced
// before triggering an off-schedule check.
const DefaultDebounce = 250 * time.Millisecond

// ViewDecl declares one named view and its relations to other views.
type ViewDecl struct {
	Name   string        `json:"name"`
	Config filter.Config `json:"config"`

	// SubsetOf names views this view must be contained in: every task ID
	// present here must also be present there, and the count bound follows.
	SubsetOf []string `json:"subset_of,omitempty"`
}

// Summary is the rolled-up monitor status. Status follows strict severity
// precedence: error > warning > info > healthy. Never a blended score.
type Summary struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Monitor validates declared views against the rule set on a fixed
// interval and on debounced task changes. It is an explicit instantiable
// object owned by the composition root, never a package-level singleton.
type Monitor struct {
	capturer *snapshot.Capturer
	bus      *task.Bus // optional; enables change-triggered checks
	interval time.Duration
	debounce time.Duration
	logbook  *Log
	now      func() time.Time

	// checking guards against a tick re-entering a cycle still in progress,
	// which would race two captures against a concurrently mutating list.
	checking atomic.Bool

	mu      sync.Mutex
	views   []ViewDecl
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	last    []Mismatch // mismatches recorded by the most recent cycle
}

// New creates a Monitor. bus may be nil, in which case only the periodic
// interval drives checks.
func New(capturer *snapshot.Capturer, bus *task.Bus) *Monitor {
	return &Monitor{
		capturer: capturer,
		bus:      bus,
		interval: DefaultInterval,
		debounce: DefaultDebounce,
		logbook:  NewLog(DefaultLogCapacity),
		now:      time.Now,
	}
}

// SetClock overrides the clock used to stamp mismatches, so dedup
// bucketing is reproducible under test.
func (m *Monitor) SetClock(now func() time.Time) {
	if now != nil {
		m.now = now
	}
}

// SetInterval overrides the periodic check cadence. Takes effect on the
// next Start.
func (m *Monitor) SetInterval(d time.Duration) {
	if d > 0 {
		m.interval = d
	}
}

// Start begins monitoring the declared views. Starting an already running
// monitor is a no-op.
func (m *Monitor) Start(views []ViewDecl) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.views = append([]ViewDecl(nil), views...)
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.running = true

	var changes chan task.Change
	if m.bus != nil {
		changes = m.bus.Subscribe()
	}
	go m.loop(m.stopCh, m.doneCh, changes)
	log.Printf("monitor: started, %d views, interval %s", len(views), m.interval)
}

// Stop halts monitoring synchronously: when it returns, no further checks
// will run and the timer is cleared. Stopping an idle monitor is a no-op.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	stopCh, doneCh := m.stopCh, m.doneCh
	m.running = false
	m.mu.Unlock()

	close(stopCh)
	<-doneCh
	log.Printf("monitor: stopped")
}

// Running reports whether the monitor is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) loop(stopCh, doneCh chan struct{}, changes chan task.Change) {
	defer close(doneCh)
	if changes != nil {
		defer m.bus.Unsubscribe(changes)
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Debounce timer for change-triggered checks. Created stopped.
	trigger := time.NewTimer(m.debounce)
	if !trigger.Stop() {
		<-trigger.C
	}
	defer trigger.Stop()

	ctx := context.Background()
	m.Check(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			m.Check(ctx)
		case _, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			// Coalesce bursts of mutations into one off-schedule check.
			trigger.Reset(m.debounce)
		case <-trigger.C:
			m.Check(ctx)
		}
	}
}

// Check runs one validation cycle synchronously. A cycle already in
// progress is never re-entered; the overlapping call is dropped.
func (m *Monitor) Check(ctx context.Context) {
	if !m.checking.CompareAndSwap(false, true) {
		skippedCyclesTotal.Inc()
		return
	}
	defer m.checking.Store(false)

	m.mu.Lock()
	views := m.views
	m.mu.Unlock()
	if len(views) == 0 {
		return
	}

	snaps := make(map[string]snapshot.Snapshot, len(views))
	for _, v := range views {
		snaps[v.Name] = m.capturer.Capture(ctx, v.Name, v.Config)
	}

	var cycle []Mismatch
	record := func(mm Mismatch) {
		mm.Time = m.now()
		cycle = append(cycle, mm)
		if m.logbook.Add(mm) {
			mismatchesTotal.WithLabelValues(mm.Severity).Inc()
		}
	}

	m.runRule("subset", func() { m.subsetRule(views, snaps, record) })
	m.runRule("count_bound", func() { m.countBoundRule(views, snaps, record) })
	m.runRule("non_negativity", func() { m.nonNegativityRule(ctx, views, snaps, record) })

	m.mu.Lock()
	m.last = cycle
	m.mu.Unlock()

	checkCyclesTotal.Inc()
	mismatchLogSize.Set(float64(m.logbook.Len()))
}

// runRule contains a panic inside a single rule so the remaining rules and
// the monitor itself keep going.
func (m *Monitor) runRule(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("monitor: rule %s panicked: %v", name, r)
		}
	}()
	fn()
}

// subsetRule checks every declared subset-of relation: each task ID in the
// subset view must exist in the containing view.
func (m *Monitor) subsetRule(views []ViewDecl, snaps map[string]snapshot.Snapshot, record func(Mismatch)) {
	for _, v := range views {
		sub, ok := snaps[v.Name]
		if !ok || sub.Unavailable {
			continue
		}
		for _, containerName := range v.SubsetOf {
			container, ok := snaps[containerName]
			if !ok || container.Unavailable {
				continue
			}
			seen := make(map[string]struct{}, len(container.TaskIDs))
			for _, id := range container.TaskIDs {
				seen[id] = struct{}{}
			}
			orphans := 0
			for _, id := range sub.TaskIDs {
				if _, found := seen[id]; !found {
					orphans++
				}
			}
			if orphans == 0 {
				continue
			}
			record(Mismatch{
				Severity:      SeverityError,
				Type:          TypeTaskMissing,
				AffectedViews: []string{containerName, v.Name},
				Message:       fmt.Sprintf("%d task(s) in %q missing from %q", orphans, v.Name, containerName),
				Expected:      fmt.Sprintf("every task in %q present in %q", v.Name, containerName),
				Actual:        fmt.Sprintf("%d orphaned task(s)", orphans),
				ResolutionHint: fmt.Sprintf("check that the %q filter config is a strict narrowing of %q",
					v.Name, containerName),
			})
		}
	}
}

// countBoundRule checks |subset| <= |container| for declared subset pairs.
func (m *Monitor) countBoundRule(views []ViewDecl, snaps map[string]snapshot.Snapshot, record func(Mismatch)) {
	for _, v := range views {
		sub, ok := snaps[v.Name]
		if !ok || sub.Unavailable {
			continue
		}
		for _, containerName := range v.SubsetOf {
			container, ok := snaps[containerName]
			if !ok || container.Unavailable {
				continue
			}
			if sub.TaskCount <= container.TaskCount {
				continue
			}
			record(Mismatch{
				Severity:       SeverityError,
				Type:           TypeCountMismatch,
				AffectedViews:  []string{containerName, v.Name},
				Message:        fmt.Sprintf("%q has %d tasks but its superset %q has %d", v.Name, sub.TaskCount, containerName, container.TaskCount),
				Expected:       fmt.Sprintf("count(%q) <= count(%q)", v.Name, containerName),
				Actual:         fmt.Sprintf("%d > %d", sub.TaskCount, container.TaskCount),
				ResolutionHint: "a subset view can never outgrow its container; inspect both filter configs",
			})
		}
	}
}

// nonNegativityRule checks that derived counts stay non-negative: for a
// view that hides done tasks, the hidden-done count (unhidden minus
// hidden) must be >= 0.
func (m *Monitor) nonNegativityRule(ctx context.Context, views []ViewDecl, snaps map[string]snapshot.Snapshot, record func(Mismatch)) {
	for _, v := range views {
		if !v.Config.HideDone {
			continue
		}
		sub, ok := snaps[v.Name]
		if !ok || sub.Unavailable {
			continue
		}
		unhidden := v.Config
		unhidden.HideDone = false
		total, ok := m.capturer.Peek(ctx, unhidden)
		if !ok {
			continue
		}
		hidden := total - sub.TaskCount
		if hidden >= 0 {
			continue
		}
		record(Mismatch{
			Severity:       SeverityWarning,
			Type:           TypeLogicViolation,
			AffectedViews:  []string{v.Name},
			Message:        fmt.Sprintf("hidden-done count for %q is negative", v.Name),
			Expected:       "hidden-done count >= 0",
			Actual:         fmt.Sprintf("%d", hidden),
			ResolutionHint: "hide-done must only narrow a view; inspect the pipeline stages",
		})
	}
}

// Mismatches returns recorded mismatches, newest first, optionally
// filtered by severity and capped at limit.
func (m *Monitor) Mismatches(severity string, limit int) []Mismatch {
	return m.logbook.Recent(severity, limit)
}

// Summary reports the rolled-up status of the most recent check cycle.
func (m *Monitor) Summary() Summary {
	m.mu.Lock()
	last := m.last
	running := m.running
	m.mu.Unlock()

	counts := map[string]int{}
	for i := range last {
		counts[last[i].Severity]++
	}
	switch {
	case counts[SeverityError] > 0:
		return Summary{Status: SeverityError, Message: fmt.Sprintf("%d error mismatch(es) in last check", counts[SeverityError])}
	case counts[SeverityWarning] > 0:
		return Summary{Status: SeverityWarning, Message: fmt.Sprintf("%d warning mismatch(es) in last check", counts[SeverityWarning])}
	case counts[SeverityInfo] > 0:
		return Summary{Status: SeverityInfo, Message: fmt.Sprintf("%d informational mismatch(es) in last check", counts[SeverityInfo])}
	case !running:
		return Summary{Status: "healthy", Message: "monitor idle"}
	default:
		return Summary{Status: "healthy", Message: "all declared views consistent"}
	}
}
