package consistency

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Mismatch severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Mismatch types.
const (
	TypeCountMismatch  = "count_mismatch"
	TypeTaskMissing    = "task_missing"
	TypeLogicViolation = "logic_violation"
)

// Mismatch is one detected violation of a declared cross-view invariant.
type Mismatch struct {
	ID             string    `json:"id"`
	Time           time.Time `json:"time"`
	Severity       string    `json:"severity"`
	Type           string    `json:"type"`
	AffectedViews  []string  `json:"affected_views"`
	Message        string    `json:"message"`
	Expected       string    `json:"expected"`
	Actual         string    `json:"actual"`
	ResolutionHint string    `json:"resolution_hint,omitempty"`
}

// DedupBucket is the width of the time bucket used to deduplicate repeat
// mismatches. A persistent condition produces one log entry per bucket
// instead of one per monitor tick. Tunable independently of rule logic.
const DedupBucket = 30 * time.Second

// DefaultLogCapacity bounds the mismatch log; the newest entries are retained.
const DefaultLogCapacity = 100

// dedupKey derives the identity of a mismatch for dedup purposes:
// same type, message, and views inside the same time bucket collapse.
func dedupKey(m *Mismatch) string {
	bucket := m.Time.Unix() / int64(DedupBucket/time.Second)
	return m.Type + "|" + m.Message + "|" + strings.Join(m.AffectedViews, ",") +
		"|" + time.Unix(bucket, 0).UTC().Format(time.RFC3339)
}

// Log is a bounded, deduplicated, append-only mismatch log.
type Log struct {
	mu       sync.Mutex
	capacity int
	entries  []Mismatch
}

// NewLog creates a Log holding at most capacity entries.
func NewLog(capacity int) *Log {
	if capacity < 1 {
		capacity = DefaultLogCapacity
	}
	return &Log{capacity: capacity}
}

// Add appends a mismatch unless an equivalent entry already exists in the
// same dedup bucket. It assigns the ID and reports whether the entry was
// recorded.
func (l *Log) Add(m Mismatch) bool {
	key := dedupKey(&m)
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.entries {
		if dedupKey(&l.entries[i]) == key {
			return false
		}
	}
	m.ID = uuid.Must(uuid.NewV7()).String()
	l.entries = append(l.entries, m)
	if over := len(l.entries) - l.capacity; over > 0 {
		l.entries = append([]Mismatch(nil), l.entries[over:]...)
	}
	return true
}

// Recent returns up to limit entries, newest first, optionally filtered by
// severity. A non-positive limit means no cap.
func (l *Log) Recent(severity string, limit int) []Mismatch {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Mismatch
	for i := len(l.entries) - 1; i >= 0; i-- {
		if severity != "" && l.entries[i].Severity != severity {
			continue
		}
		out = append(out, l.entries[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Clear drops all entries.
func (l *Log) Clear() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
}
