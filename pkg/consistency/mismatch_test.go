package consistency

import (
	"fmt"
	"testing"
	"time"
)

var logNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func mismatchAt(ts time.Time, msg string) Mismatch {
	return Mismatch{
		Time:          ts,
		Severity:      SeverityError,
		Type:          TypeCountMismatch,
		AffectedViews: []string{"all", "today"},
		Message:       msg,
		Expected:      "5",
		Actual:        "7",
	}
}

// TestLogDedupWithinBucket verifies an identical mismatch inside the same
// time bucket is dropped, while one in the next bucket is recorded.
func TestLogDedupWithinBucket(t *testing.T) {
	l := NewLog(DefaultLogCapacity)

	if !l.Add(mismatchAt(logNow, "count drift")) {
		t.Fatal("first entry should be recorded")
	}
	if l.Add(mismatchAt(logNow.Add(5*time.Second), "count drift")) {
		t.Error("repeat inside the dedup bucket should be dropped")
	}
	if l.Len() != 1 {
		t.Fatalf("want 1 entry, got %d", l.Len())
	}

	if !l.Add(mismatchAt(logNow.Add(DedupBucket), "count drift")) {
		t.Error("same condition in the next bucket should be recorded")
	}
	if l.Len() != 2 {
		t.Fatalf("want 2 entries, got %d", l.Len())
	}
}

// TestLogDedupDiscriminators verifies a different message, type, or view set
// is never collapsed.
func TestLogDedupDiscriminators(t *testing.T) {
	l := NewLog(DefaultLogCapacity)
	base := mismatchAt(logNow, "count drift")
	l.Add(base)

	other := base
	other.Message = "other drift"
	if !l.Add(other) {
		t.Error("different message must not dedup")
	}

	other = base
	other.Type = TypeTaskMissing
	if !l.Add(other) {
		t.Error("different type must not dedup")
	}

	other = base
	other.AffectedViews = []string{"all", "inbox"}
	if !l.Add(other) {
		t.Error("different views must not dedup")
	}
}

// TestLogCapacityEvictsOldest verifies the log is bounded and keeps the
// newest entries.
func TestLogCapacityEvictsOldest(t *testing.T) {
	l := NewLog(3)
	for i := 0; i < 5; i++ {
		l.Add(mismatchAt(logNow.Add(time.Duration(i)*time.Minute), fmt.Sprintf("drift %d", i)))
	}
	if l.Len() != 3 {
		t.Fatalf("want 3 retained, got %d", l.Len())
	}
	got := l.Recent("", 0)
	if got[0].Message != "drift 4" || got[len(got)-1].Message != "drift 2" {
		t.Fatalf("wrong entries retained: %+v", got)
	}
}

// TestLogRecentFilterAndLimit verifies severity filtering, newest-first
// ordering, and the limit cap.
func TestLogRecentFilterAndLimit(t *testing.T) {
	l := NewLog(DefaultLogCapacity)
	for i := 0; i < 4; i++ {
		m := mismatchAt(logNow.Add(time.Duration(i)*time.Minute), fmt.Sprintf("e%d", i))
		if i%2 == 1 {
			m.Severity = SeverityWarning
		}
		l.Add(m)
	}

	errs := l.Recent(SeverityError, 0)
	if len(errs) != 2 || errs[0].Message != "e2" || errs[1].Message != "e0" {
		t.Fatalf("error filter: %+v", errs)
	}

	capped := l.Recent("", 1)
	if len(capped) != 1 || capped[0].Message != "e3" {
		t.Fatalf("limit: %+v", capped)
	}

	if got := l.Recent(SeverityInfo, 0); len(got) != 0 {
		t.Fatalf("info filter: want none, got %+v", got)
	}
}

// TestLogAddAssignsID verifies every recorded entry gets a unique ID.
func TestLogAddAssignsID(t *testing.T) {
	l := NewLog(DefaultLogCapacity)
	l.Add(mismatchAt(logNow, "a"))
	l.Add(mismatchAt(logNow, "b"))
	got := l.Recent("", 0)
	if got[0].ID == "" || got[1].ID == "" || got[0].ID == got[1].ID {
		t.Fatalf("bad IDs: %q %q", got[0].ID, got[1].ID)
	}
}

// TestLogClear verifies Clear empties the log and re-allows entries from a
// previously seen bucket.
func TestLogClear(t *testing.T) {
	l := NewLog(DefaultLogCapacity)
	l.Add(mismatchAt(logNow, "drift"))
	l.Clear()
	if l.Len() != 0 {
		t.Fatalf("want empty log, got %d", l.Len())
	}
	if !l.Add(mismatchAt(logNow, "drift")) {
		t.Error("cleared log should accept the entry again")
	}
}
