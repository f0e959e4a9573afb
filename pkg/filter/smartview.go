package filter

import (
	"time"

	"crossview/pkg/task"
)

// IsToday reports whether the task is relevant to today. This is a union,
// not an intersection: scheduled today (either representation), created
// today, due today, or currently in progress all qualify. Callers needing
// strict scheduling semantics must narrow further.
func IsToday(t *task.Task, now time.Time) bool {
	for _, occ := range Occurrences(t, now.Location()) {
		if sameDay(occ.Day, now) {
			return true
		}
	}
	if sameDay(t.CreatedAt.In(now.Location()), now) {
		return true
	}
	if due, ok := parseDay(t.DueDate, now.Location()); ok && sameDay(due, now) {
		return true
	}
	return t.Status == task.StatusInProgress
}

// IsTomorrow reports whether the task is scheduled or due tomorrow.
func IsTomorrow(t *task.Task, now time.Time) bool {
	tomorrow := startOfDay(now).AddDate(0, 0, 1)
	for _, occ := range Occurrences(t, now.Location()) {
		if sameDay(occ.Day, tomorrow) {
			return true
		}
	}
	if due, ok := parseDay(t.DueDate, now.Location()); ok && sameDay(due, tomorrow) {
		return true
	}
	return false
}

// InThisWeek reports whether the task is scheduled or due inside the
// calendar week containing now, from weekStart through 6 days later.
func InThisWeek(t *task.Task, now time.Time, weekStart time.Weekday) bool {
	first, last := weekBounds(now, weekStart)
	inWeek := func(day time.Time) bool {
		return !day.Before(first) && !day.After(last)
	}
	for _, occ := range Occurrences(t, now.Location()) {
		if inWeek(occ.Day) {
			return true
		}
	}
	if due, ok := parseDay(t.DueDate, now.Location()); ok && inWeek(due) {
		return true
	}
	return false
}

// HasNoDate reports whether the task carries no usable scheduling date in
// either representation. The due date is irrelevant to this classification.
func HasNoDate(t *task.Task, now time.Time) bool {
	return len(Occurrences(t, now.Location())) == 0
}

// IsNow reports whether the task is happening right now: in progress, or
// a timed occurrence today whose window contains now.
func IsNow(t *task.Task, now time.Time) bool {
	if t.Status == task.StatusInProgress {
		return true
	}
	for _, occ := range Occurrences(t, now.Location()) {
		if !occ.HasClock || !sameDay(occ.Day, now) {
			continue
		}
		if !now.Before(occ.Start) && now.Before(occ.Start.Add(occ.Duration)) {
			return true
		}
	}
	return false
}
