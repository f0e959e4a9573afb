package filter

import (
	"time"

	"crossview/pkg/task"
)

// DateLayout is the calendar-date wire format used by scheduling fields.
const DateLayout = "2006-01-02"

// TimeLayout is the clock-time wire format used by scheduling fields.
const TimeLayout = "15:04"

// DefaultOccurrenceMinutes is the assumed length of a timed occurrence
// whose duration is unset, used by the "now" window.
const DefaultOccurrenceMinutes = 30

// Occurrence is the normalized shape both scheduling representations
// (Instance list and the legacy single scheduledDate/scheduledTime pair)
// reduce to before any date predicate runs. This is the single seam of
// truth for date extraction.
type Occurrence struct {
	Day      time.Time // midnight, local
	HasClock bool
	Start    time.Time // Day + clock time; valid only when HasClock
	Duration time.Duration
}

// parseDay parses a YYYY-MM-DD string. Malformed input reports ok=false;
// the caller classifies the field as "no date" rather than erroring.
func parseDay(s string, loc *time.Location) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	d, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// Occurrences flattens a task's scheduling into normalized occurrences.
// Instances and the legacy pair are both consulted; entries with malformed
// dates are silently dropped, so a task whose only dates are garbage ends
// up with zero occurrences and classifies as "no date".
func Occurrences(t *task.Task, loc *time.Location) []Occurrence {
	var out []Occurrence
	for _, in := range t.Instances {
		if occ, ok := newOccurrence(in.ScheduledDate, in.ScheduledTime, in.Duration, loc); ok {
			out = append(out, occ)
		}
	}
	if t.ScheduledDate != "" {
		if occ, ok := newOccurrence(t.ScheduledDate, t.ScheduledTime, 0, loc); ok {
			out = append(out, occ)
		}
	}
	return out
}

func newOccurrence(date, clock string, minutes int, loc *time.Location) (Occurrence, bool) {
	day, ok := parseDay(date, loc)
	if !ok {
		return Occurrence{}, false
	}
	occ := Occurrence{Day: day}
	if minutes <= 0 {
		minutes = DefaultOccurrenceMinutes
	}
	occ.Duration = time.Duration(minutes) * time.Minute
	if clock != "" {
		if c, err := time.ParseInLocation(TimeLayout, clock, loc); err == nil {
			occ.HasClock = true
			occ.Start = day.Add(time.Duration(c.Hour())*time.Hour + time.Duration(c.Minute())*time.Minute)
		}
	}
	return occ, true
}

func sameDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// startOfDay truncates t to local midnight.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// weekBounds returns the first and last day (inclusive) of the calendar
// week containing now, starting on weekStart.
func weekBounds(now time.Time, weekStart time.Weekday) (time.Time, time.Time) {
	day := startOfDay(now)
	offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
	first := day.AddDate(0, 0, -offset)
	last := first.AddDate(0, 0, 6)
	return first, last
}
