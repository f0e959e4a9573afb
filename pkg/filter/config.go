// Package filter implements the pure staged pipeline that narrows a task
// collection according to a FilterConfig, along with the shared smart-view
// date predicates. Apply never mutates its input and never fails: malformed
// config values degrade with a trace warning instead of an error.
package filter

import "time"

// TimeFilter selects the time-window stage behavior.
type TimeFilter string

const (
	TimeUnset    TimeFilter = ""
	TimeAll      TimeFilter = "all"
	TimeNow      TimeFilter = "now"
	TimeToday    TimeFilter = "today"
	TimeTomorrow TimeFilter = "tomorrow"
	TimeThisWeek TimeFilter = "thisWeek"
	TimeNoDate   TimeFilter = "noDate"
)

// Known reports whether f is a recognized time filter value.
func (f TimeFilter) Known() bool {
	switch f {
	case TimeUnset, TimeAll, TimeNow, TimeToday, TimeTomorrow, TimeThisWeek, TimeNoDate:
		return true
	default:
		return false
	}
}

// SmartView selects a named predefined view with domain semantics beyond
// simple field equality.
type SmartView string

const (
	SmartNone  SmartView = ""
	SmartToday SmartView = "today"
	SmartWeek  SmartView = "week"
)

// Known reports whether v is a recognized smart view name.
func (v SmartView) Known() bool {
	switch v {
	case SmartNone, SmartToday, SmartWeek:
		return true
	default:
		return false
	}
}

// Config is an immutable per-invocation filter description. The zero value
// is the identity filter: every stage skipped, all tasks pass.
type Config struct {
	ProjectID         string     `json:"project_id,omitempty"`
	SmartView         SmartView  `json:"smart_view,omitempty"`
	StatusFilter      string     `json:"status_filter,omitempty"`
	HideDone          bool       `json:"hide_done,omitempty"`
	IncludeInboxOnly  bool       `json:"include_inbox_only,omitempty"`
	IncludeCanvasOnly bool       `json:"include_canvas_only,omitempty"`
	TimeFilter        TimeFilter `json:"time_filter,omitempty"`

	// WeekStart is the locale week-start day for "this week" windows.
	// The zero value is Sunday.
	WeekStart time.Weekday `json:"week_start,omitempty"`
}
