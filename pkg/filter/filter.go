package filter

import (
	"fmt"
	"time"

	"crossview/pkg/task"
)

// StageTrace records what one pipeline stage did.
type StageTrace struct {
	Stage   string `json:"stage"`
	In      int    `json:"in"`
	Out     int    `json:"out"`
	Skipped bool   `json:"skipped,omitempty"`
	Note    string `json:"note,omitempty"`
}

// Trace is the reproducible debug record of one Apply invocation.
type Trace struct {
	Now      time.Time    `json:"now"`
	Stages   []StageTrace `json:"stages"`
	Warnings []string     `json:"warnings,omitempty"`
}

// Result is the output of one pipeline run.
type Result struct {
	Tasks []task.Task `json:"tasks"`
	Trace Trace       `json:"trace"`
}

// IDs returns the ordered task IDs of the result.
func (r Result) IDs() []string {
	ids := make([]string, len(r.Tasks))
	for i := range r.Tasks {
		ids[i] = r.Tasks[i].ID
	}
	return ids
}

// Apply runs the filter pipeline over tasks. It is pure: the input slice is
// never mutated, no global state is consulted, and every time predicate
// shares the single injected now, so a midnight rollover mid-computation
// cannot split one run across two days.
//
// Stages run in a fixed canonical order: project, smart-view, time-window,
// status, hide-done, location. All stages are narrowing intersections, so
// the order only matters for trace reproducibility. A stage whose config
// field is unset is skipped. Garbage enum values match nothing and add a
// trace warning; they never fail the run.
func Apply(tasks []task.Task, cfg Config, now time.Time) Result {
	p := &run{cfg: cfg, now: now}
	p.tasks = append([]task.Task(nil), tasks...)

	p.stage("project", cfg.ProjectID != "", func(t *task.Task) bool {
		return t.ProjectID == cfg.ProjectID
	})
	p.smartViewStage()
	p.timeWindowStage()
	p.statusStage()
	p.stage("hide_done", cfg.HideDone, func(t *task.Task) bool {
		return t.Status != task.StatusDone
	})
	p.locationStage()

	return Result{Tasks: p.tasks, Trace: Trace{Now: now, Stages: p.stages, Warnings: p.warnings}}
}

type run struct {
	cfg      Config
	now      time.Time
	tasks    []task.Task
	stages   []StageTrace
	warnings []string
}

// validWeekStart bounds WeekStart to real weekdays. time.Weekday is a bare
// int under the hood, so JSON input can carry any value.
func validWeekStart(d time.Weekday) bool {
	return d >= time.Sunday && d <= time.Saturday
}

func (p *run) warnf(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

// stage applies a keep-predicate when enabled, recording a trace entry
// either way.
func (p *run) stage(name string, enabled bool, keep func(*task.Task) bool) {
	st := StageTrace{Stage: name, In: len(p.tasks)}
	if !enabled {
		st.Out = st.In
		st.Skipped = true
		p.stages = append(p.stages, st)
		return
	}
	kept := p.tasks[:0]
	for i := range p.tasks {
		if keep(&p.tasks[i]) {
			kept = append(kept, p.tasks[i])
		}
	}
	p.tasks = kept
	st.Out = len(p.tasks)
	p.stages = append(p.stages, st)
}

// dropAll empties the result for a garbage config value, recording why.
func (p *run) dropAll(name, note string) {
	st := StageTrace{Stage: name, In: len(p.tasks), Out: 0, Note: note}
	p.tasks = p.tasks[:0]
	p.stages = append(p.stages, st)
}

func (p *run) smartViewStage() {
	const name = "smart_view"
	switch p.cfg.SmartView {
	case SmartNone:
		p.stage(name, false, nil)
	case SmartToday:
		p.stage(name, true, func(t *task.Task) bool { return IsToday(t, p.now) })
	case SmartWeek:
		if !validWeekStart(p.cfg.WeekStart) {
			p.warnf("week start %d out of range", p.cfg.WeekStart)
			p.dropAll(name, "invalid week start")
			return
		}
		p.stage(name, true, func(t *task.Task) bool { return InThisWeek(t, p.now, p.cfg.WeekStart) })
	default:
		p.warnf("unknown smart view %q", p.cfg.SmartView)
		p.dropAll(name, "unknown smart view")
	}
}

func (p *run) timeWindowStage() {
	const name = "time_window"
	switch p.cfg.TimeFilter {
	case TimeUnset, TimeAll:
		p.stage(name, false, nil)
	case TimeNow:
		p.stage(name, true, func(t *task.Task) bool { return IsNow(t, p.now) })
	case TimeToday:
		p.stage(name, true, func(t *task.Task) bool { return IsToday(t, p.now) })
	case TimeTomorrow:
		p.stage(name, true, func(t *task.Task) bool { return IsTomorrow(t, p.now) })
	case TimeThisWeek:
		if !validWeekStart(p.cfg.WeekStart) {
			p.warnf("week start %d out of range", p.cfg.WeekStart)
			p.dropAll(name, "invalid week start")
			return
		}
		p.stage(name, true, func(t *task.Task) bool { return InThisWeek(t, p.now, p.cfg.WeekStart) })
	case TimeNoDate:
		// The window holds undated leftovers: tasks already relevant to
		// today (created today, due today, in progress) are not shown here
		// even when they carry no schedule.
		p.stage(name, true, func(t *task.Task) bool {
			return HasNoDate(t, p.now) && !IsToday(t, p.now)
		})
	default:
		p.warnf("unknown time filter %q", p.cfg.TimeFilter)
		p.dropAll(name, "unknown time filter")
	}
}

func (p *run) statusStage() {
	const name = "status"
	if p.cfg.StatusFilter == "" {
		p.stage(name, false, nil)
		return
	}
	if !task.ValidStatus(p.cfg.StatusFilter) {
		p.warnf("unknown status filter %q", p.cfg.StatusFilter)
		p.dropAll(name, "unknown status filter")
		return
	}
	p.stage(name, true, func(t *task.Task) bool { return t.Status == p.cfg.StatusFilter })
}

func (p *run) locationStage() {
	const name = "location"
	if p.cfg.IncludeInboxOnly && p.cfg.IncludeCanvasOnly {
		// Mutually exclusive flags both set: degrade to pass-through.
		p.warnf("include_inbox_only and include_canvas_only are mutually exclusive; ignoring both")
		p.stage(name, false, nil)
		return
	}
	switch {
	case p.cfg.IncludeInboxOnly:
		p.stage(name, true, func(t *task.Task) bool { return t.InInbox() })
	case p.cfg.IncludeCanvasOnly:
		p.stage(name, true, func(t *task.Task) bool { return t.OnCanvas() })
	default:
		p.stage(name, false, nil)
	}
}
