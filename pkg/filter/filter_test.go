package filter

import (
	"reflect"
	"testing"
	"time"

	"crossview/pkg/task"
)

// fixedNow is a mid-afternoon reference shared by the pipeline tests so
// day-boundary behavior is deterministic.
var fixedNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC) // a Tuesday

func day(offset int) string {
	return fixedNow.AddDate(0, 0, offset).Format(DateLayout)
}

func sampleTasks() []task.Task {
	earlier := fixedNow.AddDate(0, 0, -3)
	return []task.Task{
		{ID: "t1", Title: "board work", ProjectID: "board", Status: task.StatusPlanned,
			ScheduledDate: day(0), CreatedAt: earlier},
		{ID: "t2", Title: "done chore", ProjectID: "board", Status: task.StatusDone,
			CreatedAt: earlier},
		{ID: "t3", Title: "undated", Status: task.StatusBacklog, CreatedAt: earlier},
		{ID: "t4", Title: "canvas idea", Status: task.StatusBacklog,
			CanvasPosition: &task.CanvasPosition{X: 10, Y: 20}, CreatedAt: earlier},
		{ID: "t5", Title: "active", Status: task.StatusInProgress, CreatedAt: earlier},
		{ID: "t6", Title: "next week", Status: task.StatusPlanned,
			Instances: []task.Instance{{ScheduledDate: day(10)}}, CreatedAt: earlier},
	}
}

// TestApplyIdentity verifies the zero config passes every task through
// unchanged, in order.
func TestApplyIdentity(t *testing.T) {
	tasks := sampleTasks()
	res := Apply(tasks, Config{}, fixedNow)
	if len(res.Tasks) != len(tasks) {
		t.Fatalf("identity filter: want %d tasks, got %d", len(tasks), len(res.Tasks))
	}
	for i := range tasks {
		if res.Tasks[i].ID != tasks[i].ID {
			t.Errorf("order changed at %d: want %s, got %s", i, tasks[i].ID, res.Tasks[i].ID)
		}
	}
	for _, st := range res.Trace.Stages {
		if !st.Skipped {
			t.Errorf("stage %s should be skipped for the zero config", st.Stage)
		}
	}
}

// TestApplyDoesNotMutateInput verifies purity: the caller's slice is
// untouched even when most tasks are filtered away.
func TestApplyDoesNotMutateInput(t *testing.T) {
	tasks := sampleTasks()
	before := make([]string, len(tasks))
	for i := range tasks {
		before[i] = tasks[i].ID
	}
	Apply(tasks, Config{ProjectID: "board"}, fixedNow)
	for i := range tasks {
		if tasks[i].ID != before[i] {
			t.Fatalf("input mutated at %d: want %s, got %s", i, before[i], tasks[i].ID)
		}
	}
}

// TestApplyIdempotent verifies two identical runs yield identical ordered
// id sequences.
func TestApplyIdempotent(t *testing.T) {
	tasks := sampleTasks()
	cfg := Config{SmartView: SmartToday, HideDone: true}
	first := Apply(tasks, cfg, fixedNow).IDs()
	second := Apply(tasks, cfg, fixedNow).IDs()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("not idempotent: %v vs %v", first, second)
	}
}

// TestHideDoneMonotonic verifies count(hideDone=true) <= count(hideDone=false)
// across several base configs.
func TestHideDoneMonotonic(t *testing.T) {
	tasks := sampleTasks()
	bases := []Config{
		{},
		{ProjectID: "board"},
		{SmartView: SmartToday},
		{TimeFilter: TimeNoDate},
	}
	for _, base := range bases {
		with := base
		with.HideDone = true
		nWith := len(Apply(tasks, with, fixedNow).Tasks)
		nWithout := len(Apply(tasks, base, fixedNow).Tasks)
		if nWith > nWithout {
			t.Errorf("config %+v: hideDone grew the result: %d > %d", base, nWith, nWithout)
		}
	}
}

// TestTodaySubsetOfAll verifies the smart-view today result is contained
// in the unfiltered result.
func TestTodaySubsetOfAll(t *testing.T) {
	tasks := sampleTasks()
	all := make(map[string]struct{})
	for _, id := range Apply(tasks, Config{}, fixedNow).IDs() {
		all[id] = struct{}{}
	}
	for _, id := range Apply(tasks, Config{SmartView: SmartToday}, fixedNow).IDs() {
		if _, ok := all[id]; !ok {
			t.Errorf("today view contains %s, absent from the all view", id)
		}
	}
}

// TestProjectStage verifies project scoping keeps only matching tasks.
func TestProjectStage(t *testing.T) {
	res := Apply(sampleTasks(), Config{ProjectID: "board"}, fixedNow)
	want := []string{"t1", "t2"}
	if !reflect.DeepEqual(res.IDs(), want) {
		t.Fatalf("project filter: want %v, got %v", want, res.IDs())
	}
}

// TestStatusStage verifies status equality filtering and that an unknown
// status value matches nothing with a warning instead of failing.
func TestStatusStage(t *testing.T) {
	res := Apply(sampleTasks(), Config{StatusFilter: task.StatusInProgress}, fixedNow)
	if got := res.IDs(); !reflect.DeepEqual(got, []string{"t5"}) {
		t.Fatalf("status filter: want [t5], got %v", got)
	}

	garbage := Apply(sampleTasks(), Config{StatusFilter: "bogus"}, fixedNow)
	if len(garbage.Tasks) != 0 {
		t.Errorf("garbage status should match nothing, got %d tasks", len(garbage.Tasks))
	}
	if len(garbage.Trace.Warnings) == 0 {
		t.Error("garbage status should add a trace warning")
	}
}

// TestUnknownEnumValues verifies garbage smart-view and time-filter values
// resolve to no match plus a warning, never a panic.
func TestUnknownEnumValues(t *testing.T) {
	for _, cfg := range []Config{
		{SmartView: "someday"},
		{TimeFilter: "fortnight"},
	} {
		res := Apply(sampleTasks(), cfg, fixedNow)
		if len(res.Tasks) != 0 {
			t.Errorf("config %+v: want no match, got %d tasks", cfg, len(res.Tasks))
		}
		if len(res.Trace.Warnings) != 1 {
			t.Errorf("config %+v: want 1 warning, got %v", cfg, res.Trace.Warnings)
		}
	}
}

// TestInvalidWeekStart verifies an out-of-range week start degrades like
// the other garbage enum values: no match plus a trace warning, never a
// silently shifted window.
func TestInvalidWeekStart(t *testing.T) {
	tasks := []task.Task{
		{ID: "scheduled", Status: task.StatusPlanned, ScheduledDate: day(0),
			CreatedAt: fixedNow.AddDate(0, 0, -3)},
	}
	for _, cfg := range []Config{
		{TimeFilter: TimeThisWeek, WeekStart: 11},
		{SmartView: SmartWeek, WeekStart: -1},
	} {
		res := Apply(tasks, cfg, fixedNow)
		if len(res.Tasks) != 0 {
			t.Errorf("config %+v: want no match, got %v", cfg, res.IDs())
		}
		if len(res.Trace.Warnings) != 1 {
			t.Errorf("config %+v: want 1 warning, got %v", cfg, res.Trace.Warnings)
		}
	}

	// every real weekday is accepted
	for d := time.Sunday; d <= time.Saturday; d++ {
		res := Apply(tasks, Config{TimeFilter: TimeThisWeek, WeekStart: d}, fixedNow)
		if got := res.IDs(); !reflect.DeepEqual(got, []string{"scheduled"}) {
			t.Errorf("week start %v: want [scheduled], got %v", d, got)
		}
	}
}

// TestLocationStages verifies inbox and canvas scoping, and that setting
// both mutually exclusive flags degrades to pass-through with a warning.
func TestLocationStages(t *testing.T) {
	tasks := sampleTasks()

	inbox := Apply(tasks, Config{IncludeInboxOnly: true}, fixedNow)
	for _, got := range inbox.Tasks {
		if got.ProjectID != "" || got.CanvasPosition != nil {
			t.Errorf("inbox view leaked task %s", got.ID)
		}
	}

	canvas := Apply(tasks, Config{IncludeCanvasOnly: true}, fixedNow)
	if got := canvas.IDs(); !reflect.DeepEqual(got, []string{"t4"}) {
		t.Fatalf("canvas view: want [t4], got %v", got)
	}

	both := Apply(tasks, Config{IncludeInboxOnly: true, IncludeCanvasOnly: true}, fixedNow)
	if len(both.Tasks) != len(tasks) {
		t.Errorf("both location flags should pass through, got %d of %d", len(both.Tasks), len(tasks))
	}
	if len(both.Trace.Warnings) != 1 {
		t.Errorf("both location flags should warn once, got %v", both.Trace.Warnings)
	}
}

// TestCreatedTodayWindowClassification verifies a task created today with
// no scheduling fields is included by the today window but excluded from
// the noDate window.
func TestCreatedTodayWindowClassification(t *testing.T) {
	tasks := []task.Task{
		{ID: "fresh", Status: task.StatusBacklog, CreatedAt: fixedNow.Add(-time.Hour)},
		{ID: "stale", Status: task.StatusBacklog, CreatedAt: fixedNow.AddDate(0, 0, -5)},
	}

	today := Apply(tasks, Config{TimeFilter: TimeToday}, fixedNow)
	if got := today.IDs(); !reflect.DeepEqual(got, []string{"fresh"}) {
		t.Fatalf("today window: want [fresh], got %v", got)
	}

	noDate := Apply(tasks, Config{TimeFilter: TimeNoDate}, fixedNow)
	if got := noDate.IDs(); !reflect.DeepEqual(got, []string{"stale"}) {
		t.Fatalf("noDate window: want [stale], got %v", got)
	}
}

// TestMalformedDatesFailSoft verifies garbage date strings classify the
// task as undated instead of failing the run.
func TestMalformedDatesFailSoft(t *testing.T) {
	tasks := []task.Task{
		{ID: "garbage", Status: task.StatusBacklog, ScheduledDate: "not-a-date",
			Instances: []task.Instance{{ScheduledDate: "13/45/20xx"}},
			CreatedAt: fixedNow.AddDate(0, 0, -2)},
	}
	res := Apply(tasks, Config{TimeFilter: TimeNoDate}, fixedNow)
	if got := res.IDs(); !reflect.DeepEqual(got, []string{"garbage"}) {
		t.Fatalf("malformed dates should classify as no date, got %v", got)
	}
}

// TestStageOrderFixed verifies the canonical stage order in the trace.
func TestStageOrderFixed(t *testing.T) {
	res := Apply(sampleTasks(), Config{}, fixedNow)
	want := []string{"project", "smart_view", "time_window", "status", "hide_done", "location"}
	if len(res.Trace.Stages) != len(want) {
		t.Fatalf("want %d stages, got %d", len(want), len(res.Trace.Stages))
	}
	for i, st := range res.Trace.Stages {
		if st.Stage != want[i] {
			t.Errorf("stage %d: want %s, got %s", i, want[i], st.Stage)
		}
	}
}

// TestLegacyAndInstanceFormsNormalizeIdentically verifies both scheduling
// representations produce the same today classification.
func TestLegacyAndInstanceFormsNormalizeIdentically(t *testing.T) {
	old := fixedNow.AddDate(0, 0, -3)
	legacy := task.Task{ID: "legacy", Status: task.StatusBacklog, ScheduledDate: day(0), CreatedAt: old}
	modern := task.Task{ID: "modern", Status: task.StatusBacklog,
		Instances: []task.Instance{{ScheduledDate: day(0)}}, CreatedAt: old}

	res := Apply([]task.Task{legacy, modern}, Config{TimeFilter: TimeToday}, fixedNow)
	if got := res.IDs(); !reflect.DeepEqual(got, []string{"legacy", "modern"}) {
		t.Fatalf("both forms should classify as today, got %v", got)
	}
}
