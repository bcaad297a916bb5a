package baseline

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/Elemanor/renonext-sub004/internal/cpm"
	"github.com/Elemanor/renonext-sub004/internal/graph"
)

func analyze(t *testing.T, tasks []graph.Task, links []graph.Link) *cpm.CPMResult {
	t.Helper()
	g, err := graph.Build(tasks, links)
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	result, err := cpm.Analyze(g)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	return result
}

func fs(pred, succ string) graph.Link {
	return graph.Link{PredecessorID: pred, SuccessorID: succ, Type: graph.FinishToStart}
}

func baseSchedule(t *testing.T) *cpm.CPMResult {
	return analyze(t,
		[]graph.Task{
			{ID: "a", DurationDays: 2},
			{ID: "b", DurationDays: 3},
			{ID: "c", DurationDays: 1},
			{ID: "d", DurationDays: 1},
			{ID: "f", DurationDays: 1},
		},
		[]graph.Link{fs("a", "b"), fs("b", "c"), fs("a", "d")},
	)
}

func TestSaveAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "baselines")
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

	if Exists(dir) {
		t.Fatal("baseline should not exist yet")
	}

	s := Capture(baseSchedule(t), now)
	if err := s.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !Exists(dir) {
		t.Fatal("baseline should exist after Save")
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !loaded.CapturedAt.Equal(now) {
		t.Errorf("expected captured_at %v, got %v", now, loaded.CapturedAt)
	}
	if loaded.ProjectDuration != 6 {
		t.Errorf("expected project duration 6, got %v", loaded.ProjectDuration)
	}
	if !reflect.DeepEqual(loaded.CriticalPath, []string{"a", "b", "c"}) {
		t.Errorf("expected critical path [a b c], got %v", loaded.CriticalPath)
	}
	if len(loaded.Tasks) != 5 {
		t.Fatalf("expected 5 tasks, got %d", len(loaded.Tasks))
	}
	if d := loaded.Tasks["d"]; d.ES != 2 || d.EF != 3 || d.Float != 3 || d.IsCritical {
		t.Errorf("unexpected baseline for d: %+v", d)
	}

	if err := Clean(dir); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if Exists(dir) {
		t.Error("baseline should be gone after Clean")
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("expected error loading a missing baseline")
	}
}

func TestLoad_Corrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(Path(dir), []byte("{not json"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("expected parse error")
	}
}

func TestPath_DefaultDir(t *testing.T) {
	if got, want := Path(""), filepath.Join(DefaultDir, "baseline.json"); got != want {
		t.Errorf("Path(\"\") = %q, want %q", got, want)
	}
}

func TestCompare(t *testing.T) {
	base := Capture(baseSchedule(t), time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))

	// b grows by 2 days, d grows past the b-c chain, f is dropped, e is new.
	current := analyze(t,
		[]graph.Task{
			{ID: "a", DurationDays: 2},
			{ID: "b", DurationDays: 5},
			{ID: "c", DurationDays: 1},
			{ID: "d", DurationDays: 8},
			{ID: "e", DurationDays: 1},
		},
		[]graph.Link{fs("a", "b"), fs("b", "c"), fs("a", "d")},
	)

	v := Compare(base, current)

	if v.DurationDelta != 4 {
		t.Errorf("expected duration delta 4, got %v", v.DurationDelta)
	}
	if !reflect.DeepEqual(v.Added, []string{"e"}) {
		t.Errorf("expected added [e], got %v", v.Added)
	}
	if !reflect.DeepEqual(v.Removed, []string{"f"}) {
		t.Errorf("expected removed [f], got %v", v.Removed)
	}

	want := []TaskVariance{
		{TaskID: "a", WasCritical: true, IsCritical: true},
		{TaskID: "b", FinishSlip: 2, WasCritical: true},
		{TaskID: "c", StartSlip: 2, FinishSlip: 2, WasCritical: true},
		{TaskID: "d", FinishSlip: 7, IsCritical: true},
	}
	if !reflect.DeepEqual(v.Tasks, want) {
		t.Errorf("unexpected task variance:\n got  %+v\n want %+v", v.Tasks, want)
	}

	if v.Tasks[0].CriticalityChanged() {
		t.Error("a stayed critical")
	}
	if !v.Tasks[3].CriticalityChanged() {
		t.Error("d became critical")
	}

	var slipped []string
	for _, tv := range v.Slipped() {
		slipped = append(slipped, tv.TaskID)
	}
	if !reflect.DeepEqual(slipped, []string{"b", "c", "d"}) {
		t.Errorf("expected slipped [b c d], got %v", slipped)
	}
}

func TestCompare_Unchanged(t *testing.T) {
	result := baseSchedule(t)
	v := Compare(Capture(result, time.Now()), result)

	if v.DurationDelta != 0 || len(v.Added) != 0 || len(v.Removed) != 0 {
		t.Errorf("expected no structural change, got %+v", v)
	}
	if len(v.Slipped()) != 0 {
		t.Errorf("expected no slipped tasks, got %v", v.Slipped())
	}
}

func TestSnapshot_CopyByValue(t *testing.T) {
	orig := Capture(baseSchedule(t), time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))

	copied := *orig
	copied.ProjectDuration = 10

	dir := t.TempDir()
	if err := copied.Save(dir); err != nil {
		t.Fatalf("Save copy: %v", err)
	}
	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.ProjectDuration != 10 {
		t.Errorf("expected saved copy duration 10, got %v", loaded.ProjectDuration)
	}
	if orig.ProjectDuration != 6 {
		t.Errorf("expected original duration 6 untouched, got %v", orig.ProjectDuration)
	}
	if !reflect.DeepEqual(loaded.CriticalPath, orig.CriticalPath) {
		t.Errorf("expected critical path %v, got %v", orig.CriticalPath, loaded.CriticalPath)
	}
}
