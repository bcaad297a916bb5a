package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/Elemanor/renonext-sub004/internal/baseline"
	"github.com/Elemanor/renonext-sub004/internal/blueprint"
	"github.com/Elemanor/renonext-sub004/internal/config"
	"github.com/Elemanor/renonext-sub004/internal/cpm"
	"github.com/Elemanor/renonext-sub004/internal/errs"
	"github.com/Elemanor/renonext-sub004/internal/graph"
	"github.com/Elemanor/renonext-sub004/internal/rows"
)

func filterGraph(t *testing.T) *graph.TaskGraph {
	t.Helper()
	g, err := graph.Build(
		[]graph.Task{
			{ID: "a", Status: graph.StatusCompleted, AssignedCompany: "Northside Electric"},
			{ID: "b", Status: graph.StatusInProgress, AssignedCompany: "Northside Electric"},
			{ID: "c", Status: graph.StatusInProgress, AssignedCompany: "Birchwood Plumbing"},
		},
		[]graph.Link{
			{PredecessorID: "a", SuccessorID: "b"},
			{PredecessorID: "b", SuccessorID: "c"},
		},
	)
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	return g
}

func TestApplyFilter(t *testing.T) {
	tests := []struct {
		filter string
		ids    []string
		links  int
	}{
		{"status=in_progress", []string{"b", "c"}, 1},
		{"company=northside electric", []string{"a", "b"}, 1},
		{"company=Nobody", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			g, err := applyFilter(filterGraph(t), tt.filter)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := g.IDs()
			if len(got) != len(tt.ids) {
				t.Fatalf("expected %v, got %v", tt.ids, got)
			}
			for i := range got {
				if got[i] != tt.ids[i] {
					t.Errorf("expected %v, got %v", tt.ids, got)
				}
			}
			if len(g.Links) != tt.links {
				t.Errorf("expected %d links, got %d", tt.links, len(g.Links))
			}
		})
	}
}

func TestApplyFilter_Errors(t *testing.T) {
	for _, filter := range []string{"status=sleeping", "priority<=1"} {
		if _, err := applyFilter(filterGraph(t), filter); err == nil {
			t.Errorf("expected error for filter %q", filter)
		}
	}
}

func TestClock(t *testing.T) {
	defer func() { flagNow = "" }()

	flagNow = "2026-06-01"
	c, err := clock()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := c.Now().Format("2006-01-02"); got != "2026-06-01" {
		t.Errorf("expected fixed clock at 2026-06-01, got %s", got)
	}

	flagNow = "June 1st"
	if _, err := clock(); err == nil {
		t.Error("expected error for malformed --now")
	}
}

func TestMilestoneDeriver_AllowEmpty(t *testing.T) {
	defer func() { flagAllowEmpty = false }()

	steps := []blueprint.SequenceStep{{StepNumber: 1, Title: "Site visit"}}
	tests := []struct {
		name      string
		flag      bool
		configSet bool
		wantErr   bool
	}{
		{"neither", false, false, true},
		{"flag only", true, false, false},
		{"config only", false, true, false},
		{"both", true, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flagAllowEmpty = tt.flag
			cfg := config.Default()
			cfg.Milestones.AllowEmpty = tt.configSet

			ms, err := milestoneDeriver(cfg).Derive(steps, 1000)
			if tt.wantErr {
				if !errs.Is(err, errs.NoPaymentMilestones) {
					t.Errorf("expected NoPaymentMilestones, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(ms) != 0 {
				t.Errorf("expected empty schedule, got %v", ms)
			}
		})
	}
}

func TestContractTotal(t *testing.T) {
	defer func() { flagTotalCost = 0 }()

	cmd := milestonesCmd()
	b := &rows.Blueprint{TotalCost: 18500}

	if got := contractTotal(cmd, b); got != 18500 {
		t.Errorf("expected blueprint total 18500, got %v", got)
	}

	if err := cmd.Flags().Set("total-cost", "0"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if got := contractTotal(cmd, b); got != 0 {
		t.Errorf("expected explicit zero to override, got %v", got)
	}

	if err := cmd.Flags().Set("total-cost", "2500.5"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if got := contractTotal(cmd, b); got != 2500.5 {
		t.Errorf("expected 2500.5, got %v", got)
	}
}

func snapshotWithDuration(t *testing.T, at time.Time, duration float64) *baseline.Snapshot {
	t.Helper()
	result, err := cpm.Analyze(filterGraph(t))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	snap := baseline.Capture(result, at)
	snap.ProjectDuration = duration
	return snap
}

func TestLoadBaseline(t *testing.T) {
	defer func() { flagDB, flagDir = "", "" }()

	tmp := t.TempDir()
	flagDB = filepath.Join(tmp, "history.db")
	flagDir = filepath.Join(tmp, "files")

	store, err := baseline.OpenStore(flagDB)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	april := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	for _, rec := range []struct {
		project  string
		at       time.Time
		duration float64
	}{
		{"maple-st", april.AddDate(0, 0, 7), 12},
		{"maple-st", april, 8},
		{"oak-ave", april.AddDate(0, 1, 0), 30},
	} {
		if _, err := store.Record(rec.project, snapshotWithDuration(t, rec.at, rec.duration)); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := snapshotWithDuration(t, april, 99).Save(flagDir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := loadBaseline("maple-st")
	if err != nil {
		t.Fatalf("loadBaseline with --db: %v", err)
	}
	if got.ProjectDuration != 12 {
		t.Errorf("expected latest recorded baseline (12 days), got %v", got.ProjectDuration)
	}

	if _, err := loadBaseline("elm-rd"); err == nil {
		t.Error("expected error for project with no recorded baseline")
	}

	flagDB = ""
	got, err = loadBaseline("maple-st")
	if err != nil {
		t.Fatalf("loadBaseline from file: %v", err)
	}
	if got.ProjectDuration != 99 {
		t.Errorf("expected file baseline (99 days), got %v", got.ProjectDuration)
	}

	flagDir = filepath.Join(tmp, "empty")
	if _, err := loadBaseline("maple-st"); err == nil {
		t.Error("expected error when no baseline file exists")
	}
}
