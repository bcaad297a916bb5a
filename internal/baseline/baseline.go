// Package baseline persists a computed schedule as a baseline and
// measures later schedules against it.
package baseline

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Elemanor/renonext-sub004/internal/cpm"
)

// DefaultDir is where baselines live when no directory is given.
const DefaultDir = ".renoplan"

const baselineFile = "baseline.json"

// Snapshot is a saved schedule.
type Snapshot struct {
	CapturedAt      time.Time                `json:"captured_at"`
	ProjectDuration float64                  `json:"project_duration"`
	CriticalPath    []string                 `json:"critical_path"`
	Tasks           map[string]*TaskBaseline `json:"tasks"`
}

// TaskBaseline is the saved schedule of a single task.
type TaskBaseline struct {
	ES         float64 `json:"es"`
	EF         float64 `json:"ef"`
	Float      float64 `json:"float"`
	IsCritical bool    `json:"is_critical"`
}

// Capture records result as a baseline taken at now.
func Capture(result *cpm.CPMResult, now time.Time) *Snapshot {
	s := &Snapshot{
		CapturedAt:      now,
		ProjectDuration: result.ProjectDuration,
		CriticalPath:    append([]string(nil), result.CriticalPath...),
		Tasks:           make(map[string]*TaskBaseline, len(result.Tasks)),
	}
	for id, ts := range result.Tasks {
		s.Tasks[id] = &TaskBaseline{ES: ts.ES, EF: ts.EF, Float: ts.Float, IsCritical: ts.IsCritical}
	}
	return s
}

// Path returns the baseline file location inside dir.
func Path(dir string) string {
	if dir == "" {
		dir = DefaultDir
	}
	return filepath.Join(dir, baselineFile)
}

// Save writes the snapshot to dir, creating it if needed.
func (s *Snapshot) Save(dir string) error {
	path := Path(dir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create baseline dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal baseline: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Load reads the baseline stored in dir.
func Load(dir string) (*Snapshot, error) {
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		return nil, fmt.Errorf("read baseline: %w", err)
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse baseline: %w", err)
	}
	if s.Tasks == nil {
		s.Tasks = make(map[string]*TaskBaseline)
	}
	return &s, nil
}

// Exists checks if a baseline file exists in dir.
func Exists(dir string) bool {
	_, err := os.Stat(Path(dir))
	return err == nil
}

// Clean removes the baseline directory.
func Clean(dir string) error {
	if dir == "" {
		dir = DefaultDir
	}
	return os.RemoveAll(dir)
}

// Variance is the difference between a baseline and a current schedule.
// Slips are in days; positive means later than baseline.
type Variance struct {
	BaselineAt    time.Time      `json:"baseline_at"`
	DurationDelta float64        `json:"duration_delta"`
	Tasks         []TaskVariance `json:"tasks"`
	Added         []string       `json:"added"`
	Removed       []string       `json:"removed"`
}

// TaskVariance is the slip of one task present in both schedules.
type TaskVariance struct {
	TaskID      string  `json:"task_id"`
	StartSlip   float64 `json:"start_slip"`
	FinishSlip  float64 `json:"finish_slip"`
	WasCritical bool    `json:"was_critical"`
	IsCritical  bool    `json:"is_critical"`
}

// CriticalityChanged reports whether the task entered or left the
// critical path.
func (v TaskVariance) CriticalityChanged() bool {
	return v.WasCritical != v.IsCritical
}

// Compare measures result against base. Tasks are listed by id; slips
// within cpm.DefaultEpsilon are reported as 0.
func Compare(base *Snapshot, result *cpm.CPMResult) *Variance {
	v := &Variance{
		BaselineAt:    base.CapturedAt,
		DurationDelta: snap(result.ProjectDuration - base.ProjectDuration),
		Tasks:         []TaskVariance{},
		Added:         []string{},
		Removed:       []string{},
	}

	for id, ts := range result.Tasks {
		b, ok := base.Tasks[id]
		if !ok {
			v.Added = append(v.Added, id)
			continue
		}
		v.Tasks = append(v.Tasks, TaskVariance{
			TaskID:      id,
			StartSlip:   snap(ts.ES - b.ES),
			FinishSlip:  snap(ts.EF - b.EF),
			WasCritical: b.IsCritical,
			IsCritical:  ts.IsCritical,
		})
	}
	for id := range base.Tasks {
		if _, ok := result.Tasks[id]; !ok {
			v.Removed = append(v.Removed, id)
		}
	}

	sort.Slice(v.Tasks, func(i, j int) bool { return v.Tasks[i].TaskID < v.Tasks[j].TaskID })
	sort.Strings(v.Added)
	sort.Strings(v.Removed)
	return v
}

// Slipped returns the tasks whose finish moved later than baseline.
func (v *Variance) Slipped() []TaskVariance {
	var out []TaskVariance
	for _, tv := range v.Tasks {
		if tv.FinishSlip > 0 {
			out = append(out, tv)
		}
	}
	return out
}

func snap(d float64) float64 {
	if math.Abs(d) <= cpm.DefaultEpsilon {
		return 0
	}
	return d
}
