// Package rows decodes exported persistence rows (tasks, task
// dependencies and blueprint steps) into the engine's typed model.
// Rows arrive loosely typed: any optional field may be null, numbers may be
// quoted, and dependency types come in several spellings. Everything is
// normalized here, once, so the engine only sees typed values.
package rows

import (
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/Elemanor/renonext-sub004/internal/blueprint"
	"github.com/Elemanor/renonext-sub004/internal/errs"
	"github.com/Elemanor/renonext-sub004/internal/graph"
)

// Project is a decoded task/dependency export.
type Project struct {
	Name  string
	Tasks []graph.Task
	Links []graph.Link
}

// Blueprint is a decoded proposal sequence.
type Blueprint struct {
	Name      string
	TotalCost float64
	Flags     blueprint.Flags
	Steps     []blueprint.SequenceStep
}

// LoadProject reads and decodes a project export file.
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project %s: %w", path, err)
	}
	return DecodeProject(data)
}

// LoadBlueprint reads and decodes a blueprint export file.
func LoadBlueprint(path string) (*Blueprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read blueprint %s: %w", path, err)
	}
	return DecodeBlueprint(data)
}

// DecodeProject parses {"tasks": [...], "dependencies": [...]}. The
// dependency list may also be keyed "task_dependencies".
func DecodeProject(data []byte) (*Project, error) {
	if !gjson.ValidBytes(data) {
		return nil, errs.New(errs.InvalidInput, "project export is not valid JSON")
	}
	doc := gjson.ParseBytes(data)

	p := &Project{Name: doc.Get("name").String()}

	var decodeErr error
	doc.Get("tasks").ForEach(func(_, row gjson.Result) bool {
		t, err := decodeTask(row)
		if err != nil {
			decodeErr = err
			return false
		}
		p.Tasks = append(p.Tasks, t)
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}

	deps := doc.Get("dependencies")
	if !deps.Exists() {
		deps = doc.Get("task_dependencies")
	}
	deps.ForEach(func(_, row gjson.Result) bool {
		l, err := decodeLink(row)
		if err != nil {
			decodeErr = err
			return false
		}
		p.Links = append(p.Links, l)
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}

	return p, nil
}

func decodeTask(row gjson.Result) (graph.Task, error) {
	t := graph.Task{
		ID:              str(row.Get("id")),
		Title:           row.Get("title").String(),
		AssignedCompany: row.Get("assigned_company").String(),
	}
	if t.ID == "" {
		return t, errs.Newf(errs.InvalidInput, "task row without id: %s", compact(row))
	}

	status, err := parseStatus(row.Get("status").String())
	if err != nil {
		return t, fmt.Errorf("task %s: %w", t.ID, err)
	}
	t.Status = status

	for _, f := range []struct {
		key string
		dst **time.Time
	}{
		{"planned_start", &t.PlannedStart},
		{"planned_end", &t.PlannedEnd},
		{"actual_start", &t.ActualStart},
		{"actual_end", &t.ActualEnd},
	} {
		v, err := parseDate(row.Get(f.key))
		if err != nil {
			return t, fmt.Errorf("task %s %s: %w", t.ID, f.key, err)
		}
		*f.dst = v
	}

	if d, ok, err := number(row.Get("duration_days")); err != nil {
		return t, fmt.Errorf("task %s duration_days: %w", t.ID, err)
	} else if ok {
		t.DurationDays = d
	} else if t.PlannedStart != nil && t.PlannedEnd != nil {
		t.DurationDays = math.Max(0, t.PlannedEnd.Sub(*t.PlannedStart).Hours()/24)
		log.Printf("warning: task %s has no duration_days, using planned span of %g days", t.ID, t.DurationDays)
	}

	if pc, ok, err := number(row.Get("percent_complete")); err != nil {
		return t, fmt.Errorf("task %s percent_complete: %w", t.ID, err)
	} else if ok {
		t.PercentComplete = pc
	}

	return t, nil
}

func decodeLink(row gjson.Result) (graph.Link, error) {
	l := graph.Link{
		ID:            str(row.Get("id")),
		SuccessorID:   str(row.Get("task_id")),
		PredecessorID: str(row.Get("predecessor_task_id")),
	}
	if l.SuccessorID == "" || l.PredecessorID == "" {
		return l, errs.Newf(errs.InvalidInput, "dependency row missing task_id or predecessor_task_id: %s", compact(row))
	}

	typ, err := ParseLinkType(row.Get("dependency_type").String())
	if err != nil {
		return l, fmt.Errorf("dependency %s: %w", linkName(l), err)
	}
	l.Type = typ

	lag, _, err := number(row.Get("lag_days"))
	if err != nil {
		return l, fmt.Errorf("dependency %s lag_days: %w", linkName(l), err)
	}
	l.LagDays = lag
	return l, nil
}

// DecodeBlueprint parses {"total_cost": n, "flags": {...}, "steps": [...]}.
func DecodeBlueprint(data []byte) (*Blueprint, error) {
	if !gjson.ValidBytes(data) {
		return nil, errs.New(errs.InvalidInput, "blueprint export is not valid JSON")
	}
	doc := gjson.ParseBytes(data)

	b := &Blueprint{Name: doc.Get("name").String()}
	total, _, err := number(doc.Get("total_cost"))
	if err != nil {
		return nil, fmt.Errorf("total_cost: %w", err)
	}
	b.TotalCost = total

	flags := doc.Get("flags")
	b.Flags = blueprint.Flags{
		HasCodeReferences: flags.Get("has_code_references").Bool(),
		HasHoldback:       flags.Get("has_holdback").Bool(),
		HasMilestones:     flags.Get("has_milestones").Bool(),
		HasWarrantyTerms:  flags.Get("has_warranty_terms").Bool(),
		HasBcin:           flags.Get("has_bcin").Bool(),
	}

	var decodeErr error
	doc.Get("steps").ForEach(func(_, row gjson.Result) bool {
		s, err := decodeStep(row)
		if err != nil {
			decodeErr = err
			return false
		}
		b.Steps = append(b.Steps, s)
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return b, nil
}

func decodeStep(row gjson.Result) (blueprint.SequenceStep, error) {
	s := blueprint.SequenceStep{
		ID:                 str(row.Get("id")),
		StepNumber:         int(row.Get("step_number").Int()),
		Title:              row.Get("title").String(),
		RequiresInspection: row.Get("requires_inspection").Bool(),
		RequiresPermit:     row.Get("requires_permit").Bool(),
		IsMilestone:        row.Get("is_milestone").Bool(),
		TriggersPayment:    row.Get("triggers_payment").Bool(),
		IsCriticalPath:     row.Get("is_critical_path").Bool(),
		CodeReference:      strings.TrimSpace(row.Get("code_reference").String()),
	}
	if !row.Get("step_number").Exists() {
		return s, errs.Newf(errs.InvalidInput, "step row without step_number: %s", compact(row))
	}

	if d, ok, err := number(row.Get("expected_duration_days")); err != nil {
		return s, fmt.Errorf("step %d expected_duration_days: %w", s.StepNumber, err)
	} else if ok {
		s.ExpectedDurationDays = &d
	}
	if p, ok, err := number(row.Get("typical_cost_percent")); err != nil {
		return s, fmt.Errorf("step %d typical_cost_percent: %w", s.StepNumber, err)
	} else if ok {
		s.TypicalCostPercent = &p
	}

	row.Get("depends_on_steps").ForEach(func(_, v gjson.Result) bool {
		s.DependsOnSteps = append(s.DependsOnSteps, int(v.Int()))
		return true
	})
	return s, nil
}

// ParseLinkType accepts snake_case names, FS/SS/FF/SF and hyphenated
// spellings. Empty means finish_to_start.
func ParseLinkType(s string) (graph.LinkType, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	switch norm {
	case "", "fs", "finish_to_start":
		return graph.FinishToStart, nil
	case "ss", "start_to_start":
		return graph.StartToStart, nil
	case "ff", "finish_to_finish":
		return graph.FinishToFinish, nil
	case "sf", "start_to_finish":
		return graph.StartToFinish, nil
	}
	return "", errs.Newf(errs.InvalidInput, "unknown dependency type %q", s)
}

func parseStatus(s string) (graph.TaskStatus, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	switch norm {
	case "", "not_started", "pending", "scheduled":
		return graph.StatusNotStarted, nil
	case "in_progress", "active", "started":
		return graph.StatusInProgress, nil
	case "completed", "complete", "done":
		return graph.StatusCompleted, nil
	case "blocked", "on_hold":
		return graph.StatusBlocked, nil
	}
	return "", errs.Newf(errs.InvalidInput, "unknown task status %q", s)
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func parseDate(v gjson.Result) (*time.Time, error) {
	if !v.Exists() || v.Type == gjson.Null || strings.TrimSpace(v.String()) == "" {
		return nil, nil
	}
	raw := strings.TrimSpace(v.String())
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, errs.Newf(errs.InvalidInput, "unrecognized date %q", raw)
}

// number reads a nullable, possibly quoted number. ok is false for null
// or missing values.
func number(v gjson.Result) (float64, bool, error) {
	switch v.Type {
	case gjson.Null:
		return 0, false, nil
	case gjson.Number:
		return v.Float(), true, nil
	case gjson.String:
		raw := strings.TrimSpace(v.Str)
		if raw == "" {
			return 0, false, nil
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, false, errs.Newf(errs.InvalidInput, "not a number: %q", raw)
		}
		return f, true, nil
	}
	return 0, false, errs.Newf(errs.InvalidInput, "not a number: %s", v.Raw)
}

// str reads an id that may be stored as a string or a number.
func str(v gjson.Result) string {
	if v.Type == gjson.Null {
		return ""
	}
	return strings.TrimSpace(v.String())
}

func compact(row gjson.Result) string {
	raw := row.Raw
	if len(raw) > 80 {
		raw = raw[:77] + "..."
	}
	return raw
}

func linkName(l graph.Link) string {
	if l.ID != "" {
		return l.ID
	}
	return l.PredecessorID + "->" + l.SuccessorID
}
