// Package blueprint models a trade's execution sequence: the ordered steps
// a proposal commits to, with their inspection, permit and payment gates.
package blueprint

import (
	"math"
	"sort"
	"strconv"

	"github.com/Elemanor/renonext-sub004/internal/errs"
)

// SequenceStep is one step in a blueprint sequence.
type SequenceStep struct {
	ID                   string   `json:"id"`
	StepNumber           int      `json:"step_number"`
	Title                string   `json:"title"`
	RequiresInspection   bool     `json:"requires_inspection"`
	RequiresPermit       bool     `json:"requires_permit"`
	IsMilestone          bool     `json:"is_milestone"`
	TriggersPayment      bool     `json:"triggers_payment"`
	IsCriticalPath       bool     `json:"is_critical_path"`
	ExpectedDurationDays *float64 `json:"expected_duration_days,omitempty"`
	DependsOnSteps       []int    `json:"depends_on_steps,omitempty"`
	CodeReference        string   `json:"code_reference,omitempty"`
	TypicalCostPercent   *float64 `json:"typical_cost_percent,omitempty"`
}

// Gated reports whether the step is held by a permit, an inspection or a
// milestone sign-off.
func (s SequenceStep) Gated() bool {
	return s.RequiresInspection || s.RequiresPermit || s.IsMilestone
}

// Flags are proposal-level documentation signals.
type Flags struct {
	HasCodeReferences bool `json:"has_code_references"`
	HasHoldback       bool `json:"has_holdback"`
	HasMilestones     bool `json:"has_milestones"`
	HasWarrantyTerms  bool `json:"has_warranty_terms"`
	HasBcin           bool `json:"has_bcin"`
}

// Sorted returns a copy of steps ordered by step number, ties by id.
func Sorted(steps []SequenceStep) []SequenceStep {
	out := make([]SequenceStep, len(steps))
	copy(out, steps)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StepNumber != out[j].StepNumber {
			return out[i].StepNumber < out[j].StepNumber
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Validate checks step numbering, step dependencies and numeric ranges.
func Validate(steps []SequenceStep) error {
	numbers := make(map[int]bool, len(steps))
	for _, s := range steps {
		if numbers[s.StepNumber] {
			return errs.New(errs.InvalidInput, "duplicate step number "+strconv.Itoa(s.StepNumber), s.ID)
		}
		numbers[s.StepNumber] = true
	}

	for _, s := range steps {
		for _, dep := range s.DependsOnSteps {
			if dep == s.StepNumber {
				return errs.Newf(errs.InvalidInput, "step %d depends on itself", s.StepNumber)
			}
			if !numbers[dep] {
				return errs.Newf(errs.InvalidInput, "step %d depends on unknown step %d", s.StepNumber, dep)
			}
		}
		if d := s.ExpectedDurationDays; d != nil && (math.IsNaN(*d) || math.IsInf(*d, 0) || *d < 0) {
			return errs.Newf(errs.InvalidInput, "step %d: expected duration must be a non-negative number", s.StepNumber)
		}
		if p := s.TypicalCostPercent; p != nil && (math.IsNaN(*p) || *p < 0 || *p > 100) {
			return errs.Newf(errs.InvalidInput, "step %d: typical cost percent %v is outside 0-100", s.StepNumber, *p)
		}
	}
	return nil
}
