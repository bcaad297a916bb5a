// Package sci computes the Scope Confidence Index of a proposal: how
// completely its blueprint sequence pins down inspections, gates, code
// references, durations and paperwork.
package sci

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Elemanor/renonext-sub004/internal/blueprint"
	"github.com/Elemanor/renonext-sub004/internal/errs"
)

// Tier is the discrete confidence band of a score.
type Tier string

const (
	TierHigh   Tier = "HIGH"
	TierMedium Tier = "MEDIUM"
	TierLow    Tier = "LOW"
)

// Factor names used as Breakdown keys and weight keys.
const (
	InspectionCoverage = "inspection_coverage"
	GateCoverage       = "gate_coverage"
	CodeGrounding      = "code_grounding"
	ScheduleDefinition = "schedule_definition"
	Documentation      = "documentation"
)

// Factors lists every factor in report order.
var Factors = []string{InspectionCoverage, GateCoverage, CodeGrounding, ScheduleDefinition, Documentation}

// Result is a scored proposal.
type Result struct {
	Score     float64            `json:"score"`
	Tier      Tier               `json:"tier"`
	Breakdown map[string]float64 `json:"breakdown"`
}

// Model holds the factor weights and tier thresholds.
type Model struct {
	Weights         map[string]float64
	HighThreshold   float64
	MediumThreshold float64
}

// DefaultModel returns the reference weights (summing to 1.0) and the
// HIGH >= 0.75, MEDIUM >= 0.45 thresholds.
func DefaultModel() Model {
	return Model{
		Weights: map[string]float64{
			InspectionCoverage: 0.25,
			GateCoverage:       0.15,
			CodeGrounding:      0.15,
			ScheduleDefinition: 0.15,
			Documentation:      0.30,
		},
		HighThreshold:   0.75,
		MediumThreshold: 0.45,
	}
}

// documentation flag weights; sum to 1.0
const (
	docCodeReferences = 0.25
	docHoldback       = 0.20
	docMilestones     = 0.20
	docWarranty       = 0.20
	docBcin           = 0.15
)

// Validate checks that weights cover the known factors, are
// non-negative, sum to 1 and that the thresholds are ordered.
func (m Model) Validate() error {
	var problems []string
	sum := 0.0
	for name, w := range m.Weights {
		if !knownFactor(name) {
			problems = append(problems, fmt.Sprintf("unknown factor %q", name))
		}
		if w < 0 || math.IsNaN(w) {
			problems = append(problems, fmt.Sprintf("weight %s must be non-negative", name))
		}
		sum += w
	}
	if math.Abs(sum-1) > 1e-6 {
		problems = append(problems, fmt.Sprintf("weights sum to %g, want 1", sum))
	}
	if !(m.MediumThreshold > 0 && m.MediumThreshold <= m.HighThreshold && m.HighThreshold <= 1) {
		problems = append(problems, fmt.Sprintf("thresholds must satisfy 0 < medium (%g) <= high (%g) <= 1", m.MediumThreshold, m.HighThreshold))
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return errs.New(errs.InvalidInput, "scope model: "+strings.Join(problems, "; "))
	}
	return nil
}

func knownFactor(name string) bool {
	for _, f := range Factors {
		if f == name {
			return true
		}
	}
	return false
}

// Score scores steps and flags with the default model.
func Score(steps []blueprint.SequenceStep, flags blueprint.Flags) Result {
	return DefaultModel().Score(steps, flags)
}

// Score combines the factors into a weighted score in [0,1]. An empty
// step list scores 0 (tier LOW) with every factor at 0.
func (m Model) Score(steps []blueprint.SequenceStep, flags blueprint.Flags) Result {
	breakdown := make(map[string]float64, len(Factors))
	for _, f := range Factors {
		breakdown[f] = 0
	}
	if len(steps) == 0 {
		return Result{Score: 0, Tier: TierLow, Breakdown: breakdown}
	}

	var inspected, gated, coded, timed int
	for _, s := range steps {
		if s.RequiresInspection {
			inspected++
		}
		if s.Gated() {
			gated++
		}
		if strings.TrimSpace(s.CodeReference) != "" {
			coded++
		}
		if s.ExpectedDurationDays != nil {
			timed++
		}
	}
	total := float64(len(steps))

	breakdown[InspectionCoverage] = float64(inspected) / total
	breakdown[GateCoverage] = float64(gated) / total
	breakdown[CodeGrounding] = float64(coded) / total
	breakdown[ScheduleDefinition] = float64(timed) / total
	breakdown[Documentation] = documentation(flags)

	score := 0.0
	for _, f := range Factors {
		score += m.Weights[f] * breakdown[f]
	}
	score = clamp01(score)

	return Result{Score: score, Tier: m.Tier(score), Breakdown: breakdown}
}

// Tier maps a score to its band.
func (m Model) Tier(score float64) Tier {
	switch {
	case score >= m.HighThreshold:
		return TierHigh
	case score >= m.MediumThreshold:
		return TierMedium
	default:
		return TierLow
	}
}

func documentation(f blueprint.Flags) float64 {
	v := 0.0
	if f.HasCodeReferences {
		v += docCodeReferences
	}
	if f.HasHoldback {
		v += docHoldback
	}
	if f.HasMilestones {
		v += docMilestones
	}
	if f.HasWarrantyTerms {
		v += docWarranty
	}
	if f.HasBcin {
		v += docBcin
	}
	return clamp01(v)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
