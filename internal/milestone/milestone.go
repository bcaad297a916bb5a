// Package milestone allocates a contract total across the blueprint steps
// that trigger payment.
package milestone

import (
	"fmt"
	"math"

	"github.com/Elemanor/renonext-sub004/internal/blueprint"
	"github.com/Elemanor/renonext-sub004/internal/errs"
)

// Milestone is one payment in the schedule of values.
type Milestone struct {
	StepNumber int     `json:"step_number"`
	Label      string  `json:"label"`
	Percent    float64 `json:"percent"`
	Amount     float64 `json:"amount"`
}

// Deriver derives payment milestones. With AllowEmpty set, a sequence
// with no payment steps yields an empty list instead of an error.
type Deriver struct {
	AllowEmpty bool
}

// Derive is strict: it fails with NoPaymentMilestones when no step
// triggers payment.
func Derive(steps []blueprint.SequenceStep, totalCost float64) ([]Milestone, error) {
	return Deriver{}.Derive(steps, totalCost)
}

// Derive allocates totalCost across payment steps in step order.
//
// Steps with an explicit typical cost percent keep it; the rest of 100%
// is split evenly over payment steps without one. The weights are then
// normalized to 100%. Amounts are allocated in cents against the running
// percent total: each amount is non-negative and within a cent of its
// share. Rounding leftovers land on the last milestone so the amounts
// sum to totalCost.
func (d Deriver) Derive(steps []blueprint.SequenceStep, totalCost float64) ([]Milestone, error) {
	if math.IsNaN(totalCost) || math.IsInf(totalCost, 0) || totalCost < 0 {
		return nil, errs.Newf(errs.InvalidInput, "total cost must be a non-negative amount, got %v", totalCost)
	}

	var payments []blueprint.SequenceStep
	for _, s := range blueprint.Sorted(steps) {
		if s.TriggersPayment {
			payments = append(payments, s)
		}
	}
	if len(payments) == 0 {
		if d.AllowEmpty {
			return []Milestone{}, nil
		}
		return nil, errs.New(errs.NoPaymentMilestones, "no sequence step triggers payment")
	}

	percents, err := weights(payments)
	if err != nil {
		return nil, err
	}

	totalCents := int64(math.Round(totalCost * 100))
	milestones := make([]Milestone, len(payments))
	var allocated int64
	cum := 0.0
	for i, s := range payments {
		cum += percents[i]
		target := totalCents
		if i < len(payments)-1 {
			target = cumulativeCents(cum, totalCents)
		}
		cents := target - allocated
		allocated = target

		milestones[i] = Milestone{
			StepNumber: s.StepNumber,
			Label:      label(s),
			Percent:    percents[i],
			Amount:     float64(cents) / 100,
		}
	}

	return milestones, nil
}

// cumulativeCents is the whole cents owed once cumPercent of total has
// been reached. It rounds down, tolerating float noise, and never exceeds
// total.
func cumulativeCents(cumPercent float64, total int64) int64 {
	c := int64(math.Floor(cumPercent/100*float64(total) + 1e-6))
	if c > total {
		return total
	}
	if c < 0 {
		return 0
	}
	return c
}

// weights resolves explicit and implicit percents and normalizes them to
// sum to 100.
func weights(payments []blueprint.SequenceStep) ([]float64, error) {
	raw := make([]float64, len(payments))
	explicit := 0.0
	implicit := 0
	for i, s := range payments {
		if s.TypicalCostPercent == nil {
			implicit++
			continue
		}
		p := *s.TypicalCostPercent
		if math.IsNaN(p) || p < 0 || p > 100 {
			return nil, errs.Newf(errs.InvalidInput, "step %d: typical cost percent %v is outside 0-100", s.StepNumber, p)
		}
		raw[i] = p
		explicit += p
	}

	if implicit > 0 {
		share := math.Max(0, 100-explicit) / float64(implicit)
		for i, s := range payments {
			if s.TypicalCostPercent == nil {
				raw[i] = share
			}
		}
	}

	sum := 0.0
	for _, p := range raw {
		sum += p
	}
	out := make([]float64, len(raw))
	for i, p := range raw {
		if sum == 0 {
			out[i] = 100 / float64(len(raw))
		} else {
			out[i] = p / sum * 100
		}
	}
	return out, nil
}

func label(s blueprint.SequenceStep) string {
	if s.Title != "" {
		return s.Title
	}
	return fmt.Sprintf("Step %d", s.StepNumber)
}
