package milestone

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/Elemanor/renonext-sub004/internal/blueprint"
	"github.com/Elemanor/renonext-sub004/internal/errs"
)

func pct(v float64) *float64 { return &v }

func sumCents(ms []Milestone) int64 {
	var total int64
	for _, m := range ms {
		total += int64(math.Round(m.Amount * 100))
	}
	return total
}

func sumPercent(ms []Milestone) float64 {
	total := 0.0
	for _, m := range ms {
		total += m.Percent
	}
	return total
}

func TestDerive_RoundingRemainderOnLast(t *testing.T) {
	third := 100.0 / 3
	steps := []blueprint.SequenceStep{
		{StepNumber: 1, Title: "Deposit", TriggersPayment: true, TypicalCostPercent: pct(third)},
		{StepNumber: 2, Title: "Rough-in", TriggersPayment: true, TypicalCostPercent: pct(third)},
		{StepNumber: 3, Title: "Substantial completion", TriggersPayment: true, TypicalCostPercent: pct(third)},
	}

	ms, err := Derive(steps, 100.00)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ms) != 3 {
		t.Fatalf("expected 3 milestones, got %d", len(ms))
	}

	want := []float64{33.33, 33.33, 33.34}
	for i, m := range ms {
		if math.Abs(m.Amount-want[i]) > 1e-9 {
			t.Errorf("milestone %d: expected amount %.2f, got %v", i, want[i], m.Amount)
		}
	}
	if sumCents(ms) != 10000 {
		t.Errorf("expected amounts to sum to 10000 cents, got %d", sumCents(ms))
	}
	if math.Abs(sumPercent(ms)-100) > 0.01 {
		t.Errorf("expected percents to sum to 100, got %v", sumPercent(ms))
	}
}

func TestDerive_ExplicitAndImplicitWeights(t *testing.T) {
	steps := []blueprint.SequenceStep{
		{StepNumber: 4, Title: "Final", TriggersPayment: true},
		{StepNumber: 2, Title: "Framing inspection", RequiresInspection: true},
		{StepNumber: 1, Title: "Deposit", TriggersPayment: true, TypicalCostPercent: pct(10)},
		{StepNumber: 3, Title: "Drywall", TriggersPayment: true},
	}

	ms, err := Derive(steps, 25000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Milestone{
		{StepNumber: 1, Label: "Deposit", Percent: 10, Amount: 2500},
		{StepNumber: 3, Label: "Drywall", Percent: 45, Amount: 11250},
		{StepNumber: 4, Label: "Final", Percent: 45, Amount: 11250},
	}
	if len(ms) != len(want) {
		t.Fatalf("expected %d milestones, got %d: %+v", len(want), len(ms), ms)
	}
	for i := range want {
		if ms[i].StepNumber != want[i].StepNumber || ms[i].Label != want[i].Label {
			t.Errorf("milestone %d: expected step %d %q, got step %d %q", i, want[i].StepNumber, want[i].Label, ms[i].StepNumber, ms[i].Label)
		}
		if math.Abs(ms[i].Percent-want[i].Percent) > 1e-9 || math.Abs(ms[i].Amount-want[i].Amount) > 1e-9 {
			t.Errorf("milestone %d: expected %v%% / %v, got %v%% / %v", i, want[i].Percent, want[i].Amount, ms[i].Percent, ms[i].Amount)
		}
	}
}

func TestDerive_Normalization(t *testing.T) {
	tests := []struct {
		name     string
		percents []*float64
		want     []float64
	}{
		{"over-allocated", []*float64{pct(60), pct(60)}, []float64{50, 50}},
		{"under-allocated", []*float64{pct(20), pct(30)}, []float64{40, 60}},
		{"all zero", []*float64{pct(0), pct(0), pct(0), pct(0)}, []float64{25, 25, 25, 25}},
		{"explicit exhausts remainder", []*float64{pct(100), nil}, []float64{100, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var steps []blueprint.SequenceStep
			for i, p := range tt.percents {
				steps = append(steps, blueprint.SequenceStep{StepNumber: i + 1, TriggersPayment: true, TypicalCostPercent: p})
			}
			ms, err := Derive(steps, 1000)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for i, m := range ms {
				if math.Abs(m.Percent-tt.want[i]) > 1e-9 {
					t.Errorf("milestone %d: expected %v%%, got %v%%", i, tt.want[i], m.Percent)
				}
			}
			if sumCents(ms) != 100000 {
				t.Errorf("expected 100000 cents, got %d", sumCents(ms))
			}
		})
	}
}

func TestDerive_NoPaymentSteps(t *testing.T) {
	steps := []blueprint.SequenceStep{{StepNumber: 1, Title: "Site visit"}}

	_, err := Derive(steps, 5000)
	if !errs.Is(err, errs.NoPaymentMilestones) {
		t.Fatalf("expected NoPaymentMilestones, got %v", err)
	}

	ms, err := Deriver{AllowEmpty: true}.Derive(steps, 5000)
	if err != nil {
		t.Fatalf("unexpected error with AllowEmpty: %v", err)
	}
	if ms == nil || len(ms) != 0 {
		t.Errorf("expected empty non-nil list, got %v", ms)
	}
}

func TestDerive_InvalidInput(t *testing.T) {
	pay := []blueprint.SequenceStep{{StepNumber: 1, TriggersPayment: true}}

	if _, err := Derive(pay, -1); !errs.Is(err, errs.InvalidInput) {
		t.Errorf("expected InvalidInput for negative total, got %v", err)
	}
	if _, err := Derive(pay, math.Inf(1)); !errs.Is(err, errs.InvalidInput) {
		t.Errorf("expected InvalidInput for infinite total, got %v", err)
	}

	bad := []blueprint.SequenceStep{{StepNumber: 1, TriggersPayment: true, TypicalCostPercent: pct(140)}}
	if _, err := Derive(bad, 100); !errs.Is(err, errs.InvalidInput) {
		t.Errorf("expected InvalidInput for percent over 100, got %v", err)
	}
}

func TestDerive_DefaultLabel(t *testing.T) {
	ms, err := Derive([]blueprint.SequenceStep{{StepNumber: 7, TriggersPayment: true}}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ms[0].Label != "Step 7" {
		t.Errorf("expected label \"Step 7\", got %q", ms[0].Label)
	}
}

func checkAllocation(t *testing.T, label string, ms []Milestone, total float64) {
	t.Helper()
	totalCents := math.Round(total * 100)
	for j, m := range ms {
		cents := math.Round(m.Amount * 100)
		if cents < 0 {
			t.Fatalf("%s: milestone %d has negative amount %v", label, j, m.Amount)
		}
		if share := m.Percent * totalCents / 100; math.Abs(cents-share) > 1+1e-6 {
			t.Fatalf("%s: milestone %d amount %d cents is more than a cent from its share %.4f", label, j, int64(cents), share)
		}
	}
	if got := sumCents(ms); got != int64(totalCents) {
		t.Fatalf("%s: amounts sum to %d cents, want %d", label, got, int64(totalCents))
	}
}

func TestDerive_NoNegativeAmounts(t *testing.T) {
	tests := []struct {
		name     string
		percents []*float64
		total    float64
		want     []float64
	}{
		{"zero percent last step", []*float64{pct(50), pct(50), pct(0)}, 100.01, []float64{50.00, 50.01, 0}},
		{"total smaller than step count", []*float64{nil, nil, nil, nil}, 0.02, []float64{0, 0.01, 0, 0.01}},
		{"odd cent across halves", []*float64{pct(50), pct(50)}, 0.01, []float64{0, 0.01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var steps []blueprint.SequenceStep
			for i, p := range tt.percents {
				steps = append(steps, blueprint.SequenceStep{StepNumber: i + 1, TriggersPayment: true, TypicalCostPercent: p})
			}
			ms, err := Derive(steps, tt.total)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(ms) != len(tt.want) {
				t.Fatalf("expected %d milestones, got %d", len(tt.want), len(ms))
			}
			for i, m := range ms {
				if math.Abs(m.Amount-tt.want[i]) > 1e-9 {
					t.Errorf("milestone %d: expected amount %.2f, got %v", i, tt.want[i], m.Amount)
				}
			}
			checkAllocation(t, tt.name, ms, tt.total)
		})
	}
}

func TestDerive_AmountsAlwaysSumToTotal(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 1000; i++ {
		n := 1 + rng.Intn(8)
		var steps []blueprint.SequenceStep
		for j := 0; j < n; j++ {
			s := blueprint.SequenceStep{StepNumber: j + 1, TriggersPayment: true}
			switch rng.Intn(4) {
			case 0:
				s.TypicalCostPercent = pct(0)
			case 1:
				s.TypicalCostPercent = pct(math.Round(rng.Float64()*4000) / 100)
			}
			steps = append(steps, s)
		}
		total := math.Round(rng.Float64()*5_000_000) / 100
		if rng.Intn(2) == 0 {
			total = float64(rng.Intn(20)) / 100
		}

		ms, err := Derive(steps, total)
		if err != nil {
			t.Fatalf("case %d: unexpected error: %v", i, err)
		}
		checkAllocation(t, fmt.Sprintf("case %d", i), ms, total)
		if math.Abs(sumPercent(ms)-100) > 0.01 {
			t.Fatalf("case %d: percents sum to %v", i, sumPercent(ms))
		}
	}
}
