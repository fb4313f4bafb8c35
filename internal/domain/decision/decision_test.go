package decision

import "testing"

func TestNormalized_Defaults(t *testing.T) {
	c := Context{}.Normalized()
	if c.Type != "general" {
		t.Fatalf("expected default type general, got %q", c.Type)
	}
	if c.BusinessImpact != ImpactMedium {
		t.Fatalf("expected medium business impact, got %q", c.BusinessImpact)
	}
	if c.FinancialImpact != ImpactMedium || c.CustomerImpact != ImpactMedium {
		t.Fatal("expected medium financial and customer impact defaults")
	}
	if c.TechnicalComplexity != ComplexityMedium {
		t.Fatalf("expected medium complexity, got %q", c.TechnicalComplexity)
	}
	if c.Timeline != UrgencyNormal {
		t.Fatalf("expected normal timeline, got %q", c.Timeline)
	}
}

func TestNormalized_PreservesSetFields(t *testing.T) {
	in := Context{
		Type:                "platform_migration",
		BusinessImpact:      ImpactCritical,
		TechnicalComplexity: ComplexityVeryHigh,
		Timeline:            UrgencyUrgent,
	}
	c := in.Normalized()
	if c.Type != in.Type || c.BusinessImpact != in.BusinessImpact {
		t.Fatal("normalization must not overwrite populated fields")
	}
	if c.TechnicalComplexity != ComplexityVeryHigh || c.Timeline != UrgencyUrgent {
		t.Fatal("normalization must not overwrite populated fields")
	}
}

func TestImpactScore(t *testing.T) {
	cases := []struct {
		impact Impact
		want   float64
	}{
		{ImpactVeryLow, 0.1},
		{ImpactLow, 0.3},
		{ImpactMedium, 0.5},
		{ImpactHigh, 0.8},
		{ImpactCritical, 1.0},
		{Impact("unknown"), 0.5},
	}
	for _, tc := range cases {
		if got := tc.impact.Score(); got != tc.want {
			t.Errorf("impact %q: got %v, want %v", tc.impact, got, tc.want)
		}
	}
}

func TestComplexityScore(t *testing.T) {
	cases := []struct {
		complexity Complexity
		want       float64
	}{
		{ComplexityLow, 0.3},
		{ComplexityMedium, 0.5},
		{ComplexityHigh, 0.8},
		{ComplexityVeryHigh, 0.9},
		{Complexity(""), 0.5},
	}
	for _, tc := range cases {
		if got := tc.complexity.Score(); got != tc.want {
			t.Errorf("complexity %q: got %v, want %v", tc.complexity, got, tc.want)
		}
	}
}

func TestUrgencyScores(t *testing.T) {
	cases := []struct {
		urgency  Urgency
		pressure float64
		risk     float64
	}{
		{UrgencyUrgent, 0.9, 0.8},
		{UrgencyTight, 0.7, 0.6},
		{UrgencyNormal, 0.4, 0.3},
		{UrgencyFlexible, 0.2, 0.1},
		{Urgency("later"), 0.4, 0.3},
	}
	for _, tc := range cases {
		if got := tc.urgency.PressureScore(); got != tc.pressure {
			t.Errorf("pressure %q: got %v, want %v", tc.urgency, got, tc.pressure)
		}
		if got := tc.urgency.RiskScore(); got != tc.risk {
			t.Errorf("risk %q: got %v, want %v", tc.urgency, got, tc.risk)
		}
	}
}
