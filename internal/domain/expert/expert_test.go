package expert

import (
	"math"
	"testing"
)

func TestResponseClamped(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{1.7, 1},
	}
	for _, tc := range cases {
		r := Response{Confidence: tc.in}.Clamped()
		if r.Confidence != tc.want {
			t.Errorf("clamp(%v): got %v, want %v", tc.in, r.Confidence, tc.want)
		}
	}
}

func TestPerspectiveClamped(t *testing.T) {
	if p := (Perspective{Confidence: 2.0}).Clamped(); p.Confidence != 1 {
		t.Fatalf("expected 1, got %v", p.Confidence)
	}
	if p := (Perspective{Confidence: -1}).Clamped(); p.Confidence != 0 {
		t.Fatalf("expected 0, got %v", p.Confidence)
	}
}

func TestRank_SeniorityOrder(t *testing.T) {
	if Rank(SeniorPartner) != 0 {
		t.Fatal("senior partner must rank first")
	}
	if Rank(SystemArchitect) >= Rank(DomainGuru) {
		t.Fatal("system architect must outrank domain guru")
	}
	if Rank(Type("intern")) != len(Seniority) {
		t.Fatal("unknown types must rank last")
	}
}

func TestKnown(t *testing.T) {
	for _, typ := range Seniority {
		if !Known(typ) {
			t.Fatalf("%q should be known", typ)
		}
	}
	if Known(Type("intern")) {
		t.Fatal("unknown type reported as known")
	}
}

func TestDomainWeight_Defaults(t *testing.T) {
	if w := DomainWeight(SecuritySpecialist, "security_compliance"); w != 1.0 {
		t.Fatalf("expected 1.0, got %v", w)
	}
	if w := DomainWeight(DomainGuru, "interpretive_dance"); w != 0.5 {
		t.Fatalf("unlisted domain should weigh 0.5, got %v", w)
	}
	if w := DomainWeight(Type("intern"), "security_compliance"); w != 0.5 {
		t.Fatalf("unknown type should weigh 0.5, got %v", w)
	}
}

func TestDomainRelevance(t *testing.T) {
	if r := DomainRelevance(SeniorPartner, nil); r != 0.5 {
		t.Fatalf("empty domains should yield 0.5, got %v", r)
	}
	r := DomainRelevance(SystemArchitect, []string{"system_architecture", "scalability_design"})
	if r != 1.0 {
		t.Fatalf("expected 1.0, got %v", r)
	}
	r = DomainRelevance(DomainGuru, []string{"technical_implementation", "business_analysis"})
	if math.Abs(r-0.65) > 1e-9 {
		t.Fatalf("expected 0.65, got %v", r)
	}
}

func TestCompatible(t *testing.T) {
	if !Compatible(DomainGuru, SystemArchitect) {
		t.Fatal("domain guru and system architect should be compatible")
	}
	if Compatible(DomainGuru, SeniorPartner) {
		t.Fatal("domain guru and senior partner are not a listed pairing")
	}
	if Compatible(SeniorPartner, DomainGuru) {
		t.Fatal("senior partner and domain guru are not a listed pairing")
	}
}

func TestSpecialistFor(t *testing.T) {
	typ, ok := SpecialistFor("security_compliance")
	if !ok || typ != SecuritySpecialist {
		t.Fatalf("expected security specialist, got %q ok=%v", typ, ok)
	}
	if _, ok := SpecialistFor("astrology"); ok {
		t.Fatal("unrecognized domain should not resolve to a specialist")
	}
}

func TestHasFocus(t *testing.T) {
	r := Response{FocusAreas: []string{"technical", "performance"}}
	if !r.HasFocus("technical") {
		t.Fatal("expected technical focus")
	}
	if r.HasFocus("business") {
		t.Fatal("did not expect business focus")
	}
}
