package consensus

import "testing"

func TestMechanismValid(t *testing.T) {
	for _, m := range Mechanisms {
		if !m.Valid() {
			t.Errorf("%q should be valid", m)
		}
	}
	if Mechanism("coin_flip").Valid() {
		t.Fatal("unknown mechanism reported valid")
	}
}

func TestPhaseOrder(t *testing.T) {
	want := []Phase{
		PhaseExpertSelection,
		PhaseInitialAnalysis,
		PhasePerspectiveSharing,
		PhaseConflictIdentification,
		PhaseConsensusBuilding,
		PhaseFinalValidation,
	}
	if len(PhaseOrder) != len(want) {
		t.Fatalf("expected %d phases, got %d", len(want), len(PhaseOrder))
	}
	for i, p := range want {
		if PhaseOrder[i] != p {
			t.Fatalf("phase %d: got %q, want %q", i, PhaseOrder[i], p)
		}
	}
}

func TestQualityRatingFromScore(t *testing.T) {
	cases := []struct {
		score float64
		want  QualityRating
	}{
		{0.95, QualityExcellent},
		{0.8, QualityExcellent},
		{0.79, QualityGood},
		{0.6, QualityGood},
		{0.59, QualityAcceptable},
		{0.4, QualityAcceptable},
		{0.39, QualityPoor},
		{0.0, QualityPoor},
	}
	for _, tc := range cases {
		if got := QualityRatingFromScore(tc.score); got != tc.want {
			t.Errorf("score %v: got %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestSessionCompleted(t *testing.T) {
	s := &Session{}
	if s.Completed() {
		t.Fatal("session without analysis must not be completed")
	}
	s.Analysis = &Analysis{Mechanism: Majority}
	if !s.Completed() {
		t.Fatal("session with analysis must be completed")
	}
}
