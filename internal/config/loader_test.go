package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults_Validate(t *testing.T) {
	cfg := Defaults()
	if err := validate(&cfg); err != nil {
		t.Fatalf("defaults must validate, got: %v", err)
	}
}

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing yaml must not fail: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Fatalf("expected default port, got %q", cfg.Server.Port)
	}
	if cfg.Engine.Tiers.SeniorCut != 0.6 {
		t.Fatalf("expected default senior cut 0.6, got %v", cfg.Engine.Tiers.SeniorCut)
	}
}

func TestLoadFrom_YAMLOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counsel.yaml")
	yaml := `
server:
  port: "9090"
engine:
  disagreement_penalty: 0.9
  tiers:
    junior_cut: 0.25
    senior_cut: 0.55
consensus:
  confidence_gap: 0.25
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port 9090, got %q", cfg.Server.Port)
	}
	if cfg.Engine.DisagreementPenalty != 0.9 {
		t.Fatalf("expected penalty 0.9, got %v", cfg.Engine.DisagreementPenalty)
	}
	if cfg.Engine.Tiers.JuniorCut != 0.25 || cfg.Engine.Tiers.SeniorCut != 0.55 {
		t.Fatalf("tier cuts not applied: %+v", cfg.Engine.Tiers)
	}
	if cfg.Consensus.ConfidenceGap != 0.25 {
		t.Fatalf("expected gap 0.25, got %v", cfg.Consensus.ConfidenceGap)
	}
	// Untouched sections keep defaults.
	if cfg.Engine.CompositeWeights.Confidence != 0.35 {
		t.Fatalf("composite weights should keep defaults, got %+v", cfg.Engine.CompositeWeights)
	}
}

func TestLoadFrom_EnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counsel.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: \"9090\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("COUNSEL_PORT", "7070")
	t.Setenv("COUNSEL_ENGINE_EXPERT_TIMEOUT", "5s")
	t.Setenv("COUNSEL_TIER_SENIOR_CUT", "0.65")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Fatalf("env must win over yaml, got %q", cfg.Server.Port)
	}
	if cfg.Engine.ExpertTimeout != 5*time.Second {
		t.Fatalf("expected 5s expert timeout, got %v", cfg.Engine.ExpertTimeout)
	}
	if cfg.Engine.Tiers.SeniorCut != 0.65 {
		t.Fatalf("expected senior cut 0.65, got %v", cfg.Engine.Tiers.SeniorCut)
	}
}

func TestValidate_ComplexityWeightsMustSumToOne(t *testing.T) {
	cfg := Defaults()
	cfg.Engine.ComplexityWeights.Technical = 0.5
	err := validate(&cfg)
	if err == nil {
		t.Fatal("expected weight-sum validation error")
	}
	if !strings.Contains(err.Error(), "complexity_weights") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_CompositeWeightsMustSumToOne(t *testing.T) {
	cfg := Defaults()
	cfg.Engine.CompositeWeights.Risk = 0.5
	if err := validate(&cfg); err == nil {
		t.Fatal("expected weight-sum validation error")
	}
}

func TestValidate_TierOrdering(t *testing.T) {
	cfg := Defaults()
	cfg.Engine.Tiers.JuniorCut = 0.7
	if err := validate(&cfg); err == nil {
		t.Fatal("expected tier ordering error when junior_cut >= senior_cut")
	}

	cfg = Defaults()
	cfg.Engine.Tiers.JuniorConfidence = 0.95
	if err := validate(&cfg); err == nil {
		t.Fatal("expected tier ordering error for confidence floors")
	}
}

func TestValidate_MechanismParams(t *testing.T) {
	cfg := Defaults()
	cfg.Consensus.Mechanisms.Majority.MinExperts = 0
	if err := validate(&cfg); err == nil {
		t.Fatal("expected error for min_experts < 1")
	}

	cfg = Defaults()
	cfg.Consensus.Mechanisms.Unanimous.MaxExperts = 1
	if err := validate(&cfg); err == nil {
		t.Fatal("expected error for max_experts < min_experts")
	}

	cfg = Defaults()
	cfg.Consensus.Mechanisms.DomainSpecialist.ConflictTolerance = 1.5
	if err := validate(&cfg); err == nil {
		t.Fatal("expected error for out-of-range conflict_tolerance")
	}
}

func TestMechanismsByName(t *testing.T) {
	m := Defaults().Consensus.Mechanisms
	p, ok := m.ByName("weighted_consensus")
	if !ok || p.MaxExperts != 6 {
		t.Fatalf("expected weighted params, got %+v ok=%v", p, ok)
	}
	if _, ok := m.ByName("coin_flip"); ok {
		t.Fatal("unknown mechanism name should not resolve")
	}
}
