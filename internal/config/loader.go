package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "counsel.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional. Validation
// failures are fatal: a misconfigured engine must refuse to start rather
// than silently renormalize.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "COUNSEL_PORT")
	setString(&cfg.Server.CORSOrigin, "COUNSEL_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "COUNSEL_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "COUNSEL_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "COUNSEL_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "COUNSEL_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "COUNSEL_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.LiteLLM.URL, "LITELLM_URL")
	setString(&cfg.LiteLLM.MasterKey, "LITELLM_MASTER_KEY")
	setString(&cfg.LiteLLM.Model, "COUNSEL_EVALUATOR_MODEL")
	setInt(&cfg.LiteLLM.MaxTokens, "COUNSEL_EVALUATOR_MAX_TOKENS")
	setString(&cfg.Logging.Level, "COUNSEL_LOG_LEVEL")
	setString(&cfg.Logging.Service, "COUNSEL_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "COUNSEL_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "COUNSEL_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "COUNSEL_BREAKER_TIMEOUT")
	setInt64(&cfg.Cache.L1MaxSizeMB, "COUNSEL_CACHE_L1_SIZE_MB")
	setDuration(&cfg.Cache.TTL, "COUNSEL_CACHE_TTL")
	setBool(&cfg.Telemetry.Enabled, "COUNSEL_TELEMETRY_ENABLED")
	setString(&cfg.Telemetry.Endpoint, "COUNSEL_TELEMETRY_ENDPOINT")
	setBool(&cfg.Telemetry.Insecure, "COUNSEL_TELEMETRY_INSECURE")

	// Engine
	setFloat64(&cfg.Engine.DisagreementPenalty, "COUNSEL_ENGINE_DISAGREEMENT_PENALTY")
	setFloat64(&cfg.Engine.DisagreementVariance, "COUNSEL_ENGINE_DISAGREEMENT_VARIANCE")
	setFloat64(&cfg.Engine.TechnicalVariance, "COUNSEL_ENGINE_TECHNICAL_VARIANCE")
	setFloat64(&cfg.Engine.DriverThreshold, "COUNSEL_ENGINE_DRIVER_THRESHOLD")
	setDuration(&cfg.Engine.ExpertTimeout, "COUNSEL_ENGINE_EXPERT_TIMEOUT")
	setInt(&cfg.Engine.HistoryLimit, "COUNSEL_ENGINE_HISTORY_LIMIT")
	setFloat64(&cfg.Engine.Tiers.JuniorCut, "COUNSEL_TIER_JUNIOR_CUT")
	setFloat64(&cfg.Engine.Tiers.SeniorCut, "COUNSEL_TIER_SENIOR_CUT")

	// Consensus
	setFloat64(&cfg.Consensus.ConfidenceGap, "COUNSEL_CONSENSUS_CONFIDENCE_GAP")
	setDuration(&cfg.Consensus.ExpertTimeout, "COUNSEL_CONSENSUS_EXPERT_TIMEOUT")
}

// validate checks required fields, weight sums, and threshold ordering.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if err := validateEngine(&cfg.Engine); err != nil {
		return err
	}
	return validateConsensus(&cfg.Consensus)
}

func validateEngine(e *Engine) error {
	if math.Abs(e.ComplexityWeights.Sum()-1.0) > 1e-9 {
		return fmt.Errorf("engine.complexity_weights must sum to 1.0, got %v", e.ComplexityWeights.Sum())
	}
	if math.Abs(e.CompositeWeights.Sum()-1.0) > 1e-9 {
		return fmt.Errorf("engine.composite_weights must sum to 1.0, got %v", e.CompositeWeights.Sum())
	}
	t := e.Tiers
	if t.JuniorCut <= 0 || t.SeniorCut >= 1 || t.JuniorCut >= t.SeniorCut {
		return fmt.Errorf("engine.tiers: require 0 < junior_cut < senior_cut < 1, got %v/%v", t.JuniorCut, t.SeniorCut)
	}
	if t.AgentOnlyConfidence <= t.JuniorConfidence || t.JuniorConfidence <= t.SeniorConfidence {
		return errors.New("engine.tiers: confidence floors must be strictly decreasing")
	}
	if e.DisagreementPenalty <= 0 || e.DisagreementPenalty > 1 {
		return errors.New("engine.disagreement_penalty must be in (0, 1]")
	}
	if e.DriverThreshold <= 0 || e.DriverThreshold >= 1 {
		return errors.New("engine.driver_threshold must be in (0, 1)")
	}
	if e.ExpertTimeout <= 0 {
		return errors.New("engine.expert_timeout must be positive")
	}
	return nil
}

func validateConsensus(c *Consensus) error {
	if c.ConfidenceGap <= 0 || c.ConfidenceGap >= 1 {
		return errors.New("consensus.confidence_gap must be in (0, 1)")
	}
	if c.ExpertTimeout <= 0 {
		return errors.New("consensus.expert_timeout must be positive")
	}
	for _, entry := range []struct {
		name   string
		params MechanismParams
	}{
		{"unanimous", c.Mechanisms.Unanimous},
		{"majority", c.Mechanisms.Majority},
		{"weighted_consensus", c.Mechanisms.WeightedConsensus},
		{"expert_hierarchy", c.Mechanisms.ExpertHierarchy},
		{"domain_specialist", c.Mechanisms.DomainSpecialist},
	} {
		p := entry.params
		if p.MinExperts < 1 || p.MaxExperts < p.MinExperts {
			return fmt.Errorf("consensus.mechanisms.%s: require 1 <= min_experts <= max_experts", entry.name)
		}
		if p.Threshold <= 0 || p.Threshold > 1 {
			return fmt.Errorf("consensus.mechanisms.%s: threshold must be in (0, 1]", entry.name)
		}
		if p.ConflictTolerance < 0 || p.ConflictTolerance > 1 {
			return fmt.Errorf("consensus.mechanisms.%s: conflict_tolerance must be in [0, 1]", entry.name)
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
