// Command counseld runs the decision escalation and multi-expert consensus
// engine: an HTTP API over the scoring pipeline and session orchestrator,
// with PostgreSQL history, NATS JetStream eventing, and a websocket feed.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/quorumlabs/counsel/internal/adapter/experts"
	counselhttp "github.com/quorumlabs/counsel/internal/adapter/http"
	"github.com/quorumlabs/counsel/internal/adapter/litellm"
	counselnats "github.com/quorumlabs/counsel/internal/adapter/nats"
	"github.com/quorumlabs/counsel/internal/adapter/natskv"
	counselotel "github.com/quorumlabs/counsel/internal/adapter/otel"
	"github.com/quorumlabs/counsel/internal/adapter/postgres"
	"github.com/quorumlabs/counsel/internal/adapter/ristretto"
	"github.com/quorumlabs/counsel/internal/adapter/tiered"
	"github.com/quorumlabs/counsel/internal/adapter/ws"
	"github.com/quorumlabs/counsel/internal/config"
	"github.com/quorumlabs/counsel/internal/domain/expert"
	"github.com/quorumlabs/counsel/internal/logger"
	"github.com/quorumlabs/counsel/internal/middleware"
	"github.com/quorumlabs/counsel/internal/port/cache"
	"github.com/quorumlabs/counsel/internal/port/evaluator"
	"github.com/quorumlabs/counsel/internal/port/messagequeue"
	"github.com/quorumlabs/counsel/internal/resilience"
	"github.com/quorumlabs/counsel/internal/service"
)

const analyticsBucket = "counsel-analytics"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	defer logCloser.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
	)

	ctx := context.Background()

	// --- Telemetry ---
	otelShutdown, err := counselotel.Setup(ctx, cfg.Telemetry, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Error("telemetry shutdown", "error", err)
		}
	}()

	metrics, err := counselotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---

	// PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")
	store := postgres.NewStore(pool)

	// NATS
	queue, err := counselnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() {
		if err := queue.Drain(); err != nil {
			slog.Error("nats drain", "error", err)
		}
		_ = queue.Close()
	}()

	// Analytics cache: process-local ristretto in front of the shared
	// JetStream KV bucket.
	analyticsCache, closeCache, err := buildCache(ctx, cfg.Cache, queue)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer closeCache()

	// --- Experts ---
	llmClient := litellm.NewClient(cfg.LiteLLM.URL, cfg.LiteLLM.MasterKey)
	llmClient.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	inbox := experts.NewInbox(queue)
	evaluators := buildEvaluators(cfg.LiteLLM, llmClient)

	// --- Services ---
	hub := ws.NewHub()
	escalations := service.NewEscalationService(cfg.Engine, store, queue, hub, metrics)
	sessions := service.NewSessionOrchestrator(cfg.Consensus, store, queue, hub, metrics)
	analytics := service.NewAnalyticsService(store, analyticsCache, cfg.Cache.TTL)

	cancelInvalidate, err := analytics.StartInvalidator(ctx, queue)
	if err != nil {
		return fmt.Errorf("analytics invalidator: %w", err)
	}
	defer cancelInvalidate()

	// Audit trail for human expert submissions.
	cancelInputs, err := queue.Subscribe(ctx, messagequeue.SubjectExpertInput, logExpertInput)
	if err != nil {
		return fmt.Errorf("expert input subscriber: %w", err)
	}
	defer cancelInputs()

	// --- HTTP ---
	handlers := &counselhttp.Handlers{
		Escalations: escalations,
		Sessions:    sessions,
		Analytics:   analytics,
		Evaluators:  evaluators,
		Inbox:       inbox,
		Hub:         hub,
		Pool:        pool,
		Queue:       queue,
		LiteLLM:     llmClient,
	}

	r := chi.NewRouter()

	r.Use(counselhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(counselhttp.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(counselhttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(counselotel.HTTPMiddleware(cfg.Logging.Service))

	counselhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// buildCache assembles the tiered analytics cache. A KV bucket failure is
// not fatal; the engine falls back to the local tier alone.
func buildCache(ctx context.Context, cfg config.Cache, queue *counselnats.Queue) (cache.Cache, func(), error) {
	l1, err := ristretto.New(cfg.L1MaxSizeMB << 20)
	if err != nil {
		return nil, nil, fmt.Errorf("ristretto: %w", err)
	}

	kv, err := queue.KeyValue(ctx, analyticsBucket, cfg.TTL)
	if err != nil {
		slog.Warn("analytics KV bucket unavailable, using local cache only", "error", err)
		return l1, l1.Close, nil
	}

	return tiered.New(l1, natskv.New(kv), cfg.TTL), l1.Close, nil
}

// buildEvaluators registers one evaluator per expert role: model-backed when
// a LiteLLM master key is configured, deterministic rule-based otherwise.
func buildEvaluators(cfg config.LiteLLM, client *litellm.Client) map[expert.Type]evaluator.Evaluator {
	evaluators := make(map[expert.Type]evaluator.Evaluator, len(expert.Seniority))
	for _, t := range expert.Seniority {
		if cfg.MasterKey != "" {
			evaluators[t] = experts.NewModelBacked(t, client, cfg)
		} else {
			evaluators[t] = experts.NewRuleBased(t)
		}
	}
	return evaluators
}

// logExpertInput records every human expert submission seen on the queue.
func logExpertInput(_ context.Context, subject string, data []byte) error {
	var payload messagequeue.ExpertInputPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("decode %s: %w", subject, err)
	}
	slog.Info("expert input received",
		"request_id", payload.EscalationID,
		"expert_type", payload.ExpertType,
		"recommendation", payload.Recommendation,
		"confidence", payload.Confidence,
	)
	return nil
}
