package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Vovarama1992/studio-assistant/internal/ai"
	"github.com/Vovarama1992/studio-assistant/internal/assistant"
	"github.com/Vovarama1992/studio-assistant/internal/config"
	"github.com/Vovarama1992/studio-assistant/internal/knowledge"
	"github.com/Vovarama1992/studio-assistant/internal/logging"
	"github.com/Vovarama1992/studio-assistant/internal/scheduler"
	"github.com/Vovarama1992/studio-assistant/internal/usage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("service stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	// --- History store ---
	var history assistant.HistoryStore = assistant.NewMemoryHistory()
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			return err
		}

		pg := assistant.NewPostgresHistory(db)
		if err := pg.EnsureSchema(pingCtx); err != nil {
			return err
		}
		history = pg
		logger.Info("history store: postgres")
	} else {
		logger.Info("history store: memory")
	}

	// --- Knowledge base ---
	kb, err := knowledge.Load(cfg.KnowledgePath)
	if err != nil {
		return err
	}

	// --- Backend ---
	backend, err := ai.New(ctx, cfg, logger.Named("ai"))
	if err != nil {
		return err
	}

	// --- Assistant module wiring ---
	dispatcher := assistant.NewDispatcher(backend,
		assistant.WithHistory(history),
		assistant.WithKnowledge(kb),
		assistant.WithLimits(assistant.Limits{
			Limit:   cfg.RateLimit,
			Window:  cfg.RateWindow,
			Spacing: cfg.RateSpacing,
		}),
		assistant.WithTimeout(cfg.BackendTimeout),
		assistant.WithPromptTurns(cfg.HistoryPromptTurns),
		assistant.WithLogger(logger.Named("dispatcher")),
	)

	var recorder assistant.Recorder
	var usageLog *usage.FileRecorder
	if cfg.UsageLogPath != "" {
		usageLog, err = usage.NewFileRecorder(cfg.UsageLogPath)
		if err != nil {
			logger.Warn("usage recorder disabled", zap.Error(err))
		} else {
			recorder = usageLog
		}
	}

	svc := assistant.NewService(dispatcher, kb, recorder, logger.Named("service"))
	handler := assistant.NewHandler(svc, logger.Named("http"))

	// --- Scheduler ---
	sched := scheduler.New(logger.Named("scheduler"))
	if usageLog != nil && cfg.UsageReportSpec != "" {
		if err := sched.Add(cfg.UsageReportSpec, "usage-report", usage.DailyReport(usageLog, logger.Named("usage"), time.Now)); err != nil {
			return err
		}
	}
	if pruner, ok := history.(assistant.Pruner); ok && cfg.HistoryRetention > 0 {
		if err := sched.Add(cfg.PruneSpec, "history-prune", assistant.PruneJob(pruner, cfg.HistoryRetention, time.Now, logger.Named("history"))); err != nil {
			return err
		}
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logging.Middleware(logger.Named("access")))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
	}))

	assistant.RegisterRoutes(r, handler)

	// --- health ---
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("provider", cfg.LLMProvider))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		sched.Start()
		<-gctx.Done()
		sched.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
