package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/HanTheDev/resumatch/internal/api"
	"github.com/HanTheDev/resumatch/internal/auth"
	"github.com/HanTheDev/resumatch/internal/config"
	"github.com/HanTheDev/resumatch/internal/db"
	"github.com/HanTheDev/resumatch/internal/drafts"
	"github.com/HanTheDev/resumatch/internal/generation"
	"github.com/HanTheDev/resumatch/internal/idempotency"
	"github.com/HanTheDev/resumatch/internal/logging"
	"github.com/HanTheDev/resumatch/internal/orchestrator"
	"github.com/HanTheDev/resumatch/internal/ratelimit"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}
	log := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize document store
	store, err := openStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to open document store")
	}
	defer store.Close()

	probes := map[string]api.Probe{
		"database": api.PingProbe(store, "Database ping failed"),
		"ai":       api.StaticProbe(api.StatusMissing, "AI_API_KEY is not set"),
	}

	// Initialize rate limiter
	var counter ratelimit.Counter
	if cfg.RedisURL != "" {
		rc, err := ratelimit.NewRedisCounter(cfg.RedisURL)
		if err != nil {
			log.WithError(err).Error("invalid REDIS_URL, rate limiting without a shared counter")
			probes["redis"] = api.StaticProbe(api.StatusDegraded, "Invalid REDIS_URL")
		} else {
			defer rc.Close()
			counter = rc
			probes["redis"] = api.PingProbe(rc, "Redis ping failed")
		}
	} else if cfg.Production() {
		probes["redis"] = api.StaticProbe(api.StatusMissing, "REDIS_URL is not set")
	}
	limiter := ratelimit.NewRateLimiter(counter, ratelimit.Options{
		Production:          cfg.Production(),
		AllowMemoryFallback: cfg.AllowMemoryRateLimit,
		Logger:              log,
	})

	// Initialize model client
	client := generation.NewOpenAIClient(generation.ClientConfig{
		APIKey:  cfg.AIAPIKey,
		BaseURL: cfg.AIBaseURL,
		Model:   cfg.ModelName,
	})
	if client.Configured() {
		probes["ai"] = api.PingProbe(client, "Model endpoint probe failed")
	} else {
		log.Warn("AI_API_KEY is not set, generation requests will fail")
	}

	orch := orchestrator.New(auth.Resolver{}, limiter, idempotency.New(idempotency.DefaultTTL), store, client)
	handler := api.NewHandler(orch, store, drafts.New(drafts.DefaultTTL), probes, api.Timeouts{
		AI:          cfg.AITimeout,
		CoverLetter: cfg.CoverLetterTimeout,
		Resume:      cfg.ResumeTimeout,
	})

	// Initialize router
	router := mux.NewRouter()
	router.Use(logging.Middleware)
	router.Use(auth.NewMiddleware(cfg.JWTSecret).Resolve)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port":        cfg.ServerPort,
			"environment": cfg.Environment,
			"model":       cfg.ModelName,
		}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

// openStore picks the backend from the DATABASE_URL scheme. An empty URL
// gives an in-memory SQLite database that is lost on restart.
func openStore(ctx context.Context, databaseURL string) (db.Store, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		pg, err := db.NewPostgres(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		return pg, nil
	case databaseURL == "":
		logrus.Warn("DATABASE_URL is not set, using an in-memory SQLite store")
		return db.NewSQLite(":memory:")
	default:
		return db.NewSQLite(strings.TrimPrefix(databaseURL, "sqlite:"))
	}
}
