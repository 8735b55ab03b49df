package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"voice-rewards-go/internal/api"
	"voice-rewards-go/internal/config"
	"voice-rewards-go/internal/ledger"
	"voice-rewards-go/internal/locale"
	"voice-rewards-go/internal/logger"
	"voice-rewards-go/internal/metrics"
	"voice-rewards-go/internal/processor"
	"voice-rewards-go/internal/reward"
	"voice-rewards-go/internal/window"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	cfg, err := config.Load(envOr("CONFIG_PATH", config.DefaultPath))
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	log.WithField("locale", cfg.Locale).
		WithField("conservative_mode", cfg.Fraud.ConservativeMode).
		Info("starting service")
	metrics.Register()

	pack, err := locale.Load(cfg.Locale)
	if err != nil {
		log.WithError(err).Fatal("failed to load locale pack")
	}
	engine, err := reward.NewEngine(cfg.Reward)
	if err != nil {
		log.WithError(err).Fatal("failed to build reward engine")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		content window.ContentStore
		history window.HistoryStore
		ready   func(context.Context) error
	)
	if cfg.RedisURL != "" {
		client, err := window.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to redis")
		}
		defer client.Close()
		store := window.NewRedisStore(client, cfg.Window)
		content, history = store, store
		ready = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		log.Info("using redis window store")
	} else {
		store := window.NewMemoryStore(cfg.Window)
		content, history = store, store
		log.Warn("REDIS_URL not set, using in-memory window store")
	}

	evaluator, err := processor.New(processor.Options{
		Pack:    pack,
		Content: content,
		History: history,
		Window:  cfg.Window,
		Fraud:   cfg.Fraud,
		Quality: cfg.Quality,
		Reward:  engine,
		Publisher: ledger.New(ledger.Options{
			URL:        cfg.Ledger.URL,
			Mock:       cfg.Ledger.Mock,
			Timeout:    cfg.Ledger.Timeout,
			MaxElapsed: cfg.Ledger.MaxElapsed,
			Log:        log,
		}),
		Log: log,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to build evaluator")
	}

	handler := api.NewHandler(api.Options{
		Evaluator: evaluator,
		Engine:    engine,
		Pack:      pack,
		Ready:     ready,
		Log:       log,
	})

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("shutdown failed")
		}
	}()

	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server terminated")
	}
	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := evaluator.Close(closeCtx); err != nil {
		log.WithError(err).Warn("ledger hand-offs still pending at exit")
	}
	log.Info("server stopped")
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
