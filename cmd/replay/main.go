// Command replay evaluates an .xlsx session export in order against a fresh
// in-memory window and writes an .xlsx report.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"voice-rewards-go/internal/aggregator"
	"voice-rewards-go/internal/config"
	"voice-rewards-go/internal/dataset"
	"voice-rewards-go/internal/ledger"
	"voice-rewards-go/internal/locale"
	"voice-rewards-go/internal/logger"
	"voice-rewards-go/internal/processor"
	"voice-rewards-go/internal/reward"
	"voice-rewards-go/internal/window"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", envOr("CONFIG_PATH", config.DefaultPath), "config file")
	in := flag.String("in", "", "session export (.xlsx); defaults to DATASET_PATH")
	out := flag.String("out", "", "report path (.xlsx); defaults to REPORT_PATH")
	publish := flag.Bool("publish", false, "hand results to the ledger")
	flag.Parse()

	log := logger.New().WithComponent("replay")
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if *in == "" {
		*in = cfg.DatasetPath
	}
	if *out == "" {
		*out = cfg.ReportPath
	}

	pack, err := locale.Load(cfg.Locale)
	if err != nil {
		log.WithError(err).Fatal("failed to load locale pack")
	}
	engine, err := reward.NewEngine(cfg.Reward)
	if err != nil {
		log.WithError(err).Fatal("failed to build reward engine")
	}

	ds, err := dataset.Load(*in)
	if err != nil {
		log.WithError(err).WithField("path", *in).Fatal("failed to load sessions")
	}
	for _, re := range ds.Rejected {
		log.WithError(re.Err).WithField("row", re.Row).WithField("session_id", re.SessionID).Warn("row skipped")
	}
	log.WithField("sessions", len(ds.Sessions)).
		WithField("skipped", ds.Skipped).
		WithField("businesses", len(ds.Contexts)).
		Info("dataset loaded")

	store := window.NewMemoryStore(cfg.Window)
	opts := processor.Options{
		Pack:    pack,
		Content: store,
		History: store,
		Window:  cfg.Window,
		Fraud:   cfg.Fraud,
		Quality: cfg.Quality,
		Reward:  engine,
		Log:     log,
	}
	if *publish {
		opts.Publisher = ledger.New(ledger.Options{
			URL:        cfg.Ledger.URL,
			Mock:       cfg.Ledger.Mock,
			Timeout:    cfg.Ledger.Timeout,
			MaxElapsed: cfg.Ledger.MaxElapsed,
			Log:        log,
		})
		opts.PublishQueue = len(ds.Sessions)
	}
	evaluator, err := processor.New(opts)
	if err != nil {
		log.WithError(err).Fatal("failed to build evaluator")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	evs, err := evaluator.EvaluateAll(ctx, ds.Sessions, ds.Contexts)
	if err != nil {
		log.WithError(err).Error("replay interrupted, writing partial report")
	}
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := evaluator.Close(closeCtx); err != nil {
		log.WithError(err).Warn("ledger hand-offs still pending at exit")
	}
	sum := aggregator.Aggregate(evs)
	if err := dataset.WriteReport(*out, evs, sum, pack); err != nil {
		log.WithError(err).Fatal("failed to write report")
	}
	log.WithField("report", *out).
		WithField("eligible", sum.Eligible).
		WithField("total_reward", pack.FormatMinor(sum.TotalReward)).
		WithField("total_cost", pack.FormatMinor(sum.TotalCost)).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("replay finished")
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
