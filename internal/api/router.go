// Package api exposes the reward engine over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"voice-rewards-go/internal/locale"
	"voice-rewards-go/internal/logger"
	"voice-rewards-go/internal/processor"
	"voice-rewards-go/internal/reward"
)

// Options.Pack is used when a request names no locale. Ready reports whether
// backing stores are reachable; nil means always ready.
type Options struct {
	Evaluator *processor.Evaluator
	Engine    *reward.Engine
	Pack      *locale.Pack
	Ready     func(ctx context.Context) error
	Log       *logger.Logger
}

type Handler struct {
	evaluator *processor.Evaluator
	engine    *reward.Engine
	pack      *locale.Pack
	ready     func(ctx context.Context) error
	log       *logger.Logger
}

func NewHandler(opts Options) *Handler {
	if opts.Log == nil {
		opts.Log = logger.Discard()
	}
	return &Handler{
		evaluator: opts.Evaluator,
		engine:    opts.Engine,
		pack:      opts.Pack,
		ready:     opts.Ready,
		log:       opts.Log.WithComponent("api"),
	}
}

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(h.recoverMiddleware)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ok") })
	r.Get("/readyz", h.readyz)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Post("/evaluations", h.evaluate)
		r.Post("/rewards/calculate", h.calculate)
		r.Post("/rewards/override", h.override)
	})
	return r
}
