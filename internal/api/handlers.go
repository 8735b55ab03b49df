package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"voice-rewards-go/internal/explain"
	"voice-rewards-go/internal/locale"
	"voice-rewards-go/internal/reward"
	"voice-rewards-go/internal/types"
)

var errInvalidInput = errors.New("invalid input")

// DurationSeconds takes precedence over session.duration, which is in
// nanoseconds.
type evaluateRequest struct {
	Session         types.FeedbackSession  `json:"session"`
	Business        *types.BusinessContext `json:"business_context"`
	DurationSeconds *float64               `json:"duration_seconds,omitempty"`
	Locale          string                 `json:"locale,omitempty"`
}

type evaluateResponse struct {
	Evaluation  types.Evaluation    `json:"evaluation"`
	Explanation explain.Explanation `json:"explanation"`
}

type calculateRequest struct {
	QualityScore    int                `json:"quality_score"`
	PurchaseAmount  int64              `json:"purchase_amount"`
	PurchasedAt     time.Time          `json:"purchased_at"`
	FeedbackAt      time.Time          `json:"feedback_at"`
	BusinessTier    types.BusinessTier `json:"business_tier"`
	FraudRiskScore  *float64           `json:"fraud_risk_score,omitempty"`
	FraudSeverities []types.Severity   `json:"fraud_severities,omitempty"`
	Categories      []string           `json:"categories,omitempty"`
	DurationSeconds float64            `json:"duration_seconds"`
}

type overrideRequest struct {
	Original     types.RewardResult `json:"original"`
	BusinessTier types.BusinessTier `json:"business_tier"`
	Amount       int64              `json:"amount"`
	Actor        string             `json:"actor"`
	Reason       string             `json:"reason"`
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			h.log.WithRequest(r).WithError(err).Warn("not ready")
			writeError(w, r, http.StatusServiceUnavailable, "NOT_READY", "dependencies unavailable")
			return
		}
	}
	writeSuccess(w, http.StatusOK, "ready")
}

func (h *Handler) evaluate(w http.ResponseWriter, r *http.Request) {
	log := h.log.WithRequest(r).WithField("handler", "evaluate")
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	pack, err := h.packFor(req.Locale)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if req.DurationSeconds != nil {
		req.Session.Duration = time.Duration(*req.DurationSeconds * float64(time.Second))
	}

	ev, err := h.evaluator.Evaluate(r.Context(), req.Session, req.Business)
	if err != nil {
		log.WithError(err).Warn("evaluation refused")
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, evaluateResponse{Evaluation: ev, Explanation: explain.Generate(ev, pack)})
}

func (h *Handler) calculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	if req.PurchasedAt.IsZero() || req.FeedbackAt.IsZero() {
		h.fail(w, r, fmt.Errorf("%w: purchased_at and feedback_at are required", errInvalidInput))
		return
	}
	res := h.engine.Calculate(reward.Input{
		QualityScore:    req.QualityScore,
		PurchaseAmount:  req.PurchaseAmount,
		PurchasedAt:     req.PurchasedAt,
		FeedbackAt:      req.FeedbackAt,
		BusinessTier:    req.BusinessTier,
		FraudRiskScore:  req.FraudRiskScore,
		FraudSeverities: req.FraudSeverities,
		Categories:      req.Categories,
		Duration:        time.Duration(req.DurationSeconds * float64(time.Second)),
	})
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) override(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	res, err := h.engine.Override(req.Original, req.BusinessTier, req.Amount, req.Actor, req.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.log.WithRequest(r).
		WithField("actor", strings.TrimSpace(req.Actor)).
		WithField("original_amount", req.Original.RewardAmount).
		WithField("amount", res.RewardAmount).
		Info("manual override recorded")
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := mapDomainError(err)
	if status >= http.StatusInternalServerError {
		h.log.WithRequest(r).WithError(err).Error("request failed")
	}
	writeError(w, r, status, code, msg)
}

var packCache sync.Map

func (h *Handler) packFor(name string) (*locale.Pack, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == h.pack.Locale {
		return h.pack, nil
	}
	if p, ok := packCache.Load(name); ok {
		return p.(*locale.Pack), nil
	}
	p, err := locale.Load(name)
	if err != nil {
		return nil, err
	}
	packCache.Store(name, p)
	return p, nil
}
