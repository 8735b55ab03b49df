// Package ledger hands finished evaluations to the external payout ledger.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"voice-rewards-go/internal/logger"
	"voice-rewards-go/internal/metrics"
	"voice-rewards-go/internal/types"
)

var ErrRejected = errors.New("ledger rejected evaluation")

type Options struct {
	URL        string
	Mock       bool
	Timeout    time.Duration
	MaxElapsed time.Duration
	HTTPClient *http.Client
	Log        *logger.Logger
}

type Client struct {
	url        string
	mock       bool
	maxElapsed time.Duration
	http       *http.Client
	log        *logger.Logger
}

// Receipt is the ledger's acknowledgement of one hand-off.
type Receipt struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type payload struct {
	IdempotencyKey string           `json:"idempotency_key"`
	Evaluation     types.Evaluation `json:"evaluation"`
	PublishedAt    time.Time        `json:"published_at"`
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxElapsed <= 0 {
		opts.MaxElapsed = 30 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Log == nil {
		opts.Log = logger.Discard()
	}
	return &Client{
		url:        opts.URL,
		mock:       opts.Mock || opts.URL == "",
		maxElapsed: opts.MaxElapsed,
		http:       opts.HTTPClient,
		log:        opts.Log.WithComponent("ledger"),
	}
}

// Publish posts ev to the ledger, retrying transport errors and 5xx with
// exponential backoff. In mock mode it only logs.
func (c *Client) Publish(ctx context.Context, ev types.Evaluation) error {
	log := c.log.WithFields(logrus.Fields{
		"session_id":    ev.SessionID,
		"business_id":   ev.BusinessID,
		"reward_amount": ev.Reward.RewardAmount,
	})
	if c.mock {
		metrics.LedgerPublishTotal.WithLabelValues("mock").Inc()
		log.Info("ledger hand-off (mock)")
		return nil
	}

	key := ev.SessionID
	if key == "" {
		key = uuid.New().String()
	}
	body, err := json.Marshal(payload{IdempotencyKey: key, Evaluation: ev, PublishedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode evaluation: %w", err)
	}

	var receipt Receipt
	err = c.doJSON(ctx, key, body, &receipt)
	if err != nil {
		metrics.LedgerPublishTotal.WithLabelValues("error").Inc()
		log.WithError(err).Error("ledger hand-off failed")
		return err
	}
	metrics.LedgerPublishTotal.WithLabelValues("ok").Inc()
	log.WithField("receipt_id", receipt.ID).Info("ledger hand-off accepted")
	return nil
}

func (c *Client) doJSON(ctx context.Context, key string, body []byte, target interface{}) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = c.maxElapsed

	var lastErr error
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", key)

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			return err
		}
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)

		switch {
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("ledger server error %d: %s", resp.StatusCode, respBody)
			return lastErr
		case resp.StatusCode >= 400:
			lastErr = fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, respBody)
			return backoff.Permanent(lastErr)
		}
		if len(bytes.TrimSpace(respBody)) == 0 {
			return nil
		}
		if err := json.Unmarshal(respBody, target); err != nil {
			lastErr = fmt.Errorf("json decode error: %v body=%s", err, respBody)
			return backoff.Permanent(lastErr)
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		if lastErr != nil {
			return lastErr
		}
		return err
	}
	return nil
}
