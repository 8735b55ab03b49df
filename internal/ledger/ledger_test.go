package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-rewards-go/internal/metrics"
	"voice-rewards-go/internal/types"
)

func evaluation() types.Evaluation {
	return types.Evaluation{
		SessionID:  "sess-1",
		BusinessID: "biz-1",
		Reward:     types.RewardResult{Eligible: true, RewardAmount: 1000, Commission: 180, BusinessCost: 1180},
	}
}

func newClient(url string) *Client {
	return New(Options{URL: url, MaxElapsed: 2 * time.Second})
}

func TestPublishAccepted(t *testing.T) {
	var got payload
	var key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key = r.Header.Get("Idempotency-Key")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"rcpt-1","status":"queued"}`))
	}))
	defer srv.Close()
	before := testutil.ToFloat64(metrics.LedgerPublishTotal.WithLabelValues("ok"))

	require.NoError(t, newClient(srv.URL).Publish(context.Background(), evaluation()))

	assert.Equal(t, "sess-1", key)
	assert.Equal(t, "sess-1", got.IdempotencyKey)
	assert.Equal(t, int64(1000), got.Evaluation.Reward.RewardAmount)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.LedgerPublishTotal.WithLabelValues("ok")))
}

func TestPublishRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, newClient(srv.URL).Publish(context.Background(), evaluation()))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestPublishClientErrorIsPermanent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "duplicate", http.StatusConflict)
	}))
	defer srv.Close()

	err := newClient(srv.URL).Publish(context.Background(), evaluation())

	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestPublishGivesUpAfterMaxElapsed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()
	c := New(Options{URL: srv.URL, MaxElapsed: 300 * time.Millisecond})

	err := c.Publish(context.Background(), evaluation())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestPublishMockSkipsNetwork(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	require.NoError(t, New(Options{URL: srv.URL, Mock: true}).Publish(context.Background(), evaluation()))
	require.NoError(t, New(Options{}).Publish(context.Background(), evaluation()))
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestPublishCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, newClient(srv.URL).Publish(ctx, evaluation()))
}
