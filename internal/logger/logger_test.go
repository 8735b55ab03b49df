package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-rewards-go/internal/types"
)

func jsonLogger(t *testing.T) (*Logger, *bytes.Buffer) {
	t.Helper()
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("LOG_LEVEL", "debug")
	var buf bytes.Buffer
	return NewWithOutput(&buf), &buf
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var out map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &out))
	return out
}

func TestWithSession(t *testing.T) {
	l, buf := jsonLogger(t)

	l.WithComponent("processor").WithSession(types.FeedbackSession{
		SessionID:    "s-1",
		BusinessID:   "biz-1",
		CustomerHash: "c-1",
		Tier:         types.TierPremium,
	}).Info("evaluated")

	line := lastLine(t, buf)
	assert.Equal(t, "voice-rewards-go", line["service"])
	assert.Equal(t, "processor", line["component"])
	assert.Equal(t, "s-1", line["session_id"])
	assert.Equal(t, float64(3), line["business_tier"])
}

func TestWithRequestUsesHeaderID(t *testing.T) {
	l, buf := jsonLogger(t)
	r := httptest.NewRequest("POST", "/v1/evaluations", nil)
	r.Header.Set("X-Request-ID", "req-42")

	l.WithRequest(r).Info("handled")

	line := lastLine(t, buf)
	assert.Equal(t, "req-42", line["req_id"])
	assert.Equal(t, "/v1/evaluations", line["path"])
}

func TestRequestIDGeneratedWhenMissing(t *testing.T) {
	r := httptest.NewRequest("GET", "/healthz", nil)
	assert.Len(t, RequestID(r), 36)
}

func TestWithError(t *testing.T) {
	l, buf := jsonLogger(t)

	l.WithError(errors.New("boom")).Warn("failed")
	assert.Equal(t, "boom", lastLine(t, buf)["error"])
	assert.Equal(t, l.Entry, l.WithError(nil))
}

func TestLevelFromEnv(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, levelFromEnv("debug"))
	assert.Equal(t, logrus.ErrorLevel, levelFromEnv("error"))
	assert.Equal(t, logrus.InfoLevel, levelFromEnv(""))
}
