package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"voice-rewards-go/internal/locale"
	"voice-rewards-go/internal/processor"
	"voice-rewards-go/internal/reward"
)

type apiError struct {
	Status    string `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, map[string]any{
		"status": "success",
		"data":   data,
	})
}

func writeError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	writeJSON(w, statusCode, apiError{
		Status:    "error",
		Code:      code,
		Message:   message,
		RequestID: r.Header.Get(requestIDHeader),
	})
}

func mapDomainError(err error) (int, string, string) {
	switch {
	case errors.Is(err, processor.ErrInvalidSession):
		return http.StatusBadRequest, "INVALID_SESSION", err.Error()
	case errors.Is(err, reward.ErrInvalidOverride):
		return http.StatusBadRequest, "INVALID_OVERRIDE", err.Error()
	case errors.Is(err, locale.ErrUnknownLocale):
		return http.StatusBadRequest, "UNKNOWN_LOCALE", err.Error()
	case errors.Is(err, errInvalidInput):
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error()
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
	}
}
