package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/sales-insights/internal/domain/analysis/service"
	"github.com/FACorreiaa/sales-insights/pkg/apperr"
	"github.com/FACorreiaa/sales-insights/pkg/observability"
)

type successResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type errorBody struct {
	*apperr.Error
	Suggestions map[string][]string `json:"suggestions,omitempty"`
	RequestID   string              `json:"request_id,omitempty"`
}

type errorResponse struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

// writeJSON encodes before writing the status, so an unencodable body becomes
// a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, status int, body any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.Any("error", err))
		buf.Reset()
		status = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(errorResponse{
			Error: errorBody{Error: &apperr.Error{Kind: apperr.KindInternal, Message: "Error interno"}},
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, successResponse{Success: true, Data: data})
}

// writeError renders err in the error envelope. Errors without a kind are
// reported as internal and their text is not exposed.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = &apperr.Error{Kind: apperr.KindInternal, Message: "Error interno", Cause: err}
	}
	status := apperr.HTTPStatus(appErr.Kind)
	requestID := observability.GetRequestID(r.Context())

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logger.Log(r.Context(), level, "request failed",
		slog.String("code", string(appErr.Kind)),
		slog.String("message", appErr.Message),
		slog.Int("status", status),
		slog.String("request_id", requestID),
		slog.Any("error", err),
	)

	writeJSON(w, status, errorResponse{
		Success: false,
		Error: errorBody{
			Error:       appErr,
			Suggestions: service.SuggestionsOf(err),
			RequestID:   requestID,
		},
	})
}
