package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	apperrors "github.com/trexinity/another/pkg/errors"
	"github.com/trexinity/another/pkg/interfaces"
	"github.com/trexinity/another/pkg/logger"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":{"type":"INTERNAL","message":"failed to encode response"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// statusFor maps an application error onto an HTTP status.
func statusFor(err error) int {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeValidation, apperrors.ErrorTypeBadRequest:
		return http.StatusBadRequest
	case apperrors.ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrorTypeForbidden:
		return http.StatusForbidden
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeConflict, apperrors.ErrorTypeCounterConflict:
		return http.StatusConflict
	case apperrors.ErrorTypeFetchFailed:
		return http.StatusServiceUnavailable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// WriteError renders err as a JSON error body. Internal details are logged,
// not returned.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	detail := errorDetail{Type: string(apperrors.ErrorTypeInternal), Message: "internal error"}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		detail = errorDetail{Type: string(appErr.Type), Message: appErr.Message, Field: appErr.Field}
	} else if status == http.StatusServiceUnavailable {
		detail = errorDetail{Type: string(apperrors.ErrorTypeFetchFailed), Message: "request timed out"}
	}

	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("Request failed",
			interfaces.String("path", r.URL.Path),
			interfaces.Error(err))
	}
	writeJSON(w, status, errorBody{Error: detail})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.BadRequest("malformed JSON body")
	}
	return nil
}
