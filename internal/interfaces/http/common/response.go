package common

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/sngm3741/building-survey-services/api/internal/domain"
)

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// WriteJSON serializes payload to JSON with status and logs on failure.
func WriteJSON(logger logrus.FieldLogger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && logger != nil {
		logger.WithError(err).Warn("encode json response")
	}
}

// StatusFor maps domain errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDecode):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteError replies with the status for err. Internal errors are logged and their
// text is not sent to the client.
func WriteError(logger logrus.FieldLogger, w http.ResponseWriter, err error, action string) {
	status := StatusFor(err)
	body := ErrorResponse{Error: err.Error()}
	if ve, ok := domain.AsValidation(err); ok {
		body = ErrorResponse{Error: ve.Message, Field: ve.Field}
	}
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.WithError(err).Errorf("%s failed", action)
		}
		body = ErrorResponse{Error: action + " failed"}
	}
	WriteJSON(logger, w, status, body)
}

// WriteBytes replies with raw bytes of contentType.
func WriteBytes(logger logrus.FieldLogger, w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil && logger != nil {
		logger.WithError(err).Warn("write response body")
	}
}
