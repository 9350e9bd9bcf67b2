// internal/app/features/apierr/apierr.go
//
// Package apierr writes the JSON response envelope shared by every API
// handler and maps store errors onto HTTP status codes.
package apierr

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dalemusser/clubhouse/internal/app/store/docstore"
	membershipstore "github.com/dalemusser/clubhouse/internal/app/store/memberships"
	studentstore "github.com/dalemusser/clubhouse/internal/app/store/students"
	"github.com/dalemusser/clubhouse/internal/app/system/inputval"
	"github.com/dalemusser/clubhouse/internal/domain/models"
	"go.uber.org/zap"
)

// Envelope is the outer shape of every API response. Payload fields are
// merged in by Write.
type Envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Write encodes body as JSON with the given status.
func Write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// OK writes {"success": true} plus the given payload fields.
func OK(w http.ResponseWriter, status int, payload map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	Write(w, status, body)
}

// Message writes {"success": true, "message": msg}.
func Message(w http.ResponseWriter, msg string) {
	Write(w, http.StatusOK, Envelope{Success: true, Message: msg})
}

// Fail writes {"success": false, "error": msg}.
func Fail(w http.ResponseWriter, status int, msg string) {
	Write(w, status, Envelope{Success: false, Error: msg})
}

// Status maps err onto an HTTP status code.
func Status(err error) int {
	var ve *inputval.Error
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrInvalidRole):
		return http.StatusBadRequest
	case errors.Is(err, docstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, membershipstore.ErrDuplicateMembership),
		errors.Is(err, studentstore.ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, docstore.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// FromError writes the failure envelope for err. Server-side failures are
// logged and reported with a generic message.
func FromError(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	status := Status(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		log.Error(op, zap.Error(err))
		msg = "internal error"
	case http.StatusServiceUnavailable:
		log.Warn(op, zap.Error(err))
		msg = "store unavailable"
	}
	Fail(w, status, msg)
}

const maxBody = 1 << 20

// Decode reads a JSON request body into v.
func Decode(r *http.Request, v any) error {
	if r.Body == nil {
		return inputval.Invalid("body", "request body is required")
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v); err != nil {
		return inputval.Invalid("body", "malformed JSON: %v", err)
	}
	return nil
}
