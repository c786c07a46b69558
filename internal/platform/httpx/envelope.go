package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Envelope is the canonical JSON response shape shared with the storefront
// clients: {success, message, data?, errors?}.
type Envelope struct {
	Success   bool                `json:"success"`
	Message   string              `json:"message"`
	Code      string              `json:"code,omitempty"`
	Data      any                 `json:"data,omitempty"`
	Errors    map[string][]string `json:"errors,omitempty"`
	RequestID string              `json:"request_id,omitempty"`
}

// Error represents a failed request in the canonical envelope.
type Error struct {
	Code    string
	Message string
	Status  int
	Fields  map[string][]string
}

// NewError constructs a new Error with the provided parameters.
func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{
		Code:    sanitize(code, 80),
		Message: sanitize(message, 512),
		Status:  status,
	}
}

// WithFields attaches per-field validation messages.
func (e Error) WithFields(fields map[string][]string) Error {
	if len(fields) == 0 {
		return e
	}
	dup := make(map[string][]string, len(fields))
	for k, v := range fields {
		dup[k] = append([]string(nil), v...)
	}
	e.Fields = dup
	return e
}

// WriteData writes a successful envelope with the given payload.
func WriteData(w http.ResponseWriter, status int, message string, data any) {
	if status == 0 {
		status = http.StatusOK
	}
	payload := Envelope{
		Success: true,
		Message: sanitize(message, 512),
		Data:    data,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteError writes the structured error as a failed envelope.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	status := err.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	payload := Envelope{
		Success:   false,
		Message:   err.Message,
		Code:      err.Code,
		Errors:    err.Fields,
		RequestID: sanitize(middleware.GetReqID(ctx), 80),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func sanitize(value string, limit int) string {
	if limit <= 0 {
		limit = 256
	}
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.TrimSpace(value)
	if len(value) > limit {
		value = value[:limit]
	}
	return value
}
