package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, kind ErrorKind, message string) {
	if message == "" {
		message = kind.Message()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(kind.Status())
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
		Code:  kind.Code(),
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError classifies err and writes the matching error response.
// Dependency failures are logged and redacted; the client only ever sees the
// kind's generic message.
func HandleError(w http.ResponseWriter, r *http.Request, op string, err error) {
	kind := Classify(err)

	attrs := []any{"op", op, "kind", kind.Code(), "error", err}
	if r != nil {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			attrs = append(attrs, "request_id", reqID)
		}
	}

	switch kind {
	case KindDependency, KindTimeout:
		slog.Error("request failed", attrs...)
	case KindCanceled:
		slog.Info("request canceled by client", attrs...)
	default:
		slog.Info("request rejected", attrs...)
	}

	WriteError(w, kind, "")
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
