package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/httplog/v3"
)

// ErrorResponse is the body of errors produced by the gateway itself. Status
// repeats the HTTP status so it survives in event streams and client logs.
type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// writeJSON commits status and then encodes v. An encoding failure leaves a
// truncated body and is recorded on the request log.
func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		httplog.SetAttrs(ctx, slog.String("encode_error", err.Error()))
	}
}

// writeError writes an ErrorResponse, using the status text when message is empty.
func writeError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	writeJSON(ctx, w, status, ErrorResponse{Error: message, Status: status})
}
