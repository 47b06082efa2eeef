package gateway

import (
	"net/http"
	"time"

	"github.com/florianilch/dataportal/internal/apiclient"
	"github.com/florianilch/dataportal/internal/subscription"
)

// SubscriptionErrorEvent is streamed when a poll fails.
type SubscriptionErrorEvent struct {
	Error  string `json:"error"`
	Status int    `json:"status,omitempty"`
}

// SubscriptionEventsHandler streams an organization's subscription as SSE.
// Polls go through the fetcher's retry guard; suppressed polls emit a comment.
type SubscriptionEventsHandler struct {
	Subscriptions *subscription.Fetcher
	Interval      time.Duration
}

// Compile-time check to ensure SubscriptionEventsHandler implements http.Handler
var _ http.Handler = (*SubscriptionEventsHandler)(nil)

// ServeHTTP implements http.Handler interface.
func (h *SubscriptionEventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orgID := r.URL.Query().Get("org")
	if orgID == "" {
		writeError(ctx, w, http.StatusBadRequest, "missing org query parameter")
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		writeError(ctx, w, http.StatusInternalServerError, "")
		return
	}

	interval := h.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	h.Subscriptions.Watch(ctx, orgID, interval, func(u subscription.Update) bool {
		var writeErr error
		switch {
		case u.Err != nil:
			writeErr = sse.WriteEvent("error", SubscriptionErrorEvent{
				Error:  u.Err.Error(),
				Status: apiclient.StatusCode(u.Err),
			})
		case u.Sub == nil:
			writeErr = sse.WriteComment("suppressed after repeated failures")
		default:
			writeErr = sse.WriteEvent("subscription", u.Sub)
		}
		// A failed write means the client is gone
		return writeErr == nil
	})
}
