package gateway

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/httplog/v3"

	"github.com/florianilch/dataportal/internal/gate"
)

// HeaderImpersonatedBy exposes the impersonating admin on guarded responses.
const HeaderImpersonatedBy = "X-Impersonated-By"

// GuardErrorResponse is the body of a failed session lookup. Retry is the URL
// to request again once the identity provider recovers.
type GuardErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status,omitempty"`
	Retry  string `json:"retry"`
}

// GuardLoadingResponse is the body returned while the session is unresolved.
type GuardLoadingResponse struct {
	State string `json:"state"`
}

type sessionKey struct{}

// SessionFromContext returns the session view that passed the guard.
func SessionFromContext(ctx context.Context) (gate.SessionView, bool) {
	v, ok := ctx.Value(sessionKey{}).(gate.SessionView)
	return v, ok
}

// Guard evaluates the session on every request and redirects, fails or
// passes through according to gate.Decide.
func Guard(kind gate.GuardKind, sessions gate.Source, paths gate.Paths) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			view := sessions.SessionView(ctx)
			decision := gate.Decide(kind, view)

			httplog.SetAttrs(ctx,
				slog.String("guard", kind.String()),
				slog.String("decision", decision.String()),
			)

			if view.ImpersonatedBy != "" {
				w.Header().Set(HeaderImpersonatedBy, view.ImpersonatedBy)
			}

			switch decision.Kind {
			case gate.Loading:
				w.Header().Set("Retry-After", "1")
				writeJSON(ctx, w, http.StatusServiceUnavailable, GuardLoadingResponse{State: "loading"})
			case gate.Error:
				writeJSON(ctx, w, errorStatus(decision.Error.Status), GuardErrorResponse{
					Error:  decision.Error.Message,
					Status: decision.Error.Status,
					Retry:  r.URL.RequestURI(),
				})
			case gate.Redirect:
				http.Redirect(w, r, paths.Resolve(decision.Destination), http.StatusSeeOther)
			default:
				next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, sessionKey{}, view)))
			}
		})
	}
}

// errorStatus maps an identity provider status onto the gateway response status.
func errorStatus(status int) int {
	if status >= 500 && status <= 599 {
		return status
	}
	return http.StatusBadGateway
}
