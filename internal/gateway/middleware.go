package gateway

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/httplog/v3"
)

// Recovery turns a handler panic into a JSON 500 and attaches the panic
// value to the request log.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				httplog.SetError(r.Context(), fmt.Errorf("panic: %v", v))
				writeError(r.Context(), w, http.StatusInternalServerError, "")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// Logging records one line per gateway request. Successful health checks are
// skipped and guard decisions are added by Guard through httplog.SetAttrs.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return httplog.RequestLogger(logger, &httplog.Options{
		Schema: httplog.SchemaECS.Concise(true),

		Skip: func(req *http.Request, respStatus int) bool {
			return req.URL.Path == healthPath && respStatus == http.StatusOK
		},

		// Tokens and session cookies travel in headers, so only these are logged
		LogRequestHeaders:  []string{"Content-Type", "Origin"},
		LogResponseHeaders: []string{"Location", HeaderImpersonatedBy},

		RecoverPanics: false, // Recovery answers the client
	})
}

// applyMiddlewares applies middlewares to a handler in the order they appear.
// The first middleware in the slice is the outermost (executes first).
func applyMiddlewares(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
