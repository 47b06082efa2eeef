// Package gateway serves the local console for a single operator.
//
// Routes:
//
//	/api/*                    forwarded to the data API with the cached token and session cookies
//	GET /console/login        guest-only (configurable)
//	GET /console/dashboard    requires a signed-in session (configurable)
//	GET /console/admin        requires an admin session (configurable)
//	GET /events/subscription  SSE stream of the organization's subscription
//	GET /healthz              liveness
//
// Upstream cookies are kept in the gateway's jar and never reach the browser.
// Console routes answer with a small JSON description of the view; page
// assets are served elsewhere.
package gateway
