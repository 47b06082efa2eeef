// Package apiclient talks to the data API on behalf of a single user.
//
// Credentials travel two ways on every request: the HTTP client's cookie jar
// (session cookies) and, when a token is cached, an Authorization bearer header.
// AuthTransport owns the token side of this:
//
//   - injects "Authorization: Bearer <token>" unless the caller set Authorization
//   - stores the token from any "set-auth-token" response header
//   - clears the cached token on 401 so later calls fall back to cookies
//
// Client layers JSON encoding and error decoding on top:
//
//	store := tokenstore.NewMemoryStore()
//	client, err := apiclient.New("https://api.example.com", store)
//	var orgs []Organization
//	err = client.List(ctx, "organizations", apiclient.ListParams{Limit: 20}, &orgs)
//
// Non-2xx responses surface as *APIError; network failures and malformed
// bodies as *TransportError. Nothing is retried.
package apiclient
