package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Layer names the backend policy stage that rejected a request.
type Layer string

const (
	LayerFirewall   Layer = "firewall"
	LayerAccess     Layer = "access"
	LayerGuards     Layer = "guards"
	LayerValidation Layer = "validation"
)

// FieldError is a single per-field validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is a structured non-2xx response from the data API.
type APIError struct {
	Status  int
	Message string
	Layer   Layer
	Errors  []FieldError
}

// errorBody is the wire shape of API error responses.
type errorBody struct {
	Error  string       `json:"error"`
	Layer  Layer        `json:"layer,omitempty"`
	Errors []FieldError `json:"errors,omitempty"`
}

func (e *APIError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "api error %d: %s", e.Status, e.Message)
	if e.Layer != "" {
		fmt.Fprintf(&sb, " (layer %s)", e.Layer)
	}
	for _, fe := range e.Errors {
		fmt.Fprintf(&sb, "; %s: %s", fe.Field, fe.Message)
	}
	return sb.String()
}

// newAPIError decodes an error body, falling back to the status text when
// the body is not the expected JSON.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		apiErr.Message = eb.Error
		apiErr.Layer = eb.Layer
		apiErr.Errors = eb.Errors
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

// TransportError wraps failures that never produced a usable response:
// network errors and 2xx bodies that are not JSON.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether err is an APIError with status 401.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// StatusCode returns the HTTP status of an APIError in err's chain, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
