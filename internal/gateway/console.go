package gateway

import (
	"net/http"
)

// ConsoleView describes the console view a guard let through.
type ConsoleView struct {
	View           string `json:"view"`
	Anonymous      bool   `json:"anonymous"`
	Role           string `json:"role,omitempty"`
	ImpersonatedBy string `json:"impersonatedBy,omitempty"`
}

// consoleView answers with the view name and the session that was let through.
func consoleView(name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := ConsoleView{View: name}
		if s, ok := SessionFromContext(r.Context()); ok {
			resp.Anonymous = s.Anonymous
			resp.Role = s.Role
			resp.ImpersonatedBy = s.ImpersonatedBy
		}
		writeJSON(r.Context(), w, http.StatusOK, resp)
	})
}
