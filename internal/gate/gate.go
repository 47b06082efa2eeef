// Package gate decides what a guarded route does for a given session.
//
// Decide is a pure function from a SessionView to a Decision. Three guard
// kinds share it:
//
//	Auth   requires a non-anonymous session, else redirects to login
//	Admin  additionally requires role "admin", else redirects to the dashboard
//	Guest  is the inverse of Auth: signed-in users are sent to the guest home
//
// Pending sessions always yield Loading and session lookup errors always yield
// Error; neither redirects.
package gate

import "fmt"

// RoleAdmin is the session role required by admin guards.
const RoleAdmin = "admin"

// GuardKind selects the guard variant.
type GuardKind int

const (
	Auth GuardKind = iota
	Admin
	Guest
)

func (k GuardKind) String() string {
	switch k {
	case Auth:
		return "auth"
	case Admin:
		return "admin"
	case Guest:
		return "guest"
	default:
		return fmt.Sprintf("GuardKind(%d)", int(k))
	}
}

// SessionError describes a failed session lookup.
type SessionError struct {
	Message string
	Status  int
}

// SessionView is the guard's view of the identity provider's session state.
type SessionView struct {
	Present   bool
	Anonymous bool
	Role      string
	Pending   bool
	Error     *SessionError

	// ImpersonatedBy is the admin user ID when the session is an impersonation.
	ImpersonatedBy string
}

// Authenticated reports whether the view is a present, non-anonymous session.
func (v SessionView) Authenticated() bool {
	return v.Present && !v.Anonymous
}

// DecisionKind tags a Decision.
type DecisionKind int

const (
	Loading DecisionKind = iota
	Error
	Redirect
	Render
)

func (k DecisionKind) String() string {
	switch k {
	case Loading:
		return "loading"
	case Error:
		return "error"
	case Redirect:
		return "redirect"
	case Render:
		return "render"
	default:
		return fmt.Sprintf("DecisionKind(%d)", int(k))
	}
}

// Destination names a redirect target.
type Destination string

const (
	DestinationLogin     Destination = "login"
	DestinationDashboard Destination = "dashboard"
	DestinationGuestHome Destination = "guest-home"
)

// Decision is the outcome of evaluating a guard.
type Decision struct {
	Kind        DecisionKind
	Destination Destination   // set for Redirect
	Error       *SessionError // set for Error
}

func (d Decision) String() string {
	switch d.Kind {
	case Redirect:
		return "redirect:" + string(d.Destination)
	case Error:
		if d.Error != nil {
			return fmt.Sprintf("error:%d", d.Error.Status)
		}
	}
	return d.Kind.String()
}

// Decide evaluates the guard of the given kind against view.
func Decide(kind GuardKind, view SessionView) Decision {
	if view.Pending {
		return Decision{Kind: Loading}
	}
	if view.Error != nil {
		return Decision{Kind: Error, Error: view.Error}
	}

	if kind == Guest {
		if view.Authenticated() {
			return Decision{Kind: Redirect, Destination: DestinationGuestHome}
		}
		return Decision{Kind: Render}
	}

	if !view.Authenticated() {
		return Decision{Kind: Redirect, Destination: DestinationLogin}
	}
	// Authenticated but under-privileged users go to the dashboard, not login
	if kind == Admin && view.Role != RoleAdmin {
		return Decision{Kind: Redirect, Destination: DestinationDashboard}
	}
	return Decision{Kind: Render}
}

// Paths maps redirect destinations to URLs.
type Paths struct {
	Login     string
	Dashboard string
	GuestHome string
}

// DefaultPaths are used for empty Paths fields.
var DefaultPaths = Paths{
	Login:     "/login",
	Dashboard: "/dashboard",
	GuestHome: "/dashboard",
}

// Resolve returns the URL for dest.
func (p Paths) Resolve(dest Destination) string {
	pick := func(v, fallback string) string {
		if v != "" {
			return v
		}
		return fallback
	}
	switch dest {
	case DestinationLogin:
		return pick(p.Login, DefaultPaths.Login)
	case DestinationDashboard:
		return pick(p.Dashboard, DefaultPaths.Dashboard)
	case DestinationGuestHome:
		return pick(p.GuestHome, DefaultPaths.GuestHome)
	default:
		return "/"
	}
}
