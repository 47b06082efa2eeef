package gateway

import (
	"fmt"
	pathpkg "path"
	"strings"

	"github.com/florianilch/dataportal/internal/gate"
)

// DefaultAdminPath is the admin console route.
const DefaultAdminPath = "/console/admin"

// Fixed routes served regardless of configuration.
const (
	apiPrefix  = "/api"
	healthPath = "/healthz"
	eventsPath = "/events/subscription"
)

// CheckRoutes rejects console routes that collide with each other or with
// the fixed routes, and a guest home that redirects back to login.
func CheckRoutes(paths gate.Paths, admin string) error {
	if admin == "" {
		admin = DefaultAdminPath
	}
	login := paths.Resolve(gate.DestinationLogin)

	seen := make(map[string]string, 3)
	for _, route := range []struct{ name, path string }{
		{"login", login},
		{"dashboard", paths.Resolve(gate.DestinationDashboard)},
		{"admin", admin},
	} {
		if err := checkRoute(route.name, route.path); err != nil {
			return err
		}
		if other, ok := seen[route.path]; ok {
			return fmt.Errorf("%s route %q collides with the %s route", route.name, route.path, other)
		}
		seen[route.path] = route.name
	}

	if guestHome := paths.Resolve(gate.DestinationGuestHome); guestHome == login {
		return fmt.Errorf("guest home %q is the login route", guestHome)
	}
	return nil
}

func checkRoute(name, p string) error {
	switch {
	case !strings.HasPrefix(p, "/"):
		return fmt.Errorf("%s route %q must start with /", name, p)
	case p == "/" || pathpkg.Clean(p) != p:
		return fmt.Errorf("%s route %q must be a clean path without a trailing slash", name, p)
	case strings.ContainsAny(p, "{} \t\r\n"):
		return fmt.Errorf("%s route %q contains pattern characters", name, p)
	case p == healthPath || p == eventsPath:
		return fmt.Errorf("%s route %q is reserved", name, p)
	case p == apiPrefix || strings.HasPrefix(p, apiPrefix+"/"):
		return fmt.Errorf("%s route %q is under the proxied %s prefix", name, p, apiPrefix)
	}
	return nil
}
