package access

import (
	"strings"
	"time"
)

// State is the computed access state of a request.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateActive          State = "active"
	StateExpired         State = "expired"
	StateAdmin           State = "admin"
)

// Subject is the minimal view of a signed-in user the gate needs.
type Subject struct {
	UserID          string
	IsAdmin         bool
	IsActive        bool
	AccessExpiresAt *time.Time
}

// Resolve computes the access state. Admins are exempt from both the expiry and
// the active flag. For companies the active flag dominates: an inactive account
// is expired even when its window is still open.
func Resolve(subject *Subject, now time.Time) State {
	switch {
	case subject == nil:
		return StateUnauthenticated
	case subject.IsAdmin:
		return StateAdmin
	case !subject.IsActive, IsExpired(subject.AccessExpiresAt, now):
		return StateExpired
	default:
		return StateActive
	}
}

// Route classifies the destination of a navigation.
type Route string

const (
	RoutePublic        Route = "public"
	RouteRegister      Route = "register"
	RoutePortfolio     Route = "portfolio"
	RouteExpiredNotice Route = "expired"
	RouteAdmin         Route = "admin"
	RouteLogout        Route = "logout"
)

// Action is what the caller should do with a navigation.
type Action string

const (
	ActionAllow    Action = "allow"
	ActionRedirect Action = "redirect"
)

// Well-known page paths.
const (
	PathHome      = "/"
	PathLogin     = "/login"
	PathRegister  = "/register"
	PathPortfolio = "/portfolio"
	PathExpired   = "/expired"
	PathAdmin     = "/admin"
	PathLogout    = "/logout"
)

// Decision is the outcome of Decide.
type Decision struct {
	State  State  `json:"state"`
	Route  Route  `json:"route"`
	Action Action `json:"action"`
	Target string `json:"target,omitempty"`
}

// Allowed reports whether the navigation may proceed.
func (d Decision) Allowed() bool {
	return d.Action == ActionAllow
}

func allow(state State, route Route) Decision {
	return Decision{State: state, Route: route, Action: ActionAllow}
}

func redirect(state State, route Route, target string) Decision {
	return Decision{State: state, Route: route, Action: ActionRedirect, Target: target}
}

// Landing returns the page a user in state should be sent to by default.
func Landing(state State) string {
	switch state {
	case StateAdmin:
		return PathAdmin
	case StateActive:
		return PathPortfolio
	case StateExpired:
		return PathExpired
	default:
		return PathLogin
	}
}

// Decide maps a state and a route class to a navigation decision.
func Decide(state State, route Route) Decision {
	switch state {
	case StateUnauthenticated:
		switch route {
		case RoutePublic, RouteRegister:
			return allow(state, route)
		default:
			return redirect(state, route, PathLogin)
		}

	case StateExpired:
		switch route {
		case RouteExpiredNotice, RouteLogout:
			return allow(state, route)
		default:
			return redirect(state, route, PathExpired)
		}

	case StateActive:
		switch route {
		case RoutePortfolio, RouteLogout:
			return allow(state, route)
		case RouteExpiredNotice:
			// The notice page also hosts the extension form, which active
			// companies may use ahead of expiry.
			return allow(state, route)
		default:
			return redirect(state, route, PathPortfolio)
		}

	case StateAdmin:
		switch route {
		case RouteAdmin, RoutePortfolio, RouteLogout:
			return allow(state, route)
		default:
			return redirect(state, route, PathAdmin)
		}
	}

	return redirect(StateUnauthenticated, route, PathLogin)
}

// ClassifyPath maps a page path to its route class. Unknown paths are treated
// as portfolio content so that new pages are gated by default.
func ClassifyPath(path string) Route {
	path = "/" + strings.Trim(strings.TrimSpace(path), "/")
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	switch {
	case path == PathHome, path == PathLogin:
		return RoutePublic
	case path == PathRegister:
		return RouteRegister
	case path == PathLogout:
		return RouteLogout
	case path == PathExpired, hasSegmentPrefix(path, PathPortfolio+"/request-extension"):
		return RouteExpiredNotice
	case hasSegmentPrefix(path, PathAdmin):
		return RouteAdmin
	default:
		return RoutePortfolio
	}
}

func hasSegmentPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
