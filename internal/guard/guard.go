// Package guard decides whether a view may render for the current session.
package guard

import "github.com/ghaggin/courseweb/internal/model"

type Decision int

const (
	Render Decision = iota
	RedirectLogin
	RedirectHome
)

const (
	LoginPath = "/login"
	HomePath  = "/"
)

func (d Decision) String() string {
	switch d {
	case Render:
		return "render"
	case RedirectLogin:
		return "redirect-login"
	case RedirectHome:
		return "redirect-home"
	default:
		return "unknown"
	}
}

// Location is the redirect target for d, or "" for Render.
func (d Decision) Location() string {
	switch d {
	case RedirectLogin:
		return LoginPath
	case RedirectHome:
		return HomePath
	default:
		return ""
	}
}

// Decide gates a view that requires one of required (any role when empty).
// A nil session always goes to login.
func Decide(required []model.Role, s *model.Session) Decision {
	if s == nil {
		return RedirectLogin
	}
	if len(required) > 0 && !s.HasRole(required...) {
		return RedirectHome
	}
	return Render
}
