package middleware

import (
	"net/http"

	"github.com/ghaggin/courseweb/internal/guard"
	"github.com/ghaggin/courseweb/internal/model"
	"github.com/ghaggin/courseweb/internal/session"
)

// RequireRole redirects unless the held session has one of roles. With no
// roles any session passes.
func RequireRole(h *session.Holder, roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, _ := h.Current(r.Context())

			if d := guard.Decide(roles, s); d != guard.Render {
				http.Redirect(w, r, d.Location(), http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth is RequireRole with no role restriction.
func RequireAuth(h *session.Holder) func(http.Handler) http.Handler {
	return RequireRole(h)
}

// RequireAnonymous sends signed-in users home, for the login and register
// forms.
func RequireAnonymous(h *session.Holder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := h.Current(r.Context()); ok {
				http.Redirect(w, r, guard.HomePath, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
