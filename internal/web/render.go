package web

import (
	"net/http"
	"strconv"

	"github.com/ghaggin/courseweb/internal/middleware"
	"github.com/ghaggin/courseweb/internal/template"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// render fills in the signed-in user and any pending notification, then
// writes tmpl.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, tmpl string, td *template.Data) {
	if sess, ok := s.holder.Current(r.Context()); ok {
		u := sess.User
		td.User = &u
	}
	if f := s.sessions.PopFlash(r.Context()); f != nil {
		td.FlashKind = string(f.Kind)
		td.FlashMessage = f.Message
	}

	if err := template.Render(w, status, tmpl, td); err != nil {
		s.log.Error("failed rendering template", zap.String("template", tmpl), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// redirectWith queues a notification for the next rendered page and
// redirects to location.
func (s *Server) redirectWith(w http.ResponseWriter, r *http.Request, kind middleware.FlashKind, msg, location string) {
	s.sessions.SetFlash(r.Context(), kind, msg)
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func intParam(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
