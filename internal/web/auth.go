package web

import (
	"net/http"
	"strings"

	"github.com/ghaggin/courseweb/internal/api"
	"github.com/ghaggin/courseweb/internal/guard"
	"github.com/ghaggin/courseweb/internal/middleware"
	"github.com/ghaggin/courseweb/internal/model"
	"github.com/ghaggin/courseweb/internal/template"
	"go.uber.org/zap"
)

const msgInvalidLogin = "Invalid email or password"

func (s *Server) loginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login.html", &template.Data{
		PageTitle: "login",
		Form:      map[string]string{},
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.PostForm.Get("email"))

	if _, err := s.holder.Login(r.Context(), email, r.PostForm.Get("password")); err != nil {
		s.render(w, r, http.StatusUnauthorized, "login.html", &template.Data{
			PageTitle: "login",
			Error:     msgInvalidLogin,
			Form:      map[string]string{"email": email},
		})
		return
	}

	http.Redirect(w, r, guard.HomePath, http.StatusSeeOther)
}

func (s *Server) registerForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "register.html", &template.Data{
		PageTitle: "register",
		Form:      map[string]string{"role": string(model.RoleStudent)},
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	reg := model.Registration{
		Name:     strings.TrimSpace(r.PostForm.Get("name")),
		Email:    strings.TrimSpace(r.PostForm.Get("email")),
		Password: r.PostForm.Get("password"),
		Role:     model.Role(r.PostForm.Get("role")),
	}
	if !reg.Role.Valid() {
		reg.Role = model.RoleStudent
	}

	if _, err := s.holder.Register(r.Context(), reg); err != nil {
		s.log.Info("registration failed", zap.String("email", reg.Email), zap.Error(err))
		status := api.StatusOf(err)
		if status == 0 {
			status = http.StatusBadGateway
		}
		s.render(w, r, status, "register.html", &template.Data{
			PageTitle: "register",
			Error:     api.DetailOf(err, "Registration failed"),
			Form: map[string]string{
				"name":  reg.Name,
				"email": reg.Email,
				"role":  string(reg.Role),
			},
		})
		return
	}

	s.redirectWith(w, r, middleware.FlashSuccess, "Account created. Please sign in.", guard.LoginPath)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.holder.Logout(r.Context()); err != nil {
		s.log.Warn("logout failed", zap.Error(err))
	}
	http.Redirect(w, r, guard.LoginPath, http.StatusSeeOther)
}
