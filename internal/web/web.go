package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ghaggin/courseweb/internal/api"
	"github.com/ghaggin/courseweb/internal/config"
	"github.com/ghaggin/courseweb/internal/middleware"
	"github.com/ghaggin/courseweb/internal/model"
	"github.com/ghaggin/courseweb/internal/session"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Server renders the course-enrollment views.
type Server struct {
	log      *zap.Logger
	holder   *session.Holder
	client   *api.Client
	sessions *middleware.SessionManager
	gatherer prometheus.Gatherer
	server   *http.Server
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Config   *config.Config
	Holder   *session.Holder
	Client   *api.Client
	Sessions *middleware.SessionManager
	Gatherer prometheus.Gatherer `optional:"true"`
}

func New(p Params) (*Server, error) {
	gatherer := p.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		log:      p.Log.Named("web"),
		holder:   p.Holder,
		client:   p.Client,
		sessions: p.Sessions,
		gatherer: gatherer,
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", p.Config.Web.Host, p.Config.Web.Port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) routes() http.Handler {
	root := chi.NewRouter()
	root.Use(chimw.RequestID)
	root.Use(chimw.RealIP)
	root.Use(s.logRequests)
	root.Use(chimw.Recoverer)

	root.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	root.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	root.Group(func(r chi.Router) {
		r.Use(s.sessions.Wrap)

		// No Auth
		r.Get("/", s.courses)
		r.Post("/courses/{id}/enroll", s.enroll)
		r.Post("/logout", s.logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAnonymous(s.holder))
			r.Get("/login", s.loginForm)
			r.Post("/login", s.login)
			r.Get("/register", s.registerForm)
			r.Post("/register", s.register)
		})

		// Auth
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.holder))
			r.Get("/my-enrollments", s.myEnrollments)
			r.Post("/my-enrollments/{courseID}/drop", s.drop)
		})

		// Admin
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(s.holder, model.RoleAdmin))
			r.Get("/admin", s.admin)
			r.Post("/admin/courses", s.createCourse)
			r.Post("/admin/courses/{id}/activate", s.setCourseActive)
			r.Post("/admin/enrollments/{id}/remove", s.removeEnrollment)
		})
	})

	root.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
	})

	return root
}

// RegisterHooks should be invoked by fx
func RegisterHooks(lc fx.Lifecycle, s *Server) {
	lc.Append(fx.Hook{
		OnStart: s.Start,
		OnStop:  s.server.Shutdown,
	})
}

func (s *Server) Start(_ context.Context) error {
	s.log.Info("listening", zap.String("addr", s.server.Addr))
	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("error running server", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", chimw.GetReqID(r.Context())),
		)
	})
}
