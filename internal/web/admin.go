package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ghaggin/courseweb/internal/api"
	"github.com/ghaggin/courseweb/internal/middleware"
	"github.com/ghaggin/courseweb/internal/model"
	"github.com/ghaggin/courseweb/internal/template"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const adminPath = "/admin"

func (s *Server) admin(w http.ResponseWriter, r *http.Request) {
	var (
		courses     []model.Course
		enrollments []model.Enrollment
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		courses, err = s.client.ListCourses(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		enrollments, err = s.client.ListEnrollments(ctx)
		return err
	})

	td := &template.Data{PageTitle: "admin"}
	if err := g.Wait(); err != nil {
		s.log.Error("failed fetching admin data", zap.Error(err))
		td.Error = "Failed to load dashboard data"
	} else {
		td.Courses = courses
		td.Enrollments = enrollments
	}

	s.render(w, r, http.StatusOK, "admin.html", td)
}

func (s *Server) createCourse(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	capacity, err := strconv.Atoi(strings.TrimSpace(r.PostForm.Get("capacity")))
	if err != nil {
		s.redirectWith(w, r, middleware.FlashError, "Failed to create course: capacity must be a number", adminPath)
		return
	}

	nc := model.NewCourse{
		Title:       strings.TrimSpace(r.PostForm.Get("title")),
		Code:        strings.TrimSpace(r.PostForm.Get("code")),
		Description: strings.TrimSpace(r.PostForm.Get("description")),
		Capacity:    capacity,
		IsActive:    true,
	}

	if _, err := s.client.CreateCourse(r.Context(), nc); err != nil {
		s.log.Info("course creation failed", zap.String("code", nc.Code), zap.Error(err))
		s.redirectWith(w, r, middleware.FlashError, "Failed to create course: "+api.DetailOf(err, err.Error()), adminPath)
		return
	}

	s.redirectWith(w, r, middleware.FlashSuccess, "Course created", adminPath)
}

func (s *Server) setCourseActive(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(r, "id")
	if !ok {
		s.redirectWith(w, r, middleware.FlashError, "Failed to update status: invalid course", adminPath)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	active, err := strconv.ParseBool(r.PostForm.Get("is_active"))
	if err != nil {
		s.redirectWith(w, r, middleware.FlashError, "Failed to update status: invalid status", adminPath)
		return
	}

	if _, err := s.client.SetCourseActive(r.Context(), id, active); err != nil {
		s.log.Info("course status update failed", zap.Int("course_id", id), zap.Error(err))
		s.redirectWith(w, r, middleware.FlashError, "Failed to update status: "+api.DetailOf(err, err.Error()), adminPath)
		return
	}

	http.Redirect(w, r, adminPath, http.StatusSeeOther)
}

func (s *Server) removeEnrollment(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(r, "id")
	if !ok {
		s.redirectWith(w, r, middleware.FlashError, "Failed to remove enrollment: invalid enrollment", adminPath)
		return
	}

	if err := s.client.RemoveEnrollment(r.Context(), id); err != nil {
		s.log.Info("enrollment removal failed", zap.Int("enrollment_id", id), zap.Error(err))
		s.redirectWith(w, r, middleware.FlashError, "Failed to remove enrollment: "+api.DetailOf(err, err.Error()), adminPath)
		return
	}

	http.Redirect(w, r, adminPath, http.StatusSeeOther)
}
