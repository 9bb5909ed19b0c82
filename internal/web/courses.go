package web

import (
	"net/http"

	"github.com/ghaggin/courseweb/internal/api"
	"github.com/ghaggin/courseweb/internal/middleware"
	"github.com/ghaggin/courseweb/internal/template"
	"go.uber.org/zap"
)

func (s *Server) courses(w http.ResponseWriter, r *http.Request) {
	td := &template.Data{PageTitle: "courses"}

	courses, err := s.client.ListCourses(r.Context())
	if err != nil {
		s.log.Error("failed fetching courses", zap.Error(err))
		td.Error = "Failed to load courses"
	}
	td.Courses = courses

	s.render(w, r, http.StatusOK, "courses.html", td)
}

// enroll never reports success unless the service accepted the enrollment.
func (s *Server) enroll(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.holder.Current(r.Context()); !ok {
		s.redirectWith(w, r, middleware.FlashError, "Please login to enroll", "/")
		return
	}

	id, ok := intParam(r, "id")
	if !ok {
		s.redirectWith(w, r, middleware.FlashError, "Enrollment failed", "/")
		return
	}

	if _, err := s.client.Enroll(r.Context(), id); err != nil {
		s.log.Info("enrollment rejected", zap.Int("course_id", id), zap.Error(err))
		s.redirectWith(w, r, middleware.FlashError, api.DetailOf(err, "Enrollment failed"), "/")
		return
	}

	s.redirectWith(w, r, middleware.FlashSuccess, "Enrolled successfully!", "/")
}

func (s *Server) myEnrollments(w http.ResponseWriter, r *http.Request) {
	td := &template.Data{PageTitle: "my enrollments"}

	me, err := s.client.Me(r.Context())
	if err != nil {
		s.log.Error("failed fetching enrollments", zap.Error(err))
		td.Error = "Failed to load enrollments"
	} else {
		td.Enrollments = me.Enrollments
	}

	s.render(w, r, http.StatusOK, "enrollments.html", td)
}

func (s *Server) drop(w http.ResponseWriter, r *http.Request) {
	const back = "/my-enrollments"

	id, ok := intParam(r, "courseID")
	if !ok {
		s.redirectWith(w, r, middleware.FlashError, "Failed to drop course", back)
		return
	}

	if err := s.client.Drop(r.Context(), id); err != nil {
		s.log.Info("drop failed", zap.Int("course_id", id), zap.Error(err))
		s.redirectWith(w, r, middleware.FlashError, "Failed to drop course", back)
		return
	}

	s.redirectWith(w, r, middleware.FlashSuccess, "Course dropped", back)
}
