// Package apitest runs an in-memory stand-in for the enrollment service so
// the client, session and web packages can be tested end to end.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ghaggin/courseweb/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

var secret = []byte("apitest-secret")

type account struct {
	user     model.User
	password string
}

type Server struct {
	*httptest.Server

	// TokenTTL is the lifetime of tokens issued by /auth/login.
	TokenTTL time.Duration

	mu          sync.Mutex
	accounts    map[string]*account
	courses     []*model.Course
	enrollments []model.Enrollment
	nextID      int
	auths       []string
}

// New starts a fake service that is closed when t finishes.
func New(t testing.TB) *Server {
	s := &Server{
		TokenTTL: time.Hour,
		accounts: map[string]*account{},
		nextID:   1,
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Post("/auth/login", s.login)
	r.Post("/auth/register", s.register)
	r.Get("/users/me", s.me)
	r.Get("/courses", s.listCourses)
	r.Post("/courses", s.createCourse)
	r.Patch("/courses/{id}/activate", s.activateCourse)
	r.Get("/enrollments", s.listEnrollments)
	r.Post("/enrollments", s.enroll)
	r.Delete("/enrollments/{id}", s.drop)
	r.Delete("/enrollments/{id}/admin", s.removeEnrollment)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

func (s *Server) id() int {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Server) AddUser(name, email, password string, role model.Role) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := model.User{ID: s.id(), Name: name, Email: email, Role: role, IsActive: true}
	s.accounts[email] = &account{user: u, password: password}
	return u
}

func (s *Server) AddCourse(code, title string, capacity int) model.Course {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := &model.Course{ID: s.id(), Code: code, Title: title, Capacity: capacity, IsActive: true}
	s.courses = append(s.courses, c)
	return *c
}

// Enrollments returns a snapshot of all enrollments.
func (s *Server) Enrollments() []model.Enrollment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Enrollment(nil), s.enrollments...)
}

// Course returns the current state of course id.
func (s *Server) Course(id int) (model.Course, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.course(id)
	if c == nil {
		return model.Course{}, false
	}
	return s.withCounts(c), true
}

// Authorizations returns the Authorization header of every request served.
func (s *Server) Authorizations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.auths...)
}

// IssueToken signs a token for email that expires after ttl.
func (s *Server) IssueToken(email string, ttl time.Duration) string {
	claims := jwt.RegisteredClaims{
		Subject:   email,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		panic(err)
	}
	return signed
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.auths = append(s.auths, r.Header.Get("Authorization"))
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func detail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

// authenticate returns the caller's account, or writes 401 and returns nil.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) *account {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		detail(w, http.StatusUnauthorized, "Not authenticated")
		return nil
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		detail(w, http.StatusUnauthorized, "Could not validate credentials")
		return nil
	}

	acct, ok := s.accounts[claims.Subject]
	if !ok {
		detail(w, http.StatusUnauthorized, "User not found")
		return nil
	}
	return acct
}

func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) *account {
	acct := s.authenticate(w, r)
	if acct == nil {
		return nil
	}
	if acct.user.Role != model.RoleAdmin {
		detail(w, http.StatusForbidden, "This endpoint requires admin role")
		return nil
	}
	return acct
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		detail(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[r.PostForm.Get("username")]
	s.mu.Unlock()

	if !ok || acct.password != r.PostForm.Get("password") {
		detail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}

	writeJSON(w, http.StatusOK, model.Token{
		AccessToken: s.IssueToken(acct.user.Email, s.TokenTTL),
		TokenType:   "bearer",
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var reg model.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		detail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if len(reg.Password) < 6 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]string{{"msg": "String should have at least 6 characters"}},
		})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[reg.Email]; ok {
		detail(w, http.StatusBadRequest, "Email already registered")
		return
	}

	u := model.User{ID: s.id(), Name: reg.Name, Email: reg.Email, Role: reg.Role, IsActive: true}
	s.accounts[reg.Email] = &account{user: u, password: reg.Password}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct := s.authenticate(w, r)
	if acct == nil {
		return
	}

	u := acct.user
	for _, e := range s.enrollments {
		if e.UserID == u.ID {
			u.Enrollments = append(u.Enrollments, e)
		}
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) course(id int) *model.Course {
	for _, c := range s.courses {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (s *Server) withCounts(c *model.Course) model.Course {
	out := *c
	for _, e := range s.enrollments {
		if e.CourseID == c.ID {
			out.EnrolledCount++
		}
	}
	out.AvailableSlots = out.Capacity - out.EnrolledCount
	out.IsFull = out.EnrolledCount >= out.Capacity
	return out
}

func (s *Server) listCourses(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []model.Course{}
	for _, c := range s.courses {
		if c.IsActive {
			out = append(out, s.withCounts(c))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createCourse(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.requireAdmin(w, r) == nil {
		return
	}

	var nc model.NewCourse
	if err := json.NewDecoder(r.Body).Decode(&nc); err != nil || nc.Capacity <= 0 {
		detail(w, http.StatusUnprocessableEntity, "Invalid course")
		return
	}
	code := strings.ToUpper(strings.TrimSpace(nc.Code))
	for _, c := range s.courses {
		if c.Code == code {
			detail(w, http.StatusBadRequest, fmt.Sprintf("Course with code '%s' already exists", code))
			return
		}
	}

	c := &model.Course{
		ID:          s.id(),
		Code:        code,
		Title:       strings.TrimSpace(nc.Title),
		Description: nc.Description,
		Capacity:    nc.Capacity,
		IsActive:    nc.IsActive,
	}
	s.courses = append(s.courses, c)
	writeJSON(w, http.StatusCreated, s.withCounts(c))
}

func (s *Server) activateCourse(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.requireAdmin(w, r) == nil {
		return
	}

	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	c := s.course(id)
	if c == nil {
		detail(w, http.StatusNotFound, "Course not found")
		return
	}
	active, err := strconv.ParseBool(r.URL.Query().Get("is_active"))
	if err != nil {
		detail(w, http.StatusUnprocessableEntity, "is_active must be a boolean")
		return
	}

	c.IsActive = active
	writeJSON(w, http.StatusOK, s.withCounts(c))
}

func (s *Server) listEnrollments(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.requireAdmin(w, r) == nil {
		return
	}
	out := append([]model.Enrollment{}, s.enrollments...)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) enroll(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct := s.authenticate(w, r)
	if acct == nil {
		return
	}
	if acct.user.Role != model.RoleStudent {
		detail(w, http.StatusForbidden, "Only students can enroll in courses")
		return
	}

	var body struct {
		CourseID int `json:"course_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		detail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	c := s.course(body.CourseID)
	switch {
	case c == nil:
		detail(w, http.StatusNotFound, "Course not found")
		return
	case !c.IsActive:
		detail(w, http.StatusBadRequest, "Cannot enroll in inactive course")
		return
	}
	for _, e := range s.enrollments {
		if e.UserID == acct.user.ID && e.CourseID == c.ID {
			detail(w, http.StatusBadRequest, "Already enrolled in this course")
			return
		}
	}
	if s.withCounts(c).IsFull {
		detail(w, http.StatusBadRequest, "Course is full")
		return
	}

	e := model.Enrollment{
		ID:        s.id(),
		UserID:    acct.user.ID,
		CourseID:  c.ID,
		CreatedAt: time.Now().UTC(),
		User:      &model.EnrollmentUser{ID: acct.user.ID, Name: acct.user.Name, Email: acct.user.Email},
		Course:    &model.CourseRef{ID: c.ID, Title: c.Title, Code: c.Code},
	}
	s.enrollments = append(s.enrollments, e)
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) drop(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct := s.authenticate(w, r)
	if acct == nil {
		return
	}
	if acct.user.Role != model.RoleStudent {
		detail(w, http.StatusForbidden, "Only students can deregister from courses")
		return
	}

	courseID, _ := strconv.Atoi(chi.URLParam(r, "id"))
	for i, e := range s.enrollments {
		if e.UserID == acct.user.ID && e.CourseID == courseID {
			s.enrollments = append(s.enrollments[:i], s.enrollments[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	detail(w, http.StatusNotFound, "Enrollment not found")
}

func (s *Server) removeEnrollment(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.requireAdmin(w, r) == nil {
		return
	}

	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	for i, e := range s.enrollments {
		if e.ID == id {
			s.enrollments = append(s.enrollments[:i], s.enrollments[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	detail(w, http.StatusNotFound, "Enrollment not found")
}
