package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/ghaggin/courseweb/internal/apitest"
	"github.com/ghaggin/courseweb/internal/config"
	"github.com/ghaggin/courseweb/internal/model"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type staticTokens string

func (s staticTokens) Token(context.Context) string { return string(s) }

func newClient(t *testing.T, baseURL string, tokens TokenSource) (*Client, *prometheus.Registry) {
	t.Helper()

	reg := prometheus.NewRegistry()
	c, err := New(Params{
		Config:     &config.Config{API: config.API{BaseURL: baseURL}},
		Tokens:     tokens,
		Registerer: reg,
	})
	require.NoError(t, err)
	return c, reg
}

func TestNew_rejectsRelativeBaseURL(t *testing.T) {
	_, err := New(Params{Config: &config.Config{API: config.API{BaseURL: "/api"}}})
	assert.Error(t, err)
}

func TestDo_attachesBearerWhenPresent(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	srv := apitest.New(t)
	c, _ := newClient(t, srv.URL, staticTokens("held"))

	_, err := c.ListCourses(context.Background())
	require.NoError(err)

	_, err = c.ListCourses(WithToken(context.Background(), "override"))
	require.NoError(err)

	anon, _ := newClient(t, srv.URL, nil)
	_, err = anon.ListCourses(context.Background())
	require.NoError(err)

	assert.Equal([]string{"Bearer held", "Bearer override", ""}, srv.Authorizations())
}

func TestDo_transportErrorUnchanged(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, _ := newClient(t, base, nil)
	resp, err := c.Do(context.Background(), http.MethodGet, "/courses", nil)

	assert.Nil(t, resp)
	var urlErr *url.Error
	assert.True(t, errors.As(err, &urlErr))
	assert.Equal(t, 0, StatusOf(err))
}

func TestDo_observesUnauthorized(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	srv := apitest.New(t)
	c, _ := newClient(t, srv.URL, staticTokens("garbage"))

	resp, err := c.Do(context.Background(), http.MethodGet, "/users/me", nil)
	require.NoError(err)
	resp.Body.Close()

	assert.Equal(http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(float64(1), testutil.ToFloat64(c.metrics.unauthorized))
	assert.Equal(float64(1), testutil.ToFloat64(c.metrics.requests.WithLabelValues("GET", "401")))
}

func TestLoginAndMe(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	srv := apitest.New(t)
	srv.AddUser("Ada", "ada@example.com", "secret1", model.RoleStudent)
	c, _ := newClient(t, srv.URL, nil)

	_, err := c.Login(context.Background(), "ada@example.com", "wrong")
	assert.Equal(http.StatusUnauthorized, StatusOf(err))
	assert.Equal("Incorrect email or password", DetailOf(err, ""))

	tok, err := c.Login(context.Background(), "ada@example.com", "secret1")
	require.NoError(err)
	assert.Equal("bearer", tok.TokenType)

	me, err := c.Me(WithToken(context.Background(), tok.AccessToken))
	require.NoError(err)
	assert.Equal("Ada", me.Name)
	assert.Equal(model.RoleStudent, me.Role)
}

func TestRegister(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	srv := apitest.New(t)
	c, _ := newClient(t, srv.URL, nil)

	u, err := c.Register(context.Background(), model.Registration{Name: "Bo", Email: "bo@example.com", Password: "hunter22"})
	require.NoError(err)
	assert.Equal(model.RoleStudent, u.Role)

	_, err = c.Register(context.Background(), model.Registration{Name: "Bo", Email: "bo@example.com", Password: "hunter22"})
	assert.Equal("Email already registered", DetailOf(err, "Registration failed"))

	_, err = c.Register(context.Background(), model.Registration{Name: "Cy", Email: "cy@example.com", Password: "x"})
	assert.Equal(http.StatusUnprocessableEntity, StatusOf(err))
	assert.Equal("String should have at least 6 characters", DetailOf(err, ""))
}

func TestEnrollmentLifecycle(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	srv := apitest.New(t)
	srv.AddUser("Ada", "ada@example.com", "secret1", model.RoleStudent)
	srv.AddUser("Bo", "bo@example.com", "secret1", model.RoleStudent)
	srv.AddUser("Root", "root@example.com", "secret1", model.RoleAdmin)
	course := srv.AddCourse("CS101", "Intro", 1)

	c, _ := newClient(t, srv.URL, nil)
	ada := WithToken(context.Background(), srv.IssueToken("ada@example.com", time.Hour))
	bo := WithToken(context.Background(), srv.IssueToken("bo@example.com", time.Hour))
	root := WithToken(context.Background(), srv.IssueToken("root@example.com", time.Hour))

	e, err := c.Enroll(ada, course.ID)
	require.NoError(err)
	assert.Equal(course.ID, e.CourseID)

	_, err = c.Enroll(bo, course.ID)
	assert.Equal(http.StatusBadRequest, StatusOf(err))
	assert.Equal("Course is full", DetailOf(err, ""))

	courses, err := c.ListCourses(context.Background())
	require.NoError(err)
	require.Len(courses, 1)
	assert.True(courses[0].Full())

	all, err := c.ListEnrollments(root)
	require.NoError(err)
	assert.Len(all, 1)

	_, err = c.ListEnrollments(ada)
	assert.Equal(http.StatusForbidden, StatusOf(err))

	require.NoError(c.Drop(ada, course.ID))
	assert.Equal(http.StatusNotFound, StatusOf(c.Drop(ada, course.ID)))

	e, err = c.Enroll(bo, course.ID)
	require.NoError(err)
	require.NoError(c.RemoveEnrollment(root, e.ID))
	assert.Empty(srv.Enrollments())
}

func TestCourseAdmin(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	srv := apitest.New(t)
	srv.AddUser("Root", "root@example.com", "secret1", model.RoleAdmin)
	c, _ := newClient(t, srv.URL, staticTokens(srv.IssueToken("root@example.com", time.Hour)))

	created, err := c.CreateCourse(context.Background(), model.NewCourse{Title: "Go", Code: "go1", Capacity: 10, IsActive: true})
	require.NoError(err)
	assert.Equal("GO1", created.Code)

	_, err = c.CreateCourse(context.Background(), model.NewCourse{Title: "Go", Code: "GO1", Capacity: 10})
	assert.Equal("Course with code 'GO1' already exists", DetailOf(err, ""))

	updated, err := c.SetCourseActive(context.Background(), created.ID, false)
	require.NoError(err)
	assert.False(updated.IsActive)

	courses, err := c.ListCourses(context.Background())
	require.NoError(err)
	assert.Empty(courses)
}

func TestRouteOf(t *testing.T) {
	assert.Equal(t, "/courses/{id}/activate", routeOf("/courses/12/activate?is_active=true"))
	assert.Equal(t, "/enrollments", routeOf("/enrollments"))
}

type headerRecorder struct {
	mu      sync.Mutex
	headers []http.Header
}

func (h *headerRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.headers = append(h.headers, r.Header.Clone())
	h.mu.Unlock()
	w.WriteHeader(http.StatusTeapot)
}

func (h *headerRecorder) seen() []http.Header {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.headers
}

func TestDo_tracesEachCall(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	rec := &headerRecorder{}
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)

	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	c, err := New(Params{
		Config:         &config.Config{API: config.API{BaseURL: srv.URL}},
		Registerer:     prometheus.NewRegistry(),
		TracerProvider: tp,
		Propagator:     propagation.TraceContext{},
	})
	require.NoError(err)

	for _, path := range []string{"/courses", "/courses/7/activate"} {
		resp, err := c.Do(context.Background(), http.MethodGet, path, nil)
		require.NoError(err)
		resp.Body.Close()
	}

	ended := spans.Ended()
	require.Len(ended, 2)
	assert.Equal("GET /courses", ended[0].Name())
	assert.Equal("GET /courses/{id}/activate", ended[1].Name())

	for i, span := range ended {
		assert.Contains(span.Attributes(), attribute.Int("http.response.status_code", http.StatusTeapot))

		traceparent := rec.seen()[i].Get("traceparent")
		assert.Contains(traceparent, span.SpanContext().TraceID().String())
		assert.Contains(traceparent, span.SpanContext().SpanID().String())
	}
}

func TestDo_reusesInboundRequestID(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	rec := &headerRecorder{}
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)

	c, _ := newClient(t, srv.URL, nil)

	ctx := context.WithValue(context.Background(), chimw.RequestIDKey, "host/abc-000001")
	resp, err := c.Do(ctx, http.MethodGet, "/courses", nil)
	require.NoError(err)
	resp.Body.Close()

	resp, err = c.Do(context.Background(), http.MethodGet, "/courses", nil)
	require.NoError(err)
	resp.Body.Close()

	headers := rec.seen()
	require.Len(headers, 2)
	assert.Equal("host/abc-000001", headers[0].Get(headerRequestID))
	assert.NotEmpty(headers[1].Get(headerRequestID))
	assert.NotEqual("host/abc-000001", headers[1].Get(headerRequestID))
}
