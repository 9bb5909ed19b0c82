package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ghaggin/courseweb/internal/api"
	"github.com/ghaggin/courseweb/internal/config"
	"github.com/ghaggin/courseweb/internal/model"
	"github.com/ghaggin/courseweb/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*SessionManager, *session.Holder) {
	t.Helper()

	cfg := &config.Config{
		API:     config.API{BaseURL: "http://127.0.0.1:1"},
		Session: config.Session{CookieName: "test", Lifetime: time.Minute},
	}
	sm, err := NewSessionManager(cfg)
	require.NoError(t, err)

	client, err := api.New(api.Params{Config: cfg, Tokens: sm})
	require.NoError(t, err)

	return sm, session.New(session.Params{Store: sm, Client: client})
}

func putSession(t *testing.T, sm *SessionManager, s *model.Session) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s != nil {
				require.NoError(t, sm.Save(r.Context(), s))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func Test_RequireRole(t *testing.T) {
	student := &model.Session{User: model.User{Role: model.RoleStudent}, Token: "t"}
	admin := &model.Session{User: model.User{Role: model.RoleAdmin}, Token: "t"}
	expired := &model.Session{User: model.User{Role: model.RoleAdmin}, Token: "t", AuthExpiration: time.Now().Add(-time.Minute)}

	tests := []struct {
		name     string
		session  *model.Session
		roles    []model.Role
		wantNext bool
		wantLoc  string
	}{
		{"anonymous, any role", nil, nil, false, "/login"},
		{"anonymous, admin", nil, []model.Role{model.RoleAdmin}, false, "/login"},
		{"student, any role", student, nil, true, ""},
		{"student, admin", student, []model.Role{model.RoleAdmin}, false, "/"},
		{"admin, admin", admin, []model.Role{model.RoleAdmin}, true, ""},
		{"expired admin, admin", expired, []model.Role{model.RoleAdmin}, false, "/login"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)

			sm, holder := newTestManager(t)

			req, err := http.NewRequest("GET", "/", nil)
			require.NoError(t, err)
			rr := httptest.NewRecorder()

			calledNext := false
			next := http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
				calledNext = true
			})

			handler := sm.Wrap(putSession(t, sm, tt.session)(RequireRole(holder, tt.roles...)(next)))
			handler.ServeHTTP(rr, req)

			assert.Equal(tt.wantNext, calledNext)
			if !tt.wantNext {
				assert.Equal(http.StatusSeeOther, rr.Code)
				assert.Equal(tt.wantLoc, rr.Result().Header.Get("Location"))
			}
		})
	}
}

func Test_RequireAnonymous(t *testing.T) {
	sm, holder := newTestManager(t)

	req, err := http.NewRequest("GET", "/login", nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()

	calledNext := false
	next := http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		calledNext = true
	})

	s := &model.Session{User: model.User{Role: model.RoleStudent}, Token: "t"}
	sm.Wrap(putSession(t, sm, s)(RequireAnonymous(holder)(next))).ServeHTTP(rr, req)

	assert.False(t, calledNext)
	assert.Equal(t, "/", rr.Result().Header.Get("Location"))
}

func Test_Flash(t *testing.T) {
	sm, _ := newTestManager(t)

	req, err := http.NewRequest("GET", "/", nil)
	require.NoError(t, err)

	var first, second *Flash
	handler := sm.Wrap(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		sm.SetFlash(r.Context(), FlashError, "Course is full")
		first = sm.PopFlash(r.Context())
		second = sm.PopFlash(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, first)
	assert.Equal(t, FlashError, first.Kind)
	assert.Equal(t, "Course is full", first.Message)
	assert.Nil(t, second)
}

func Test_TokenAndClear(t *testing.T) {
	sm, _ := newTestManager(t)

	req, err := http.NewRequest("GET", "/", nil)
	require.NoError(t, err)

	var before, after string
	handler := sm.Wrap(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		require.NoError(t, sm.Save(r.Context(), &model.Session{Token: "abc"}))
		before = sm.Token(r.Context())
		require.NoError(t, sm.Clear(r.Context()))
		after = sm.Token(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "abc", before)
	assert.Equal(t, "", after)
}
