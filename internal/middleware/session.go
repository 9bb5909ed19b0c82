package middleware

import (
	"context"
	"encoding/gob"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/ghaggin/courseweb/internal/config"
	"github.com/ghaggin/courseweb/internal/model"
	"github.com/ghaggin/courseweb/internal/session"
)

const (
	sessionKey   = "session_key"
	flashKey     = "flash"
	flashKindKey = "flash_kind"
)

type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
)

type Flash struct {
	Kind    FlashKind
	Message string
}

// SessionManager keeps the per-browser session in scs. It implements
// session.Store for the web client.
type SessionManager struct {
	impl *scs.SessionManager
}

func NewSessionManager(cfg *config.Config) (*SessionManager, error) {
	gob.Register(&model.Session{})

	sm := &SessionManager{}
	sm.impl = scs.New()
	sm.impl.Lifetime = cfg.Session.Lifetime
	sm.impl.Cookie.Name = cfg.Session.CookieName
	sm.impl.Cookie.HttpOnly = true
	sm.impl.Cookie.SameSite = http.SameSiteLaxMode
	sm.impl.Cookie.Secure = cfg.Session.Secure

	return sm, nil
}

func (s *SessionManager) Wrap(next http.Handler) http.Handler {
	return s.impl.LoadAndSave(next)
}

func (s *SessionManager) Load(ctx context.Context) (*model.Session, error) {
	sess, ok := s.impl.Get(ctx, sessionKey).(*model.Session)
	if !ok {
		return nil, session.ErrNoSession
	}

	return sess, nil
}

// Save replaces the stored session and rotates the cookie token.
func (s *SessionManager) Save(ctx context.Context, sess *model.Session) error {
	if err := s.impl.RenewToken(ctx); err != nil {
		return err
	}

	s.impl.Put(ctx, sessionKey, sess)
	return nil
}

func (s *SessionManager) Clear(ctx context.Context) error {
	s.impl.Remove(ctx, sessionKey)
	return s.impl.RenewToken(ctx)
}

// Token implements api.TokenSource.
func (s *SessionManager) Token(ctx context.Context) string {
	return session.NewTokenSource(s).Token(ctx)
}

func (s *SessionManager) SetFlash(ctx context.Context, kind FlashKind, msg string) {
	s.impl.Put(ctx, flashKindKey, string(kind))
	s.impl.Put(ctx, flashKey, msg)
}

// PopFlash returns and removes the pending notification, if any.
func (s *SessionManager) PopFlash(ctx context.Context) *Flash {
	msg := s.impl.PopString(ctx, flashKey)
	kind := s.impl.PopString(ctx, flashKindKey)
	if msg == "" {
		return nil
	}

	return &Flash{Kind: FlashKind(kind), Message: msg}
}
