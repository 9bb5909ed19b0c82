package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ghaggin/courseweb/internal/api"
	"github.com/ghaggin/courseweb/internal/model"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Holder owns the current session: it creates it on login or when a stored
// credential validates, and destroys it on logout or when the credential is
// invalid or expired.
type Holder struct {
	store  Store
	client *api.Client
	log    *zap.Logger
	now    func() time.Time
}

type Params struct {
	fx.In

	Store  Store
	Client *api.Client
	Log    *zap.Logger
}

func New(p Params) *Holder {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Holder{
		store:  p.Store,
		client: p.Client,
		log:    log.Named("session"),
		now:    time.Now,
	}
}

// Current returns the held session. An expired session is destroyed and
// reported as absent.
func (h *Holder) Current(ctx context.Context) (*model.Session, bool) {
	s, err := h.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			h.log.Warn("failed loading session", zap.Error(err))
		}
		return nil, false
	}

	if s.Expired(h.now()) {
		h.log.Info("session expired", zap.String("email", s.User.Email))
		h.clear(ctx)
		return nil, false
	}
	return s, true
}

// Restore validates the stored credential against the service and refreshes
// the identity held with it. A rejected credential is cleared. Transport
// failures are returned without touching the store.
func (h *Holder) Restore(ctx context.Context) (*model.Session, error) {
	s, ok := h.Current(ctx)
	if !ok {
		return nil, ErrNoSession
	}

	me, err := h.client.Me(api.WithToken(ctx, s.Token))
	if err != nil {
		if status := api.StatusOf(err); status == http.StatusUnauthorized || status == http.StatusForbidden {
			h.log.Info("stored credential rejected", zap.Int("status", status))
			h.clear(ctx)
			return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
		}
		return nil, err
	}

	restored := &model.Session{
		User:           profile(me),
		Token:          s.Token,
		AuthExpiration: s.AuthExpiration,
	}
	if err := h.store.Save(ctx, restored); err != nil {
		return nil, err
	}
	return restored, nil
}

// Login exchanges credentials for a token, loads the matching profile and
// replaces the held session. Every failure is reported as
// ErrInvalidCredentials and leaves the store untouched.
func (h *Holder) Login(ctx context.Context, email, password string) (*model.Session, error) {
	tok, err := h.client.Login(ctx, email, password)
	if err != nil {
		h.log.Info("login failed", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	me, err := h.client.Me(api.WithToken(ctx, tok.AccessToken))
	if err != nil {
		h.log.Info("profile fetch after login failed", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	s := &model.Session{
		User:           profile(me),
		Token:          tok.AccessToken,
		AuthExpiration: tokenExpiry(tok.AccessToken),
	}
	if err := h.store.Save(ctx, s); err != nil {
		return nil, err
	}

	h.log.Info("logged in", zap.String("email", s.User.Email), zap.String("role", string(s.User.Role)))
	return s, nil
}

// Register creates an account. It does not log the new user in.
func (h *Holder) Register(ctx context.Context, r model.Registration) (*model.User, error) {
	return h.client.Register(ctx, r)
}

// Logout destroys the session and its stored credential.
func (h *Holder) Logout(ctx context.Context) error {
	return h.store.Clear(ctx)
}

func (h *Holder) clear(ctx context.Context) {
	if err := h.store.Clear(ctx); err != nil {
		h.log.Warn("failed clearing session", zap.Error(err))
	}
}

// profile drops per-request data from u before it is held in a session.
func profile(u *model.User) model.User {
	p := *u
	p.Enrollments = nil
	return p
}

// tokenExpiry reads the exp claim without verifying the signature; only the
// service can verify it. Zero means unknown.
func tokenExpiry(token string) time.Time {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
