package session

import (
	"context"
	"errors"

	"github.com/ghaggin/courseweb/internal/model"
)

var (
	ErrNoSession          = errors.New("no session")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Store persists the current session. Save replaces any existing session
// wholesale. Load returns ErrNoSession when nothing is stored.
type Store interface {
	Load(ctx context.Context) (*model.Session, error)
	Save(ctx context.Context, s *model.Session) error
	Clear(ctx context.Context) error
}
