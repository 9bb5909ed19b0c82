package session

import (
	"context"
	"time"

	"github.com/ghaggin/courseweb/internal/api"
)

type storeTokens struct {
	store Store
}

// NewTokenSource exposes the token held in store to the request pipeline.
// Expired tokens are not attached.
func NewTokenSource(store Store) api.TokenSource {
	return &storeTokens{store: store}
}

func (t *storeTokens) Token(ctx context.Context) string {
	s, err := t.store.Load(ctx)
	if err != nil || s.Expired(time.Now()) {
		return ""
	}
	return s.Token
}
