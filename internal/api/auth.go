package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ghaggin/courseweb/internal/model"
)

// Login exchanges credentials for a bearer token. The service reads them as
// an OAuth2 password form with the email in "username".
func (c *Client) Login(ctx context.Context, email, password string) (*model.Token, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	token := &model.Token{}
	if err := c.call(ctx, http.MethodPost, "/auth/login", form, token); err != nil {
		return nil, err
	}
	return token, nil
}

func (c *Client) Register(ctx context.Context, r model.Registration) (*model.User, error) {
	if r.Role == "" {
		r.Role = model.RoleStudent
	}

	user := &model.User{}
	if err := c.call(ctx, http.MethodPost, "/auth/register", r, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Me returns the profile of the token's owner.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	user := &model.User{}
	if err := c.call(ctx, http.MethodGet, "/users/me", nil, user); err != nil {
		return nil, err
	}
	return user, nil
}
