package model

import "time"

// Session is the client-held record of the authenticated user and the
// bearer token issued for them.
type Session struct {
	User           User
	Token          string
	AuthExpiration time.Time
}

// Expired reports whether the token expiry is known and has passed.
func (s *Session) Expired(now time.Time) bool {
	if s.AuthExpiration.IsZero() {
		return false
	}
	return !now.Before(s.AuthExpiration)
}

// HasRole reports whether the session user holds one of roles.
func (s *Session) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if s.User.Role == r {
			return true
		}
	}
	return false
}
