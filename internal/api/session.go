package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are the claims examdesk reads from the operator token.
type SessionClaims struct {
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Session describes the operator session carried by the bearer token.
// The token is issued and verified by the scheduling service; the console
// only decodes it to show who is signed in and to stop before sending
// requests with an expired token.
type Session struct {
	Token     string
	Subject   string
	Name      string
	Role      string
	ExpiresAt time.Time
}

// ParseSession decodes a bearer token without verifying its signature.
func ParseSession(token string) (Session, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return Session{}, nil
	}

	var claims SessionClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	s := Session{
		Token:   token,
		Subject: claims.Subject,
		Name:    claims.Name,
		Role:    claims.Role,
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

// Anonymous reports whether no token is configured.
func (s Session) Anonymous() bool {
	return s.Token == ""
}

// Expired reports whether the token carries an expiry that has passed.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Operator returns a display name for status lines.
func (s Session) Operator() string {
	switch {
	case s.Name != "":
		return s.Name
	case s.Subject != "":
		return s.Subject
	default:
		return "anonymous"
	}
}
