package devserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/javiermolinar/examdesk/internal/api"
)

// Token errors.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingToken = errors.New("authorization header missing")
)

const tokenIssuer = "examdesk-devserver"

// Tokens issues and checks HS256 operator tokens.
type Tokens struct {
	secret []byte
	now    func() time.Time
}

// NewTokens creates a token service signing with secret.
func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for an operator.
func (t *Tokens) Issue(subject, name, role string, ttl time.Duration) (string, error) {
	now := t.now()
	claims := &api.SessionClaims{
		Name: name,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   subject,
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Validate checks the signature and expiry of a token.
func (t *Tokens) Validate(token string) (*api.SessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &api.SessionClaims{}, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims, ok := parsed.Claims.(*api.SessionClaims); ok && parsed.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: expected Bearer scheme", ErrInvalidToken)
	}
	return strings.TrimSpace(token), nil
}

const claimsKey = "claims"

// requireToken rejects requests without a valid bearer token.
func (t *Tokens) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err == nil {
			var claims *api.SessionClaims
			claims, err = t.Validate(token)
			if err == nil {
				c.Set(claimsKey, claims)
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, api.Envelope{Message: err.Error()})
	}
}

// operator returns the subject of the authenticated request, if any.
func operator(c *gin.Context) string {
	v, ok := c.Get(claimsKey)
	if !ok {
		return ""
	}
	if claims, ok := v.(*api.SessionClaims); ok {
		return claims.Subject
	}
	return ""
}
