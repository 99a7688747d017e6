package api

import (
	"errors"
	"fmt"
)

// Client errors. Every network failure wraps one of these so callers can
// tell a failed check from a failed commit.
var (
	ErrVerificationFailed = errors.New("verification failed")
	ErrCommitFailed       = errors.New("commit failed")
	ErrRequestFailed      = errors.New("request failed")
	ErrUnauthorized       = errors.New("not authorized")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidToken       = errors.New("invalid session token")
	ErrMalformedResponse  = errors.New("malformed response")
)

// ServiceError is a request the service answered but rejected.
type ServiceError struct {
	Op      string
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.Status)
}

// Message returns the service message of err, if it carries one.
func Message(err error) string {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Message
	}
	return ""
}
