// Package auth guards the API with a single household passcode.
//
// Logging in with the passcode yields a signed token that the middleware
// checks on every protected request. With no passcode configured the
// service is disabled and every request is let through.
package auth

import (
	"context"
	"errors"
)

var (
	ErrInvalidCredentials = errors.New("invalid passcode")
	ErrDisabled           = errors.New("authentication is disabled")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Service defines the interface for household authentication.
type Service interface {
	// Login checks passcode and returns a signed token.
	Login(ctx context.Context, passcode string) (string, error)
	// Verify checks a token and returns its subject.
	Verify(token string) (string, error)
	Enabled() bool
}
