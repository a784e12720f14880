package auth

import (
	"context"
	"errors"
)

var (
	// ErrInvalidToken is returned when the token is invalid.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")
)

// Identity describes the user a validated token belongs to.
type Identity struct {
	UserID   string
	UserType string
	Email    string
}

// TokenValidator verifies bearer tokens presented over the websocket.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (Identity, error)
}
