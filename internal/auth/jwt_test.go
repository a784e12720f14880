package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTValidatorRoundTrip(t *testing.T) {
	validator := NewJWTValidator("test-secret", "notification-service")

	token, err := validator.Sign(Identity{UserID: "u1", UserType: "seller", Email: "u1@example.com"}, time.Minute)
	require.NoError(t, err)

	identity, err := validator.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", identity.UserID)
	assert.Equal(t, "seller", identity.UserType)
	assert.Equal(t, "u1@example.com", identity.Email)
}

func TestJWTValidatorRejectsGarbage(t *testing.T) {
	validator := NewJWTValidator("test-secret", "notification-service")

	_, err := validator.Validate(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTValidatorRejectsWrongSecret(t *testing.T) {
	other := NewJWTValidator("other-secret", "notification-service")
	token, err := other.Sign(Identity{UserID: "u1"}, time.Minute)
	require.NoError(t, err)

	validator := NewJWTValidator("test-secret", "notification-service")
	_, err = validator.Validate(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTValidatorRejectsExpired(t *testing.T) {
	validator := NewJWTValidator("test-secret", "notification-service")
	token, err := validator.Sign(Identity{UserID: "u1"}, -time.Minute)
	require.NoError(t, err)

	_, err = validator.Validate(context.Background(), token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTValidatorRejectsWrongIssuer(t *testing.T) {
	other := NewJWTValidator("test-secret", "someone-else")
	token, err := other.Sign(Identity{UserID: "u1"}, time.Minute)
	require.NoError(t, err)

	validator := NewJWTValidator("test-secret", "notification-service")
	_, err = validator.Validate(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTValidatorRejectsMissingUserID(t *testing.T) {
	validator := NewJWTValidator("test-secret", "notification-service")
	token, err := validator.Sign(Identity{}, time.Minute)
	require.NoError(t, err)

	_, err = validator.Validate(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
