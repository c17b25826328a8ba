package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJWTServiceRoundTrip(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "anonwork"})
	require.NoError(t, err)

	token, err := svc.GenerateAccessToken("user-1", "quiet_walrus")
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "quiet_walrus", claims.AnonUsername)
	require.Equal(t, "anonwork", claims.Issuer)
}

func TestJWTServiceRejectsExpiredToken(t *testing.T) {
	issued := time.Now().Add(-2 * time.Hour)
	issuer, err := NewJWTService(JWTConfig{
		Secret:         "test-secret",
		AccessTokenTTL: time.Hour,
		Clock:          func() time.Time { return issued },
	})
	require.NoError(t, err)

	token, err := issuer.GenerateAccessToken("user-1", "")
	require.NoError(t, err)

	verifier, err := NewJWTService(JWTConfig{Secret: "test-secret"})
	require.NoError(t, err)

	_, err = verifier.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestJWTServiceRejectsWrongSecret(t *testing.T) {
	issuer, err := NewJWTService(JWTConfig{Secret: "secret-a"})
	require.NoError(t, err)
	verifier, err := NewJWTService(JWTConfig{Secret: "secret-b"})
	require.NoError(t, err)

	token, err := issuer.GenerateAccessToken("user-1", "")
	require.NoError(t, err)

	_, err = verifier.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{})
	require.Error(t, err)
}
