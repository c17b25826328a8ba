package services

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anonwork/anonwork/internal/database/testutil"
	apperrors "github.com/anonwork/anonwork/pkg/errors"
)

func TestRegisterGeneratesAnonUsername(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewUserService(db)
	require.NoError(t, err)

	user, err := svc.Register(context.Background(), RegisterUserInput{
		Email:    "  New.Hire@Example.COM ",
		Password: "correct horse",
	})
	require.NoError(t, err)

	require.Equal(t, "new.hire@example.com", user.Email)
	require.Regexp(t, regexp.MustCompile(`^anon_[0-9a-f]{8}$`), user.AnonUsername)
	require.NotEqual(t, "correct horse", user.Password)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewUserService(db)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterUserInput{Email: "a@b.com", Password: "short"})
	require.Error(t, err)
	require.Equal(t, 400, apperrors.FromError(err).StatusCode)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewUserService(db)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = svc.Register(ctx, RegisterUserInput{Email: "taken@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterUserInput{Email: "Taken@Example.com", Password: "password2"})
	require.Error(t, err)
	require.Equal(t, "user.exists", apperrors.FromError(err).Code)
}

func TestAuthenticate(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewUserService(db)
	require.NoError(t, err)

	ctx := context.Background()
	created, err := svc.Register(ctx, RegisterUserInput{Email: "login@example.com", Password: "hunter22hunter22"})
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "LOGIN@example.com", "hunter22hunter22")
	require.NoError(t, err)
	require.Equal(t, created.ID, user.ID)

	_, err = svc.Authenticate(ctx, "login@example.com", "wrong password")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "hunter22hunter22")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestGetByAnonUsername(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewUserService(db)
	require.NoError(t, err)

	ctx := context.Background()
	created, err := svc.Register(ctx, RegisterUserInput{Email: "lookup@example.com", Password: "password1"})
	require.NoError(t, err)

	user, err := svc.GetByAnonUsername(ctx, created.AnonUsername)
	require.NoError(t, err)
	require.Equal(t, created.ID, user.ID)

	_, err = svc.GetByAnonUsername(ctx, "anon_ffffffff")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}
