package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	iauth "github.com/anonwork/anonwork/internal/auth"
	"github.com/anonwork/anonwork/pkg/response"
)

func newAuthFixture(t *testing.T) *AuthHandler {
	t.Helper()

	db := openHandlerDB(t)
	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "handler-secret",
		Issuer:         "test-suite",
		AccessTokenTTL: time.Minute,
	})
	require.NoError(t, err)

	handler, err := NewAuthHandler(db, jwtSvc)
	require.NoError(t, err)
	return handler
}

func TestAuthHandlerRegisterAndLogin(t *testing.T) {
	handler := newAuthFixture(t)

	c, recorder := testRequest(t, http.MethodPost, "/api/auth/register",
		`{"email":"new@example.com","password":"password1"}`, "")
	handler.Register(c)
	require.Equal(t, http.StatusCreated, recorder.Code)

	var payload response.Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	require.True(t, payload.Success)

	data := payload.Data.(map[string]any)
	require.NotEmpty(t, data["token"])
	user := data["user"].(map[string]any)
	require.NotEmpty(t, user["anon_username"])

	c, recorder = testRequest(t, http.MethodPost, "/api/auth/login",
		`{"email":"new@example.com","password":"password1"}`, "")
	handler.Login(c)
	require.Equal(t, http.StatusOK, recorder.Code)

	c, recorder = testRequest(t, http.MethodPost, "/api/auth/login",
		`{"email":"new@example.com","password":"wrong-password"}`, "")
	handler.Login(c)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestAuthHandlerRegisterValidation(t *testing.T) {
	handler := newAuthFixture(t)

	c, recorder := testRequest(t, http.MethodPost, "/api/auth/register",
		`{"email":"not-an-email","password":"password1"}`, "")
	handler.Register(c)
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	c, recorder = testRequest(t, http.MethodPost, "/api/auth/register",
		`{"email":"ok@example.com","password":"short"}`, "")
	handler.Register(c)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}
