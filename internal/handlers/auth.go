package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	iauth "github.com/anonwork/anonwork/internal/auth"
	"github.com/anonwork/anonwork/internal/models"
	"github.com/anonwork/anonwork/internal/services"
	"github.com/anonwork/anonwork/pkg/errors"
	"github.com/anonwork/anonwork/pkg/response"
)

// AuthHandler exposes registration and login endpoints.
type AuthHandler struct {
	users *services.UserService
	jwt   *iauth.JWTService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, jwt *iauth.JWTService) (*AuthHandler, error) {
	users, err := services.NewUserService(db)
	if err != nil {
		return nil, err
	}
	return &AuthHandler{users: users, jwt: jwt}, nil
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userPayload struct {
	ID              string  `json:"id"`
	AnonUsername    string  `json:"anon_username"`
	DisplayName     *string `json:"display_name,omitempty"`
	ProfilePhotoURL string  `json:"profile_photo_url,omitempty"`
}

type authPayload struct {
	Token string      `json:"token"`
	User  userPayload `json:"user"`
}

// Register creates an account and returns a signed token for it.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Register(requestContext(c), services.RegisterUserInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	h.respondWithToken(c, http.StatusCreated, user)
}

// Login verifies credentials and returns a signed token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Authenticate(requestContext(c), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.respondWithToken(c, http.StatusOK, user)
}

// Me returns the authenticated user's public profile.
func (h *AuthHandler) Me(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	user, err := h.users.GetByID(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, mapUser(user))
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, user *models.User) {
	token, err := h.jwt.GenerateAccessToken(user.ID, user.AnonUsername)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, status, authPayload{Token: token, User: mapUser(user)})
}

func mapUser(user *models.User) userPayload {
	return userPayload{
		ID:              user.ID,
		AnonUsername:    user.AnonUsername,
		DisplayName:     user.DisplayName,
		ProfilePhotoURL: user.ProfilePhotoURL,
	}
}
