package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/anonwork/anonwork/internal/services"
	"github.com/anonwork/anonwork/pkg/errors"
	"github.com/anonwork/anonwork/pkg/response"
)

// VoteHandler exposes the vote endpoint for posts.
type VoteHandler struct {
	service *services.VoteService
}

// NewVoteHandler constructs a vote handler with its own service instance.
func NewVoteHandler(db *gorm.DB, notifier *services.NotificationService) (*VoteHandler, error) {
	service, err := services.NewVoteService(db, notifier)
	if err != nil {
		return nil, err
	}
	return &VoteHandler{service: service}, nil
}

type castVoteRequest struct {
	Value *int `json:"value" validate:"required"`
}

// Cast records the current user's vote on the post in the route. Sending 0
// retracts any existing vote.
func (h *VoteHandler) Cast(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req castVoteRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.service.Cast(requestContext(c), strings.TrimSpace(c.Param("id")), userID, *req.Value)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}
