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

// MessageHandler exposes direct-message endpoints.
type MessageHandler struct {
	service *services.ConversationService
}

// NewMessageHandler constructs a message handler with its own service instance.
func NewMessageHandler(db *gorm.DB) (*MessageHandler, error) {
	service, err := services.NewConversationService(db)
	if err != nil {
		return nil, err
	}
	return &MessageHandler{service: service}, nil
}

type sendMessageRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
	Body        string `json:"body" validate:"required,max=10000"`
}

// Send starts or reuses the dm thread with the recipient and appends a message.
func (h *MessageHandler) Send(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req sendMessageRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.service.SendDirect(requestContext(c), userID, req.RecipientID, req.Body)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, result)
}

// Inbox returns the current user's conversations ordered by recency.
func (h *MessageHandler) Inbox(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	conversations, err := h.service.ListForUser(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, conversations)
}

type appendMessageRequest struct {
	Body string `json:"body" validate:"required,max=10000"`
}

// Append adds a message to an existing conversation the user belongs to.
func (h *MessageHandler) Append(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req appendMessageRequest
	if !bindAndValidate(c, &req) {
		return
	}

	message, err := h.service.AppendMessage(requestContext(c), strings.TrimSpace(c.Param("id")), userID, req.Body)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, message)
}

// Messages returns the conversation transcript oldest-first and marks it read.
func (h *MessageHandler) Messages(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	messages, err := h.service.ListMessages(requestContext(c), strings.TrimSpace(c.Param("id")), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, messages)
}

// MarkRead stamps the conversation as read for the current user.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	conversationID := strings.TrimSpace(c.Param("id"))
	if err := h.service.MarkRead(requestContext(c), conversationID, userID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"read": true})
}
