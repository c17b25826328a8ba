package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/anonwork/anonwork/internal/services"
	"github.com/anonwork/anonwork/pkg/errors"
	"github.com/anonwork/anonwork/pkg/response"
)

// NotificationHandler exposes HTTP endpoints for notifications.
type NotificationHandler struct {
	service *services.NotificationService
}

// NewNotificationHandler wraps an already-constructed notification service;
// the same instance feeds the engagement derivations elsewhere.
func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// List returns notifications for the current user.
func (h *NotificationHandler) List(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	page, err := h.service.List(requestContext(c), services.ListNotificationsInput{
		UserID:     userID,
		Page:       parseIntQuery(c, "page", 1),
		Limit:      parseIntQuery(c, "limit", 20),
		UnreadOnly: strings.EqualFold(c.Query("unread"), "true"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, page)
}

type markReadRequest struct {
	NotificationIDs []string `json:"notification_ids"`
	MarkAll         bool     `json:"mark_all"`
}

// MarkRead marks the supplied notifications, or all of them, as read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req markReadRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)
	var err error
	if req.MarkAll {
		err = h.service.MarkAllRead(ctx, userID)
	} else {
		err = h.service.MarkRead(ctx, userID, req.NotificationIDs)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

// Delete removes a notification owned by the current user.
func (h *NotificationHandler) Delete(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if err := h.service.Delete(requestContext(c), userID, id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// UnreadCount returns the unread badge count for the current user.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	count, err := h.service.UnreadCount(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"unread_count": count})
}
