package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/anonwork/anonwork/internal/models"
	"github.com/anonwork/anonwork/internal/services"
	"github.com/anonwork/anonwork/pkg/errors"
	"github.com/anonwork/anonwork/pkg/response"
)

// CommentHandler exposes HTTP endpoints for comments on posts.
type CommentHandler struct {
	service *services.CommentService
}

// NewCommentHandler constructs a comment handler with its own service instance.
func NewCommentHandler(db *gorm.DB, notifier *services.NotificationService) (*CommentHandler, error) {
	service, err := services.NewCommentService(db, notifier)
	if err != nil {
		return nil, err
	}
	return &CommentHandler{service: service}, nil
}

type createCommentRequest struct {
	Body            string  `json:"body" validate:"required,max=10000"`
	ParentCommentID *string `json:"parent_comment_id,omitempty"`
}

type commentPayload struct {
	ID              string    `json:"id"`
	PostID          string    `json:"post_id"`
	AuthorID        string    `json:"author_id"`
	Body            string    `json:"body"`
	ParentCommentID *string   `json:"parent_comment_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Create adds a comment or reply under the post in the route.
func (h *CommentHandler) Create(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req createCommentRequest
	if !bindAndValidate(c, &req) {
		return
	}

	comment, err := h.service.Create(requestContext(c), services.CreateCommentInput{
		PostID:          strings.TrimSpace(c.Param("id")),
		AuthorID:        userID,
		Body:            req.Body,
		ParentCommentID: req.ParentCommentID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, mapComment(comment))
}

// List returns the post's comments oldest-first.
func (h *CommentHandler) List(c *gin.Context) {
	comments, err := h.service.ListForPost(requestContext(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]commentPayload, 0, len(comments))
	for i := range comments {
		items = append(items, mapComment(&comments[i]))
	}

	response.Success(c, http.StatusOK, items)
}

func mapComment(comment *models.Comment) commentPayload {
	return commentPayload{
		ID:              comment.ID,
		PostID:          comment.PostID,
		AuthorID:        comment.AuthorID,
		Body:            comment.Body,
		ParentCommentID: comment.ParentCommentID,
		CreatedAt:       comment.CreatedAt,
	}
}
