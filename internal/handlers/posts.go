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

// PostHandler exposes HTTP endpoints for posts.
type PostHandler struct {
	service *services.PostService
}

// NewPostHandler constructs a post handler with its own service instance.
func NewPostHandler(db *gorm.DB, notifier *services.NotificationService) (*PostHandler, error) {
	service, err := services.NewPostService(db, notifier)
	if err != nil {
		return nil, err
	}
	return &PostHandler{service: service}, nil
}

type createPostRequest struct {
	Title string `json:"title" validate:"required,max=300"`
	Body  string `json:"body" validate:"max=40000"`
}

type postPayload struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// Create publishes a new post authored by the current user.
func (h *PostHandler) Create(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req createPostRequest
	if !bindAndValidate(c, &req) {
		return
	}

	post, err := h.service.Create(requestContext(c), services.CreatePostInput{
		AuthorID: userID,
		Title:    req.Title,
		Body:     req.Body,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, mapPost(post))
}

// Get returns a single post with its current score.
func (h *PostHandler) Get(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	post, err := h.service.Get(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, mapPost(post))
}

// List returns the recent-posts feed.
func (h *PostHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	limit := parseIntQuery(c, "limit", 20)

	posts, err := h.service.List(requestContext(c), services.ListPostsInput{Page: page, Limit: limit})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]postPayload, 0, len(posts))
	for i := range posts {
		items = append(items, mapPost(&posts[i]))
	}

	response.SuccessWithMeta(c, http.StatusOK, items, &response.Meta{Page: page, PerPage: limit})
}

func mapPost(post *models.Post) postPayload {
	return postPayload{
		ID:        post.ID,
		AuthorID:  post.AuthorID,
		Title:     post.Title,
		Body:      post.Body,
		Score:     post.Score,
		CreatedAt: post.CreatedAt,
	}
}
