package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/anonwork/anonwork/internal/models"
	apperrors "github.com/anonwork/anonwork/pkg/errors"
)

// CreatePostInput holds attributes for a new post.
type CreatePostInput struct {
	AuthorID string
	Title    string
	Body     string
}

// ListPostsInput paginates the recent-posts feed.
type ListPostsInput struct {
	Page  int
	Limit int
}

// PostService owns post creation and reads. It exists mainly as the entry point
// that feeds post bodies into the mention derivation.
type PostService struct {
	db       *gorm.DB
	notifier *NotificationService
}

// NewPostService constructs a PostService.
func NewPostService(db *gorm.DB, notifier *NotificationService) (*PostService, error) {
	if db == nil {
		return nil, errors.New("post service: db is required")
	}
	return &PostService{db: db, notifier: notifier}, nil
}

// Create persists a post and scans its body for mentions.
func (s *PostService) Create(ctx context.Context, input CreatePostInput) (*models.Post, error) {
	ctx = ensureContext(ctx)

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewBadRequest("title is required")
	}

	post := models.Post{
		AuthorID: input.AuthorID,
		Title:    title,
		Body:     strings.TrimSpace(input.Body),
	}

	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return nil, fmt.Errorf("post service: create post: %w", err)
	}

	if s.notifier != nil {
		actorName := s.actorName(ctx, input.AuthorID)
		s.notifier.NotifyMentions(ctx, post.Body, post.AuthorID, actorName, post.ID, post.Title, "post")
	}

	return &post, nil
}

// Get fetches a post by id with its cached score.
func (s *PostService) Get(ctx context.Context, id string) (*models.Post, error) {
	ctx = ensureContext(ctx)

	var post models.Post
	err := s.db.WithContext(ctx).Take(&post, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("post service: load post: %w", err)
	}
	return &post, nil
}

// List returns recent posts, newest first.
func (s *PostService) List(ctx context.Context, input ListPostsInput) ([]models.Post, error) {
	ctx = ensureContext(ctx)

	page := input.Page
	if page < 1 {
		page = 1
	}
	limit := input.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var posts []models.Post
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("post service: list posts: %w", err)
	}
	return posts, nil
}

func (s *PostService) actorName(ctx context.Context, userID string) string {
	var user models.User
	if err := s.db.WithContext(ctx).Select("anon_username").Take(&user, "id = ?", userID).Error; err != nil {
		return "Someone"
	}
	return user.AnonUsername
}
