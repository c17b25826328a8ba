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

// CreateCommentInput holds attributes for a new comment or reply.
type CreateCommentInput struct {
	PostID          string
	AuthorID        string
	Body            string
	ParentCommentID *string
}

// CommentService creates and lists comments, deriving the comment/reply/mention
// notifications after each insert.
type CommentService struct {
	db       *gorm.DB
	notifier *NotificationService
}

// NewCommentService constructs a CommentService.
func NewCommentService(db *gorm.DB, notifier *NotificationService) (*CommentService, error) {
	if db == nil {
		return nil, errors.New("comment service: db is required")
	}
	return &CommentService{db: db, notifier: notifier}, nil
}

// Create persists a comment. Top-level comments notify the post author; replies
// notify the parent comment's author; both scan the body for mentions. All
// notification work happens behind the notifier's error boundary, so a comment
// never fails because a notification could not be written.
func (s *CommentService) Create(ctx context.Context, input CreateCommentInput) (*models.Comment, error) {
	ctx = ensureContext(ctx)

	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, apperrors.NewBadRequest("comment body required")
	}

	var post models.Post
	if err := s.db.WithContext(ctx).Take(&post, "id = ?", input.PostID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("comment service: load post: %w", err)
	}

	var parent *models.Comment
	if input.ParentCommentID != nil && *input.ParentCommentID != "" {
		var loaded models.Comment
		err := s.db.WithContext(ctx).Take(&loaded, "id = ? AND post_id = ?", *input.ParentCommentID, post.ID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("comment service: load parent comment: %w", err)
		}
		parent = &loaded
	}

	comment := models.Comment{
		PostID:   post.ID,
		AuthorID: input.AuthorID,
		Body:     body,
	}
	if parent != nil {
		comment.ParentCommentID = &parent.ID
	}

	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return nil, fmt.Errorf("comment service: create comment: %w", err)
	}

	if s.notifier != nil {
		actorName := s.actorName(ctx, input.AuthorID)
		if parent == nil {
			s.notifier.NotifyComment(ctx, post.AuthorID, input.AuthorID, actorName, post.ID, post.Title, body)
		} else {
			s.notifier.NotifyReply(ctx, parent.AuthorID, input.AuthorID, actorName, post.ID, post.Title, body)
		}
		s.notifier.NotifyMentions(ctx, body, input.AuthorID, actorName, post.ID, post.Title, "comment")
	}

	return &comment, nil
}

// ListForPost returns a post's comments oldest-first.
func (s *CommentService) ListForPost(ctx context.Context, postID string) ([]models.Comment, error) {
	ctx = ensureContext(ctx)

	var comments []models.Comment
	if err := s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("comment service: list comments: %w", err)
	}
	return comments, nil
}

func (s *CommentService) actorName(ctx context.Context, userID string) string {
	var user models.User
	if err := s.db.WithContext(ctx).Select("anon_username").Take(&user, "id = ?", userID).Error; err != nil {
		return "Someone"
	}
	return user.AnonUsername
}
