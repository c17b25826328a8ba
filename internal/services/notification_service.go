package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/anonwork/anonwork/internal/cache"
	"github.com/anonwork/anonwork/internal/models"
	apperrors "github.com/anonwork/anonwork/pkg/errors"
	"github.com/anonwork/anonwork/pkg/logger"
	"github.com/anonwork/anonwork/pkg/metrics"
)

const unreadCountTTL = 5 * time.Minute

// NotificationDTO represents the API-friendly notification payload.
type NotificationDTO struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Body      string         `json:"body,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Read      bool           `json:"read"`
	CreatedAt time.Time      `json:"created_at"`
}

// CreateNotificationInput defines attributes required to persist a notification.
type CreateNotificationInput struct {
	UserID string
	Type   string
	Title  string
	Body   string
	Data   map[string]any
}

// ListNotificationsInput defines filters for querying user notifications.
type ListNotificationsInput struct {
	UserID     string
	Page       int
	Limit      int
	UnreadOnly bool
}

// NotificationPage bundles one page of notifications with counts that are
// computed independently of the page contents.
type NotificationPage struct {
	Notifications []NotificationDTO `json:"notifications"`
	UnreadCount   int64             `json:"unread_count"`
	Total         int64             `json:"total"`
	Page          int               `json:"page"`
	Limit         int               `json:"limit"`
}

// NotificationOptions tunes the derivation rules.
type NotificationOptions struct {
	// Milestones is the ascending score set that triggers one-time celebratory
	// notifications. Defaults to the product ladder when empty.
	Milestones []int
	// UpvoteNotifyMax caps per-vote upvote notifications to young posts.
	UpvoteNotifyMax int
	// Cache, when set, is used to cache unread counts.
	Cache cache.Store
}

// NotificationService persists user notifications and encodes the eligibility
// rules for the engagement-derived kinds. Derivation failures are logged and
// swallowed so they can never fail the triggering operation.
type NotificationService struct {
	db              *gorm.DB
	store           cache.Store
	milestones      []int
	upvoteNotifyMax int
	log             *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(db *gorm.DB, opts NotificationOptions) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}

	milestones := opts.Milestones
	if len(milestones) == 0 {
		milestones = []int{5, 10, 25, 50, 100, 250, 500, 1000}
	}

	upvoteMax := opts.UpvoteNotifyMax
	if upvoteMax < 0 {
		upvoteMax = 0
	}

	return &NotificationService{
		db:              db,
		store:           opts.Cache,
		milestones:      milestones,
		upvoteNotifyMax: upvoteMax,
		log:             logger.WithModule("notifications"),
	}, nil
}

// Create registers a new unread notification.
func (s *NotificationService) Create(ctx context.Context, input CreateNotificationInput) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)

	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, errors.New("notification service: user id is required")
	}
	kind := strings.TrimSpace(input.Type)
	if kind == "" {
		return nil, errors.New("notification service: type is required")
	}

	notification := models.Notification{
		UserID: userID,
		Type:   kind,
		Title:  strings.TrimSpace(input.Title),
		Body:   strings.TrimSpace(input.Body),
	}

	data := input.Data
	if data == nil {
		data = map[string]any{}
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("notification service: marshal data: %w", err)
	}
	notification.Data = datatypes.JSON(encoded)

	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		return nil, fmt.Errorf("notification service: create notification: %w", err)
	}

	metrics.NotificationsCreated.WithLabelValues(kind).Inc()
	s.invalidateUnreadCount(ctx, userID)

	dto := mapNotification(notification)
	return &dto, nil
}

// List returns one page of notifications ordered by recency, with the unread
// count and total computed regardless of the page returned.
func (s *NotificationService) List(ctx context.Context, input ListNotificationsInput) (*NotificationPage, error) {
	ctx = ensureContext(ctx)

	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, errors.New("notification service: user id is required")
	}

	page := input.Page
	if page < 1 {
		page = 1
	}
	limit := input.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	scope := s.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if input.UnreadOnly {
		scope = scope.Where("read = ?", false)
	}

	var total int64
	if err := scope.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("notification service: count notifications: %w", err)
	}

	var rows []models.Notification
	if err := scope.
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification service: list notifications: %w", err)
	}

	unread, err := s.UnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]NotificationDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapNotification(row))
	}

	return &NotificationPage{
		Notifications: items,
		UnreadCount:   unread,
		Total:         total,
		Page:          page,
		Limit:         limit,
	}, nil
}

// UnreadCount returns the number of unread notifications for a user, consulting
// the cache store first when one is configured.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	ctx = ensureContext(ctx)

	if s.store != nil {
		if raw, ok, err := s.store.Get(ctx, unreadCountKey(userID)); err == nil && ok {
			if count, parseErr := strconv.ParseInt(string(raw), 10, 64); parseErr == nil {
				return count, nil
			}
		}
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("notification service: unread count: %w", err)
	}

	if s.store != nil {
		if err := s.store.Set(ctx, unreadCountKey(userID), []byte(strconv.FormatInt(count, 10)), unreadCountTTL); err != nil {
			s.log.Debug("cache unread count", zap.Error(err))
		}
	}

	return count, nil
}

// MarkRead flags the supplied notifications as read. Already-read rows and ids
// belonging to other users are silently skipped, making the call idempotent.
func (s *NotificationService) MarkRead(ctx context.Context, userID string, notificationIDs []string) error {
	ctx = ensureContext(ctx)

	ids := normaliseIDs(notificationIDs)
	if len(ids) == 0 {
		return apperrors.NewBadRequest("notification_ids or mark_all required")
	}

	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND id IN ? AND read = ?", userID, ids, false).
		Update("read", true).Error; err != nil {
		return fmt.Errorf("notification service: mark read: %w", err)
	}

	s.invalidateUnreadCount(ctx, userID)
	return nil
}

// MarkAllRead marks every unread notification for the user as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	ctx = ensureContext(ctx)

	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true).Error; err != nil {
		return fmt.Errorf("notification service: mark all read: %w", err)
	}

	s.invalidateUnreadCount(ctx, userID)
	return nil
}

// Delete removes a notification owned by the supplied user.
func (s *NotificationService) Delete(ctx context.Context, userID, notificationID string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return fmt.Errorf("notification service: delete notification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}

	s.invalidateUnreadCount(ctx, userID)
	return nil
}

// NotifyComment tells a post author about a new top-level comment. Authors are
// never notified about their own comments.
func (s *NotificationService) NotifyComment(ctx context.Context, postAuthorID, actorID, actorName, postID, postTitle, preview string) {
	if postAuthorID == actorID {
		return
	}

	s.deliver(ctx, CreateNotificationInput{
		UserID: postAuthorID,
		Type:   models.NotificationComment,
		Title:  fmt.Sprintf("%s commented on your post", actorName),
		Body:   previewText(preview),
		Data: map[string]any{
			"post_id":    postID,
			"post_title": postTitle,
			"user_id":    actorID,
			"username":   actorName,
		},
	})
}

// NotifyReply tells a comment author about a reply to their comment.
func (s *NotificationService) NotifyReply(ctx context.Context, parentAuthorID, actorID, actorName, postID, postTitle, preview string) {
	if parentAuthorID == actorID {
		return
	}

	s.deliver(ctx, CreateNotificationInput{
		UserID: parentAuthorID,
		Type:   models.NotificationReply,
		Title:  fmt.Sprintf("%s replied to your comment", actorName),
		Body:   previewText(preview),
		Data: map[string]any{
			"post_id":    postID,
			"post_title": postTitle,
			"user_id":    actorID,
			"username":   actorName,
		},
	})
}

// NotifyUpvote tells a post author about a direct upvote while the post is
// young (score at or below the configured cap), then runs the milestone check.
func (s *NotificationService) NotifyUpvote(ctx context.Context, postAuthorID, voterID, voterName, postID, postTitle string, newScore int) {
	if postAuthorID == voterID {
		return
	}

	if newScore > 0 && newScore <= s.upvoteNotifyMax {
		s.deliver(ctx, CreateNotificationInput{
			UserID: postAuthorID,
			Type:   models.NotificationUpvote,
			Title:  fmt.Sprintf("%s upvoted your post", voterName),
			Body:   previewText(postTitle),
			Data: map[string]any{
				"post_id":    postID,
				"post_title": postTitle,
				"user_id":    voterID,
				"username":   voterName,
			},
		})
	}

	s.NotifyMilestone(ctx, postAuthorID, voterID, postID, postTitle, newScore)
}

// NotifyMilestone fires a celebratory notification when the recomputed score is
// an exact member of the milestone set. The author's own votes never trigger
// it, and the post_milestones unique index makes each (post, milestone) fire at
// most once, so a vote toggling across the boundary cannot retrigger it.
func (s *NotificationService) NotifyMilestone(ctx context.Context, postAuthorID, actorID, postID, postTitle string, newScore int) {
	if postAuthorID == actorID {
		return
	}
	if !containsInt(s.milestones, newScore) {
		return
	}

	ctx = ensureContext(ctx)
	claim := models.PostMilestone{PostID: postID, Score: newScore}
	if err := s.db.WithContext(ctx).Create(&claim).Error; err != nil {
		if isUniqueConstraintError(err) {
			// Already celebrated.
			return
		}
		s.log.Warn("claim milestone", zap.String("post_id", postID), zap.Int("score", newScore), zap.Error(err))
		return
	}

	s.deliver(ctx, CreateNotificationInput{
		UserID: postAuthorID,
		Type:   models.NotificationMilestone,
		Title:  fmt.Sprintf("Your post reached %d upvotes!", newScore),
		Body:   previewText(postTitle),
		Data: map[string]any{
			"post_id":    postID,
			"post_title": postTitle,
			"score":      newScore,
		},
	})
}

// deliver is the shared error boundary for derivation rules: persistence
// problems are logged, never propagated.
func (s *NotificationService) deliver(ctx context.Context, input CreateNotificationInput) {
	if _, err := s.Create(ctx, input); err != nil {
		s.log.Warn("deliver notification",
			zap.String("type", input.Type),
			zap.String("user_id", input.UserID),
			zap.Error(err),
		)
	}
}

func (s *NotificationService) invalidateUnreadCount(ctx context.Context, userID string) {
	if s.store == nil {
		return
	}
	if err := s.store.Delete(ensureContext(ctx), unreadCountKey(userID)); err != nil {
		s.log.Debug("invalidate unread count", zap.Error(err))
	}
}

func unreadCountKey(userID string) string {
	return "notifications:unread:" + userID
}

func mapNotification(row models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        row.ID,
		UserID:    row.UserID,
		Type:      row.Type,
		Title:     row.Title,
		Body:      row.Body,
		Data:      decodeJSON(row.Data),
		Read:      row.Read,
		CreatedAt: row.CreatedAt,
	}
}

func decodeJSON(data datatypes.JSON) map[string]any {
	if len(data) == 0 {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
