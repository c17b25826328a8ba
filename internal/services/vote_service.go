package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/anonwork/anonwork/internal/models"
	apperrors "github.com/anonwork/anonwork/pkg/errors"
	"github.com/anonwork/anonwork/pkg/metrics"
)

// VoteDTO is the API-facing shape of a vote row.
type VoteDTO struct {
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	Value     int       `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// VoteResult carries the outcome of a cast: the surviving vote (nil when
// retracted) and the recomputed aggregate score.
type VoteResult struct {
	Vote  *VoteDTO `json:"vote"`
	Score int      `json:"score"`
}

// VoteService maintains the vote ledger: at most one row per (post, user) and a
// denormalised aggregate score on the post.
type VoteService struct {
	db       *gorm.DB
	notifier *NotificationService
}

// NewVoteService constructs a VoteService. The notifier may be nil, in which
// case no engagement notifications are derived from votes.
func NewVoteService(db *gorm.DB, notifier *NotificationService) (*VoteService, error) {
	if db == nil {
		return nil, errors.New("vote service: db is required")
	}
	return &VoteService{db: db, notifier: notifier}, nil
}

// Cast records userID's vote on postID. A value of 0 retracts any existing
// vote; ±1 inserts or updates the single ledger row. The upsert, the full
// recomputation of the aggregate and the score write all run in one
// transaction, so the stored score can lag reality by at most one in-flight
// request and self-heals on the next vote.
func (s *VoteService) Cast(ctx context.Context, postID, userID string, value int) (*VoteResult, error) {
	ctx = ensureContext(ctx)

	if value != -1 && value != 0 && value != 1 {
		return nil, apperrors.ErrInvalidVote
	}

	var (
		post   models.Post
		vote   *models.PostVote
		score  int
		result VoteResult
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&post, "id = ?", postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("vote service: load post: %w", err)
		}

		var existing models.PostVote
		err := tx.Take(&existing, "post_id = ? AND user_id = ?", postID, userID).Error
		switch {
		case err == nil:
			if value == 0 {
				if err := tx.Delete(&existing).Error; err != nil {
					return fmt.Errorf("vote service: delete vote: %w", err)
				}
			} else {
				existing.Value = value
				if err := tx.Save(&existing).Error; err != nil {
					return fmt.Errorf("vote service: update vote: %w", err)
				}
				vote = &existing
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if value != 0 {
				created := models.PostVote{PostID: postID, UserID: userID, Value: value}
				if err := tx.Create(&created).Error; err != nil {
					return fmt.Errorf("vote service: create vote: %w", err)
				}
				vote = &created
			}
		default:
			return fmt.Errorf("vote service: load vote: %w", err)
		}

		// Recompute from scratch rather than patching the cached score; a full
		// resum is idempotent and converges even if a previous write raced.
		var sum int64
		if err := tx.Model(&models.PostVote{}).
			Where("post_id = ?", postID).
			Select("COALESCE(SUM(value), 0)").
			Scan(&sum).Error; err != nil {
			return fmt.Errorf("vote service: recompute score: %w", err)
		}
		score = int(sum)

		if err := tx.Model(&models.Post{}).
			Where("id = ?", postID).
			Update("score", score).Error; err != nil {
			return fmt.Errorf("vote service: store score: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.VotesCast.WithLabelValues(strconv.Itoa(value)).Inc()

	result.Score = score
	if vote != nil {
		result.Vote = &VoteDTO{
			PostID:    vote.PostID,
			UserID:    vote.UserID,
			Value:     vote.Value,
			CreatedAt: vote.CreatedAt,
		}
	}

	s.notifyAfterCast(ctx, &post, userID, value, score)

	return &result, nil
}

// notifyAfterCast feeds the recomputed aggregate into the notification
// derivations. Failures in here never affect the vote itself.
func (s *VoteService) notifyAfterCast(ctx context.Context, post *models.Post, voterID string, value, score int) {
	if s.notifier == nil {
		return
	}

	if value == 1 {
		var voter models.User
		name := "Someone"
		if err := s.db.WithContext(ctx).Select("anon_username").Take(&voter, "id = ?", voterID).Error; err == nil {
			name = voter.AnonUsername
		}
		s.notifier.NotifyUpvote(ctx, post.AuthorID, voterID, name, post.ID, post.Title, score)
		return
	}

	// Retractions and downvotes can still land exactly on a milestone value.
	s.notifier.NotifyMilestone(ctx, post.AuthorID, voterID, post.ID, post.Title, score)
}
