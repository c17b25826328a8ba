package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/anonwork/anonwork/internal/models"
	apperrors "github.com/anonwork/anonwork/pkg/errors"
	"github.com/anonwork/anonwork/pkg/metrics"
)

// ParticipantDTO describes another member of a conversation.
type ParticipantDTO struct {
	UserID          string  `json:"user_id"`
	AnonUsername    string  `json:"anon_username"`
	DisplayName     *string `json:"display_name,omitempty"`
	ProfilePhotoURL string  `json:"profile_photo_url,omitempty"`
}

// ConversationDTO is one inbox entry.
type ConversationDTO struct {
	ID                string           `json:"id"`
	Type              string           `json:"type"`
	CreatedBy         string           `json:"created_by"`
	UpdatedAt         time.Time        `json:"updated_at"`
	LastReadAt        *time.Time       `json:"last_read_at,omitempty"`
	Unread            bool             `json:"unread"`
	OtherParticipants []ParticipantDTO `json:"other_participants"`
}

// MessageDTO is the API-facing shape of a direct message.
type MessageDTO struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	SenderUsername string    `json:"sender_anon_username,omitempty"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

// SendDirectResult pairs a created message with the thread it landed in.
type SendDirectResult struct {
	Message        MessageDTO `json:"message"`
	ConversationID string     `json:"conversation_id"`
}

// ConversationService resolves direct-message threads and appends messages to
// them. The single genuine race in the subsystem lives here: two simultaneous
// first messages for the same pair must converge on one thread.
type ConversationService struct {
	db *gorm.DB
}

// NewConversationService constructs a ConversationService.
func NewConversationService(db *gorm.DB) (*ConversationService, error) {
	if db == nil {
		return nil, errors.New("conversation service: db is required")
	}
	return &ConversationService{db: db}, nil
}

// participantKey canonicalises an unordered user pair into the unique key
// stored on the conversation row.
func participantKey(userA, userB string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return pair[0] + "|" + pair[1]
}

// FindOrCreateDirect returns the id of the single dm thread between the two
// users, creating it atomically when none exists. A uniqueness violation during
// creation means a concurrent caller won the race; the existing row is fetched
// and returned instead of surfacing an error.
func (s *ConversationService) FindOrCreateDirect(ctx context.Context, userA, userB string) (string, error) {
	ctx = ensureContext(ctx)

	if userA == "" || userB == "" {
		return "", apperrors.NewBadRequest("both participants are required")
	}
	if userA == userB {
		return "", apperrors.NewBadRequest("cannot start a conversation with yourself")
	}

	key := participantKey(userA, userB)

	var existing models.Conversation
	err := s.db.WithContext(ctx).Take(&existing, "participant_key = ?", key).Error
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("conversation service: lookup conversation: %w", err)
	}

	conversation := models.Conversation{
		Type:           models.ConversationTypeDM,
		CreatedBy:      userA,
		ParticipantKey: key,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&conversation).Error; err != nil {
			return err
		}
		participants := []models.ConversationParticipant{
			{ConversationID: conversation.ID, UserID: userA},
			{ConversationID: conversation.ID, UserID: userB},
		}
		return tx.Create(&participants).Error
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			// A concurrent caller created the thread between our check and insert.
			var winner models.Conversation
			if fetchErr := s.db.WithContext(ctx).Take(&winner, "participant_key = ?", key).Error; fetchErr != nil {
				return "", fmt.Errorf("conversation service: refetch after race: %w", fetchErr)
			}
			return winner.ID, nil
		}
		return "", fmt.Errorf("conversation service: create conversation: %w", err)
	}

	metrics.ConversationsCreated.Inc()
	return conversation.ID, nil
}

// SendDirect starts or reuses the thread with the recipient and appends a
// message to it.
func (s *ConversationService) SendDirect(ctx context.Context, senderID, recipientID, body string) (*SendDirectResult, error) {
	ctx = ensureContext(ctx)

	var recipient models.User
	if err := s.db.WithContext(ctx).Select("id").Take(&recipient, "id = ?", recipientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("conversation service: load recipient: %w", err)
	}

	conversationID, err := s.FindOrCreateDirect(ctx, senderID, recipientID)
	if err != nil {
		return nil, err
	}

	message, err := s.AppendMessage(ctx, conversationID, senderID, body)
	if err != nil {
		return nil, err
	}

	return &SendDirectResult{Message: *message, ConversationID: conversationID}, nil
}

// AppendMessage inserts a message and bumps the conversation's updated_at,
// which orders the inbox by recency.
func (s *ConversationService) AppendMessage(ctx context.Context, conversationID, senderID, body string) (*MessageDTO, error) {
	ctx = ensureContext(ctx)

	if body == "" {
		return nil, apperrors.NewBadRequest("message body required")
	}

	if err := s.requireParticipant(ctx, conversationID, senderID); err != nil {
		return nil, err
	}

	message := models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&message).Error; err != nil {
			return fmt.Errorf("conversation service: create message: %w", err)
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", conversationID).
			Update("updated_at", time.Now().UTC()).Error
	})
	if err != nil {
		return nil, err
	}

	metrics.MessagesSent.Inc()

	return &MessageDTO{
		ID:             message.ID,
		ConversationID: message.ConversationID,
		SenderID:       message.SenderID,
		Body:           message.Body,
		CreatedAt:      message.CreatedAt,
	}, nil
}

// ListForUser returns the user's inbox ordered by thread recency.
func (s *ConversationService) ListForUser(ctx context.Context, userID string) ([]ConversationDTO, error) {
	ctx = ensureContext(ctx)

	var memberships []models.ConversationParticipant
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&memberships).Error; err != nil {
		return nil, fmt.Errorf("conversation service: list memberships: %w", err)
	}
	if len(memberships) == 0 {
		return []ConversationDTO{}, nil
	}

	lastRead := make(map[string]*time.Time, len(memberships))
	ids := make([]string, 0, len(memberships))
	for _, membership := range memberships {
		ids = append(ids, membership.ConversationID)
		lastRead[membership.ConversationID] = membership.LastReadAt
	}

	var conversations []models.Conversation
	if err := s.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("updated_at DESC").
		Find(&conversations).Error; err != nil {
		return nil, fmt.Errorf("conversation service: list conversations: %w", err)
	}

	out := make([]ConversationDTO, 0, len(conversations))
	for _, conversation := range conversations {
		others, err := s.otherParticipants(ctx, conversation.ID, userID)
		if err != nil {
			return nil, err
		}

		readAt := lastRead[conversation.ID]
		dto := ConversationDTO{
			ID:                conversation.ID,
			Type:              conversation.Type,
			CreatedBy:         conversation.CreatedBy,
			UpdatedAt:         conversation.UpdatedAt,
			LastReadAt:        readAt,
			Unread:            readAt == nil || readAt.Before(conversation.UpdatedAt),
			OtherParticipants: others,
		}
		out = append(out, dto)
	}
	return out, nil
}

// ListMessages returns every message in the thread oldest-first and marks the
// reader's participant row as read, mirroring an inbox open.
func (s *ConversationService) ListMessages(ctx context.Context, conversationID, userID string) ([]MessageDTO, error) {
	ctx = ensureContext(ctx)

	if err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	var messages []models.Message
	if err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("conversation service: list messages: %w", err)
	}

	senderNames, err := s.senderNames(ctx, messages)
	if err != nil {
		return nil, err
	}

	out := make([]MessageDTO, 0, len(messages))
	for _, message := range messages {
		out = append(out, MessageDTO{
			ID:             message.ID,
			ConversationID: message.ConversationID,
			SenderID:       message.SenderID,
			SenderUsername: senderNames[message.SenderID],
			Body:           message.Body,
			CreatedAt:      message.CreatedAt,
		})
	}

	if err := s.MarkRead(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	return out, nil
}

// MarkRead stamps the participant's last_read_at. Unread computation is left to
// callers comparing that stamp against message timestamps.
func (s *ConversationService) MarkRead(ctx context.Context, conversationID, userID string) error {
	ctx = ensureContext(ctx)

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).
		Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Update("last_read_at", now).Error; err != nil {
		return fmt.Errorf("conversation service: mark read: %w", err)
	}
	return nil
}

func (s *ConversationService) requireParticipant(ctx context.Context, conversationID, userID string) error {
	var participant models.ConversationParticipant
	err := s.db.WithContext(ctx).
		Take(&participant, "conversation_id = ? AND user_id = ?", conversationID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		var conversation models.Conversation
		if convErr := s.db.WithContext(ctx).Select("id").Take(&conversation, "id = ?", conversationID).Error; convErr != nil {
			return apperrors.ErrNotFound
		}
		return apperrors.ErrForbidden
	}
	if err != nil {
		return fmt.Errorf("conversation service: load participant: %w", err)
	}
	return nil
}

func (s *ConversationService) otherParticipants(ctx context.Context, conversationID, userID string) ([]ParticipantDTO, error) {
	var participants []models.ConversationParticipant
	if err := s.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id <> ?", conversationID, userID).
		Find(&participants).Error; err != nil {
		return nil, fmt.Errorf("conversation service: list participants: %w", err)
	}

	out := make([]ParticipantDTO, 0, len(participants))
	for _, participant := range participants {
		var user models.User
		if err := s.db.WithContext(ctx).
			Select("id", "anon_username", "display_name", "profile_photo_url").
			Take(&user, "id = ?", participant.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, fmt.Errorf("conversation service: load participant user: %w", err)
		}
		out = append(out, ParticipantDTO{
			UserID:          user.ID,
			AnonUsername:    user.AnonUsername,
			DisplayName:     user.DisplayName,
			ProfilePhotoURL: user.ProfilePhotoURL,
		})
	}
	return out, nil
}

func (s *ConversationService) senderNames(ctx context.Context, messages []models.Message) (map[string]string, error) {
	ids := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		if _, ok := seen[message.SenderID]; ok {
			continue
		}
		seen[message.SenderID] = struct{}{}
		ids = append(ids, message.SenderID)
	}
	if len(ids) == 0 {
		return map[string]string{}, nil
	}

	var users []models.User
	if err := s.db.WithContext(ctx).
		Select("id", "anon_username").
		Where("id IN ?", ids).
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("conversation service: load senders: %w", err)
	}

	names := make(map[string]string, len(users))
	for _, user := range users {
		names[user.ID] = user.AnonUsername
	}
	return names, nil
}
