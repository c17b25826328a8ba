package models

import "time"

// ConversationTypeDM is the only conversation type currently supported.
const ConversationTypeDM = "dm"

// Conversation is a persistent message thread. For "dm" threads the
// ParticipantKey holds the sorted pair of participant ids; its unique index is
// what guarantees a single thread per unordered pair even under concurrent
// first messages.
type Conversation struct {
	BaseModel

	Type           string `gorm:"type:varchar(16);default:'dm';not null" json:"type"`
	CreatedBy      string `gorm:"type:uuid;not null" json:"created_by"`
	ParticipantKey string `gorm:"type:varchar(128);uniqueIndex;not null" json:"-"`
}

// ConversationParticipant links a user into a conversation. LastReadAt drives the
// unread indicator: callers compare it against message timestamps.
type ConversationParticipant struct {
	ConversationID string     `gorm:"type:uuid;primaryKey" json:"conversation_id"`
	UserID         string     `gorm:"type:uuid;primaryKey;index" json:"user_id"`
	LastReadAt     *time.Time `json:"last_read_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Message is an append-only direct message inside a conversation.
type Message struct {
	BaseModel

	ConversationID string `gorm:"type:uuid;index;not null" json:"conversation_id"`
	SenderID       string `gorm:"type:uuid;not null" json:"sender_id"`
	Body           string `gorm:"type:text;not null" json:"body"`
}
