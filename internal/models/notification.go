package models

import "gorm.io/datatypes"

// Notification kinds emitted by the engagement engine.
const (
	NotificationComment   = "comment"
	NotificationReply     = "reply"
	NotificationUpvote    = "upvote"
	NotificationMilestone = "milestone"
	NotificationMention   = "mention"
	NotificationMessage   = "message"
)

// Notification represents an in-app notification for a user.
type Notification struct {
	BaseModel

	UserID string         `gorm:"type:uuid;index;not null" json:"user_id"`
	Type   string         `gorm:"type:varchar(32);not null" json:"type"`
	Title  string         `gorm:"type:varchar(255);not null" json:"title"`
	Body   string         `gorm:"type:text" json:"body"`
	Data   datatypes.JSON `json:"data"`

	Read bool `gorm:"default:false;index" json:"read"`
}
