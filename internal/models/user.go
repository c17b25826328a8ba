package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User describes a platform account. Members post, comment, vote and message under
// their anonymous username; the email is only used for sign-in.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	AnonUsername string  `gorm:"uniqueIndex;not null" json:"anon_username"`
	DisplayName  *string `json:"display_name,omitempty"`

	Role               string `gorm:"type:varchar(32);default:'user'" json:"role"`
	IsVerifiedEmployee bool   `gorm:"default:false" json:"is_verified_employee"`
	ProfilePhotoURL    string `gorm:"type:text" json:"profile_photo_url,omitempty"`

	LastActiveAt *time.Time `json:"last_active_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
