package database

import (
	"gorm.io/gorm"

	"github.com/anonwork/anonwork/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.PostVote{},
		&models.PostMilestone{},
		&models.Notification{},
		&models.Conversation{},
		&models.ConversationParticipant{},
		&models.Message{},
		&models.CacheEntry{},
	)
}
