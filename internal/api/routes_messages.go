package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/anonwork/anonwork/internal/handlers"
)

func registerMessageRoutes(api *gin.RouterGroup, db *gorm.DB) error {
	handler, err := handlers.NewMessageHandler(db)
	if err != nil {
		return err
	}

	api.POST("/messages", handler.Send)

	conversations := api.Group("/conversations")
	{
		conversations.GET("", handler.Inbox)
		conversations.GET("/:id/messages", handler.Messages)
		conversations.POST("/:id/messages", handler.Append)
		conversations.POST("/:id/read", handler.MarkRead)
	}
	return nil
}
