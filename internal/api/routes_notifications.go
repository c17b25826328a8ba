package api

import (
	"github.com/gin-gonic/gin"

	"github.com/anonwork/anonwork/internal/handlers"
)

func registerNotificationRoutes(api *gin.RouterGroup, handler *handlers.NotificationHandler) {
	group := api.Group("/notifications")
	{
		group.GET("", handler.List)
		group.GET("/unread-count", handler.UnreadCount)
		group.POST("/read", handler.MarkRead)
		group.DELETE("/:id", handler.Delete)
	}
}
