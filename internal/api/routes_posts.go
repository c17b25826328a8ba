package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/anonwork/anonwork/internal/handlers"
	"github.com/anonwork/anonwork/internal/services"
)

func registerPostRoutes(api *gin.RouterGroup, db *gorm.DB, notifier *services.NotificationService) error {
	postHandler, err := handlers.NewPostHandler(db, notifier)
	if err != nil {
		return err
	}
	commentHandler, err := handlers.NewCommentHandler(db, notifier)
	if err != nil {
		return err
	}
	voteHandler, err := handlers.NewVoteHandler(db, notifier)
	if err != nil {
		return err
	}

	posts := api.Group("/posts")
	{
		posts.GET("", postHandler.List)
		posts.POST("", postHandler.Create)
		posts.GET("/:id", postHandler.Get)

		posts.GET("/:id/comments", commentHandler.List)
		posts.POST("/:id/comments", commentHandler.Create)

		posts.POST("/:id/vote", voteHandler.Cast)
	}
	return nil
}
