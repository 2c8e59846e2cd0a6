package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/snap-point/activity-engine/controllers"
)

func SetupInteractionRoutes(protected *gin.RouterGroup, interactionController *controllers.InteractionController) {
	activities := protected.Group("/activities")
	{
		activities.POST("/:id/reactions", interactionController.AddReaction)
		activities.POST("/:id/comments", interactionController.AddComment)
		activities.POST("/:id/views", interactionController.RecordView)
	}

	protected.DELETE("/reactions/:id", interactionController.RemoveReaction)
	protected.DELETE("/comments/:id", interactionController.RemoveComment)
}
