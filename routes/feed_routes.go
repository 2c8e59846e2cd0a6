package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/snap-point/activity-engine/controllers"
)

func SetupFeedRoutes(protected *gin.RouterGroup, feedController *controllers.FeedController) {
	feed := protected.Group("/feed")
	{
		feed.GET("/following", feedController.GetFollowingFeed)
		feed.GET("/for-you", feedController.GetForYouFeed)
	}
}
