package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/snap-point/activity-engine/controllers"
)

func SetupUserRoutes(protected *gin.RouterGroup, userController *controllers.UserController, leaderboardController *controllers.LeaderboardController) {
	protected.GET("/progression/me", userController.GetMyProgression)
	protected.GET("/leaderboard", leaderboardController.GetLeaderboard)

	users := protected.Group("/users")
	{
		users.GET("/:userId/progression", userController.GetUserProgression)
	}
}
