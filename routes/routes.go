package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snap-point/activity-engine/controllers"
	"github.com/snap-point/activity-engine/middleware"
)

type Controllers struct {
	Feed        *controllers.FeedController
	Action      *controllers.ActionController
	Interaction *controllers.InteractionController
	User        *controllers.UserController
	Leaderboard *controllers.LeaderboardController
}

func SetupRoutes(r *gin.Engine, ctrls Controllers, jwtSecret string) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Protected routes
	protected := r.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtSecret))
	{
		SetupFeedRoutes(protected, ctrls.Feed)
		SetupActionRoutes(protected, ctrls.Action)
		SetupInteractionRoutes(protected, ctrls.Interaction)
		SetupUserRoutes(protected, ctrls.User, ctrls.Leaderboard)
	}
}
