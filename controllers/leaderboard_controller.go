package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snap-point/activity-engine/logger"
	"github.com/snap-point/activity-engine/progression"
	"github.com/snap-point/activity-engine/types"
)

type LeaderboardController struct {
	ledger *progression.Ledger
	log    *logger.Logger
}

func NewLeaderboardController(ledger *progression.Ledger, baseLog *logger.Logger) *LeaderboardController {
	return &LeaderboardController{ledger: ledger, log: baseLog.With("controller", "LeaderboardController")}
}

// GetLeaderboard godoc
// @Summary Get the xp leaderboard
// @Tags leaderboard
// @Produce json
// @Param timeFilter query string false "all_time, weekly or monthly (default: all_time)"
// @Param limit query integer false "Number of users (default: 10, max: 100)"
// @Success 200 {object} map[string]interface{}
// @Router /leaderboard [get]
func (lc *LeaderboardController) GetLeaderboard(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var query types.LeaderboardRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if query.TimeFilter == "" {
		query.TimeFilter = string(progression.TimeframeAllTime)
	}

	board, err := lc.ledger.Leaderboard(c.Request.Context(), progression.Timeframe(query.TimeFilter), query.Limit)
	if err != nil {
		respondError(c, lc.log, err)
		return
	}

	var userRank interface{}
	for _, entry := range board {
		if entry.UserID == userID {
			userRank = entry
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"leaderboard": board,
		"user_rank":   userRank,
		"filter":      gin.H{"timeFilter": query.TimeFilter, "limit": len(board)},
	})
}
