package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snap-point/activity-engine/feed"
	"github.com/snap-point/activity-engine/logger"
	"github.com/snap-point/activity-engine/types"
)

type FeedController struct {
	feed *feed.Composer
	log  *logger.Logger
}

func NewFeedController(composer *feed.Composer, baseLog *logger.Logger) *FeedController {
	return &FeedController{feed: composer, log: baseLog.With("controller", "FeedController")}
}

// GetFollowingFeed godoc
// @Summary Get the following feed
// @Description Activities of the user and the users they follow, newest first
// @Tags feed
// @Produce json
// @Param page query integer false "Page number (default: 1)"
// @Param pageSize query integer false "Items per page (default: 20, max: 50)"
// @Success 200 {object} StandardResponse
// @Router /feed/following [get]
func (fc *FeedController) GetFollowingFeed(c *gin.Context) {
	fc.serve(c, fc.feed.Following)
}

// GetForYouFeed godoc
// @Summary Get the For-You feed
// @Description Media activities the user may see, ranked by hotness
// @Tags feed
// @Produce json
// @Param page query integer false "Page number (default: 1)"
// @Param pageSize query integer false "Items per page (default: 20, max: 50)"
// @Success 200 {object} StandardResponse
// @Router /feed/for-you [get]
func (fc *FeedController) GetForYouFeed(c *gin.Context) {
	fc.serve(c, fc.feed.ForYou)
}

func (fc *FeedController) serve(c *gin.Context, compose func(context.Context, uint, int, int) (*feed.Page, error)) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var query types.FeedRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page, err := compose(c.Request.Context(), userID, query.Page, query.PageSize)
	if err != nil {
		respondError(c, fc.log, err)
		return
	}

	c.JSON(http.StatusOK, StandardResponse{
		Success: true,
		Data:    page.Items,
		Pagination: &PaginationMeta{
			CurrentPage: page.Page,
			PageSize:    page.PageSize,
			HasMore:     page.HasMore,
		},
	})
}
