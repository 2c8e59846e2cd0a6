package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snap-point/activity-engine/actions"
	"github.com/snap-point/activity-engine/engagement"
	"github.com/snap-point/activity-engine/logger"
	"github.com/snap-point/activity-engine/models"
	"github.com/snap-point/activity-engine/types"
)

type InteractionController struct {
	actions    *actions.Service
	engagement *engagement.Aggregator
	log        *logger.Logger
}

func NewInteractionController(svc *actions.Service, agg *engagement.Aggregator, baseLog *logger.Logger) *InteractionController {
	return &InteractionController{
		actions:    svc,
		engagement: agg,
		log:        baseLog.With("controller", "InteractionController"),
	}
}

// AddReaction godoc
// @Summary React to an activity
// @Description Adds a reaction, or changes the type of the user's existing reaction
// @Tags interactions
// @Accept json
// @Produce json
// @Param id path integer true "Activity ID"
// @Success 200 {object} StandardResponse
// @Router /activities/{id}/reactions [post]
func (ic *InteractionController) AddReaction(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	activityID, ok := requireID(c, "id")
	if !ok {
		return
	}
	var req types.ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := ic.actions.React(c.Request.Context(), activityID, userID, models.ReactionType(req.Type))
	if err != nil {
		respondError(c, ic.log, err)
		return
	}
	if res == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Activity not found"})
		return
	}
	c.JSON(http.StatusOK, StandardResponse{Success: true, Data: res})
}

// RemoveReaction godoc
// @Summary Remove a reaction
// @Tags interactions
// @Param id path integer true "Reaction ID"
// @Success 200 {object} StandardResponse
// @Router /reactions/{id} [delete]
func (ic *InteractionController) RemoveReaction(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	reactionID, ok := requireID(c, "id")
	if !ok {
		return
	}
	removed, err := ic.engagement.RemoveReaction(c.Request.Context(), reactionID, userID)
	if err != nil {
		respondError(c, ic.log, err)
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Reaction not found"})
		return
	}
	c.JSON(http.StatusOK, StandardResponse{Success: true, Message: "Reaction removed"})
}

// AddComment godoc
// @Summary Comment on an activity
// @Tags interactions
// @Accept json
// @Produce json
// @Param id path integer true "Activity ID"
// @Success 201 {object} StandardResponse
// @Router /activities/{id}/comments [post]
func (ic *InteractionController) AddComment(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	activityID, ok := requireID(c, "id")
	if !ok {
		return
	}
	var req types.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := ic.actions.Comment(c.Request.Context(), activityID, userID, req.Body)
	if err != nil {
		respondError(c, ic.log, err)
		return
	}
	if res == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Activity not found"})
		return
	}
	c.JSON(http.StatusCreated, StandardResponse{Success: true, Data: res})
}

// RemoveComment godoc
// @Summary Remove a comment
// @Description The comment's author or the activity's actor may remove it
// @Tags interactions
// @Param id path integer true "Comment ID"
// @Success 200 {object} StandardResponse
// @Router /comments/{id} [delete]
func (ic *InteractionController) RemoveComment(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	commentID, ok := requireID(c, "id")
	if !ok {
		return
	}
	removed, err := ic.engagement.RemoveComment(c.Request.Context(), commentID, userID)
	if err != nil {
		respondError(c, ic.log, err)
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}
	c.JSON(http.StatusOK, StandardResponse{Success: true, Message: "Comment removed"})
}

// RecordView godoc
// @Summary Count a view of an activity
// @Tags interactions
// @Param id path integer true "Activity ID"
// @Success 204
// @Router /activities/{id}/views [post]
func (ic *InteractionController) RecordView(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	activityID, ok := requireID(c, "id")
	if !ok {
		return
	}
	found, err := ic.engagement.RecordView(c.Request.Context(), activityID)
	if err != nil {
		respondError(c, ic.log, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Activity not found"})
		return
	}
	c.Status(http.StatusNoContent)
}
