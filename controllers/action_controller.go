package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snap-point/activity-engine/actions"
	"github.com/snap-point/activity-engine/logger"
	"github.com/snap-point/activity-engine/models"
	"github.com/snap-point/activity-engine/types"
)

type ActionController struct {
	actions *actions.Service
	log     *logger.Logger
}

func NewActionController(svc *actions.Service, baseLog *logger.Logger) *ActionController {
	return &ActionController{actions: svc, log: baseLog.With("controller", "ActionController")}
}

// RecordAction godoc
// @Summary Record an action on a resource
// @Description Creates the activity for a review, check-in, homemade post, added place or follow and applies its reward
// @Tags actions
// @Accept json
// @Produce json
// @Success 201 {object} StandardResponse
// @Router /actions [post]
func (ac *ActionController) RecordAction(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req types.RecordActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := ac.actions.Record(c.Request.Context(), userID, models.ActionKind(req.ActionKind), req.ResourceID)
	if err != nil {
		respondError(c, ac.log, err)
		return
	}

	status, message := http.StatusCreated, "Activity recorded"
	if !res.Created {
		status, message = http.StatusOK, "Activity already recorded"
	}
	c.JSON(status, StandardResponse{Success: true, Data: res, Message: message})
}

// DeleteResource godoc
// @Summary Delete a resource and everything derived from it
// @Tags actions
// @Produce json
// @Param kind path string true "Resource kind"
// @Param id path integer true "Resource ID"
// @Success 200 {object} StandardResponse
// @Router /resources/{kind}/{id} [delete]
func (ac *ActionController) DeleteResource(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := requireID(c, "id")
	if !ok {
		return
	}
	kind := models.ResourceKind(c.Param("kind"))
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown resource kind"})
		return
	}

	res, err := ac.actions.DeleteOwnedResource(c.Request.Context(), userID, kind, id)
	if err != nil {
		respondError(c, ac.log, err)
		return
	}
	c.JSON(http.StatusOK, StandardResponse{Success: true, Data: res, Message: "Resource deleted"})
}
