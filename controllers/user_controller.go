package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snap-point/activity-engine/apperr"
	"github.com/snap-point/activity-engine/dbctx"
	"github.com/snap-point/activity-engine/logger"
	"github.com/snap-point/activity-engine/progression"
	"github.com/snap-point/activity-engine/repositories"
)

type UserController struct {
	ledger        *progression.Ledger
	resources     repositories.ResourceRepo
	relationships repositories.RelationshipRepo
	log           *logger.Logger
}

func NewUserController(ledger *progression.Ledger, resources repositories.ResourceRepo, relationships repositories.RelationshipRepo, baseLog *logger.Logger) *UserController {
	return &UserController{
		ledger:        ledger,
		resources:     resources,
		relationships: relationships,
		log:           baseLog.With("controller", "UserController"),
	}
}

// GetMyProgression godoc
// @Summary Get the current user's xp, level and achievements
// @Tags progression
// @Produce json
// @Success 200 {object} StandardResponse
// @Router /progression/me [get]
func (uc *UserController) GetMyProgression(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	state, err := uc.ledger.State(c.Request.Context(), userID)
	if err != nil {
		respondError(c, uc.log, err)
		return
	}
	c.JSON(http.StatusOK, StandardResponse{Success: true, Data: state})
}

// GetUserProgression godoc
// @Summary Get another user's progression
// @Description Private accounts show achievements to followers only. Blocked users are not found.
// @Tags progression
// @Produce json
// @Param userId path integer true "User ID"
// @Success 200 {object} StandardResponse
// @Router /users/{userId}/progression [get]
func (uc *UserController) GetUserProgression(c *gin.Context) {
	currentUserID, ok := requireUser(c)
	if !ok {
		return
	}
	targetID, ok := requireID(c, "userId")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	dbc := dbctx.Of(ctx)

	target, err := uc.resources.GetUser(dbc, targetID)
	if err != nil {
		respondError(c, uc.log, err)
		return
	}
	if currentUserID != targetID {
		blocked, err := uc.relationships.IsBlocked(dbc, currentUserID, targetID)
		if err != nil {
			respondError(c, uc.log, err)
			return
		}
		if blocked {
			respondError(c, uc.log, apperr.NotFoundf("UserController.GetUserProgression", "user %d not found", targetID))
			return
		}
	}

	state, err := uc.ledger.State(ctx, targetID)
	if err != nil {
		respondError(c, uc.log, err)
		return
	}
	isOwnProfile := currentUserID == targetID
	isFollowing := false
	if !isOwnProfile {
		isFollowing, err = uc.relationships.IsFollowing(dbc, currentUserID, targetID)
		if err != nil {
			respondError(c, uc.log, err)
			return
		}
	}
	if target.IsPrivate && !isOwnProfile && !isFollowing {
		state.Achievements = nil
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"id":           target.ID,
			"username":     target.Username,
			"firstName":    target.FirstName,
			"lastName":     target.LastName,
			"avatar":       target.Avatar,
			"isVerified":   target.IsVerified,
			"isPrivate":    target.IsPrivate,
			"isOwnProfile": isOwnProfile,
			"isFollowing":  isFollowing,
			"progression":  state,
		},
	})
}
