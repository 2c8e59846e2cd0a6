package engagement

import (
	"context"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/snap-point/activity-engine/apperr"
	"github.com/snap-point/activity-engine/dbctx"
	"github.com/snap-point/activity-engine/logger"
	"github.com/snap-point/activity-engine/models"
	"github.com/snap-point/activity-engine/notify"
	"github.com/snap-point/activity-engine/repositories"
)

const MaxCommentLength = 2000

// ScoreScheduler queues an activity for hotness recomputation.
type ScoreScheduler interface {
	Schedule(activityID uint)
}

type NotificationDispatcher interface {
	Dispatch(n notify.Notification)
}

type ReactionResult struct {
	Reaction *models.Reaction `json:"reaction"`
	Activity *models.Activity `json:"activity"`
	// Created is false when the user had already reacted and only the type changed.
	Created bool `json:"created"`
}

type CommentResult struct {
	Comment  *models.Comment  `json:"comment"`
	Activity *models.Activity `json:"activity"`
}

// Aggregator keeps engagement rows and activity counters in step. Each event change and its
// counter update commit together.
type Aggregator struct {
	db          *gorm.DB
	activities  repositories.ActivityRepo
	engagements repositories.EngagementRepo
	scores      ScoreScheduler
	notifier    NotificationDispatcher
	log         *logger.Logger
}

func NewAggregator(
	db *gorm.DB,
	activities repositories.ActivityRepo,
	engagements repositories.EngagementRepo,
	scores ScoreScheduler,
	notifier NotificationDispatcher,
	baseLog *logger.Logger,
) *Aggregator {
	return &Aggregator{
		db:          db,
		activities:  activities,
		engagements: engagements,
		scores:      scores,
		notifier:    notifier,
		log:         baseLog.With("service", "EngagementAggregator"),
	}
}

// RecordReaction adds userID's reaction to an activity, or changes its type if one exists.
// A missing activity is a logged no-op that returns nil.
func (a *Aggregator) RecordReaction(ctx context.Context, activityID, userID uint, t models.ReactionType) (*ReactionResult, error) {
	var res *ReactionResult
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		res, err = a.RecordReactionTx(dbctx.Context{Ctx: ctx, Tx: tx}, activityID, userID, t)
		return err
	})
	if err != nil {
		return nil, err
	}
	a.AfterReaction(res)
	return res, nil
}

// RecordReactionTx is RecordReaction inside the caller's transaction. The caller must call
// AfterReaction once the transaction commits.
func (a *Aggregator) RecordReactionTx(dbc dbctx.Context, activityID, userID uint, t models.ReactionType) (*ReactionResult, error) {
	if !t.Valid() {
		return nil, apperr.Validationf("Aggregator.RecordReaction", "unknown reaction type %q", t)
	}
	if userID == 0 {
		return nil, apperr.Validationf("Aggregator.RecordReaction", "missing user")
	}
	activity, err := a.activities.GetByID(dbc, activityID)
	if apperr.Is(err, apperr.NotFound) {
		a.log.Warn("reaction on missing activity ignored", "activity_id", activityID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	existing, err := a.engagements.FindReaction(dbc, activityID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return a.retype(dbc, existing, activity, t)
	}

	reaction := &models.Reaction{ActivityID: activityID, UserID: userID, Type: t}
	// Savepoint so a lost race on the unique index leaves the outer transaction usable.
	err = dbc.DB(a.db).Transaction(func(sp *gorm.DB) error {
		return a.engagements.CreateReaction(dbctx.Context{Ctx: dbc.Ctx, Tx: sp}, reaction)
	})
	if repositories.IsDuplicate(err) {
		existing, err = a.engagements.FindReaction(dbc, activityID, userID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, apperr.Conflictf("Aggregator.RecordReaction", "reaction on activity %d changed concurrently", activityID)
		}
		return a.retype(dbc, existing, activity, t)
	}
	if err != nil {
		return nil, err
	}
	if _, err := a.activities.IncrementCounter(dbc, activityID, models.FieldReactions); err != nil {
		return nil, err
	}
	activity.ReactionsCount++
	return &ReactionResult{Reaction: reaction, Activity: activity, Created: true}, nil
}

func (a *Aggregator) retype(dbc dbctx.Context, existing *models.Reaction, activity *models.Activity, t models.ReactionType) (*ReactionResult, error) {
	if existing.Type != t {
		if err := a.engagements.UpdateReactionType(dbc, existing.ID, t); err != nil {
			return nil, err
		}
		existing.Type = t
	}
	return &ReactionResult{Reaction: existing, Activity: activity, Created: false}, nil
}

// AfterReaction runs the post-commit side effects of a recorded reaction.
func (a *Aggregator) AfterReaction(res *ReactionResult) {
	if res == nil || !res.Created {
		return
	}
	a.scores.Schedule(res.Activity.ID)
	if res.Reaction.UserID == res.Activity.ActorID {
		return
	}
	n := notify.New(notify.EventReactionReceived, []uint{res.Activity.ActorID}, res.Reaction.UserID, map[string]interface{}{
		"reactionType": res.Reaction.Type,
	})
	n.ActivityID = &res.Activity.ID
	a.notifier.Dispatch(n)
}

// RemoveReaction deletes a reaction owned by requesterID. It reports false when the reaction
// does not exist.
func (a *Aggregator) RemoveReaction(ctx context.Context, reactionID, requesterID uint) (bool, error) {
	var activityID uint
	removed := false
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		reaction, err := a.engagements.GetReaction(dbc, reactionID)
		if err != nil {
			return err
		}
		if reaction == nil {
			a.log.Warn("remove of missing reaction ignored", "reaction_id", reactionID)
			return nil
		}
		if reaction.UserID != requesterID {
			return apperr.Forbiddenf("Aggregator.RemoveReaction", "reaction %d belongs to another user", reactionID)
		}
		deleted, err := a.engagements.DeleteReaction(dbc, reactionID)
		if err != nil || !deleted {
			return err
		}
		if _, err := a.activities.DecrementCounter(dbc, reaction.ActivityID, models.FieldReactions); err != nil {
			return err
		}
		activityID = reaction.ActivityID
		removed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if removed {
		a.scores.Schedule(activityID)
	}
	return removed, nil
}

func normalizeBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", apperr.Validationf("Aggregator.RecordComment", "comment body is empty")
	}
	if utf8.RuneCountInString(body) > MaxCommentLength {
		return "", apperr.Validationf("Aggregator.RecordComment", "comment longer than %d characters", MaxCommentLength)
	}
	return body, nil
}

// RecordComment appends a comment. A missing activity is a logged no-op that returns nil.
func (a *Aggregator) RecordComment(ctx context.Context, activityID, userID uint, body string) (*CommentResult, error) {
	var res *CommentResult
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		res, err = a.RecordCommentTx(dbctx.Context{Ctx: ctx, Tx: tx}, activityID, userID, body)
		return err
	})
	if err != nil {
		return nil, err
	}
	a.AfterComment(res)
	return res, nil
}

func (a *Aggregator) RecordCommentTx(dbc dbctx.Context, activityID, userID uint, body string) (*CommentResult, error) {
	body, err := normalizeBody(body)
	if err != nil {
		return nil, err
	}
	if userID == 0 {
		return nil, apperr.Validationf("Aggregator.RecordComment", "missing user")
	}
	activity, err := a.activities.GetByID(dbc, activityID)
	if apperr.Is(err, apperr.NotFound) {
		a.log.Warn("comment on missing activity ignored", "activity_id", activityID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	comment := &models.Comment{ActivityID: activityID, UserID: userID, Body: body}
	if err := a.engagements.CreateComment(dbc, comment); err != nil {
		return nil, err
	}
	if _, err := a.activities.IncrementCounter(dbc, activityID, models.FieldComments); err != nil {
		return nil, err
	}
	activity.CommentsCount++
	return &CommentResult{Comment: comment, Activity: activity}, nil
}

func (a *Aggregator) AfterComment(res *CommentResult) {
	if res == nil {
		return
	}
	a.scores.Schedule(res.Activity.ID)
	if res.Comment.UserID == res.Activity.ActorID {
		return
	}
	n := notify.New(notify.EventCommentReceived, []uint{res.Activity.ActorID}, res.Comment.UserID, map[string]interface{}{
		"commentId": res.Comment.ID,
	})
	n.ActivityID = &res.Activity.ID
	a.notifier.Dispatch(n)
}

// RemoveComment deletes a comment. The comment's author and the activity's actor may remove it.
func (a *Aggregator) RemoveComment(ctx context.Context, commentID, requesterID uint) (bool, error) {
	var activityID uint
	removed := false
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		comment, err := a.engagements.GetComment(dbc, commentID)
		if err != nil {
			return err
		}
		if comment == nil {
			a.log.Warn("remove of missing comment ignored", "comment_id", commentID)
			return nil
		}
		if comment.UserID != requesterID {
			activity, err := a.activities.GetByID(dbc, comment.ActivityID)
			if err != nil && !apperr.Is(err, apperr.NotFound) {
				return err
			}
			if activity == nil || activity.ActorID != requesterID {
				return apperr.Forbiddenf("Aggregator.RemoveComment", "comment %d belongs to another user", commentID)
			}
		}
		deleted, err := a.engagements.DeleteComment(dbc, commentID)
		if err != nil || !deleted {
			return err
		}
		if _, err := a.activities.DecrementCounter(dbc, comment.ActivityID, models.FieldComments); err != nil {
			return err
		}
		activityID = comment.ActivityID
		removed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if removed {
		a.scores.Schedule(activityID)
	}
	return removed, nil
}

// RecordView counts one view. It reports false when the activity does not exist.
func (a *Aggregator) RecordView(ctx context.Context, activityID uint) (bool, error) {
	ok, err := a.activities.IncrementCounter(dbctx.Of(ctx), activityID, models.FieldViews)
	if err != nil {
		return false, err
	}
	if !ok {
		a.log.Warn("view on missing activity ignored", "activity_id", activityID)
		return false, nil
	}
	a.scores.Schedule(activityID)
	return true, nil
}
