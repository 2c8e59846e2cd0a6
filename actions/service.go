package actions

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/snap-point/activity-engine/apperr"
	"github.com/snap-point/activity-engine/dbctx"
	"github.com/snap-point/activity-engine/engagement"
	"github.com/snap-point/activity-engine/logger"
	"github.com/snap-point/activity-engine/models"
	"github.com/snap-point/activity-engine/progression"
	"github.com/snap-point/activity-engine/repositories"
	"github.com/snap-point/activity-engine/rewards"
)

type ScoreScheduler interface {
	Schedule(activityID uint)
}

type Deps struct {
	DB            *gorm.DB
	Resources     repositories.ResourceRepo
	Activities    repositories.ActivityRepo
	Engagements   repositories.EngagementRepo
	Relationships repositories.RelationshipRepo
	Entries       repositories.LedgerRepo
	Aggregator    *engagement.Aggregator
	Ledger        *progression.Ledger
	Scores        ScoreScheduler
}

// Service records user actions as activities and keeps activities, engagement and rewards
// consistent when an originating resource goes away.
type Service struct {
	db            *gorm.DB
	resources     repositories.ResourceRepo
	activities    repositories.ActivityRepo
	engagements   repositories.EngagementRepo
	relationships repositories.RelationshipRepo
	entries       repositories.LedgerRepo
	aggregator    *engagement.Aggregator
	ledger        *progression.Ledger
	scores        ScoreScheduler
	log           *logger.Logger
	tracer        trace.Tracer
	now           func() time.Time
}

func NewService(deps Deps, baseLog *logger.Logger) *Service {
	return &Service{
		db:            deps.DB,
		resources:     deps.Resources,
		activities:    deps.Activities,
		engagements:   deps.Engagements,
		relationships: deps.Relationships,
		entries:       deps.Entries,
		aggregator:    deps.Aggregator,
		ledger:        deps.Ledger,
		scores:        deps.Scores,
		log:           baseLog.With("service", "ActionService"),
		tracer:        otel.Tracer("activity-engine/actions"),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

type RecordResult struct {
	Activity *models.Activity    `json:"activity"`
	Created  bool                `json:"created"`
	Reward   *progression.Result `json:"reward,omitempty"`
}

// Record turns an action on a resource into an activity and pays out any reward the action
// earns. Recording the same action on the same resource again returns the existing activity.
func (s *Service) Record(ctx context.Context, actorID uint, kind models.ActionKind, resourceID uint) (*RecordResult, error) {
	const op = "ActionService.Record"
	ctx, span := s.tracer.Start(ctx, "actions.Record", trace.WithAttributes(
		attribute.Int64("actor.id", int64(actorID)),
		attribute.String("action.kind", string(kind)),
		attribute.Int64("resource.id", int64(resourceID)),
	))
	defer span.End()

	if actorID == 0 {
		return nil, apperr.Validationf(op, "missing actor")
	}
	resourceKind, ok := models.ResourceKindFor(kind)
	if !ok {
		return nil, apperr.Validationf(op, "unknown action kind %q", kind)
	}
	if kind == models.ActionLeveledUp {
		return nil, apperr.Validationf(op, "%s activities are created by the progression ledger", kind)
	}

	var res *RecordResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		res, err = s.recordTx(dbctx.Context{Ctx: ctx, Tx: tx}, actorID, kind, resourceKind, resourceID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if res.Created {
		s.scores.Schedule(res.Activity.ID)
	}
	if res.Reward != nil {
		s.ledger.Settle(ctx, res.Reward)
	}
	return res, nil
}

func (s *Service) recordTx(dbc dbctx.Context, actorID uint, kind models.ActionKind, resourceKind models.ResourceKind, resourceID uint) (*RecordResult, error) {
	const op = "ActionService.Record"
	origin, err := s.resources.Load(dbc, resourceKind, resourceID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(dbc, actorID, kind, origin); err != nil {
		return nil, err
	}

	existing, err := s.findRecorded(dbc, actorID, kind, resourceKind, resourceID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &RecordResult{Activity: existing}, nil
	}

	actor, err := s.resources.GetUser(dbc, actorID)
	if err != nil {
		return nil, err
	}
	activity := &models.Activity{
		ActorID:      actorID,
		ActionKind:   kind,
		ResourceKind: resourceKind,
		ResourceID:   resourceID,
		PlaceID:      origin.PlaceID,
		Visibility:   origin.Visibility,
		ActorPrivate: actor.IsPrivate,
		// A user's avatar does not make a follow or level-up discoverable.
		HasMedia: origin.HasMedia() && resourceKind != models.ResourceUser,
	}
	if !activity.Visibility.Valid() {
		return nil, apperr.Validationf(op, "resource %s/%d has invalid visibility %q", resourceKind, resourceID, origin.Visibility)
	}
	err = dbc.DB(s.db).Transaction(func(sp *gorm.DB) error {
		return s.activities.Create(dbctx.Context{Ctx: dbc.Ctx, Tx: sp}, activity)
	})
	if repositories.IsDuplicate(err) {
		// A concurrent Record of the same action committed first.
		existing, ferr := s.findRecorded(dbc, actorID, kind, resourceKind, resourceID)
		if ferr != nil {
			return nil, ferr
		}
		if existing == nil {
			return nil, apperr.Conflictf(op, "%s on %s/%d is being recorded concurrently", kind, resourceKind, resourceID)
		}
		return &RecordResult{Activity: existing}, nil
	}
	if err != nil {
		return nil, err
	}
	if origin.LinkedActivityID == nil {
		if err := s.resources.LinkActivity(dbc, resourceKind, resourceID, activity.ID); err != nil {
			return nil, err
		}
	}

	res := &RecordResult{Activity: activity, Created: true}
	rewardKind, ok := models.RewardKindFor(kind)
	if !ok {
		return res, nil
	}
	reason := rewards.Reason{
		Kind:     rewardKind,
		TargetID: origin.ID,
		PlaceID:  origin.PlaceID,
		HasMedia: origin.HasMedia(),
		At:       s.now(),
	}
	reward, err := s.ledger.ApplyRewardTx(dbc, actorID, reason, rewards.Amount(reason))
	if err != nil {
		return nil, err
	}
	if reward.Outcome != progression.OutcomeGranted {
		s.log.Debug("action not rewarded", "actor_id", actorID, "kind", kind, "outcome", reward.Outcome, "reason", reward.Decision.Reason)
	}
	res.Reward = reward
	return res, nil
}

func (s *Service) findRecorded(dbc dbctx.Context, actorID uint, kind models.ActionKind, resourceKind models.ResourceKind, resourceID uint) (*models.Activity, error) {
	existing, err := s.activities.FindByResource(dbc, resourceKind, resourceID)
	if err != nil {
		return nil, err
	}
	for _, a := range existing {
		if a.ActorID == actorID && a.ActionKind == kind {
			return a, nil
		}
	}
	return nil, nil
}

// authorize checks the actor may record kind on origin. Following a user needs an accepted
// follow; every other action needs ownership of the resource.
func (s *Service) authorize(dbc dbctx.Context, actorID uint, kind models.ActionKind, origin *repositories.Origin) error {
	const op = "ActionService.Record"
	if kind == models.ActionFollowedUser {
		if origin.ID == actorID {
			return apperr.Validationf(op, "users cannot follow themselves")
		}
		ok, err := s.relationships.IsFollowing(dbc, actorID, origin.ID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Forbiddenf(op, "user %d does not follow user %d", actorID, origin.ID)
		}
		return nil
	}
	if origin.OwnerID != actorID {
		return apperr.Forbiddenf(op, "%s %d is not owned by user %d", origin.Kind, origin.ID, actorID)
	}
	return nil
}

type EngagementResult struct {
	Reaction *engagement.ReactionResult `json:"reaction,omitempty"`
	Comment  *engagement.CommentResult  `json:"comment,omitempty"`
	Reward   *progression.Result        `json:"reward,omitempty"`
}

// React records a reaction and pays the one-time reaction reward for the activity. Reacting
// to your own activity earns nothing. A nil result means the activity does not exist.
func (s *Service) React(ctx context.Context, activityID, userID uint, t models.ReactionType) (*EngagementResult, error) {
	var out *EngagementResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		res, err := s.aggregator.RecordReactionTx(dbc, activityID, userID, t)
		if err != nil || res == nil {
			return err
		}
		out = &EngagementResult{Reaction: res}
		if !res.Created {
			return nil
		}
		out.Reward, err = s.engagementRewardTx(dbc, userID, res.Activity, models.RewardReaction)
		return err
	})
	if err != nil || out == nil {
		return nil, err
	}
	s.aggregator.AfterReaction(out.Reaction)
	if out.Reward != nil {
		s.ledger.Settle(ctx, out.Reward)
	}
	return out, nil
}

// Comment records a comment and pays the one-time comment reward for the activity.
func (s *Service) Comment(ctx context.Context, activityID, userID uint, body string) (*EngagementResult, error) {
	var out *EngagementResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		res, err := s.aggregator.RecordCommentTx(dbc, activityID, userID, body)
		if err != nil || res == nil {
			return err
		}
		out = &EngagementResult{Comment: res}
		out.Reward, err = s.engagementRewardTx(dbc, userID, res.Activity, models.RewardComment)
		return err
	})
	if err != nil || out == nil {
		return nil, err
	}
	s.aggregator.AfterComment(out.Comment)
	if out.Reward != nil {
		s.ledger.Settle(ctx, out.Reward)
	}
	return out, nil
}

func (s *Service) engagementRewardTx(dbc dbctx.Context, userID uint, activity *models.Activity, kind models.RewardKind) (*progression.Result, error) {
	if activity.ActorID == userID {
		return nil, nil
	}
	parent := activity.ID
	reason := rewards.Reason{
		Kind:             kind,
		TargetID:         activity.ID,
		ParentActivityID: &parent,
		At:               s.now(),
	}
	return s.ledger.ApplyRewardTx(dbc, userID, reason, rewards.Amount(reason))
}

type DeleteResult struct {
	ActivitiesRemoved int            `json:"activitiesRemoved"`
	EntriesRevoked    int            `json:"entriesRevoked"`
	XPRevoked         map[uint]int64 `json:"xpRevoked"`
}

// DeleteResource removes a resource together with its activities, their reactions and
// comments, and every ledger entry paid for any of them. Revoked xp is taken back.
func (s *Service) DeleteResource(ctx context.Context, kind models.ResourceKind, id uint) (*DeleteResult, error) {
	return s.deleteResource(ctx, 0, kind, id)
}

// DeleteOwnedResource is DeleteResource restricted to the resource's owner.
func (s *Service) DeleteOwnedResource(ctx context.Context, requesterID uint, kind models.ResourceKind, id uint) (*DeleteResult, error) {
	if requesterID == 0 {
		return nil, apperr.Validationf("ActionService.DeleteResource", "missing requester")
	}
	return s.deleteResource(ctx, requesterID, kind, id)
}

func (s *Service) deleteResource(ctx context.Context, requesterID uint, kind models.ResourceKind, id uint) (*DeleteResult, error) {
	const op = "ActionService.DeleteResource"
	ctx, span := s.tracer.Start(ctx, "actions.DeleteResource", trace.WithAttributes(
		attribute.String("resource.kind", string(kind)),
		attribute.Int64("resource.id", int64(id)),
	))
	defer span.End()

	rewardKind, ok := rewardKindForResource(kind)
	if !ok {
		return nil, apperr.Validationf(op, "%q resources cannot be deleted", kind)
	}

	res := &DeleteResult{XPRevoked: map[uint]int64{}}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		origin, err := s.resources.Load(dbc, kind, id)
		if err != nil {
			return err
		}
		if requesterID != 0 && origin.OwnerID != requesterID {
			return apperr.Forbiddenf(op, "%s %d is not owned by user %d", kind, id, requesterID)
		}

		linked, err := s.activities.FindByResource(dbc, kind, id)
		if err != nil {
			return err
		}
		activityIDs := make([]uint, 0, len(linked))
		for _, a := range linked {
			activityIDs = append(activityIDs, a.ID)
		}

		if err := s.engagements.DeleteByActivityIDs(dbc, activityIDs); err != nil {
			return err
		}
		entries, err := s.entries.ListForCascade(dbc, rewardKind, id, activityIDs)
		if err != nil {
			return err
		}
		revoked, err := s.ledger.RevokeTx(dbc, entries)
		if err != nil {
			return err
		}
		if _, err := s.activities.DeleteByIDs(dbc, activityIDs); err != nil {
			return err
		}
		if err := s.resources.Delete(dbc, kind, id); err != nil {
			return err
		}
		res.ActivitiesRemoved = len(activityIDs)
		res.EntriesRevoked = len(entries)
		res.XPRevoked = revoked
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	s.log.Info("resource deleted",
		"kind", kind,
		"resource_id", id,
		"activities", res.ActivitiesRemoved,
		"ledger_entries", res.EntriesRevoked,
	)
	return res, nil
}

func rewardKindForResource(kind models.ResourceKind) (models.RewardKind, bool) {
	switch kind {
	case models.ResourceReview:
		return models.RewardReview, true
	case models.ResourceCheckIn:
		return models.RewardCheckIn, true
	case models.ResourceHomemade:
		return models.RewardHomemade, true
	case models.ResourcePlace:
		return models.RewardAddPlace, true
	default:
		return "", false
	}
}
