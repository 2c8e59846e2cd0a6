package feed

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/snap-point/activity-engine/apperr"
	"github.com/snap-point/activity-engine/dbctx"
	"github.com/snap-point/activity-engine/models"
)

// hydrate expands rows into items concurrently. An item that cannot be completed within
// HydrationTimeout, or whose resource or actor is gone, is dropped and logged.
func (c *Composer) hydrate(ctx context.Context, requesterID uint, rows []*models.Activity) []*Item {
	if len(rows) == 0 {
		return []*Item{}
	}
	dbc := dbctx.Of(ctx)

	actorIDs := make([]uint, 0, len(rows))
	for _, a := range rows {
		actorIDs = append(actorIDs, a.ActorID)
	}
	actors, err := c.resources.GetUsers(dbc, actorIDs)
	if err != nil {
		c.log.Warn("feed actor lookup failed", "requester_id", requesterID, "error", err)
		return []*Item{}
	}
	progress, err := c.progressions.GetMany(dbc, actorIDs)
	if err != nil {
		c.log.Warn("feed progression lookup failed", "requester_id", requesterID, "error", err)
		progress = map[uint]*models.UserProgression{}
	}

	slots := make([]*Item, len(rows))
	g := new(errgroup.Group)
	g.SetLimit(c.cfg.HydrationConcurrency)
	for i, a := range rows {
		g.Go(func() error {
			itemCtx, cancel := context.WithTimeout(ctx, c.cfg.HydrationTimeout)
			defer cancel()

			actor, ok := actors[a.ActorID]
			if !ok {
				c.log.Warn("feed item dropped", "activity_id", a.ID, "error", "actor not found")
				return nil
			}
			item, err := c.hydrateOne(itemCtx, requesterID, a, actor, progress[a.ActorID])
			if err == nil {
				err = itemCtx.Err()
			}
			if err != nil {
				c.log.Warn("feed item dropped", "activity_id", a.ID, "resource_kind", a.ResourceKind, "error", err)
				return nil
			}
			slots[i] = item
			return nil
		})
	}
	_ = g.Wait()

	items := make([]*Item, 0, len(slots))
	for _, it := range slots {
		if it != nil {
			items = append(items, it)
		}
	}
	return items
}

func (c *Composer) hydrateOne(ctx context.Context, requesterID uint, a *models.Activity, actor *models.User, p *models.UserProgression) (*Item, error) {
	dbc := dbctx.Of(ctx)

	origin, err := c.resources.Load(dbc, a.ResourceKind, a.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("load resource: %w", err)
	}

	keys := append(append([]string{}, origin.Media...), actor.Avatar)
	urls, err := c.media.Resolve(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("resolve media: %w", err)
	}

	item := &Item{
		ID:           a.ID,
		ActionKind:   a.ActionKind,
		CreatedAt:    a.CreatedAt,
		HotnessScore: a.HotnessScore,
		Actor: ActorBrief{
			ID:          actor.ID,
			Username:    actor.Username,
			DisplayName: actor.DisplayName(),
			Avatar:      urls[len(urls)-1],
			IsVerified:  actor.IsVerified,
			Level:       1,
		},
		Resource: ResourceBrief{
			Kind:       origin.Kind,
			ID:         origin.ID,
			Title:      origin.Title,
			Body:       origin.Body,
			Rating:     origin.Rating,
			Recommend:  origin.Recommend,
			Visibility: origin.Visibility,
			MediaURLs:  urls[:len(urls)-1],
		},
		Engagement: a.Engagement(),
	}
	if p != nil {
		item.Actor.XP, item.Actor.Level = p.XP, p.Level
	}

	if a.PlaceID != nil && a.ResourceKind != models.ResourcePlace {
		place, err := c.resources.GetPlace(dbc, *a.PlaceID)
		switch {
		case err == nil:
			item.Place = &PlaceBrief{ID: place.ID, Name: place.Name, Address: place.Address, Image: place.PlaceImage, Rating: place.Rating}
		case apperr.Is(err, apperr.NotFound):
		default:
			return nil, fmt.Errorf("load place: %w", err)
		}
	}

	counts, err := c.engagements.ReactionCounts(dbc, a.ID)
	if err != nil {
		return nil, fmt.Errorf("reaction counts: %w", err)
	}
	item.ReactionCounts = counts

	own, err := c.engagements.FindReaction(dbc, a.ID, requesterID)
	if err != nil {
		return nil, fmt.Errorf("own reaction: %w", err)
	}
	if own != nil {
		t := own.Type
		item.MyReaction = &t
	}

	comments, err := c.topComments(dbc, a.ID)
	if err != nil {
		return nil, err
	}
	item.TopComments = comments

	if shouldAnonymize(requesterID, a.ActorID, origin.Visibility) {
		anonymize(item)
	}
	return item, nil
}

func (c *Composer) topComments(dbc dbctx.Context, activityID uint) ([]CommentBrief, error) {
	out := []CommentBrief{}
	if c.cfg.TopComments == 0 {
		return out, nil
	}
	comments, err := c.engagements.RecentComments(dbc, activityID, c.cfg.TopComments)
	if err != nil {
		return nil, fmt.Errorf("recent comments: %w", err)
	}
	if len(comments) == 0 {
		return out, nil
	}
	ids := make([]uint, 0, len(comments))
	for _, cm := range comments {
		ids = append(ids, cm.UserID)
	}
	authors, err := c.resources.GetUsers(dbc, ids)
	if err != nil {
		return nil, fmt.Errorf("comment authors: %w", err)
	}
	for _, cm := range comments {
		brief := CommentBrief{ID: cm.ID, UserID: cm.UserID, Body: cm.Body, CreatedAt: cm.CreatedAt}
		if u, ok := authors[cm.UserID]; ok {
			brief.Username = u.Username
		}
		out = append(out, brief)
	}
	return out, nil
}
