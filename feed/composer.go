package feed

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/snap-point/activity-engine/apperr"
	"github.com/snap-point/activity-engine/dbctx"
	"github.com/snap-point/activity-engine/logger"
	"github.com/snap-point/activity-engine/media"
	"github.com/snap-point/activity-engine/models"
	"github.com/snap-point/activity-engine/repositories"
)

type ScoreScheduler interface {
	Schedule(activityID uint)
}

type Deps struct {
	Activities    repositories.ActivityRepo
	Relationships repositories.RelationshipRepo
	Engagements   repositories.EngagementRepo
	Resources     repositories.ResourceRepo
	Progressions  repositories.ProgressionRepo
	Media         media.Resolver
	Scores        ScoreScheduler
}

// Composer builds the Following and For-You feeds for a requester.
type Composer struct {
	activities    repositories.ActivityRepo
	relationships repositories.RelationshipRepo
	engagements   repositories.EngagementRepo
	resources     repositories.ResourceRepo
	progressions  repositories.ProgressionRepo
	media         media.Resolver
	scores        ScoreScheduler
	cfg           Config
	log           *logger.Logger
	tracer        trace.Tracer
	now           func() time.Time
}

func NewComposer(deps Deps, cfg Config, baseLog *logger.Logger) *Composer {
	resolver := deps.Media
	if resolver == nil {
		resolver = media.NewPublicResolver("")
	}
	return &Composer{
		activities:    deps.Activities,
		relationships: deps.Relationships,
		engagements:   deps.Engagements,
		resources:     deps.Resources,
		progressions:  deps.Progressions,
		media:         resolver,
		scores:        deps.Scores,
		cfg:           cfg.withDefaults(),
		log:           baseLog.With("service", "FeedComposer"),
		tracer:        otel.Tracer("activity-engine/feed"),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

type listFunc func(dbc dbctx.Context, f repositories.FeedFilter) ([]*models.Activity, error)

// Following lists the requester's own activities and those of accepted followees, newest first.
func (c *Composer) Following(ctx context.Context, requesterID uint, page, pageSize int) (*Page, error) {
	return c.compose(ctx, "feed.Following", requesterID, page, pageSize, c.activities.ListFollowing)
}

// ForYou lists media-bearing activities the requester may see, hottest first.
func (c *Composer) ForYou(ctx context.Context, requesterID uint, page, pageSize int) (*Page, error) {
	return c.compose(ctx, "feed.ForYou", requesterID, page, pageSize, c.activities.ListForYou)
}

func (c *Composer) compose(ctx context.Context, name string, requesterID uint, page, pageSize int, list listFunc) (*Page, error) {
	ctx, span := c.tracer.Start(ctx, name, trace.WithAttributes(attribute.Int64("requester.id", int64(requesterID))))
	defer span.End()

	if requesterID == 0 {
		return nil, apperr.Validationf(name, "missing requester")
	}
	page, pageSize = c.normalizePage(page, pageSize)
	dbc := dbctx.Of(ctx)

	followees, err := c.relationships.FolloweeIDs(dbc, requesterID)
	if err != nil {
		return nil, c.fail(span, apperr.Unavailable(name, err))
	}
	blocked, err := c.relationships.BlockedIDs(dbc, requesterID)
	if err != nil {
		return nil, c.fail(span, apperr.Unavailable(name, err))
	}

	rows, err := list(dbc, repositories.FeedFilter{
		RequesterID: requesterID,
		FolloweeIDs: followees,
		BlockedIDs:  blocked,
		Offset:      (page - 1) * pageSize,
		Limit:       pageSize + 1,
	})
	if err != nil {
		return nil, c.fail(span, apperr.Unavailable(name, err))
	}
	hasMore := len(rows) > pageSize
	if hasMore {
		rows = rows[:pageSize]
	}

	c.refreshStale(rows)
	items := c.hydrate(ctx, requesterID, rows)
	span.SetAttributes(attribute.Int("feed.rows", len(rows)), attribute.Int("feed.items", len(items)))

	return &Page{Items: items, Page: page, PageSize: pageSize, HasMore: hasMore}, nil
}

func (c *Composer) normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = c.cfg.PageSize
	}
	if pageSize > c.cfg.MaxPageSize {
		pageSize = c.cfg.MaxPageSize
	}
	return page, pageSize
}

// refreshStale schedules a recompute for rows whose score was never computed or has aged past
// StaleAfter. The page is served with the stored score.
func (c *Composer) refreshStale(rows []*models.Activity) {
	if c.scores == nil {
		return
	}
	cutoff := c.now().Add(-c.cfg.StaleAfter)
	for _, a := range rows {
		if a.ScoredAt == nil || a.ScoredAt.Before(cutoff) {
			c.scores.Schedule(a.ID)
		}
	}
}

func (c *Composer) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
