package repositories

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/snap-point/activity-engine/apperr"
	"github.com/snap-point/activity-engine/dbctx"
	"github.com/snap-point/activity-engine/logger"
	"github.com/snap-point/activity-engine/models"
)

// FeedFilter carries the relationship sets a feed query is evaluated against.
type FeedFilter struct {
	RequesterID uint
	FolloweeIDs []uint
	BlockedIDs  []uint
	Offset      int
	Limit       int
}

type ActivityRepo interface {
	Create(dbc dbctx.Context, activity *models.Activity) error
	GetByID(dbc dbctx.Context, id uint) (*models.Activity, error)
	FindByResource(dbc dbctx.Context, kind models.ResourceKind, resourceID uint) ([]*models.Activity, error)
	IncrementCounter(dbc dbctx.Context, id uint, field models.EngagementField) (bool, error)
	DecrementCounter(dbc dbctx.Context, id uint, field models.EngagementField) (bool, error)
	UpdateScore(dbc dbctx.Context, id uint, score float64, scoredAt time.Time) error
	ListFollowing(dbc dbctx.Context, f FeedFilter) ([]*models.Activity, error)
	ListForYou(dbc dbctx.Context, f FeedFilter) ([]*models.Activity, error)
	ListStaleIDs(dbc dbctx.Context, createdAfter, scoredBefore time.Time, limit int) ([]uint, error)
	DeleteByIDs(dbc dbctx.Context, ids []uint) (int64, error)
}

type activityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityRepo(db *gorm.DB, baseLog *logger.Logger) ActivityRepo {
	return &activityRepo{
		db:  db,
		log: baseLog.With("repo", "ActivityRepo"),
	}
}

func (r *activityRepo) Create(dbc dbctx.Context, activity *models.Activity) error {
	if activity == nil {
		return apperr.Validationf("ActivityRepo.Create", "nil activity")
	}
	if err := dbc.DB(r.db).Create(activity).Error; err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

func (r *activityRepo) GetByID(dbc dbctx.Context, id uint) (*models.Activity, error) {
	var a models.Activity
	if err := dbc.DB(r.db).First(&a, id).Error; err != nil {
		return nil, notFoundOr("ActivityRepo.GetByID", err)
	}
	return &a, nil
}

func (r *activityRepo) FindByResource(dbc dbctx.Context, kind models.ResourceKind, resourceID uint) ([]*models.Activity, error) {
	var out []*models.Activity
	err := dbc.DB(r.db).
		Where("resource_kind = ? AND resource_id = ?", kind, resourceID).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func validField(field models.EngagementField) bool {
	switch field {
	case models.FieldReactions, models.FieldComments, models.FieldViews:
		return true
	default:
		return false
	}
}

// IncrementCounter adds one to a counter in a single UPDATE. It reports false when the
// activity does not exist.
func (r *activityRepo) IncrementCounter(dbc dbctx.Context, id uint, field models.EngagementField) (bool, error) {
	if !validField(field) {
		return false, apperr.Validationf("ActivityRepo.IncrementCounter", "unknown counter %q", field)
	}
	col := string(field)
	res := dbc.DB(r.db).Model(&models.Activity{}).
		Where("id = ?", id).
		UpdateColumn(col, gorm.Expr(col+" + ?", 1))
	if res.Error != nil {
		return false, fmt.Errorf("increment %s: %w", col, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// DecrementCounter subtracts one, never going below zero.
func (r *activityRepo) DecrementCounter(dbc dbctx.Context, id uint, field models.EngagementField) (bool, error) {
	if !validField(field) {
		return false, apperr.Validationf("ActivityRepo.DecrementCounter", "unknown counter %q", field)
	}
	col := string(field)
	res := dbc.DB(r.db).Model(&models.Activity{}).
		Where("id = ? AND "+col+" > 0", id).
		UpdateColumn(col, gorm.Expr(col+" - ?", 1))
	if res.Error != nil {
		return false, fmt.Errorf("decrement %s: %w", col, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *activityRepo) UpdateScore(dbc dbctx.Context, id uint, score float64, scoredAt time.Time) error {
	return dbc.DB(r.db).Model(&models.Activity{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"hotness_score": score,
			"scored_at":     scoredAt,
		}).Error
}

func (r *activityRepo) ListFollowing(dbc dbctx.Context, f FeedFilter) ([]*models.Activity, error) {
	actors := append([]uint{f.RequesterID}, f.FolloweeIDs...)
	q := dbc.DB(r.db).Model(&models.Activity{}).
		Where("actor_id IN ?", actors).
		Where("(visibility <> ? OR actor_id = ?)", models.VisibilityPrivate, f.RequesterID)
	// NOT IN with an empty list renders as NOT IN (NULL), which matches nothing.
	if len(f.BlockedIDs) > 0 {
		q = q.Where("actor_id NOT IN ?", f.BlockedIDs)
	}
	var out []*models.Activity
	err := q.Order("created_at DESC").Order("id DESC").
		Offset(f.Offset).
		Limit(f.Limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *activityRepo) ListForYou(dbc dbctx.Context, f FeedFilter) ([]*models.Activity, error) {
	q := dbc.DB(r.db).Model(&models.Activity{}).
		Where("has_media = ?", true).
		Where("visibility <> ?", models.VisibilityPrivate)
	if len(f.BlockedIDs) > 0 {
		q = q.Where("actor_id NOT IN ?", f.BlockedIDs)
	}
	if len(f.FolloweeIDs) > 0 {
		q = q.Where("(actor_private = ? OR actor_id = ? OR actor_id IN ?)", false, f.RequesterID, f.FolloweeIDs).
			Where("(visibility <> ? OR actor_id = ? OR actor_id IN ?)", models.VisibilityFollowers, f.RequesterID, f.FolloweeIDs)
	} else {
		q = q.Where("(actor_private = ? OR actor_id = ?)", false, f.RequesterID).
			Where("(visibility <> ? OR actor_id = ?)", models.VisibilityFollowers, f.RequesterID)
	}
	var out []*models.Activity
	err := q.Order("hotness_score DESC").Order("created_at DESC").Order("id DESC").
		Offset(f.Offset).
		Limit(f.Limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListStaleIDs returns activities created after createdAfter whose score was never computed
// or was computed before scoredBefore.
func (r *activityRepo) ListStaleIDs(dbc dbctx.Context, createdAfter, scoredBefore time.Time, limit int) ([]uint, error) {
	var ids []uint
	err := dbc.DB(r.db).Model(&models.Activity{}).
		Where("created_at > ?", createdAfter).
		Where("(scored_at IS NULL OR scored_at < ?)", scoredBefore).
		Order("created_at DESC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *activityRepo) DeleteByIDs(dbc dbctx.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := dbc.DB(r.db).Where("id IN ?", ids).Delete(&models.Activity{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete activities: %w", res.Error)
	}
	return res.RowsAffected, nil
}
