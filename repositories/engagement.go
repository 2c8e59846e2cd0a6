package repositories

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/snap-point/activity-engine/dbctx"
	"github.com/snap-point/activity-engine/logger"
	"github.com/snap-point/activity-engine/models"
)

type EngagementRepo interface {
	FindReaction(dbc dbctx.Context, activityID, userID uint) (*models.Reaction, error)
	GetReaction(dbc dbctx.Context, id uint) (*models.Reaction, error)
	CreateReaction(dbc dbctx.Context, reaction *models.Reaction) error
	UpdateReactionType(dbc dbctx.Context, id uint, t models.ReactionType) error
	DeleteReaction(dbc dbctx.Context, id uint) (bool, error)
	ReactionCounts(dbc dbctx.Context, activityID uint) (map[models.ReactionType]int64, error)

	CreateComment(dbc dbctx.Context, comment *models.Comment) error
	GetComment(dbc dbctx.Context, id uint) (*models.Comment, error)
	DeleteComment(dbc dbctx.Context, id uint) (bool, error)
	RecentComments(dbc dbctx.Context, activityID uint, limit int) ([]*models.Comment, error)

	DeleteByActivityIDs(dbc dbctx.Context, activityIDs []uint) error
}

type engagementRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEngagementRepo(db *gorm.DB, baseLog *logger.Logger) EngagementRepo {
	return &engagementRepo{
		db:  db,
		log: baseLog.With("repo", "EngagementRepo"),
	}
}

func (r *engagementRepo) FindReaction(dbc dbctx.Context, activityID, userID uint) (*models.Reaction, error) {
	var reaction models.Reaction
	err := dbc.DB(r.db).
		Where("activity_id = ? AND user_id = ?", activityID, userID).
		Limit(1).
		Find(&reaction).Error
	if err != nil {
		return nil, err
	}
	if reaction.ID == 0 {
		return nil, nil
	}
	return &reaction, nil
}

func (r *engagementRepo) GetReaction(dbc dbctx.Context, id uint) (*models.Reaction, error) {
	var reaction models.Reaction
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&reaction).Error; err != nil {
		return nil, err
	}
	if reaction.ID == 0 {
		return nil, nil
	}
	return &reaction, nil
}

func (r *engagementRepo) CreateReaction(dbc dbctx.Context, reaction *models.Reaction) error {
	return dbc.DB(r.db).Create(reaction).Error
}

func (r *engagementRepo) UpdateReactionType(dbc dbctx.Context, id uint, t models.ReactionType) error {
	return dbc.DB(r.db).Model(&models.Reaction{}).Where("id = ?", id).Update("type", t).Error
}

func (r *engagementRepo) DeleteReaction(dbc dbctx.Context, id uint) (bool, error) {
	res := dbc.DB(r.db).Where("id = ?", id).Delete(&models.Reaction{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *engagementRepo) ReactionCounts(dbc dbctx.Context, activityID uint) (map[models.ReactionType]int64, error) {
	var rows []struct {
		Type  models.ReactionType
		Count int64
	}
	err := dbc.DB(r.db).Model(&models.Reaction{}).
		Select("type, COUNT(*) AS count").
		Where("activity_id = ?", activityID).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[models.ReactionType]int64, len(rows))
	for _, row := range rows {
		out[row.Type] = row.Count
	}
	return out, nil
}

func (r *engagementRepo) CreateComment(dbc dbctx.Context, comment *models.Comment) error {
	return dbc.DB(r.db).Create(comment).Error
}

func (r *engagementRepo) GetComment(dbc dbctx.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&comment).Error; err != nil {
		return nil, err
	}
	if comment.ID == 0 {
		return nil, nil
	}
	return &comment, nil
}

func (r *engagementRepo) DeleteComment(dbc dbctx.Context, id uint) (bool, error) {
	res := dbc.DB(r.db).Where("id = ?", id).Delete(&models.Comment{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *engagementRepo) RecentComments(dbc dbctx.Context, activityID uint, limit int) ([]*models.Comment, error) {
	var out []*models.Comment
	err := dbc.DB(r.db).
		Where("activity_id = ?", activityID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *engagementRepo) DeleteByActivityIDs(dbc dbctx.Context, activityIDs []uint) error {
	if len(activityIDs) == 0 {
		return nil
	}
	db := dbc.DB(r.db)
	if err := db.Where("activity_id IN ?", activityIDs).Delete(&models.Reaction{}).Error; err != nil {
		return fmt.Errorf("delete reactions: %w", err)
	}
	if err := db.Where("activity_id IN ?", activityIDs).Delete(&models.Comment{}).Error; err != nil {
		return fmt.Errorf("delete comments: %w", err)
	}
	return nil
}
