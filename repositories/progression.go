package repositories

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/snap-point/activity-engine/dbctx"
	"github.com/snap-point/activity-engine/logger"
	"github.com/snap-point/activity-engine/models"
)

type ProgressionRepo interface {
	Ensure(dbc dbctx.Context, userID uint) error
	Get(dbc dbctx.Context, userID uint) (*models.UserProgression, error)
	GetMany(dbc dbctx.Context, userIDs []uint) (map[uint]*models.UserProgression, error)
	AddXP(dbc dbctx.Context, userID uint, delta int64) error
	SetLevel(dbc dbctx.Context, userID uint, level int) error
	TopByXP(dbc dbctx.Context, limit int) ([]*models.UserProgression, error)
}

type progressionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProgressionRepo(db *gorm.DB, baseLog *logger.Logger) ProgressionRepo {
	return &progressionRepo{
		db:  db,
		log: baseLog.With("repo", "ProgressionRepo"),
	}
}

// Ensure creates the progression row at level 1 if it does not exist yet.
func (r *progressionRepo) Ensure(dbc dbctx.Context, userID uint) error {
	row := &models.UserProgression{UserID: userID, XP: 0, Level: 1}
	err := dbc.DB(r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(row).Error
	if err != nil {
		return fmt.Errorf("ensure progression: %w", err)
	}
	return nil
}

func (r *progressionRepo) Get(dbc dbctx.Context, userID uint) (*models.UserProgression, error) {
	var p models.UserProgression
	err := dbc.DB(r.db).Where("user_id = ?", userID).Limit(1).Find(&p).Error
	if err != nil {
		return nil, err
	}
	if p.UserID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *progressionRepo) GetMany(dbc dbctx.Context, userIDs []uint) (map[uint]*models.UserProgression, error) {
	out := make(map[uint]*models.UserProgression, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []*models.UserProgression
	if err := dbc.DB(r.db).Where("user_id IN ?", userIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.UserID] = row
	}
	return out, nil
}

// AddXP applies delta in one UPDATE, clamping the result at zero.
func (r *progressionRepo) AddXP(dbc dbctx.Context, userID uint, delta int64) error {
	res := dbc.DB(r.db).Model(&models.UserProgression{}).
		Where("user_id = ?", userID).
		UpdateColumn("xp", gorm.Expr("CASE WHEN xp + ? < 0 THEN 0 ELSE xp + ? END", delta, delta))
	if res.Error != nil {
		return fmt.Errorf("add xp: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("add xp: no progression row for user %d", userID)
	}
	return nil
}

func (r *progressionRepo) SetLevel(dbc dbctx.Context, userID uint, level int) error {
	return dbc.DB(r.db).Model(&models.UserProgression{}).
		Where("user_id = ?", userID).
		UpdateColumn("level", level).Error
}

func (r *progressionRepo) TopByXP(dbc dbctx.Context, limit int) ([]*models.UserProgression, error) {
	var out []*models.UserProgression
	err := dbc.DB(r.db).
		Where("xp > 0").
		Order("xp DESC").
		Order("user_id ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
