package repositories

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/snap-point/activity-engine/dbctx"
	"github.com/snap-point/activity-engine/logger"
	"github.com/snap-point/activity-engine/models"
)

type CalibrationRepo interface {
	Multiplier(dbc dbctx.Context, userID uint) (float64, error)
	Set(dbc dbctx.Context, userID uint, multiplier float64) error
}

type calibrationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCalibrationRepo(db *gorm.DB, baseLog *logger.Logger) CalibrationRepo {
	return &calibrationRepo{
		db:  db,
		log: baseLog.With("repo", "CalibrationRepo"),
	}
}

// Multiplier returns 1 for users without a calibration row.
func (r *calibrationRepo) Multiplier(dbc dbctx.Context, userID uint) (float64, error) {
	var row models.RankingCalibration
	err := dbc.DB(r.db).Where("user_id = ?", userID).Limit(1).Find(&row).Error
	if err != nil {
		return 1, err
	}
	if row.UserID == 0 {
		return 1, nil
	}
	return row.Multiplier, nil
}

func (r *calibrationRepo) Set(dbc dbctx.Context, userID uint, multiplier float64) error {
	row := &models.RankingCalibration{UserID: userID, Multiplier: multiplier}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"multiplier", "updated_at"}),
		}).
		Create(row).Error
}
