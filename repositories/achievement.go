package repositories

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/snap-point/activity-engine/dbctx"
	"github.com/snap-point/activity-engine/logger"
	"github.com/snap-point/activity-engine/models"
)

type AchievementRepo interface {
	Unlock(dbc dbctx.Context, userID uint, achievementID string, at time.Time) (bool, error)
	ListByUser(dbc dbctx.Context, userID uint) ([]*models.UserAchievement, error)
}

type achievementRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAchievementRepo(db *gorm.DB, baseLog *logger.Logger) AchievementRepo {
	return &achievementRepo{
		db:  db,
		log: baseLog.With("repo", "AchievementRepo"),
	}
}

// Unlock inserts the achievement once. It reports true only for the call that created it.
func (r *achievementRepo) Unlock(dbc dbctx.Context, userID uint, achievementID string, at time.Time) (bool, error) {
	row := &models.UserAchievement{UserID: userID, AchievementID: achievementID, UnlockedAt: at}
	res := dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "achievement_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *achievementRepo) ListByUser(dbc dbctx.Context, userID uint) ([]*models.UserAchievement, error) {
	var out []*models.UserAchievement
	err := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("unlocked_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
