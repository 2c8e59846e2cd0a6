package repositories

import (
	"gorm.io/gorm"

	"github.com/snap-point/activity-engine/dbctx"
	"github.com/snap-point/activity-engine/logger"
	"github.com/snap-point/activity-engine/models"
)

// RelationshipRepo answers the follow and block questions the privacy filters need.
type RelationshipRepo interface {
	IsFollowing(dbc dbctx.Context, followerID, followingID uint) (bool, error)
	FolloweeIDs(dbc dbctx.Context, userID uint) ([]uint, error)
	FollowerIDs(dbc dbctx.Context, userID uint) ([]uint, error)
	BlockedIDs(dbc dbctx.Context, userID uint) ([]uint, error)
	IsBlocked(dbc dbctx.Context, a, b uint) (bool, error)
}

type relationshipRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRelationshipRepo(db *gorm.DB, baseLog *logger.Logger) RelationshipRepo {
	return &relationshipRepo{
		db:  db,
		log: baseLog.With("repo", "RelationshipRepo"),
	}
}

func (r *relationshipRepo) IsFollowing(dbc dbctx.Context, followerID, followingID uint) (bool, error) {
	var n int64
	err := dbc.DB(r.db).Model(&models.Follow{}).
		Where("follower_user_id = ? AND following_user_id = ? AND status = ?", followerID, followingID, models.FollowAccepted).
		Count(&n).Error
	return n > 0, err
}

func (r *relationshipRepo) FolloweeIDs(dbc dbctx.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := dbc.DB(r.db).Model(&models.Follow{}).
		Where("follower_user_id = ? AND status = ?", userID, models.FollowAccepted).
		Distinct().
		Pluck("following_user_id", &ids).Error
	return ids, err
}

func (r *relationshipRepo) FollowerIDs(dbc dbctx.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := dbc.DB(r.db).Model(&models.Follow{}).
		Where("following_user_id = ? AND status = ?", userID, models.FollowAccepted).
		Distinct().
		Pluck("follower_user_id", &ids).Error
	return ids, err
}

// BlockedIDs returns every user that userID blocked or was blocked by.
func (r *relationshipRepo) BlockedIDs(dbc dbctx.Context, userID uint) ([]uint, error) {
	var blocked, blockers []uint
	db := dbc.DB(r.db)
	if err := db.Model(&models.Block{}).Where("blocker_user_id = ?", userID).Pluck("blocked_user_id", &blocked).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Block{}).Where("blocked_user_id = ?", userID).Pluck("blocker_user_id", &blockers).Error; err != nil {
		return nil, err
	}
	seen := make(map[uint]struct{}, len(blocked)+len(blockers))
	out := make([]uint, 0, len(blocked)+len(blockers))
	for _, id := range append(blocked, blockers...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

func (r *relationshipRepo) IsBlocked(dbc dbctx.Context, a, b uint) (bool, error) {
	var n int64
	err := dbc.DB(r.db).Model(&models.Block{}).
		Where("(blocker_user_id = ? AND blocked_user_id = ?) OR (blocker_user_id = ? AND blocked_user_id = ?)", a, b, b, a).
		Count(&n).Error
	return n > 0, err
}
