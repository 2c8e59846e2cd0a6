package repositories

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/snap-point/activity-engine/dbctx"
	"github.com/snap-point/activity-engine/logger"
	"github.com/snap-point/activity-engine/models"
)

// UserXP is one row of a ledger aggregation.
type UserXP struct {
	UserID uint  `json:"userId"`
	XP     int64 `json:"xp"`
}

type LedgerRepo interface {
	FindByTarget(dbc dbctx.Context, userID uint, kind models.RewardKind, targetID uint) (*models.RewardLedgerEntry, error)
	UsedSlots(dbc dbctx.Context, userID uint, kind models.RewardKind, scopeKey string) ([]int, error)
	Insert(dbc dbctx.Context, entry *models.RewardLedgerEntry) error
	CountByKind(dbc dbctx.Context, userID uint, kind models.RewardKind) (int64, error)
	CountDistinctPlaces(dbc dbctx.Context, userID uint, kind models.RewardKind) (int64, error)
	CreatedTimes(dbc dbctx.Context, userID uint, kind models.RewardKind) ([]time.Time, error)
	ListForCascade(dbc dbctx.Context, kind models.RewardKind, targetID uint, parentActivityIDs []uint) ([]*models.RewardLedgerEntry, error)
	DeleteByIDs(dbc dbctx.Context, ids []uint) (int64, error)
	SumSince(dbc dbctx.Context, since time.Time, limit int) ([]UserXP, error)
}

type ledgerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLedgerRepo(db *gorm.DB, baseLog *logger.Logger) LedgerRepo {
	return &ledgerRepo{
		db:  db,
		log: baseLog.With("repo", "LedgerRepo"),
	}
}

func (r *ledgerRepo) FindByTarget(dbc dbctx.Context, userID uint, kind models.RewardKind, targetID uint) (*models.RewardLedgerEntry, error) {
	var entry models.RewardLedgerEntry
	err := dbc.DB(r.db).
		Where("user_id = ? AND action_kind = ? AND target_id = ?", userID, kind, targetID).
		Limit(1).
		Find(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.ID == 0 {
		return nil, nil
	}
	return &entry, nil
}

func (r *ledgerRepo) UsedSlots(dbc dbctx.Context, userID uint, kind models.RewardKind, scopeKey string) ([]int, error) {
	var slots []int
	err := dbc.DB(r.db).Model(&models.RewardLedgerEntry{}).
		Where("user_id = ? AND action_kind = ? AND scope_key = ?", userID, kind, scopeKey).
		Order("slot ASC").
		Pluck("slot", &slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

// Insert returns the driver error untouched so callers can detect unique violations.
func (r *ledgerRepo) Insert(dbc dbctx.Context, entry *models.RewardLedgerEntry) error {
	return dbc.DB(r.db).Create(entry).Error
}

func (r *ledgerRepo) CountByKind(dbc dbctx.Context, userID uint, kind models.RewardKind) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&models.RewardLedgerEntry{}).
		Where("user_id = ? AND action_kind = ?", userID, kind).
		Count(&n).Error
	return n, err
}

func (r *ledgerRepo) CountDistinctPlaces(dbc dbctx.Context, userID uint, kind models.RewardKind) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&models.RewardLedgerEntry{}).
		Where("user_id = ? AND action_kind = ? AND place_id IS NOT NULL", userID, kind).
		Distinct("place_id").
		Count(&n).Error
	return n, err
}

func (r *ledgerRepo) CreatedTimes(dbc dbctx.Context, userID uint, kind models.RewardKind) ([]time.Time, error) {
	var entries []models.RewardLedgerEntry
	err := dbc.DB(r.db).
		Select("id", "created_at").
		Where("user_id = ? AND action_kind = ?", userID, kind).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.CreatedAt)
	}
	return out, nil
}

// ListForCascade returns entries of kind that target targetID, plus engagement entries whose
// parent activity is in parentActivityIDs.
func (r *ledgerRepo) ListForCascade(dbc dbctx.Context, kind models.RewardKind, targetID uint, parentActivityIDs []uint) ([]*models.RewardLedgerEntry, error) {
	q := dbc.DB(r.db).Model(&models.RewardLedgerEntry{})
	switch {
	case kind != "" && len(parentActivityIDs) > 0:
		q = q.Where("(action_kind = ? AND target_id = ?) OR parent_activity_id IN ?", kind, targetID, parentActivityIDs)
	case kind != "":
		q = q.Where("action_kind = ? AND target_id = ?", kind, targetID)
	case len(parentActivityIDs) > 0:
		q = q.Where("parent_activity_id IN ?", parentActivityIDs)
	default:
		return nil, nil
	}
	var out []*models.RewardLedgerEntry
	if err := q.Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ledgerRepo) DeleteByIDs(dbc dbctx.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := dbc.DB(r.db).Where("id IN ?", ids).Delete(&models.RewardLedgerEntry{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete ledger entries: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *ledgerRepo) SumSince(dbc dbctx.Context, since time.Time, limit int) ([]UserXP, error) {
	var out []UserXP
	err := dbc.DB(r.db).Model(&models.RewardLedgerEntry{}).
		Select("user_id, SUM(amount) AS xp").
		Where("created_at >= ?", since).
		Group("user_id").
		Order("xp DESC").
		Order("user_id ASC").
		Limit(limit).
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
