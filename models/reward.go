package models

import (
	"time"

	"gorm.io/datatypes"
)

// RewardLedgerEntry is an immutable record of one xp grant.
//
// Two unique indexes close the check-then-append race: one per (user, kind, target) and
// one per (user, kind, scope, slot) where slot ranges over [0, cap) for the scope.
type RewardLedgerEntry struct {
	ID               uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID           uint           `json:"userId" gorm:"not null;uniqueIndex:uniq_reward_target,priority:1;uniqueIndex:uniq_reward_slot,priority:1"`
	ActionKind       RewardKind     `json:"actionKind" gorm:"not null;type:varchar(32);uniqueIndex:uniq_reward_target,priority:2;uniqueIndex:uniq_reward_slot,priority:2"`
	TargetID         uint           `json:"targetId" gorm:"not null;uniqueIndex:uniq_reward_target,priority:3"`
	ParentActivityID *uint          `json:"parentActivityId" gorm:"index"`
	PlaceID          *uint          `json:"placeId" gorm:"index"`
	ScopeKey         string         `json:"scopeKey" gorm:"not null;type:varchar(64);uniqueIndex:uniq_reward_slot,priority:3"`
	Slot             int            `json:"slot" gorm:"not null;uniqueIndex:uniq_reward_slot,priority:4"`
	Amount           int64          `json:"amount" gorm:"not null"`
	Metadata         datatypes.JSON `json:"metadata"`
	CreatedAt        time.Time      `json:"createdAt" gorm:"index"`
}

// UserProgression is a user's xp and level. Only the progression ledger writes it.
type UserProgression struct {
	UserID    uint      `json:"userId" gorm:"primaryKey;autoIncrement:false"`
	XP        int64     `json:"xp" gorm:"not null;default:0;index"`
	Level     int       `json:"level" gorm:"not null;default:1"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type UserAchievement struct {
	ID            uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID        uint      `json:"userId" gorm:"not null;uniqueIndex:uniq_user_achievement,priority:1"`
	AchievementID string    `json:"achievementId" gorm:"not null;type:varchar(64);uniqueIndex:uniq_user_achievement,priority:2"`
	UnlockedAt    time.Time `json:"unlockedAt"`
}

// RankingCalibration scales one user's hotness scores. A missing row means 1.
type RankingCalibration struct {
	UserID     uint      `json:"userId" gorm:"primaryKey;autoIncrement:false"`
	Multiplier float64   `json:"multiplier" gorm:"not null;default:1"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
