package models

import (
	"gorm.io/gorm"
)

const (
	FollowPending  = "pending"
	FollowAccepted = "accepted"
)

type Follow struct {
	gorm.Model
	FollowerUserID  uint   `gorm:"not null;index:idx_follow_pair,priority:1"`
	FollowingUserID uint   `gorm:"not null;index:idx_follow_pair,priority:2"`
	Status          string `gorm:"not null;default:'pending'"` // pending, accepted
}
