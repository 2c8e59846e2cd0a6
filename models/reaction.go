package models

import (
	"time"
)

type Reaction struct {
	ID         uint         `json:"id" gorm:"primaryKey;autoIncrement"`
	ActivityID uint         `json:"activityId" gorm:"not null;uniqueIndex:uniq_reaction_activity_user,priority:1"`
	UserID     uint         `json:"userId" gorm:"not null;uniqueIndex:uniq_reaction_activity_user,priority:2"`
	Type       ReactionType `json:"type" gorm:"not null;type:varchar(16)"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}
