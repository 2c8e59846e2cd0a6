package models

import (
	"time"
)

type Comment struct {
	ID         uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	ActivityID uint      `json:"activityId" gorm:"not null;index:idx_comment_activity_created,priority:1"`
	UserID     uint      `json:"userId" gorm:"not null;index"`
	Body       string    `json:"body" gorm:"type:text;not null"`
	CreatedAt  time.Time `json:"createdAt" gorm:"index:idx_comment_activity_created,priority:2"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
