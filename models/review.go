package models

import (
	"time"

	"gorm.io/gorm"
)

// Review is an originating resource owned by the surrounding application. The engine only
// reads it and writes back LinkedActivityID.
type Review struct {
	ID               uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID           uint           `json:"userId" gorm:"not null;index"`
	PlaceID          uint           `json:"placeId" gorm:"not null;index"`
	Content          string         `json:"content" gorm:"type:text"`
	Rating           int            `json:"rating" gorm:"not null;default:0"`
	Recommend        bool           `json:"recommend" gorm:"default:false"`
	Media            StringList     `json:"media"`
	Visibility       Visibility     `json:"visibility" gorm:"not null;type:varchar(16);default:'public'"`
	LinkedActivityID *uint          `json:"linkedActivityId"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`
}

type CheckIn struct {
	ID               uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID           uint           `json:"userId" gorm:"not null;index"`
	PlaceID          uint           `json:"placeId" gorm:"not null;index"`
	Caption          string         `json:"caption" gorm:"type:text"`
	Media            StringList     `json:"media"`
	Visibility       Visibility     `json:"visibility" gorm:"not null;type:varchar(16);default:'public'"`
	LinkedActivityID *uint          `json:"linkedActivityId"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`
}

// Homemade is a dish cooked at home; it has no place.
type Homemade struct {
	ID               uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID           uint           `json:"userId" gorm:"not null;index"`
	Title            string         `json:"title"`
	Content          string         `json:"content" gorm:"type:text"`
	Media            StringList     `json:"media"`
	Visibility       Visibility     `json:"visibility" gorm:"not null;type:varchar(16);default:'public'"`
	LinkedActivityID *uint          `json:"linkedActivityId"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`
}
