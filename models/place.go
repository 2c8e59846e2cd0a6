package models

import (
	"time"

	"gorm.io/gorm"
)

type Place struct {
	ID          uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string         `json:"name" gorm:"not null"`
	Description string         `json:"description" gorm:"type:text"`
	Categories  StringList     `json:"categories"`
	Address     string         `json:"address"`
	Latitude    float64        `json:"latitude" gorm:"type:decimal(10,8)"`
	Longitude   float64        `json:"longitude" gorm:"type:decimal(11,8)"`
	Rating      float64        `json:"rating" gorm:"not null;default:0;type:decimal(3,2)"`
	PlaceImage  string         `json:"placeImage"`
	IsVerified  bool           `json:"isVerified" gorm:"default:false"`
	AddedByID   *uint          `json:"addedById"`
	TotalVisits int            `json:"totalVisits" gorm:"default:0"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}
