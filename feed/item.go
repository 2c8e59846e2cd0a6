package feed

import (
	"time"

	"github.com/snap-point/activity-engine/models"
)

type ActorBrief struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
	IsVerified  bool   `json:"isVerified"`
	XP          int64  `json:"xp"`
	Level       int    `json:"level"`
}

type ResourceBrief struct {
	Kind       models.ResourceKind `json:"kind"`
	ID         uint                `json:"id"`
	Title      string              `json:"title,omitempty"`
	Body       string              `json:"body,omitempty"`
	Rating     int                 `json:"rating,omitempty"`
	Recommend  bool                `json:"recommend,omitempty"`
	Visibility models.Visibility   `json:"visibility"`
	MediaURLs  []string            `json:"mediaUrls"`
}

type PlaceBrief struct {
	ID      uint    `json:"id"`
	Name    string  `json:"name"`
	Address string  `json:"address,omitempty"`
	Image   string  `json:"image,omitempty"`
	Rating  float64 `json:"rating"`
}

type CommentBrief struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"userId"`
	Username  string    `json:"username"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// Item is one hydrated feed entry.
type Item struct {
	ID             uint                          `json:"id"`
	ActionKind     models.ActionKind             `json:"actionKind"`
	CreatedAt      time.Time                     `json:"createdAt"`
	HotnessScore   float64                       `json:"hotnessScore"`
	Actor          ActorBrief                    `json:"actor"`
	Resource       ResourceBrief                 `json:"resource"`
	Place          *PlaceBrief                   `json:"place,omitempty"`
	Engagement     models.Engagement             `json:"engagement"`
	ReactionCounts map[models.ReactionType]int64 `json:"reactionCounts"`
	MyReaction     *models.ReactionType          `json:"myReaction,omitempty"`
	TopComments    []CommentBrief                `json:"topComments"`
	Anonymized     bool                          `json:"anonymized"`
}

type Page struct {
	Items    []*Item `json:"items"`
	Page     int     `json:"page"`
	PageSize int     `json:"pageSize"`
	HasMore  bool    `json:"hasMore"`
}
