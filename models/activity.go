package models

import (
	"time"
)

// Activity is one user action eligible to appear in feeds.
//
// Visibility and ActorPrivate are snapshots taken when the activity is created and are
// never rewritten. HotnessScore is derived from the counters and the age of the row.
// An actor records a given action on a resource at most once; leveled_up repeats per level.
type Activity struct {
	ID             uint         `json:"id" gorm:"primaryKey;autoIncrement"`
	ActorID        uint         `json:"actorId" gorm:"not null;index:idx_activity_actor_created,priority:1;uniqueIndex:uniq_activity_action,priority:1,where:action_kind <> 'leveled_up'"`
	ActionKind     ActionKind   `json:"actionKind" gorm:"not null;type:varchar(32);uniqueIndex:uniq_activity_action,priority:2"`
	ResourceKind   ResourceKind `json:"resourceKind" gorm:"not null;type:varchar(32);index:idx_activity_resource,priority:1;uniqueIndex:uniq_activity_action,priority:3"`
	ResourceID     uint         `json:"resourceId" gorm:"not null;index:idx_activity_resource,priority:2;uniqueIndex:uniq_activity_action,priority:4"`
	PlaceID        *uint        `json:"placeId" gorm:"index"`
	Visibility     Visibility   `json:"visibility" gorm:"not null;type:varchar(16);default:'public'"`
	ActorPrivate   bool         `json:"actorPrivate" gorm:"not null;default:false"`
	HasMedia       bool         `json:"hasMedia" gorm:"not null;default:false;index"`
	ReactionsCount int64        `json:"reactionsCount" gorm:"not null;default:0"`
	CommentsCount  int64        `json:"commentsCount" gorm:"not null;default:0"`
	ViewsCount     int64        `json:"viewsCount" gorm:"not null;default:0"`
	HotnessScore   float64      `json:"hotnessScore" gorm:"not null;default:0;index"`
	ScoredAt       *time.Time   `json:"scoredAt"`
	CreatedAt      time.Time    `json:"createdAt" gorm:"index:idx_activity_actor_created,priority:2"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// Engagement returns the counters that feed the hotness scorer.
func (a *Activity) Engagement() Engagement {
	return Engagement{
		Reactions: a.ReactionsCount,
		Comments:  a.CommentsCount,
		Views:     a.ViewsCount,
	}
}

// Engagement holds an activity's engagement counters.
type Engagement struct {
	Reactions int64 `json:"reactions"`
	Comments  int64 `json:"comments"`
	Views     int64 `json:"views"`
}

// EngagementField names a counter column on the activities table.
type EngagementField string

const (
	FieldReactions EngagementField = "reactions_count"
	FieldComments  EngagementField = "comments_count"
	FieldViews     EngagementField = "views_count"
)
