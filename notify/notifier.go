package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventReactionReceived    EventType = "reaction_received"
	EventCommentReceived     EventType = "comment_received"
	EventRewardGranted       EventType = "reward_granted"
	EventLevelUp             EventType = "level_up"
	EventAchievementUnlocked EventType = "achievement_unlocked"
)

type Notification struct {
	ID           string                 `json:"id"`
	Type         EventType              `json:"type"`
	RecipientIDs []uint                 `json:"recipientIds"`
	ActorID      uint                   `json:"actorId,omitempty"`
	ActivityID   *uint                  `json:"activityId,omitempty"`
	Data         map[string]interface{} `json:"data,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
}

// New stamps a notification with a fresh id and the current time.
func New(t EventType, recipients []uint, actorID uint, data map[string]interface{}) Notification {
	return Notification{
		ID:           uuid.NewString(),
		Type:         t,
		RecipientIDs: recipients,
		ActorID:      actorID,
		Data:         data,
		CreatedAt:    time.Now().UTC(),
	}
}

// Notifier delivers notifications to whatever transport the surrounding app runs.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Notification) error { return nil }
