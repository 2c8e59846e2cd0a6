package feed

import (
	"math"

	"github.com/snap-point/activity-engine/models"
)

const (
	anonymousName     = "Anonymous"
	anonymousUsername = "anonymous"
)

// shouldAnonymize reports whether the actor must be hidden from the requester. The current
// visibility of the resource decides, not the snapshot on the activity.
func shouldAnonymize(requesterID, actorID uint, current models.Visibility) bool {
	return requesterID != actorID && current == models.VisibilityPrivate
}

func anonymize(item *Item) {
	item.Actor = ActorBrief{
		ID:          0,
		Username:    anonymousUsername,
		DisplayName: anonymousName,
		Avatar:      "",
		XP:          roundTo(item.Actor.XP, 100),
		Level:       int(roundTo(int64(item.Actor.Level), 10)),
	}
	item.Anonymized = true
}

func roundTo(v, step int64) int64 {
	return int64(math.Round(float64(v)/float64(step))) * step
}
