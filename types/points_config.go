package types

import (
	"github.com/snap-point/activity-engine/models"
)

const (
	REVIEW_POINTS        = 10
	REVIEW_MEDIA_BONUS   = 5
	CHECKIN_POINTS       = 5
	CHECKIN_MEDIA_BONUS  = 2
	REACTION_POINTS      = 1
	COMMENT_POINTS       = 2
	HOMEMADE_POINTS      = 8
	HOMEMADE_MEDIA_BONUS = 4
	ADD_PLACE_POINTS     = 15
)

const (
	DEFAULT_REVIEWS_PER_PLACE  = 5
	DEFAULT_CHECKINS_PER_PLACE = 5
	DEFAULT_HOMEMADE_PER_DAY   = 3
)

type RewardAmount struct {
	Base       int64 `json:"base"`
	MediaBonus int64 `json:"mediaBonus"`
}

// Total is the xp granted for one rewarded action.
func (a RewardAmount) Total(hasMedia bool) int64 {
	if hasMedia {
		return a.Base + a.MediaBonus
	}
	return a.Base
}

type PointsConfig struct {
	Amounts map[models.RewardKind]RewardAmount
}

func GetPointsConfig() PointsConfig {
	return PointsConfig{
		Amounts: map[models.RewardKind]RewardAmount{
			models.RewardReview:   {Base: REVIEW_POINTS, MediaBonus: REVIEW_MEDIA_BONUS},
			models.RewardCheckIn:  {Base: CHECKIN_POINTS, MediaBonus: CHECKIN_MEDIA_BONUS},
			models.RewardReaction: {Base: REACTION_POINTS},
			models.RewardComment:  {Base: COMMENT_POINTS},
			models.RewardHomemade: {Base: HOMEMADE_POINTS, MediaBonus: HOMEMADE_MEDIA_BONUS},
			models.RewardAddPlace: {Base: ADD_PLACE_POINTS},
		},
	}
}

// RewardAmountFor returns the xp for a reward kind, or 0 for kinds that earn nothing.
func RewardAmountFor(kind models.RewardKind, hasMedia bool) int64 {
	amount, ok := GetPointsConfig().Amounts[kind]
	if !ok {
		return 0
	}
	return amount.Total(hasMedia)
}

// LevelThresholds[i] is the xp needed to reach level i+1. The table must never decrease.
var LevelThresholds = []int64{
	0, 100, 250, 500, 1000,
	2000, 3500, 5500, 8000, 11000,
	15000, 20000, 26000, 33000, 41000,
	50000, 60000, 72000, 86000, 100000,
}

func MaxLevel() int {
	return len(LevelThresholds)
}

// LevelFor maps xp to a level. Negative xp counts as zero.
func LevelFor(xp int64) int {
	if xp < 0 {
		xp = 0
	}
	level := 0
	for _, threshold := range LevelThresholds {
		if xp < threshold {
			break
		}
		level++
	}
	return level
}
