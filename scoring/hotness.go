package scoring

import (
	"math"

	"github.com/snap-point/activity-engine/models"
	"github.com/snap-point/activity-engine/types"
)

// Score ranks an activity from its engagement counters and its age in hours. Scores are
// comparable only between activities scored with the same params.
func Score(e models.Engagement, ageHours float64, p types.HotnessParams, multiplier float64) float64 {
	if ageHours < 0 || math.IsNaN(ageHours) {
		ageHours = 0
	}
	if multiplier <= 0 || math.IsNaN(multiplier) || math.IsInf(multiplier, 0) {
		multiplier = 1
	}
	age := math.Max(1, ageHours)

	timeDecay := math.Pow(1/age, p.DecayExponent)
	engagement := (float64(e.Reactions)*p.ReactionWeight +
		float64(e.Comments)*p.CommentWeight +
		float64(e.Views)*p.ViewWeight) * timeDecay
	newPostBoost := p.InitialBoost / age

	return (engagement + newPostBoost + p.FreshnessBoost(ageHours)) * multiplier
}
