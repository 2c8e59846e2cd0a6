package progression

import (
	"github.com/snap-point/activity-engine/dbctx"
	"github.com/snap-point/activity-engine/models"
	"github.com/snap-point/activity-engine/repositories"
)

// RuleInput is what an achievement rule may inspect.
type RuleInput struct {
	DBC    dbctx.Context
	UserID uint
	Level  int
	Ledger repositories.LedgerRepo
}

// AchievementRule unlocks AchievementID once Satisfied holds. Rules with a Trigger are
// evaluated after rewards of that kind; rules without one after a level-up.
type AchievementRule struct {
	AchievementID string
	Title         string
	Trigger       models.RewardKind
	Satisfied     func(in RuleInput) (bool, error)
}

func countAtLeast(kind models.RewardKind, n int64) func(RuleInput) (bool, error) {
	return func(in RuleInput) (bool, error) {
		got, err := in.Ledger.CountByKind(in.DBC, in.UserID, kind)
		return got >= n, err
	}
}

func levelAtLeast(n int) func(RuleInput) (bool, error) {
	return func(in RuleInput) (bool, error) {
		return in.Level >= n, nil
	}
}

const earlyBirdHour = 8

func earlyBird(n int) func(RuleInput) (bool, error) {
	return func(in RuleInput) (bool, error) {
		times, err := in.Ledger.CreatedTimes(in.DBC, in.UserID, models.RewardReview)
		if err != nil {
			return false, err
		}
		early := 0
		for _, t := range times {
			if t.UTC().Hour() < earlyBirdHour {
				early++
			}
		}
		return early >= n, nil
	}
}

func distinctPlaces(kind models.RewardKind, n int64) func(RuleInput) (bool, error) {
	return func(in RuleInput) (bool, error) {
		got, err := in.Ledger.CountDistinctPlaces(in.DBC, in.UserID, kind)
		return got >= n, err
	}
}

func DefaultAchievementRules() []AchievementRule {
	return []AchievementRule{
		{AchievementID: "first-review", Title: "First Review", Trigger: models.RewardReview, Satisfied: countAtLeast(models.RewardReview, 1)},
		{AchievementID: "reviewer-10", Title: "Critic", Trigger: models.RewardReview, Satisfied: countAtLeast(models.RewardReview, 10)},
		{AchievementID: "reviewer-50", Title: "Seasoned Critic", Trigger: models.RewardReview, Satisfied: countAtLeast(models.RewardReview, 50)},
		{AchievementID: "early-bird", Title: "Early Bird", Trigger: models.RewardReview, Satisfied: earlyBird(5)},
		{AchievementID: "explorer-10", Title: "Explorer", Trigger: models.RewardCheckIn, Satisfied: distinctPlaces(models.RewardCheckIn, 10)},
		{AchievementID: "homemade-chef", Title: "Homemade Chef", Trigger: models.RewardHomemade, Satisfied: countAtLeast(models.RewardHomemade, 5)},
		{AchievementID: "conversationalist", Title: "Conversationalist", Trigger: models.RewardComment, Satisfied: countAtLeast(models.RewardComment, 25)},
		{AchievementID: "level-5", Title: "Level 5", Satisfied: levelAtLeast(5)},
		{AchievementID: "level-10", Title: "Level 10", Satisfied: levelAtLeast(10)},
		{AchievementID: "level-20", Title: "Level 20", Satisfied: levelAtLeast(20)},
	}
}
