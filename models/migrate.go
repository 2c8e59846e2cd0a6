package models

// All lists every table the engine reads or writes, in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Place{},
		&Review{},
		&CheckIn{},
		&Homemade{},
		&Follow{},
		&Block{},
		&Activity{},
		&Reaction{},
		&Comment{},
		&RewardLedgerEntry{},
		&UserProgression{},
		&UserAchievement{},
		&RankingCalibration{},
	}
}
