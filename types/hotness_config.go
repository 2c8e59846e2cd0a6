package types

const (
	REACTION_WEIGHT = 1.0
	COMMENT_WEIGHT  = 2.0
	VIEW_WEIGHT     = 0.1
	DECAY_EXPONENT  = 0.8
	INITIAL_BOOST   = 100.0
)

type FreshnessStep struct {
	MaxAgeHours float64
	Boost       float64
}

type HotnessParams struct {
	ReactionWeight float64
	CommentWeight  float64
	ViewWeight     float64
	DecayExponent  float64
	InitialBoost   float64
	FreshnessSteps []FreshnessStep
}

func GetHotnessParams() HotnessParams {
	return HotnessParams{
		ReactionWeight: REACTION_WEIGHT,
		CommentWeight:  COMMENT_WEIGHT,
		ViewWeight:     VIEW_WEIGHT,
		DecayExponent:  DECAY_EXPONENT,
		InitialBoost:   INITIAL_BOOST,
		FreshnessSteps: []FreshnessStep{
			{MaxAgeHours: 1, Boost: 40},
			{MaxAgeHours: 3, Boost: 25},
			{MaxAgeHours: 6, Boost: 15},
			{MaxAgeHours: 12, Boost: 8},
			{MaxAgeHours: 24, Boost: 4},
			{MaxAgeHours: 48, Boost: 2},
		},
	}
}

// FreshnessBoost returns the boost of the first step whose bound covers ageHours.
func (p HotnessParams) FreshnessBoost(ageHours float64) float64 {
	for _, step := range p.FreshnessSteps {
		if ageHours <= step.MaxAgeHours {
			return step.Boost
		}
	}
	return 0
}
