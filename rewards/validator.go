package rewards

import (
	"fmt"
	"time"

	"github.com/snap-point/activity-engine/dbctx"
	"github.com/snap-point/activity-engine/logger"
	"github.com/snap-point/activity-engine/models"
	"github.com/snap-point/activity-engine/repositories"
	"github.com/snap-point/activity-engine/types"
)

type Config struct {
	ReviewsPerPlace  int `env:"REWARD_REVIEWS_PER_PLACE,default=5" validate:"min=1"`
	CheckInsPerPlace int `env:"REWARD_CHECKINS_PER_PLACE,default=5" validate:"min=1"`
	HomemadePerDay   int `env:"REWARD_HOMEMADE_PER_DAY,default=3" validate:"min=1"`
}

func DefaultConfig() Config {
	return Config{
		ReviewsPerPlace:  types.DEFAULT_REVIEWS_PER_PLACE,
		CheckInsPerPlace: types.DEFAULT_CHECKINS_PER_PLACE,
		HomemadePerDay:   types.DEFAULT_HOMEMADE_PER_DAY,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.ReviewsPerPlace <= 0 {
		c.ReviewsPerPlace = defaults.ReviewsPerPlace
	}
	if c.CheckInsPerPlace <= 0 {
		c.CheckInsPerPlace = defaults.CheckInsPerPlace
	}
	if c.HomemadePerDay <= 0 {
		c.HomemadePerDay = defaults.HomemadePerDay
	}
	return c
}

// Reason identifies what a reward is for. TargetID is the rewarded resource, or the parent
// activity for reactions and comments.
type Reason struct {
	Kind             models.RewardKind
	TargetID         uint
	PlaceID          *uint
	ParentActivityID *uint
	HasMedia         bool
	// At places homemade rewards in a UTC day. Zero means now.
	At time.Time
}

const (
	ReasonEligible        = "eligible"
	ReasonUnknownKind     = "unknown_kind"
	ReasonMissingTarget   = "missing_target"
	ReasonMissingPlace    = "missing_place"
	ReasonMissingParent   = "missing_parent_activity"
	ReasonAlreadyRewarded = "already_rewarded"
	ReasonCapReached      = "cap_reached"
)

// Decision is the validator's verdict. When Eligible, ScopeKey and Slot are the values the
// ledger entry must carry.
type Decision struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason"`
	ScopeKey string `json:"scopeKey,omitempty"`
	Slot     int    `json:"slot"`
	Cap      int    `json:"cap,omitempty"`
}

type strategy struct {
	cap   int
	scope func(r Reason) (string, string)
}

type Validator struct {
	ledger     repositories.LedgerRepo
	strategies map[models.RewardKind]strategy
	log        *logger.Logger
	now        func() time.Time
}

func NewValidator(ledger repositories.LedgerRepo, cfg Config, baseLog *logger.Logger) *Validator {
	cfg = cfg.withDefaults()
	return &Validator{
		ledger: ledger,
		strategies: map[models.RewardKind]strategy{
			models.RewardReview:   {cap: cfg.ReviewsPerPlace, scope: placeScope},
			models.RewardCheckIn:  {cap: cfg.CheckInsPerPlace, scope: placeScope},
			models.RewardAddPlace: {cap: 1, scope: placeScope},
			models.RewardReaction: {cap: 1, scope: activityScope},
			models.RewardComment:  {cap: 1, scope: activityScope},
			models.RewardHomemade: {cap: cfg.HomemadePerDay, scope: nil},
		},
		log: baseLog.With("service", "RewardValidator"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

func placeScope(r Reason) (string, string) {
	if r.PlaceID == nil || *r.PlaceID == 0 {
		return "", ReasonMissingPlace
	}
	return fmt.Sprintf("place:%d", *r.PlaceID), ""
}

func activityScope(r Reason) (string, string) {
	if r.ParentActivityID == nil || *r.ParentActivityID == 0 {
		return "", ReasonMissingParent
	}
	return fmt.Sprintf("activity:%d", *r.ParentActivityID), ""
}

func dayScope(at time.Time) string {
	return "day:" + at.UTC().Format("2006-01-02")
}

// Knows reports whether kind has an eligibility strategy.
func (v *Validator) Knows(kind models.RewardKind) bool {
	_, ok := v.strategies[kind]
	return ok
}

// IsEligible decides whether userID may be rewarded for reason. Unknown kinds are never
// eligible. The decision is advisory until the ledger insert succeeds: the unique indexes on
// the ledger settle races between concurrent callers.
func (v *Validator) IsEligible(dbc dbctx.Context, userID uint, reason Reason) (Decision, error) {
	s, ok := v.strategies[reason.Kind]
	if !ok {
		return Decision{Reason: ReasonUnknownKind}, nil
	}
	if reason.TargetID == 0 {
		return Decision{Reason: ReasonMissingTarget}, nil
	}

	var scopeKey, failure string
	if s.scope != nil {
		scopeKey, failure = s.scope(reason)
	} else {
		at := reason.At
		if at.IsZero() {
			at = v.now()
		}
		scopeKey = dayScope(at)
	}
	if failure != "" {
		return Decision{Reason: failure}, nil
	}

	existing, err := v.ledger.FindByTarget(dbc, userID, reason.Kind, reason.TargetID)
	if err != nil {
		return Decision{}, fmt.Errorf("check existing reward: %w", err)
	}
	if existing != nil {
		return Decision{Reason: ReasonAlreadyRewarded, ScopeKey: scopeKey, Cap: s.cap}, nil
	}

	used, err := v.ledger.UsedSlots(dbc, userID, reason.Kind, scopeKey)
	if err != nil {
		return Decision{}, fmt.Errorf("load used slots: %w", err)
	}
	slot, free := lowestFreeSlot(used, s.cap)
	if !free {
		return Decision{Reason: ReasonCapReached, ScopeKey: scopeKey, Cap: s.cap}, nil
	}
	return Decision{Eligible: true, Reason: ReasonEligible, ScopeKey: scopeKey, Slot: slot, Cap: s.cap}, nil
}

// lowestFreeSlot returns the smallest slot in [0, limit) absent from used, which must be sorted.
func lowestFreeSlot(used []int, limit int) (int, bool) {
	next := 0
	for _, s := range used {
		if s < next {
			continue
		}
		if s > next {
			break
		}
		next++
	}
	if next >= limit {
		return 0, false
	}
	return next, true
}

// Amount is the xp a reason earns.
func Amount(reason Reason) int64 {
	return types.RewardAmountFor(reason.Kind, reason.HasMedia)
}
