package progression

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/snap-point/activity-engine/apperr"
	"github.com/snap-point/activity-engine/dbctx"
	"github.com/snap-point/activity-engine/logger"
	"github.com/snap-point/activity-engine/models"
	"github.com/snap-point/activity-engine/notify"
	"github.com/snap-point/activity-engine/repositories"
	"github.com/snap-point/activity-engine/rewards"
	"github.com/snap-point/activity-engine/types"
)

type Config struct {
	MaxAttempts int `env:"REWARD_MAX_ATTEMPTS,default=3" validate:"min=1"`
}

type Outcome string

const (
	OutcomeGranted         Outcome = "granted"
	OutcomeIneligible      Outcome = "ineligible"
	OutcomeAlreadyRewarded Outcome = "already_rewarded"
)

const reasonContention = "contention"

type Result struct {
	Outcome         Outcome                   `json:"outcome"`
	Decision        rewards.Decision          `json:"decision"`
	UserID          uint                      `json:"userId"`
	Kind            models.RewardKind         `json:"kind"`
	OldXP           int64                     `json:"oldXp"`
	NewXP           int64                     `json:"newXp"`
	OldLevel        int                       `json:"oldLevel"`
	NewLevel        int                       `json:"newLevel"`
	NewAchievements []string                  `json:"newAchievements"`
	Entry           *models.RewardLedgerEntry `json:"entry,omitempty"`
	LevelUp         *models.Activity          `json:"levelUpActivity,omitempty"`
}

func (r *Result) Granted() bool {
	return r != nil && r.Outcome == OutcomeGranted
}

type ScoreScheduler interface {
	Schedule(activityID uint)
}

type NotificationDispatcher interface {
	Dispatch(n notify.Notification)
}

type UserLookup interface {
	GetUser(dbc dbctx.Context, id uint) (*models.User, error)
	GetUsers(dbc dbctx.Context, ids []uint) (map[uint]*models.User, error)
}

// Ledger turns rewards into xp, levels and achievements. The ledger entry, the xp change
// and any level-up activity commit together; achievements and notifications follow on a
// best-effort basis.
type Ledger struct {
	db           *gorm.DB
	entries      repositories.LedgerRepo
	progressions repositories.ProgressionRepo
	activities   repositories.ActivityRepo
	achievements repositories.AchievementRepo
	users        UserLookup
	validator    *rewards.Validator
	rules        []AchievementRule
	scores       ScoreScheduler
	notifier     NotificationDispatcher
	maxAttempts  int
	log          *logger.Logger
	tracer       trace.Tracer
	now          func() time.Time
}

type Deps struct {
	DB           *gorm.DB
	Entries      repositories.LedgerRepo
	Progressions repositories.ProgressionRepo
	Activities   repositories.ActivityRepo
	Achievements repositories.AchievementRepo
	Users        UserLookup
	Validator    *rewards.Validator
	Scores       ScoreScheduler
	Notifier     NotificationDispatcher
	Rules        []AchievementRule
}

func NewLedger(deps Deps, cfg Config, baseLog *logger.Logger) *Ledger {
	rules := deps.Rules
	if rules == nil {
		rules = DefaultAchievementRules()
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	return &Ledger{
		db:           deps.DB,
		entries:      deps.Entries,
		progressions: deps.Progressions,
		activities:   deps.Activities,
		achievements: deps.Achievements,
		users:        deps.Users,
		validator:    deps.Validator,
		rules:        rules,
		scores:       deps.Scores,
		notifier:     deps.Notifier,
		maxAttempts:  attempts,
		log:          baseLog.With("service", "ProgressionLedger"),
		tracer:       otel.Tracer("activity-engine/progression"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ApplyReward credits amount xp to userID for reason, at most once per (user, kind, target)
// and at most the configured cap per scope.
func (l *Ledger) ApplyReward(ctx context.Context, userID uint, reason rewards.Reason, amount int64) (*Result, error) {
	ctx, span := l.tracer.Start(ctx, "progression.ApplyReward", trace.WithAttributes(
		attribute.Int64("user.id", int64(userID)),
		attribute.String("reward.kind", string(reason.Kind)),
	))
	defer span.End()

	var res *Result
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		res, err = l.ApplyRewardTx(dbctx.Context{Ctx: ctx, Tx: tx}, userID, reason, amount)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("reward.outcome", string(res.Outcome)))
	l.Settle(ctx, res)
	return res, nil
}

// ApplyRewardTx is the transactional half of ApplyReward. dbc.Tx must be an open transaction;
// call Settle after it commits.
func (l *Ledger) ApplyRewardTx(dbc dbctx.Context, userID uint, reason rewards.Reason, amount int64) (*Result, error) {
	const op = "Ledger.ApplyReward"
	if userID == 0 {
		return nil, apperr.Validationf(op, "missing user")
	}
	if !l.validator.Knows(reason.Kind) {
		return nil, apperr.Validationf(op, "unknown reward kind %q", reason.Kind)
	}
	if amount <= 0 {
		return nil, apperr.Validationf(op, "reward amount must be positive, got %d", amount)
	}

	var (
		entry    *models.RewardLedgerEntry
		decision rewards.Decision
	)
	for attempt := 0; attempt < l.maxAttempts && entry == nil; attempt++ {
		var err error
		decision, err = l.validator.IsEligible(dbc, userID, reason)
		if err != nil {
			return nil, apperr.Unavailable(op, err)
		}
		if !decision.Eligible {
			return l.notGranted(dbc, userID, reason.Kind, decision)
		}

		candidate := l.newEntry(userID, reason, decision, amount)
		err = dbc.DB(l.db).Transaction(func(sp *gorm.DB) error {
			return l.entries.Insert(dbctx.Context{Ctx: dbc.Ctx, Tx: sp}, candidate)
		})
		switch {
		case err == nil:
			entry = candidate
		case repositories.IsDuplicate(err):
			l.log.Debug("ledger insert lost a race, revalidating", "user_id", userID, "kind", reason.Kind, "attempt", attempt+1)
		default:
			return nil, fmt.Errorf("insert ledger entry: %w", err)
		}
	}
	if entry == nil {
		decision = rewards.Decision{Reason: reasonContention, ScopeKey: decision.ScopeKey, Cap: decision.Cap}
		return l.notGranted(dbc, userID, reason.Kind, decision)
	}

	if err := l.progressions.Ensure(dbc, userID); err != nil {
		return nil, err
	}
	// The increment locks the row until commit, so the values read back after it include
	// every reward committed before ours and none committed after. Old xp and level are
	// derived from them rather than from a read taken before the lock.
	if err := l.progressions.AddXP(dbc, userID, amount); err != nil {
		return nil, err
	}
	after, err := l.progressions.Get(dbc, userID)
	if err != nil {
		return nil, err
	}
	if after == nil {
		return nil, fmt.Errorf("apply reward: progression row for user %d vanished", userID)
	}
	oldXP, oldLevel := after.XP-amount, after.Level
	newLevel := types.LevelFor(after.XP)
	if newLevel != after.Level {
		if err := l.progressions.SetLevel(dbc, userID, newLevel); err != nil {
			return nil, err
		}
	}

	res := &Result{
		Outcome:  OutcomeGranted,
		Decision: decision,
		UserID:   userID,
		Kind:     reason.Kind,
		OldXP:    oldXP,
		NewXP:    after.XP,
		OldLevel: oldLevel,
		NewLevel: newLevel,
		Entry:    entry,
	}
	if newLevel > oldLevel {
		activity, err := l.levelUpActivity(dbc, userID)
		if err != nil {
			return nil, err
		}
		res.LevelUp = activity
	}
	return res, nil
}

func (l *Ledger) newEntry(userID uint, reason rewards.Reason, decision rewards.Decision, amount int64) *models.RewardLedgerEntry {
	meta, _ := json.Marshal(map[string]interface{}{
		"amount":   amount,
		"hasMedia": reason.HasMedia,
		"slot":     decision.Slot,
		"cap":      decision.Cap,
	})
	entry := &models.RewardLedgerEntry{
		UserID:           userID,
		ActionKind:       reason.Kind,
		TargetID:         reason.TargetID,
		ParentActivityID: reason.ParentActivityID,
		PlaceID:          reason.PlaceID,
		ScopeKey:         decision.ScopeKey,
		Slot:             decision.Slot,
		Amount:           amount,
		Metadata:         datatypes.JSON(meta),
	}
	if !reason.At.IsZero() {
		entry.CreatedAt = reason.At.UTC()
	}
	return entry
}

func (l *Ledger) notGranted(dbc dbctx.Context, userID uint, kind models.RewardKind, decision rewards.Decision) (*Result, error) {
	outcome := OutcomeIneligible
	if decision.Reason == rewards.ReasonAlreadyRewarded {
		outcome = OutcomeAlreadyRewarded
	}
	res := &Result{Outcome: outcome, Decision: decision, UserID: userID, Kind: kind, OldLevel: 1, NewLevel: 1}
	state, err := l.progressions.Get(dbc, userID)
	if err != nil {
		return nil, err
	}
	if state != nil {
		res.OldXP, res.NewXP = state.XP, state.XP
		res.OldLevel, res.NewLevel = state.Level, state.Level
	}
	return res, nil
}

func (l *Ledger) levelUpActivity(dbc dbctx.Context, userID uint) (*models.Activity, error) {
	actorPrivate := false
	if l.users != nil {
		user, err := l.users.GetUser(dbc, userID)
		switch {
		case err == nil:
			actorPrivate = user.IsPrivate
		case apperr.Is(err, apperr.NotFound):
		default:
			return nil, err
		}
	}
	activity := &models.Activity{
		ActorID:      userID,
		ActionKind:   models.ActionLeveledUp,
		ResourceKind: models.ResourceUser,
		ResourceID:   userID,
		Visibility:   models.VisibilityPublic,
		ActorPrivate: actorPrivate,
	}
	if err := l.activities.Create(dbc, activity); err != nil {
		return nil, err
	}
	return activity, nil
}

// Settle runs the best-effort half of a granted reward: achievement rules, score scheduling
// for a level-up activity, and notifications. Failures are logged only.
func (l *Ledger) Settle(ctx context.Context, res *Result) {
	if !res.Granted() {
		return
	}
	dbc := dbctx.Of(ctx)
	leveledUp := res.NewLevel > res.OldLevel
	in := RuleInput{DBC: dbc, UserID: res.UserID, Level: res.NewLevel, Ledger: l.entries}
	for _, rule := range l.rules {
		if rule.Trigger != res.Kind && !(rule.Trigger == "" && leveledUp) {
			continue
		}
		ok, err := rule.Satisfied(in)
		if err != nil {
			l.log.Warn("achievement rule failed", "achievement", rule.AchievementID, "user_id", res.UserID, "error", err)
			continue
		}
		if !ok {
			continue
		}
		unlocked, err := l.achievements.Unlock(dbc, res.UserID, rule.AchievementID, l.now())
		if err != nil {
			l.log.Warn("achievement unlock failed", "achievement", rule.AchievementID, "user_id", res.UserID, "error", err)
			continue
		}
		if unlocked {
			res.NewAchievements = append(res.NewAchievements, rule.AchievementID)
		}
	}

	if res.LevelUp != nil && l.scores != nil {
		l.scores.Schedule(res.LevelUp.ID)
	}
	if l.notifier == nil {
		return
	}
	recipients := []uint{res.UserID}
	l.notifier.Dispatch(notify.New(notify.EventRewardGranted, recipients, res.UserID, map[string]interface{}{
		"kind":   res.Kind,
		"amount": res.NewXP - res.OldXP,
		"xp":     res.NewXP,
	}))
	if leveledUp {
		l.notifier.Dispatch(notify.New(notify.EventLevelUp, recipients, res.UserID, map[string]interface{}{
			"oldLevel": res.OldLevel,
			"newLevel": res.NewLevel,
		}))
	}
	for _, id := range res.NewAchievements {
		l.notifier.Dispatch(notify.New(notify.EventAchievementUnlocked, recipients, res.UserID, map[string]interface{}{
			"achievementId": id,
		}))
	}
}

// RevokeTx deletes ledger entries and takes their xp back, never below zero. Levels are
// recomputed; revocation never creates activities.
func (l *Ledger) RevokeTx(dbc dbctx.Context, entries []*models.RewardLedgerEntry) (map[uint]int64, error) {
	revoked := make(map[uint]int64)
	if len(entries) == 0 {
		return revoked, nil
	}
	ids := make([]uint, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
		revoked[e.UserID] += e.Amount
	}
	if _, err := l.entries.DeleteByIDs(dbc, ids); err != nil {
		return nil, err
	}
	for userID, amount := range revoked {
		state, err := l.progressions.Get(dbc, userID)
		if err != nil {
			return nil, err
		}
		if state == nil {
			continue
		}
		if err := l.progressions.AddXP(dbc, userID, -amount); err != nil {
			return nil, err
		}
		after, err := l.progressions.Get(dbc, userID)
		if err != nil {
			return nil, err
		}
		if level := types.LevelFor(after.XP); level != after.Level {
			if err := l.progressions.SetLevel(dbc, userID, level); err != nil {
				return nil, err
			}
		}
	}
	return revoked, nil
}

type State struct {
	UserID       uint                      `json:"userId"`
	XP           int64                     `json:"xp"`
	Level        int                       `json:"level"`
	NextLevelXP  *int64                    `json:"nextLevelXp,omitempty"`
	Achievements []*models.UserAchievement `json:"achievements"`
}

// State reports a user's progression. Users that were never rewarded are at level 1.
func (l *Ledger) State(ctx context.Context, userID uint) (*State, error) {
	dbc := dbctx.Of(ctx)
	st := &State{UserID: userID, Level: 1}
	p, err := l.progressions.Get(dbc, userID)
	if err != nil {
		return nil, err
	}
	if p != nil {
		st.XP, st.Level = p.XP, p.Level
	}
	if st.Level < len(types.LevelThresholds) {
		next := types.LevelThresholds[st.Level]
		st.NextLevelXP = &next
	}
	achievements, err := l.achievements.ListByUser(dbc, userID)
	if err != nil {
		return nil, err
	}
	st.Achievements = achievements
	return st, nil
}
