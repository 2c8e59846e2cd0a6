package progression

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/snap-point/activity-engine/apperr"
	"github.com/snap-point/activity-engine/dbctx"
	"github.com/snap-point/activity-engine/models"
	"github.com/snap-point/activity-engine/notify"
	"github.com/snap-point/activity-engine/repositories"
	"github.com/snap-point/activity-engine/rewards"
	"github.com/snap-point/activity-engine/testutil"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (r *recordingDispatcher) Dispatch(n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingDispatcher) count(t notify.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sent {
		if s.Type == t {
			n++
		}
	}
	return n
}

type noopScheduler struct{}

func (noopScheduler) Schedule(uint) {}

type harness struct {
	db      *gorm.DB
	ledger  *Ledger
	entries repositories.LedgerRepo
	notes   *recordingDispatcher
}

func newHarness(t *testing.T) *harness {
	return newHarnessWith(t, nil, nil)
}

// newHarnessWith lets a test wrap the ledger or progression store, e.g. to interleave a
// competing write between two reads of the same transaction.
func newHarnessWith(
	t *testing.T,
	wrapEntries func(*gorm.DB, repositories.LedgerRepo) repositories.LedgerRepo,
	wrapProgressions func(*gorm.DB, repositories.ProgressionRepo) repositories.ProgressionRepo,
) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	entries := repositories.NewLedgerRepo(db, log)
	if wrapEntries != nil {
		entries = wrapEntries(db, entries)
	}
	progressions := repositories.NewProgressionRepo(db, log)
	if wrapProgressions != nil {
		progressions = wrapProgressions(db, progressions)
	}
	notes := &recordingDispatcher{}
	ledger := NewLedger(Deps{
		DB:           db,
		Entries:      entries,
		Progressions: progressions,
		Activities:   repositories.NewActivityRepo(db, log),
		Achievements: repositories.NewAchievementRepo(db, log),
		Users:        repositories.NewResourceRepo(db, log),
		Validator:    rewards.NewValidator(entries, rewards.Config{ReviewsPerPlace: 5}, log),
		Scores:       noopScheduler{},
		Notifier:     notes,
	}, Config{MaxAttempts: 5}, log)
	return &harness{db: db, ledger: ledger, entries: entries, notes: notes}
}

func (h *harness) countEntries(t *testing.T, userID uint) int64 {
	t.Helper()
	var n int64
	if err := h.db.Model(&models.RewardLedgerEntry{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		t.Fatalf("count entries: %v", err)
	}
	return n
}

func reviewReason(reviewID, placeID uint, hasMedia bool) rewards.Reason {
	return rewards.Reason{Kind: models.RewardReview, TargetID: reviewID, PlaceID: &placeID, HasMedia: hasMedia}
}

func TestFirstReviewWithMedia(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, h.db, false)
	place := testutil.SeedPlace(t, h.db)
	review := testutil.SeedReview(t, h.db, user.ID, place.ID, models.VisibilityPublic, "reviews/1.jpg")

	reason := reviewReason(review.ID, place.ID, true)
	res, err := h.ledger.ApplyReward(ctx, user.ID, reason, rewards.Amount(reason))
	if err != nil {
		t.Fatalf("ApplyReward: %v", err)
	}
	if res.Outcome != OutcomeGranted {
		t.Fatalf("outcome = %s, want granted", res.Outcome)
	}
	if res.Entry.Amount != 15 || res.NewXP-res.OldXP != 15 {
		t.Fatalf("credited %d (entry %d), want 15", res.NewXP-res.OldXP, res.Entry.Amount)
	}
	if res.OldLevel != 1 || res.NewLevel != 1 || res.LevelUp != nil {
		t.Fatalf("unexpected level change: %+v", res)
	}
	if len(res.NewAchievements) != 1 || res.NewAchievements[0] != "first-review" {
		t.Fatalf("achievements = %v, want [first-review]", res.NewAchievements)
	}
	if h.notes.count(notify.EventRewardGranted) != 1 || h.notes.count(notify.EventAchievementUnlocked) != 1 {
		t.Fatalf("notifications = %+v", h.notes.sent)
	}
}

func TestSixthReviewAtPlaceIsIneligible(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, h.db, false)
	place := testutil.SeedPlace(t, h.db)

	for i := 0; i < 5; i++ {
		r := testutil.SeedReview(t, h.db, user.ID, place.ID, models.VisibilityPublic)
		res, err := h.ledger.ApplyReward(ctx, user.ID, reviewReason(r.ID, place.ID, false), 10)
		if err != nil || !res.Granted() {
			t.Fatalf("review %d: res=%+v err=%v", i, res, err)
		}
	}
	sixth := testutil.SeedReview(t, h.db, user.ID, place.ID, models.VisibilityPublic)
	res, err := h.ledger.ApplyReward(ctx, user.ID, reviewReason(sixth.ID, place.ID, false), 10)
	if err != nil {
		t.Fatalf("ApplyReward: %v", err)
	}
	if res.Outcome != OutcomeIneligible || res.Decision.Reason != rewards.ReasonCapReached {
		t.Fatalf("sixth review: outcome=%s reason=%s", res.Outcome, res.Decision.Reason)
	}
	if res.NewXP != 50 || res.OldXP != 50 {
		t.Fatalf("xp changed on ineligible reward: %d -> %d", res.OldXP, res.NewXP)
	}
	if got := h.countEntries(t, user.ID); got != 5 {
		t.Fatalf("ledger entries = %d, want 5", got)
	}
}

func TestConcurrentIdenticalRewardsCreditOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, h.db, false)
	place := testutil.SeedPlace(t, h.db)
	review := testutil.SeedReview(t, h.db, user.ID, place.ID, models.VisibilityPublic)

	const n = 8
	var wg sync.WaitGroup
	outcomes := make(chan Outcome, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.ledger.ApplyReward(ctx, user.ID, reviewReason(review.ID, place.ID, false), 10)
			if err != nil {
				t.Errorf("ApplyReward: %v", err)
				return
			}
			outcomes <- res.Outcome
		}()
	}
	wg.Wait()
	close(outcomes)

	granted := 0
	for o := range outcomes {
		switch o {
		case OutcomeGranted:
			granted++
		case OutcomeAlreadyRewarded:
		default:
			t.Fatalf("unexpected outcome %s", o)
		}
	}
	if granted != 1 {
		t.Fatalf("granted %d times, want 1", granted)
	}
	if got := h.countEntries(t, user.ID); got != 1 {
		t.Fatalf("ledger entries = %d, want 1", got)
	}
	st, err := h.ledger.State(ctx, user.ID)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if st.XP != 10 {
		t.Fatalf("xp = %d, want 10", st.XP)
	}
}

func TestConcurrentRewardsRespectCap(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, h.db, false)
	place := testutil.SeedPlace(t, h.db)

	var wg sync.WaitGroup
	for i := 0; i < 9; i++ {
		r := testutil.SeedReview(t, h.db, user.ID, place.ID, models.VisibilityPublic)
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			if _, err := h.ledger.ApplyReward(ctx, user.ID, reviewReason(id, place.ID, false), 10); err != nil {
				t.Errorf("ApplyReward: %v", err)
			}
		}(r.ID)
	}
	wg.Wait()

	if got := h.countEntries(t, user.ID); got != 5 {
		t.Fatalf("ledger entries = %d, want cap 5", got)
	}
	st, _ := h.ledger.State(ctx, user.ID)
	if st.XP != 50 {
		t.Fatalf("xp = %d, want 50", st.XP)
	}
}

func TestLevelUpCreatesActivity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, h.db, true)
	place := testutil.SeedPlace(t, h.db)
	review := testutil.SeedReview(t, h.db, user.ID, place.ID, models.VisibilityPublic)

	res, err := h.ledger.ApplyReward(ctx, user.ID, reviewReason(review.ID, place.ID, false), 1000)
	if err != nil {
		t.Fatalf("ApplyReward: %v", err)
	}
	if res.OldLevel != 1 || res.NewLevel != 5 {
		t.Fatalf("levels %d -> %d, want 1 -> 5", res.OldLevel, res.NewLevel)
	}
	if res.LevelUp == nil {
		t.Fatalf("no level-up activity")
	}
	var stored models.Activity
	if err := h.db.First(&stored, res.LevelUp.ID).Error; err != nil {
		t.Fatalf("load level-up activity: %v", err)
	}
	if stored.ActionKind != models.ActionLeveledUp || stored.ActorID != user.ID || stored.ResourceKind != models.ResourceUser || !stored.ActorPrivate {
		t.Fatalf("level-up activity = %+v", stored)
	}
	want := map[string]bool{"first-review": true, "level-5": true}
	if len(res.NewAchievements) != len(want) {
		t.Fatalf("achievements = %v", res.NewAchievements)
	}
	for _, id := range res.NewAchievements {
		if !want[id] {
			t.Fatalf("unexpected achievement %q", id)
		}
	}
	if h.notes.count(notify.EventLevelUp) != 1 {
		t.Fatalf("level-up notification not sent")
	}
}

func TestApplyRewardValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, h.db, false)
	place := uint(1)

	cases := []struct {
		name   string
		reason rewards.Reason
		amount int64
	}{
		{"unknown kind", rewards.Reason{Kind: "bogus", TargetID: 1}, 10},
		{"zero amount", reviewReason(1, place, false), 0},
		{"negative amount", reviewReason(1, place, false), -5},
	}
	for _, tc := range cases {
		if _, err := h.ledger.ApplyReward(ctx, user.ID, tc.reason, tc.amount); !apperr.Is(err, apperr.ValidationFailed) {
			t.Errorf("%s: err = %v, want validation failure", tc.name, err)
		}
	}
	if got := h.countEntries(t, user.ID); got != 0 {
		t.Fatalf("validation failures wrote %d ledger entries", got)
	}
}

func TestRevokeRestoresXPAndLevel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, h.db, false)
	place := testutil.SeedPlace(t, h.db)
	r1 := testutil.SeedReview(t, h.db, user.ID, place.ID, models.VisibilityPublic)
	r2 := testutil.SeedReview(t, h.db, user.ID, place.ID, models.VisibilityPublic)

	if _, err := h.ledger.ApplyReward(ctx, user.ID, reviewReason(r1.ID, place.ID, false), 90); err != nil {
		t.Fatalf("ApplyReward: %v", err)
	}
	res, err := h.ledger.ApplyReward(ctx, user.ID, reviewReason(r2.ID, place.ID, false), 20)
	if err != nil || res.NewLevel != 2 {
		t.Fatalf("second reward: res=%+v err=%v", res, err)
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		entries, err := h.entries.ListForCascade(dbc, models.RewardReview, r2.ID, nil)
		if err != nil {
			return err
		}
		revoked, err := h.ledger.RevokeTx(dbc, entries)
		if err != nil {
			return err
		}
		if revoked[user.ID] != 20 {
			t.Errorf("revoked = %v, want 20 for user", revoked)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}

	st, err := h.ledger.State(ctx, user.ID)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if st.XP != 90 || st.Level != 1 {
		t.Fatalf("after revoke xp=%d level=%d, want 90 and 1", st.XP, st.Level)
	}

	// The freed slot and target can be rewarded again.
	res, err = h.ledger.ApplyReward(ctx, user.ID, reviewReason(r2.ID, place.ID, false), 20)
	if err != nil || !res.Granted() {
		t.Fatalf("re-reward after revoke: res=%+v err=%v", res, err)
	}
}

func TestEarlyBirdAchievement(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, h.db, false)

	var last *Result
	for i := 0; i < 5; i++ {
		place := testutil.SeedPlace(t, h.db)
		review := testutil.SeedReview(t, h.db, user.ID, place.ID, models.VisibilityPublic)
		reason := reviewReason(review.ID, place.ID, false)
		reason.At = time.Date(2026, 5, 1+i, 7, 15, 0, 0, time.UTC)
		res, err := h.ledger.ApplyReward(ctx, user.ID, reason, 1)
		if err != nil || !res.Granted() {
			t.Fatalf("review %d: res=%+v err=%v", i, res, err)
		}
		last = res
	}
	found := false
	for _, id := range last.NewAchievements {
		if id == "early-bird" {
			found = true
		}
	}
	if !found {
		t.Fatalf("early-bird not unlocked on fifth early review: %v", last.NewAchievements)
	}
}

func TestLeaderboard(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := testutil.SeedUser(t, h.db, false)
	b := testutil.SeedUser(t, h.db, false)
	c := testutil.SeedUser(t, h.db, false)
	place := testutil.SeedPlace(t, h.db)

	award := func(u *models.User, amount int64) {
		r := testutil.SeedReview(t, h.db, u.ID, place.ID, models.VisibilityPublic)
		if _, err := h.ledger.ApplyReward(ctx, u.ID, reviewReason(r.ID, place.ID, false), amount); err != nil {
			t.Fatalf("ApplyReward: %v", err)
		}
	}
	award(a, 300)
	award(b, 50)
	award(c, 300)

	board, err := h.ledger.Leaderboard(ctx, TimeframeAllTime, 10)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(board) != 3 {
		t.Fatalf("board size = %d, want 3", len(board))
	}
	if board[0].Rank != 1 || board[1].Rank != 1 || board[2].Rank != 3 {
		t.Fatalf("ranks = %d,%d,%d want 1,1,3", board[0].Rank, board[1].Rank, board[2].Rank)
	}
	if board[2].UserID != b.ID || board[0].Username == "" || board[0].Level != 3 {
		t.Fatalf("board = %+v", board)
	}

	weekly, err := h.ledger.Leaderboard(ctx, TimeframeWeekly, 10)
	if err != nil {
		t.Fatalf("weekly Leaderboard: %v", err)
	}
	if len(weekly) != 3 || weekly[0].XP != 300 {
		t.Fatalf("weekly board = %+v", weekly)
	}

	if _, err := h.ledger.Leaderboard(ctx, Timeframe("yearly"), 10); !apperr.Is(err, apperr.ValidationFailed) {
		t.Fatalf("unknown timeframe: err = %v", err)
	}
}

func TestWindowStart(t *testing.T) {
	now := time.Date(2026, 10, 14, 15, 4, 0, 0, time.UTC) // Wednesday
	if got := windowStart(TimeframeWeekly, now); !got.Equal(time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("weekly start = %v", got)
	}
	if got := windowStart(TimeframeMonthly, now); !got.Equal(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("monthly start = %v", got)
	}
}
