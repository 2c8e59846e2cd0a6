package rewards

import (
	"context"
	"testing"
	"time"

	"github.com/snap-point/activity-engine/dbctx"
	"github.com/snap-point/activity-engine/models"
	"github.com/snap-point/activity-engine/repositories"
	"github.com/snap-point/activity-engine/testutil"
)

func newValidator(t *testing.T, cfg Config) (*Validator, repositories.LedgerRepo) {
	t.Helper()
	db := testutil.DB(t)
	ledger := repositories.NewLedgerRepo(db, testutil.Logger(t))
	return NewValidator(ledger, cfg, testutil.Logger(t)), ledger
}

func insert(t *testing.T, ledger repositories.LedgerRepo, userID uint, kind models.RewardKind, target uint, scope string, slot int) {
	t.Helper()
	err := ledger.Insert(dbctx.Of(context.Background()), &models.RewardLedgerEntry{
		UserID: userID, ActionKind: kind, TargetID: target, ScopeKey: scope, Slot: slot, Amount: 1,
	})
	if err != nil {
		t.Fatalf("insert ledger entry: %v", err)
	}
}

func TestLowestFreeSlot(t *testing.T) {
	cases := []struct {
		used  []int
		limit int
		slot  int
		free  bool
	}{
		{nil, 5, 0, true},
		{[]int{0, 1, 2}, 5, 3, true},
		{[]int{0, 2, 3}, 5, 1, true},
		{[]int{1}, 1, 0, true},
		{[]int{0}, 1, 0, false},
		{[]int{0, 1, 2, 3, 4}, 5, 0, false},
		{[]int{0, 1, 2, 3, 4}, 3, 0, false},
	}
	for _, tc := range cases {
		slot, free := lowestFreeSlot(tc.used, tc.limit)
		if slot != tc.slot || free != tc.free {
			t.Errorf("lowestFreeSlot(%v, %d) = (%d, %v), want (%d, %v)", tc.used, tc.limit, slot, free, tc.slot, tc.free)
		}
	}
}

func TestUnknownKindFailsClosed(t *testing.T) {
	v, _ := newValidator(t, Config{})
	d, err := v.IsEligible(dbctx.Of(context.Background()), 1, Reason{Kind: "bogus", TargetID: 1})
	if err != nil {
		t.Fatalf("IsEligible: %v", err)
	}
	if d.Eligible || d.Reason != ReasonUnknownKind {
		t.Fatalf("decision = %+v, want unknown_kind", d)
	}
}

func TestReviewCapPerPlace(t *testing.T) {
	v, ledger := newValidator(t, Config{ReviewsPerPlace: 5})
	ctx := dbctx.Of(context.Background())
	place := uint(77)

	for i := 0; i < 5; i++ {
		d, err := v.IsEligible(ctx, 1, Reason{Kind: models.RewardReview, TargetID: uint(100 + i), PlaceID: &place})
		if err != nil {
			t.Fatalf("IsEligible: %v", err)
		}
		if !d.Eligible || d.Slot != i || d.ScopeKey != "place:77" {
			t.Fatalf("review %d: decision = %+v", i, d)
		}
		insert(t, ledger, 1, models.RewardReview, uint(100+i), d.ScopeKey, d.Slot)
	}

	d, err := v.IsEligible(ctx, 1, Reason{Kind: models.RewardReview, TargetID: 200, PlaceID: &place})
	if err != nil {
		t.Fatalf("IsEligible: %v", err)
	}
	if d.Eligible || d.Reason != ReasonCapReached {
		t.Fatalf("sixth review: decision = %+v, want cap_reached", d)
	}

	other := uint(78)
	d, _ = v.IsEligible(ctx, 1, Reason{Kind: models.RewardReview, TargetID: 200, PlaceID: &other})
	if !d.Eligible {
		t.Fatalf("another place should still be eligible: %+v", d)
	}
	d, _ = v.IsEligible(ctx, 2, Reason{Kind: models.RewardReview, TargetID: 300, PlaceID: &place})
	if !d.Eligible {
		t.Fatalf("another user should still be eligible: %+v", d)
	}
}

func TestAlreadyRewardedTarget(t *testing.T) {
	v, ledger := newValidator(t, Config{})
	ctx := dbctx.Of(context.Background())
	place := uint(5)
	insert(t, ledger, 1, models.RewardCheckIn, 9, "place:5", 0)

	d, err := v.IsEligible(ctx, 1, Reason{Kind: models.RewardCheckIn, TargetID: 9, PlaceID: &place})
	if err != nil {
		t.Fatalf("IsEligible: %v", err)
	}
	if d.Eligible || d.Reason != ReasonAlreadyRewarded {
		t.Fatalf("decision = %+v, want already_rewarded", d)
	}
}

func TestEngagementRewardsAreOneTime(t *testing.T) {
	v, ledger := newValidator(t, Config{})
	ctx := dbctx.Of(context.Background())
	parent := uint(42)

	for _, kind := range []models.RewardKind{models.RewardReaction, models.RewardComment} {
		d, _ := v.IsEligible(ctx, 3, Reason{Kind: kind, TargetID: parent, ParentActivityID: &parent})
		if !d.Eligible || d.ScopeKey != "activity:42" {
			t.Fatalf("%s first: decision = %+v", kind, d)
		}
		insert(t, ledger, 3, kind, parent, d.ScopeKey, d.Slot)
		d, _ = v.IsEligible(ctx, 3, Reason{Kind: kind, TargetID: parent, ParentActivityID: &parent})
		if d.Eligible {
			t.Fatalf("%s second: decision = %+v, want ineligible", kind, d)
		}
	}

	d, _ := v.IsEligible(ctx, 3, Reason{Kind: models.RewardReaction, TargetID: parent})
	if d.Eligible || d.Reason != ReasonMissingParent {
		t.Fatalf("reaction without parent: decision = %+v", d)
	}
}

func TestHomemadeDailyCap(t *testing.T) {
	v, ledger := newValidator(t, Config{HomemadePerDay: 3})
	ctx := dbctx.Of(context.Background())
	day := time.Date(2026, 3, 14, 23, 30, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		d, _ := v.IsEligible(ctx, 4, Reason{Kind: models.RewardHomemade, TargetID: uint(i + 1), At: day})
		if !d.Eligible || d.ScopeKey != "day:2026-03-14" {
			t.Fatalf("homemade %d: decision = %+v", i, d)
		}
		insert(t, ledger, 4, models.RewardHomemade, uint(i+1), d.ScopeKey, d.Slot)
	}
	d, _ := v.IsEligible(ctx, 4, Reason{Kind: models.RewardHomemade, TargetID: 10, At: day})
	if d.Eligible {
		t.Fatalf("fourth homemade on the same day: decision = %+v", d)
	}
	d, _ = v.IsEligible(ctx, 4, Reason{Kind: models.RewardHomemade, TargetID: 10, At: day.Add(time.Hour)})
	if !d.Eligible || d.ScopeKey != "day:2026-03-15" {
		t.Fatalf("next UTC day: decision = %+v", d)
	}
}

func TestMissingPlace(t *testing.T) {
	v, _ := newValidator(t, Config{})
	d, _ := v.IsEligible(dbctx.Of(context.Background()), 1, Reason{Kind: models.RewardReview, TargetID: 1})
	if d.Eligible || d.Reason != ReasonMissingPlace {
		t.Fatalf("decision = %+v, want missing_place", d)
	}
}

func TestAmount(t *testing.T) {
	if got := Amount(Reason{Kind: models.RewardReview, HasMedia: true}); got != 15 {
		t.Fatalf("review with media = %d, want 15", got)
	}
	if got := Amount(Reason{Kind: models.RewardReaction}); got != 1 {
		t.Fatalf("reaction = %d, want 1", got)
	}
}
