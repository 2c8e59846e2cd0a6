package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/snap-point/activity-engine/models"
)

func mustCreate(tb testing.TB, db *gorm.DB, v interface{}) {
	tb.Helper()
	if err := db.Create(v).Error; err != nil {
		tb.Fatalf("seed %T: %v", v, err)
	}
}

func SeedUser(tb testing.TB, db *gorm.DB, private bool) *models.User {
	tb.Helper()
	u := &models.User{
		Username:  "user_" + uuid.NewString()[:8],
		FirstName: "Test",
		LastName:  "User",
		Avatar:    "avatars/default.png",
		IsPrivate: private,
	}
	mustCreate(tb, db, u)
	return u
}

func SeedPlace(tb testing.TB, db *gorm.DB) *models.Place {
	tb.Helper()
	p := &models.Place{
		Name:       "Place " + uuid.NewString()[:6],
		Categories: models.StringList{"cafe"},
		Latitude:   41.0,
		Longitude:  29.0,
	}
	mustCreate(tb, db, p)
	return p
}

func SeedReview(tb testing.TB, db *gorm.DB, userID, placeID uint, visibility models.Visibility, media ...string) *models.Review {
	tb.Helper()
	r := &models.Review{
		UserID:     userID,
		PlaceID:    placeID,
		Content:    "great spot",
		Rating:     4,
		Media:      models.StringList(media),
		Visibility: visibility,
	}
	mustCreate(tb, db, r)
	return r
}

func SeedCheckIn(tb testing.TB, db *gorm.DB, userID, placeID uint, visibility models.Visibility, media ...string) *models.CheckIn {
	tb.Helper()
	c := &models.CheckIn{
		UserID:     userID,
		PlaceID:    placeID,
		Caption:    "here",
		Media:      models.StringList(media),
		Visibility: visibility,
	}
	mustCreate(tb, db, c)
	return c
}

func SeedHomemade(tb testing.TB, db *gorm.DB, userID uint, visibility models.Visibility, media ...string) *models.Homemade {
	tb.Helper()
	h := &models.Homemade{
		UserID:     userID,
		Title:      "soup",
		Media:      models.StringList(media),
		Visibility: visibility,
	}
	mustCreate(tb, db, h)
	return h
}

func SeedFollow(tb testing.TB, db *gorm.DB, followerID, followingID uint, status string) {
	tb.Helper()
	mustCreate(tb, db, &models.Follow{FollowerUserID: followerID, FollowingUserID: followingID, Status: status})
}

func SeedBlock(tb testing.TB, db *gorm.DB, blockerID, blockedID uint) {
	tb.Helper()
	mustCreate(tb, db, &models.Block{BlockerUserID: blockerID, BlockedUserID: blockedID})
}

// ActivityOpts describes an activity row inserted directly, bypassing the orchestrator.
type ActivityOpts struct {
	ActorID      uint
	ActionKind   models.ActionKind
	ResourceID   uint
	PlaceID      *uint
	Visibility   models.Visibility
	ActorPrivate bool
	HasMedia     bool
	Hotness      float64
	CreatedAt    time.Time
}

func SeedActivity(tb testing.TB, db *gorm.DB, o ActivityOpts) *models.Activity {
	tb.Helper()
	if o.ActionKind == "" {
		o.ActionKind = models.ActionReviewed
	}
	if o.Visibility == "" {
		o.Visibility = models.VisibilityPublic
	}
	kind, ok := models.ResourceKindFor(o.ActionKind)
	if !ok {
		tb.Fatalf("seed activity: unknown action kind %q", o.ActionKind)
	}
	a := &models.Activity{
		ActorID:      o.ActorID,
		ActionKind:   o.ActionKind,
		ResourceKind: kind,
		ResourceID:   o.ResourceID,
		PlaceID:      o.PlaceID,
		Visibility:   o.Visibility,
		ActorPrivate: o.ActorPrivate,
		HasMedia:     o.HasMedia,
		HotnessScore: o.Hotness,
		CreatedAt:    o.CreatedAt,
	}
	mustCreate(tb, db, a)
	return a
}

func UintPtr(v uint) *uint { return &v }
