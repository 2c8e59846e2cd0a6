package engagement

import (
	"context"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/snap-point/activity-engine/apperr"
	"github.com/snap-point/activity-engine/dbctx"
	"github.com/snap-point/activity-engine/models"
	"github.com/snap-point/activity-engine/notify"
	"github.com/snap-point/activity-engine/repositories"
	"github.com/snap-point/activity-engine/testutil"
)

type fakeScheduler struct {
	mu  sync.Mutex
	ids []uint
}

func (f *fakeScheduler) Schedule(id uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, id)
}

func (f *fakeScheduler) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ids)
}

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (f *fakeDispatcher) Dispatch(n notify.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
}

type fixture struct {
	db         *gorm.DB
	agg        *Aggregator
	activities repositories.ActivityRepo
	scores     *fakeScheduler
	notes      *fakeDispatcher
	actor      *models.User
	activity   *models.Activity
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	activities := repositories.NewActivityRepo(db, log)
	scores := &fakeScheduler{}
	notes := &fakeDispatcher{}
	agg := NewAggregator(db, activities, repositories.NewEngagementRepo(db, log), scores, notes, log)

	actor := testutil.SeedUser(t, db, false)
	activity := testutil.SeedActivity(t, db, testutil.ActivityOpts{ActorID: actor.ID, ResourceID: 1})
	return &fixture{db: db, agg: agg, activities: activities, scores: scores, notes: notes, actor: actor, activity: activity}
}

func (f *fixture) reload(t *testing.T) *models.Activity {
	t.Helper()
	a, err := f.activities.GetByID(dbctx.Of(context.Background()), f.activity.ID)
	if err != nil {
		t.Fatalf("reload activity: %v", err)
	}
	return a
}

func TestConcurrentReactionsCountExactly(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u1 := testutil.SeedUser(t, f.db, false)
	u2 := testutil.SeedUser(t, f.db, false)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, u := range []*models.User{u1, u2} {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			if _, err := f.agg.RecordReaction(ctx, f.activity.ID, userID, models.ReactionLike); err != nil {
				errs <- err
			}
		}(u.ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("RecordReaction: %v", err)
	}

	if got := f.reload(t).ReactionsCount; got != 2 {
		t.Fatalf("reactions_count = %d, want 2", got)
	}
	if f.scores.count() != 2 {
		t.Fatalf("scheduled %d recomputes, want 2", f.scores.count())
	}
	if len(f.notes.sent) != 2 {
		t.Fatalf("sent %d notifications, want 2", len(f.notes.sent))
	}
}

func TestSecondReactionChangesTypeOnly(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := testutil.SeedUser(t, f.db, false)

	first, err := f.agg.RecordReaction(ctx, f.activity.ID, u.ID, models.ReactionLike)
	if err != nil || first == nil || !first.Created {
		t.Fatalf("first reaction: res=%+v err=%v", first, err)
	}
	second, err := f.agg.RecordReaction(ctx, f.activity.ID, u.ID, models.ReactionYum)
	if err != nil {
		t.Fatalf("second reaction: %v", err)
	}
	if second.Created {
		t.Fatalf("second reaction should not create a row")
	}
	if second.Reaction.ID != first.Reaction.ID || second.Reaction.Type != models.ReactionYum {
		t.Fatalf("reaction not retyped: %+v", second.Reaction)
	}
	if got := f.reload(t).ReactionsCount; got != 1 {
		t.Fatalf("reactions_count = %d, want 1", got)
	}
}

func TestRemoveReaction(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := testutil.SeedUser(t, f.db, false)
	other := testutil.SeedUser(t, f.db, false)

	res, err := f.agg.RecordReaction(ctx, f.activity.ID, u.ID, models.ReactionWow)
	if err != nil {
		t.Fatalf("RecordReaction: %v", err)
	}
	if _, err := f.agg.RemoveReaction(ctx, res.Reaction.ID, other.ID); !apperr.Is(err, apperr.Forbidden) {
		t.Fatalf("removing someone else's reaction: err = %v, want forbidden", err)
	}
	removed, err := f.agg.RemoveReaction(ctx, res.Reaction.ID, u.ID)
	if err != nil || !removed {
		t.Fatalf("RemoveReaction: removed=%v err=%v", removed, err)
	}
	if got := f.reload(t).ReactionsCount; got != 0 {
		t.Fatalf("reactions_count = %d, want 0", got)
	}
	removed, err = f.agg.RemoveReaction(ctx, res.Reaction.ID, u.ID)
	if err != nil || removed {
		t.Fatalf("second remove: removed=%v err=%v", removed, err)
	}
	if got := f.reload(t).ReactionsCount; got != 0 {
		t.Fatalf("counter went negative: %d", got)
	}
}

func TestEngagementOnMissingActivityIsNoop(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.agg.RecordReaction(ctx, 9999, f.actor.ID, models.ReactionLike)
	if err != nil || res != nil {
		t.Fatalf("reaction on missing activity: res=%+v err=%v", res, err)
	}
	cres, err := f.agg.RecordComment(ctx, 9999, f.actor.ID, "hello")
	if err != nil || cres != nil {
		t.Fatalf("comment on missing activity: res=%+v err=%v", cres, err)
	}
	ok, err := f.agg.RecordView(ctx, 9999)
	if err != nil || ok {
		t.Fatalf("view on missing activity: ok=%v err=%v", ok, err)
	}
	if f.scores.count() != 0 {
		t.Fatalf("no-op engagement scheduled a recompute")
	}
}

func TestCommentsAndViews(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := testutil.SeedUser(t, f.db, false)

	res, err := f.agg.RecordComment(ctx, f.activity.ID, u.ID, "  looks tasty  ")
	if err != nil {
		t.Fatalf("RecordComment: %v", err)
	}
	if res.Comment.Body != "looks tasty" {
		t.Fatalf("body not trimmed: %q", res.Comment.Body)
	}
	if _, err := f.agg.RecordComment(ctx, f.activity.ID, f.actor.ID, "thanks"); err != nil {
		t.Fatalf("self comment: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := f.agg.RecordView(ctx, f.activity.ID); err != nil {
			t.Fatalf("RecordView: %v", err)
		}
	}

	a := f.reload(t)
	if a.CommentsCount != 2 || a.ViewsCount != 3 {
		t.Fatalf("counters = comments %d views %d, want 2 and 3", a.CommentsCount, a.ViewsCount)
	}
	if len(f.notes.sent) != 1 {
		t.Fatalf("self comment should not notify: %d notifications", len(f.notes.sent))
	}

	// The activity's actor may remove comments on it.
	removed, err := f.agg.RemoveComment(ctx, res.Comment.ID, f.actor.ID)
	if err != nil || !removed {
		t.Fatalf("RemoveComment: removed=%v err=%v", removed, err)
	}
	if got := f.reload(t).CommentsCount; got != 1 {
		t.Fatalf("comments_count = %d, want 1", got)
	}
}

func TestCommentValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	if _, err := f.agg.RecordComment(ctx, f.activity.ID, f.actor.ID, "   "); !apperr.Is(err, apperr.ValidationFailed) {
		t.Fatalf("empty comment: err = %v", err)
	}
	if _, err := f.agg.RecordReaction(ctx, f.activity.ID, f.actor.ID, models.ReactionType("meh")); !apperr.Is(err, apperr.ValidationFailed) {
		t.Fatalf("bad reaction type: err = %v", err)
	}
}
