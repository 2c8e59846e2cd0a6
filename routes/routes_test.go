package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/snap-point/activity-engine/actions"
	"github.com/snap-point/activity-engine/controllers"
	"github.com/snap-point/activity-engine/engagement"
	"github.com/snap-point/activity-engine/feed"
	"github.com/snap-point/activity-engine/media"
	"github.com/snap-point/activity-engine/middleware"
	"github.com/snap-point/activity-engine/models"
	"github.com/snap-point/activity-engine/notify"
	"github.com/snap-point/activity-engine/progression"
	"github.com/snap-point/activity-engine/repositories"
	"github.com/snap-point/activity-engine/rewards"
	"github.com/snap-point/activity-engine/testutil"
)

const testSecret = "test-secret"

type noopScheduler struct{}

func (noopScheduler) Schedule(uint) {}

func newServer(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	log := testutil.Logger(t)

	activities := repositories.NewActivityRepo(db, log)
	engagements := repositories.NewEngagementRepo(db, log)
	resources := repositories.NewResourceRepo(db, log)
	relationships := repositories.NewRelationshipRepo(db, log)
	entries := repositories.NewLedgerRepo(db, log)
	progressions := repositories.NewProgressionRepo(db, log)

	dispatcher := notify.NewDispatcher(notify.NopNotifier{}, notify.Config{}, log)
	t.Cleanup(dispatcher.Close)

	aggregator := engagement.NewAggregator(db, activities, engagements, noopScheduler{}, dispatcher, log)
	ledger := progression.NewLedger(progression.Deps{
		DB:           db,
		Entries:      entries,
		Progressions: progressions,
		Activities:   activities,
		Achievements: repositories.NewAchievementRepo(db, log),
		Users:        resources,
		Validator:    rewards.NewValidator(entries, rewards.DefaultConfig(), log),
		Scores:       noopScheduler{},
		Notifier:     dispatcher,
	}, progression.Config{}, log)
	svc := actions.NewService(actions.Deps{
		DB:            db,
		Resources:     resources,
		Activities:    activities,
		Engagements:   engagements,
		Relationships: relationships,
		Entries:       entries,
		Aggregator:    aggregator,
		Ledger:        ledger,
		Scores:        noopScheduler{},
	}, log)
	composer := feed.NewComposer(feed.Deps{
		Activities:    activities,
		Relationships: relationships,
		Engagements:   engagements,
		Resources:     resources,
		Progressions:  progressions,
		Media:         media.NewPublicResolver("https://cdn.example.com"),
		Scores:        noopScheduler{},
	}, feed.Config{}, log)

	r := gin.New()
	r.Use(middleware.RequestLogger(log))
	SetupRoutes(r, Controllers{
		Feed:        controllers.NewFeedController(composer, log),
		Action:      controllers.NewActionController(svc, log),
		Interaction: controllers.NewInteractionController(svc, aggregator, log),
		User:        controllers.NewUserController(ledger, resources, relationships, log),
		Leaderboard: controllers.NewLeaderboardController(ledger, log),
	}, testSecret)
	return r, db
}

func token(t *testing.T, userID uint) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"roles":   []string{"user"},
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func do(t *testing.T, r *gin.Engine, method, path string, userID uint, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer "+token(t, userID))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
}

func TestAuthRequired(t *testing.T) {
	r, _ := newServer(t)

	if w := do(t, r, http.MethodGet, "/api/feed/following", 0, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/feed/following", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status = %d", w.Code)
	}
	if w.Header().Get(middleware.RequestIDHeader) == "" {
		t.Fatalf("request id header missing")
	}

	if w := do(t, r, http.MethodGet, "/healthz", 0, nil); w.Code != http.StatusOK {
		t.Fatalf("healthz: status = %d", w.Code)
	}
}

func TestActionFeedAndEngagementFlow(t *testing.T) {
	r, db := newServer(t)
	author := testutil.SeedUser(t, db, false)
	fan := testutil.SeedUser(t, db, false)
	place := testutil.SeedPlace(t, db)
	review := testutil.SeedReview(t, db, author.ID, place.ID, models.VisibilityPublic, "reviews/1.jpg")

	body := map[string]interface{}{"actionKind": "reviewed", "resourceId": review.ID}
	w := do(t, r, http.MethodPost, "/api/actions", author.ID, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("record: status = %d body = %s", w.Code, w.Body.String())
	}
	var recorded struct {
		Data struct {
			Activity models.Activity `json:"activity"`
			Created  bool            `json:"created"`
		} `json:"data"`
	}
	decode(t, w, &recorded)
	activityID := recorded.Data.Activity.ID
	if !recorded.Data.Created || activityID == 0 {
		t.Fatalf("record response = %s", w.Body.String())
	}
	if w := do(t, r, http.MethodPost, "/api/actions", author.ID, body); w.Code != http.StatusOK {
		t.Fatalf("repeat record: status = %d", w.Code)
	}
	if w := do(t, r, http.MethodPost, "/api/actions", fan.ID, body); w.Code != http.StatusForbidden {
		t.Fatalf("foreign record: status = %d", w.Code)
	}
	missing := map[string]interface{}{"actionKind": "checked_in", "resourceId": 9999}
	if w := do(t, r, http.MethodPost, "/api/actions", author.ID, missing); w.Code != http.StatusNotFound {
		t.Fatalf("missing resource: status = %d", w.Code)
	}

	w = do(t, r, http.MethodGet, "/api/feed/for-you?page=1&pageSize=10", fan.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("for-you: status = %d", w.Code)
	}
	var page struct {
		Data       []feed.Item                `json:"data"`
		Pagination controllers.PaginationMeta `json:"pagination"`
	}
	decode(t, w, &page)
	if len(page.Data) != 1 || page.Data[0].ID != activityID || page.Pagination.HasMore {
		t.Fatalf("for-you page = %s", w.Body.String())
	}
	if got := page.Data[0].Resource.MediaURLs; len(got) != 1 || got[0] != "https://cdn.example.com/reviews/1.jpg" {
		t.Fatalf("media urls = %v", got)
	}

	reactPath := fmt.Sprintf("/api/activities/%d/reactions", activityID)
	if w := do(t, r, http.MethodPost, reactPath, fan.ID, map[string]string{"type": "yum"}); w.Code != http.StatusOK {
		t.Fatalf("react: status = %d body = %s", w.Code, w.Body.String())
	}
	if w := do(t, r, http.MethodPost, reactPath, fan.ID, map[string]string{"type": "meh"}); w.Code != http.StatusBadRequest {
		t.Fatalf("bad reaction type: status = %d", w.Code)
	}
	if w := do(t, r, http.MethodPost, "/api/activities/424242/reactions", fan.ID, map[string]string{"type": "yum"}); w.Code != http.StatusNotFound {
		t.Fatalf("react on missing activity: status = %d", w.Code)
	}

	w = do(t, r, http.MethodPost, fmt.Sprintf("/api/activities/%d/comments", activityID), fan.ID, map[string]string{"body": "  so good  "})
	if w.Code != http.StatusCreated {
		t.Fatalf("comment: status = %d body = %s", w.Code, w.Body.String())
	}
	var commented struct {
		Data struct {
			Comment struct {
				Comment models.Comment `json:"comment"`
			} `json:"comment"`
		} `json:"data"`
	}
	decode(t, w, &commented)
	commentID := commented.Data.Comment.Comment.ID
	stranger := testutil.SeedUser(t, db, false)
	if w := do(t, r, http.MethodDelete, fmt.Sprintf("/api/comments/%d", commentID), stranger.ID, nil); w.Code != http.StatusForbidden {
		t.Fatalf("stranger removes comment: status = %d", w.Code)
	}
	if w := do(t, r, http.MethodDelete, fmt.Sprintf("/api/comments/%d", commentID), author.ID, nil); w.Code != http.StatusOK {
		t.Fatalf("actor removes comment: status = %d", w.Code)
	}

	if w := do(t, r, http.MethodPost, fmt.Sprintf("/api/activities/%d/views", activityID), fan.ID, nil); w.Code != http.StatusNoContent {
		t.Fatalf("view: status = %d", w.Code)
	}

	w = do(t, r, http.MethodGet, "/api/progression/me", fan.ID, nil)
	var me struct {
		Data progression.State `json:"data"`
	}
	decode(t, w, &me)
	if w.Code != http.StatusOK || me.Data.XP != 3 {
		t.Fatalf("fan progression = %s", w.Body.String())
	}

	w = do(t, r, http.MethodGet, "/api/leaderboard?timeFilter=weekly", fan.ID, nil)
	var board struct {
		Leaderboard []progression.LeaderboardEntry `json:"leaderboard"`
		UserRank    *progression.LeaderboardEntry  `json:"user_rank"`
	}
	decode(t, w, &board)
	if w.Code != http.StatusOK || len(board.Leaderboard) != 2 || board.Leaderboard[0].UserID != author.ID {
		t.Fatalf("leaderboard = %s", w.Body.String())
	}
	if board.UserRank == nil || board.UserRank.Rank != 2 {
		t.Fatalf("user rank = %+v", board.UserRank)
	}
	if w := do(t, r, http.MethodGet, "/api/leaderboard?timeFilter=yearly", fan.ID, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad time filter: status = %d", w.Code)
	}

	w = do(t, r, http.MethodGet, fmt.Sprintf("/api/users/%d/progression", author.ID), fan.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("user progression: status = %d", w.Code)
	}

	if w := do(t, r, http.MethodDelete, fmt.Sprintf("/api/resources/posts/%d", review.ID), author.ID, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown kind delete: status = %d", w.Code)
	}
	if w := do(t, r, http.MethodDelete, fmt.Sprintf("/api/resources/review/%d", review.ID), fan.ID, nil); w.Code != http.StatusForbidden {
		t.Fatalf("foreign delete: status = %d", w.Code)
	}
	if w := do(t, r, http.MethodDelete, fmt.Sprintf("/api/resources/review/%d", review.ID), author.ID, nil); w.Code != http.StatusOK {
		t.Fatalf("delete: status = %d body = %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodGet, "/api/feed/for-you", fan.ID, nil)
	decode(t, w, &page)
	if len(page.Data) != 0 {
		t.Fatalf("deleted activity still in feed: %s", w.Body.String())
	}
}

func TestBlockedUserProgressionHidden(t *testing.T) {
	r, db := newServer(t)
	me := testutil.SeedUser(t, db, false)
	them := testutil.SeedUser(t, db, false)
	testutil.SeedBlock(t, db, them.ID, me.ID)

	if w := do(t, r, http.MethodGet, fmt.Sprintf("/api/users/%d/progression", them.ID), me.ID, nil); w.Code != http.StatusNotFound {
		t.Fatalf("blocked profile: status = %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/api/users/abc/progression", me.ID, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id: status = %d", w.Code)
	}
}
