package progression

import (
	"context"
	"time"

	"github.com/snap-point/activity-engine/apperr"
	"github.com/snap-point/activity-engine/dbctx"
	"github.com/snap-point/activity-engine/models"
	"github.com/snap-point/activity-engine/repositories"
	"github.com/snap-point/activity-engine/types"
)

type Timeframe string

const (
	TimeframeAllTime Timeframe = "all_time"
	TimeframeWeekly  Timeframe = "weekly"
	TimeframeMonthly Timeframe = "monthly"
)

const (
	defaultLeaderboardSize = 10
	maxLeaderboardSize     = 100
)

type LeaderboardEntry struct {
	UserID    uint   `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Avatar    string `json:"avatar"`
	XP        int64  `json:"xp"`
	Level     int    `json:"level"`
	Rank      int    `json:"rank"`
}

// windowStart returns the first instant counted by a timeframe. Weeks start on Sunday.
func windowStart(tf Timeframe, now time.Time) time.Time {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch tf {
	case TimeframeWeekly:
		return day.AddDate(0, 0, -int(day.Weekday()))
	case TimeframeMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Time{}
	}
}

// Leaderboard ranks users by lifetime xp, or by xp earned within the current week or month.
// Equal xp shares a rank.
func (l *Ledger) Leaderboard(ctx context.Context, tf Timeframe, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}
	if limit > maxLeaderboardSize {
		limit = maxLeaderboardSize
	}
	dbc := dbctx.Of(ctx)

	var rows []repositories.UserXP
	switch tf {
	case "", TimeframeAllTime:
		top, err := l.progressions.TopByXP(dbc, limit)
		if err != nil {
			return nil, err
		}
		for _, p := range top {
			rows = append(rows, repositories.UserXP{UserID: p.UserID, XP: p.XP})
		}
	case TimeframeWeekly, TimeframeMonthly:
		var err error
		rows, err = l.entries.SumSince(dbc, windowStart(tf, l.now()), limit)
		if err != nil {
			return nil, err
		}
	default:
		return nil, apperr.Validationf("Ledger.Leaderboard", "unknown timeframe %q", tf)
	}

	ids := make([]uint, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.UserID)
	}
	users := map[uint]*models.User{}
	if l.users != nil {
		found, err := l.users.GetUsers(dbc, ids)
		if err != nil {
			return nil, err
		}
		users = found
	}
	progressions, err := l.progressions.GetMany(dbc, ids)
	if err != nil {
		return nil, err
	}

	out := make([]LeaderboardEntry, 0, len(rows))
	for i, r := range rows {
		entry := LeaderboardEntry{UserID: r.UserID, XP: r.XP, Level: types.LevelFor(0), Rank: i + 1}
		if i > 0 && out[i-1].XP == r.XP {
			entry.Rank = out[i-1].Rank
		}
		if u, ok := users[r.UserID]; ok {
			entry.Username = u.Username
			entry.FirstName = u.FirstName
			entry.LastName = u.LastName
			entry.Avatar = u.Avatar
		}
		if p, ok := progressions[r.UserID]; ok {
			entry.Level = p.Level
		}
		out = append(out, entry)
	}
	return out, nil
}
