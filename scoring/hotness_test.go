package scoring

import (
	"math"
	"testing"

	"github.com/snap-point/activity-engine/models"
	"github.com/snap-point/activity-engine/types"
)

func TestScoreFreshPostDominatedByNewPostBoost(t *testing.T) {
	p := types.GetHotnessParams()
	got := Score(models.Engagement{}, 0, p, 1)
	if got != 140 {
		t.Fatalf("Score(age=0) = %v, want 140", got)
	}
	if newPost := p.InitialBoost; newPost <= got-newPost {
		t.Fatalf("new post boost %v does not dominate %v", newPost, got)
	}
}

func TestScoreStrictlyDecreasingInAge(t *testing.T) {
	p := types.GetHotnessParams()
	engagements := []models.Engagement{
		{},
		{Reactions: 3, Comments: 1, Views: 40},
		{Reactions: 500, Comments: 120, Views: 10000},
	}
	for _, e := range engagements {
		prev := Score(e, 1, p, 1)
		for age := 1.25; age <= 24*14; age += 0.25 {
			got := Score(e, age, p, 1)
			if !(got < prev) {
				t.Fatalf("engagement %+v: score at %vh (%v) not below previous (%v)", e, age, got, prev)
			}
			prev = got
		}
	}
}

func TestScoreConstantInsideFirstHour(t *testing.T) {
	p := types.GetHotnessParams()
	e := models.Engagement{Reactions: 2}
	if Score(e, 0, p, 1) != Score(e, 0.9, p, 1) {
		t.Fatalf("score should not change before the first hour")
	}
}

func TestScoreNonDecreasingInCounters(t *testing.T) {
	p := types.GetHotnessParams()
	for _, age := range []float64{0, 2, 30, 200} {
		base := models.Engagement{Reactions: 4, Comments: 2, Views: 10}
		s := Score(base, age, p, 1)
		bumps := []models.Engagement{
			{Reactions: 5, Comments: 2, Views: 10},
			{Reactions: 4, Comments: 3, Views: 10},
			{Reactions: 4, Comments: 2, Views: 11},
		}
		for _, b := range bumps {
			if got := Score(b, age, p, 1); got < s {
				t.Fatalf("age %v: bumping %+v lowered score %v -> %v", age, b, s, got)
			}
		}
	}
}

func TestScoreFreshnessSteps(t *testing.T) {
	p := types.GetHotnessParams()
	cases := map[float64]float64{0.5: 40, 1: 40, 2: 25, 6: 15, 12: 8, 20: 4, 48: 2, 49: 0}
	for age, want := range cases {
		if got := p.FreshnessBoost(age); got != want {
			t.Errorf("FreshnessBoost(%v) = %v, want %v", age, got, want)
		}
	}
}

func TestScoreMultiplier(t *testing.T) {
	p := types.GetHotnessParams()
	e := models.Engagement{Reactions: 10}
	base := Score(e, 5, p, 1)
	if got := Score(e, 5, p, 2); math.Abs(got-2*base) > 1e-9 {
		t.Fatalf("multiplier 2: got %v want %v", got, 2*base)
	}
	for _, m := range []float64{0, -3, math.NaN()} {
		if got := Score(e, 5, p, m); got != base {
			t.Fatalf("multiplier %v should fall back to 1: got %v want %v", m, got, base)
		}
	}
}

func TestScoreKnownValue(t *testing.T) {
	p := types.GetHotnessParams()
	e := models.Engagement{Reactions: 10, Comments: 5, Views: 100}
	age := 4.0
	decay := math.Pow(1/age, 0.8)
	want := (10*1.0+5*2.0+100*0.1)*decay + 100/age + 15
	if got := Score(e, age, p, 1); math.Abs(got-want) > 1e-9 {
		t.Fatalf("Score = %v, want %v", got, want)
	}
}
