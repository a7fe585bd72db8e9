package domain

import "testing"

func TestCompletionPercentageRounds(t *testing.T) {
	cases := []struct {
		completed, total, want int
	}{
		{0, 0, 0},
		{0, 5, 0},
		{1, 3, 33},
		{2, 3, 67},
		{3, 4, 75},
		{5, 5, 100},
	}
	for _, c := range cases {
		if got := CompletionPercentage(c.completed, c.total); got != c.want {
			t.Errorf("CompletionPercentage(%d, %d) = %d, want %d", c.completed, c.total, got, c.want)
		}
	}
}

func TestScoreLevelBoundaries(t *testing.T) {
	cases := []struct {
		pct  int
		want string
	}{
		{0, ScoreRed},
		{49, ScoreRed},
		{50, ScoreYellow},
		{74, ScoreYellow},
		{75, ScoreGreen},
		{89, ScoreGreen},
		{90, ScoreFire},
		{100, ScoreFire},
	}
	for _, c := range cases {
		if got := ScoreLevel(c.pct); got != c.want {
			t.Errorf("ScoreLevel(%d) = %s, want %s", c.pct, got, c.want)
		}
	}
}
