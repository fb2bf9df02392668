package streak

import (
	"testing"

	"github.com/cedarbaum/runstreak.app/strava"
)

func mkStreak(length int, distances ...float64) Streak {
	acts := make([]strava.Activity, len(distances))
	for i, d := range distances {
		acts[i] = strava.Activity{Distance: d}
	}
	return Streak{Activities: acts, StreakLength: length}
}

func TestCompareTotalOrder(t *testing.T) {
	short := mkStreak(2, 5000, 5000)
	long := mkStreak(5, 1000)
	sameLenFar := mkStreak(2, 9000, 9000)
	sameLenSame := mkStreak(2, 5000, 5000)

	tests := []struct {
		name     string
		a, b     Streak
		expected int
	}{
		{"shorter before longer", short, long, -1},
		{"longer after shorter", long, short, 1},
		{"same length, less distance first", short, sameLenFar, -1},
		{"same length, more distance last", sameLenFar, short, 1},
		{"equal on both keys", short, sameLenSame, 0},
	}

	for _, tt := range tests {
		if got := Compare(&tt.a, &tt.b); got != tt.expected {
			t.Errorf("%s: Compare = %d, want %d", tt.name, got, tt.expected)
		}
	}
}

func TestCompareTransitive(t *testing.T) {
	a := mkStreak(2, 1000)
	b := mkStreak(2, 2000)
	c := mkStreak(3, 500)

	if !(Compare(&a, &b) < 0 && Compare(&b, &c) < 0 && Compare(&a, &c) < 0) {
		t.Error("Compare should be transitive over length then distance")
	}
}

func TestTopNOrdering(t *testing.T) {
	streaks := []Streak{
		mkStreak(2, 5000),
		mkStreak(7, 3000),
		mkStreak(4, 8000),
		mkStreak(7, 9000),
	}

	top := TopN(streaks, 3)
	if len(top) != 3 {
		t.Fatalf("expected 3 streaks, got %d", len(top))
	}

	// Best first: length 7 with the greater distance, then the other 7,
	// then length 4.
	if top[0].StreakLength != 7 || top[0].TotalDistance() != 9000 {
		t.Errorf("top[0] = (len %d, dist %.0f), want (7, 9000)", top[0].StreakLength, top[0].TotalDistance())
	}
	if top[1].StreakLength != 7 || top[1].TotalDistance() != 3000 {
		t.Errorf("top[1] = (len %d, dist %.0f), want (7, 3000)", top[1].StreakLength, top[1].TotalDistance())
	}
	if top[2].StreakLength != 4 {
		t.Errorf("top[2] length = %d, want 4", top[2].StreakLength)
	}
}

func TestTopNDoesNotMutateInput(t *testing.T) {
	streaks := []Streak{mkStreak(2, 5000), mkStreak(7, 3000)}
	_ = TopN(streaks, 10)

	if streaks[0].StreakLength != 2 || streaks[1].StreakLength != 7 {
		t.Error("TopN must not reorder its input")
	}
}

func TestTopNStableTieBreak(t *testing.T) {
	// The stable ascending sort keeps ties in input order, and the reverse
	// then flips them: streaks equal on both keys surface in reverse of
	// the calculator's newest-first order.
	first := mkStreak(3, 4000)
	first.StartTime = 200
	second := mkStreak(3, 4000)
	second.StartTime = 100

	top := TopN([]Streak{first, second}, 2)
	if top[0].StartTime != 100 {
		t.Errorf("tied streaks should surface in reversed input order, got StartTime %d first", top[0].StartTime)
	}
}

func TestTopNTruncates(t *testing.T) {
	var streaks []Streak
	for i := 2; i < 20; i++ {
		streaks = append(streaks, mkStreak(i, 1000))
	}

	top := TopN(streaks, DefaultTopN)
	if len(top) != DefaultTopN {
		t.Fatalf("expected %d streaks, got %d", DefaultTopN, len(top))
	}
	if top[0].StreakLength != 19 {
		t.Errorf("best streak length = %d, want 19", top[0].StreakLength)
	}
}
