package streak

import "sort"

// DefaultTopN is the leaderboard size used by the presentation layer.
const DefaultTopN = 10

// Compare is a total order over streaks: by length, then by total distance.
// Returns -1, 0 or 1.
func Compare(a, b *Streak) int {
	switch {
	case a.StreakLength < b.StreakLength:
		return -1
	case a.StreakLength > b.StreakLength:
		return 1
	}

	ad, bd := a.TotalDistance(), b.TotalDistance()
	switch {
	case ad < bd:
		return -1
	case ad > bd:
		return 1
	}
	return 0
}

// TopN returns the n best streaks, best first. The ascending sort is
// stable, and the subsequent reverse flips tied entries: streaks equal on
// both keys surface in reverse of input order. Ties at the cutoff are
// dropped by position.
func TopN(streaks []Streak, n int) []Streak {
	ranked := make([]Streak, len(streaks))
	copy(ranked, streaks)

	sort.SliceStable(ranked, func(i, j int) bool {
		return Compare(&ranked[i], &ranked[j]) < 0
	})
	for i, j := 0, len(ranked)-1; i < j; i, j = i+1, j-1 {
		ranked[i], ranked[j] = ranked[j], ranked[i]
	}

	if n >= 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}
