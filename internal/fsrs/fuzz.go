package fsrs

import (
	"math"
	"math/rand"
	"time"
)

type fuzzRange struct {
	start, end float64
	factor     float64
}

var fuzzRanges = []fuzzRange{
	{2.5, 7.0, 0.15},
	{7.0, 20.0, 0.10},
	{20.0, math.Inf(1), 0.05},
}

// fuzzDelta returns how far, in days, an interval may be moved.
// delta = 1 + sum(factor * max(min(interval, end) - start, 0))
func fuzzDelta(interval float64) float64 {
	delta := 1.0
	for _, r := range fuzzRanges {
		delta += r.factor * math.Max(math.Min(interval, r.end)-r.start, 0)
	}
	return delta
}

// applyFuzz spreads reviews so cards learned together do not stay clumped.
// Intervals shorter than 2.5 days are returned unchanged.
func applyFuzz(days, maxIvl int, rng *rand.Rand) int {
	if float64(days) < 2.5 {
		return days
	}
	ivl := float64(days)
	delta := fuzzDelta(ivl)

	lo := max(2, int(math.Round(ivl-delta)))
	hi := min(int(math.Round(ivl+delta)), maxIvl)
	lo = min(lo, hi)

	return lo + rng.Intn(hi-lo+1)
}

// fuzzSource seeds the jitter from the review inputs, so the same review
// always lands on the same day and a preview matches the committed result.
func fuzzSource(now time.Time, reps int, stability, difficulty float64) *rand.Rand {
	seed := now.UnixNano() ^ int64(reps)<<40 ^ int64(math.Float64bits(stability*difficulty))
	return rand.New(rand.NewSource(seed))
}
