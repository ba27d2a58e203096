package fsrs

import (
	"math"

	"github.com/conorfennell/knoldeck/internal/domain"
)

const (
	// decay is the exponent of the power forgetting curve.
	decay = -0.5
	// factor is chosen so that R(S, S) = 0.9.
	factor = 19.0 / 81.0
)

// model evaluates the FSRS memory formulas for a fixed weight vector.
type model struct {
	w [19]float64
}

// retrievability computes R(t, S) = (1 + FACTOR * t / S) ^ DECAY.
func (m model) retrievability(elapsedDays, stability float64) float64 {
	return math.Pow(1+factor*elapsedDays/stability, decay)
}

// initStability returns S0(G) = w[G-1].
func (m model) initStability(r Rating) float64 {
	return clampStability(m.w[r-1])
}

// initDifficulty returns D0(G) = w4 - e^(w5 * (G - 1)) + 1, unclamped.
func (m model) initDifficulty(r Rating) float64 {
	return m.w[4] - math.Exp(m.w[5]*float64(r-1)) + 1
}

// nextDifficulty applies the rating delta with linear damping and then
// reverts toward D0(Easy).
func (m model) nextDifficulty(d float64, r Rating) float64 {
	delta := -m.w[6] * (float64(r) - 3)
	next := d + delta*(10-d)/9
	reverted := m.w[7]*m.initDifficulty(Easy) + (1-m.w[7])*next
	return clampDifficulty(reverted)
}

// shortTermStability is used for reviews made on the same day as the
// previous one: S' = S * e^(w17 * (G - 3 + w18)).
func (m model) shortTermStability(s float64, r Rating) float64 {
	return clampStability(s * math.Exp(m.w[17]*(float64(r)-3+m.w[18])))
}

// nextStability dispatches to the recall or forget formula.
func (m model) nextStability(d, s, retr float64, r Rating) float64 {
	if r == Again {
		return clampStability(m.forgetStability(d, s, retr))
	}
	return clampStability(m.recallStability(d, s, retr, r))
}

// recallStability:
// S' = S * (1 + e^w8 * (11-D) * S^(-w9) * (e^((1-R)*w10) - 1) * hardPenalty * easyBonus)
func (m model) recallStability(d, s, retr float64, r Rating) float64 {
	hardPenalty := 1.0
	if r == Hard {
		hardPenalty = m.w[15]
	}
	easyBonus := 1.0
	if r == Easy {
		easyBonus = m.w[16]
	}
	return s * (1 + math.Exp(m.w[8])*
		(11-d)*
		math.Pow(s, -m.w[9])*
		(math.Exp((1-retr)*m.w[10])-1)*
		hardPenalty*easyBonus)
}

// forgetStability never exceeds the stability the card had before the lapse.
// S'_f = w11 * D^(-w12) * ((S+1)^w13 - 1) * e^((1-R)*w14)
func (m model) forgetStability(d, s, retr float64) float64 {
	sf := m.w[11] *
		math.Pow(d, -m.w[12]) *
		(math.Pow(s+1, m.w[13]) - 1) *
		math.Exp((1-retr)*m.w[14])
	return math.Min(sf, s)
}

// interval converts a stability into whole days for the desired retention.
// I = round(S / FACTOR * (r^(1/DECAY) - 1)), clamped to [1, maxIvl].
func interval(stability, desiredRetention float64, maxIvl int) int {
	ivl := stability / factor * (math.Pow(desiredRetention, 1/decay) - 1)
	days := int(math.Round(ivl))
	return min(max(days, 1), maxIvl)
}

func clampStability(s float64) float64 {
	if math.IsNaN(s) {
		return domain.MinStability
	}
	return math.Max(s, domain.MinStability)
}

func clampDifficulty(d float64) float64 {
	return math.Min(math.Max(d, domain.MinDifficulty), domain.MaxDifficulty)
}
