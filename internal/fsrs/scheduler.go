package fsrs

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/conorfennell/knoldeck/internal/domain"
)

const day = 24 * time.Hour

// MaxInterval is the longest review interval in days. Larger values would
// overflow a time.Duration when the due date is computed.
const MaxInterval = 36500

// Config configures a Scheduler. Zero values are replaced by defaults.
type Config struct {
	Weights          [19]float64     `koanf:"weights"`           // zero → DefaultWeights
	DesiredRetention float64         `koanf:"desired_retention"` // zero → 0.9
	LearningSteps    []time.Duration `koanf:"learning_steps"`    // nil → [1m, 10m]
	RelearningSteps  []time.Duration `koanf:"relearning_steps"`  // nil → [10m]
	MaximumInterval  int             `koanf:"maximum_interval"`  // zero → 36500 days
	EnableFuzz       bool            `koanf:"enable_fuzz"`
}

// DefaultConfig returns the configuration used by the application.
func DefaultConfig() Config {
	return Config{
		Weights:          DefaultWeights,
		DesiredRetention: 0.9,
		LearningSteps:    []time.Duration{time.Minute, 10 * time.Minute},
		RelearningSteps:  []time.Duration{10 * time.Minute},
		MaximumInterval:  MaxInterval,
		EnableFuzz:       true,
	}
}

// Scheduler computes the next scheduling state of a card after a review.
// It holds no mutable state and is safe for concurrent use.
type Scheduler struct {
	model            model
	desiredRetention float64
	learningSteps    []time.Duration
	relearningSteps  []time.Duration
	maximumInterval  int
	enableFuzz       bool
}

// NewScheduler validates cfg and builds a Scheduler.
func NewScheduler(cfg Config) (*Scheduler, error) {
	def := DefaultConfig()
	if cfg.Weights == [19]float64{} {
		cfg.Weights = def.Weights
	}
	if err := ValidateWeights(cfg.Weights); err != nil {
		return nil, err
	}
	if cfg.DesiredRetention == 0 {
		cfg.DesiredRetention = def.DesiredRetention
	}
	if cfg.DesiredRetention <= 0 || cfg.DesiredRetention > 1 {
		return nil, fmt.Errorf("%w: desired retention %f out of range (0, 1]", ErrInvalidConfig, cfg.DesiredRetention)
	}
	if cfg.MaximumInterval == 0 {
		cfg.MaximumInterval = def.MaximumInterval
	}
	if cfg.MaximumInterval < 0 || cfg.MaximumInterval > MaxInterval {
		return nil, fmt.Errorf("%w: maximum interval %d out of range [1, %d]", ErrInvalidConfig, cfg.MaximumInterval, MaxInterval)
	}
	if cfg.LearningSteps == nil {
		cfg.LearningSteps = def.LearningSteps
	}
	if cfg.RelearningSteps == nil {
		cfg.RelearningSteps = def.RelearningSteps
	}
	if err := validateSteps("learning", cfg.LearningSteps); err != nil {
		return nil, err
	}
	if err := validateSteps("relearning", cfg.RelearningSteps); err != nil {
		return nil, err
	}

	return &Scheduler{
		model:            model{w: cfg.Weights},
		desiredRetention: cfg.DesiredRetention,
		learningSteps:    append([]time.Duration(nil), cfg.LearningSteps...),
		relearningSteps:  append([]time.Duration(nil), cfg.RelearningSteps...),
		maximumInterval:  cfg.MaximumInterval,
		enableFuzz:       cfg.EnableFuzz,
	}, nil
}

func validateSteps(kind string, steps []time.Duration) error {
	if len(steps) == 0 {
		return fmt.Errorf("%w: at least one %s step is required", ErrInvalidConfig, kind)
	}
	for i, st := range steps {
		if st <= 0 {
			return fmt.Errorf("%w: %s step %d is %v", ErrInvalidConfig, kind, i, st)
		}
	}
	return nil
}

// Schedule returns the card as it stands after being reviewed with rating
// at now. The input card is never modified.
func (s *Scheduler) Schedule(card domain.Card, rating Rating, now time.Time) (domain.Card, error) {
	if !rating.IsValid() {
		return card, fmt.Errorf("%w: %d", ErrInvalidRating, int(rating))
	}
	return s.outcomes(card, now)[rating], nil
}

// Prediction holds the due time each rating would produce.
type Prediction struct {
	Again time.Time
	Hard  time.Time
	Good  time.Time
	Easy  time.Time
}

// For returns the predicted due time for r.
func (p Prediction) For(r Rating) time.Time {
	switch r {
	case Again:
		return p.Again
	case Hard:
		return p.Hard
	case Good:
		return p.Good
	default:
		return p.Easy
	}
}

// Predict returns the due time each rating would produce without committing
// anything. Used to label the rating buttons.
func (s *Scheduler) Predict(card domain.Card, now time.Time) Prediction {
	out := s.outcomes(card, now)
	return Prediction{
		Again: out[Again].Due,
		Hard:  out[Hard].Due,
		Good:  out[Good].Due,
		Easy:  out[Easy].Due,
	}
}

// Preview returns the full card each rating would produce.
func (s *Scheduler) Preview(card domain.Card, now time.Time) map[Rating]domain.Card {
	out := s.outcomes(card, now)
	preview := make(map[Rating]domain.Card, len(Ratings))
	for _, r := range Ratings {
		preview[r] = out[r]
	}
	return preview
}

// Retrievability returns the probability of recalling the card at now.
// Cards that have never been reviewed report 0.
func (s *Scheduler) Retrievability(card domain.Card, now time.Time) float64 {
	if card.State == domain.New || card.LastReview == nil {
		return 0
	}
	card.Normalize()
	return s.model.retrievability(float64(elapsedDays(card, now)), card.Stability)
}

// elapsedDays counts whole days since the last review. Clock skew clamps to 0.
func elapsedDays(c domain.Card, now time.Time) int {
	if c.LastReview == nil || c.State == domain.New {
		return 0
	}
	return max(int(now.Sub(*c.LastReview)/day), 0)
}

// outcome is a candidate next card plus, for step states, the delay until it
// is due again.
type outcome struct {
	card  domain.Card
	delay time.Duration
}

type outcomeSet [len(Ratings) + 1]outcome

// outcomes computes the next card for every rating, indexed by Rating.
func (s *Scheduler) outcomes(card domain.Card, now time.Time) [len(Ratings) + 1]domain.Card {
	cur := card.Clone()
	cur.Normalize()
	elapsed := elapsedDays(cur, now)

	var set outcomeSet
	for _, r := range Ratings {
		next := cur.Clone()
		next.ElapsedDays = elapsed
		next.Reps = cur.Reps + 1
		reviewedAt := now
		next.LastReview = &reviewedAt
		next.UpdatedAt = now
		s.updateMemory(&next, cur, r, elapsed)
		set[r].card = next
	}

	switch cur.State {
	case domain.New:
		s.fromNew(&set)
	case domain.Learning:
		s.fromSteps(&set, cur.Step, domain.Learning, s.learningSteps)
	case domain.Relearning:
		s.fromSteps(&set, cur.Step, domain.Relearning, s.relearningSteps)
	case domain.Review:
		s.fromReview(&set)
	}

	var rng *rand.Rand
	if s.enableFuzz {
		rng = fuzzSource(now, cur.Reps, cur.Stability, cur.Difficulty)
	}
	s.finalize(&set, cur.State, now, rng)

	var out [len(Ratings) + 1]domain.Card
	for _, r := range Ratings {
		out[r] = set[r].card
	}
	return out
}

// updateMemory writes the new stability and difficulty for rating r.
func (s *Scheduler) updateMemory(next *domain.Card, cur domain.Card, r Rating, elapsed int) {
	switch {
	case cur.State == domain.New:
		next.Stability = s.model.initStability(r)
		next.Difficulty = clampDifficulty(s.model.initDifficulty(r))
	case cur.State.InStep() && elapsed == 0:
		next.Stability = s.model.shortTermStability(cur.Stability, r)
		next.Difficulty = s.model.nextDifficulty(cur.Difficulty, r)
	default:
		retr := s.model.retrievability(float64(elapsed), cur.Stability)
		next.Stability = s.model.nextStability(cur.Difficulty, cur.Stability, retr, r)
		next.Difficulty = s.model.nextDifficulty(cur.Difficulty, r)
	}
}

// fromNew: a first Good always stays in Learning, Easy skips the steps.
func (s *Scheduler) fromNew(set *outcomeSet) {
	steps := s.learningSteps
	set[Again].toStep(domain.Learning, 0, steps[0])
	set[Hard].toStep(domain.Learning, 0, hardDelay(steps, 0))
	next := min(1, len(steps)-1)
	set[Good].toStep(domain.Learning, next, steps[next])
	s.graduate(&set[Easy])
}

func (s *Scheduler) fromSteps(set *outcomeSet, step int, state domain.State, steps []time.Duration) {
	step = min(step, len(steps)-1)
	set[Again].toStep(state, 0, steps[0])
	set[Hard].toStep(state, step, hardDelay(steps, step))
	if step+1 < len(steps) {
		set[Good].toStep(state, step+1, steps[step+1])
	} else {
		s.graduate(&set[Good])
	}
	s.graduate(&set[Easy])
}

func (s *Scheduler) fromReview(set *outcomeSet) {
	set[Again].card.Lapses++
	set[Again].toStep(domain.Relearning, 0, s.relearningSteps[0])
	for _, r := range []Rating{Hard, Good, Easy} {
		s.graduate(&set[r])
	}
}

// graduate moves a card into Review with an interval derived from its stability.
func (s *Scheduler) graduate(o *outcome) {
	o.card.State = domain.Review
	o.card.Step = 0
	o.card.ScheduledDays = interval(o.card.Stability, s.desiredRetention, s.maximumInterval)
	o.delay = 0
}

func (o *outcome) toStep(state domain.State, step int, delay time.Duration) {
	o.card.State = state
	o.card.Step = step
	o.card.ScheduledDays = 0
	o.delay = delay
}

// hardDelay repeats the current step with a longer wait. A single step waits
// half again as long, the first of several waits halfway to the second, and
// any later step simply repeats.
func hardDelay(steps []time.Duration, step int) time.Duration {
	switch {
	case len(steps) == 1:
		return steps[0] * 3 / 2
	case step == 0:
		return (steps[0] + steps[1]) / 2
	default:
		return steps[step]
	}
}

// finalize fuzzes and orders review intervals and resolves every outcome's
// due time against now.
func (s *Scheduler) finalize(set *outcomeSet, from domain.State, now time.Time, rng *rand.Rand) {
	if rng != nil {
		for _, r := range Ratings {
			if c := &set[r].card; c.State == domain.Review {
				c.ScheduledDays = applyFuzz(c.ScheduledDays, s.maximumInterval, rng)
			}
		}
	}

	if from == domain.Review {
		hard, good, easy := &set[Hard].card.ScheduledDays, &set[Good].card.ScheduledDays, &set[Easy].card.ScheduledDays
		*hard = min(*hard, *good)
		*good = min(max(*good, *hard+1), s.maximumInterval)
		*easy = min(max(*easy, *good+1), s.maximumInterval)
	}

	for _, r := range Ratings {
		o := &set[r]
		if o.card.State == domain.Review {
			o.card.Due = now.Add(time.Duration(o.card.ScheduledDays) * day)
		} else {
			o.card.Due = now.Add(o.delay)
		}
	}
}
