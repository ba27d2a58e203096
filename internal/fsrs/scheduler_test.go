package fsrs

import (
	"errors"
	"testing"
	"time"

	"github.com/conorfennell/knoldeck/internal/domain"
)

func mustScheduler(t *testing.T, cfg Config) *Scheduler {
	t.Helper()
	s, err := NewScheduler(cfg)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	return s
}

func noFuzz() Config {
	cfg := DefaultConfig()
	cfg.EnableFuzz = false
	return cfg
}

func mustSchedule(t *testing.T, s *Scheduler, c domain.Card, r Rating, now time.Time) domain.Card {
	t.Helper()
	next, err := s.Schedule(c, r, now)
	if err != nil {
		t.Fatalf("Schedule(%v): %v", r, err)
	}
	return next
}

// cardIn returns a card that has been walked into the given state.
func cardIn(t *testing.T, s *Scheduler, state domain.State) domain.Card {
	t.Helper()
	c := domain.NewCard("c", "d", t0)
	switch state {
	case domain.New:
	case domain.Learning:
		c = mustSchedule(t, s, c, Again, t0)
	case domain.Review:
		c = mustSchedule(t, s, c, Easy, t0)
	case domain.Relearning:
		c = mustSchedule(t, s, c, Easy, t0)
		c = mustSchedule(t, s, c, Again, c.Due)
	}
	if c.State != state {
		t.Fatalf("setup: card in %v, want %v", c.State, state)
	}
	return c
}

func TestNewSchedulerRejectsBadConfig(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(c *Config)
		want   error
	}{
		{"retention above 1", func(c *Config) { c.DesiredRetention = 1.5 }, ErrInvalidConfig},
		{"negative retention", func(c *Config) { c.DesiredRetention = -0.1 }, ErrInvalidConfig},
		{"negative max interval", func(c *Config) { c.MaximumInterval = -1 }, ErrInvalidConfig},
		{"max interval past a century", func(c *Config) { c.MaximumInterval = 200000 }, ErrInvalidConfig},
		{"empty learning steps", func(c *Config) { c.LearningSteps = []time.Duration{} }, ErrInvalidConfig},
		{"zero relearning step", func(c *Config) { c.RelearningSteps = []time.Duration{0} }, ErrInvalidConfig},
		{"weight out of bounds", func(c *Config) { c.Weights[0] = -1 }, ErrInvalidWeights},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if _, err := NewScheduler(cfg); !errors.Is(err, tc.want) {
				t.Errorf("NewScheduler() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestNewSchedulerZeroConfig(t *testing.T) {
	s := mustScheduler(t, Config{})
	if s.desiredRetention != 0.9 || s.maximumInterval != 36500 || len(s.learningSteps) != 2 {
		t.Errorf("zero config not defaulted: %+v", s)
	}
}

func TestTransitionTable(t *testing.T) {
	s := mustScheduler(t, noFuzz())
	table := map[domain.State]map[Rating]domain.State{
		domain.New:        {Again: domain.Learning, Hard: domain.Learning, Good: domain.Learning, Easy: domain.Review},
		domain.Learning:   {Again: domain.Learning, Hard: domain.Learning, Good: domain.Learning, Easy: domain.Review},
		domain.Review:     {Again: domain.Relearning, Hard: domain.Review, Good: domain.Review, Easy: domain.Review},
		domain.Relearning: {Again: domain.Relearning, Hard: domain.Relearning, Good: domain.Review, Easy: domain.Review},
	}

	for from, row := range table {
		for r, want := range row {
			t.Run(from.String()+"/"+r.String(), func(t *testing.T) {
				c := cardIn(t, s, from)
				now := c.Due
				next := mustSchedule(t, s, c, r, now)
				if next.State != want {
					t.Errorf("state = %v, want %v", next.State, want)
				}
				if next.Reps != c.Reps+1 {
					t.Errorf("reps = %d, want %d", next.Reps, c.Reps+1)
				}
				wantLapses := c.Lapses
				if from == domain.Review && r == Again {
					wantLapses++
				}
				if next.Lapses != wantLapses {
					t.Errorf("lapses = %d, want %d", next.Lapses, wantLapses)
				}
				if next.Due.Before(now) {
					t.Errorf("due %v is before review time %v", next.Due, now)
				}
				if next.LastReview == nil || !next.LastReview.Equal(now) {
					t.Errorf("last review = %v, want %v", next.LastReview, now)
				}
			})
		}
	}
}

func TestLearningGoodAtSecondStepGraduates(t *testing.T) {
	s := mustScheduler(t, noFuzz())
	c := domain.NewCard("c", "d", t0)

	c = mustSchedule(t, s, c, Good, t0)
	if c.State != domain.Learning || c.Step != 1 {
		t.Fatalf("after first Good: state %v step %d, want Learning step 1", c.State, c.Step)
	}
	if want := t0.Add(10 * time.Minute); !c.Due.Equal(want) {
		t.Errorf("Due = %v, want %v", c.Due, want)
	}

	now := t0.Add(10 * time.Minute)
	c = mustSchedule(t, s, c, Good, now)
	if c.State != domain.Review {
		t.Fatalf("state = %v, want Review", c.State)
	}
	// Same-day review: S = 3.173 * e^(0.51655 * 0.6621) ≈ 4.467 → 4 days.
	assertFloat(t, "Stability", c.Stability, 4.466858)
	if c.ScheduledDays != 4 {
		t.Errorf("ScheduledDays = %d, want 4", c.ScheduledDays)
	}
	if want := now.Add(4 * day); !c.Due.Equal(want) {
		t.Errorf("Due = %v, want %v", c.Due, want)
	}
}

func TestStepDelays(t *testing.T) {
	s := mustScheduler(t, noFuzz())
	c := domain.NewCard("c", "d", t0)

	again := mustSchedule(t, s, c, Again, t0)
	if want := t0.Add(time.Minute); !again.Due.Equal(want) || again.Step != 0 {
		t.Errorf("Again: due %v step %d, want %v step 0", again.Due, again.Step, want)
	}
	hard := mustSchedule(t, s, c, Hard, t0)
	if want := t0.Add(5*time.Minute + 30*time.Second); !hard.Due.Equal(want) {
		t.Errorf("Hard: due %v, want %v", hard.Due, want)
	}
	if hard.ScheduledDays != 0 {
		t.Errorf("Hard: scheduled days %d, want 0 for a step", hard.ScheduledDays)
	}

	t.Run("hard on a later step repeats it", func(t *testing.T) {
		step1 := mustSchedule(t, s, c, Good, t0)
		now := step1.Due
		next := mustSchedule(t, s, step1, Hard, now)
		if want := now.Add(10 * time.Minute); !next.Due.Equal(want) || next.Step != 1 {
			t.Errorf("due %v step %d, want %v step 1", next.Due, next.Step, want)
		}
	})

	t.Run("hard with a single step waits half again as long", func(t *testing.T) {
		relearn := cardIn(t, s, domain.Relearning)
		now := relearn.Due
		next := mustSchedule(t, s, relearn, Hard, now)
		if want := now.Add(15 * time.Minute); !next.Due.Equal(want) || next.State != domain.Relearning {
			t.Errorf("due %v state %v, want %v Relearning", next.Due, next.State, want)
		}
	})

	t.Run("again resets to the first step", func(t *testing.T) {
		step1 := mustSchedule(t, s, c, Good, t0)
		next := mustSchedule(t, s, step1, Again, step1.Due)
		if next.Step != 0 || !next.Due.Equal(step1.Due.Add(time.Minute)) {
			t.Errorf("step %d due %v", next.Step, next.Due)
		}
	})
}

func TestNewCardEasy(t *testing.T) {
	s := mustScheduler(t, noFuzz())
	c := mustSchedule(t, s, domain.NewCard("c", "d", t0), Easy, t0)

	if c.State != domain.Review || c.Reps != 1 || c.Lapses != 0 {
		t.Errorf("state %v reps %d lapses %d, want Review 1 0", c.State, c.Reps, c.Lapses)
	}
	assertFloat(t, "Stability", c.Stability, 15.69105)
	assertFloat(t, "Difficulty", c.Difficulty, 3.224502)
	if want := t0.Add(16 * day); !c.Due.Equal(want) {
		t.Errorf("Due = %v, want %v", c.Due, want)
	}
}

func TestReviewAgainLapses(t *testing.T) {
	s := mustScheduler(t, noFuzz())
	c := cardIn(t, s, domain.Review)
	now := c.Due

	next := mustSchedule(t, s, c, Again, now)
	if next.State != domain.Relearning || next.Lapses != c.Lapses+1 {
		t.Errorf("state %v lapses %d", next.State, next.Lapses)
	}
	if next.Stability >= c.Stability {
		t.Errorf("stability %.3f did not drop below %.3f", next.Stability, c.Stability)
	}
	if want := now.Add(10 * time.Minute); !next.Due.Equal(want) {
		t.Errorf("Due = %v, want %v", next.Due, want)
	}
	if next.ElapsedDays != 16 {
		t.Errorf("ElapsedDays = %d, want 16", next.ElapsedDays)
	}
}

func TestReviewIntervalsAreOrdered(t *testing.T) {
	for _, fuzz := range []bool{false, true} {
		cfg := DefaultConfig()
		cfg.EnableFuzz = fuzz
		s := mustScheduler(t, cfg)
		c := cardIn(t, s, domain.Review)

		for i := 0; i < 20; i++ {
			now := c.Due.Add(time.Duration(i) * time.Hour)
			p := s.Preview(c, now)
			hard, good, easy := p[Hard].ScheduledDays, p[Good].ScheduledDays, p[Easy].ScheduledDays
			if !(hard <= good && good < easy) {
				t.Errorf("fuzz=%v: want hard <= good < easy, got %d %d %d", fuzz, hard, good, easy)
			}
		}
	}
}

func TestScheduleRejectsInvalidRating(t *testing.T) {
	s := mustScheduler(t, noFuzz())
	c := domain.NewCard("c", "d", t0)

	for _, r := range []Rating{0, 5, -1} {
		got, err := s.Schedule(c, r, t0)
		if !errors.Is(err, ErrInvalidRating) {
			t.Errorf("Schedule(%d) error = %v, want ErrInvalidRating", r, err)
		}
		if got.Reps != 0 || got.State != domain.New || !got.Due.Equal(c.Due) {
			t.Errorf("Schedule(%d) changed the card: %+v", r, got)
		}
	}
}

func TestPredictHasNoSideEffects(t *testing.T) {
	s := mustScheduler(t, DefaultConfig())
	c := cardIn(t, s, domain.Review)
	before := c.Clone()

	p := s.Predict(c, c.Due)

	if c.Reps != before.Reps || c.Lapses != before.Lapses || !c.Due.Equal(before.Due) ||
		!c.LastReview.Equal(*before.LastReview) {
		t.Errorf("Predict mutated the card: %+v, was %+v", c, before)
	}
	for _, r := range Ratings {
		next := mustSchedule(t, s, c, r, c.Due)
		if !p.For(r).Equal(next.Due) {
			t.Errorf("Predict(%v) = %v, Schedule due = %v", r, p.For(r), next.Due)
		}
	}
}

func TestScheduleIsDeterministicWithFuzz(t *testing.T) {
	s := mustScheduler(t, DefaultConfig())
	c := cardIn(t, s, domain.Review)
	now := c.Due.Add(3 * day)

	first := mustSchedule(t, s, c, Good, now)
	second := mustSchedule(t, s, c, Good, now)
	if !first.Due.Equal(second.Due) {
		t.Errorf("same inputs produced %v and %v", first.Due, second.Due)
	}
}

func TestScheduleNormalizesLegacyCard(t *testing.T) {
	s := mustScheduler(t, noFuzz())
	last := t0.Add(-5 * day)
	legacy := domain.Card{
		ID:         "legacy",
		State:      domain.Review,
		Stability:  -4,
		Difficulty: 0,
		Reps:       -3,
		Lapses:     -1,
		Due:        t0,
		LastReview: &last,
	}

	next := mustSchedule(t, s, legacy, Good, t0)
	if next.Stability < domain.MinStability {
		t.Errorf("Stability = %v, below floor", next.Stability)
	}
	if next.Difficulty < domain.MinDifficulty || next.Difficulty > domain.MaxDifficulty {
		t.Errorf("Difficulty = %v, out of range", next.Difficulty)
	}
	if next.Reps != 1 || next.Lapses != 0 {
		t.Errorf("reps %d lapses %d, want 1 0", next.Reps, next.Lapses)
	}
	if legacy.Stability != -4 {
		t.Error("Schedule normalized the caller's card in place")
	}
}

func TestClockSkewClampsElapsedDays(t *testing.T) {
	s := mustScheduler(t, noFuzz())
	c := cardIn(t, s, domain.Review)
	skewed := c.LastReview.Add(-3 * day)

	next := mustSchedule(t, s, c, Good, skewed)
	if next.ElapsedDays != 0 {
		t.Errorf("ElapsedDays = %d, want 0", next.ElapsedDays)
	}
	if next.Due.Before(skewed) {
		t.Errorf("due %v before review time %v", next.Due, skewed)
	}
}

func TestFuzzStaysWithinBand(t *testing.T) {
	s := mustScheduler(t, DefaultConfig())
	plain := mustScheduler(t, noFuzz())
	c := cardIn(t, s, domain.Review)

	for i := 0; i < 50; i++ {
		now := c.Due.Add(time.Duration(i) * time.Minute)
		fuzzed := mustSchedule(t, s, c, Good, now).ScheduledDays
		base := mustSchedule(t, plain, c, Good, now).ScheduledDays
		delta := fuzzDelta(float64(base))
		if float64(fuzzed) < float64(base)-delta-1 || float64(fuzzed) > float64(base)+delta+1 {
			t.Errorf("fuzzed %d days strays too far from %d (delta %.2f)", fuzzed, base, delta)
		}
	}
}

func TestRetrievabilityOfNewCard(t *testing.T) {
	s := mustScheduler(t, noFuzz())
	if got := s.Retrievability(domain.NewCard("c", "d", t0), t0); got != 0 {
		t.Errorf("Retrievability = %v, want 0", got)
	}
	c := cardIn(t, s, domain.Review)
	if got := s.Retrievability(c, *c.LastReview); got != 1 {
		t.Errorf("Retrievability right after review = %v, want 1", got)
	}
}

func TestParseRating(t *testing.T) {
	for in, want := range map[string]Rating{"again": Again, "Hard": Hard, "3": Good, " EASY ": Easy} {
		got, err := ParseRating(in)
		if err != nil || got != want {
			t.Errorf("ParseRating(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseRating("great"); !errors.Is(err, ErrInvalidRating) {
		t.Errorf("ParseRating(great) error = %v", err)
	}
}
