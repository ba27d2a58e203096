package domain

import (
	"fmt"
	"math"
	"time"
)

// State is the learning stage of a card.
// The numeric values are persisted and must not change.
type State int

const (
	New        State = 0
	Learning   State = 1
	Review     State = 2
	Relearning State = 3
)

var stateNames = [...]string{New: "New", Learning: "Learning", Review: "Review", Relearning: "Relearning"}

// IsValid reports whether s is one of the four known states.
func (s State) IsValid() bool {
	return s >= New && s <= Relearning
}

func (s State) String() string {
	if s.IsValid() {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// InStep reports whether the card is walking a learning or relearning step sequence.
func (s State) InStep() bool {
	return s == Learning || s == Relearning
}

const (
	// MinStability is the floor applied to every stability value.
	MinStability = 0.1
	// MinDifficulty and MaxDifficulty bound the difficulty estimate.
	MinDifficulty = 1.0
	MaxDifficulty = 10.0
	// DefaultDifficulty is carried by cards that have never been reviewed.
	DefaultDifficulty = 5.0
)

// Card is a single flashcard together with its scheduling state.
type Card struct {
	ID      string `json:"id"`
	DeckID  string `json:"deck_id"`
	Front   string `json:"front"`
	Back    string `json:"back"`
	Context string `json:"context,omitempty"`

	Due           time.Time  `json:"due"`
	Stability     float64    `json:"stability"`
	Difficulty    float64    `json:"difficulty"`
	ElapsedDays   int        `json:"elapsed_days"`
	ScheduledDays int        `json:"scheduled_days"`
	Reps          int        `json:"reps"`
	Lapses        int        `json:"lapses"`
	State         State      `json:"state"`
	Step          int        `json:"learning_steps"`
	LastReview    *time.Time `json:"last_review"` // nil before the first review

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCard returns an unstudied card that is due at now.
func NewCard(id, deckID string, now time.Time) Card {
	return Card{
		ID:         id,
		DeckID:     deckID,
		Due:        now,
		Stability:  MinStability,
		Difficulty: DefaultDifficulty,
		State:      New,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Clone returns a copy of c that shares no pointers with it.
func (c Card) Clone() Card {
	out := c
	if c.LastReview != nil {
		v := *c.LastReview
		out.LastReview = &v
	}
	return out
}

// Normalize repairs out-of-range scheduling fields in place.
// Cards coming from legacy imports are clamped rather than rejected.
func (c *Card) Normalize() {
	if math.IsNaN(c.Stability) || c.Stability < MinStability {
		c.Stability = MinStability
	}
	switch {
	case math.IsNaN(c.Difficulty):
		c.Difficulty = DefaultDifficulty
	case c.Difficulty < MinDifficulty:
		c.Difficulty = MinDifficulty
	case c.Difficulty > MaxDifficulty:
		c.Difficulty = MaxDifficulty
	}
	c.ElapsedDays = max(c.ElapsedDays, 0)
	c.ScheduledDays = max(c.ScheduledDays, 0)
	c.Reps = max(c.Reps, 0)
	c.Lapses = max(c.Lapses, 0)
	c.Step = max(c.Step, 0)
	if !c.State.IsValid() {
		c.State = New
	}
	if c.LastReview != nil && c.LastReview.After(c.Due) {
		c.Due = *c.LastReview
	}
}

// Reviewed converts the scheduling fields of c into the event that persists them.
func (c Card) Reviewed(rating int, updatedAt time.Time) CardReviewed {
	var last time.Time
	if c.LastReview != nil {
		last = *c.LastReview
	}
	return CardReviewed{
		ID:            c.ID,
		Rating:        rating,
		Due:           c.Due,
		Stability:     c.Stability,
		Difficulty:    c.Difficulty,
		ElapsedDays:   c.ElapsedDays,
		ScheduledDays: c.ScheduledDays,
		Reps:          c.Reps,
		Lapses:        c.Lapses,
		State:         c.State,
		Step:          c.Step,
		LastReview:    last,
		UpdatedAt:     updatedAt,
	}
}

// ApplyTo copies the scheduling fields carried by e onto c.
func (e CardReviewed) ApplyTo(c *Card) {
	c.Due = e.Due
	c.Stability = e.Stability
	c.Difficulty = e.Difficulty
	c.ElapsedDays = e.ElapsedDays
	c.ScheduledDays = e.ScheduledDays
	c.Reps = e.Reps
	c.Lapses = e.Lapses
	c.State = e.State
	c.Step = e.Step
	if e.LastReview.IsZero() {
		c.LastReview = nil
	} else {
		last := e.LastReview
		c.LastReview = &last
	}
	c.UpdatedAt = e.UpdatedAt
}
