// Package queue selects the cards that should be reviewed next.
package queue

import (
	"sort"
	"time"

	"github.com/conorfennell/knoldeck/internal/domain"
)

// DefaultLookahead lets learning steps that fall due in the next few minutes
// be shown without waiting.
const DefaultLookahead = 10 * time.Minute

// Gate decides whether a New card has been admitted into rotation.
type Gate interface {
	Admitted(cardID string) bool
}

// AdmittedSet is a Gate backed by a set of card IDs.
type AdmittedSet map[string]bool

func (a AdmittedSet) Admitted(cardID string) bool { return a[cardID] }

// DueCards returns the cards that are not New and fall due no later than
// now+lookahead, earliest first. The input slice is left untouched.
func DueCards(cards []domain.Card, now time.Time, lookahead time.Duration) []domain.Card {
	return Select(cards, now, lookahead, nil)
}

// Select is DueCards with New cards also eligible once gate admits them.
// A nil gate admits nothing.
func Select(cards []domain.Card, now time.Time, lookahead time.Duration, gate Gate) []domain.Card {
	cutoff := now.Add(max(lookahead, 0))

	var due []domain.Card
	for _, c := range cards {
		if c.State == domain.New && (gate == nil || !gate.Admitted(c.ID)) {
			continue
		}
		if c.Due.After(cutoff) {
			continue
		}
		due = append(due, c)
	}

	sort.SliceStable(due, func(i, j int) bool {
		if !due[i].Due.Equal(due[j].Due) {
			return due[i].Due.Before(due[j].Due)
		}
		return due[i].ID < due[j].ID
	})
	return due
}

// StateCounts is the number of cards in each learning state.
type StateCounts struct {
	New        int `json:"new"`
	Learning   int `json:"learning"`
	Review     int `json:"review"`
	Relearning int `json:"relearning"`
}

// Total returns the number of cards counted.
func (s StateCounts) Total() int {
	return s.New + s.Learning + s.Review + s.Relearning
}

// InSteps returns the number of cards in a learning or relearning step.
func (s StateCounts) InSteps() int {
	return s.Learning + s.Relearning
}

// Counts tallies cards by state. Unknown states count as New.
func Counts(cards []domain.Card) StateCounts {
	var sc StateCounts
	for _, c := range cards {
		switch c.State {
		case domain.Learning:
			sc.Learning++
		case domain.Review:
			sc.Review++
		case domain.Relearning:
			sc.Relearning++
		default:
			sc.New++
		}
	}
	return sc
}
