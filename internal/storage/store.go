// Package storage persists decks and cards as a stream of events that are
// materialized by per-event reducers.
package storage

import (
	"context"
	"errors"

	"github.com/conorfennell/knoldeck/internal/domain"
)

var (
	// ErrNotFound is returned when a deck or card does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrStaleReset is returned when a commit tries to move a deck's
	// LastReset to a time that is not newer than the stored one.
	ErrStaleReset = errors.New("storage: deck already reset for this boundary")
	// ErrUnknownEvent is returned for events without a reducer.
	ErrUnknownEvent = errors.New("storage: unknown event")
)

//go:generate mockgen -source=store.go -destination=mock/store.go

// Store is the persistence port used by the study service and the admission
// controller. Commit applies every event or none of them.
type Store interface {
	QueryCard(ctx context.Context, id string) (domain.Card, error)
	QueryDeck(ctx context.Context, id string) (domain.Deck, error)
	// QueryCardsByDeck returns the deck's cards in creation order.
	QueryCardsByDeck(ctx context.Context, deckID string) ([]domain.Card, error)
	QueryDecksByUser(ctx context.Context, userID string) ([]domain.Deck, error)
	// QueryAdmitted returns the IDs of New cards admitted into rotation.
	QueryAdmitted(ctx context.Context, deckID string) (map[string]bool, error)
	Commit(ctx context.Context, events ...domain.Event) error
}
