package storage

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/conorfennell/knoldeck/internal/domain"
)

// Memory is an in-process Store. It follows the same rules as DB and is
// used by tests and the CLI's --db-driver=memory mode.
type Memory struct {
	mu sync.Mutex
	memoryState
	log []domain.Event
}

type memoryState struct {
	decks    map[string]domain.Deck
	cards    map[string]domain.Card
	admitted map[string]time.Time // card ID → admission time
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{memoryState: memoryState{
		decks:    make(map[string]domain.Deck),
		cards:    make(map[string]domain.Card),
		admitted: make(map[string]time.Time),
	}}
}

func (m *Memory) QueryCard(_ context.Context, id string) (domain.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok {
		return domain.Card{}, fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	return c.Clone(), nil
}

func (m *Memory) QueryDeck(_ context.Context, id string) (domain.Deck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.decks[id]
	if !ok {
		return domain.Deck{}, fmt.Errorf("deck %s: %w", id, ErrNotFound)
	}
	return d, nil
}

func (m *Memory) QueryCardsByDeck(_ context.Context, deckID string) ([]domain.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cards := []domain.Card{}
	for _, c := range m.cards {
		if c.DeckID == deckID {
			cards = append(cards, c.Clone())
		}
	}
	sort.Slice(cards, func(i, j int) bool {
		if !cards[i].CreatedAt.Equal(cards[j].CreatedAt) {
			return cards[i].CreatedAt.Before(cards[j].CreatedAt)
		}
		return cards[i].ID < cards[j].ID
	})
	return cards, nil
}

func (m *Memory) QueryDecksByUser(_ context.Context, userID string) ([]domain.Deck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	decks := []domain.Deck{}
	for _, d := range m.decks {
		if d.UserID == userID {
			decks = append(decks, d)
		}
	}
	sort.Slice(decks, func(i, j int) bool {
		if !decks[i].CreatedAt.Equal(decks[j].CreatedAt) {
			return decks[i].CreatedAt.Before(decks[j].CreatedAt)
		}
		return decks[i].ID < decks[j].ID
	})
	return decks, nil
}

func (m *Memory) QueryAdmitted(_ context.Context, deckID string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool)
	for id := range m.admitted {
		if c, ok := m.cards[id]; ok && c.DeckID == deckID && c.State == domain.New {
			out[id] = true
		}
	}
	return out, nil
}

// Commit applies events to a copy of the state and swaps it in only when
// every event succeeded.
func (m *Memory) Commit(_ context.Context, events ...domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := memoryState{
		decks:    maps.Clone(m.decks),
		cards:    maps.Clone(m.cards),
		admitted: maps.Clone(m.admitted),
	}
	for _, ev := range events {
		if err := next.apply(ev); err != nil {
			return fmt.Errorf("failed to apply %s: %w", ev.Name(), err)
		}
	}
	m.memoryState = next
	m.log = append(m.log, events...)
	return nil
}

// Events returns every committed event in order.
func (m *Memory) Events() []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Event(nil), m.log...)
}

func (s *memoryState) apply(ev domain.Event) error {
	switch e := ev.(type) {
	case domain.DeckCreated:
		if _, ok := s.decks[e.Deck.ID]; ok {
			return fmt.Errorf("deck %s already exists", e.Deck.ID)
		}
		s.decks[e.Deck.ID] = e.Deck

	case domain.DeckUpdated:
		d, ok := s.decks[e.ID]
		if !ok {
			return fmt.Errorf("deck %s: %w", e.ID, ErrNotFound)
		}
		if e.Patch.LastReset != nil && !d.Policy.LastReset.Before(*e.Patch.LastReset) {
			return fmt.Errorf("deck %s: %w", e.ID, ErrStaleReset)
		}
		s.decks[e.ID] = d.Apply(e.Patch, e.UpdatedAt)

	case domain.DeckDeleted:
		if _, ok := s.decks[e.ID]; !ok {
			return fmt.Errorf("deck %s: %w", e.ID, ErrNotFound)
		}
		for id, c := range s.cards {
			if c.DeckID == e.ID {
				delete(s.cards, id)
				delete(s.admitted, id)
			}
		}
		delete(s.decks, e.ID)

	case domain.CardCreated:
		if _, ok := s.decks[e.Card.DeckID]; !ok {
			return fmt.Errorf("deck %s: %w", e.Card.DeckID, ErrNotFound)
		}
		if _, ok := s.cards[e.Card.ID]; !ok {
			s.cards[e.Card.ID] = e.Card.Clone()
		}

	case domain.CardReviewed:
		c, ok := s.cards[e.ID]
		if !ok {
			return fmt.Errorf("card %s: %w", e.ID, ErrNotFound)
		}
		e.ApplyTo(&c)
		s.cards[e.ID] = c

	case domain.CardDeleted:
		if _, ok := s.cards[e.ID]; !ok {
			return fmt.Errorf("card %s: %w", e.ID, ErrNotFound)
		}
		delete(s.cards, e.ID)
		delete(s.admitted, e.ID)

	case domain.CardsAdmitted:
		for _, id := range e.CardIDs {
			c, ok := s.cards[id]
			if !ok || c.DeckID != e.DeckID || c.State != domain.New {
				continue
			}
			if _, done := s.admitted[id]; !done {
				s.admitted[id] = e.At
			}
		}

	case domain.ResetDeck:
		d, ok := s.decks[e.ID]
		if !ok {
			return fmt.Errorf("deck %s: %w", e.ID, ErrNotFound)
		}
		d.Policy.LastReset = domain.NeverReset
		s.decks[e.ID] = d

	case domain.ResetCards:
		if _, ok := s.decks[e.ID]; !ok {
			return fmt.Errorf("deck %s: %w", e.ID, ErrNotFound)
		}
		for id, c := range s.cards {
			if c.DeckID != e.ID {
				continue
			}
			fresh := domain.NewCard(c.ID, c.DeckID, e.At)
			fresh.Front, fresh.Back, fresh.Context = c.Front, c.Back, c.Context
			fresh.CreatedAt = c.CreatedAt
			s.cards[id] = fresh
			delete(s.admitted, id)
		}

	default:
		return fmt.Errorf("%w: %s", ErrUnknownEvent, ev.Name())
	}
	return nil
}
