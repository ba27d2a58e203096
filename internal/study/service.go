// Package study ties the scheduler, the review queue and the store together
// into the operations the CLI exposes.
package study

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conorfennell/knoldeck/internal/clock"
	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/fsrs"
	"github.com/conorfennell/knoldeck/internal/queue"
	"github.com/conorfennell/knoldeck/internal/storage"
)

// Service runs reviews and deck management against a Store.
type Service struct {
	store     storage.Store
	scheduler *fsrs.Scheduler
	clock     clock.Clock
	lookahead time.Duration
	validate  *validator.Validate
	log       *zap.Logger
}

// NewService builds a Service. A zero lookahead selects queue.DefaultLookahead.
func NewService(store storage.Store, scheduler *fsrs.Scheduler, clk clock.Clock, lookahead time.Duration, log *zap.Logger) *Service {
	if lookahead == 0 {
		lookahead = queue.DefaultLookahead
	}
	return &Service{
		store:     store,
		scheduler: scheduler,
		clock:     clk,
		lookahead: lookahead,
		validate:  validator.New(),
		log:       log,
	}
}

// CardInput is the content of a card being added.
type CardInput struct {
	DeckID  string `validate:"required"`
	Front   string `validate:"required,max=4000"`
	Back    string `validate:"max=4000"`
	Context string `validate:"max=4000"`
	// ID overrides the generated ID. Importers pass a content hash here.
	ID string
}

// CreateDeck stores a new deck for userID with the default reset policy.
func (s *Service) CreateDeck(ctx context.Context, userID, name, description string) (domain.Deck, error) {
	now := s.clock.Now()
	deck := domain.Deck{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        name,
		Description: description,
		Policy:      domain.DefaultResetPolicy(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := deck.Validate(); err != nil {
		return domain.Deck{}, err
	}
	if err := s.store.Commit(ctx, domain.DeckCreated{Deck: deck}); err != nil {
		return domain.Deck{}, fmt.Errorf("failed to create deck: %w", err)
	}
	s.log.Info("deck created", zap.String("deck_id", deck.ID), zap.String("name", name))
	return deck, nil
}

// UpdateDeck applies patch after checking that the result is still valid.
func (s *Service) UpdateDeck(ctx context.Context, deckID string, patch domain.DeckPatch) (domain.Deck, error) {
	deck, err := s.store.QueryDeck(ctx, deckID)
	if err != nil {
		return domain.Deck{}, err
	}
	now := s.clock.Now()
	next := deck.Apply(patch, now)
	if err := next.Validate(); err != nil {
		return domain.Deck{}, err
	}
	if err := s.store.Commit(ctx, domain.DeckUpdated{ID: deckID, Patch: patch, UpdatedAt: now}); err != nil {
		return domain.Deck{}, fmt.Errorf("failed to update deck %s: %w", deckID, err)
	}
	return next, nil
}

// DeleteDeck removes a deck and all of its cards.
func (s *Service) DeleteDeck(ctx context.Context, deckID string) error {
	if err := s.store.Commit(ctx, domain.DeckDeleted{ID: deckID}); err != nil {
		return fmt.Errorf("failed to delete deck %s: %w", deckID, err)
	}
	s.log.Info("deck deleted", zap.String("deck_id", deckID))
	return nil
}

// Decks lists the decks owned by userID.
func (s *Service) Decks(ctx context.Context, userID string) ([]domain.Deck, error) {
	return s.store.QueryDecksByUser(ctx, userID)
}

// AddCard stores a New card that is due immediately but waits for admission
// before it is shown.
func (s *Service) AddCard(ctx context.Context, in CardInput) (domain.Card, error) {
	if err := s.validate.Struct(in); err != nil {
		return domain.Card{}, fmt.Errorf("invalid card: %w", err)
	}
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	card := domain.NewCard(id, in.DeckID, s.clock.Now())
	card.Front, card.Back, card.Context = in.Front, in.Back, in.Context

	if err := s.store.Commit(ctx, domain.CardCreated{Card: card}); err != nil {
		return domain.Card{}, fmt.Errorf("failed to add card to deck %s: %w", in.DeckID, err)
	}
	return card, nil
}

// DeleteCard removes a single card.
func (s *Service) DeleteCard(ctx context.Context, cardID string) error {
	if err := s.store.Commit(ctx, domain.CardDeleted{ID: cardID}); err != nil {
		return fmt.Errorf("failed to delete card %s: %w", cardID, err)
	}
	return nil
}

// Review schedules the card for rating and persists the result.
func (s *Service) Review(ctx context.Context, cardID string, rating fsrs.Rating) (domain.Card, error) {
	card, err := s.store.QueryCard(ctx, cardID)
	if err != nil {
		return domain.Card{}, err
	}

	now := s.clock.Now()
	next, err := s.scheduler.Schedule(card, rating, now)
	if err != nil {
		return domain.Card{}, err
	}
	if err := s.store.Commit(ctx, next.Reviewed(int(rating), now)); err != nil {
		return domain.Card{}, fmt.Errorf("failed to save review of card %s: %w", cardID, err)
	}

	s.log.Debug("card reviewed",
		zap.String("card_id", cardID),
		zap.Stringer("rating", rating),
		zap.Stringer("state", next.State),
		zap.Time("due", next.Due),
	)
	return next, nil
}

// Predict returns the due time each rating would give the card now.
func (s *Service) Predict(ctx context.Context, cardID string) (fsrs.Prediction, error) {
	card, err := s.store.QueryCard(ctx, cardID)
	if err != nil {
		return fsrs.Prediction{}, err
	}
	return s.scheduler.Predict(card, s.clock.Now()), nil
}

// Due returns the deck's cards ready for review, admitted New cards included.
func (s *Service) Due(ctx context.Context, deckID string) ([]domain.Card, error) {
	cards, admitted, err := s.load(ctx, deckID)
	if err != nil {
		return nil, err
	}
	return queue.Select(cards, s.clock.Now(), s.lookahead, queue.AdmittedSet(admitted)), nil
}

// Stats summarizes a deck.
type Stats struct {
	Counts   queue.StateCounts `json:"counts"`
	Due      int               `json:"due"`
	Admitted int               `json:"admitted"`
	NextDue  *time.Time        `json:"next_due,omitempty"`
}

// Stats counts the deck's cards by state and reports when the next one is due.
func (s *Service) Stats(ctx context.Context, deckID string) (Stats, error) {
	cards, admitted, err := s.load(ctx, deckID)
	if err != nil {
		return Stats{}, err
	}
	now := s.clock.Now()
	st := Stats{
		Counts:   queue.Counts(cards),
		Due:      len(queue.Select(cards, now, s.lookahead, queue.AdmittedSet(admitted))),
		Admitted: len(admitted),
	}
	for _, c := range cards {
		if c.State == domain.New && !admitted[c.ID] {
			continue
		}
		if st.NextDue == nil || c.Due.Before(*st.NextDue) {
			due := c.Due
			st.NextDue = &due
		}
	}
	return st, nil
}

// ResetDeck makes the deck eligible for a fresh admission cycle.
func (s *Service) ResetDeck(ctx context.Context, deckID string) error {
	if err := s.store.Commit(ctx, domain.ResetDeck{ID: deckID}); err != nil {
		return fmt.Errorf("failed to reset deck %s: %w", deckID, err)
	}
	return nil
}

// ResetCards forgets all review history of the deck's cards.
func (s *Service) ResetCards(ctx context.Context, deckID string) error {
	if err := s.store.Commit(ctx, domain.ResetCards{ID: deckID, At: s.clock.Now()}); err != nil {
		return fmt.Errorf("failed to reset cards of deck %s: %w", deckID, err)
	}
	s.log.Info("deck cards reset", zap.String("deck_id", deckID))
	return nil
}

func (s *Service) load(ctx context.Context, deckID string) ([]domain.Card, map[string]bool, error) {
	if _, err := s.store.QueryDeck(ctx, deckID); err != nil {
		return nil, nil, err
	}
	cards, err := s.store.QueryCardsByDeck(ctx, deckID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load cards of deck %s: %w", deckID, err)
	}
	admitted, err := s.store.QueryAdmitted(ctx, deckID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load admitted cards of deck %s: %w", deckID, err)
	}
	return cards, admitted, nil
}
