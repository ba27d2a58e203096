package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/knoldeck/internal/domain"
)

var t0 = time.Date(2025, 1, 10, 8, 30, 0, 0, time.UTC)

// stores runs fn against every Store implementation.
func stores(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemory())
	})
	t.Run("sqlite", func(t *testing.T) {
		db, err := Open(context.Background(), Options{
			Driver: DriverSQLite,
			DSN:    filepath.Join(t.TempDir(), "knoldeck.db"),
		})
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		fn(t, db)
	})
}

func testDeck(id string) domain.Deck {
	return domain.Deck{
		ID:        id,
		UserID:    "user",
		Name:      "Deck " + id,
		Policy:    domain.DefaultResetPolicy(),
		CreatedAt: t0,
		UpdatedAt: t0,
	}
}

func testCard(id, deckID string, created time.Time) domain.Card {
	c := domain.NewCard(id, deckID, created)
	c.Front = "front " + id
	c.Back = "back " + id
	return c
}

func seed(t *testing.T, s Store, deckID string, cards ...string) {
	t.Helper()
	events := []domain.Event{domain.DeckCreated{Deck: testDeck(deckID)}}
	for i, id := range cards {
		events = append(events, domain.CardCreated{Card: testCard(id, deckID, t0.Add(time.Duration(i)*time.Second))})
	}
	require.NoError(t, s.Commit(context.Background(), events...))
}

func TestQueryMissing(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, err := s.QueryCard(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.QueryDeck(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)

		decks, err := s.QueryDecksByUser(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, decks)
	})
}

func TestDeckRoundTrip(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		d := testDeck("d1")
		d.Description = "verbs"
		d.Policy.NewCardsPerDay = 7
		d.Policy.LimitNewCardsToDaily = false
		d.Policy.ResetTime = domain.ResetTime{Hour: 4, Minute: 30}
		require.NoError(t, s.Commit(ctx, domain.DeckCreated{Deck: d}))

		got, err := s.QueryDeck(ctx, "d1")
		require.NoError(t, err)
		assert.Equal(t, d, got)

		decks, err := s.QueryDecksByUser(ctx, "user")
		require.NoError(t, err)
		assert.Equal(t, []domain.Deck{d}, decks)
	})
}

func TestCardSchedulingFieldsRoundTrip(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seed(t, s, "d1", "c1")

		review := t0.Add(36 * time.Hour)
		reviewed := domain.CardReviewed{
			ID:            "c1",
			Rating:        3,
			Due:           review.Add(96 * time.Hour),
			Stability:     4.466858,
			Difficulty:    5.282434,
			ElapsedDays:   1,
			ScheduledDays: 4,
			Reps:          2,
			Lapses:        1,
			State:         domain.Review,
			Step:          1,
			LastReview:    review,
			UpdatedAt:     review,
		}
		require.NoError(t, s.Commit(ctx, reviewed))

		got, err := s.QueryCard(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, "front c1", got.Front)
		assert.True(t, got.Due.Equal(reviewed.Due))
		assert.Equal(t, reviewed.Stability, got.Stability)
		assert.Equal(t, reviewed.Difficulty, got.Difficulty)
		assert.Equal(t, 1, got.ElapsedDays)
		assert.Equal(t, 4, got.ScheduledDays)
		assert.Equal(t, 2, got.Reps)
		assert.Equal(t, 1, got.Lapses)
		assert.Equal(t, domain.Review, got.State)
		assert.Equal(t, 1, got.Step)
		require.NotNil(t, got.LastReview)
		assert.True(t, got.LastReview.Equal(review))
		assert.True(t, got.CreatedAt.Equal(t0))
	})
}

func TestCardCreatedIsIdempotent(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seed(t, s, "d1", "c1")

		dup := testCard("c1", "d1", t0.Add(time.Hour))
		dup.Front = "changed"
		require.NoError(t, s.Commit(ctx, domain.CardCreated{Card: dup}))

		got, err := s.QueryCard(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, "front c1", got.Front)
	})
}

func TestCardCreatedNeedsDeck(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		err := s.Commit(context.Background(), domain.CardCreated{Card: testCard("c1", "missing", t0)})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCardsByDeckInCreationOrder(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		seed(t, s, "d1", "z", "a", "m")
		seed(t, s, "d2", "other")

		cards, err := s.QueryCardsByDeck(context.Background(), "d1")
		require.NoError(t, err)
		var ids []string
		for _, c := range cards {
			ids = append(ids, c.ID)
		}
		assert.Equal(t, []string{"z", "a", "m"}, ids)
	})
}

func TestLastResetOnlyMovesForward(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seed(t, s, "d1", "c1")

		boundary := t0.Add(24 * time.Hour)
		advance := domain.DeckUpdated{ID: "d1", Patch: domain.DeckPatch{LastReset: &boundary}, UpdatedAt: boundary}
		admit := domain.CardsAdmitted{DeckID: "d1", CardIDs: []string{"c1"}, At: boundary}
		require.NoError(t, s.Commit(ctx, admit, advance))

		// A second writer with the same boundary loses, and takes its
		// admissions down with it.
		seed(t, s, "d2", "c2")
		err := s.Commit(ctx, domain.CardsAdmitted{DeckID: "d2", CardIDs: []string{"c2"}, At: boundary}, advance)
		assert.ErrorIs(t, err, ErrStaleReset)

		admitted, err := s.QueryAdmitted(ctx, "d2")
		require.NoError(t, err)
		assert.Empty(t, admitted)

		d, err := s.QueryDeck(ctx, "d1")
		require.NoError(t, err)
		assert.True(t, d.Policy.LastReset.Equal(boundary))
	})
}

func TestDeckPatch(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seed(t, s, "d1")

		name := "Renamed"
		perDay := 5
		at := t0.Add(time.Hour)
		require.NoError(t, s.Commit(ctx, domain.DeckUpdated{
			ID:        "d1",
			Patch:     domain.DeckPatch{Name: &name, NewCardsPerDay: &perDay},
			UpdatedAt: at,
		}))

		d, err := s.QueryDeck(ctx, "d1")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", d.Name)
		assert.Equal(t, 5, d.Policy.NewCardsPerDay)
		assert.True(t, d.Policy.LimitNewCardsToDaily)
		assert.True(t, d.UpdatedAt.Equal(at))

		err = s.Commit(ctx, domain.DeckUpdated{ID: "missing", Patch: domain.DeckPatch{Name: &name}})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestAdmittedOnlyListsNewCardsOfTheDeck(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seed(t, s, "d1", "a", "b", "c")
		seed(t, s, "d2", "x")

		require.NoError(t, s.Commit(ctx, domain.CardsAdmitted{
			DeckID:  "d1",
			CardIDs: []string{"a", "b", "x", "ghost"},
			At:      t0,
		}))
		require.NoError(t, s.Commit(ctx, domain.CardReviewed{
			ID: "b", Due: t0.Add(time.Minute), Stability: 0.4, Difficulty: 7, Reps: 1,
			State: domain.Learning, LastReview: t0, UpdatedAt: t0,
		}))

		admitted, err := s.QueryAdmitted(ctx, "d1")
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{"a": true}, admitted)
	})
}

func TestDeckDeletedCascades(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seed(t, s, "d1", "a", "b")
		require.NoError(t, s.Commit(ctx, domain.CardsAdmitted{DeckID: "d1", CardIDs: []string{"a"}, At: t0}))

		require.NoError(t, s.Commit(ctx, domain.DeckDeleted{ID: "d1"}))

		_, err := s.QueryDeck(ctx, "d1")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.QueryCard(ctx, "a")
		assert.ErrorIs(t, err, ErrNotFound)
		cards, err := s.QueryCardsByDeck(ctx, "d1")
		require.NoError(t, err)
		assert.Empty(t, cards)
	})
}

func TestCardDeleted(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seed(t, s, "d1", "a")

		require.NoError(t, s.Commit(ctx, domain.CardDeleted{ID: "a"}))
		_, err := s.QueryCard(ctx, "a")
		assert.ErrorIs(t, err, ErrNotFound)

		assert.ErrorIs(t, s.Commit(ctx, domain.CardDeleted{ID: "a"}), ErrNotFound)
	})
}

func TestResetDeckAndCards(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seed(t, s, "d1", "a", "b")

		boundary := t0.Add(24 * time.Hour)
		require.NoError(t, s.Commit(ctx,
			domain.CardsAdmitted{DeckID: "d1", CardIDs: []string{"b"}, At: boundary},
			domain.DeckUpdated{ID: "d1", Patch: domain.DeckPatch{LastReset: &boundary}, UpdatedAt: boundary},
			domain.CardReviewed{
				ID: "a", Due: boundary.Add(4 * 24 * time.Hour), Stability: 4, Difficulty: 5, Reps: 3, Lapses: 1,
				State: domain.Review, ScheduledDays: 4, LastReview: boundary, UpdatedAt: boundary,
			},
		))

		resetAt := boundary.Add(time.Hour)
		require.NoError(t, s.Commit(ctx, domain.ResetDeck{ID: "d1"}, domain.ResetCards{ID: "d1", At: resetAt}))

		d, err := s.QueryDeck(ctx, "d1")
		require.NoError(t, err)
		assert.True(t, d.Policy.LastReset.Equal(domain.NeverReset))

		a, err := s.QueryCard(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, domain.New, a.State)
		assert.Zero(t, a.Reps)
		assert.Zero(t, a.Lapses)
		assert.Nil(t, a.LastReview)
		assert.Equal(t, domain.MinStability, a.Stability)
		assert.True(t, a.Due.Equal(resetAt))
		assert.Equal(t, "front a", a.Front)

		admitted, err := s.QueryAdmitted(ctx, "d1")
		require.NoError(t, err)
		assert.Empty(t, admitted)
	})
}

func TestCommitIsAtomic(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		err := s.Commit(ctx,
			domain.DeckCreated{Deck: testDeck("d1")},
			domain.CardReviewed{ID: "missing", UpdatedAt: t0},
		)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = s.QueryDeck(ctx, "d1")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestEventLog(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, Options{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "log.db")})
	require.NoError(t, err)
	defer db.Close()
	tick := t0
	db.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	seed(t, db, "d1", "a")
	require.NoError(t, db.Commit(ctx, domain.ResetDeck{ID: "d1"}))

	log, err := db.EventLog(ctx)
	require.NoError(t, err)
	require.Len(t, log, 3)
	assert.Equal(t, domain.EventDeckCreated, log[0].Name)
	assert.Equal(t, domain.EventCardCreated, log[1].Name)
	assert.Equal(t, domain.EventResetDeck, log[2].Name)
	assert.JSONEq(t, `{"id":"d1"}`, log[2].Payload)
}

func TestMemoryEvents(t *testing.T) {
	m := NewMemory()
	seed(t, m, "d1", "a")
	_ = m.Commit(context.Background(), domain.CardDeleted{ID: "nope"})

	events := m.Events()
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventCardCreated, events[1].Name())
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "oracle"})
	assert.Error(t, err)
}
