package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/conorfennell/knoldeck/internal/domain"
)

type reducer func(ctx context.Context, tx *sqlx.Tx, ev domain.Event) error

// reducers materialize each event type into the tables.
var reducers = map[string]reducer{
	domain.EventDeckCreated:   reduceDeckCreated,
	domain.EventDeckUpdated:   reduceDeckUpdated,
	domain.EventDeckDeleted:   reduceDeckDeleted,
	domain.EventCardCreated:   reduceCardCreated,
	domain.EventCardReviewed:  reduceCardReviewed,
	domain.EventCardDeleted:   reduceCardDeleted,
	domain.EventCardsAdmitted: reduceCardsAdmitted,
	domain.EventResetDeck:     reduceResetDeck,
	domain.EventResetCards:    reduceResetCards,
}

func reduceDeckCreated(ctx context.Context, tx *sqlx.Tx, ev domain.Event) error {
	e := ev.(domain.DeckCreated)
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO decks (`+deckColumns+`)
		VALUES (:id, :user_id, :name, :description, :new_cards_per_day, :limit_new_cards_to_daily,
			:reset_hour, :reset_minute, :last_reset, :created_at, :updated_at)
	`, newDeckRow(e.Deck))
	if err != nil {
		return fmt.Errorf("failed to insert deck %s: %w", e.Deck.ID, err)
	}
	return nil
}

// reduceDeckUpdated writes the patched deck only if last_reset still holds
// the value it was read with, so two writers cannot both advance it.
func reduceDeckUpdated(ctx context.Context, tx *sqlx.Tx, ev domain.Event) error {
	e := ev.(domain.DeckUpdated)
	current, err := getDeck(ctx, tx, e.ID)
	if err != nil {
		return err
	}
	if e.Patch.LastReset != nil && !current.Policy.LastReset.Before(*e.Patch.LastReset) {
		return fmt.Errorf("deck %s: %w", e.ID, ErrStaleReset)
	}

	next := newDeckRow(current.Apply(e.Patch, e.UpdatedAt))
	res, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE decks
		SET name = ?, description = ?, new_cards_per_day = ?, limit_new_cards_to_daily = ?,
			reset_hour = ?, reset_minute = ?, last_reset = ?, updated_at = ?
		WHERE id = ? AND last_reset = ?
	`),
		next.Name,
		next.Description,
		next.NewCardsPerDay,
		next.LimitNewCardsToDaily,
		next.ResetHour,
		next.ResetMinute,
		next.LastReset,
		next.UpdatedAt,
		e.ID,
		toNanos(current.Policy.LastReset),
	)
	if err != nil {
		return fmt.Errorf("failed to update deck %s: %w", e.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("deck %s: %w", e.ID, ErrStaleReset)
	}
	return nil
}

func reduceDeckDeleted(ctx context.Context, tx *sqlx.Tx, ev domain.Event) error {
	e := ev.(domain.DeckDeleted)
	for _, q := range []string{
		`DELETE FROM admitted_cards WHERE deck_id = ?`,
		`DELETE FROM cards WHERE deck_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, tx.Rebind(q), e.ID); err != nil {
			return fmt.Errorf("failed to delete contents of deck %s: %w", e.ID, err)
		}
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM decks WHERE id = ?`), e.ID)
	return expectRow(res, err, "deck", e.ID)
}

// reduceCardCreated ignores a card whose ID already exists, which makes
// re-importing the same content a no-op.
func reduceCardCreated(ctx context.Context, tx *sqlx.Tx, ev domain.Event) error {
	e := ev.(domain.CardCreated)
	if _, err := getDeck(ctx, tx, e.Card.DeckID); err != nil {
		return err
	}
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO cards (`+cardColumns+`)
		VALUES (:id, :deck_id, :front, :back, :context, :due, :stability, :difficulty, :elapsed_days,
			:scheduled_days, :reps, :lapses, :state, :learning_steps, :last_review, :created_at, :updated_at)
		ON CONFLICT (id) DO NOTHING
	`, newCardRow(e.Card))
	if err != nil {
		return fmt.Errorf("failed to insert card %s: %w", e.Card.ID, err)
	}
	return nil
}

func reduceCardReviewed(ctx context.Context, tx *sqlx.Tx, ev domain.Event) error {
	e := ev.(domain.CardReviewed)
	var c domain.Card
	e.ApplyTo(&c)
	row := newCardRow(c)
	res, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE cards
		SET due = ?, stability = ?, difficulty = ?, elapsed_days = ?, scheduled_days = ?,
			reps = ?, lapses = ?, state = ?, learning_steps = ?, last_review = ?, updated_at = ?
		WHERE id = ?
	`),
		row.Due,
		row.Stability,
		row.Difficulty,
		row.ElapsedDays,
		row.ScheduledDays,
		row.Reps,
		row.Lapses,
		row.State,
		row.Step,
		row.LastReview,
		row.UpdatedAt,
		e.ID,
	)
	return expectRow(res, err, "card", e.ID)
}

func reduceCardDeleted(ctx context.Context, tx *sqlx.Tx, ev domain.Event) error {
	e := ev.(domain.CardDeleted)
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM admitted_cards WHERE card_id = ?`), e.ID); err != nil {
		return fmt.Errorf("failed to delete admission of card %s: %w", e.ID, err)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM cards WHERE id = ?`), e.ID)
	return expectRow(res, err, "card", e.ID)
}

// reduceCardsAdmitted only admits cards that belong to the deck and are
// still New. Cards admitted earlier are left alone.
func reduceCardsAdmitted(ctx context.Context, tx *sqlx.Tx, ev domain.Event) error {
	e := ev.(domain.CardsAdmitted)
	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
		INSERT INTO admitted_cards (card_id, deck_id, admitted_at)
		SELECT id, deck_id, CAST(? AS BIGINT) FROM cards WHERE id = ? AND deck_id = ? AND state = ?
		ON CONFLICT (card_id) DO NOTHING
	`))
	if err != nil {
		return fmt.Errorf("failed to prepare admission: %w", err)
	}
	defer stmt.Close()

	at := toNanos(e.At)
	for _, id := range e.CardIDs {
		if _, err := stmt.ExecContext(ctx, at, id, e.DeckID, int(domain.New)); err != nil {
			return fmt.Errorf("failed to admit card %s: %w", id, err)
		}
	}
	return nil
}

func reduceResetDeck(ctx context.Context, tx *sqlx.Tx, ev domain.Event) error {
	e := ev.(domain.ResetDeck)
	res, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE decks SET last_reset = ? WHERE id = ?
	`), toNanos(domain.NeverReset), e.ID)
	return expectRow(res, err, "deck", e.ID)
}

func reduceResetCards(ctx context.Context, tx *sqlx.Tx, ev domain.Event) error {
	e := ev.(domain.ResetCards)
	if _, err := getDeck(ctx, tx, e.ID); err != nil {
		return err
	}
	at := toNanos(e.At)
	_, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE cards
		SET due = ?, stability = ?, difficulty = ?, elapsed_days = 0, scheduled_days = 0,
			reps = 0, lapses = 0, state = ?, learning_steps = 0, last_review = NULL, updated_at = ?
		WHERE deck_id = ?
	`), at, domain.MinStability, domain.DefaultDifficulty, int(domain.New), at, e.ID)
	if err != nil {
		return fmt.Errorf("failed to reset cards of deck %s: %w", e.ID, err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM admitted_cards WHERE deck_id = ?`), e.ID); err != nil {
		return fmt.Errorf("failed to clear admissions of deck %s: %w", e.ID, err)
	}
	return nil
}

// expectRow turns a statement that touched no rows into ErrNotFound.
func expectRow(res sql.Result, err error, kind, id string) error {
	if err != nil {
		return fmt.Errorf("failed to write %s %s: %w", kind, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
