package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"   // Registers the postgres driver
	_ "modernc.org/sqlite" // Registers the sqlite driver

	"github.com/conorfennell/knoldeck/internal/domain"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Options selects and tunes the SQL backend.
type Options struct {
	Driver       string
	DSN          string
	MaxOpenConns int
}

// DB is a Store backed by SQLite or PostgreSQL.
type DB struct {
	conn *sqlx.DB
	now  func() time.Time
}

var _ Store = (*DB)(nil)

// Open connects to the database and ensures the schema is up to date.
func Open(ctx context.Context, opts Options) (*DB, error) {
	if opts.Driver == "" {
		opts.Driver = DriverSQLite
	}
	if opts.Driver != DriverSQLite && opts.Driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	conn, err := sqlx.Open(opts.Driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if opts.Driver == DriverSQLite {
		// SQLite doesn't support multiple writers.
		conn.SetMaxOpenConns(1)
	} else if opts.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(opts.MaxOpenConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := conn.ExecContext(ctx, schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: conn, now: time.Now}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

type deckRow struct {
	ID                   string `db:"id"`
	UserID               string `db:"user_id"`
	Name                 string `db:"name"`
	Description          string `db:"description"`
	NewCardsPerDay       int    `db:"new_cards_per_day"`
	LimitNewCardsToDaily bool   `db:"limit_new_cards_to_daily"`
	ResetHour            int    `db:"reset_hour"`
	ResetMinute          int    `db:"reset_minute"`
	LastReset            int64  `db:"last_reset"`
	CreatedAt            int64  `db:"created_at"`
	UpdatedAt            int64  `db:"updated_at"`
}

const deckColumns = `id, user_id, name, description, new_cards_per_day, limit_new_cards_to_daily,
	reset_hour, reset_minute, last_reset, created_at, updated_at`

func newDeckRow(d domain.Deck) deckRow {
	return deckRow{
		ID:                   d.ID,
		UserID:               d.UserID,
		Name:                 d.Name,
		Description:          d.Description,
		NewCardsPerDay:       d.Policy.NewCardsPerDay,
		LimitNewCardsToDaily: d.Policy.LimitNewCardsToDaily,
		ResetHour:            d.Policy.ResetTime.Hour,
		ResetMinute:          d.Policy.ResetTime.Minute,
		LastReset:            toNanos(d.Policy.LastReset),
		CreatedAt:            toNanos(d.CreatedAt),
		UpdatedAt:            toNanos(d.UpdatedAt),
	}
}

func (r deckRow) deck() domain.Deck {
	return domain.Deck{
		ID:          r.ID,
		UserID:      r.UserID,
		Name:        r.Name,
		Description: r.Description,
		Policy: domain.ResetPolicy{
			NewCardsPerDay:       r.NewCardsPerDay,
			LimitNewCardsToDaily: r.LimitNewCardsToDaily,
			ResetTime:            domain.ResetTime{Hour: r.ResetHour, Minute: r.ResetMinute},
			LastReset:            fromNanos(r.LastReset),
		},
		CreatedAt: fromNanos(r.CreatedAt),
		UpdatedAt: fromNanos(r.UpdatedAt),
	}
}

type cardRow struct {
	ID            string        `db:"id"`
	DeckID        string        `db:"deck_id"`
	Front         string        `db:"front"`
	Back          string        `db:"back"`
	Context       string        `db:"context"`
	Due           int64         `db:"due"`
	Stability     float64       `db:"stability"`
	Difficulty    float64       `db:"difficulty"`
	ElapsedDays   int           `db:"elapsed_days"`
	ScheduledDays int           `db:"scheduled_days"`
	Reps          int           `db:"reps"`
	Lapses        int           `db:"lapses"`
	State         int           `db:"state"`
	Step          int           `db:"learning_steps"`
	LastReview    sql.NullInt64 `db:"last_review"`
	CreatedAt     int64         `db:"created_at"`
	UpdatedAt     int64         `db:"updated_at"`
}

const cardColumns = `id, deck_id, front, back, context, due, stability, difficulty, elapsed_days,
	scheduled_days, reps, lapses, state, learning_steps, last_review, created_at, updated_at`

func newCardRow(c domain.Card) cardRow {
	row := cardRow{
		ID:            c.ID,
		DeckID:        c.DeckID,
		Front:         c.Front,
		Back:          c.Back,
		Context:       c.Context,
		Due:           toNanos(c.Due),
		Stability:     c.Stability,
		Difficulty:    c.Difficulty,
		ElapsedDays:   c.ElapsedDays,
		ScheduledDays: c.ScheduledDays,
		Reps:          c.Reps,
		Lapses:        c.Lapses,
		State:         int(c.State),
		Step:          c.Step,
		CreatedAt:     toNanos(c.CreatedAt),
		UpdatedAt:     toNanos(c.UpdatedAt),
	}
	if c.LastReview != nil {
		row.LastReview = sql.NullInt64{Int64: toNanos(*c.LastReview), Valid: true}
	}
	return row
}

func (r cardRow) card() domain.Card {
	c := domain.Card{
		ID:            r.ID,
		DeckID:        r.DeckID,
		Front:         r.Front,
		Back:          r.Back,
		Context:       r.Context,
		Due:           fromNanos(r.Due),
		Stability:     r.Stability,
		Difficulty:    r.Difficulty,
		ElapsedDays:   r.ElapsedDays,
		ScheduledDays: r.ScheduledDays,
		Reps:          r.Reps,
		Lapses:        r.Lapses,
		State:         domain.State(r.State),
		Step:          r.Step,
		CreatedAt:     fromNanos(r.CreatedAt),
		UpdatedAt:     fromNanos(r.UpdatedAt),
	}
	if r.LastReview.Valid {
		last := fromNanos(r.LastReview.Int64)
		c.LastReview = &last
	}
	return c
}

func toNanos(t time.Time) int64 { return t.UnixNano() }

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }

// QueryCard retrieves a card by its ID.
func (db *DB) QueryCard(ctx context.Context, id string) (domain.Card, error) {
	return getCard(ctx, db.conn, id)
}

func getCard(ctx context.Context, q sqlx.ExtContext, id string) (domain.Card, error) {
	var row cardRow
	err := sqlx.GetContext(ctx, q, &row, q.Rebind(`SELECT `+cardColumns+` FROM cards WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Card{}, fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.Card{}, fmt.Errorf("failed to find card %s: %w", id, err)
	}
	return row.card(), nil
}

// QueryDeck retrieves a deck by its ID.
func (db *DB) QueryDeck(ctx context.Context, id string) (domain.Deck, error) {
	return getDeck(ctx, db.conn, id)
}

func getDeck(ctx context.Context, q sqlx.ExtContext, id string) (domain.Deck, error) {
	var row deckRow
	err := sqlx.GetContext(ctx, q, &row, q.Rebind(`SELECT `+deckColumns+` FROM decks WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Deck{}, fmt.Errorf("deck %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.Deck{}, fmt.Errorf("failed to find deck %s: %w", id, err)
	}
	return row.deck(), nil
}

// QueryCardsByDeck retrieves all cards of a deck, oldest first.
func (db *DB) QueryCardsByDeck(ctx context.Context, deckID string) ([]domain.Card, error) {
	var rows []cardRow
	err := sqlx.SelectContext(ctx, db.conn, &rows, db.conn.Rebind(`
		SELECT `+cardColumns+`
		FROM cards WHERE deck_id = ?
		ORDER BY created_at, id
	`), deckID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards for deck %s: %w", deckID, err)
	}

	cards := make([]domain.Card, 0, len(rows))
	for _, r := range rows {
		cards = append(cards, r.card())
	}
	return cards, nil
}

// QueryDecksByUser retrieves every deck owned by userID.
func (db *DB) QueryDecksByUser(ctx context.Context, userID string) ([]domain.Deck, error) {
	var rows []deckRow
	err := sqlx.SelectContext(ctx, db.conn, &rows, db.conn.Rebind(`
		SELECT `+deckColumns+`
		FROM decks WHERE user_id = ?
		ORDER BY created_at, id
	`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get decks for user %s: %w", userID, err)
	}

	decks := make([]domain.Deck, 0, len(rows))
	for _, r := range rows {
		decks = append(decks, r.deck())
	}
	return decks, nil
}

// QueryAdmitted returns the admitted cards of a deck that are still New.
func (db *DB) QueryAdmitted(ctx context.Context, deckID string) (map[string]bool, error) {
	var ids []string
	err := sqlx.SelectContext(ctx, db.conn, &ids, db.conn.Rebind(`
		SELECT a.card_id
		FROM admitted_cards a JOIN cards c ON c.id = a.card_id
		WHERE a.deck_id = ? AND c.state = ?
	`), deckID, int(domain.New))
	if err != nil {
		return nil, fmt.Errorf("failed to get admitted cards for deck %s: %w", deckID, err)
	}

	admitted := make(map[string]bool, len(ids))
	for _, id := range ids {
		admitted[id] = true
	}
	return admitted, nil
}

// Commit applies events in a single transaction and appends them to the
// event log.
func (db *DB) Commit(ctx context.Context, events ...domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	at := toNanos(db.now())
	for i, ev := range events {
		reduce, ok := reducers[ev.Name()]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownEvent, ev.Name())
		}
		if err := reduce(ctx, tx, ev); err != nil {
			return fmt.Errorf("failed to apply %s: %w", ev.Name(), err)
		}
		if err := appendEvent(ctx, tx, ev, at, i); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func appendEvent(ctx context.Context, tx *sqlx.Tx, ev domain.Event, at int64, position int) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", ev.Name(), err)
	}
	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO events (id, name, payload, created_at, position)
		VALUES (?, ?, ?, ?, ?)
	`), uuid.NewString(), ev.Name(), string(payload), at, position)
	if err != nil {
		return fmt.Errorf("failed to append %s to the event log: %w", ev.Name(), err)
	}
	return nil
}

// LoggedEvent is one row of the event log.
type LoggedEvent struct {
	Name    string
	Payload string
	At      time.Time
}

// EventLog returns the committed events, oldest first.
func (db *DB) EventLog(ctx context.Context) ([]LoggedEvent, error) {
	var rows []struct {
		Name      string `db:"name"`
		Payload   string `db:"payload"`
		CreatedAt int64  `db:"created_at"`
	}
	err := sqlx.SelectContext(ctx, db.conn, &rows, `
		SELECT name, payload, created_at
		FROM events
		ORDER BY created_at, position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to read the event log: %w", err)
	}

	out := make([]LoggedEvent, 0, len(rows))
	for _, r := range rows {
		out = append(out, LoggedEvent{Name: r.Name, Payload: r.Payload, At: fromNanos(r.CreatedAt)})
	}
	return out, nil
}
