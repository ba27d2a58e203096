package storage

// Timestamps are stored as Unix nanoseconds so both SQLite and PostgreSQL
// round-trip them exactly.
const schema = `
-- Decks carry their admission policy inline.
CREATE TABLE IF NOT EXISTS decks (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    new_cards_per_day INTEGER NOT NULL,
    limit_new_cards_to_daily BOOLEAN NOT NULL,
    reset_hour INTEGER NOT NULL DEFAULT 0,
    reset_minute INTEGER NOT NULL DEFAULT 0,
    last_reset BIGINT NOT NULL,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS decks_user_id ON decks (user_id);

CREATE TABLE IF NOT EXISTS cards (
    id TEXT PRIMARY KEY,
    deck_id TEXT NOT NULL REFERENCES decks (id),
    front TEXT NOT NULL DEFAULT '',
    back TEXT NOT NULL DEFAULT '',
    context TEXT NOT NULL DEFAULT '',
    due BIGINT NOT NULL,
    stability DOUBLE PRECISION NOT NULL,
    difficulty DOUBLE PRECISION NOT NULL,
    elapsed_days INTEGER NOT NULL DEFAULT 0,
    scheduled_days INTEGER NOT NULL DEFAULT 0,
    reps INTEGER NOT NULL DEFAULT 0,
    lapses INTEGER NOT NULL DEFAULT 0,
    state INTEGER NOT NULL DEFAULT 0, -- 0: New, 1: Learning, 2: Review, 3: Relearning
    learning_steps INTEGER NOT NULL DEFAULT 0,
    last_review BIGINT,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS cards_deck_id ON cards (deck_id, created_at);

-- New cards let into rotation by the daily admission cycle.
CREATE TABLE IF NOT EXISTS admitted_cards (
    card_id TEXT PRIMARY KEY REFERENCES cards (id),
    deck_id TEXT NOT NULL,
    admitted_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS admitted_cards_deck_id ON admitted_cards (deck_id);

-- Every committed event, in commit order.
CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    payload TEXT NOT NULL,
    created_at BIGINT NOT NULL,
    position INTEGER NOT NULL -- order within one commit
);
`
