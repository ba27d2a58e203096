package domain

import "time"

// Event is a change appended to the deck/card store. Name identifies the
// event type and selects the reducer that materializes it.
type Event interface {
	Name() string
}

const (
	EventDeckCreated   = "v1.DeckCreated"
	EventDeckUpdated   = "v1.DeckUpdated"
	EventDeckDeleted   = "v1.DeckDeleted"
	EventCardCreated   = "v1.CardCreated"
	EventCardReviewed  = "v1.CardReviewed"
	EventCardDeleted   = "v1.CardDeleted"
	EventCardsAdmitted = "v1.CardsAdmitted"
	EventResetDeck     = "v1.ResetDeck"
	EventResetCards    = "v1.ResetCards"
)

type DeckCreated struct {
	Deck Deck `json:"deck"`
}

// DeckUpdated patches a deck. An admission commit carries only LastReset.
type DeckUpdated struct {
	ID        string    `json:"id"`
	Patch     DeckPatch `json:"patch"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeckDeleted removes a deck together with its cards.
type DeckDeleted struct {
	ID string `json:"id"`
}

type CardCreated struct {
	Card Card `json:"card"`
}

// CardReviewed carries the full scheduling state produced by a review.
type CardReviewed struct {
	ID            string    `json:"id"`
	Rating        int       `json:"rating"`
	Due           time.Time `json:"due"`
	Stability     float64   `json:"stability"`
	Difficulty    float64   `json:"difficulty"`
	ElapsedDays   int       `json:"elapsed_days"`
	ScheduledDays int       `json:"scheduled_days"`
	Reps          int       `json:"reps"`
	Lapses        int       `json:"lapses"`
	State         State     `json:"state"`
	Step          int       `json:"learning_steps"`
	LastReview    time.Time `json:"last_review"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type CardDeleted struct {
	ID string `json:"id"`
}

// CardsAdmitted moves New cards of a deck into its active pool.
type CardsAdmitted struct {
	DeckID  string    `json:"deck_id"`
	CardIDs []string  `json:"card_ids"`
	At      time.Time `json:"at"`
}

// ResetDeck rewinds a deck's LastReset to NeverReset.
type ResetDeck struct {
	ID string `json:"id"`
}

// ResetCards puts every card of a deck back into the New state and empties
// its active pool.
type ResetCards struct {
	ID string    `json:"id"`
	At time.Time `json:"at"`
}

func (DeckCreated) Name() string   { return EventDeckCreated }
func (DeckUpdated) Name() string   { return EventDeckUpdated }
func (DeckDeleted) Name() string   { return EventDeckDeleted }
func (CardCreated) Name() string   { return EventCardCreated }
func (CardReviewed) Name() string  { return EventCardReviewed }
func (CardDeleted) Name() string   { return EventCardDeleted }
func (CardsAdmitted) Name() string { return EventCardsAdmitted }
func (ResetDeck) Name() string     { return EventResetDeck }
func (ResetCards) Name() string    { return EventResetCards }
