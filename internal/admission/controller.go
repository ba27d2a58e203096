// Package admission runs the daily cycle that lets a bounded number of New
// cards into each deck's review rotation.
package admission

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/conorfennell/knoldeck/internal/clock"
	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/storage"
)

// ErrNotStarted is returned when the controller has no store bound.
var ErrNotStarted = errors.New("admission: controller not started")

// DefaultInterval is how often the background job checks every deck.
const DefaultInterval = time.Minute

// Config configures a Controller.
type Config struct {
	Interval time.Duration  `koanf:"interval"`
	Location *time.Location `koanf:"-"` // reset times are read in this zone; nil → time.Local
}

// Effect reports what one admission cycle did for a deck.
type Effect struct {
	DeckID   string    `json:"deck_id"`
	Boundary time.Time `json:"boundary"`
	Admitted []string  `json:"admitted"`
	Applied  bool      `json:"applied"`
}

// Controller admits New cards into rotation once per reset boundary.
type Controller struct {
	cfg   Config
	clock clock.Clock
	log   *zap.Logger
	group singleflight.Group

	mu        sync.Mutex
	store     storage.Store
	userID    string
	scheduler *gocron.Scheduler
	gen       uint64
}

// New builds a Controller. It does nothing until Bind or Start is called.
func New(cfg Config, clk clock.Clock, logger *zap.Logger) *Controller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{cfg: cfg, clock: clk, log: logger.Named("admission")}
}

// Bind attaches the store and user whose decks are processed, without
// starting the timer.
func (c *Controller) Bind(store storage.Store, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = store
	c.userID = userID
}

// Start binds store and userID and schedules one shared job that processes
// every deck of the user each interval. Calling Start again replaces the
// previous job.
func (c *Controller) Start(store storage.Store, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.store = store
	c.userID = userID

	s := gocron.NewScheduler(c.cfg.Location)
	if _, err := s.Every(c.cfg.Interval).WaitForSchedule().SingletonMode().Do(c.tick, c.gen); err != nil {
		return fmt.Errorf("failed to schedule admission job: %w", err)
	}
	s.StartAsync()
	c.scheduler = s

	c.log.Info("admission job started",
		zap.String("user_id", userID),
		zap.Duration("interval", c.cfg.Interval),
		zap.String("location", c.cfg.Location.String()),
	)
	return nil
}

// Stop cancels the job and unbinds the store. A job that fires after Stop
// returns does nothing.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scheduler != nil {
		c.log.Info("admission job stopped", zap.String("user_id", c.userID))
	}
	c.stopLocked()
	c.store = nil
	c.userID = ""
}

func (c *Controller) stopLocked() {
	if c.scheduler != nil {
		c.scheduler.Stop()
		c.scheduler = nil
	}
	c.gen++
}

// binding returns the current store, user and generation.
func (c *Controller) binding() (storage.Store, string, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return nil, "", 0, ErrNotStarted
	}
	return c.store, c.userID, c.gen, nil
}

func (c *Controller) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen && c.store != nil
}

// tick is the body of the scheduled job. Failures are logged and retried on
// the next tick.
func (c *Controller) tick(gen uint64) {
	store, userID, bound, err := c.binding()
	if err != nil || bound != gen {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Interval)
	defer cancel()

	if _, err := c.processUser(ctx, store, userID, gen); err != nil {
		c.log.Error("admission tick failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// RunOnce processes every deck of the bound user immediately.
func (c *Controller) RunOnce(ctx context.Context) ([]Effect, error) {
	store, userID, gen, err := c.binding()
	if err != nil {
		return nil, err
	}
	return c.processUser(ctx, store, userID, gen)
}

func (c *Controller) processUser(ctx context.Context, store storage.Store, userID string, gen uint64) ([]Effect, error) {
	decks, err := store.QueryDecksByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks of user %s: %w", userID, err)
	}

	var effects []Effect
	var errs []error
	for _, deck := range decks {
		if !c.current(gen) {
			break
		}
		eff, err := c.process(ctx, store, deck, c.clock.Now())
		if err != nil {
			c.log.Warn("deck admission failed", zap.String("deck_id", deck.ID), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		effects = append(effects, eff)
	}
	return effects, errors.Join(errs...)
}

// ProcessDeckIfResetNeeded runs one admission cycle for deck if a reset
// boundary has passed since its last reset. It is a no-op otherwise.
func (c *Controller) ProcessDeckIfResetNeeded(ctx context.Context, deck domain.Deck, now time.Time) (Effect, error) {
	store, _, _, err := c.binding()
	if err != nil {
		return Effect{DeckID: deck.ID}, err
	}
	return c.process(ctx, store, deck, now)
}

// AdmitImported gives a freshly imported deck exactly one admission cycle,
// whatever its stored LastReset.
func (c *Controller) AdmitImported(ctx context.Context, deckID string) (Effect, error) {
	store, _, _, err := c.binding()
	if err != nil {
		return Effect{DeckID: deckID}, err
	}
	deck, err := store.QueryDeck(ctx, deckID)
	if err != nil {
		return Effect{DeckID: deckID}, err
	}
	deck.Policy.LastReset = domain.NeverReset
	// Not coalesced: a cycle already in flight may have read the cards
	// before the import landed. The guarded LastReset update settles the race.
	return c.admit(ctx, store, deck, c.clock.Now(), []domain.Event{domain.ResetDeck{ID: deckID}})
}

// process coalesces concurrent cycles for the same deck and boundary.
func (c *Controller) process(ctx context.Context, store storage.Store, deck domain.Deck, now time.Time) (Effect, error) {
	key := deck.ID + "|" + strconv.FormatInt(LatestBoundary(deck.Policy, now, c.cfg.Location).UnixNano(), 10)
	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.admit(ctx, store, deck, now, nil)
	})
	eff, _ := v.(Effect)
	return eff, err
}

func (c *Controller) admit(ctx context.Context, store storage.Store, deck domain.Deck, now time.Time, prefix []domain.Event) (Effect, error) {
	eff := Effect{DeckID: deck.ID}
	policy := deck.Policy
	if now.Before(NextBoundary(policy, policy.LastReset, c.cfg.Location)) {
		return eff, nil
	}
	eff.Boundary = LatestBoundary(policy, now, c.cfg.Location)

	cards, err := store.QueryCardsByDeck(ctx, deck.ID)
	if err != nil {
		return eff, fmt.Errorf("failed to load cards of deck %s: %w", deck.ID, err)
	}
	admitted, err := store.QueryAdmitted(ctx, deck.ID)
	if err != nil {
		return eff, fmt.Errorf("failed to load admitted cards of deck %s: %w", deck.ID, err)
	}
	ids := Candidates(policy, cards, admitted)

	events := append([]domain.Event(nil), prefix...)
	if len(ids) > 0 {
		events = append(events, domain.CardsAdmitted{DeckID: deck.ID, CardIDs: ids, At: now})
	}
	boundary := eff.Boundary
	events = append(events, domain.DeckUpdated{
		ID:        deck.ID,
		Patch:     domain.DeckPatch{LastReset: &boundary},
		UpdatedAt: now,
	})

	if err := store.Commit(ctx, events...); err != nil {
		if errors.Is(err, storage.ErrStaleReset) {
			c.log.Debug("deck already reset", zap.String("deck_id", deck.ID), zap.Time("boundary", boundary))
			return eff, nil
		}
		return eff, fmt.Errorf("failed to commit admission for deck %s: %w", deck.ID, err)
	}

	eff.Admitted = ids
	eff.Applied = true
	c.log.Info("deck reset",
		zap.String("deck_id", deck.ID),
		zap.Time("boundary", boundary),
		zap.Int("admitted", len(ids)),
	)
	return eff, nil
}

func sortByCreation(cards []domain.Card) {
	sort.SliceStable(cards, func(i, j int) bool {
		if !cards[i].CreatedAt.Equal(cards[j].CreatedAt) {
			return cards[i].CreatedAt.Before(cards[j].CreatedAt)
		}
		return cards[i].ID < cards[j].ID
	})
}
