// Package importer loads decks from markdown files, spreadsheets and git
// repositories, then gives the deck one admission cycle.
package importer

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/conorfennell/knoldeck/internal/admission"
	"github.com/conorfennell/knoldeck/internal/clock"
	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/gitsource"
	"github.com/conorfennell/knoldeck/internal/knol"
	"github.com/conorfennell/knoldeck/internal/parser"
	"github.com/conorfennell/knoldeck/internal/storage"
)

// Admitter runs the on-demand admission cycle after an import.
type Admitter interface {
	AdmitImported(ctx context.Context, deckID string) (admission.Effect, error)
}

// Options controls one import.
type Options struct {
	// Prune deletes cards of the deck that the source no longer contains.
	Prune bool
	// ReposDir is where git sources are cloned.
	ReposDir string
	// Sheet names the worksheet of a spreadsheet source; empty selects the first.
	Sheet string
}

// Result summarizes an import.
type Result struct {
	Parsed    int              `json:"parsed"`
	Added     int              `json:"added"`
	Removed   int              `json:"removed"`
	Admission admission.Effect `json:"admission"`
}

// Importer writes parsed entries into a deck.
type Importer struct {
	store    storage.Store
	admitter Admitter
	clock    clock.Clock
	log      *zap.Logger
}

func New(store storage.Store, admitter Admitter, clk clock.Clock, log *zap.Logger) *Importer {
	return &Importer{store: store, admitter: admitter, clock: clk, log: log.Named("importer")}
}

// Import reads source and adds its entries to deckID. Entries already in the
// deck are skipped because card IDs are content hashes.
func (im *Importer) Import(ctx context.Context, deckID, source string, opts Options) (Result, error) {
	entries, err := im.read(ctx, source, opts)
	if err != nil {
		return Result{}, err
	}
	return im.ImportEntries(ctx, deckID, entries, opts)
}

// ImportEntries adds entries to deckID in one commit and runs the deck's
// admission cycle when anything was added.
func (im *Importer) ImportEntries(ctx context.Context, deckID string, entries []parser.Entry, opts Options) (Result, error) {
	if _, err := im.store.QueryDeck(ctx, deckID); err != nil {
		return Result{}, err
	}
	existing, err := im.store.QueryCardsByDeck(ctx, deckID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load deck %s: %w", deckID, err)
	}
	known := make(map[string]bool, len(existing))
	for _, c := range existing {
		known[c.ID] = true
	}

	res := Result{Parsed: len(entries)}
	now := im.clock.Now()
	seen := make(map[string]bool, len(entries))
	var events []domain.Event
	for i, e := range entries {
		id := knol.CardID(deckID, e)
		if seen[id] {
			continue
		}
		seen[id] = true
		if known[id] {
			continue
		}
		// Creation order drives admission order, so keep file order.
		card := domain.NewCard(id, deckID, now.Add(time.Duration(i)))
		card.Front, card.Back, card.Context = e.Front, e.Back, e.Context
		events = append(events, domain.CardCreated{Card: card})
		res.Added++
	}
	if opts.Prune {
		for _, c := range existing {
			if !seen[c.ID] {
				events = append(events, domain.CardDeleted{ID: c.ID})
				res.Removed++
			}
		}
	}

	if len(events) > 0 {
		if err := im.store.Commit(ctx, events...); err != nil {
			return Result{}, fmt.Errorf("failed to import into deck %s: %w", deckID, err)
		}
	}
	im.log.Info("import complete",
		zap.String("deck_id", deckID),
		zap.Int("parsed", res.Parsed),
		zap.Int("added", res.Added),
		zap.Int("removed", res.Removed),
	)

	if res.Added > 0 && im.admitter != nil {
		eff, err := im.admitter.AdmitImported(ctx, deckID)
		if err != nil {
			return res, fmt.Errorf("failed to admit imported cards: %w", err)
		}
		res.Admission = eff
	}
	return res, nil
}

// read dispatches on the kind of source.
func (im *Importer) read(ctx context.Context, source string, opts Options) ([]parser.Entry, error) {
	if gitsource.IsURL(source) {
		reposDir := opts.ReposDir
		if reposDir == "" {
			reposDir = "repos"
		}
		local, err := gitsource.LocalPath(reposDir, source)
		if err != nil {
			return nil, err
		}
		if err := gitsource.Sync(ctx, source, local, im.log); err != nil {
			return nil, err
		}
		return readDir(local)
	}

	switch strings.ToLower(filepath.Ext(source)) {
	case ".xlsx":
		return ReadSpreadsheet(source, opts.Sheet)
	case ".csv":
		return ReadCSV(source)
	case ".md", ".txt":
		return parser.ParseFile(source)
	}
	return readDir(source)
}

// readDir parses every markdown file below root in lexical order.
func readDir(root string) ([]parser.Entry, error) {
	var entries []parser.Entry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(d.Name()), ".md") {
			return nil
		}
		fileEntries, err := parser.ParseFile(path)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		entries = append(entries, fileEntries...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", root, err)
	}
	return entries, nil
}
