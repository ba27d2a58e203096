package admission

import (
	"time"

	"github.com/conorfennell/knoldeck/internal/domain"
)

// NextBoundary returns the earliest instant strictly after after at which the
// wall clock in loc reads the policy's reset time. Reset times that fall in a
// daylight-saving gap are normalized by time.Date.
func NextBoundary(policy domain.ResetPolicy, after time.Time, loc *time.Location) time.Time {
	local := after.In(loc)
	b := atReset(policy.ResetTime, local.Year(), local.Month(), local.Day(), loc)
	if !b.After(after) {
		b = atReset(policy.ResetTime, local.Year(), local.Month(), local.Day()+1, loc)
	}
	return b
}

// LatestBoundary returns the most recent reset instant at or before now.
func LatestBoundary(policy domain.ResetPolicy, now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	b := atReset(policy.ResetTime, local.Year(), local.Month(), local.Day(), loc)
	if b.After(now) {
		b = atReset(policy.ResetTime, local.Year(), local.Month(), local.Day()-1, loc)
	}
	return b
}

func atReset(rt domain.ResetTime, year int, month time.Month, day int, loc *time.Location) time.Time {
	return time.Date(year, month, day, rt.Hour, rt.Minute, 0, 0, loc)
}

// Cap returns how many New cards may be admitted in one cycle. With the daily
// limit on, cards still walking learning or relearning steps use up slots.
func Cap(policy domain.ResetPolicy, cards []domain.Card) int {
	n := policy.NewCardsPerDay
	if policy.LimitNewCardsToDaily {
		for _, c := range cards {
			if c.State.InStep() {
				n--
			}
		}
	}
	return max(n, 0)
}

// Candidates picks up to Cap New cards that are not admitted yet, oldest
// first.
func Candidates(policy domain.ResetPolicy, cards []domain.Card, admitted map[string]bool) []string {
	limit := Cap(policy, cards)
	if limit == 0 {
		return nil
	}

	var fresh []domain.Card
	for _, c := range cards {
		if c.State == domain.New && !admitted[c.ID] {
			fresh = append(fresh, c)
		}
	}
	sortByCreation(fresh)

	ids := make([]string, 0, min(limit, len(fresh)))
	for _, c := range fresh[:min(limit, len(fresh))] {
		ids = append(ids, c.ID)
	}
	return ids
}
