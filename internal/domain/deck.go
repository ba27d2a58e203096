package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// NeverReset is the LastReset of a deck that has not completed an admission
// cycle yet. It predates any data the application has ever written.
var NeverReset = time.Date(2023, time.July, 1, 0, 0, 0, 0, time.UTC)

const (
	DefaultNewCardsPerDay       = 20
	DefaultLimitNewCardsToDaily = true
	DefaultResetHour            = 0
	DefaultResetMinute          = 0
)

// ResetTime is a local wall-clock time of day.
type ResetTime struct {
	Hour   int `json:"hour" validate:"min=0,max=23"`
	Minute int `json:"minute" validate:"min=0,max=59"`
}

func (t ResetTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ResetPolicy holds the rules that govern how many unstudied cards a deck
// lets into rotation each day.
type ResetPolicy struct {
	NewCardsPerDay       int       `json:"new_cards_per_day" validate:"min=1"`
	LimitNewCardsToDaily bool      `json:"limit_new_cards_to_daily"`
	ResetTime            ResetTime `json:"reset_time"`
	LastReset            time.Time `json:"last_reset"`
}

// DefaultResetPolicy returns the policy a deck gets when none is supplied.
func DefaultResetPolicy() ResetPolicy {
	return ResetPolicy{
		NewCardsPerDay:       DefaultNewCardsPerDay,
		LimitNewCardsToDaily: DefaultLimitNewCardsToDaily,
		ResetTime:            ResetTime{Hour: DefaultResetHour, Minute: DefaultResetMinute},
		LastReset:            NeverReset,
	}
}

var validate = validator.New()

// Validate checks the policy bounds.
func (p ResetPolicy) Validate() error {
	if err := validate.Struct(p); err != nil {
		return validationError(err)
	}
	return nil
}

// WithLastReset returns a copy of p that last reset at t.
func (p ResetPolicy) WithLastReset(t time.Time) ResetPolicy {
	p.LastReset = t
	return p
}

// Apply returns a copy of p with every non-nil field of patch written over it.
func (p ResetPolicy) Apply(patch DeckPatch) ResetPolicy {
	if patch.NewCardsPerDay != nil {
		p.NewCardsPerDay = *patch.NewCardsPerDay
	}
	if patch.LimitNewCardsToDaily != nil {
		p.LimitNewCardsToDaily = *patch.LimitNewCardsToDaily
	}
	if patch.ResetTime != nil {
		p.ResetTime = *patch.ResetTime
	}
	if patch.LastReset != nil {
		p.LastReset = *patch.LastReset
	}
	return p
}

// Deck groups cards and carries their admission policy.
type Deck struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	Name        string      `json:"name" validate:"required,max=100"`
	Description string      `json:"description,omitempty"`
	Policy      ResetPolicy `json:"policy"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Validate checks the deck name and policy.
func (d Deck) Validate() error {
	if err := validate.Struct(d); err != nil {
		return validationError(err)
	}
	return nil
}

// DeckPatch is a partial deck update. Nil fields are left unchanged.
type DeckPatch struct {
	Name                 *string    `json:"name,omitempty"`
	Description          *string    `json:"description,omitempty"`
	NewCardsPerDay       *int       `json:"new_cards_per_day,omitempty"`
	LimitNewCardsToDaily *bool      `json:"limit_new_cards_to_daily,omitempty"`
	ResetTime            *ResetTime `json:"reset_time,omitempty"`
	LastReset            *time.Time `json:"last_reset,omitempty"`
}

// Apply returns a copy of d with patch written over it.
func (d Deck) Apply(patch DeckPatch, updatedAt time.Time) Deck {
	if patch.Name != nil {
		d.Name = *patch.Name
	}
	if patch.Description != nil {
		d.Description = *patch.Description
	}
	d.Policy = d.Policy.Apply(patch)
	d.UpdatedAt = updatedAt
	return d
}

// ValidationError describes every field that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

func validationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, fmt.Sprintf("Field: %s, Tag: %s, Param: %s", fe.Namespace(), fe.Tag(), fe.Param()))
	}
	return out
}
