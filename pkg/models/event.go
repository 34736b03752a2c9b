package models

import (
	"time"

	"github.com/google/uuid"
)

// EventStatus represents the lifecycle status of an event
type EventStatus string

const (
	EventStatusUpcoming  EventStatus = "upcoming"
	EventStatusLive      EventStatus = "live"
	EventStatusCompleted EventStatus = "completed"
)

// CompletionMethod records which path closed an event or fight
type CompletionMethod string

const (
	// CompletionMethodSource means a production-trusted source reported the completion
	CompletionMethodSource CompletionMethod = "source"
	// CompletionMethodTimeFallback means the lifecycle driver completed it from schedule data
	CompletionMethodTimeFallback CompletionMethod = "time_fallback"
	// CompletionMethodHardCap means the lifecycle driver forced completion at the duration ceiling
	CompletionMethodHardCap CompletionMethod = "hard_cap"
)

// Event is one fight card
type Event struct {
	ID               uuid.UUID         `db:"id" json:"id"`
	Name             string            `db:"name" json:"name"`
	Promotion        string            `db:"promotion" json:"promotion"`
	Status           EventStatus       `db:"status" json:"status"`
	EventDate        *time.Time        `db:"event_date" json:"event_date,omitempty"`
	EarlyPrelimStart *time.Time        `db:"early_prelim_start" json:"early_prelim_start,omitempty"`
	PrelimStart      *time.Time        `db:"prelim_start" json:"prelim_start,omitempty"`
	MainCardStart    *time.Time        `db:"main_card_start" json:"main_card_start,omitempty"`
	SourceFamily     *string           `db:"source_family" json:"source_family,omitempty"`
	SourceURL        *string           `db:"source_url" json:"source_url,omitempty"`
	CompletionMethod *CompletionMethod `db:"completion_method" json:"completion_method,omitempty"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (Event) TableName() string {
	return "events"
}

// EarliestStart returns the earliest known section start, falling back to the
// generic event date when no section times exist. Returns nil when the event
// carries no schedule data at all.
func (e *Event) EarliestStart() *time.Time {
	var earliest *time.Time
	for _, t := range []*time.Time{e.EarlyPrelimStart, e.PrelimStart, e.MainCardStart} {
		if t == nil {
			continue
		}
		if earliest == nil || t.Before(*earliest) {
			earliest = t
		}
	}
	if earliest == nil {
		return e.EventDate
	}
	return earliest
}

// HasStarted reports whether the event's earliest start time has passed
func (e *Event) HasStarted(now time.Time) bool {
	start := e.EarliestStart()
	return start != nil && !now.Before(*start)
}

// SectionStart returns the scheduled start for a card section, if known
func (e *Event) SectionStart(section CardSection) *time.Time {
	switch section {
	case CardSectionEarlyPrelim:
		return e.EarlyPrelimStart
	case CardSectionPrelim:
		return e.PrelimStart
	case CardSectionMain:
		return e.MainCardStart
	}
	return nil
}
