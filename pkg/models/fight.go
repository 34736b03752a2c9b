package models

import (
	"time"

	"github.com/google/uuid"
)

// FightStatus represents the lifecycle status of a fight
type FightStatus string

const (
	FightStatusUpcoming  FightStatus = "upcoming"
	FightStatusLive      FightStatus = "live"
	FightStatusCompleted FightStatus = "completed"
	FightStatusCancelled FightStatus = "cancelled"
)

// CardSection is the coarse grouping of fights within a card
type CardSection string

const (
	CardSectionEarlyPrelim CardSection = "early_prelim"
	CardSectionPrelim      CardSection = "prelim"
	CardSectionMain        CardSection = "main"
)

// Fight is one bout on a card.
//
// Status, result, and live-progress fields come in two blocks: the published
// block is user-facing and only written by production-trusted sources or the
// lifecycle driver; the shadow block mirrors the same fields and is written on
// every reconciliation regardless of trust tier, so an unproven source can
// accumulate a track record without touching user-visible state.
type Fight struct {
	ID         uuid.UUID    `db:"id" json:"id"`
	EventID    uuid.UUID    `db:"event_id" json:"event_id"`
	FighterAID uuid.UUID    `db:"fighter_a_id" json:"fighter_a_id"`
	FighterBID uuid.UUID    `db:"fighter_b_id" json:"fighter_b_id"`
	ExternalID *string      `db:"external_id" json:"external_id,omitempty"`
	Position   int          `db:"position" json:"position"`
	Section    *CardSection `db:"section" json:"section,omitempty"`

	// Scheduled rounds: 5 for title fights, 3 otherwise
	ScheduledRounds int  `db:"scheduled_rounds" json:"scheduled_rounds"`
	IsTitleFight    bool `db:"is_title_fight" json:"is_title_fight"`

	// Published fields
	Status          FightStatus `db:"status" json:"status"`
	WinnerID        *uuid.UUID  `db:"winner_id" json:"winner_id,omitempty"`
	Method          *string     `db:"method" json:"method,omitempty"`
	ResultRound     *int        `db:"result_round" json:"result_round,omitempty"`
	ResultTime      *string     `db:"result_time" json:"result_time,omitempty"`
	CurrentRound    *int        `db:"current_round" json:"current_round,omitempty"`
	CompletedRounds *int        `db:"completed_rounds" json:"completed_rounds,omitempty"`

	// Shadow fields: always-written mirror of the block above
	ShadowStatus          *FightStatus `db:"shadow_status" json:"shadow_status,omitempty"`
	ShadowWinnerID        *uuid.UUID   `db:"shadow_winner_id" json:"shadow_winner_id,omitempty"`
	ShadowMethod          *string      `db:"shadow_method" json:"shadow_method,omitempty"`
	ShadowResultRound     *int         `db:"shadow_result_round" json:"shadow_result_round,omitempty"`
	ShadowResultTime      *string      `db:"shadow_result_time" json:"shadow_result_time,omitempty"`
	ShadowCurrentRound    *int         `db:"shadow_current_round" json:"shadow_current_round,omitempty"`
	ShadowCompletedRounds *int         `db:"shadow_completed_rounds" json:"shadow_completed_rounds,omitempty"`

	CompletionMethod *CompletionMethod `db:"completion_method" json:"completion_method,omitempty"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (Fight) TableName() string {
	return "fights"
}

// IsOpen reports whether the fight can still change state
func (f *Fight) IsOpen() bool {
	return f.Status != FightStatusCompleted && f.Status != FightStatusCancelled
}

// statusRank orders forward status transitions. Cancelled sits outside the
// forward chain and is handled by the explicit cancellation path.
func statusRank(s FightStatus) int {
	switch s {
	case FightStatusUpcoming:
		return 0
	case FightStatusLive:
		return 1
	case FightStatusCompleted:
		return 2
	}
	return -1
}

// IsForwardTransition reports whether moving from one status to another obeys
// the monotonic upcoming -> live -> completed ordering
func IsForwardTransition(from, to FightStatus) bool {
	fromRank, toRank := statusRank(from), statusRank(to)
	return fromRank >= 0 && toRank >= 0 && toRank > fromRank
}
