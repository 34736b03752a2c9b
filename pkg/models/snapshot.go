package models

// Snapshot is one poll's normalized view of an event's live state. Adapters
// produce a fresh Snapshot per poll and the reconciler consumes it; it is
// never persisted and is superseded by the next poll.
type Snapshot struct {
	SourceFamily string             `json:"source_family"`
	SourceURL    string             `json:"source_url"`
	EventStarted bool               `json:"event_started"`
	EventDone    bool               `json:"event_done"`
	Fights       []FightObservation `json:"fights"`
}

// FightObservation is a single bout as one source saw it on one poll. Side
// assignment (A vs B) carries no meaning; matching is order-independent.
type FightObservation struct {
	FighterAName string       `json:"fighter_a_name"`
	FighterBName string       `json:"fighter_b_name"`
	ExternalID   *string      `json:"external_id,omitempty"`
	Position     *int         `json:"position,omitempty"`
	Section      *CardSection `json:"section,omitempty"`
	IsTitleFight bool         `json:"is_title_fight"`

	Status          FightStatus `json:"status"`
	WinnerName      *string     `json:"winner_name,omitempty"`
	Method          *string     `json:"method,omitempty"`
	ResultRound     *int        `json:"result_round,omitempty"`
	ResultTime      *string     `json:"result_time,omitempty"`
	CurrentRound    *int        `json:"current_round,omitempty"`
	CompletedRounds *int        `json:"completed_rounds,omitempty"`
}
