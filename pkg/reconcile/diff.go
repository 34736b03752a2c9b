package reconcile

import (
	"github.com/google/uuid"

	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/trust"
)

// Diff is the field-level difference between a persisted fight and one
// observation of it. Candidate is keyed by published column name; the trust
// policy decides which of published/shadow actually get written. Position is
// kept apart because it has no shadow mirror.
type Diff struct {
	Candidate     map[string]any
	Position      *int
	Uncancelled   bool
	CompletedEdge bool
}

// HasChanges reports whether the diff would write anything
func (d *Diff) HasChanges() bool {
	return len(d.Candidate) > 0 || d.Position != nil
}

// computeDiff diffs an observation against a persisted fight. Result fields
// are correctable: a later snapshot may overwrite an already-set winner,
// method, round, or time, because sources publish provisional results and
// correct them afterward. Status only moves forward, except that a cancelled
// fight seen again returns to upcoming regardless of what the source claims.
//
// The tier steers which block the comparison runs against: production sources
// diff against published state, everything else against the shadow mirror, so
// a shadow source that keeps reporting already-recorded values produces an
// empty diff and reconciliation stays idempotent.
func computeDiff(record *matching.FightRecord, obs *models.FightObservation, tier trust.Tier) *Diff {
	fight := record.Fight
	diff := &Diff{Candidate: make(map[string]any)}

	diffStatus(diff, fight, obs.Status, tier)

	if obs.Position != nil && *obs.Position != fight.Position {
		diff.Position = obs.Position
	}

	if winnerID := resolveWinner(record, obs.WinnerName); winnerID != nil {
		if changedUUID(winnerID, fight.WinnerID, fight.ShadowWinnerID, tier) {
			diff.Candidate["winner_id"] = *winnerID
		}
	}
	if obs.Method != nil && changedString(obs.Method, fight.Method, fight.ShadowMethod, tier) {
		diff.Candidate["method"] = *obs.Method
	}
	if obs.ResultRound != nil && changedInt(obs.ResultRound, fight.ResultRound, fight.ShadowResultRound, tier) {
		diff.Candidate["result_round"] = *obs.ResultRound
	}
	if obs.ResultTime != nil && changedString(obs.ResultTime, fight.ResultTime, fight.ShadowResultTime, tier) {
		diff.Candidate["result_time"] = *obs.ResultTime
	}
	if obs.CurrentRound != nil && changedInt(obs.CurrentRound, fight.CurrentRound, fight.ShadowCurrentRound, tier) {
		diff.Candidate["current_round"] = *obs.CurrentRound
	}
	if obs.CompletedRounds != nil && changedInt(obs.CompletedRounds, fight.CompletedRounds, fight.ShadowCompletedRounds, tier) {
		diff.Candidate["completed_rounds"] = *obs.CompletedRounds
	}

	return diff
}

// diffStatus applies the status rules: cancelled fights seen in a snapshot
// return to upcoming (never directly to live or completed); otherwise status
// only moves forward within the block the tier writes to.
func diffStatus(diff *Diff, fight *models.Fight, observed models.FightStatus, tier trust.Tier) {
	if fight.Status == models.FightStatusCancelled {
		diff.Candidate["status"] = models.FightStatusUpcoming
		diff.Uncancelled = true
		return
	}

	if tier == trust.TierProduction {
		if models.IsForwardTransition(fight.Status, observed) {
			diff.Candidate["status"] = observed
			diff.CompletedEdge = observed == models.FightStatusCompleted
		}
		return
	}

	if fight.ShadowStatus != nil && *fight.ShadowStatus == models.FightStatusCancelled {
		diff.Candidate["status"] = models.FightStatusUpcoming
		diff.Uncancelled = true
		return
	}
	if fight.ShadowStatus == nil || models.IsForwardTransition(*fight.ShadowStatus, observed) {
		diff.Candidate["status"] = observed
	}
}

// resolveWinner maps a winner name from the observation onto one of the
// fight's two fighters by name signature. An unrecognized winner is dropped
// rather than guessed.
func resolveWinner(record *matching.FightRecord, winnerName *string) *uuid.UUID {
	if winnerName == nil || *winnerName == "" {
		return nil
	}
	sig := matching.Signature(*winnerName)
	if sig == matching.Signature(record.FighterAName) {
		return &record.Fight.FighterAID
	}
	if sig == matching.Signature(record.FighterBName) {
		return &record.Fight.FighterBID
	}
	return nil
}

func changedString(observed, published, shadow *string, tier trust.Tier) bool {
	if tier == trust.TierProduction {
		return published == nil || *published != *observed
	}
	return shadow == nil || *shadow != *observed
}

func changedInt(observed, published, shadow *int, tier trust.Tier) bool {
	if tier == trust.TierProduction {
		return published == nil || *published != *observed
	}
	return shadow == nil || *shadow != *observed
}

func changedUUID(observed, published, shadow *uuid.UUID, tier trust.Tier) bool {
	if tier == trust.TierProduction {
		return published == nil || *published != *observed
	}
	return shadow == nil || *shadow != *observed
}
