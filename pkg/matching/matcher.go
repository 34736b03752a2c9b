package matching

import (
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// MatchKind records how an observation matched a persisted fight
type MatchKind string

const (
	// MatchKindExternalID is an authoritative, order-independent id match
	MatchKindExternalID MatchKind = "external_id"
	// MatchKindSignature is an unordered last-name signature pair match
	MatchKindSignature MatchKind = "signature"
	// MatchKindNone means no persisted fight matched
	MatchKindNone MatchKind = "none"
)

// FightRecord is a persisted fight with its fighters' names resolved, which
// is what signature matching needs.
type FightRecord struct {
	Fight        *models.Fight
	FighterAName string
	FighterBName string
}

// PairKey returns the unordered signature pair for the persisted fight
func (r *FightRecord) PairKey() string {
	return PairKey(r.FighterAName, r.FighterBName)
}

// Matcher matches snapshot observations against an event's persisted fights
type Matcher struct {
	logger ectologger.Logger
}

// NewMatcher creates a new matcher
func NewMatcher(logger ectologger.Logger) *Matcher {
	return &Matcher{logger: logger}
}

// Match returns the best-matching persisted fight for an observation, in
// priority order: stable external id first, then the unordered signature
// pair. Returns MatchKindNone when nothing matches; the reconciler decides
// whether that means "create" or "ignore" based on event phase.
//
// Two persisted fights sharing a signature pair (a rematch on the same card)
// are not disambiguated: the first match wins, logged at Warn.
func (m *Matcher) Match(obs *models.FightObservation, fights []*FightRecord) (*FightRecord, MatchKind) {
	if obs.ExternalID != nil && *obs.ExternalID != "" {
		for _, record := range fights {
			if record.Fight.ExternalID != nil && *record.Fight.ExternalID == *obs.ExternalID {
				return record, MatchKindExternalID
			}
		}
	}

	key := PairKey(obs.FighterAName, obs.FighterBName)
	var matched *FightRecord
	for _, record := range fights {
		if record.PairKey() != key {
			continue
		}
		if matched != nil {
			m.logger.WithFields(map[string]any{
				"pair_key":   key,
				"fight_id":   matched.Fight.ID,
				"ignored_id": record.Fight.ID,
			}).Warn("Signature pair collision, keeping first match")
			continue
		}
		matched = record
	}
	if matched != nil {
		return matched, MatchKindSignature
	}

	return nil, MatchKindNone
}
