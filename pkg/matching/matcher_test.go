package matching

import (
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/thistle/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func strPtr(s string) *string {
	return &s
}

func record(nameA, nameB string, externalID *string) *FightRecord {
	return &FightRecord{
		Fight: &models.Fight{
			ID:         uuid.New(),
			ExternalID: externalID,
		},
		FighterAName: nameA,
		FighterBName: nameB,
	}
}

func TestMatcher_ExternalIDWins(t *testing.T) {
	matcher := NewMatcher(testLogger())

	// External id matches a fight whose names disagree with the observation;
	// the id is authoritative.
	byID := record("Completely Different", "Names Here", strPtr("bout-42"))
	bySig := record("Jon Jones", "Stipe Miocic", nil)

	obs := &models.FightObservation{
		FighterAName: "Jon Jones",
		FighterBName: "Stipe Miocic",
		ExternalID:   strPtr("bout-42"),
	}

	matched, kind := matcher.Match(obs, []*FightRecord{bySig, byID})
	require.NotNil(t, matched)
	assert.Equal(t, MatchKindExternalID, kind)
	assert.Equal(t, byID.Fight.ID, matched.Fight.ID)
}

func TestMatcher_SignatureOrderIndependent(t *testing.T) {
	matcher := NewMatcher(testLogger())

	persisted := record("Stipe Miocic", "Jon Jones", nil)
	obs := &models.FightObservation{
		FighterAName: "Jon Jones",
		FighterBName: "Stipe Miocic",
	}

	matched, kind := matcher.Match(obs, []*FightRecord{persisted})
	require.NotNil(t, matched)
	assert.Equal(t, MatchKindSignature, kind)
}

func TestMatcher_SingleTokenNames(t *testing.T) {
	matcher := NewMatcher(testLogger())

	persisted := record("Shogun", "Wanderlei Silva", nil)
	obs := &models.FightObservation{
		FighterAName: "Mauricio Shogun",
		FighterBName: "Wanderlei Silva",
	}

	// Last token of "Mauricio Shogun" equals the single-token ring name.
	matched, kind := matcher.Match(obs, []*FightRecord{persisted})
	require.NotNil(t, matched)
	assert.Equal(t, MatchKindSignature, kind)
}

func TestMatcher_NoMatch(t *testing.T) {
	matcher := NewMatcher(testLogger())

	persisted := record("Jon Jones", "Stipe Miocic", nil)
	obs := &models.FightObservation{
		FighterAName: "Alex Pereira",
		FighterBName: "Magomed Ankalaev",
	}

	matched, kind := matcher.Match(obs, []*FightRecord{persisted})
	assert.Nil(t, matched)
	assert.Equal(t, MatchKindNone, kind)
}

func TestMatcher_CollisionFirstMatchWins(t *testing.T) {
	matcher := NewMatcher(testLogger())

	first := record("Jon Jones", "Stipe Miocic", nil)
	second := record("Jon Jones", "Stipe Miocic", nil)

	obs := &models.FightObservation{
		FighterAName: "Jon Jones",
		FighterBName: "Stipe Miocic",
	}

	matched, kind := matcher.Match(obs, []*FightRecord{first, second})
	require.NotNil(t, matched)
	assert.Equal(t, MatchKindSignature, kind)
	assert.Equal(t, first.Fight.ID, matched.Fight.ID)
}
