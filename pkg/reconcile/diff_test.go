package reconcile

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/trust"
)

func testRecord(status models.FightStatus) *matching.FightRecord {
	return &matching.FightRecord{
		Fight: &models.Fight{
			ID:         uuid.New(),
			FighterAID: uuid.New(),
			FighterBID: uuid.New(),
			Position:   1,
			Status:     status,
		},
		FighterAName: "Charles Oliveira",
		FighterBName: "Islam Makhachev",
	}
}

func TestComputeDiff_StatusNeverMovesBackward(t *testing.T) {
	tests := []struct {
		name     string
		from     models.FightStatus
		observed models.FightStatus
		want     bool
	}{
		{"upcoming to live", models.FightStatusUpcoming, models.FightStatusLive, true},
		{"upcoming to completed", models.FightStatusUpcoming, models.FightStatusCompleted, true},
		{"live to completed", models.FightStatusLive, models.FightStatusCompleted, true},
		{"live back to upcoming", models.FightStatusLive, models.FightStatusUpcoming, false},
		{"completed back to live", models.FightStatusCompleted, models.FightStatusLive, false},
		{"completed stays completed", models.FightStatusCompleted, models.FightStatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := testRecord(tt.from)
			record.Fight.ShadowStatus = &tt.from
			obs := &models.FightObservation{
				FighterAName: record.FighterAName,
				FighterBName: record.FighterBName,
				Status:       tt.observed,
			}

			diff := computeDiff(record, obs, trust.TierProduction)
			_, wrote := diff.Candidate["status"]
			assert.Equal(t, tt.want, wrote)
		})
	}
}

func TestComputeDiff_CancelledReturnsToUpcomingOnly(t *testing.T) {
	t.Run("published cancellation", func(t *testing.T) {
		record := testRecord(models.FightStatusCancelled)
		obs := &models.FightObservation{
			FighterAName: record.FighterAName,
			FighterBName: record.FighterBName,
			Status:       models.FightStatusCompleted,
		}

		diff := computeDiff(record, obs, trust.TierProduction)
		assert.Equal(t, models.FightStatusUpcoming, diff.Candidate["status"])
		assert.True(t, diff.Uncancelled)
		assert.False(t, diff.CompletedEdge)
	})

	t.Run("shadow cancellation", func(t *testing.T) {
		// Published still says upcoming; only the shadow mirror recorded the
		// cancellation, and only the shadow mirror un-cancels.
		record := testRecord(models.FightStatusUpcoming)
		cancelled := models.FightStatusCancelled
		record.Fight.ShadowStatus = &cancelled
		obs := &models.FightObservation{
			FighterAName: record.FighterAName,
			FighterBName: record.FighterBName,
			Status:       models.FightStatusLive,
		}

		diff := computeDiff(record, obs, trust.TierShadow)
		assert.Equal(t, models.FightStatusUpcoming, diff.Candidate["status"])
		assert.True(t, diff.Uncancelled)
	})
}

func TestComputeDiff_UnrecognizedWinnerDropped(t *testing.T) {
	record := testRecord(models.FightStatusCompleted)
	obs := &models.FightObservation{
		FighterAName: record.FighterAName,
		FighterBName: record.FighterBName,
		Status:       models.FightStatusCompleted,
		WinnerName:   strPtr("Conor McGregor"),
	}

	diff := computeDiff(record, obs, trust.TierProduction)
	assert.NotContains(t, diff.Candidate, "winner_id")
}

func TestComputeDiff_WinnerResolvedByDiacriticInsensitiveSignature(t *testing.T) {
	record := testRecord(models.FightStatusLive)
	record.FighterAName = "Jose Aldo"
	obs := &models.FightObservation{
		FighterAName: record.FighterAName,
		FighterBName: record.FighterBName,
		Status:       models.FightStatusCompleted,
		WinnerName:   strPtr("José Aldo"),
	}

	diff := computeDiff(record, obs, trust.TierProduction)
	require.Contains(t, diff.Candidate, "winner_id")
	assert.Equal(t, record.Fight.FighterAID, diff.Candidate["winner_id"])
	assert.True(t, diff.CompletedEdge)
}

func TestComputeDiff_ShadowTierComparesAgainstShadowBlock(t *testing.T) {
	record := testRecord(models.FightStatusUpcoming)
	live := models.FightStatusLive
	round := 2
	// Published block still says upcoming; the shadow mirror already
	// recorded what this source reports.
	record.Fight.ShadowStatus = &live
	record.Fight.ShadowCurrentRound = &round

	obs := &models.FightObservation{
		FighterAName: record.FighterAName,
		FighterBName: record.FighterBName,
		Status:       models.FightStatusLive,
		CurrentRound: intPtr(2),
	}

	diff := computeDiff(record, obs, trust.TierShadow)
	assert.False(t, diff.HasChanges())

	// The same observation from a production source still has published
	// state to move.
	diff = computeDiff(record, obs, trust.TierProduction)
	assert.True(t, diff.HasChanges())
}

func TestComputeDiff_PositionChange(t *testing.T) {
	record := testRecord(models.FightStatusUpcoming)
	obs := &models.FightObservation{
		FighterAName: record.FighterAName,
		FighterBName: record.FighterBName,
		Status:       models.FightStatusUpcoming,
		Position:     intPtr(4),
	}

	diff := computeDiff(record, obs, trust.TierProduction)
	require.NotNil(t, diff.Position)
	assert.Equal(t, 4, *diff.Position)

	obs.Position = intPtr(record.Fight.Position)
	diff = computeDiff(record, obs, trust.TierProduction)
	assert.Nil(t, diff.Position)
}
