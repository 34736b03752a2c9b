package sherdog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/thistle/pkg/httpclient"
	"github.com/Ramsey-B/thistle/pkg/models"
)

func serveFeed(t *testing.T, body string) (*Adapter, string) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	client := httpclient.NewClient(httpclient.DefaultConfig(), logger)
	return NewAdapter(client, logger), server.URL
}

func TestFetchSnapshot_DerivesEventStarted(t *testing.T) {
	t.Run("all upcoming means not started", func(t *testing.T) {
		adapter, url := serveFeed(t, `{"event": {"status": "upcoming", "fights": [
			{"order": 1, "fighter1_name": "Charles Oliveira", "fighter2_name": "Islam Makhachev", "status": "upcoming"}
		]}}`)

		snapshot, err := adapter.FetchSnapshot(context.Background(), url)
		require.NoError(t, err)
		assert.False(t, snapshot.EventStarted)
		assert.False(t, snapshot.EventDone)
	})

	t.Run("a live fight means started", func(t *testing.T) {
		adapter, url := serveFeed(t, `{"event": {"status": "live", "fights": [
			{"order": 1, "fighter1_name": "Charles Oliveira", "fighter2_name": "Islam Makhachev", "status": "live"}
		]}}`)

		snapshot, err := adapter.FetchSnapshot(context.Background(), url)
		require.NoError(t, err)
		assert.True(t, snapshot.EventStarted)
	})

	t.Run("finished event is started and done", func(t *testing.T) {
		adapter, url := serveFeed(t, `{"event": {"status": "finished", "fights": []}}`)

		snapshot, err := adapter.FetchSnapshot(context.Background(), url)
		require.NoError(t, err)
		assert.True(t, snapshot.EventStarted)
		assert.True(t, snapshot.EventDone)
	})
}

func TestFetchSnapshot_NormalizesResults(t *testing.T) {
	adapter, url := serveFeed(t, `{"event": {"status": "live", "fights": [
		{"order": 2, "fighter1_name": "Alex Pereira", "fighter2_name": "Magomed Ankalaev", "title_fight": true, "status": "upcoming"},
		{"order": 1, "fighter1_name": "Jose Aldo", "fighter2_name": "Max Holloway", "status": "finished",
			"winner_name": "Max Holloway", "win_method": "Decision (unanimous)", "win_round": 3, "win_time": "5:00"}
	]}}`)

	snapshot, err := adapter.FetchSnapshot(context.Background(), url)
	require.NoError(t, err)
	require.Len(t, snapshot.Fights, 2)

	title := snapshot.Fights[0]
	assert.True(t, title.IsTitleFight)
	assert.Equal(t, models.FightStatusUpcoming, title.Status)
	require.NotNil(t, title.Position)
	assert.Equal(t, 2, *title.Position)
	assert.Nil(t, title.WinnerName)

	done := snapshot.Fights[1]
	assert.Equal(t, models.FightStatusCompleted, done.Status)
	require.NotNil(t, done.WinnerName)
	assert.Equal(t, "Max Holloway", *done.WinnerName)
	require.NotNil(t, done.Method)
	assert.Equal(t, "Decision (unanimous)", *done.Method)
	require.NotNil(t, done.ResultRound)
	assert.Equal(t, 3, *done.ResultRound)
}

func TestFetchSnapshot_SkipsIncompleteBouts(t *testing.T) {
	adapter, url := serveFeed(t, `{"event": {"status": "upcoming", "fights": [
		{"order": 1, "fighter1_name": "Charles Oliveira", "fighter2_name": "", "status": "upcoming"},
		{"order": 2, "fighter1_name": "Alex Pereira", "fighter2_name": "Magomed Ankalaev", "status": "upcoming"}
	]}}`)

	snapshot, err := adapter.FetchSnapshot(context.Background(), url)
	require.NoError(t, err)
	require.Len(t, snapshot.Fights, 1)
	assert.Equal(t, "Alex Pereira", snapshot.Fights[0].FighterAName)
}
