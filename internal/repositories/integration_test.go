package repositories_test

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ramsey-B/stem/pkg/database"
	"github.com/Ramsey-B/thistle/internal/repositories"
	"github.com/Ramsey-B/thistle/pkg/models"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func getTestDB(t *testing.T) database.DB {
	// Use environment variables or defaults for test DB
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}
	dbUser := os.Getenv("DB_USER_NAME")
	if dbUser == "" {
		dbUser = "user"
	}
	dbPass := os.Getenv("DB_PASSWORD")
	if dbPass == "" {
		dbPass = "password"
	}
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "thistle"
	}

	dsn := "host=" + dbHost + " user=" + dbUser + " password=" + dbPass + " dbname=" + dbName + " sslmode=disable"
	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err, "Failed to connect to test database")

	return database.NewDatabaseInstance(db, getTestLogger())
}

// assertNotFound asserts that err is an HTTP 404 error
func assertNotFound(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, httperror.IsHTTPError(err), "expected HTTP error, got: %v", err)
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err), "expected 404, got: %d", httperror.GetStatusCode(err))
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func createTestEvent(t *testing.T, repo *repositories.EventRepository, mainCardStart time.Time) *models.Event {
	t.Helper()
	event := &models.Event{
		Name:          "Test Event " + uuid.NewString()[:8],
		Promotion:     "UFC",
		MainCardStart: timePtr(mainCardStart),
	}
	require.NoError(t, repo.Create(context.Background(), event))
	return event
}

func TestEventRepository_CRUD(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	logger := getTestLogger()
	repo := repositories.NewEventRepository(db, logger)
	ctx := context.Background()

	event := createTestEvent(t, repo, time.Now().Add(48*time.Hour).UTC())
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, models.EventStatusUpcoming, event.Status)
	assert.False(t, event.CreatedAt.IsZero())

	// GetByID round-trip
	fetched, err := repo.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.ID, fetched.ID)
	assert.Equal(t, event.Name, fetched.Name)
	require.NotNil(t, fetched.MainCardStart)

	// Unknown ID is 404
	_, err = repo.GetByID(ctx, uuid.New())
	assertNotFound(t, err)

	// BindSource sets the family and url
	require.NoError(t, repo.BindSource(ctx, event.ID, "ufcstats", "http://ufcstats.test/e/1"))
	fetched, err = repo.GetByID(ctx, event.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched.SourceFamily)
	assert.Equal(t, "ufcstats", *fetched.SourceFamily)

	// ListByStatus includes the event
	upcoming, err := repo.ListByStatus(ctx, models.EventStatusUpcoming)
	require.NoError(t, err)
	found := false
	for _, e := range upcoming {
		if e.ID == event.ID {
			found = true
		}
	}
	assert.True(t, found)

	// ListSchedulable picks it up inside the window, not outside
	now := time.Now().UTC()
	inWindow, err := repo.ListSchedulable(ctx, now, now.Add(72*time.Hour))
	require.NoError(t, err)
	found = false
	for _, e := range inWindow {
		if e.ID == event.ID {
			found = true
		}
	}
	assert.True(t, found)

	outOfWindow, err := repo.ListSchedulable(ctx, now, now.Add(time.Hour))
	require.NoError(t, err)
	for _, e := range outOfWindow {
		assert.NotEqual(t, event.ID, e.ID)
	}

	// UpdateStatus with completion method
	method := models.CompletionMethodTimeFallback
	require.NoError(t, repo.UpdateStatus(ctx, event.ID, models.EventStatusCompleted, &method))
	fetched, err = repo.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusCompleted, fetched.Status)
	require.NotNil(t, fetched.CompletionMethod)
	assert.Equal(t, method, *fetched.CompletionMethod)

	// Completed events are no longer schedulable
	afterComplete, err := repo.ListSchedulable(ctx, now, now.Add(72*time.Hour))
	require.NoError(t, err)
	for _, e := range afterComplete {
		assert.NotEqual(t, event.ID, e.ID)
	}

	// UpdateStatus on unknown ID is 404
	err = repo.UpdateStatus(ctx, uuid.New(), models.EventStatusLive, nil)
	assertNotFound(t, err)
}

func TestFighterRepository_UpsertByName(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	logger := getTestLogger()
	repo := repositories.NewFighterRepository(db, logger)
	ctx := context.Background()

	name := "Test Fighter " + uuid.NewString()[:8]

	first, err := repo.UpsertByName(ctx, name)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.Equal(t, name, first.FullName)
	assert.True(t, first.IsPlaceholder)

	// Upserting the same name returns the same row
	second, err := repo.UpsertByName(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	fetched, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, name, fetched.FullName)

	_, err = repo.UpsertByName(ctx, "   ")
	require.Error(t, err)
}

func TestFightRepository_CreateListUpdate(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	logger := getTestLogger()
	eventRepo := repositories.NewEventRepository(db, logger)
	fighterRepo := repositories.NewFighterRepository(db, logger)
	repo := repositories.NewFightRepository(db, logger)
	ctx := context.Background()

	event := createTestEvent(t, eventRepo, time.Now().Add(24*time.Hour).UTC())
	fighterA, err := fighterRepo.UpsertByName(ctx, "Alpha "+uuid.NewString()[:8])
	require.NoError(t, err)
	fighterB, err := fighterRepo.UpsertByName(ctx, "Bravo "+uuid.NewString()[:8])
	require.NoError(t, err)

	opener := &models.Fight{
		EventID:         event.ID,
		FighterAID:      fighterA.ID,
		FighterBID:      fighterB.ID,
		Position:        1,
		ScheduledRounds: 3,
		Status:          models.FightStatusUpcoming,
		ExternalID:      strPtr("ext-" + uuid.NewString()[:8]),
	}
	require.NoError(t, repo.Create(ctx, opener))

	mainEvent := &models.Fight{
		EventID:         event.ID,
		FighterAID:      fighterB.ID,
		FighterBID:      fighterA.ID,
		Position:        2,
		ScheduledRounds: 5,
		IsTitleFight:    true,
		Status:          models.FightStatusUpcoming,
	}
	require.NoError(t, repo.Create(ctx, mainEvent))

	// ListByEvent returns chronological order
	fights, err := repo.ListByEvent(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, fights, 2)
	assert.Equal(t, opener.ID, fights[0].ID)
	assert.Equal(t, mainEvent.ID, fights[1].ID)

	// Records carry fighter names for matching
	records, err := repo.ListRecordsByEvent(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, fighterA.FullName, records[0].FighterAName)
	assert.Equal(t, fighterB.FullName, records[0].FighterBName)

	// UpdateColumns writes published and shadow blocks alike
	shadowStatus := string(models.FightStatusLive)
	require.NoError(t, repo.UpdateColumns(ctx, opener.ID, map[string]any{
		"status":               models.FightStatusLive,
		"current_round":        2,
		"shadow_status":        shadowStatus,
		"shadow_current_round": 2,
	}))

	fights, err = repo.ListByEvent(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FightStatusLive, fights[0].Status)
	require.NotNil(t, fights[0].CurrentRound)
	assert.Equal(t, 2, *fights[0].CurrentRound)
	require.NotNil(t, fights[0].ShadowStatus)
	assert.Equal(t, models.FightStatusLive, *fights[0].ShadowStatus)

	// UpdateColumns on unknown ID is 404
	err = repo.UpdateColumns(ctx, uuid.New(), map[string]any{"status": models.FightStatusLive})
	assertNotFound(t, err)
}

func TestTrackerRunRepository_Audit(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	logger := getTestLogger()
	eventRepo := repositories.NewEventRepository(db, logger)
	repo := repositories.NewTrackerRunRepository(db, logger)
	ctx := context.Background()

	event := createTestEvent(t, eventRepo, time.Now().Add(2*time.Hour).UTC())

	run := &models.TrackerRun{
		EventID:      event.ID,
		SourceFamily: "ufcstats",
		SourceURL:    "http://ufcstats.test/e/2",
		Status:       models.TrackerRunStatusRunning,
		StartedAt:    time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, run))
	assert.NotEqual(t, uuid.Nil, run.ID)

	run.Status = models.TrackerRunStatusStopped
	run.StoppedAt = timePtr(time.Now().UTC())
	run.PollCount = 7
	run.LastError = strPtr("fetch timeout")
	require.NoError(t, repo.Update(ctx, run))

	runs, err := repo.ListByEvent(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.TrackerRunStatusStopped, runs[0].Status)
	assert.Equal(t, 7, runs[0].PollCount)
	require.NotNil(t, runs[0].LastError)
	assert.Equal(t, "fetch timeout", *runs[0].LastError)
	require.NotNil(t, runs[0].StoppedAt)
}
