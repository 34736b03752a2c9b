package repositories

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/stem/pkg/database"
	"github.com/Ramsey-B/stem/pkg/tracing"

	"github.com/Ramsey-B/thistle/pkg/models"
)

const trackerRunsTable = "tracker_runs"

// TrackerRunRepository handles database operations for tracker run audit rows
type TrackerRunRepository struct {
	*Repository
}

// NewTrackerRunRepository creates a new tracker run repository
func NewTrackerRunRepository(db database.DB, logger ectologger.Logger) *TrackerRunRepository {
	return &TrackerRunRepository{
		Repository: NewRepository(db, logger),
	}
}

// Create creates a new tracker run record
func (r *TrackerRunRepository) Create(ctx context.Context, run *models.TrackerRun) error {
	ctx, span := tracing.StartSpan(ctx, "TrackerRunRepository.Create")
	defer span.End()

	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	now := time.Now().UTC()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(trackerRunsTable).
		Cols(
			"id", "event_id", "source_family", "source_url", "status",
			"started_at", "poll_count", "created_at", "updated_at",
		).
		Values(
			run.ID, run.EventID, run.SourceFamily, run.SourceURL, run.Status,
			run.StartedAt, run.PollCount, now, now,
		)

	query, args := ib.Build()
	if _, err := r.DB().ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"run_id": run.ID,
		}).Error("failed to create tracker run")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create tracker run")
	}
	return nil
}

// Update writes a run's mutable fields
func (r *TrackerRunRepository) Update(ctx context.Context, run *models.TrackerRun) error {
	ctx, span := tracing.StartSpan(ctx, "TrackerRunRepository.Update")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(trackerRunsTable).
		Set(
			ub.Assign("status", run.Status),
			ub.Assign("stopped_at", run.StoppedAt),
			ub.Assign("poll_count", run.PollCount),
			ub.Assign("last_error", run.LastError),
			ub.Assign("updated_at", time.Now().UTC()),
		).
		Where(ub.Equal("id", run.ID))

	query, args := ub.Build()
	if _, err := r.DB().ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"run_id": run.ID,
		}).Error("failed to update tracker run")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update tracker run")
	}
	return nil
}

// ListByEvent retrieves runs for an event, newest first
func (r *TrackerRunRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*models.TrackerRun, error) {
	ctx, span := tracing.StartSpan(ctx, "TrackerRunRepository.ListByEvent")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("*").From(trackerRunsTable).
		Where(sb.Equal("event_id", eventID)).
		OrderBy("started_at DESC")

	query, args := sb.Build()
	var runs []*models.TrackerRun
	if err := r.DB().SelectContext(ctx, &runs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_id": eventID,
		}).Error("failed to list tracker runs")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list tracker runs")
	}
	return runs, nil
}
