package repositories

import (
	"context"
	"database/sql"
	"errors"
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

const eventsTable = "events"

// earliestStartExpr mirrors models.Event.EarliestStart in SQL: the minimum
// known section start, falling back to the generic event date.
const earliestStartExpr = "COALESCE(LEAST(early_prelim_start, prelim_start, main_card_start), event_date)"

// EventRepository handles database operations for events
type EventRepository struct {
	*Repository
}

// NewEventRepository creates a new event repository
func NewEventRepository(db database.DB, logger ectologger.Logger) *EventRepository {
	return &EventRepository{
		Repository: NewRepository(db, logger),
	}
}

// Create creates a new event
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	ctx, span := tracing.StartSpan(ctx, "EventRepository.Create")
	defer span.End()

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Status == "" {
		event.Status = models.EventStatusUpcoming
	}
	now := time.Now().UTC()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(eventsTable).
		Cols(
			"id", "name", "promotion", "status", "event_date",
			"early_prelim_start", "prelim_start", "main_card_start",
			"source_family", "source_url", "created_at", "updated_at",
		).
		Values(
			event.ID, event.Name, event.Promotion, event.Status, event.EventDate,
			event.EarlyPrelimStart, event.PrelimStart, event.MainCardStart,
			event.SourceFamily, event.SourceURL, now, now,
		)

	query, args := ib.Build()
	if _, err := r.DB().ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_id": event.ID,
		}).Error("failed to create event")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create event")
	}
	event.CreatedAt = now
	event.UpdatedAt = now

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"event_id": event.ID,
	}).Debugf("Created %s", eventsTable)
	return nil
}

// GetByID retrieves an event by ID
func (r *EventRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	ctx, span := tracing.StartSpan(ctx, "EventRepository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("*").From(eventsTable).Where(sb.Equal("id", id))

	query, args := sb.Build()
	var event models.Event
	err := r.DB().GetContext(ctx, &event, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "event %s does not exist", id)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_id": id,
		}).Error("failed to get event")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get event")
	}
	return &event, nil
}

// ListByStatus retrieves all events with the given status
func (r *EventRepository) ListByStatus(ctx context.Context, status models.EventStatus) ([]*models.Event, error) {
	ctx, span := tracing.StartSpan(ctx, "EventRepository.ListByStatus")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("*").From(eventsTable).
		Where(sb.Equal("status", status)).
		OrderBy(earliestStartExpr + " ASC")

	query, args := sb.Build()
	var events []*models.Event
	if err := r.DB().SelectContext(ctx, &events, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list events by status")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list events")
	}
	return events, nil
}

// ListSchedulable retrieves incomplete events whose earliest start falls
// within [from, to], ordered by start ascending
func (r *EventRepository) ListSchedulable(ctx context.Context, from, to time.Time) ([]*models.Event, error) {
	ctx, span := tracing.StartSpan(ctx, "EventRepository.ListSchedulable")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("*").From(eventsTable).
		Where(
			sb.NotEqual("status", models.EventStatusCompleted),
			sb.Between(earliestStartExpr, from, to),
		).
		OrderBy(earliestStartExpr + " ASC")

	query, args := sb.Build()
	var events []*models.Event
	if err := r.DB().SelectContext(ctx, &events, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list schedulable events")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list schedulable events")
	}
	return events, nil
}

// UpdateStatus moves an event's status, recording the completion method when
// one applies
func (r *EventRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.EventStatus, method *models.CompletionMethod) error {
	ctx, span := tracing.StartSpan(ctx, "EventRepository.UpdateStatus")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(eventsTable).
		Set(
			ub.Assign("status", status),
			ub.Assign("completion_method", method),
			ub.Assign("updated_at", time.Now().UTC()),
		).
		Where(ub.Equal("id", id))

	query, args := ub.Build()
	result, err := r.DB().ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_id": id,
		}).Error("failed to update event status")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update event status")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return NotFound("event %s does not exist", id)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"event_id": id,
		"status":   status,
	}).Debugf("Updated %s status", eventsTable)
	return nil
}

// BindSource attaches a source family and feed URL to an event
func (r *EventRepository) BindSource(ctx context.Context, id uuid.UUID, family, url string) error {
	ctx, span := tracing.StartSpan(ctx, "EventRepository.BindSource")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(eventsTable).
		Set(
			ub.Assign("source_family", family),
			ub.Assign("source_url", url),
			ub.Assign("updated_at", time.Now().UTC()),
		).
		Where(ub.Equal("id", id))

	query, args := ub.Build()
	result, err := r.DB().ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_id": id,
		}).Error("failed to bind source to event")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to bind source to event")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return NotFound("event %s does not exist", id)
	}
	return nil
}
