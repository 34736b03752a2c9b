package repositories

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/stem/pkg/database"
	"github.com/Ramsey-B/stem/pkg/tracing"

	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/models"
)

const fightsTable = "fights"

// FightRepository handles database operations for fights
type FightRepository struct {
	*Repository
}

// NewFightRepository creates a new fight repository
func NewFightRepository(db database.DB, logger ectologger.Logger) *FightRepository {
	return &FightRepository{
		Repository: NewRepository(db, logger),
	}
}

// fightRecordRow carries a fight row joined with both fighter names
type fightRecordRow struct {
	models.Fight
	FighterAName string `db:"fighter_a_name"`
	FighterBName string `db:"fighter_b_name"`
}

// Create creates a new fight
func (r *FightRepository) Create(ctx context.Context, fight *models.Fight) error {
	ctx, span := tracing.StartSpan(ctx, "FightRepository.Create")
	defer span.End()

	if fight.ID == uuid.Nil {
		fight.ID = uuid.New()
	}
	now := time.Now().UTC()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(fightsTable).
		Cols(
			"id", "event_id", "fighter_a_id", "fighter_b_id", "external_id",
			"position", "section", "scheduled_rounds", "is_title_fight",
			"status", "shadow_status", "created_at", "updated_at",
		).
		Values(
			fight.ID, fight.EventID, fight.FighterAID, fight.FighterBID, fight.ExternalID,
			fight.Position, fight.Section, fight.ScheduledRounds, fight.IsTitleFight,
			fight.Status, fight.ShadowStatus, now, now,
		)

	query, args := ib.Build()
	if _, err := r.DB().ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"fight_id": fight.ID,
			"event_id": fight.EventID,
		}).Error("failed to create fight")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create fight")
	}
	fight.CreatedAt = now
	fight.UpdatedAt = now

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"fight_id": fight.ID,
	}).Debugf("Created %s", fightsTable)
	return nil
}

// ListByEvent retrieves all fights for an event ordered by card position,
// opener first
func (r *FightRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*models.Fight, error) {
	ctx, span := tracing.StartSpan(ctx, "FightRepository.ListByEvent")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("*").From(fightsTable).
		Where(sb.Equal("event_id", eventID)).
		OrderBy("position ASC")

	query, args := sb.Build()
	var fights []*models.Fight
	if err := r.DB().SelectContext(ctx, &fights, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_id": eventID,
		}).Error("failed to list fights")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list fights")
	}
	return fights, nil
}

// ListRecordsByEvent retrieves all fights for an event joined with both
// fighters' names, the shape the matcher works on
func (r *FightRepository) ListRecordsByEvent(ctx context.Context, eventID uuid.UUID) ([]*matching.FightRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "FightRepository.ListRecordsByEvent")
	defer span.End()

	query := `
		SELECT
			f.*,
			fa.full_name AS fighter_a_name,
			fb.full_name AS fighter_b_name
		FROM fights f
		INNER JOIN fighters fa ON fa.id = f.fighter_a_id
		INNER JOIN fighters fb ON fb.id = f.fighter_b_id
		WHERE f.event_id = $1
		ORDER BY f.position ASC
	`

	var rows []fightRecordRow
	if err := r.DB().SelectContext(ctx, &rows, query, eventID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_id": eventID,
		}).Error("failed to list fight records")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list fight records")
	}

	records := make([]*matching.FightRecord, len(rows))
	for i := range rows {
		fight := rows[i].Fight
		records[i] = &matching.FightRecord{
			Fight:        &fight,
			FighterAName: rows[i].FighterAName,
			FighterBName: rows[i].FighterBName,
		}
	}
	return records, nil
}

// UpdateColumns writes the given column values to one fight. Columns are
// applied in sorted order so the generated SQL is deterministic.
func (r *FightRepository) UpdateColumns(ctx context.Context, fightID uuid.UUID, values map[string]any) error {
	ctx, span := tracing.StartSpan(ctx, "FightRepository.UpdateColumns")
	defer span.End()

	if len(values) == 0 {
		return nil
	}

	columns := make([]string, 0, len(values))
	for column := range values {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	assignments := make([]string, 0, len(columns)+1)
	for _, column := range columns {
		assignments = append(assignments, ub.Assign(column, values[column]))
	}
	assignments = append(assignments, ub.Assign("updated_at", time.Now().UTC()))

	ub.Update(fightsTable).Set(assignments...).Where(ub.Equal("id", fightID))

	query, args := ub.Build()
	result, err := r.DB().ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"fight_id": fightID,
		}).Error("failed to update fight")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update fight")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return NotFound("fight %s does not exist", fightID)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"fight_id": fightID,
		"columns":  columns,
	}).Debugf("Updated %s", fightsTable)
	return nil
}
