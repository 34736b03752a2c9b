package repositories

import (
	"context"
	"net/http"
	"strings"
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

const fightersTable = "fighters"

// FighterRepository handles database operations for fighters
type FighterRepository struct {
	*Repository
}

// NewFighterRepository creates a new fighter repository
func NewFighterRepository(db database.DB, logger ectologger.Logger) *FighterRepository {
	return &FighterRepository{
		Repository: NewRepository(db, logger),
	}
}

// UpsertByName finds or creates a fighter by full name. New rows are
// placeholders; enrichment happens elsewhere.
func (r *FighterRepository) UpsertByName(ctx context.Context, fullName string) (*models.Fighter, error) {
	ctx, span := tracing.StartSpan(ctx, "FighterRepository.UpsertByName")
	defer span.End()

	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, BadRequest("fighter name is required")
	}

	first, last := matching.SplitName(fullName)
	now := time.Now().UTC()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(fightersTable).
		Cols("id", "first_name", "last_name", "full_name", "is_placeholder", "created_at", "updated_at").
		Values(uuid.New(), first, last, fullName, true, now, now)
	ib.SQL(`
ON CONFLICT (full_name)
DO UPDATE SET updated_at = EXCLUDED.updated_at
RETURNING id, first_name, last_name, full_name, weight_class, sex, is_placeholder, created_at, updated_at`)

	query, args := ib.Build()
	var fighter models.Fighter
	if err := r.DB().GetContext(ctx, &fighter, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"full_name": fullName,
		}).Error("failed to upsert fighter")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert fighter")
	}

	return &fighter, nil
}

// GetByID retrieves a fighter by ID
func (r *FighterRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Fighter, error) {
	ctx, span := tracing.StartSpan(ctx, "FighterRepository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("*").From(fightersTable).Where(sb.Equal("id", id))

	query, args := sb.Build()
	var fighter models.Fighter
	if err := r.DB().GetContext(ctx, &fighter, query, args...); err != nil {
		return nil, NotFound("fighter %s does not exist", id)
	}
	return &fighter, nil
}
