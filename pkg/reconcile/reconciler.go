// Package reconcile merges scraped snapshots into persisted event and fight
// state through the entity matcher and the trust policy.
package reconcile

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/stem/pkg/tracing"
	"github.com/google/uuid"

	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/metrics"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/trust"
)

// FightStore is the fight persistence the reconciler needs. Writes are
// row-scoped; no transaction spans multiple fights, so a failure mid-pass
// leaves state that the next poll converges anyway.
type FightStore interface {
	ListRecordsByEvent(ctx context.Context, eventID uuid.UUID) ([]*matching.FightRecord, error)
	Create(ctx context.Context, fight *models.Fight) error
	UpdateColumns(ctx context.Context, fightID uuid.UUID, values map[string]any) error
}

// FighterStore upserts fighters by name, creating placeholder records for
// names storage has never seen
type FighterStore interface {
	UpsertByName(ctx context.Context, fullName string) (*models.Fighter, error)
}

// EventStore is the event persistence the reconciler needs
type EventStore interface {
	UpdateStatus(ctx context.Context, eventID uuid.UUID, status models.EventStatus, method *models.CompletionMethod) error
}

// Notifier is the outbound notification collaborator. Calls are
// fire-and-forget; errors are logged and swallowed.
type Notifier interface {
	NotifyNextFightStarting(ctx context.Context, fightID uuid.UUID, fighterAName, fighterBName string) error
}

// Result summarizes one reconciliation pass
type Result struct {
	FightsUpdated     int `json:"fights_updated"`
	FightsCreated     int `json:"fights_created"`
	FightsCancelled   int `json:"fights_cancelled"`
	FightsUncancelled int `json:"fights_uncancelled"`
}

// Reconciler applies snapshots to persisted state
type Reconciler struct {
	events   EventStore
	fights   FightStore
	fighters FighterStore
	matcher  *matching.Matcher
	notifier Notifier
	logger   ectologger.Logger
	now      func() time.Time
}

// NewReconciler creates a new reconciler
func NewReconciler(
	events EventStore,
	fights FightStore,
	fighters FighterStore,
	matcher *matching.Matcher,
	notifier Notifier,
	logger ectologger.Logger,
) *Reconciler {
	return &Reconciler{
		events:   events,
		fights:   fights,
		fighters: fighters,
		matcher:  matcher,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Reconcile merges one snapshot into the event's persisted fights. The pass
// is idempotent: reapplying the same snapshot produces no further changes.
// A storage error on one fight is logged and skipped; the remaining
// observations still apply and self-correct on the next poll.
func (r *Reconciler) Reconcile(ctx context.Context, event *models.Event, snapshot *models.Snapshot, tier trust.Tier) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "Reconciler.Reconcile")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"event_id":      event.ID,
		"source_family": snapshot.SourceFamily,
		"trust_tier":    tier,
		"observations":  len(snapshot.Fights),
	})

	records, err := r.fights.ListRecordsByEvent(ctx, event.ID)
	if err != nil {
		return nil, err
	}

	// Event phase comes from schedule data, not from the snapshot's own
	// claim: unmatched observations before the start are noise, not new
	// fights, and cancellation detection would false-positive on incomplete
	// early-card snapshots.
	eventStarted := event.HasStarted(r.now())

	result := &Result{}
	seenKeys := make(map[string]bool, len(snapshot.Fights))
	exemptFromCancel := make(map[uuid.UUID]bool)

	for i := range snapshot.Fights {
		obs := &snapshot.Fights[i]
		seenKeys[matching.PairKey(obs.FighterAName, obs.FighterBName)] = true

		record, kind := r.matcher.Match(obs, records)
		if kind == matching.MatchKindNone {
			if !eventStarted {
				log.Debugf("Ignoring unmatched bout %s vs %s before event start", obs.FighterAName, obs.FighterBName)
				continue
			}
			created, err := r.createFight(ctx, event, records, obs)
			if err != nil {
				log.WithError(err).Warnf("Failed to create fight %s vs %s", obs.FighterAName, obs.FighterBName)
				continue
			}
			records = append(records, created)
			result.FightsCreated++
			continue
		}

		if kind == matching.MatchKindExternalID {
			// An id-matched fight never gets cancelled for a missing name
			// signature; sources rename bouts more often than they pull them.
			exemptFromCancel[record.Fight.ID] = true
		}

		if applied, uncancelled := r.applyDiff(ctx, record, obs, tier, records); applied {
			result.FightsUpdated++
			if uncancelled {
				result.FightsUncancelled++
			}
		}
	}

	if eventStarted {
		result.FightsCancelled = r.detectCancellations(ctx, records, seenKeys, exemptFromCancel, tier)
	}

	r.applyEventStatus(ctx, event, snapshot, tier)

	metrics.ReconcilePassesTotal.WithLabelValues(snapshot.SourceFamily, string(tier)).Inc()
	log.WithFields(map[string]any{
		"updated":     result.FightsUpdated,
		"created":     result.FightsCreated,
		"cancelled":   result.FightsCancelled,
		"uncancelled": result.FightsUncancelled,
	}).Info("Reconciliation pass completed")

	return result, nil
}

// applyDiff computes and persists one observation's diff. Returns whether
// anything was written and whether the write was an un-cancellation.
func (r *Reconciler) applyDiff(ctx context.Context, record *matching.FightRecord, obs *models.FightObservation, tier trust.Tier, records []*matching.FightRecord) (bool, bool) {
	log := r.logger.WithContext(ctx).WithFields(map[string]any{"fight_id": record.Fight.ID})

	diff := computeDiff(record, obs, tier)
	if !diff.HasChanges() {
		return false, false
	}

	values := trust.BuildWriteValues(diff.Candidate, tier)
	if values == nil {
		values = make(map[string]any)
	}
	if tier == trust.TierProduction {
		if diff.Position != nil {
			values["position"] = *diff.Position
		}
		if diff.CompletedEdge {
			values["completion_method"] = models.CompletionMethodSource
		}
	}
	if len(values) == 0 {
		return false, false
	}

	if err := r.fights.UpdateColumns(ctx, record.Fight.ID, values); err != nil {
		log.WithError(err).Error("Failed to update fight, skipping")
		return false, false
	}
	applyValuesToRecord(record.Fight, diff, tier)
	metrics.FightUpdatesTotal.WithLabelValues(string(tier)).Inc()

	if tier == trust.TierProduction && diff.CompletedEdge {
		r.notifyNextFight(ctx, record, records)
	}

	return true, diff.Uncancelled
}

// createFight creates a fight discovered mid-event, upserting its fighters by
// name. Position comes from the observation when stated, else it appends
// after the current maximum.
func (r *Reconciler) createFight(ctx context.Context, event *models.Event, records []*matching.FightRecord, obs *models.FightObservation) (*matching.FightRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "Reconciler.createFight")
	defer span.End()

	fighterA, err := r.fighters.UpsertByName(ctx, obs.FighterAName)
	if err != nil {
		return nil, err
	}
	fighterB, err := r.fighters.UpsertByName(ctx, obs.FighterBName)
	if err != nil {
		return nil, err
	}

	position := maxPosition(records) + 1
	if obs.Position != nil {
		position = *obs.Position
	}

	scheduledRounds := 3
	if obs.IsTitleFight {
		scheduledRounds = 5
	}

	status := obs.Status
	fight := &models.Fight{
		ID:              uuid.New(),
		EventID:         event.ID,
		FighterAID:      fighterA.ID,
		FighterBID:      fighterB.ID,
		ExternalID:      obs.ExternalID,
		Position:        position,
		Section:         obs.Section,
		ScheduledRounds: scheduledRounds,
		IsTitleFight:    obs.IsTitleFight,
		Status:          status,
		ShadowStatus:    &status,
	}

	if err := r.fights.Create(ctx, fight); err != nil {
		return nil, err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"event_id": event.ID,
		"fight_id": fight.ID,
		"position": position,
	}).Infof("Created mid-event fight %s vs %s", obs.FighterAName, obs.FighterBName)
	metrics.FightsCreatedTotal.Inc()

	return &matching.FightRecord{
		Fight:        fight,
		FighterAName: obs.FighterAName,
		FighterBName: obs.FighterBName,
	}, nil
}

// detectCancellations marks open fights absent from the snapshot as
// cancelled. Runs only once the event has started.
func (r *Reconciler) detectCancellations(ctx context.Context, records []*matching.FightRecord, seenKeys map[string]bool, exempt map[uuid.UUID]bool, tier trust.Tier) int {
	cancelled := 0
	for _, record := range records {
		fight := record.Fight
		if fight.Status == models.FightStatusCompleted || fight.Status == models.FightStatusCancelled {
			continue
		}
		if exempt[fight.ID] || seenKeys[record.PairKey()] {
			continue
		}
		if !needsStatusWrite(fight, models.FightStatusCancelled, tier) {
			continue
		}

		values := trust.BuildWriteValues(map[string]any{"status": models.FightStatusCancelled}, tier)
		if err := r.fights.UpdateColumns(ctx, fight.ID, values); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"fight_id": fight.ID,
			}).Error("Failed to cancel fight, skipping")
			continue
		}
		if tier == trust.TierProduction {
			fight.Status = models.FightStatusCancelled
		}
		cancelledStatus := models.FightStatusCancelled
		fight.ShadowStatus = &cancelledStatus

		r.logger.WithContext(ctx).WithFields(map[string]any{
			"fight_id": fight.ID,
		}).Infof("Cancelled fight %s vs %s (absent from snapshot)", record.FighterAName, record.FighterBName)
		metrics.FightsCancelledTotal.Inc()
		cancelled++
	}
	return cancelled
}

// applyEventStatus moves the event forward when a production source reports
// it started or finished. Status is monotonic; nothing here ever reopens a
// completed event.
func (r *Reconciler) applyEventStatus(ctx context.Context, event *models.Event, snapshot *models.Snapshot, tier trust.Tier) {
	if tier != trust.TierProduction {
		return
	}

	log := r.logger.WithContext(ctx).WithFields(map[string]any{"event_id": event.ID})

	if snapshot.EventDone && event.Status != models.EventStatusCompleted {
		method := models.CompletionMethodSource
		if err := r.events.UpdateStatus(ctx, event.ID, models.EventStatusCompleted, &method); err != nil {
			log.WithError(err).Error("Failed to complete event from source")
			return
		}
		event.Status = models.EventStatusCompleted
		event.CompletionMethod = &method
		metrics.EventTransitionsTotal.WithLabelValues(string(models.EventStatusCompleted), string(method)).Inc()
		return
	}

	if snapshot.EventStarted && event.Status == models.EventStatusUpcoming {
		if err := r.events.UpdateStatus(ctx, event.ID, models.EventStatusLive, nil); err != nil {
			log.WithError(err).Error("Failed to set event live from source")
			return
		}
		event.Status = models.EventStatusLive
		metrics.EventTransitionsTotal.WithLabelValues(string(models.EventStatusLive), "").Inc()
	}
}

// notifyNextFight surfaces the next not-yet-started bout after a completion.
// Positions ascend chronologically, so the next fight is the upcoming one
// with the smallest position above the completed fight's.
func (r *Reconciler) notifyNextFight(ctx context.Context, completed *matching.FightRecord, records []*matching.FightRecord) {
	var next *matching.FightRecord
	for _, record := range records {
		if record.Fight.Status != models.FightStatusUpcoming {
			continue
		}
		if record.Fight.Position <= completed.Fight.Position {
			continue
		}
		if next == nil || record.Fight.Position < next.Fight.Position {
			next = record
		}
	}
	if next == nil {
		return
	}

	if err := r.notifier.NotifyNextFightStarting(ctx, next.Fight.ID, next.FighterAName, next.FighterBName); err != nil {
		// Fire-and-forget: a notification failure never fails reconciliation.
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"fight_id": next.Fight.ID,
		}).Warn("Failed to notify next fight")
	}
}

// applyValuesToRecord mirrors a successful write back onto the in-memory
// fight so later steps in the same pass (cancellation sweep, next-fight
// lookup) see current state.
func applyValuesToRecord(fight *models.Fight, diff *Diff, tier trust.Tier) {
	if status, ok := diff.Candidate["status"].(models.FightStatus); ok {
		s := status
		fight.ShadowStatus = &s
		if tier == trust.TierProduction {
			fight.Status = status
		}
	}
	if tier == trust.TierProduction && diff.Position != nil {
		fight.Position = *diff.Position
	}
	if winnerID, ok := diff.Candidate["winner_id"].(uuid.UUID); ok {
		id := winnerID
		fight.ShadowWinnerID = &id
		if tier == trust.TierProduction {
			fight.WinnerID = &id
		}
	}
	if method, ok := diff.Candidate["method"].(string); ok {
		m := method
		fight.ShadowMethod = &m
		if tier == trust.TierProduction {
			fight.Method = &m
		}
	}
	if round, ok := diff.Candidate["result_round"].(int); ok {
		v := round
		fight.ShadowResultRound = &v
		if tier == trust.TierProduction {
			fight.ResultRound = &v
		}
	}
	if resultTime, ok := diff.Candidate["result_time"].(string); ok {
		v := resultTime
		fight.ShadowResultTime = &v
		if tier == trust.TierProduction {
			fight.ResultTime = &v
		}
	}
	if current, ok := diff.Candidate["current_round"].(int); ok {
		v := current
		fight.ShadowCurrentRound = &v
		if tier == trust.TierProduction {
			fight.CurrentRound = &v
		}
	}
	if completedRounds, ok := diff.Candidate["completed_rounds"].(int); ok {
		v := completedRounds
		fight.ShadowCompletedRounds = &v
		if tier == trust.TierProduction {
			fight.CompletedRounds = &v
		}
	}
	if tier == trust.TierProduction && diff.CompletedEdge {
		method := models.CompletionMethodSource
		fight.CompletionMethod = &method
	}
}

// needsStatusWrite reports whether a cancellation would change anything in
// the block this tier writes to
func needsStatusWrite(fight *models.Fight, target models.FightStatus, tier trust.Tier) bool {
	if tier == trust.TierProduction {
		return fight.Status != target
	}
	return fight.ShadowStatus == nil || *fight.ShadowStatus != target
}

func maxPosition(records []*matching.FightRecord) int {
	max := 0
	for _, record := range records {
		if record.Fight.Position > max {
			max = record.Fight.Position
		}
	}
	return max
}
