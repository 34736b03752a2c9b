// Package lifecycle is the clock-only backstop: a fixed-interval driver that
// moves events and fights forward from schedule data alone. Even with every
// source failing forever, an event still reaches completed.
package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/stem/pkg/tracing"
	"github.com/google/uuid"

	"github.com/Ramsey-B/thistle/pkg/metrics"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/trust"
)

const (
	// DefaultInterval is the driver tick cadence
	DefaultInterval = 5 * time.Minute

	// FightDuration is the per-fight slot in the end estimate
	FightDuration = 30 * time.Minute

	// EndBuffer pads the end estimate
	EndBuffer = time.Hour

	// HardCap bounds how long after its start an event can stay live
	HardCap = 8 * time.Hour
)

// EventStore is the event persistence the driver needs
type EventStore interface {
	ListByStatus(ctx context.Context, status models.EventStatus) ([]*models.Event, error)
	UpdateStatus(ctx context.Context, eventID uuid.UUID, status models.EventStatus, method *models.CompletionMethod) error
}

// FightStore is the fight persistence the driver needs
type FightStore interface {
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*models.Fight, error)
	UpdateColumns(ctx context.Context, fightID uuid.UUID, values map[string]any) error
}

// Driver runs the three lifecycle steps on its own ticker, independent of
// any poller. Each step is its own failure boundary; one step's error never
// blocks the others in the same tick.
type Driver struct {
	events   EventStore
	fights   FightStore
	policy   *trust.Policy
	logger   ectologger.Logger
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	stoppedC chan struct{}
}

// NewDriver creates a lifecycle driver
func NewDriver(events EventStore, fights FightStore, policy *trust.Policy, interval time.Duration, logger ectologger.Logger) *Driver {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Driver{
		events:   events,
		fights:   fights,
		policy:   policy,
		logger:   logger,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		stoppedC: make(chan struct{}),
	}
}

// Start begins the tick loop. Starting twice is a no-op.
func (d *Driver) Start(ctx context.Context) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	d.logger.WithContext(ctx).Infof("Starting lifecycle driver: interval=%s", d.interval)
	go d.loop(context.WithoutCancel(ctx))
}

// Stop ends the tick loop. Stopping a driver that never started is a no-op.
func (d *Driver) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	d.mu.Unlock()

	close(d.stopCh)
	select {
	case <-d.stoppedC:
		d.logger.WithContext(ctx).Info("Lifecycle driver stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Driver) loop(ctx context.Context) {
	defer close(d.stoppedC)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.Tick(ctx)

	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Tick runs the three steps once
func (d *Driver) Tick(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "LifecycleDriver.Tick")
	defer span.End()

	d.runStep(ctx, "promote_live", d.promoteUpcoming)
	d.runStep(ctx, "section_fallback", d.sectionFallback)
	d.runStep(ctx, "force_complete", d.forceComplete)
}

func (d *Driver) runStep(ctx context.Context, name string, step func(context.Context) error) {
	outcome := "success"
	if err := step(ctx); err != nil {
		outcome = "error"
		d.logger.WithContext(ctx).WithError(err).Errorf("Lifecycle step %s failed", name)
	}
	metrics.LifecycleTicksTotal.WithLabelValues(name, outcome).Inc()
}

// promoteUpcoming flips upcoming events live once their earliest known start
// has passed.
func (d *Driver) promoteUpcoming(ctx context.Context) error {
	events, err := d.events.ListByStatus(ctx, models.EventStatusUpcoming)
	if err != nil {
		return err
	}

	now := d.now()
	for _, event := range events {
		if !event.HasStarted(now) {
			continue
		}
		if err := d.events.UpdateStatus(ctx, event.ID, models.EventStatusLive, nil); err != nil {
			d.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"event_id": event.ID,
			}).Error("Failed to promote event to live, continuing")
			continue
		}
		metrics.EventTransitionsTotal.WithLabelValues(string(models.EventStatusLive), "").Inc()
		d.logger.WithContext(ctx).WithFields(map[string]any{
			"event_id": event.ID,
		}).Infof("Event %s is live", event.Name)
	}
	return nil
}

// sectionFallback completes fights on live events whose bound source is not
// production-trusted. With section structure it completes bout-by-bout as
// each section's start passes; without it, all remaining upcoming fights
// complete in one batch once the event's start has passed.
func (d *Driver) sectionFallback(ctx context.Context) error {
	events, err := d.events.ListByStatus(ctx, models.EventStatusLive)
	if err != nil {
		return err
	}

	now := d.now()
	for _, event := range events {
		if d.tierFor(event) == trust.TierProduction {
			continue
		}

		fights, err := d.fights.ListByEvent(ctx, event.ID)
		if err != nil {
			d.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"event_id": event.ID,
			}).Error("Failed to list fights for section fallback, continuing")
			continue
		}

		for _, fight := range fights {
			if fight.Status != models.FightStatusUpcoming {
				continue
			}

			due := event.HasStarted(now)
			if fight.Section != nil {
				if sectionStart := event.SectionStart(*fight.Section); sectionStart != nil {
					due = !now.Before(*sectionStart)
				}
			}
			if !due {
				continue
			}

			d.completeFight(ctx, fight, models.CompletionMethodTimeFallback)
		}
	}
	return nil
}

// forceComplete closes live events past their estimated end. The estimate is
// start + fights x 30min + 1h, never later than the hard cap; completions
// forced by the cap are tagged distinctly.
func (d *Driver) forceComplete(ctx context.Context) error {
	events, err := d.events.ListByStatus(ctx, models.EventStatusLive)
	if err != nil {
		return err
	}

	now := d.now()
	for _, event := range events {
		start := event.EarliestStart()
		if start == nil {
			continue
		}

		fights, err := d.fights.ListByEvent(ctx, event.ID)
		if err != nil {
			d.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"event_id": event.ID,
			}).Error("Failed to list fights for force complete, continuing")
			continue
		}

		// Cancelled bouts free their slot, so they don't stretch the estimate.
		scheduled := 0
		for _, fight := range fights {
			if fight.Status != models.FightStatusCancelled {
				scheduled++
			}
		}

		estimate := start.Add(time.Duration(scheduled)*FightDuration + EndBuffer)
		capAt := start.Add(HardCap)
		deadline := estimate
		if capAt.Before(deadline) {
			deadline = capAt
		}
		if now.Before(deadline) {
			continue
		}

		method := models.CompletionMethodTimeFallback
		if !now.Before(capAt) {
			method = models.CompletionMethodHardCap
		}

		for _, fight := range fights {
			if fight.IsOpen() {
				d.completeFight(ctx, fight, method)
			}
		}

		if err := d.events.UpdateStatus(ctx, event.ID, models.EventStatusCompleted, &method); err != nil {
			d.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"event_id": event.ID,
			}).Error("Failed to complete event, continuing")
			continue
		}
		metrics.EventTransitionsTotal.WithLabelValues(string(models.EventStatusCompleted), string(method)).Inc()
		d.logger.WithContext(ctx).WithFields(map[string]any{
			"event_id": event.ID,
			"method":   method,
		}).Infof("Event %s force-completed", event.Name)
	}
	return nil
}

func (d *Driver) completeFight(ctx context.Context, fight *models.Fight, method models.CompletionMethod) {
	completed := models.FightStatusCompleted
	values := map[string]any{
		"status":            completed,
		"shadow_status":     completed,
		"completion_method": method,
	}
	if err := d.fights.UpdateColumns(ctx, fight.ID, values); err != nil {
		d.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"fight_id": fight.ID,
		}).Error("Failed to complete fight, continuing")
		return
	}
	fight.Status = completed
	fight.ShadowStatus = &completed
	fight.CompletionMethod = &method
}

func (d *Driver) tierFor(event *models.Event) trust.Tier {
	if event.SourceFamily == nil {
		return trust.TierNone
	}
	return d.policy.TierFor(*event.SourceFamily)
}
