// Package poller runs the per-source-family tracking loops. A Tracker owns
// one live polling run: fetch a snapshot, reconcile it, repeat on a fixed
// cadence until stopped or the event completes.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/stem/pkg/tracing"
	"github.com/google/uuid"

	"github.com/Ramsey-B/thistle/pkg/metrics"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/redis"
	"github.com/Ramsey-B/thistle/pkg/reconcile"
	"github.com/Ramsey-B/thistle/pkg/scrape"
	"github.com/Ramsey-B/thistle/pkg/trust"
)

// ErrAlreadyRunning is returned when a tracker for the family is already
// active, here or on another instance.
var ErrAlreadyRunning = errors.New("tracker already running for this source family")

// EventStore loads events for polling
type EventStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// RunStore persists tracker run audit rows
type RunStore interface {
	Create(ctx context.Context, run *models.TrackerRun) error
	Update(ctx context.Context, run *models.TrackerRun) error
}

// Reconciler applies one snapshot to stored state
type Reconciler interface {
	Reconcile(ctx context.Context, event *models.Event, snapshot *models.Snapshot, tier trust.Tier) (*reconcile.Result, error)
}

// Lock is a held cross-instance lock
type Lock interface {
	Extend(ctx context.Context, ttl time.Duration) error
	Release(ctx context.Context) error
}

// Locker acquires the cross-instance single-flight lock for a family
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// RedisLocker adapts the redis locker to the tracker's Locker interface
type RedisLocker struct {
	locker *redis.Locker
}

// NewRedisLocker wraps a redis locker
func NewRedisLocker(locker *redis.Locker) *RedisLocker {
	return &RedisLocker{locker: locker}
}

// Acquire acquires the lock
func (r *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	return r.locker.Acquire(ctx, key, ttl)
}

// Config describes one tracking run
type Config struct {
	EventID   uuid.UUID
	SourceURL string
	// Interval overrides the adapter's default cadence when > 0
	Interval time.Duration
}

// Status is a point-in-time view of a tracker
type Status struct {
	IsRunning    bool       `json:"is_running"`
	SourceFamily string     `json:"source_family"`
	EventID      *uuid.UUID `json:"event_id,omitempty"`
	SourceURL    string     `json:"source_url,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	LastPollAt   *time.Time `json:"last_poll_at,omitempty"`
	PollCount    int        `json:"poll_count"`
	LastError    string     `json:"last_error,omitempty"`
}

// Tracker is the single-owner polling loop for one source family. At most
// one run is active at a time; Start fails while one is running.
type Tracker struct {
	adapter    scrape.Adapter
	reconciler Reconciler
	policy     *trust.Policy
	events     EventStore
	runs       RunStore
	locker     Locker
	logger     ectologger.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	eventID    uuid.UUID
	sourceURL  string
	startedAt  time.Time
	lastPollAt *time.Time
	pollCount  int
	lastError  error
}

// NewTracker creates a tracker for one source family's adapter
func NewTracker(
	adapter scrape.Adapter,
	reconciler Reconciler,
	policy *trust.Policy,
	events EventStore,
	runs RunStore,
	locker Locker,
	logger ectologger.Logger,
) *Tracker {
	return &Tracker{
		adapter:    adapter,
		reconciler: reconciler,
		policy:     policy,
		events:     events,
		runs:       runs,
		locker:     locker,
		logger:     logger,
	}
}

// Family returns the tracker's source family
func (t *Tracker) Family() string {
	return t.adapter.Family()
}

// Start begins a tracking run. The first poll happens immediately, then on
// the configured interval. Returns ErrAlreadyRunning if a run is active here
// or holds the family's cross-instance lock elsewhere.
func (t *Tracker) Start(ctx context.Context, cfg Config) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return ErrAlreadyRunning
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = t.adapter.DefaultInterval()
	}

	lockTTL := 3 * interval
	if lockTTL < time.Minute {
		lockTTL = time.Minute
	}
	lock, err := t.locker.Acquire(ctx, "tracker:"+t.Family(), lockTTL)
	if err != nil {
		if errors.Is(err, redis.ErrLockNotAcquired) {
			return ErrAlreadyRunning
		}
		return err
	}

	run := &models.TrackerRun{
		ID:           uuid.New(),
		EventID:      cfg.EventID,
		SourceFamily: t.Family(),
		SourceURL:    cfg.SourceURL,
		Status:       models.TrackerRunStatusRunning,
		StartedAt:    time.Now().UTC(),
	}
	if err := t.runs.Create(ctx, run); err != nil {
		lock.Release(ctx)
		return err
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t.running = true
	t.cancel = cancel
	t.done = make(chan struct{})
	t.eventID = cfg.EventID
	t.sourceURL = cfg.SourceURL
	t.startedAt = run.StartedAt
	t.lastPollAt = nil
	t.pollCount = 0
	t.lastError = nil

	t.logger.WithContext(ctx).WithFields(map[string]any{
		"source_family": t.Family(),
		"event_id":      cfg.EventID,
		"interval":      interval.String(),
	}).Info("Tracker started")
	metrics.TrackersRunning.Inc()

	go t.loop(loopCtx, cfg, run, lock, interval)

	return nil
}

// Stop ends the tracking run and waits for the loop to exit. Safe to call
// when not running.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	cancel := t.cancel
	done := t.done
	t.mu.Unlock()

	cancel()
	<-done
}

// Status returns a snapshot of the tracker's state
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	status := Status{
		IsRunning:    t.running,
		SourceFamily: t.Family(),
	}
	if !t.running {
		return status
	}

	eventID := t.eventID
	startedAt := t.startedAt
	status.EventID = &eventID
	status.SourceURL = t.sourceURL
	status.StartedAt = &startedAt
	status.LastPollAt = t.lastPollAt
	status.PollCount = t.pollCount
	if t.lastError != nil {
		status.LastError = t.lastError.Error()
	}
	return status
}

// IsRunning reports whether a run is active
func (t *Tracker) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// loop runs polls strictly sequentially: the next tick is not serviced until
// the previous poll's fetch and reconciliation have finished.
func (t *Tracker) loop(ctx context.Context, cfg Config, run *models.TrackerRun, lock Lock, interval time.Duration) {
	defer t.finish(ctx, run, lock)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lockTTL := 3 * interval
	if lockTTL < time.Minute {
		lockTTL = time.Minute
	}

	for {
		if done := t.poll(ctx, cfg, run); done {
			return
		}

		if err := lock.Extend(ctx, lockTTL); err != nil && ctx.Err() == nil {
			t.logger.WithContext(ctx).WithError(err).Error("Lost tracker lock, stopping")
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// poll runs one fetch+reconcile step. Errors are recorded as lastError and
// the loop continues; returning true ends the run (stop requested or event
// completed).
func (t *Tracker) poll(ctx context.Context, cfg Config, run *models.TrackerRun) bool {
	ctx, span := tracing.StartSpan(ctx, "Tracker.poll")
	defer span.End()

	if ctx.Err() != nil {
		return true
	}

	start := time.Now()
	err := t.pollOnce(ctx, cfg)
	duration := time.Since(start)

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	metrics.SnapshotFetchesTotal.WithLabelValues(t.Family(), outcome).Inc()
	metrics.PollDuration.WithLabelValues(t.Family()).Observe(duration.Seconds())

	now := time.Now().UTC()
	t.mu.Lock()
	t.lastPollAt = &now
	t.pollCount++
	t.lastError = err
	pollCount := t.pollCount
	t.mu.Unlock()

	run.PollCount = pollCount
	if err != nil {
		msg := err.Error()
		run.LastError = &msg
		t.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"source_family": t.Family(),
			"event_id":      cfg.EventID,
			"poll_count":    pollCount,
		}).Warn("Poll failed, will retry on next tick")
	}
	if updateErr := t.runs.Update(ctx, run); updateErr != nil && ctx.Err() == nil {
		t.logger.WithContext(ctx).WithError(updateErr).Warn("Failed to update tracker run")
	}

	if err == nil {
		if event, getErr := t.events.GetByID(ctx, cfg.EventID); getErr == nil && event.Status == models.EventStatusCompleted {
			t.logger.WithContext(ctx).WithFields(map[string]any{
				"event_id": cfg.EventID,
			}).Info("Event completed, stopping tracker")
			return true
		}
	}

	return false
}

func (t *Tracker) pollOnce(ctx context.Context, cfg Config) error {
	event, err := t.events.GetByID(ctx, cfg.EventID)
	if err != nil {
		return err
	}

	snapshot, err := t.adapter.FetchSnapshot(ctx, cfg.SourceURL)
	if err != nil {
		return err
	}

	tier := t.policy.TierFor(t.Family())
	_, err = t.reconciler.Reconcile(ctx, event, snapshot, tier)
	return err
}

// finish clears run state after the loop exits
func (t *Tracker) finish(ctx context.Context, run *models.TrackerRun, lock Lock) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	now := time.Now().UTC()
	run.Status = models.TrackerRunStatusStopped
	run.StoppedAt = &now
	if err := t.runs.Update(releaseCtx, run); err != nil {
		t.logger.WithError(err).Warn("Failed to finalize tracker run")
	}

	if err := lock.Release(releaseCtx); err != nil && !errors.Is(err, redis.ErrLockNotHeld) {
		t.logger.WithError(err).Warn("Failed to release tracker lock")
	}

	t.mu.Lock()
	t.running = false
	t.cancel = nil
	done := t.done
	t.mu.Unlock()

	metrics.TrackersRunning.Dec()
	t.logger.WithFields(map[string]any{
		"source_family": t.Family(),
		"event_id":      run.EventID,
		"poll_count":    run.PollCount,
	}).Info("Tracker stopped")

	close(done)
}
