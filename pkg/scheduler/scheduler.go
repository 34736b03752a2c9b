// Package scheduler arms pre-event wake timers and starts trackers when an
// event's start window arrives. Timers live in memory only; the safety sweep
// re-derives everything from stored schedule data, so a restart loses no
// events.
package scheduler

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
	"github.com/Ramsey-B/thistle/pkg/poller"
	"github.com/Ramsey-B/thistle/pkg/redis"
)

// ErrSchedulerAlreadyRunning is returned when starting an already running scheduler
var ErrSchedulerAlreadyRunning = errors.New("scheduler already running")

const (
	// DefaultPreEventLead is how far before the earliest section start a
	// tracker is started
	DefaultPreEventLead = 15 * time.Minute

	// DefaultForwardWindow bounds how far ahead ScheduleAll looks
	DefaultForwardWindow = 7 * 24 * time.Hour

	// DefaultLookBack catches events whose start passed during a restart
	DefaultLookBack = 6 * time.Hour

	// DefaultSafetyInterval is the sweep cadence
	DefaultSafetyInterval = 15 * time.Minute

	// DefaultLockTTL is the TTL for the sweep's cross-instance lock
	DefaultLockTTL = 60 * time.Second

	safetyLockKey = "scheduler:safety_check"
)

// EventStore is the schedule data the scheduler reads
type EventStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	// ListSchedulable returns incomplete events whose earliest start falls
	// within [from, to], ordered by start ascending
	ListSchedulable(ctx context.Context, from, to time.Time) ([]*models.Event, error)
}

// TrackerManager starts tracking runs. The manager enforces single-flight;
// the scheduler additionally checks before arming a start so a refused start
// is a log line, not an error path.
type TrackerManager interface {
	Start(ctx context.Context, family string, cfg poller.Config) error
	AnyRunning() bool
}

// Config holds scheduler configuration
type Config struct {
	PreEventLead   time.Duration
	ForwardWindow  time.Duration
	LookBack       time.Duration
	SafetyInterval time.Duration
	LockTTL        time.Duration
}

// DefaultConfig returns the default scheduler configuration
func DefaultConfig() Config {
	return Config{
		PreEventLead:   DefaultPreEventLead,
		ForwardWindow:  DefaultForwardWindow,
		LookBack:       DefaultLookBack,
		SafetyInterval: DefaultSafetyInterval,
		LockTTL:        DefaultLockTTL,
	}
}

// Scheduler owns the pre-event timers and the safety sweep
type Scheduler struct {
	events  EventStore
	manager TrackerManager
	locker  *redis.Locker
	config  Config
	logger  ectologger.Logger
	now     func() time.Time

	mu      sync.Mutex
	timers  map[uuid.UUID]*time.Timer
	running bool

	stopCh   chan struct{}
	stoppedC chan struct{}
}

// NewScheduler creates a new scheduler
func NewScheduler(
	events EventStore,
	manager TrackerManager,
	locker *redis.Locker,
	config Config,
	logger ectologger.Logger,
) *Scheduler {
	if config.PreEventLead <= 0 {
		config.PreEventLead = DefaultPreEventLead
	}
	if config.ForwardWindow <= 0 {
		config.ForwardWindow = DefaultForwardWindow
	}
	if config.LookBack <= 0 {
		config.LookBack = DefaultLookBack
	}
	if config.SafetyInterval <= 0 {
		config.SafetyInterval = DefaultSafetyInterval
	}
	if config.LockTTL <= 0 {
		config.LockTTL = DefaultLockTTL
	}

	return &Scheduler{
		events:   events,
		manager:  manager,
		locker:   locker,
		config:   config,
		logger:   logger,
		now:      time.Now,
		timers:   make(map[uuid.UUID]*time.Timer),
		stopCh:   make(chan struct{}),
		stoppedC: make(chan struct{}),
	}
}

// Start begins the safety sweep loop
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSchedulerAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	s.logger.WithContext(ctx).Infof("Starting scheduler: lead=%s safety_interval=%s",
		s.config.PreEventLead, s.config.SafetyInterval)

	go s.sweepLoop(context.WithoutCancel(ctx))
	return nil
}

// Stop cancels all timers and stops the sweep loop
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.CancelAll()
	close(s.stopCh)

	select {
	case <-s.stoppedC:
		s.logger.WithContext(ctx).Info("Scheduler stopped")
	case <-ctx.Done():
		s.logger.WithContext(ctx).Warn("Scheduler shutdown timed out")
		return ctx.Err()
	}
	return nil
}

// ScheduleEvent arms (or re-arms) the wake timer for one event. If the start
// window has already arrived the tracker starts immediately. Re-arming
// replaces any existing timer for the event.
func (s *Scheduler) ScheduleEvent(ctx context.Context, eventID uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "Scheduler.ScheduleEvent")
	defer span.End()

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}

	log := s.logger.WithContext(ctx).WithFields(map[string]any{"event_id": eventID})

	if event.Status == models.EventStatusCompleted {
		log.Debug("Event already completed, nothing to schedule")
		return nil
	}
	if event.SourceFamily == nil || event.SourceURL == nil {
		// No scraper bound: the lifecycle driver carries this event alone.
		log.Debug("Event has no bound source, skipping tracker scheduling")
		return nil
	}

	earliest := event.EarliestStart()
	if earliest == nil {
		log.Warn("Event has no start time, cannot schedule")
		return nil
	}

	wakeAt := earliest.Add(-s.config.PreEventLead)
	delay := wakeAt.Sub(s.now())
	if delay <= 0 {
		s.startTracking(ctx, event, "schedule")
		return nil
	}

	s.armTimer(event, delay)
	log.Infof("Armed wake timer for %s (fires in %s)", event.Name, delay.Round(time.Second))
	return nil
}

// ScheduleAll schedules every incomplete event inside the forward window,
// plus a look-back window for starts that passed during a restart. Returns
// the number of events considered.
func (s *Scheduler) ScheduleAll(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "Scheduler.ScheduleAll")
	defer span.End()

	now := s.now()
	events, err := s.events.ListSchedulable(ctx, now.Add(-s.config.LookBack), now.Add(s.config.ForwardWindow))
	if err != nil {
		return 0, err
	}

	for _, event := range events {
		if err := s.ScheduleEvent(ctx, event.ID); err != nil {
			s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"event_id": event.ID,
			}).Warn("Failed to schedule event, continuing")
		}
	}

	s.logger.WithContext(ctx).Infof("Scheduled %d events", len(events))
	return len(events), nil
}

// SafetyCheck starts tracking for any due, incomplete event when nothing is
// running. This is the recovery path for timers lost to a restart. Guarded
// by a cross-instance lock so only one instance sweeps at a time.
func (s *Scheduler) SafetyCheck(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "Scheduler.SafetyCheck")
	defer span.End()

	err := s.locker.WithLock(ctx, safetyLockKey, s.config.LockTTL, func() error {
		return s.safetySweep(ctx)
	})
	if errors.Is(err, redis.ErrLockNotAcquired) {
		s.logger.WithContext(ctx).Debug("Safety check running on another instance, skipping")
		return nil
	}
	return err
}

func (s *Scheduler) safetySweep(ctx context.Context) error {
	if s.manager.AnyRunning() {
		s.logger.WithContext(ctx).Debug("Tracker already running, safety check idle")
		return nil
	}

	now := s.now()
	events, err := s.events.ListSchedulable(ctx, now.Add(-s.config.LookBack), now)
	if err != nil {
		return err
	}

	for _, event := range events {
		if event.SourceFamily == nil || event.SourceURL == nil {
			continue
		}
		earliest := event.EarliestStart()
		if earliest == nil || now.Before(earliest.Add(-s.config.PreEventLead)) {
			continue
		}

		// Single-flight: one start per sweep; the next sweep picks up the rest.
		s.startTracking(ctx, event, "safety_check")
		return nil
	}
	return nil
}

// CancelAll clears every armed timer
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for eventID, timer := range s.timers {
		timer.Stop()
		delete(s.timers, eventID)
	}
	metrics.SchedulerTimersArmed.Set(0)
	s.logger.Info("Cancelled all scheduler timers")
}

// TimerCount returns the number of armed timers
func (s *Scheduler) TimerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *Scheduler) armTimer(event *models.Event, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.timers[event.ID]; ok {
		existing.Stop()
	}

	eventID := event.ID
	s.timers[eventID] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, eventID)
		metrics.SchedulerTimersArmed.Set(float64(len(s.timers)))
		s.mu.Unlock()

		s.fireTimer(eventID)
	})
	metrics.SchedulerTimersArmed.Set(float64(len(s.timers)))
}

// fireTimer reloads the event when its timer fires; schedule data may have
// changed while the timer was armed.
func (s *Scheduler) fireTimer(eventID uuid.UUID) {
	ctx, span := tracing.StartSpan(context.Background(), "Scheduler.fireTimer")
	defer span.End()

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_id": eventID,
		}).Error("Failed to load event on timer fire; safety check will retry")
		return
	}
	if event.Status == models.EventStatusCompleted || event.SourceFamily == nil || event.SourceURL == nil {
		return
	}

	s.startTracking(ctx, event, "timer")
}

func (s *Scheduler) startTracking(ctx context.Context, event *models.Event, trigger string) {
	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"event_id":      event.ID,
		"source_family": *event.SourceFamily,
		"trigger":       trigger,
	})

	if s.manager.AnyRunning() {
		log.Warn("A tracker is already running, skipping start")
		return
	}

	err := s.manager.Start(ctx, *event.SourceFamily, poller.Config{
		EventID:   event.ID,
		SourceURL: *event.SourceURL,
	})
	if err != nil {
		if errors.Is(err, poller.ErrAlreadyRunning) {
			log.Warn("Tracker start refused, another run is active")
			return
		}
		log.WithError(err).Error("Failed to start tracker; safety check will retry")
		return
	}

	metrics.SchedulerStartsTotal.WithLabelValues(trigger).Inc()
	log.Infof("Started tracking %s", event.Name)
}

func (s *Scheduler) sweepLoop(ctx context.Context) {
	defer close(s.stoppedC)

	ticker := time.NewTicker(s.config.SafetyInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if err := s.SafetyCheck(ctx); err != nil {
				s.logger.WithContext(ctx).WithError(err).Error("Safety check failed")
			}
		}
	}
}
