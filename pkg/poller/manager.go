package poller

import (
	"context"
	"fmt"
	"sync"

	"github.com/Gobusters/ectologger"
)

// Manager owns the process's trackers, one per source family, and enforces
// the whole-process single-flight rule: no tracker starts while any tracker
// is running.
type Manager struct {
	mu       sync.Mutex
	trackers map[string]*Tracker
	order    []string
	logger   ectologger.Logger
}

// NewManager creates an empty tracker manager
func NewManager(logger ectologger.Logger) *Manager {
	return &Manager{
		trackers: make(map[string]*Tracker),
		logger:   logger,
	}
}

// Register adds a tracker for its source family
func (m *Manager) Register(tracker *Tracker) {
	m.mu.Lock()
	defer m.mu.Unlock()

	family := tracker.Family()
	if _, exists := m.trackers[family]; !exists {
		m.order = append(m.order, family)
	}
	m.trackers[family] = tracker
}

// Start starts tracking through the family's tracker. Refuses while any
// tracker in the process is running.
func (m *Manager) Start(ctx context.Context, family string, cfg Config) error {
	m.mu.Lock()
	tracker, ok := m.trackers[family]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("no tracker registered for source family %q", family)
	}
	if running := m.runningLocked(); running != nil {
		m.mu.Unlock()
		m.logger.WithContext(ctx).WithFields(map[string]any{
			"requested_family": family,
			"running_family":   running.Family(),
		}).Warn("Refusing to start tracker while another is running")
		return ErrAlreadyRunning
	}
	m.mu.Unlock()

	return tracker.Start(ctx, cfg)
}

// Stop stops the family's tracker if it is running
func (m *Manager) Stop(family string) {
	m.mu.Lock()
	tracker, ok := m.trackers[family]
	m.mu.Unlock()
	if ok {
		tracker.Stop()
	}
}

// StopAll stops every running tracker
func (m *Manager) StopAll() {
	m.mu.Lock()
	trackers := make([]*Tracker, 0, len(m.trackers))
	for _, tracker := range m.trackers {
		trackers = append(trackers, tracker)
	}
	m.mu.Unlock()

	for _, tracker := range trackers {
		tracker.Stop()
	}
}

// AnyRunning reports whether any tracker is active
func (m *Manager) AnyRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runningLocked() != nil
}

// Statuses returns the status of every registered tracker in registration
// order
func (m *Manager) Statuses() []Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	statuses := make([]Status, 0, len(m.order))
	for _, family := range m.order {
		statuses = append(statuses, m.trackers[family].Status())
	}
	return statuses
}

func (m *Manager) runningLocked() *Tracker {
	for _, family := range m.order {
		if m.trackers[family].IsRunning() {
			return m.trackers[family]
		}
	}
	return nil
}
