// Package metrics provides Prometheus metrics for the Thistle service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SnapshotFetchesTotal tracks snapshot fetches by source family and outcome
	SnapshotFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "poller",
			Name:      "snapshot_fetches_total",
			Help:      "Total number of snapshot fetches by source family and outcome",
		},
		[]string{"source_family", "outcome"},
	)

	// PollDuration tracks full poll step duration (fetch + reconcile) in seconds
	PollDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "thistle",
			Subsystem: "poller",
			Name:      "poll_duration_seconds",
			Help:      "Duration of poll steps in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"source_family"},
	)

	// ReconcilePassesTotal tracks reconciliation passes by source family and tier
	ReconcilePassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "reconcile",
			Name:      "passes_total",
			Help:      "Total number of reconciliation passes",
		},
		[]string{"source_family", "trust_tier"},
	)

	// FightUpdatesTotal tracks fight record writes by trust tier
	FightUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "reconcile",
			Name:      "fight_updates_total",
			Help:      "Total number of fight field writes applied",
		},
		[]string{"trust_tier"},
	)

	// FightsCreatedTotal tracks fights created mid-event from snapshots
	FightsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "reconcile",
			Name:      "fights_created_total",
			Help:      "Total number of fights created mid-event",
		},
	)

	// FightsCancelledTotal tracks fights cancelled by snapshot absence
	FightsCancelledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "reconcile",
			Name:      "fights_cancelled_total",
			Help:      "Total number of fights cancelled by snapshot absence",
		},
	)

	// EventTransitionsTotal tracks event status transitions by target and method
	EventTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "lifecycle",
			Name:      "event_transitions_total",
			Help:      "Total number of event status transitions",
		},
		[]string{"status", "completion_method"},
	)

	// LifecycleTicksTotal tracks lifecycle driver cycles by step and outcome
	LifecycleTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "lifecycle",
			Name:      "ticks_total",
			Help:      "Total number of lifecycle driver step runs by outcome",
		},
		[]string{"step", "outcome"},
	)

	// TrackersRunning tracks currently running trackers
	TrackersRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "thistle",
			Subsystem: "poller",
			Name:      "trackers_running",
			Help:      "Number of trackers currently running",
		},
	)

	// SchedulerTimersArmed tracks armed pre-event wake timers
	SchedulerTimersArmed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "thistle",
			Subsystem: "scheduler",
			Name:      "timers_armed",
			Help:      "Number of pre-event wake timers currently armed",
		},
	)

	// SchedulerStartsTotal tracks tracker starts by trigger path
	SchedulerStartsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "scheduler",
			Name:      "starts_total",
			Help:      "Total number of tracker starts by trigger path",
		},
		[]string{"trigger"},
	)

	// NotificationsTotal tracks next-fight notifications by outcome
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "thistle",
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Total number of next-fight notifications by outcome",
		},
		[]string{"outcome"},
	)
)
