package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/stem/pkg/tracing"
	"github.com/Ramsey-B/thistle/internal/repositories"
	"github.com/Ramsey-B/thistle/pkg/poller"
	"github.com/Ramsey-B/thistle/pkg/scheduler"
)

// TrackingHandler handles tracker control endpoints
type TrackingHandler struct {
	manager   *poller.Manager
	scheduler *scheduler.Scheduler
	events    *repositories.EventRepository
	logger    ectologger.Logger
}

// NewTrackingHandler creates a new tracking handler
func NewTrackingHandler(
	manager *poller.Manager,
	sched *scheduler.Scheduler,
	events *repositories.EventRepository,
	logger ectologger.Logger,
) *TrackingHandler {
	return &TrackingHandler{
		manager:   manager,
		scheduler: sched,
		events:    events,
		logger:    logger,
	}
}

// StartTrackingRequest represents the start tracking request body
type StartTrackingRequest struct {
	EventID         string `json:"event_id" validate:"required"`
	SourceFamily    string `json:"source_family,omitempty"`
	SourceURL       string `json:"source_url,omitempty"`
	IntervalSeconds int    `json:"interval_seconds,omitempty"`
}

// StopTrackingRequest represents the stop tracking request body
type StopTrackingRequest struct {
	SourceFamily string `json:"source_family,omitempty"`
}

// Register registers tracking routes
func (h *TrackingHandler) Register(g *echo.Group) {
	g.GET("/status", h.Status)
	g.POST("/start", h.Start)
	g.POST("/stop", h.Stop)
	g.POST("/schedule-all", h.ScheduleAll)
	g.POST("/safety-check", h.SafetyCheck)
}

// Status returns the state of every registered tracker
func (h *TrackingHandler) Status(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "TrackingHandler.Status")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	return SuccessResponse(c, map[string]any{
		"any_running":  h.manager.AnyRunning(),
		"armed_timers": h.scheduler.TimerCount(),
		"trackers":     h.manager.Statuses(),
	})
}

// Start begins tracking an event
func (h *TrackingHandler) Start(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "TrackingHandler.Start")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	var req StartTrackingRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}

	if err := c.Validate(&req); err != nil {
		return err
	}

	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		return BadRequest("invalid event_id: must be a valid UUID")
	}

	event, err := h.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}

	family := req.SourceFamily
	sourceURL := req.SourceURL
	if family == "" && event.SourceFamily != nil {
		family = *event.SourceFamily
	}
	if sourceURL == "" && event.SourceURL != nil {
		sourceURL = *event.SourceURL
	}
	if family == "" || sourceURL == "" {
		return BadRequest("event has no bound source; provide source_family and source_url")
	}

	cfg := poller.Config{
		EventID:   eventID,
		SourceURL: sourceURL,
		Interval:  time.Duration(req.IntervalSeconds) * time.Second,
	}

	if err := h.manager.Start(ctx, family, cfg); err != nil {
		if errors.Is(err, poller.ErrAlreadyRunning) {
			return httperror.NewHTTPError(http.StatusConflict, "a tracker is already running")
		}
		h.logger.WithContext(ctx).WithError(err).Error("Failed to start tracker")
		return err
	}

	h.logger.WithContext(ctx).Infof("Started tracking event %s via %s", eventID, family)
	return SuccessResponse(c, map[string]any{
		"event_id":      eventID,
		"source_family": family,
	})
}

// Stop halts one tracker, or all trackers when no family is given
func (h *TrackingHandler) Stop(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "TrackingHandler.Stop")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	var req StopTrackingRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}

	if req.SourceFamily == "" {
		h.manager.StopAll()
		h.logger.WithContext(ctx).Info("Stopped all trackers")
	} else {
		h.manager.Stop(req.SourceFamily)
		h.logger.WithContext(ctx).Infof("Stopped tracker for %s", req.SourceFamily)
	}
	return NoContentResponse(c)
}

// ScheduleAll arms pre-event timers for every schedulable event
func (h *TrackingHandler) ScheduleAll(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "TrackingHandler.ScheduleAll")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	scheduled, err := h.scheduler.ScheduleAll(ctx)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to schedule events")
		return err
	}
	return SuccessResponse(c, map[string]any{"scheduled": scheduled})
}

// SafetyCheck runs one safety sweep immediately
func (h *TrackingHandler) SafetyCheck(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "TrackingHandler.SafetyCheck")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	if err := h.scheduler.SafetyCheck(ctx); err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Safety check failed")
		return err
	}
	return NoContentResponse(c)
}
