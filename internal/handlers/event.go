package handlers

import (
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/stem/pkg/tracing"
	"github.com/Ramsey-B/thistle/internal/repositories"
	"github.com/Ramsey-B/thistle/pkg/models"
)

// EventHandler handles event API endpoints
type EventHandler struct {
	events *repositories.EventRepository
	fights *repositories.FightRepository
	runs   *repositories.TrackerRunRepository
	logger ectologger.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(
	events *repositories.EventRepository,
	fights *repositories.FightRepository,
	runs *repositories.TrackerRunRepository,
	logger ectologger.Logger,
) *EventHandler {
	return &EventHandler{
		events: events,
		fights: fights,
		runs:   runs,
		logger: logger,
	}
}

// CreateEventRequest represents the create event request body
type CreateEventRequest struct {
	Name             string     `json:"name" validate:"required"`
	Promotion        string     `json:"promotion" validate:"required"`
	EventDate        *time.Time `json:"event_date,omitempty"`
	EarlyPrelimStart *time.Time `json:"early_prelim_start,omitempty"`
	PrelimStart      *time.Time `json:"prelim_start,omitempty"`
	MainCardStart    *time.Time `json:"main_card_start,omitempty"`
	SourceFamily     *string    `json:"source_family,omitempty"`
	SourceURL        *string    `json:"source_url,omitempty"`
}

// BindSourceRequest represents the bind source request body
type BindSourceRequest struct {
	SourceFamily string `json:"source_family" validate:"required"`
	SourceURL    string `json:"source_url" validate:"required"`
}

// Register registers event routes
func (h *EventHandler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.GetByID)
	g.PUT("/:id/source", h.BindSource)
	g.GET("/:id/fights", h.ListFights)
	g.GET("/:id/runs", h.ListRuns)
}

// List returns events filtered by status
func (h *EventHandler) List(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "EventHandler.List")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	status := models.EventStatus(c.QueryParam("status"))
	if status == "" {
		return BadRequest("status query parameter is required")
	}

	events, err := h.events.ListByStatus(ctx, status)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to list events")
		return err
	}
	return SuccessResponse(c, events)
}

// Create creates a new event
func (h *EventHandler) Create(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "EventHandler.Create")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	var req CreateEventRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}

	if err := c.Validate(&req); err != nil {
		return err
	}

	if (req.SourceFamily == nil) != (req.SourceURL == nil) {
		return BadRequest("source_family and source_url must be set together")
	}

	event := &models.Event{
		Name:             req.Name,
		Promotion:        req.Promotion,
		Status:           models.EventStatusUpcoming,
		EventDate:        req.EventDate,
		EarlyPrelimStart: req.EarlyPrelimStart,
		PrelimStart:      req.PrelimStart,
		MainCardStart:    req.MainCardStart,
		SourceFamily:     req.SourceFamily,
		SourceURL:        req.SourceURL,
	}

	if err := h.events.Create(ctx, event); err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to create event")
		return err
	}

	h.logger.WithContext(ctx).Infof("Created event: %s", event.Name)
	return CreatedResponse(c, event)
}

// GetByID returns an event by ID
func (h *EventHandler) GetByID(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "EventHandler.GetByID")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	event, err := h.events.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return SuccessResponse(c, event)
}

// BindSource attaches a snapshot source to an event
func (h *EventHandler) BindSource(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "EventHandler.BindSource")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	var req BindSourceRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}

	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.events.BindSource(ctx, id, req.SourceFamily, req.SourceURL); err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to bind source")
		return err
	}

	event, err := h.events.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return SuccessResponse(c, event)
}

// ListFights returns an event's fight card in chronological order
func (h *EventHandler) ListFights(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "EventHandler.ListFights")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	fights, err := h.fights.ListByEvent(ctx, id)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to list fights")
		return err
	}
	return SuccessResponse(c, fights)
}

// ListRuns returns the tracker run audit rows for an event
func (h *EventHandler) ListRuns(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "EventHandler.ListRuns")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	runs, err := h.runs.ListByEvent(ctx, id)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to list tracker runs")
		return err
	}
	return SuccessResponse(c, runs)
}
