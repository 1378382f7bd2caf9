package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hearthboard/core/internal/application/services"
	"github.com/hearthboard/core/internal/domain/entities"
	"github.com/hearthboard/core/internal/infrastructure/logger"
	"github.com/hearthboard/core/internal/ports"
)

// CalendarHandler serves the month view and the display client's polling
// endpoints.
type CalendarHandler struct {
	calendarService *services.CalendarService
	logger          *logger.Logger
}

// NewCalendarHandler creates a new calendar handler
func NewCalendarHandler(calendarService *services.CalendarService, logger *logger.Logger) *CalendarHandler {
	return &CalendarHandler{
		calendarService: calendarService,
		logger:          logger,
	}
}

// View handles the month view, defaulting to the current month when no
// year/month is given. An out-of-range month is a 404, matching the
// display client's expectations.
func (h *CalendarHandler) View(c echo.Context) error {
	now := time.Now().UTC()
	year, month, err := yearMonthParams(c, now.Year(), int(now.Month()))
	if err != nil {
		return err
	}

	view, err := h.calendarService.MonthView(c.Request().Context(), year, month)
	if err != nil {
		if errors.Is(err, entities.ErrInvalidMonth) {
			return echo.NewHTTPError(http.StatusNotFound, "Invalid month")
		}
		h.logger.Error("Month view failed", "error", err, "year", year, "month", month)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to build month view")
	}

	return c.JSON(http.StatusOK, view)
}

// CheckUpdates reports background sync state. Reading consumes the change
// flags, so each change is delivered to exactly one poll.
func (h *CalendarHandler) CheckUpdates(c echo.Context) error {
	year, month, err := yearMonthParams(c, 0, 0)
	if err != nil {
		return err
	}

	resp, err := h.calendarService.CheckUpdates(year, month)
	if err != nil {
		if errors.Is(err, entities.ErrInvalidMonth) {
			return echo.NewHTTPError(http.StatusNotFound, "Invalid month")
		}
		h.logger.Error("Check updates failed", "error", err, "year", year, "month", month)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to check updates")
	}

	return c.JSON(http.StatusOK, resp)
}

// Refresh manually triggers a month sync. The work happens in the
// background; the response only acknowledges the trigger.
func (h *CalendarHandler) Refresh(c echo.Context) error {
	year, month, err := yearMonthParams(c, 0, 0)
	if err != nil {
		return err
	}

	started, err := h.calendarService.RefreshMonth(year, month)
	if err != nil {
		if errors.Is(err, entities.ErrInvalidMonth) {
			return echo.NewHTTPError(http.StatusNotFound, "Invalid month")
		}
		h.logger.Error("Manual refresh failed", "error", err, "year", year, "month", month)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to start refresh")
	}

	taskID := entities.MonthID(year, month)
	if !started {
		return c.JSON(http.StatusAccepted, RefreshResponse{
			Message: "Calendar refresh already in progress",
			TaskID:  taskID,
		})
	}
	return c.JSON(http.StatusAccepted, RefreshResponse{
		Message: "Calendar refresh started",
		TaskID:  taskID,
	})
}

// ChoreHandler serves chore reads and writes.
type ChoreHandler struct {
	choreService *services.ChoreService
	logger       *logger.Logger
}

// NewChoreHandler creates a new chore handler
func NewChoreHandler(choreService *services.ChoreService, logger *logger.Logger) *ChoreHandler {
	return &ChoreHandler{
		choreService: choreService,
		logger:       logger,
	}
}

// List returns the visible chores.
func (h *ChoreHandler) List(c echo.Context) error {
	chores, err := h.choreService.List(c.Request().Context())
	if err != nil {
		h.logger.Error("List chores failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list chores")
	}
	return c.JSON(http.StatusOK, chores)
}

// Add creates a chore locally and on the remote task list. A remote sync
// failure still returns 201: the chore exists locally and the message
// reports the partial outcome.
func (h *ChoreHandler) Add(c echo.Context) error {
	var req ports.AddChoreRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing title or notes for the chore")
	}

	resp, err := h.choreService.Add(c.Request().Context(), req.Title, req.Notes)
	if err != nil {
		h.logger.Error("Add chore failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to add chore")
	}

	return c.JSON(http.StatusCreated, resp)
}

// UpdateStatus changes a chore's status. The invisible status is applied
// locally only and never pushed to the remote list.
func (h *ChoreHandler) UpdateStatus(c echo.Context) error {
	choreID := c.Param("id")

	var req ports.UpdateChoreStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid status provided")
	}

	err := h.choreService.UpdateStatus(c.Request().Context(), choreID, entities.ChoreStatus(req.Status))
	if err != nil {
		if errors.Is(err, entities.ErrChoreNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Chore not found")
		}
		h.logger.Error("Update chore status failed", "error", err, "chore_id", choreID)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update chore status")
	}

	return c.JSON(http.StatusOK, MessageResponse{
		Message: "Chore " + choreID + " status updated to " + req.Status,
	})
}

// Refresh manually triggers a chores sync in the background.
func (h *ChoreHandler) Refresh(c echo.Context) error {
	if !h.choreService.Refresh() {
		return c.JSON(http.StatusAccepted, RefreshResponse{
			Message: "Refresh already in progress",
			TaskID:  services.ChoresPartitionKey,
		})
	}
	return c.JSON(http.StatusAccepted, RefreshResponse{
		Message: "Chores refresh started",
		TaskID:  services.ChoresPartitionKey,
	})
}

// yearMonthParams parses the :year/:month route params, falling back to
// the given defaults when both are absent.
func yearMonthParams(c echo.Context, defaultYear, defaultMonth int) (int, int, error) {
	yearParam := c.Param("year")
	monthParam := c.Param("month")

	if yearParam == "" && monthParam == "" {
		return defaultYear, defaultMonth, nil
	}

	year, err := strconv.Atoi(yearParam)
	if err != nil {
		return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid year")
	}
	month, err := strconv.Atoi(monthParam)
	if err != nil {
		return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid month")
	}
	if month < 1 || month > 12 {
		return 0, 0, echo.NewHTTPError(http.StatusNotFound, "Invalid month")
	}
	return year, month, nil
}
