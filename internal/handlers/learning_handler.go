package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/hakuasns/backend/internal/apperr"
	"github.com/hakuasns/backend/internal/middleware"
	"github.com/hakuasns/backend/internal/models"
	"github.com/hakuasns/backend/internal/services"
)

// LearningHandler handles HTTP requests related to study sessions, stats,
// streaks and goals
type LearningHandler struct {
	learningService *services.LearningService
}

// NewLearningHandler creates a new LearningHandler
func NewLearningHandler(learningService *services.LearningService) *LearningHandler {
	return &LearningHandler{learningService: learningService}
}

// RegisterLearningRoutes registers learning-related routes
func (h *LearningHandler) RegisterLearningRoutes(g *echo.Group) {
	g.POST("/learning/sessions/start", h.StartSession)
	g.POST("/learning/sessions/stop", h.StopSession)
	g.GET("/learning/sessions", h.ListSessions)
	g.GET("/learning/sessions/active", h.ActiveSession)
	g.GET("/learning/stats", h.Stats)
	g.GET("/learning/streak", h.Streak)
	g.POST("/learning/goals", h.SetGoal)
	g.GET("/learning/goals", h.ListGoals)
	g.DELETE("/learning/goals/:id", h.DeleteGoal)
}

// StartSession opens a new study session
func (h *LearningHandler) StartSession(c echo.Context) error {
	var req models.StartSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	session, err := h.learningService.StartSession(c.Request().Context(), middleware.UserID(c), &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, session)
}

// StopSession closes the caller's running session
func (h *LearningHandler) StopSession(c echo.Context) error {
	session, err := h.learningService.StopSession(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, session)
}

// ActiveSession returns the caller's running session, if any
func (h *LearningHandler) ActiveSession(c echo.Context) error {
	session, err := h.learningService.ActiveSession(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return c.JSON(http.StatusOK, echo.Map{"active": false})
		}
		return httpError(err)
	}
	return c.JSON(http.StatusOK, session)
}

// ListSessions lists the caller's most recent sessions
func (h *LearningHandler) ListSessions(c echo.Context) error {
	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)

	var from, to time.Time
	if v := c.QueryParam("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid from date, expected YYYY-MM-DD")
		}
		from = parsed
	}
	if v := c.QueryParam("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid to date, expected YYYY-MM-DD")
		}
		// Inclusive end date.
		to = parsed.AddDate(0, 0, 1)
	}

	sessions, err := h.learningService.ListSessions(c.Request().Context(), middleware.UserID(c), from, to, limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sessions)
}

// Stats sums the caller's study minutes over the standard windows
func (h *LearningHandler) Stats(c echo.Context) error {
	stats, err := h.learningService.Stats(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

// Streak reports the caller's current and longest learning-day streaks
func (h *LearningHandler) Streak(c echo.Context) error {
	streak, err := h.learningService.Streak(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, streak)
}

// SetGoal creates or replaces a study goal
func (h *LearningHandler) SetGoal(c echo.Context) error {
	var req models.SetGoalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	goal, err := h.learningService.SetGoal(c.Request().Context(), middleware.UserID(c), &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, goal)
}

// ListGoals lists the caller's active goals
func (h *LearningHandler) ListGoals(c echo.Context) error {
	goals, err := h.learningService.ListGoals(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, goals)
}

// DeleteGoal deactivates one of the caller's goals
func (h *LearningHandler) DeleteGoal(c echo.Context) error {
	if err := h.learningService.DeleteGoal(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Goal deleted"})
}
