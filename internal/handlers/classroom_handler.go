package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hakuasns/backend/internal/classroom"
	"github.com/hakuasns/backend/internal/middleware"
)

// ClassroomHandler handles HTTP requests related to Google Classroom courses
type ClassroomHandler struct {
	classroomService *classroom.Service
}

// NewClassroomHandler creates a new ClassroomHandler
func NewClassroomHandler(classroomService *classroom.Service) *ClassroomHandler {
	return &ClassroomHandler{classroomService: classroomService}
}

// RegisterClassroomRoutes registers classroom-related routes
func (h *ClassroomHandler) RegisterClassroomRoutes(g *echo.Group) {
	g.GET("/classroom/courses", h.ListCourses)
	g.POST("/classroom/sync", h.SyncCourses)
}

// ListCourses lists the caller's locally stored courses
func (h *ClassroomHandler) ListCourses(c echo.Context) error {
	courses, err := h.classroomService.List(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, courses)
}

// SyncCourses pulls the caller's active courses from the Classroom API
func (h *ClassroomHandler) SyncCourses(c echo.Context) error {
	courses, err := h.classroomService.Sync(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, courses)
}
