package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/hakuasns/backend/internal/middleware"
	"github.com/hakuasns/backend/internal/models"
	"github.com/hakuasns/backend/internal/services"
)

// NoteHandler handles HTTP requests related to status notes
type NoteHandler struct {
	noteService *services.NoteService
}

// NewNoteHandler creates a new NoteHandler
func NewNoteHandler(noteService *services.NoteService) *NoteHandler {
	return &NoteHandler{noteService: noteService}
}

// RegisterNoteRoutes registers note-related routes
func (h *NoteHandler) RegisterNoteRoutes(g *echo.Group) {
	g.POST("/notes", h.CreateNote)
	g.GET("/notes", h.Timeline)
	g.DELETE("/notes/:id", h.DeleteNote)
}

// CreateNote replaces the caller's current note
func (h *NoteHandler) CreateNote(c echo.Context) error {
	var req models.CreateNoteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	note, err := h.noteService.CreateNote(c.Request().Context(), middleware.UserID(c), &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, note)
}

// Timeline returns the unexpired notes of the caller and everyone they follow
func (h *NoteHandler) Timeline(c echo.Context) error {
	notes, err := h.noteService.Timeline(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, notes)
}

// DeleteNote removes the caller's own note
func (h *NoteHandler) DeleteNote(c echo.Context) error {
	if err := h.noteService.DeleteNote(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Note deleted"})
}
