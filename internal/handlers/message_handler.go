package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/hakuasns/backend/internal/middleware"
	"github.com/hakuasns/backend/internal/models"
	"github.com/hakuasns/backend/internal/services"
)

// MessageHandler handles HTTP requests related to conversations and messages
type MessageHandler struct {
	messageService *services.MessageService
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messageService *services.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// RegisterMessageRoutes registers conversation and message routes
func (h *MessageHandler) RegisterMessageRoutes(g *echo.Group) {
	g.POST("/conversations", h.OpenConversation)
	g.GET("/conversations", h.ListConversations)
	g.GET("/conversations/:id/messages", h.ListMessages)
	g.PUT("/conversations/:id/read", h.MarkAllRead)
	g.DELETE("/conversations/:id", h.DeleteConversation)
	g.POST("/messages", h.SendMessage)
	g.PUT("/messages/:id", h.EditMessage)
	g.PUT("/messages/:id/read", h.MarkMessageRead)
	g.DELETE("/messages/:id", h.DeleteMessage)
	g.GET("/messages/unread-count", h.UnreadCount)
}

// OpenConversation returns or creates the conversation with another user
func (h *MessageHandler) OpenConversation(c echo.Context) error {
	var req models.CreateConversationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	conversation, err := h.messageService.OpenConversation(c.Request().Context(), middleware.UserID(c), req.ReceiverID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, conversation)
}

// ListConversations lists the caller's conversations
func (h *MessageHandler) ListConversations(c echo.Context) error {
	conversations, err := h.messageService.ListConversations(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, conversations)
}

// ListMessages lists a conversation's visible messages
func (h *MessageHandler) ListMessages(c echo.Context) error {
	messages, err := h.messageService.ListMessages(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, messages)
}

// SendMessage stores and fans out a new message
func (h *MessageHandler) SendMessage(c echo.Context) error {
	var req models.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	message, err := h.messageService.SendMessage(c.Request().Context(), middleware.UserID(c), &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, message)
}

// EditMessage replaces the text of the caller's own message
func (h *MessageHandler) EditMessage(c echo.Context) error {
	var req models.EditMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	message, err := h.messageService.EditMessage(c.Request().Context(), middleware.UserID(c), c.Param("id"), req.Text)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, message)
}

// DeleteMessage soft-deletes the caller's own message
func (h *MessageHandler) DeleteMessage(c echo.Context) error {
	if err := h.messageService.DeleteMessage(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Message deleted"})
}

// MarkMessageRead marks one message addressed to the caller as read
func (h *MessageHandler) MarkMessageRead(c echo.Context) error {
	if err := h.messageService.MarkMessageRead(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Message read"})
}

// MarkAllRead marks every message sent to the caller in the conversation as read
func (h *MessageHandler) MarkAllRead(c echo.Context) error {
	updated, err := h.messageService.MarkAllRead(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": updated})
}

// DeleteConversation removes a conversation the caller belongs to
func (h *MessageHandler) DeleteConversation(c echo.Context) error {
	if err := h.messageService.DeleteConversation(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Conversation deleted"})
}

// UnreadCount sums the caller's unread counters across all conversations
func (h *MessageHandler) UnreadCount(c echo.Context) error {
	total, err := h.messageService.UnreadTotal(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"unread": total})
}
