package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hakuasns/backend/internal/repositories"
	"github.com/hakuasns/backend/internal/services"
)

// HashtagHandler handles HTTP requests related to hashtags
type HashtagHandler struct {
	hashtagService *services.HashtagService
	postRepository repositories.PostRepository
}

// NewHashtagHandler creates a new HashtagHandler
func NewHashtagHandler(hashtagService *services.HashtagService, postRepo repositories.PostRepository) *HashtagHandler {
	return &HashtagHandler{
		hashtagService: hashtagService,
		postRepository: postRepo,
	}
}

// RegisterHashtagRoutes registers hashtag-related routes
func (h *HashtagHandler) RegisterHashtagRoutes(g *echo.Group) {
	g.GET("/hashtags/trending", h.Trending)
	g.GET("/hashtags/:tag/posts", h.PostsByTag)
}

// Trending returns the current top hashtags
func (h *HashtagHandler) Trending(c echo.Context) error {
	trending, err := h.hashtagService.Trending(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, trending)
}

// PostsByTag lists posts mentioning a hashtag
func (h *HashtagHandler) PostsByTag(c echo.Context) error {
	tag := c.Param("tag")
	if tag == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing hashtag")
	}
	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	posts, err := h.postRepository.SearchPosts(c.Request().Context(), "#"+tag, limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, posts)
}
