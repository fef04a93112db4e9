package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hakuasns/backend/internal/ranking"
)

// RankingHandler handles HTTP requests for the leaderboards
type RankingHandler struct {
	rankingService *ranking.Service
}

// NewRankingHandler creates a new RankingHandler
func NewRankingHandler(rankingService *ranking.Service) *RankingHandler {
	return &RankingHandler{rankingService: rankingService}
}

// RegisterRankingRoutes registers ranking-related routes
func (h *RankingHandler) RegisterRankingRoutes(g *echo.Group) {
	g.GET("/rankings/study/weekly", h.WeeklyStudy)
	g.GET("/rankings/posts/daily", h.DailyLikes)
}

// WeeklyStudy returns this week's study-time leaderboard
func (h *RankingHandler) WeeklyStudy(c echo.Context) error {
	entries, err := h.rankingService.WeeklyStudyTop(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, entries)
}

// DailyLikes returns today's post-like leaderboard
func (h *RankingHandler) DailyLikes(c echo.Context) error {
	entries, err := h.rankingService.DailyLikeTop(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, entries)
}
