package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hakuasns/backend/internal/middleware"
	"github.com/hakuasns/backend/internal/models"
	"github.com/hakuasns/backend/internal/repositories"
	"github.com/hakuasns/backend/internal/services"
)

// UserHandler handles HTTP requests related to user profiles and follow edges
type UserHandler struct {
	userRepository repositories.UserRepository
	followService  *services.FollowService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository, followService *services.FollowService) *UserHandler {
	return &UserHandler{
		userRepository: userRepo,
		followService:  followService,
	}
}

// RegisterUserRoutes registers user-related routes
func (h *UserHandler) RegisterUserRoutes(g *echo.Group) {
	g.GET("/users/me", h.GetMe)
	g.PUT("/users/me", h.UpdateSettings)
	g.DELETE("/users/me", h.DeleteMe)
	g.GET("/users/search", h.SearchUsers)
	g.GET("/users/:id", h.GetUser)
	g.PUT("/users/:id/follow", h.Follow)
	g.PUT("/users/:id/unfollow", h.Unfollow)
	g.GET("/users/:id/followers", h.Followers)
	g.GET("/users/:id/following", h.Following)
	g.POST("/users/me/device", h.RegisterDevice)
	g.PUT("/users/me/privacy", h.AgreePrivacy)
}

// GetMe returns the authenticated user's own profile
func (h *UserHandler) GetMe(c echo.Context) error {
	user, err := h.userRepository.GetUserByID(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// GetUser retrieves a user profile by ID, falling back to a username lookup
// when the parameter is not a valid object id.
func (h *UserHandler) GetUser(c echo.Context) error {
	param := c.Param("id")
	ctx := c.Request().Context()

	var user *models.User
	var err error
	if _, hexErr := primitive.ObjectIDFromHex(param); hexErr == nil {
		user, err = h.userRepository.GetUserByID(ctx, param)
	} else {
		user, err = h.userRepository.GetUserByUsername(ctx, param)
	}
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateSettings updates the authenticated user's profile settings
func (h *UserHandler) UpdateSettings(c echo.Context) error {
	var req models.UpdateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	fields := bson.M{}
	if req.Username != "" {
		fields["username"] = req.Username
	}
	if req.Desc != "" {
		fields["desc"] = req.Desc
	}
	if req.ProfilePicture != "" {
		fields["profile_picture"] = req.ProfilePicture
	}
	if req.CoverPicture != "" {
		fields["cover_picture"] = req.CoverPicture
	}
	if req.BackgroundColor != "" {
		fields["background_color"] = req.BackgroundColor
	}
	if req.Font != "" {
		fields["font"] = req.Font
	}
	if len(fields) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Nothing to update")
	}

	userID := middleware.UserID(c)
	if err := h.userRepository.UpdateUser(c.Request().Context(), userID, fields); err != nil {
		return httpError(err)
	}

	user, err := h.userRepository.GetUserByID(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// DeleteMe deletes the authenticated user's account
func (h *UserHandler) DeleteMe(c echo.Context) error {
	if err := h.userRepository.DeleteUser(c.Request().Context(), middleware.UserID(c)); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Account deleted"})
}

// SearchUsers searches users by username
func (h *UserHandler) SearchUsers(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing search query")
	}
	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	users, err := h.userRepository.SearchUsers(c.Request().Context(), query, limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, users)
}

// Follow makes the authenticated user follow the target user
func (h *UserHandler) Follow(c echo.Context) error {
	if err := h.followService.Follow(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "User followed"})
}

// Unfollow makes the authenticated user unfollow the target user
func (h *UserHandler) Unfollow(c echo.Context) error {
	if err := h.followService.Unfollow(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "User unfollowed"})
}

// Followers lists the users following the target user
func (h *UserHandler) Followers(c echo.Context) error {
	followers, err := h.followService.Followers(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, followers)
}

// Following lists the users the target user follows
func (h *UserHandler) Following(c echo.Context) error {
	following, err := h.followService.Following(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, following)
}

// RegisterDevice stores the caller's FCM device token for push delivery
func (h *UserHandler) RegisterDevice(c echo.Context) error {
	var req models.RegisterDeviceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.userRepository.SetFCMToken(c.Request().Context(), middleware.UserID(c), req.FCMToken); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Device registered"})
}

// AgreePrivacy records the caller's acceptance of the privacy policy
func (h *UserHandler) AgreePrivacy(c echo.Context) error {
	fields := bson.M{"agreed_to_privacy": true}
	if err := h.userRepository.UpdateUser(c.Request().Context(), middleware.UserID(c), fields); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Privacy policy accepted"})
}
