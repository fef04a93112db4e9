package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"

	"github.com/hakuasns/backend/internal/apperr"
	"github.com/hakuasns/backend/internal/models"
	"github.com/hakuasns/backend/internal/repositories"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	userRepository repositories.UserRepository
	oauthConfig    *oauth2.Config
	jwtSecret      string
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(userRepo repositories.UserRepository, oauthConfig *oauth2.Config) *AuthHandler {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "supersecretjwtkey"
	}
	return &AuthHandler{
		userRepository: userRepo,
		oauthConfig:    oauthConfig,
		jwtSecret:      jwtSecret,
	}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.GET("/google", h.GoogleRedirect)
	g.GET("/google/callback", h.GoogleCallback)
}

// Register handles local user registration with username, email and password
func (h *AuthHandler) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if _, err := h.userRepository.GetUserByEmail(c.Request().Context(), req.Email); err == nil {
		return echo.NewHTTPError(http.StatusConflict, "User with this email already registered")
	}
	if _, err := h.userRepository.GetUserByUsername(c.Request().Context(), req.Username); err == nil {
		return echo.NewHTTPError(http.StatusConflict, "Username already taken")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to hash password")
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPassword),
	}
	if err := h.userRepository.CreateUser(c.Request().Context(), user); err != nil {
		return httpError(err)
	}

	token, err := h.generateJWT(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token after signup")
	}
	return c.JSON(http.StatusCreated, echo.Map{"token": token, "user": user})
}

// Login handles local user authentication with email and password
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.userRepository.GetUserByEmail(c.Request().Context(), req.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}
	if user.Password == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "This account uses Google sign-in")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}

	token, err := h.generateJWT(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}
	return c.JSON(http.StatusOK, echo.Map{"token": token, "user": user})
}

// GoogleRedirect sends the browser to Google's consent screen
func (h *AuthHandler) GoogleRedirect(c echo.Context) error {
	url := h.oauthConfig.AuthCodeURL("state-token",
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
	return c.Redirect(http.StatusTemporaryRedirect, url)
}

type googleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// GoogleCallback exchanges the OAuth code, upserts the user and issues a JWT.
// The stored refresh token is only overwritten when Google returned a new
// one, otherwise re-login would wipe the Classroom grant.
func (h *AuthHandler) GoogleCallback(c echo.Context) error {
	code := c.QueryParam("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing authorization code")
	}

	token, err := h.oauthConfig.Exchange(c.Request().Context(), code)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Failed to exchange authorization code")
	}

	client := h.oauthConfig.Client(c.Request().Context(), token)
	resp, err := client.Get(googleUserInfoURL)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "Failed to fetch Google profile")
	}
	defer resp.Body.Close()

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "Failed to decode Google profile")
	}
	if info.ID == "" || info.Email == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Incomplete Google profile")
	}

	user, err := h.userRepository.GetUserByGoogleID(c.Request().Context(), info.ID)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			return httpError(err)
		}
		// Link by email when the account predates Google sign-in.
		user, err = h.userRepository.GetUserByEmail(c.Request().Context(), info.Email)
		if err != nil {
			if !errors.Is(err, apperr.ErrNotFound) {
				return httpError(err)
			}
			user = &models.User{
				Username:       info.Name,
				Email:          info.Email,
				GoogleID:       info.ID,
				ProfilePicture: info.Picture,
			}
			if err := h.userRepository.CreateUser(c.Request().Context(), user); err != nil {
				return httpError(err)
			}
		} else {
			fields := bson.M{"google_id": info.ID}
			if user.ProfilePicture == "" && info.Picture != "" {
				fields["profile_picture"] = info.Picture
			}
			if err := h.userRepository.UpdateUser(c.Request().Context(), user.ID.Hex(), fields); err != nil {
				return httpError(err)
			}
			user.GoogleID = info.ID
		}
	}

	if err := h.userRepository.UpdateOAuthTokens(c.Request().Context(), user.ID.Hex(), token.AccessToken, token.RefreshToken); err != nil {
		return httpError(err)
	}

	jwtToken, err := h.generateJWT(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}
	return c.JSON(http.StatusOK, echo.Map{"token": jwtToken, "user": user})
}

// generateJWT creates a signed token valid for seven days
func (h *AuthHandler) generateJWT(user *models.User) (string, error) {
	claims := &models.JwtCustomClaims{
		UserID: user.ID.Hex(),
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(7 * 24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.jwtSecret))
}
