package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hakuasns/backend/internal/middleware"
	"github.com/hakuasns/backend/internal/models"
	"github.com/hakuasns/backend/internal/ranking"
	"github.com/hakuasns/backend/internal/realtime"
	"github.com/hakuasns/backend/internal/repositories"
	"github.com/hakuasns/backend/internal/services"
)

// Broadcaster is the slice of the realtime gateway the post handler needs.
type Broadcaster interface {
	Broadcast(event string, data interface{})
}

// PostHandler handles HTTP requests related to posts and likes
type PostHandler struct {
	postRepository repositories.PostRepository
	userRepository repositories.UserRepository
	notifications  *services.NotificationService
	hashtags       *services.HashtagService
	ranking        *ranking.Service
	broadcaster    Broadcaster
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(
	postRepo repositories.PostRepository,
	userRepo repositories.UserRepository,
	notifications *services.NotificationService,
	hashtags *services.HashtagService,
	rankingService *ranking.Service,
	broadcaster Broadcaster,
) *PostHandler {
	return &PostHandler{
		postRepository: postRepo,
		userRepository: userRepo,
		notifications:  notifications,
		hashtags:       hashtags,
		ranking:        rankingService,
		broadcaster:    broadcaster,
	}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.GET("/posts/timeline", h.Timeline)
	g.GET("/posts/search", h.SearchPosts)
	g.GET("/posts/:id", h.GetPost)
	g.GET("/posts", h.GetPosts)
	g.PUT("/posts/:id", h.UpdatePost)
	g.DELETE("/posts/:id", h.DeletePost)
	g.PUT("/posts/:id/like", h.LikePost)
	g.PUT("/posts/:id/unlike", h.UnlikePost)
}

// CreatePost creates a new post, counts its hashtags and announces it to
// every connected user
func (h *PostHandler) CreatePost(c echo.Context) error {
	userID := middleware.UserID(c)

	var req models.CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	owner, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	post := &models.Post{
		UserID: owner,
		Desc:   req.Desc,
		Img:    req.Img,
		Video:  req.Video,
		File:   req.File,
		Likes:  []primitive.ObjectID{},
	}
	if err := h.postRepository.CreatePost(c.Request().Context(), post); err != nil {
		return httpError(err)
	}

	go func() {
		ctx, cancel := contextWithTimeout()
		defer cancel()
		h.hashtags.RecordPost(ctx, post.Desc)
	}()

	if h.broadcaster != nil {
		h.broadcaster.Broadcast(realtime.EventNewPost, echo.Map{
			"postId": post.ID.Hex(),
			"userId": userID,
		})
	}
	return c.JSON(http.StatusCreated, post)
}

// GetPost retrieves a post by ID
func (h *PostHandler) GetPost(c echo.Context) error {
	post, err := h.postRepository.GetPostByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, post)
}

// GetPosts retrieves posts by user
func (h *PostHandler) GetPosts(c echo.Context) error {
	userID := c.QueryParam("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing user_id query parameter")
	}
	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	posts, err := h.postRepository.GetPostsByUserID(c.Request().Context(), userID, limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, posts)
}

// Timeline retrieves the global timeline with author summaries attached
func (h *PostHandler) Timeline(c echo.Context) error {
	skip, _ := strconv.ParseInt(c.QueryParam("skip"), 10, 64)
	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	posts, err := h.postRepository.GetTimeline(c.Request().Context(), skip, limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, posts)
}

// SearchPosts searches posts by text
func (h *PostHandler) SearchPosts(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing search query")
	}
	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	posts, err := h.postRepository.SearchPosts(c.Request().Context(), query, limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, posts)
}

// UpdatePost updates the caller's own post
func (h *PostHandler) UpdatePost(c echo.Context) error {
	userID := middleware.UserID(c)
	postID := c.Param("id")

	var req models.UpdatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	post, err := h.postRepository.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		return httpError(err)
	}
	if post.UserID.Hex() != userID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to update this post")
	}

	fields := bson.M{}
	if req.Desc != "" {
		fields["desc"] = req.Desc
	}
	if req.Img != "" {
		fields["img"] = req.Img
	}
	if req.Video != "" {
		fields["video"] = req.Video
	}
	if len(fields) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Nothing to update")
	}

	if err := h.postRepository.UpdatePost(c.Request().Context(), postID, fields); err != nil {
		return httpError(err)
	}
	updated, err := h.postRepository.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

// DeletePost deletes the caller's own post
func (h *PostHandler) DeletePost(c echo.Context) error {
	userID := middleware.UserID(c)
	postID := c.Param("id")

	post, err := h.postRepository.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		return httpError(err)
	}
	if post.UserID.Hex() != userID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to delete this post")
	}

	if err := h.postRepository.DeletePost(c.Request().Context(), postID); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Post deleted"})
}

// LikePost adds the caller to the post's like set. Liking twice is a no-op.
func (h *PostHandler) LikePost(c echo.Context) error {
	userID := middleware.UserID(c)
	postID := c.Param("id")

	post, err := h.postRepository.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		return httpError(err)
	}
	liker, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}
	for _, l := range post.Likes {
		if l == liker {
			return c.JSON(http.StatusOK, echo.Map{"message": "Already liked"})
		}
	}

	if err := h.postRepository.AddLike(c.Request().Context(), postID, userID); err != nil {
		return httpError(err)
	}

	authorID := post.UserID.Hex()
	go func() {
		ctx, cancel := contextWithTimeout()
		defer cancel()
		if err := h.notifications.Notify(ctx, userID, authorID, models.NotificationLike, &post.ID); err != nil {
			log.Printf("failed to raise like notification for post %s: %v", postID, err)
		}
		// Self-likes raise no notification row, so they stay off the board
		// to keep it consistent with the cold-cache rebuild.
		if userID != authorID {
			if err := h.ranking.AddPostLikes(ctx, postID, 1); err != nil {
				log.Printf("failed to credit like ranking for post %s: %v", postID, err)
			}
		}
	}()

	return c.JSON(http.StatusOK, echo.Map{"message": "Post liked"})
}

// UnlikePost removes the caller from the post's like set
func (h *PostHandler) UnlikePost(c echo.Context) error {
	userID := middleware.UserID(c)
	postID := c.Param("id")

	post, err := h.postRepository.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		return httpError(err)
	}
	liker, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}
	liked := false
	for _, l := range post.Likes {
		if l == liker {
			liked = true
			break
		}
	}
	if !liked {
		return c.JSON(http.StatusOK, echo.Map{"message": "Not liked"})
	}

	if err := h.postRepository.RemoveLike(c.Request().Context(), postID, userID); err != nil {
		return httpError(err)
	}

	if userID != post.UserID.Hex() {
		go func() {
			ctx, cancel := contextWithTimeout()
			defer cancel()
			if err := h.ranking.AddPostLikes(ctx, postID, -1); err != nil {
				log.Printf("failed to debit like ranking for post %s: %v", postID, err)
			}
		}()
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Post unliked"})
}

func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
