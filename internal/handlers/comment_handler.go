package handlers

import (
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hakuasns/backend/internal/middleware"
	"github.com/hakuasns/backend/internal/models"
	"github.com/hakuasns/backend/internal/repositories"
	"github.com/hakuasns/backend/internal/services"
)

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	commentRepository repositories.CommentRepository
	postRepository    repositories.PostRepository
	userRepository    repositories.UserRepository
	notifications     *services.NotificationService
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(
	commentRepo repositories.CommentRepository,
	postRepo repositories.PostRepository,
	userRepo repositories.UserRepository,
	notifications *services.NotificationService,
) *CommentHandler {
	return &CommentHandler{
		commentRepository: commentRepo,
		postRepository:    postRepo,
		userRepository:    userRepo,
		notifications:     notifications,
	}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/posts/:id/comments", h.CreateComment)
	g.GET("/posts/:id/comments", h.GetComments)
	g.DELETE("/comments/:id", h.DeleteComment)
}

// CreateComment adds a comment to a post, bumps the post's comment counter
// and notifies the post author
func (h *CommentHandler) CreateComment(c echo.Context) error {
	userID := middleware.UserID(c)
	postID := c.Param("id")

	var req models.CreateCommentRequest
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
	author, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	comment := &models.Comment{
		PostID: post.ID,
		UserID: author,
		Desc:   req.Desc,
		Img:    req.Img,
	}
	if err := h.commentRepository.CreateComment(c.Request().Context(), comment); err != nil {
		return httpError(err)
	}

	postAuthorID := post.UserID.Hex()
	go func() {
		ctx, cancel := contextWithTimeout()
		defer cancel()
		if err := h.postRepository.IncrementCommentCount(ctx, postID, 1); err != nil {
			log.Printf("failed to bump comment count for post %s: %v", postID, err)
		}
		if err := h.notifications.Notify(ctx, userID, postAuthorID, models.NotificationComment, &post.ID); err != nil {
			log.Printf("failed to raise comment notification for post %s: %v", postID, err)
		}
	}()

	return c.JSON(http.StatusCreated, comment)
}

// GetComments lists a post's comments with author summaries attached
func (h *CommentHandler) GetComments(c echo.Context) error {
	comments, err := h.commentRepository.GetCommentsByPostID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}

	seen := make(map[primitive.ObjectID]bool)
	var authorIDs []primitive.ObjectID
	for _, comment := range comments {
		if !seen[comment.UserID] {
			seen[comment.UserID] = true
			authorIDs = append(authorIDs, comment.UserID)
		}
	}
	summaries, err := h.userRepository.GetSummaries(c.Request().Context(), authorIDs)
	if err != nil {
		return httpError(err)
	}
	byID := make(map[primitive.ObjectID]models.UserSummary, len(summaries))
	for _, sum := range summaries {
		byID[sum.ID] = sum
	}
	for i := range comments {
		if sum, ok := byID[comments[i].UserID]; ok {
			comments[i].User = &sum
		}
	}
	return c.JSON(http.StatusOK, comments)
}

// DeleteComment deletes a comment. The comment author and the post author
// may both delete it.
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	userID := middleware.UserID(c)
	commentID := c.Param("id")

	comment, err := h.commentRepository.GetCommentByID(c.Request().Context(), commentID)
	if err != nil {
		return httpError(err)
	}

	allowed := comment.UserID.Hex() == userID
	if !allowed {
		post, err := h.postRepository.GetPostByID(c.Request().Context(), comment.PostID.Hex())
		if err == nil && post.UserID.Hex() == userID {
			allowed = true
		}
	}
	if !allowed {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to delete this comment")
	}

	if err := h.commentRepository.DeleteComment(c.Request().Context(), commentID); err != nil {
		return httpError(err)
	}

	postID := comment.PostID.Hex()
	go func() {
		ctx, cancel := contextWithTimeout()
		defer cancel()
		if err := h.postRepository.IncrementCommentCount(ctx, postID, -1); err != nil {
			log.Printf("failed to drop comment count for post %s: %v", postID, err)
		}
	}()

	return c.JSON(http.StatusOK, echo.Map{"message": "Comment deleted"})
}
