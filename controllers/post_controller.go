package controllers

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bloggen/bloggen_backend/middleware"
	"github.com/bloggen/bloggen_backend/models"
	"github.com/bloggen/bloggen_backend/repositories"
	"github.com/bloggen/bloggen_backend/websocket"
)

// PostController contains blog post CRUD logic
type PostController struct {
	posts    repositories.PostRepository
	comments repositories.CommentRepository
	hub      *websocket.Hub
	logger   *log.Logger
}

// NewPostController creates a new post controller
func NewPostController(posts repositories.PostRepository, comments repositories.CommentRepository, hub *websocket.Hub) *PostController {
	return &PostController{
		posts:    posts,
		comments: comments,
		hub:      hub,
		logger:   log.New(os.Stdout, "[POST] ", log.LstdFlags),
	}
}

// resolveOwner picks the owner identity for a new resource: the identity
// asserted by the bearer token wins, a secret-only token falls back to the
// userId field of the request body.
func resolveOwner(c echo.Context, bodyUserID string) string {
	if identity := middleware.AssertedIdentity(c); identity != "" {
		return identity
	}
	return bodyUserID
}

// requireOwner enforces the ownership check for mutations. A non-zero status
// means the request must be rejected with that status and message before any
// write happens.
func requireOwner(c echo.Context, owner, resource string) (int, string) {
	identity := middleware.AssertedIdentity(c)
	if identity == "" {
		return http.StatusUnauthorized, "An identity token is required for this operation"
	}
	if identity != owner {
		return http.StatusForbidden, "Forbidden: you do not own this " + resource
	}
	return 0, ""
}

// GetPosts returns all posts, newest first
func (pc *PostController) GetPosts(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	posts, err := pc.posts.List(ctx)
	if err != nil {
		pc.logger.Printf("Failed to fetch posts: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch posts",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Posts retrieved successfully",
		Data:    posts,
	})
}

// CreatePost creates a new post owned by the asserted identity
func (pc *PostController) CreatePost(c echo.Context) error {
	var req models.PostRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Missing required fields: title, content",
		})
	}

	owner := resolveOwner(c, req.UserID)
	if owner == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Missing post owner: supply an identity token or userId",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	post := models.Post{
		Title:   req.Title,
		Content: req.Content,
		UserID:  owner,
	}

	if _, err := pc.posts.Insert(ctx, &post); err != nil {
		pc.logger.Printf("Failed to create post: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create post",
		})
	}

	pc.hub.Broadcast(websocket.Event{
		Type: websocket.EventPostCreated,
		Data: post,
	})

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Post created successfully",
		Data:    post,
	})
}

// GetPost returns a single post by ID
func (pc *PostController) GetPost(c echo.Context) error {
	objID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid post ID",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	post, err := pc.posts.FindByID(ctx, objID)
	if err != nil {
		pc.logger.Printf("Failed to fetch post %s: %v", objID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch post",
		})
	}
	if post == nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Post not found",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Post retrieved successfully",
		Data:    post,
	})
}

// UpdatePost applies a partial update to a post owned by the caller
func (pc *PostController) UpdatePost(c echo.Context) error {
	objID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid post ID",
		})
	}

	var req models.PostUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	if req.Title == "" && req.Content == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "No update fields provided",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	post, err := pc.posts.FindByID(ctx, objID)
	if err != nil {
		pc.logger.Printf("Failed to fetch post %s: %v", objID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch post",
		})
	}
	if post == nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Post not found",
		})
	}

	if status, msg := requireOwner(c, post.UserID, "post"); status != 0 {
		return c.JSON(status, models.Response{Status: status, Message: msg})
	}

	updated, err := pc.posts.Update(ctx, objID, req.Title, req.Content)
	if err != nil {
		pc.logger.Printf("Failed to update post %s: %v", objID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update post",
		})
	}
	if updated == nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Post not found",
		})
	}

	pc.hub.Broadcast(websocket.Event{
		Type: websocket.EventPostUpdated,
		Data: updated,
	})

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Post updated successfully",
		Data:    updated,
	})
}

// DeletePost removes a post owned by the caller along with its comments
func (pc *PostController) DeletePost(c echo.Context) error {
	objID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid post ID",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	post, err := pc.posts.FindByID(ctx, objID)
	if err != nil {
		pc.logger.Printf("Failed to fetch post %s: %v", objID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch post",
		})
	}
	if post == nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Post not found",
		})
	}

	if status, msg := requireOwner(c, post.UserID, "post"); status != 0 {
		return c.JSON(status, models.Response{Status: status, Message: msg})
	}

	// Comments don't outlive their post
	if _, err := pc.comments.DeleteByPost(ctx, objID.Hex()); err != nil {
		pc.logger.Printf("Failed to delete comments of post %s: %v", objID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to delete post",
		})
	}

	deleted, err := pc.posts.Delete(ctx, objID)
	if err != nil {
		pc.logger.Printf("Failed to delete post %s: %v", objID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to delete post",
		})
	}
	if !deleted {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Post not found",
		})
	}

	pc.hub.Broadcast(websocket.Event{
		Type: websocket.EventPostDeleted,
		Data: map[string]string{"id": objID.Hex()},
	})

	return c.NoContent(http.StatusNoContent)
}
