package controllers

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/bloggen/bloggen_backend/models"
	"github.com/bloggen/bloggen_backend/repositories"
	"github.com/bloggen/bloggen_backend/websocket"
)

// CommentController contains comment CRUD logic
type CommentController struct {
	posts    repositories.PostRepository
	comments repositories.CommentRepository
	hub      *websocket.Hub
	logger   *log.Logger
}

// NewCommentController creates a new comment controller
func NewCommentController(posts repositories.PostRepository, comments repositories.CommentRepository, hub *websocket.Hub) *CommentController {
	return &CommentController{
		posts:    posts,
		comments: comments,
		hub:      hub,
		logger:   log.New(os.Stdout, "[COMMENT] ", log.LstdFlags),
	}
}

// GetComments returns all comments of a post, newest first
func (cc *CommentController) GetComments(c echo.Context) error {
	objID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid post ID",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	post, err := cc.posts.FindByID(ctx, objID)
	if err != nil {
		cc.logger.Printf("Failed to fetch post %s: %v", objID.Hex(), err)
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

	comments, err := cc.comments.ListByPost(ctx, objID.Hex())
	if err != nil {
		cc.logger.Printf("Failed to fetch comments for post %s: %v", objID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch comments",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Comments retrieved successfully",
		Data:    comments,
	})
}

// CreateComment adds a comment to an existing post
func (cc *CommentController) CreateComment(c echo.Context) error {
	objID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid post ID",
		})
	}

	var req models.CommentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Missing required field: content",
		})
	}

	owner := resolveOwner(c, req.UserID)
	if owner == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Missing comment owner: supply an identity token or userId",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	post, err := cc.posts.FindByID(ctx, objID)
	if err != nil {
		cc.logger.Printf("Failed to fetch post %s: %v", objID.Hex(), err)
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

	comment := models.Comment{
		PostID:  objID.Hex(),
		UserID:  owner,
		Content: req.Content,
	}

	if _, err := cc.comments.Insert(ctx, &comment); err != nil {
		cc.logger.Printf("Failed to create comment for post %s: %v", objID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create comment",
		})
	}

	cc.hub.Broadcast(websocket.Event{
		Type: websocket.EventCommentCreated,
		Data: comment,
	})

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Comment created successfully",
		Data:    comment,
	})
}

// DeleteComment removes a comment owned by the caller
func (cc *CommentController) DeleteComment(c echo.Context) error {
	objID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid comment ID",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	comment, err := cc.comments.FindByID(ctx, objID)
	if err != nil {
		cc.logger.Printf("Failed to fetch comment %s: %v", objID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch comment",
		})
	}
	if comment == nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Comment not found",
		})
	}

	if status, msg := requireOwner(c, comment.UserID, "comment"); status != 0 {
		return c.JSON(status, models.Response{Status: status, Message: msg})
	}

	deleted, err := cc.comments.Delete(ctx, objID)
	if err != nil {
		cc.logger.Printf("Failed to delete comment %s: %v", objID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to delete comment",
		})
	}
	if !deleted {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Comment not found",
		})
	}

	cc.hub.Broadcast(websocket.Event{
		Type: websocket.EventCommentDeleted,
		Data: map[string]string{"id": objID.Hex()},
	})

	return c.NoContent(http.StatusNoContent)
}
