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
)

// UserController serves session-scoped profile endpoints
type UserController struct {
	users  repositories.UserRepository
	logger *log.Logger
}

// NewUserController creates a new user controller
func NewUserController(users repositories.UserRepository) *UserController {
	return &UserController{
		users:  users,
		logger: log.New(os.Stdout, "[USER] ", log.LstdFlags),
	}
}

// Me returns the profile of the logged-in user
func (uc *UserController) Me(c echo.Context) error {
	userID := middleware.GetUserIDFromToken(c)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid token",
		})
	}

	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user ID in token",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	user, err := uc.users.FindByID(ctx, objID)
	if err != nil {
		uc.logger.Printf("Database error fetching profile: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
		})
	}
	if user == nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "User not found",
		})
	}

	// Don't return password in response
	user.Password = ""

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Profile retrieved successfully",
		Data:    user,
	})
}
