package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/bloggen/bloggen_backend/config"
	"github.com/bloggen/bloggen_backend/controllers"
	"github.com/bloggen/bloggen_backend/middleware"
	"github.com/bloggen/bloggen_backend/repositories"
	"github.com/bloggen/bloggen_backend/routes"
	"github.com/bloggen/bloggen_backend/services"
	"github.com/bloggen/bloggen_backend/utils"
	"github.com/bloggen/bloggen_backend/websocket"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found")
	}

	// Connect to Redis (optional, throttling and remember-me degrade without it)
	config.ConnectRedis()

	// Connect to database
	client := config.ConnectDB()

	// Create WebSocket hub for the live activity feed
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Create a new Echo instance
	e := echo.New()

	// Initialize custom validator
	customValidator := &CustomValidator{validator: validator.New()}
	e.Validator = customValidator

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter()

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.Secure())
	e.Use(rateLimiter.RateLimit())
	e.Use(middleware.SecurityHeaders())

	e.Match([]string{"GET", "HEAD"}, "/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "OK",
			"message": "BlogGen Backend is running",
			"version": "1.0",
		})
	})

	e.Match([]string{"GET", "HEAD"}, "/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":   "healthy",
			"database": "connected",
		})
	})

	// Initialize repositories
	userRepo := repositories.NewUserRepository(client)
	postRepo := repositories.NewPostRepository(client)
	commentRepo := repositories.NewCommentRepository(client)

	// OTP delivery through the SMS gateway
	smsService := utils.NewSMSService()
	otpService := services.NewOTPService(smsService)
	otpService.StartCleanupRoutine()

	// Initialize controllers
	authController := controllers.NewAuthController(userRepo, otpService, config.GetRedisClient())
	userController := controllers.NewUserController(userRepo)
	postController := controllers.NewPostController(postRepo, commentRepo, wsHub)
	commentController := controllers.NewCommentController(postRepo, commentRepo, wsHub)

	// Register routes
	routes.RegisterAuthRoutes(e, authController, userController)
	routes.RegisterPostRoutes(e, postController, commentController)

	// Public WebSocket endpoint for the activity feed
	e.GET("/ws", func(c echo.Context) error {
		return websocket.HandleWebSocket(c, wsHub)
	})

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	e.Logger.Fatal(e.Start(":" + port))
}
