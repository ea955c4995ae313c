package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/bloggen/bloggen_backend/controllers"
	"github.com/bloggen/bloggen_backend/middleware"
)

// RegisterAuthRoutes sets up authentication and account recovery routes
func RegisterAuthRoutes(e *echo.Echo, ac *controllers.AuthController, uc *controllers.UserController) {
	auth := e.Group("/api/auth")
	auth.POST("/register", ac.Register)
	auth.POST("/send-otp", ac.SendOTP)
	auth.POST("/login", ac.Login)
	auth.POST("/validate-token", ac.ValidateToken)

	recovery := auth.Group("/recovery")
	recovery.POST("/send-otp", ac.RecoverySendOTP)
	recovery.POST("/get-username", ac.RecoveryGetUsername)
	recovery.POST("/reset-password", ac.RecoveryResetPassword)

	users := e.Group("/api/users")
	users.Use(middleware.JWTMiddleware())
	users.GET("/me", uc.Me)
}
