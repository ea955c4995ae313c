package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/bloggen/bloggen_backend/controllers"
	"github.com/bloggen/bloggen_backend/middleware"
)

// RegisterPostRoutes sets up post and comment routes. Reads are public,
// mutations require the shared API secret in the Authorization header.
func RegisterPostRoutes(e *echo.Echo, pc *controllers.PostController, cc *controllers.CommentController) {
	posts := e.Group("/api/posts")
	posts.GET("", pc.GetPosts)
	posts.GET("/:id", pc.GetPost)
	posts.GET("/:id/comments", cc.GetComments)

	protected := e.Group("/api/posts", middleware.RequireAPIKey())
	protected.POST("", pc.CreatePost)
	protected.PUT("/:id", pc.UpdatePost)
	protected.DELETE("/:id", pc.DeletePost)
	protected.POST("/:id/comments", cc.CreateComment)

	comments := e.Group("/api/comments", middleware.RequireAPIKey())
	comments.DELETE("/:id", cc.DeleteComment)
}
