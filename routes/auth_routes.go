package routes

import (
	"ambudispatch/internal/handlers"
	"ambudispatch/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupAuthRoutes wires authentication endpoints.
func SetupAuthRoutes(r *gin.RouterGroup, authHandler *handlers.AuthHandler, jwtSecret string) {
	auth := r.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)
	}

	protected := r.Group("/auth")
	protected.Use(middleware.AuthRequired(jwtSecret))
	{
		protected.POST("/change-password", authHandler.ChangePassword)
	}
}
