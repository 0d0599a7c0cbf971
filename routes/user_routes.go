package routes

import (
	"ambudispatch/internal/handlers"
	"ambudispatch/internal/middleware"

	"github.com/gin-gonic/gin"
)

func SetupUserRoutes(r *gin.RouterGroup, userHandler *handlers.UserHandler, jwtSecret string) {
	users := r.Group("/users")
	users.Use(middleware.AuthRequired(jwtSecret))
	{
		users.GET("/me", userHandler.GetProfile)
		users.PUT("/me", userHandler.UpdateProfile)
	}

	admin := r.Group("/users")
	admin.Use(middleware.AuthRequired(jwtSecret), middleware.AdminRequired())
	{
		admin.GET("", userHandler.ListUsers)
		admin.GET("/:id", userHandler.GetUser)
		admin.PUT("/:id/role", userHandler.UpdateRole)
		admin.DELETE("/:id", userHandler.DeleteUser)
	}
}
