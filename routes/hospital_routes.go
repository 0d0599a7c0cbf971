package routes

import (
	"ambudispatch/internal/handlers"
	"ambudispatch/internal/middleware"

	"github.com/gin-gonic/gin"
)

func SetupHospitalRoutes(r *gin.RouterGroup, hospitalHandler *handlers.HospitalHandler, jwtSecret string) {
	hospitals := r.Group("/hospitals")
	hospitals.Use(middleware.AuthRequired(jwtSecret))
	{
		hospitals.GET("", hospitalHandler.List)
		hospitals.GET("/nearby", hospitalHandler.Nearby)
		hospitals.GET("/:id", hospitalHandler.Get)
	}

	admin := r.Group("/hospitals")
	admin.Use(middleware.AuthRequired(jwtSecret), middleware.AdminRequired())
	{
		admin.POST("", hospitalHandler.Create)
		admin.PUT("/:id", hospitalHandler.Update)
		admin.DELETE("/:id", hospitalHandler.Delete)
		admin.POST("/:id/administrators", hospitalHandler.AddAdministrator)
		admin.DELETE("/:id/administrators/:userId", hospitalHandler.RemoveAdministrator)
	}
}
