package routes

import (
	"ambudispatch/internal/handlers"
	"ambudispatch/internal/middleware"
	"ambudispatch/internal/models"

	"github.com/gin-gonic/gin"
)

func SetupEmergencyRoutes(r *gin.RouterGroup, emergencyHandler *handlers.EmergencyHandler, jwtSecret string) {
	emergencies := r.Group("/emergencies")
	emergencies.Use(middleware.AuthRequired(jwtSecret))
	{
		emergencies.POST("", emergencyHandler.Create)
		// Listing is open to every role; the service scopes visibility.
		emergencies.GET("", emergencyHandler.List)
		emergencies.GET("/mine", emergencyHandler.MyEmergencies)
		emergencies.GET("/:id", emergencyHandler.Get)
		emergencies.PUT("/:id/status", emergencyHandler.UpdateStatus)
		emergencies.PUT("/:id/cancel", emergencyHandler.Cancel)
		emergencies.POST("/:id/feedback", emergencyHandler.AddFeedback)
		emergencies.GET("/:id/messages", emergencyHandler.Messages)
	}

	dispatch := r.Group("/emergencies")
	dispatch.Use(middleware.AuthRequired(jwtSecret), middleware.RoleRequired(models.RoleAdmin, models.RoleHospitalAdmin))
	{
		dispatch.PUT("/:id/assign", emergencyHandler.Assign)
	}
}
