package routes

import (
	"ambudispatch/internal/handlers"
	"ambudispatch/internal/middleware"
	"ambudispatch/internal/models"

	"github.com/gin-gonic/gin"
)

func SetupAmbulanceRoutes(r *gin.RouterGroup, ambulanceHandler *handlers.AmbulanceHandler, jwtSecret string) {
	ambulances := r.Group("/ambulances")
	ambulances.Use(middleware.AuthRequired(jwtSecret))
	{
		ambulances.GET("", ambulanceHandler.List)
		ambulances.GET("/nearby", ambulanceHandler.Nearby)
		ambulances.GET("/:id", ambulanceHandler.Get)
	}

	// The location feed comes from the driver app.
	drivers := r.Group("/ambulances")
	drivers.Use(middleware.AuthRequired(jwtSecret), middleware.DriverRequired())
	{
		drivers.PUT("/location", ambulanceHandler.UpdateLocation)
	}

	manage := r.Group("/ambulances")
	manage.Use(middleware.AuthRequired(jwtSecret), middleware.RoleRequired(models.RoleAdmin, models.RoleHospitalAdmin))
	{
		manage.POST("", ambulanceHandler.Create)
		manage.PUT("/:id", ambulanceHandler.Update)
		manage.DELETE("/:id", ambulanceHandler.Delete)
		manage.PUT("/:id/driver", ambulanceHandler.AssignDriver)
		manage.DELETE("/:id/driver", ambulanceHandler.UnassignDriver)
		manage.PUT("/:id/hospital", ambulanceHandler.ReassignHospital)
	}
}
