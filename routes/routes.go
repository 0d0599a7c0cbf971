package routes

import (
	"ambudispatch/internal/handlers"
	"ambudispatch/internal/middleware"
	"ambudispatch/pkg/websocket"

	"github.com/gin-gonic/gin"
)

// Handlers bundles everything the router needs.
type Handlers struct {
	Auth      *handlers.AuthHandler
	User      *handlers.UserHandler
	Ambulance *handlers.AmbulanceHandler
	Hospital  *handlers.HospitalHandler
	Emergency *handlers.EmergencyHandler
	Payment   *handlers.PaymentHandler
	Health    *handlers.HealthHandler
	WebSocket *websocket.Handler
}

// Setup mounts every route group under /api.
func Setup(router *gin.Engine, h *Handlers, jwtSecret string) {
	router.GET("/health", h.Health.Health)

	ws := router.Group("/ws")
	ws.Use(middleware.AuthRequired(jwtSecret))
	{
		ws.GET("", h.WebSocket.HandleWebSocket)
	}

	api := router.Group("/api")
	SetupAuthRoutes(api, h.Auth, jwtSecret)
	SetupUserRoutes(api, h.User, jwtSecret)
	SetupAmbulanceRoutes(api, h.Ambulance, jwtSecret)
	SetupHospitalRoutes(api, h.Hospital, jwtSecret)
	SetupEmergencyRoutes(api, h.Emergency, jwtSecret)
	SetupPaymentRoutes(api, h.Payment, jwtSecret)
}
