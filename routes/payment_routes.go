package routes

import (
	"ambudispatch/internal/handlers"
	"ambudispatch/internal/middleware"

	"github.com/gin-gonic/gin"
)

func SetupPaymentRoutes(r *gin.RouterGroup, paymentHandler *handlers.PaymentHandler, jwtSecret string) {
	payments := r.Group("/payments")
	payments.Use(middleware.AuthRequired(jwtSecret))
	{
		payments.POST("", paymentHandler.Create)
		payments.GET("/:id", paymentHandler.Get)
		payments.POST("/:id/process", paymentHandler.Process)
		payments.GET("/emergency/:emergencyId", paymentHandler.GetByEmergency)
	}

	admin := r.Group("/payments")
	admin.Use(middleware.AuthRequired(jwtSecret), middleware.AdminRequired())
	{
		admin.GET("", paymentHandler.List)
		admin.POST("/:id/refund", paymentHandler.Refund)
	}
}
