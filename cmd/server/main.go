package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ambudispatch/internal/config"
	"ambudispatch/internal/handlers"
	"ambudispatch/internal/middleware"
	"ambudispatch/internal/repositories/interfaces"
	"ambudispatch/internal/repositories/mongodb"
	"ambudispatch/internal/services"
	"ambudispatch/pkg/breaker"
	"ambudispatch/pkg/cache"
	"ambudispatch/pkg/database"
	"ambudispatch/pkg/logger"
	"ambudispatch/pkg/maps"
	"ambudispatch/pkg/sms"
	"ambudispatch/pkg/websocket"
	"ambudispatch/routes"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:  cfg.App.LogLevel,
		Format: cfg.App.LogFormat,
		Output: "stdout",
		Colors: !config.IsProduction(),
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// MongoDB
	db, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		appLogger.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer db.Close()

	if err := database.EnsureIndexes(db.Database); err != nil {
		appLogger.Fatalf("Failed to ensure indexes: %v", err)
	}

	// Redis is optional; the service degrades to MongoDB-only lookups.
	var redisCache *cache.RedisCache
	redisCache, err = cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		appLogger.WithError(err).Warn("Redis unavailable, continuing without cache")
		redisCache = nil
	} else {
		defer redisCache.Close()
	}

	var repoCache interfaces.Cache
	if redisCache != nil {
		repoCache = redisCache
	}

	// Repositories
	userRepo := mongodb.NewUserRepository(db.Database, repoCache)
	ambulanceRepo := mongodb.NewAmbulanceRepository(db.Database, repoCache)
	hospitalRepo := mongodb.NewHospitalRepository(db.Database, repoCache)
	emergencyRepo := mongodb.NewEmergencyRepository(db.Database, repoCache)
	paymentRepo := mongodb.NewPaymentRepository(db.Database, repoCache)
	messageRepo := mongodb.NewMessageRepository(db.Database)

	// External providers
	var mapsProvider maps.Provider
	if cfg.Maps.GoogleMaps.APIKey != "" {
		provider, err := maps.NewGoogleMapsProvider(cfg.Maps.GoogleMaps.APIKey)
		if err != nil {
			appLogger.WithError(err).Warn("Google Maps unavailable, routes and external search disabled")
		} else {
			mapsProvider = provider
		}
	}

	var smsProvider sms.Provider
	if cfg.SMS.Twilio.AccountSID != "" {
		smsProvider = sms.NewTwilioProvider(cfg.SMS.Twilio.AccountSID, cfg.SMS.Twilio.AuthToken, cfg.SMS.Twilio.FromNumber)
	}

	mapsBreaker := breaker.New("GoogleMaps", appLogger)
	smsBreaker := breaker.New("TwilioSMS", appLogger)

	// WebSocket hub
	wsHandler := websocket.NewHandler()

	// Services
	notificationService := services.NewNotificationService(smsProvider, smsBreaker, messageRepo, cfg.SMS.Twilio.FromNumber, appLogger)
	authService := services.NewAuthService(userRepo, cfg.Security.JWTSecret, appLogger)
	userService := services.NewUserService(userRepo, appLogger)
	ambulanceService := services.NewAmbulanceService(ambulanceRepo, hospitalRepo, userRepo, redisCache, wsHandler, appLogger)
	hospitalService := services.NewHospitalService(hospitalRepo, userRepo, ambulanceRepo, appLogger)
	emergencyService := services.NewEmergencyService(emergencyRepo, ambulanceRepo, hospitalRepo, userRepo, mapsProvider, mapsBreaker, notificationService, wsHandler, appLogger)
	paymentService := services.NewPaymentService(paymentRepo, emergencyRepo, appLogger)
	locatorService := services.NewLocatorService(hospitalRepo, mapsProvider, mapsBreaker, appLogger)

	// HTTP layer
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(appLogger))

	routes.Setup(router, &routes.Handlers{
		Auth:      handlers.NewAuthHandler(authService),
		User:      handlers.NewUserHandler(userService),
		Ambulance: handlers.NewAmbulanceHandler(ambulanceService),
		Hospital:  handlers.NewHospitalHandler(hospitalService, locatorService),
		Emergency: handlers.NewEmergencyHandler(emergencyService, notificationService),
		Payment:   handlers.NewPaymentHandler(paymentService),
		Health:    handlers.NewHealthHandler(db, redisCache),
		WebSocket: wsHandler,
	}, cfg.Security.JWTSecret)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	go func() {
		appLogger.Infof("Starting %s on port %d", cfg.App.Name, cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Errorf("Forced shutdown: %v", err)
	}
}
