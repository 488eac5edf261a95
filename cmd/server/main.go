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

	"abride/internal/config"
	"abride/internal/handlers"
	"abride/internal/middleware"
	"abride/internal/repositories/mongodb"
	"abride/internal/services"
	"abride/pkg/cache"
	"abride/pkg/database"
	"abride/pkg/logger"
	"abride/pkg/push"
	"abride/pkg/sms"
	"abride/pkg/websocket"
	"abride/routes"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:  logger.LogLevel(cfg.App.LogLevel),
		Format: cfg.App.LogFormat,
		Output: "stdout",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Storage
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

	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
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
		appLogger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisCache.Close()

	// Repositories
	mongoDatabase := db.Database
	tripRepo := mongodb.NewTripRepository(mongoDatabase)
	bookingRepo := mongodb.NewBookingRepository(mongoDatabase)
	vehicleRepo := mongodb.NewVehicleRepository(mongoDatabase)
	profileRepo := mongodb.NewProfileRepository(mongoDatabase)
	deletionRepo := mongodb.NewTripDeletionRepository(mongoDatabase)
	notificationRepo := mongodb.NewNotificationRepository(mongoDatabase)

	// Delivery channels
	wsHandler := websocket.NewHandler()

	var smsProvider sms.SMSProvider
	switch cfg.SMS.Provider {
	case "aws_sns":
		smsProvider, err = sms.NewAWSSNSProvider(cfg.SMS.AWSRegion)
		if err != nil {
			appLogger.Fatalf("Failed to initialize SNS: %v", err)
		}
	case "twilio":
		smsProvider = sms.NewTwilioProvider(cfg.SMS.TwilioAccountSID, cfg.SMS.TwilioAuthToken, cfg.SMS.TwilioFromNumber)
	default:
		appLogger.Warnf("No SMS provider configured, critical SMS disabled")
	}

	var pushProviders []push.PushProvider
	if cfg.Push.Enabled {
		if cfg.Push.FCMCredentialsFile != "" {
			fcm, err := push.NewFCMProvider(cfg.Push.FCMCredentialsFile)
			if err != nil {
				appLogger.Fatalf("Failed to initialize FCM: %v", err)
			}
			pushProviders = append(pushProviders, fcm)
		}
		if cfg.Push.APNSKeyFile != "" {
			apns, err := push.NewAPNSProvider(cfg.Push.APNSKeyFile, cfg.Push.APNSKeyID, cfg.Push.APNSTeamID, cfg.Push.APNSTopic, cfg.Push.APNSProduction)
			if err != nil {
				appLogger.Fatalf("Failed to initialize APNS: %v", err)
			}
			pushProviders = append(pushProviders, apns)
		}
	}

	// Services
	notificationService := services.NewNotificationService(notificationRepo, profileRepo, pushProviders, smsProvider, wsHandler, appLogger)
	seatLedger := services.NewSeatLedger(appLogger)
	reconciler := services.NewReconcileService(tripRepo, bookingRepo, seatLedger, redisCache, wsHandler, appLogger, services.ReconcileOptions{
		WatchedInterval: cfg.Reconcile.DashboardInterval,
		SweepInterval:   cfg.Reconcile.ListingInterval,
	})
	bookingService := services.NewBookingService(bookingRepo, tripRepo, profileRepo, seatLedger, db, notificationService, reconciler, redisCache, appLogger, cfg.Reconcile.ActionCooldown)
	tripService := services.NewTripService(tripRepo, bookingRepo, vehicleRepo, profileRepo, deletionRepo, db, notificationService, reconciler, appLogger, services.TripServiceConfig{
		Timezone:       cfg.App.Timezone,
		DeletionWindow: cfg.Reconcile.DeletionWindow,
		DeletionLimit:  cfg.Reconcile.DeletionLimit,
	})
	vehicleService := services.NewVehicleService(vehicleRepo, profileRepo, tripService, appLogger)
	profileService := services.NewProfileService(profileRepo, notificationService, appLogger)

	// Background reconciliation
	reconcileCtx, stopReconcile := context.WithCancel(context.Background())
	defer stopReconcile()
	go reconciler.Run(reconcileCtx)

	// HTTP layer
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(appLogger))

	routes.SetupRoutes(router, &routes.Handlers{
		Trips:         handlers.NewTripHandler(tripService, cfg.App.Timezone),
		Bookings:      handlers.NewBookingHandler(bookingService),
		Vehicles:      handlers.NewVehicleHandler(vehicleService),
		Profiles:      handlers.NewProfileHandler(profileService),
		Notifications: handlers.NewNotificationHandler(notificationService),
		WebSocket:     wsHandler,
	}, cfg.Security.JWTSecret)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": cfg.App.Version,
		})
	})

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler: router,
	}

	go func() {
		appLogger.Infof("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down")
	stopReconcile()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Errorf("Forced shutdown: %v", err)
	}
}
