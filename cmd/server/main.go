package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/rotasul/transport-backend/internal/config"
	"github.com/rotasul/transport-backend/internal/database"
	"github.com/rotasul/transport-backend/internal/handlers"
	"github.com/rotasul/transport-backend/internal/middleware"
	"github.com/rotasul/transport-backend/internal/services"
	"github.com/rotasul/transport-backend/pkg/jwt"
	"github.com/sirupsen/logrus"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting RotaSul Transport Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize repositories
	reservationRepo := database.NewReservationRepository(db)
	tripRepo := database.NewTripRepository(db)
	seatRepo := database.NewSeatRepository(db)
	parameterRepo := database.NewParameterRepository(db)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	reservationService := services.NewReservationService(
		reservationRepo, tripRepo, seatRepo, parameterRepo,
		cfg.Defaults.ReservationExpirationMinutes, logger)
	paymentService := services.NewPaymentService(reservationRepo, logger)
	expirationService := services.NewExpirationService(reservationRepo, cfg.Defaults.ReservationExpirationMinutes, logger)
	lifecycleService := services.NewTripLifecycleService(tripRepo, cfg.Defaults.Timezone, cfg.Defaults.TripSafetyMarginHours, logger)
	completionService := services.NewCompletionService(reservationRepo, cfg.Defaults.Timezone, logger)
	schedulerService := services.NewSchedulerService(cfg.Scheduler, lifecycleService, expirationService, completionService, logger)

	// Start the lifecycle scheduler
	if cfg.Scheduler.Enabled {
		if err := schedulerService.Start(); err != nil {
			logger.Fatalf("Failed to start lifecycle scheduler: %v", err)
		}
	} else {
		logger.Warn("Lifecycle scheduler disabled by configuration")
	}

	logger.Info("Services initialized")

	// Initialize handlers
	reservationHandler := handlers.NewReservationHandler(reservationService)
	webhookHandler := handlers.NewPaymentWebhookHandler(paymentService, cfg.Webhook.Secret, logger)
	lifecycleHandler := handlers.NewLifecycleHandler(schedulerService)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Gateway callbacks authenticate with a shared secret header, not JWT
		v1.POST("/webhooks/payment", webhookHandler.Handle)

		authed := v1.Group("")
		authed.Use(middleware.AuthMiddleware(jwtService))
		{
			reservations := authed.Group("/reservations")
			{
				reservations.POST("", reservationHandler.Create)
				reservations.POST("/:id/cancel", reservationHandler.Cancel)
				reservations.POST("/:id/payment", reservationHandler.ConfirmPayment)
				reservations.POST("/:id/check-in", reservationHandler.CheckIn)
				reservations.POST("/:id/no-show", reservationHandler.MarkNoShow)
			}

			authed.GET("/tickets/:code", reservationHandler.GetByTicketCode)

			admin := authed.Group("/admin")
			{
				admin.POST("/lifecycle/run", lifecycleHandler.Run)
				admin.GET("/lifecycle/status", lifecycleHandler.Status)
			}
		}
	}

	// HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Stop the lifecycle scheduler, letting in-flight jobs finish
	if cfg.Scheduler.Enabled {
		schedulerService.Stop()
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
		}

		entry := logger.WithFields(fields)
		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
