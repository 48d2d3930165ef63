package main

import (
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/renewloop/ewaste-repair-api/config"
	"github.com/renewloop/ewaste-repair-api/controllers"
	"github.com/renewloop/ewaste-repair-api/middleware"
	"github.com/renewloop/ewaste-repair-api/models"
	"github.com/renewloop/ewaste-repair-api/realtime"
	"github.com/renewloop/ewaste-repair-api/services"
)

func main() {
	// Basic logging
	log.Println("Starting E-Waste Repair API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate database models
	db := config.GetDB()
	if err := db.AutoMigrate(
		&models.Profile{},
		&models.RepairRequest{},
		&models.RepairUpdate{},
		&models.Notification{},
		&models.RepairImage{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	// Initialize S3-backed image storage
	s3Service, err := services.InitS3Service()
	if err != nil {
		log.Fatalf("Failed to initialize S3 service: %v", err)
	}
	services.InitImageService(s3Service)

	// Change feed + lifecycle service
	feed := realtime.NewFeed(64)
	services.InitLifecycleService(db, feed)
	controllers.SetStreamFeed(feed)

	// Initialize Gin router
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	authRequired := middleware.EnsureValidToken(cfg)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Health check endpoint
		v1.GET("/health", healthCheck)

		// Database status endpoint
		v1.GET("/database/status", databaseStatus)

		// Profiles
		v1.POST("/profiles", authRequired, controllers.CreateProfile)
		v1.GET("/profiles/me", authRequired, controllers.GetMyProfile)
		v1.PUT("/profiles/me", authRequired, controllers.UpdateMyProfile)
		v1.GET("/leaderboard", authRequired, controllers.Leaderboard)

		// Repair requests
		v1.POST("/repairs", authRequired, controllers.CreateRepair)
		v1.GET("/repairs", authRequired, controllers.ListRepairs)
		v1.GET("/repairs/:id", authRequired, controllers.GetRepair)
		v1.POST("/repairs/:id/claim", authRequired, controllers.ClaimRepair)
		v1.POST("/repairs/:id/status", authRequired, controllers.AdvanceRepair)
		v1.POST("/repairs/:id/cancel", authRequired, controllers.CancelRepair)
		v1.POST("/repairs/:id/estimate", authRequired, controllers.SetEstimate)

		// Repair update threads
		v1.POST("/repairs/:id/updates", authRequired, controllers.PostUpdate)
		v1.GET("/repairs/:id/updates", authRequired, controllers.ListUpdates)

		// Device photos
		v1.POST("/repairs/:id/images", authRequired, controllers.UploadRepairImage)
		v1.GET("/repairs/:id/images", authRequired, controllers.ListRepairImages)

		// Persisted notifications
		v1.GET("/notifications", authRequired, controllers.ListNotifications)
		v1.POST("/notifications/:id/read", authRequired, controllers.MarkNotificationRead)

		// Realtime change feed
		v1.GET("/stream", authRequired, controllers.Stream)

		// Serverless-style functions
		v1.POST("/functions/deduct-points", authRequired, controllers.DeductPoints)
		v1.POST("/functions/notify-status-change", authRequired, controllers.NotifyStatusChange)
	}

	// Start server
	port := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "E-Waste Repair API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	// Get the underlying SQL database to check connection
	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	// Ping the database to verify connection
	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	// Get list of tables
	var tables []string
	if err := db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public'").Scan(&tables).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
