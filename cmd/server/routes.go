package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"medica-system/config"
	"medica-system/internal/database"
	"medica-system/internal/pharmacy"
	"medica-system/internal/server/handlers"
	"medica-system/internal/server/middleware"
	"medica-system/internal/utils"
)

func main() {
	cfg := config.LoadConfig()
	utils.SetSecret(cfg.Auth.JWTSecret)

	db, err := database.NewConnection(cfg.DB.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	if os.Getenv("SEED_DB") == "true" {
		if err := database.Seed(db); err != nil {
			log.Printf("Warning: seeding failed: %v", err)
		}
	}

	redisClient := config.NewRedisClient(cfg.Redis)

	notifier := pharmacy.NewDBNotifier(db)
	audit := pharmacy.NewDBAuditLog(db)
	dispatcher := pharmacy.NewDispatcher(notifier, audit)
	engine := pharmacy.NewEngine(db, redisClient, dispatcher)

	pharmacyHandler := handlers.NewPharmacyHTTPHandler(engine, notifier)

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.RateLimit("60-M"))

	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth())
	{
		medicines := protected.Group("/pharmacy/medicines")
		{
			medicines.GET("", pharmacyHandler.ListMedicines)
			medicines.GET("/:id", pharmacyHandler.GetMedicine)
			medicines.POST("/:id/restock", pharmacyHandler.RestockMedicine)
		}

		orders := protected.Group("/pharmacy")
		{
			orders.POST("/requests", pharmacyHandler.SubmitRequest)
			orders.GET("/orders", pharmacyHandler.ListOrders)
			orders.POST("/orders/:id/approve", pharmacyHandler.ApproveOrder)
			orders.POST("/orders/:id/reject", pharmacyHandler.RejectOrder)
			orders.POST("/orders/:id/fulfill", pharmacyHandler.FulfillOrder)
		}

		protected.GET("/notifications", pharmacyHandler.ListNotifications)
	}

	r.GET("/health", healthCheckHandler(db, redisClient))

	port := ":" + cfg.Server.Port
	log.Printf("Starting server on port %s", port)
	if err := r.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func healthCheckHandler(db *gorm.DB, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		status := "healthy"
		httpStatus := http.StatusOK
		unavailable := []string{}

		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			unavailable = append(unavailable, "database")
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			unavailable = append(unavailable, "redis")
		}
		if len(unavailable) > 0 {
			status = "degraded"
			httpStatus = http.StatusPartialContent
		}

		c.JSON(httpStatus, gin.H{
			"status":               status,
			"message":              "Server is running",
			"unavailable_services": unavailable,
			"timestamp":            time.Now(),
		})
	}
}
