package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/dineflow/customer-gateway/config"
	"github.com/dineflow/customer-gateway/middlewares"
	"github.com/dineflow/customer-gateway/models"
	"github.com/dineflow/customer-gateway/push"
	"github.com/dineflow/customer-gateway/router"
	"github.com/dineflow/customer-gateway/services"
	"github.com/dineflow/customer-gateway/store"
	"github.com/dineflow/customer-gateway/upstream"
	"github.com/dineflow/customer-gateway/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading: %v", err)
	}

	utils.InitLogger()

	db, err := config.InitDB()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.StateEntry{}); err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	settings := config.Load()

	st := store.New(db)
	client := upstream.NewClient(settings.PlatformAPIURL)
	registry := services.NewRegistry()
	resolver := services.NewResolver(st, client)
	waitlist := services.NewWaitlist(st, client)
	flow := services.NewFlow(st, resolver, client)
	hub := push.NewHub()

	consumer := push.NewConsumer(settings.PlatformWSURL, st, registry, resolver, waitlist, hub)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go consumer.Run(ctx)

	monitor := services.NewFallbackMonitor(st, resolver, registry, settings.FallbackPollInterval)
	monitor.Connected = consumer.Connected
	monitor.OnDecision = hub.SendDecision
	monitor.Start()
	defer monitor.Stop()

	// 50 requests per second per IP across the whole surface.
	rateLimiter := middlewares.NewRateLimiter(50, 1)

	r := router.SetupRouter(router.Deps{
		DB:       db,
		Store:    st,
		Client:   client,
		Resolver: resolver,
		Waitlist: waitlist,
		Flow:     flow,
		Registry: registry,
		Hub:      hub,
	})
	r.Use(rateLimiter.RateLimit())

	utils.InfoLogger.Printf("Listening on port %s", settings.Port)
	if err := r.Run(":" + settings.Port); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}
