package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/BillyJoe121/zenzspa-project-sub002/database"
	"github.com/BillyJoe121/zenzspa-project-sub002/idempotency"
	"github.com/BillyJoe121/zenzspa-project-sub002/middlewares"
	"github.com/BillyJoe121/zenzspa-project-sub002/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// envInt reads an int env var with a default fallback.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func main() {
	// ---- Database
	database.Connect()
	database.AutoMigrate()
	if err := database.Migrate(); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	// ---- Idempotency coordinator + retention sweeper
	store := idempotency.NewGormStore(database.DB)
	lockTimeout := time.Duration(envInt("IDEMPOTENCY_LOCK_TIMEOUT_SECONDS", 60)) * time.Second
	coord := idempotency.NewCoordinator(store, lockTimeout)

	sweeper := idempotency.NewSweeper(store,
		time.Duration(envInt("IDEMPOTENCY_COMPLETED_TTL_HOURS", 168))*time.Hour,
		time.Duration(envInt("IDEMPOTENCY_PENDING_TTL_HOURS", 24))*time.Hour,
		time.Duration(envInt("IDEMPOTENCY_SWEEP_INTERVAL_MINUTES", 60))*time.Minute,
	)
	go sweeper.Run(context.Background())

	// ---- Limits (configurable via env)
	// Fiber default BodyLimit is 4 * 1024 * 1024 bytes if unset (per docs).
	// We allow overriding with BODY_LIMIT_BYTES or BODY_LIMIT_MB.
	bodyLimitBytes := envInt("BODY_LIMIT_BYTES", 0)
	if bodyLimitBytes <= 0 {
		bodyLimitBytes = envInt("BODY_LIMIT_MB", 4) * 1024 * 1024
	}

	// ---- Fiber app with global error handler + body limit
	app := fiber.New(fiber.Config{
		ErrorHandler: middlewares.ErrorHandler,
		BodyLimit:    bodyLimitBytes,
	})

	// ---- CORS
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: false, // using Bearer tokens, not cookies
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
	}))

	// ---- Global rate limiter (applies to all routes; tune via env)
	rlMax := envInt("RATE_LIMIT_MAX", 60)                                            // default 60 reqs
	rlWindow := time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second // default 60s window
	app.Use(limiter.New(limiter.Config{
		Max:        rlMax,
		Expiration: rlWindow,
		// Default KeyGenerator = client IP; default 429 handler is fine.
	}))

	// ---- Routes
	routes.Register(app, coord)

	// ---- Start
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := app.Listen(":" + port); err != nil {
		log.Fatal(err)
	}
}
