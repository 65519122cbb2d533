package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"role-reward-system/handlers"
	"role-reward-system/middleware"
	"role-reward-system/models"
	"role-reward-system/services"
	"role-reward-system/workers"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	// Discord credentials are required for everything; refuse to start
	// without them.
	for _, key := range []string{"DISCORD_CLIENT_ID", "DISCORD_CLIENT_SECRET", "DISCORD_BOT_TOKEN", "AO_SERVER_ID"} {
		if os.Getenv(key) == "" {
			log.Fatalf("❌ Missing Discord configuration: %s not set", key)
		}
	}

	app := fiber.New(fiber.Config{})

	app.Use(middleware.ServiceAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:8080")
		allowedOriginsEnv = "http://localhost:8080"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(allowedOriginsList, ","),
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       86400,
	}))

	db, err := openDatabase()
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(&models.ClaimRecord{}); err != nil {
		log.Fatal("failed to migrate database:", err)
	}
	log.Println("🗃️ Database initialized")

	catalog, err := services.LoadRewardCatalog()
	if err != nil {
		log.Fatal("failed to load reward catalog:", err)
	}
	if !catalog.HasAssetIDs() {
		log.Println("⚠️  Asset IDs not fully configured — transfers for those roles will fail")
	}

	discordClient := services.NewDiscordClient()

	var directory services.ProfileDirectory
	if bazarClient, err := services.NewBazarClient(); err != nil {
		log.Printf("❌ Profile directory initialization failed: %v", err)
		log.Println("   Profile lookups will report unavailable")
	} else {
		directory = bazarClient
		log.Println("✅ Profile directory client initialized")
	}
	profileService := services.NewProfileService(directory)

	transferState := services.InitTransferState()
	if transferState.Ready() {
		log.Println("✅ Transfer relay client initialized")
	} else {
		log.Printf("⚠️  Transfer path degraded: %s — claims will be rejected until fixed", transferState.Reason)
	}

	ledger := services.NewClaimLedger(db)
	claimService := services.NewClaimService(ledger, catalog, discordClient, transferState, profileService)

	handlers.SetupRewardRoutes(app, claimService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if transferState.Ready() {
		interval := 60 * time.Second
		if v := os.Getenv("CONFIRM_POLL_INTERVAL"); v != "" {
			if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
				interval = parsed
			} else {
				log.Printf("⚠️  Invalid CONFIRM_POLL_INTERVAL %q, using default 60s", v)
			}
		}
		confirmWorker := workers.NewConfirmWorker(ledger, transferState.Submitter)
		sched, err := confirmWorker.Start(ctx, interval)
		if err != nil {
			log.Fatal("failed to start confirmation worker:", err)
		}
		defer func() { _ = sched.Shutdown() }()
		log.Printf("✅ Confirmation backfill running (every %s)", interval)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("🚀 Server running on http://localhost:%s", port)
	log.Printf("📋 Health check: http://localhost:%s/api/health", port)
	log.Println("Available endpoints:")
	log.Println("  POST /api/auth/discord - Discord OAuth")
	log.Println("  GET  /api/lookup-profile/:address - Profile lookup")
	log.Println("  POST /api/verify-and-reward - Verify and reward")
	log.Println("  GET  /api/rewards/:discordUserId? - Claim history")

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

// openDatabase picks the driver from DATABASE_URL: a postgres DSN uses
// the Postgres driver, anything else is treated as an embedded SQLite
// path (default rewards.db next to the binary).
func openDatabase() (*gorm.DB, error) {
	dsn := os.Getenv("DATABASE_URL")
	cfg := &gorm.Config{TranslateError: true}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return gorm.Open(postgres.Open(dsn), cfg)
	}
	if dsn == "" {
		dsn = "./rewards.db"
	}
	return gorm.Open(sqlite.Open(dsn), cfg)
}
