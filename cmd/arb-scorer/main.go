package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/XavierBriggs/fortuna/services/arb-scorer/internal/broadcaster"
	"github.com/XavierBriggs/fortuna/services/arb-scorer/internal/engine"
	"github.com/XavierBriggs/fortuna/services/arb-scorer/internal/handlers"
	"github.com/XavierBriggs/fortuna/services/arb-scorer/internal/publisher"
	"github.com/XavierBriggs/fortuna/services/arb-scorer/internal/scorer"
	"github.com/XavierBriggs/fortuna/services/arb-scorer/internal/supplier"
	"github.com/XavierBriggs/fortuna/services/arb-scorer/internal/writer"
	"github.com/XavierBriggs/fortuna/services/arb-scorer/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

func main() {
	fmt.Println("=== Fortuna Arb Scorer ===")

	// Load configuration
	config := loadConfig()

	if err := config.Scoring.Validate(); err != nil {
		fmt.Printf("❌ Invalid scoring configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Prediction source (sample mode when no model URL is configured)
	source := supplier.NewClient(config.ModelURL)
	if config.ModelURL == "" {
		fmt.Println("⚠️  MODEL_URL not set - using sample predictions")
	}

	// Optional Postgres sink
	var sink engine.OpportunitySink
	if config.PostgresDSN != "" {
		db, err := sql.Open("postgres", config.PostgresDSN)
		if err != nil {
			fmt.Printf("❌ Failed to open Postgres: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			fmt.Printf("❌ Failed to ping Postgres: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("✓ Connected to Postgres")
		sink = writer.NewOpportunityWriter(db)
	} else {
		fmt.Println("⚠️  POSTGRES_DSN not set - persistence disabled")
	}

	// Optional Redis stream publisher
	var streamPublisher engine.OpportunityPublisher
	if config.RedisURL != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     config.RedisURL,
			Password: config.RedisPassword,
			DB:       0,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			fmt.Printf("❌ Failed to connect to Redis: %v\n", err)
			os.Exit(1)
		}
		defer redisClient.Close()

		fmt.Println("✓ Connected to Redis")
		streamPublisher = publisher.NewStreamPublisher(redisClient)
	} else {
		fmt.Println("⚠️  REDIS_URL not set - stream publishing disabled")
	}

	// WebSocket hub
	hub := broadcaster.NewHub()
	go hub.Run(ctx)

	// Scoring engine
	scoringEngine := engine.NewEngine(source, sink, streamPublisher, hub, config.Scoring)

	// Create handler
	handler := handlers.NewHandler(scoringEngine, hub, ctx)

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Routes
	r.Get("/health", handler.HealthCheck)
	r.Get("/api/v1/arbitrage/opportunities", handler.GetOpportunities)
	r.Get("/api/v1/arbitrage/analysis", handler.GetAnalysis)
	r.Post("/api/v1/arbitrage/score", handler.ScorePayload)
	r.Post("/api/v1/arbitrage/execute", handler.Execute)
	r.Get("/ws", handler.HandleWebSocket)

	// Start server
	addr := fmt.Sprintf(":%d", config.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		fmt.Printf("✓ Arb Scorer started on port %d\n", config.Port)
		fmt.Printf("  Bankroll: $%.2f\n", config.Scoring.Bankroll)
		fmt.Printf("  Kelly Fraction: %.2f (1/%.0f Kelly)\n",
			config.Scoring.KellyFraction, 1.0/config.Scoring.KellyFraction)
		fmt.Printf("  Min Confidence: %.2f\n", config.Scoring.MinConfidence)
		fmt.Printf("  Min Profit Floor: $%.2f\n", config.Scoring.MinProfitFloor)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("❌ Server error: %v\n", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	fmt.Printf("\n⚠️  Received signal: %v\n", sig)
	fmt.Println("🛑 Shutting down gracefully...")

	// Stop accepting new connections, then stop the hub
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		fmt.Printf("❌ Shutdown error: %v\n", err)
		os.Exit(1)
	}
	cancel()

	fmt.Println("✓ Arb Scorer stopped")
}

// Config holds service configuration
type Config struct {
	Port          int
	ModelURL      string
	RedisURL      string
	RedisPassword string
	PostgresDSN   string
	Scoring       scorer.ScoringConfig
}

// loadConfig loads configuration from environment variables
func loadConfig() Config {
	defaults := scorer.DefaultConfig()

	scoring := scorer.ScoringConfig{
		MinConfidence:    getEnvFloat("ARB_MIN_CONFIDENCE", defaults.MinConfidence),
		Bankroll:         getEnvFloat("ARB_BANKROLL", defaults.Bankroll),
		KellyFraction:    getEnvFloat("ARB_KELLY_FRACTION", defaults.KellyFraction),
		BankrollCapPct:   getEnvFloat("ARB_BANKROLL_CAP_PCT", defaults.BankrollCapPct),
		MinProfitFloor:   getEnvFloat("ARB_MIN_PROFIT_FLOOR", defaults.MinProfitFloor),
		TriggerThreshold: getEnvFloat("ARB_TRIGGER_THRESHOLD", defaults.TriggerThreshold),
		Sensitivity: map[models.MarketType]float64{
			models.MarketTypeMoneyline:   getEnvFloat("ARB_SENSITIVITY_MONEYLINE", defaults.Sensitivity[models.MarketTypeMoneyline]),
			models.MarketTypeSpread:      getEnvFloat("ARB_SENSITIVITY_SPREAD", defaults.Sensitivity[models.MarketTypeSpread]),
			models.MarketTypePointsTotal: getEnvFloat("ARB_SENSITIVITY_POINTS_TOTAL", defaults.Sensitivity[models.MarketTypePointsTotal]),
		},
		ProfitCap:         getEnvFloat("ARB_PROFIT_CAP", defaults.ProfitCap),
		ArbRiskCap:        getEnvFloat("ARB_RISK_CAP", defaults.ArbRiskCap),
		ExposureCap:       getEnvFloat("ARB_EXPOSURE_CAP", defaults.ExposureCap),
		WeightConfidence:  getEnvFloat("ARB_WEIGHT_CONFIDENCE", defaults.WeightConfidence),
		WeightArbValidity: getEnvFloat("ARB_WEIGHT_ARB_VALIDITY", defaults.WeightArbValidity),
		WeightMktImpact:   getEnvFloat("ARB_WEIGHT_MKT_IMPACT", defaults.WeightMktImpact),
	}

	return Config{
		Port:          getEnvInt("ARB_SCORER_PORT", 8086),
		ModelURL:      os.Getenv("MODEL_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		Scoring:       scoring,
	}
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
