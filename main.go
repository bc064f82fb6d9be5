package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-auction/internal/auction"
	"ms-auction/internal/auction/auction_api"
	auction_db "ms-auction/internal/auction/db"
	"ms-auction/internal/auth"
	"ms-auction/internal/bids"
	"ms-auction/internal/bids/bid_api"
	bid_db "ms-auction/internal/bids/db"
	bidredis "ms-auction/internal/bids/redis"
	"ms-auction/internal/catalog"
	"ms-auction/internal/config"
	"ms-auction/internal/database/migrations"
	"ms-auction/internal/enrollment"
	enrollment_db "ms-auction/internal/enrollment/db"
	"ms-auction/internal/enrollment/enrollment_api"
	fee_db "ms-auction/internal/fees/db"
	"ms-auction/internal/fees/fee_api"
	"ms-auction/internal/kafka"
	"ms-auction/internal/logger"
	"ms-auction/internal/payments"
	"ms-auction/internal/payments/payment_api"
	"ms-auction/internal/settlement"
	settlement_db "ms-auction/internal/settlement/db"
)

func verifyConnections(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*bun.DB, *redis.Client) {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		logger.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			logger.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		logger.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)
	logger.Info("DATABASE", "PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	logger.Info("DATABASE", fmt.Sprintf("Redis connection successful to %s", cfg.Redis.Addr))

	return bunDB, redisClient
}

func main() {
	logger := logger.NewLogger()
	defer logger.Close()

	logger.Info("APP", "Starting Auction Service initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	logger.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(ctx, cfg, logger)
	defer bunDB.Close()
	defer redisClient.Close()

	migrationRunner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
	if err := migrationRunner.MigrateUp(); err != nil {
		logger.Warn("DATABASE", fmt.Sprintf("Migrations not applied: %v", err))
	} else if version, _, err := migrationRunner.Version(); err == nil {
		logger.Info("DATABASE", fmt.Sprintf("Schema at version %d", version))
	}

	var kafkaProducer *kafka.Producer
	if cfg.Kafka.Enabled {
		kafkaProducer = kafka.NewProducer(cfg.Kafka.Brokers)
		logger.Info("KAFKA", "Kafka producer initialized successfully")

		requiredTopics := []string{
			cfg.Kafka.Topics.BidAccepted,
			cfg.Kafka.Topics.SessionExtended,
			cfg.Kafka.Topics.LotSettled,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
			logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			logger.Info("KAFKA", "Required topics ensured successfully")
		}
	} else {
		logger.Warn("KAFKA", "Kafka disabled, events will not be published")
	}

	payments.InitStripe()

	sessionStore := &auction_db.DB{Bun: bunDB}
	bidStore := &bid_db.DB{Bun: bunDB}
	enrollmentStore := &enrollment_db.DB{Bun: bunDB}
	settlementStore := &settlement_db.DB{Bun: bunDB}
	feeStore := &fee_db.DB{Bun: bunDB}

	catalogClient := catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.Timeout)
	throttle := bidredis.NewThrottle(redisClient, cfg.Bidding.RateLimit, cfg.Bidding.RateWindow)

	var publisher bids.KafkaPublisher
	if kafkaProducer != nil {
		publisher = kafkaProducer
	}

	settlementEngine := settlement.NewEngine(sessionStore, settlementStore, feeStore, catalogClient, publisher, logger)
	sessionService := auction.NewSessionService(sessionStore, settlementEngine, catalogClient, logger)
	bidEngine := bids.NewEngine(sessionStore, bidStore, enrollmentStore, throttle, publisher, logger)
	enrollmentService := enrollment.NewService(enrollmentStore, sessionStore, logger)
	paymentService := payments.NewService(settlementStore, logger)

	sessionHandler := auction_api.NewHandler(sessionService)
	bidHandler := bid_api.NewHandler(bidEngine)
	enrollmentHandler := enrollment_api.NewHandler(enrollmentService)
	paymentHandler := payment_api.NewHandler(paymentService)
	feeHandler := fee_api.NewHandler(feeStore)

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware())
		logger.Info("AUTH", "JWT middleware applied to protected API routes")

		r.Route("/api/auction", func(r chi.Router) {
			r.Route("/sessions", func(r chi.Router) {
				r.Post("/", sessionHandler.CreateSession)
				r.Get("/{session_id}", sessionHandler.GetSession)
				r.Post("/{session_id}/lots", sessionHandler.AddLot)
				r.Get("/{session_id}/lots", sessionHandler.ListLots)
				r.Post("/{session_id}/schedule", sessionHandler.Schedule)
				r.Post("/{session_id}/open", sessionHandler.Open)
				r.Post("/{session_id}/pause", sessionHandler.Pause)
				r.Post("/{session_id}/resume", sessionHandler.Resume)
				r.Post("/{session_id}/close", sessionHandler.Close)
				r.Post("/{session_id}/cancel", sessionHandler.Cancel)
				r.Post("/{session_id}/settle", sessionHandler.Settle)

				r.Post("/{session_id}/lots/{lot_id}/bids", bidHandler.PlaceBid)
				r.Get("/{session_id}/lots/{lot_id}/bids", bidHandler.GetBidHistory)
				r.Delete("/{session_id}/lots/{lot_id}/bids/{bid_id}", bidHandler.CancelBid)
				r.Get("/{session_id}/lots/{lot_id}/highest", bidHandler.GetHighestBid)

				r.Post("/{session_id}/enrollments", enrollmentHandler.Request)
				r.Post("/{session_id}/enrollments/{user_id}/approve", enrollmentHandler.Approve)
				r.Post("/{session_id}/enrollments/{user_id}/reject", enrollmentHandler.Reject)
			})
			logger.Info("ROUTER", "Session, bid and enrollment routes registered under /api/auction/sessions")

			r.Post("/payments/{payment_id}/checkout", paymentHandler.CreateCheckout)
			logger.Info("ROUTER", "Payment checkout route registered under /api/auction/payments")

			r.Get("/fees", feeHandler.GetActiveFee)
			r.Post("/fees", feeHandler.CreateFee)
			logger.Info("ROUTER", "Fee configuration routes registered under /api/auction/fees")
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("Auction Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server shutdown failed: %v", err))
	}

	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			logger.Error("KAFKA", fmt.Sprintf("Failed to close Kafka producer: %v", err))
		}
	}

	logger.Info("APP", "Auction Service stopped")
}
