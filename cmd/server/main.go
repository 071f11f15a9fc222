package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arcade-highscores/internal/config"
	"github.com/arcade-highscores/internal/domain"
	"github.com/arcade-highscores/internal/handler"
	"github.com/arcade-highscores/internal/kafka"
	"github.com/arcade-highscores/internal/postgres"
	"github.com/arcade-highscores/internal/redis"
	"github.com/arcade-highscores/internal/service"
	"github.com/arcade-highscores/internal/websocket"
	"github.com/arcade-highscores/internal/worker"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}

	// Build the fixed game catalog from config
	games := make([]domain.Game, 0, len(cfg.Games))
	for _, g := range cfg.Games {
		games = append(games, domain.Game{
			Slug:         g.Slug,
			Name:         g.Name,
			Year:         g.Year,
			Developer:    g.Developer,
			Genre:        g.Genre,
			Description:  g.Description,
			ScoreCeiling: g.ScoreCeiling,
		})
	}
	catalog := domain.NewCatalog(games)
	logger.Info("game catalog loaded", "games", catalog.Len())

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize PostgreSQL
	logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	repo, err := postgres.NewRepository(&cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to PostgreSQL")

	// Run database migrations and seed the catalog once
	if err := repo.RunMigrations(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	if err := repo.EnsureSeeded(ctx, catalog.Games()); err != nil {
		logger.Error("failed to seed game catalog", "error", err)
		os.Exit(1)
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket hub initialized")

	// Initialize the ledger service
	ledger := service.NewLedgerService(catalog, repo, &cfg.Ledger, logger)
	ledger.SetHub(wsHub)

	// Initialize the recent-feed cache
	var feed *redis.Feed
	if cfg.Redis.Enabled {
		logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
		feed, err = redis.NewFeed(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("failed to connect to Redis, continuing without feed cache", "error", err)
		} else {
			defer feed.Close()
			ledger.SetFeed(feed)
			logger.Info("connected to Redis")
		}
	}

	// Initialize retention trim worker
	retention := worker.NewRetentionWorker(repo, catalog, &cfg.Retention, logger)
	if cfg.Retention.Enabled {
		if err := retention.Start(ctx); err != nil {
			logger.Error("failed to start retention worker", "error", err)
			os.Exit(1)
		}
	}

	// Initialize Kafka consumer for cabinet score ingestion
	var kafkaConsumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka consumer",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topic,
		)
		kafkaConsumer, err = kafka.NewConsumer(&cfg.Kafka, ledger, logger)
		if err != nil {
			logger.Warn("failed to create Kafka consumer, continuing without Kafka", "error", err)
		} else {
			if err := kafkaConsumer.Start(); err != nil {
				logger.Warn("failed to start Kafka consumer, continuing without Kafka", "error", err)
				kafkaConsumer = nil
			} else {
				logger.Info("Kafka consumer started successfully")
			}
		}
	}

	// Initialize HTTP handler with WebSocket hub
	httpHandler := handler.NewHandler(ledger, wsHub, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop WebSocket hub
	wsHub.Stop()

	// Stop Kafka consumer
	if kafkaConsumer != nil {
		if err := kafkaConsumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}

	// Stop retention worker
	if err := retention.Stop(); err != nil {
		logger.Error("failed to stop retention worker", "error", err)
	}

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	logger.Info("server stopped")
}
