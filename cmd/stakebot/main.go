package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cubedraft/stakebot/internal/api"
	"github.com/cubedraft/stakebot/internal/bot"
	"github.com/cubedraft/stakebot/internal/config"
	"github.com/cubedraft/stakebot/internal/db"
	"github.com/cubedraft/stakebot/internal/debt"
	"github.com/cubedraft/stakebot/internal/draft"
	"github.com/cubedraft/stakebot/internal/stakes"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Connect to database
	database, err := db.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.RunMigrations(context.Background()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Domain services
	calculator := stakes.NewCalculator(logger.With("component", "stakes"))
	drafts := draft.NewService(calculator, logger.With("component", "draft"))
	debts := debt.NewService(database, logger.With("component", "debt"))

	// Initialize Discord bot
	discordBot, err := bot.New(cfg.DiscordToken, database, drafts, debts)
	if err != nil {
		log.Fatalf("Failed to create discord bot: %v", err)
	}

	// Initialize API server
	apiServer := api.New(cfg, database)

	// Start Discord bot
	if err := discordBot.Start(); err != nil {
		log.Fatalf("Failed to start discord bot: %v", err)
	}
	defer discordBot.Stop()

	// Start API server
	go func() {
		if err := apiServer.Start(); err != nil {
			log.Printf("API server error: %v", err)
		}
	}()

	// Wait for signal to stop
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
}
