package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"carbonaware/internal/config"
	"carbonaware/internal/database"
	"carbonaware/internal/logger"
	"carbonaware/internal/server"

	"github.com/rs/zerolog/log"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	logger.Init("server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(ctx, config.GetDatabaseDSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	addr := ":" + getEnv("PORT", "8081")
	if err := server.NewServer(db, log.Logger).Start(ctx, addr); err != nil {
		log.Fatal().Err(err).Msg("HTTP server failed")
	}
	log.Info().Msg("HTTP server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
