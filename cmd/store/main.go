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
	"carbonaware/internal/models"
	"carbonaware/internal/stream"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

const consumerGroup = "carbon_consumers"

// payloadStore is the write side of the database used by the consumer
type payloadStore interface {
	StoreEmissions(ctx context.Context, points []models.EmissionsData) (int, error)
	StoreForecasts(ctx context.Context, forecasts []models.EmissionsForecast) (int, error)
}

func main() {
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	logger.Init("store")

	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisCfg := cfg.RedisSettings()
	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})
	defer redisClient.Close()

	db, err := database.NewDB(ctx, config.GetDatabaseDSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	hostname, _ := os.Hostname()
	consumer := stream.NewConsumer(redisClient, redisCfg.Stream, consumerGroup, "store-"+hostname)
	if err := consumer.EnsureGroup(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to create consumer group")
	}

	log.Info().Str("stream", redisCfg.Stream).Msg("Store started, reading from Redis stream. Press Ctrl+C to stop...")
	if err := consumer.Run(ctx, storePayload(db)); err != nil {
		log.Fatal().Err(err).Msg("Store service failed")
	}
	log.Info().Msg("Store service stopped")
}

// storePayload writes measured points and forecasts carried by one message
func storePayload(db payloadStore) stream.Handler {
	return func(ctx context.Context, p stream.Payload) error {
		points, err := db.StoreEmissions(ctx, p.Emissions)
		if err != nil {
			return fmt.Errorf("failed to store emissions: %w", err)
		}

		forecasts, err := db.StoreForecasts(ctx, p.Forecasts)
		if err != nil {
			return fmt.Errorf("failed to store forecasts: %w", err)
		}

		log.Info().
			Str("location", p.Location).
			Str("type", p.Type).
			Int("points", points).
			Int("forecasts", forecasts).
			Msg("Stored payload")
		return nil
	}
}
