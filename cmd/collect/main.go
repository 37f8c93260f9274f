package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"carbonaware/internal/api"
	"carbonaware/internal/config"
	"carbonaware/internal/database"
	"carbonaware/internal/logger"
	"carbonaware/internal/models"
	"carbonaware/internal/stream"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// emissionsAPI is the slice of the Web API the collector needs
type emissionsAPI interface {
	EmissionsByLocation(ctx context.Context, location string, from, to time.Time, opts ...api.EmissionsOption) ([]models.EmissionsData, error)
	CurrentForecast(ctx context.Context, locations []string, dataStart, dataEnd time.Time, windowMinutes int) ([]models.EmissionsForecast, error)
}

type publisher interface {
	Publish(ctx context.Context, payload stream.Payload) (string, error)
}

type collectOptions struct {
	historicalDays int
	windowMinutes  int
}

func main() {
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	logger.Init("collect")

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

	client, err := api.New(cfg.Service.BaseURL, api.WithHTTPTimeout(cfg.Timeout()))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Web API client")
	}

	// Locations without stored ratings get a historical backfill first
	latest, err := db.GetLatestTimestamps(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get latest stored ratings")
	}

	opts := collectOptions{
		historicalDays: cfg.Collector.HistoricalDays,
		windowMinutes:  cfg.Collector.WindowMinutes,
	}
	failed := collect(ctx, client, stream.NewPublisher(redisClient, redisCfg.Stream), cfg.Collector.Locations, latest, opts, time.Now())
	if failed > 0 {
		log.Error().Int("failed", failed).Msg("Data collection finished with errors")
		os.Exit(1)
	}
	log.Info().Msg("Data collection completed. Exiting")
}

// collect fetches and publishes every location concurrently and returns the
// number of locations that failed. latest holds the newest stored rating per location.
func collect(ctx context.Context, client emissionsAPI, pub publisher, locations []string, latest map[string]time.Time, opts collectOptions, now time.Time) int {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)

	for _, location := range locations {
		wg.Add(1)
		go func(loc string) {
			defer wg.Done()

			if err := collectLocation(ctx, client, pub, loc, latest[loc], opts, now); err != nil {
				log.Error().Err(err).Str("location", loc).Msg("Collection failed")
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(location)
	}

	wg.Wait()
	return failed
}

// collectLocation backfills a location with no stored ratings. Otherwise it
// fetches the ratings measured since the last stored one plus the current forecast.
func collectLocation(ctx context.Context, client emissionsAPI, pub publisher, location string, last time.Time, opts collectOptions, now time.Time) error {
	payload := stream.Payload{Location: location, FetchedAt: now.UTC()}
	oldest := now.AddDate(0, 0, -opts.historicalDays)

	if last.IsZero() {
		log.Info().Str("location", location).Msg("New location detected - fetching historical data")
		data, err := client.EmissionsByLocation(ctx, location, oldest, now)
		if err != nil {
			return fmt.Errorf("failed to fetch historical emissions: %w", err)
		}
		payload.Type = stream.TypeHistorical
		payload.Emissions = data
	} else {
		from := last
		if from.Before(oldest) {
			from = oldest
		}
		log.Info().Str("location", location).Time("since", from).Msg("Fetching recent emissions and current forecast")
		data, err := client.EmissionsByLocation(ctx, location, from, now)
		if err != nil {
			return fmt.Errorf("failed to fetch recent emissions: %w", err)
		}
		forecasts, err := client.CurrentForecast(ctx, []string{location}, time.Time{}, time.Time{}, opts.windowMinutes)
		if err != nil {
			return fmt.Errorf("failed to fetch current forecast: %w", err)
		}
		payload.Type = stream.TypeForecast
		payload.Emissions = data
		payload.Forecasts = forecasts
	}

	id, err := pub.Publish(ctx, payload)
	if err != nil {
		return err
	}
	log.Info().Str("location", location).Str("type", payload.Type).Str("id", id).Msg("Published to Redis")
	return nil
}
