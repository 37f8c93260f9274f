package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"carbonaware/internal/api"
	"carbonaware/internal/config"
	"carbonaware/internal/database"
	"carbonaware/internal/logger"
	"carbonaware/internal/models"

	"github.com/rs/zerolog/log"
)

type locationsAPI interface {
	Locations(ctx context.Context) (map[string]models.Location, error)
}

type locationStore interface {
	InsertLocation(ctx context.Context, name string, latitude, longitude *float64) error
}

func main() {
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	logger.Init("seed")

	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(ctx, config.GetDatabaseDSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	client, err := api.New(cfg.Service.BaseURL, api.WithHTTPTimeout(cfg.Timeout()))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Web API client")
	}

	inserted, skipped, err := seed(ctx, client, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Seeding failed")
	}
	log.Info().Int("inserted", inserted).Int("skipped", skipped).Msg("Seeding complete")
}

// seed copies the service's named locations into the locations table.
// Locations that already exist are skipped.
func seed(ctx context.Context, client locationsAPI, db locationStore) (inserted, skipped int, err error) {
	locations, err := client.Locations(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to fetch locations: %w", err)
	}

	names := make([]string, 0, len(locations))
	for name := range locations {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, key := range names {
		loc := locations[key]
		name := loc.Name
		if name == "" {
			name = key
		}

		if err := db.InsertLocation(ctx, name, loc.Latitude, loc.Longitude); err != nil {
			if errors.Is(err, database.ErrDuplicateLocation) {
				skipped++
				continue
			}
			return inserted, skipped, fmt.Errorf("failed to insert %s: %w", name, err)
		}
		inserted++
	}
	return inserted, skipped, nil
}
