package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"carbonaware/internal/config"
	"carbonaware/internal/database"
	"carbonaware/internal/detector"
	"carbonaware/internal/logger"
	"carbonaware/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const maxWorkers = 50

// detectStore is what a detection run reads from and writes to
type detectStore interface {
	detector.RatingSource
	StoreAnomalies(ctx context.Context, anomalies []models.Anomaly) error
	StoreAlarmSuggestion(ctx context.Context, s *models.AlarmSuggestion) error
}

// DetectionResult holds the results for a single location
type DetectionResult struct {
	Location       string
	Anomalies      []models.Anomaly
	Suggestions    []models.AlarmSuggestion
	Error          error
	ProcessingTime time.Duration
}

// runSummary totals one detection run
type runSummary struct {
	Locations   int
	Errors      int
	Anomalies   int
	Suggestions int
}

func main() {
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	logger.Init("detect")

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

	locations, err := knownLocations(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list locations")
	}
	if len(locations) == 0 {
		log.Fatal().Msg("No locations found in database. Run seed or collect first.")
	}

	ad := detector.NewAnomalyDetector(cfg.Detector.ZScoreThreshold, cfg.Detector.LookbackDays, cfg.Detector.RecentHours)
	as := detector.NewAlarmSuggester()

	// Run detection once; scheduling is external
	summary := runDetection(ctx, db, locations, ad, as)
	if summary.Errors > 0 {
		os.Exit(1)
	}
}

// knownLocations merges seeded locations with those that already have ratings
func knownLocations(ctx context.Context, db *database.DB) ([]string, error) {
	seeded, err := db.GetAllLocations(ctx)
	if err != nil {
		return nil, err
	}
	withData, err := db.GetLocationsWithData(ctx)
	if err != nil {
		return nil, err
	}

	for _, loc := range seeded {
		withData[loc.Name] = true
	}
	names := make([]string, 0, len(withData))
	for name := range withData {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func runDetection(ctx context.Context, store detectStore, locations []string, ad *detector.AnomalyDetector, as *detector.AlarmSuggester) runSummary {
	startTime := time.Now()
	runLog := log.With().Str("run_id", uuid.NewString()).Logger()
	runLog.Info().Int("locations", len(locations)).Msg("Running anomaly detection with worker pool")

	numWorkers := maxWorkers
	if len(locations) < numWorkers {
		numWorkers = len(locations)
	}

	jobs := make(chan string, len(locations))
	results := make(chan DetectionResult, len(locations))

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go worker(ctx, store, jobs, results, ad, as, &wg)
	}

	for _, location := range locations {
		jobs <- location
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	var summary runSummary
	for result := range results {
		summary.Locations++
		summary.record(ctx, store, result, runLog)
	}

	runLog.Info().
		Dur("duration", time.Since(startTime)).
		Int("locations", summary.Locations).
		Int("errors", summary.Errors).
		Int("anomalies", summary.Anomalies).
		Int("suggestions", summary.Suggestions).
		Int("workers", numWorkers).
		Msg("Detection complete")
	return summary
}

// record persists one location's results and updates the totals
func (s *runSummary) record(ctx context.Context, store detectStore, result DetectionResult, runLog zerolog.Logger) {
	locLog := runLog.With().Str("location", result.Location).Dur("took", result.ProcessingTime).Logger()

	if result.Error != nil {
		locLog.Error().Err(result.Error).Msg("Detection failed")
		s.Errors++
		return
	}
	if len(result.Anomalies) == 0 {
		locLog.Info().Msg("No anomalies")
		return
	}

	if err := store.StoreAnomalies(ctx, result.Anomalies); err != nil {
		locLog.Error().Err(err).Msg("Failed to store anomalies")
		s.Errors++
		return
	}
	s.Anomalies += len(result.Anomalies)

	for i := range result.Suggestions {
		if err := store.StoreAlarmSuggestion(ctx, &result.Suggestions[i]); err != nil {
			locLog.Error().Err(err).Msg("Failed to store alarm suggestion")
			continue
		}
		s.Suggestions++
	}

	locLog.Info().Int("anomalies", len(result.Anomalies)).Int("suggestions", len(result.Suggestions)).Msg("Location processed")
}

// worker processes locations from the jobs channel
func worker(ctx context.Context, store detectStore, jobs <-chan string, results chan<- DetectionResult,
	ad *detector.AnomalyDetector, as *detector.AlarmSuggester, wg *sync.WaitGroup) {
	defer wg.Done()

	for location := range jobs {
		startTime := time.Now()

		anomalies, err := ad.DetectAnomalies(ctx, store, location)
		if err != nil {
			results <- DetectionResult{Location: location, Error: err, ProcessingTime: time.Since(startTime)}
			continue
		}

		results <- DetectionResult{
			Location:       location,
			Anomalies:      anomalies,
			Suggestions:    as.SuggestAlarms(anomalies, location),
			ProcessingTime: time.Since(startTime),
		}
	}
}
