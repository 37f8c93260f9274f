package database

import (
	"context"
	"fmt"
	"time"

	"carbonaware/internal/metrics"
	"carbonaware/internal/models"
)

// StoreForecast writes the forecast header and its points in one transaction and
// returns the new forecast id. Optimal points are stored with optimal = TRUE.
func (db *DB) StoreForecast(ctx context.Context, f models.EmissionsForecast) (int64, error) {
	defer db.recordPoolStats()

	queryStart := time.Now()
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO forecasts (location, requested_at, generated_at, data_start_at, data_end_at, window_size) VALUES (?, ?, ?, ?, ?, ?)`,
		f.Location, nullTime(f.RequestedAt), nullTime(f.GeneratedAt), nullTime(f.DataStartAt), nullTime(f.DataEndAt), f.WindowSize)
	metrics.RecordDBQuery("INSERT", "forecasts", time.Since(queryStart), err)
	if err != nil {
		return 0, fmt.Errorf("failed to insert forecast for %s: %w", f.Location, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read forecast id: %w", err)
	}

	if len(f.ForecastData)+len(f.OptimalDataPoints) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO forecast_points (forecast_id, timestamp, duration_seconds, rating, optimal) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return 0, fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		pointsStart := time.Now()
		insert := func(points []models.EmissionsData, optimal bool) error {
			for _, p := range points {
				if _, err := stmt.ExecContext(ctx, id, p.Time.UTC(), int64(p.Duration/time.Second), p.Rating, optimal); err != nil {
					return fmt.Errorf("failed to insert forecast point at %s: %w", p.Time.Format(time.RFC3339), err)
				}
			}
			return nil
		}
		err = insert(f.ForecastData, false)
		if err == nil {
			err = insert(f.OptimalDataPoints, true)
		}
		metrics.RecordDBQuery("INSERT", "forecast_points", time.Since(pointsStart), err)
		if err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return id, nil
}

// StoreForecasts stores each forecast and returns how many were written.
func (db *DB) StoreForecasts(ctx context.Context, forecasts []models.EmissionsForecast) (int, error) {
	for i, f := range forecasts {
		if _, err := db.StoreForecast(ctx, f); err != nil {
			return i, err
		}
	}
	return len(forecasts), nil
}
