package database

import (
	"context"
	"fmt"
	"time"

	"carbonaware/internal/metrics"
	"carbonaware/internal/models"
)

const upsertEmissionSQL = `INSERT INTO emissions_data (location, timestamp, duration_seconds, rating) VALUES (?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE duration_seconds = VALUES(duration_seconds), rating = VALUES(rating)`

// StoreEmissions upserts measured points keyed by location and timestamp.
func (db *DB) StoreEmissions(ctx context.Context, points []models.EmissionsData) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}
	defer db.recordPoolStats()

	queryStart := time.Now()
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertEmissionSQL)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, p.Location, p.Time.UTC(), int64(p.Duration/time.Second), p.Rating); err != nil {
			metrics.RecordDBQuery("INSERT", "emissions_data", time.Since(queryStart), err)
			return 0, fmt.Errorf("failed to store rating for %s at %s: %w", p.Location, p.Time.Format(time.RFC3339), err)
		}
	}

	err = tx.Commit()
	metrics.RecordDBQuery("INSERT", "emissions_data", time.Since(queryStart), err)
	if err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(points), nil
}

// GetRatings returns the ratings stored for a location since the given time, newest first
func (db *DB) GetRatings(ctx context.Context, location string, since time.Time) ([]models.StoredRating, error) {
	query := `SELECT id, location, timestamp, duration_seconds, rating FROM emissions_data WHERE location = ? AND timestamp >= ? ORDER BY timestamp DESC`

	queryStart := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, location, since.UTC())
	metrics.RecordDBQuery("SELECT", "emissions_data", time.Since(queryStart), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings: %w", err)
	}
	defer rows.Close()

	var ratings []models.StoredRating
	for rows.Next() {
		var r models.StoredRating
		if err := rows.Scan(&r.ID, &r.Location, &r.Timestamp, &r.Duration, &r.Rating); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings = append(ratings, r)
	}

	return ratings, rows.Err()
}

// GetLocationsWithData returns a set of all locations that have ratings in the database
func (db *DB) GetLocationsWithData(ctx context.Context) (map[string]bool, error) {
	query := `SELECT DISTINCT location FROM emissions_data`

	queryStart := time.Now()
	rows, err := db.conn.QueryContext(ctx, query)
	metrics.RecordDBQuery("SELECT", "emissions_data", time.Since(queryStart), err)
	if err != nil {
		return nil, fmt.Errorf("failed to get locations with data: %w", err)
	}
	defer rows.Close()

	locations := make(map[string]bool)
	for rows.Next() {
		var location string
		if err := rows.Scan(&location); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations[location] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating locations: %w", err)
	}

	return locations, nil
}

// GetLatestTimestamps returns the newest stored rating time per location
func (db *DB) GetLatestTimestamps(ctx context.Context) (map[string]time.Time, error) {
	query := `SELECT location, MAX(timestamp) FROM emissions_data GROUP BY location`

	queryStart := time.Now()
	rows, err := db.conn.QueryContext(ctx, query)
	metrics.RecordDBQuery("SELECT", "emissions_data", time.Since(queryStart), err)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest timestamps: %w", err)
	}
	defer rows.Close()

	latest := make(map[string]time.Time)
	for rows.Next() {
		var (
			location string
			ts       time.Time
		)
		if err := rows.Scan(&location, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan latest timestamp: %w", err)
		}
		latest[location] = ts
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating latest timestamps: %w", err)
	}

	return latest, nil
}
