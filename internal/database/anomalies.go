package database

import (
	"context"
	"fmt"
	"time"

	"carbonaware/internal/metrics"
	"carbonaware/internal/models"
)

// StoreAnomalies inserts the anomalies in a single transaction
func (db *DB) StoreAnomalies(ctx context.Context, anomalies []models.Anomaly) error {
	if len(anomalies) == 0 {
		return nil
	}
	defer db.recordPoolStats()

	queryStart := time.Now()
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Will be ignored if committed

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO anomalies (location, timestamp, rating, z_score, severity) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, a := range anomalies {
		if _, err = stmt.ExecContext(ctx, a.Location, a.Timestamp.UTC(), a.Rating, a.ZScore, a.Severity); err != nil {
			metrics.RecordDBQuery("INSERT", "anomalies", time.Since(queryStart), err)
			return fmt.Errorf("failed to insert anomaly for %s at %s: %w", a.Location, a.Timestamp, err)
		}
	}

	err = tx.Commit()
	metrics.RecordDBQuery("INSERT", "anomalies", time.Since(queryStart), err)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// StoreAlarmSuggestion stores an alarm suggestion
func (db *DB) StoreAlarmSuggestion(ctx context.Context, s *models.AlarmSuggestion) error {
	query := `INSERT INTO alarm_suggestions (location, threshold, operator, suggested_at, confidence, description, anomaly_count)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryStart := time.Now()
	_, err := db.conn.ExecContext(ctx, query, s.Location, s.Threshold, s.Operator, s.SuggestedAt.UTC(),
		s.Confidence, s.Description, s.AnomalyCount)
	metrics.RecordDBQuery("INSERT", "alarm_suggestions", time.Since(queryStart), err)
	if err != nil {
		return fmt.Errorf("failed to store alarm suggestion for %s: %w", s.Location, err)
	}
	return nil
}

// GetAnomalies retrieves recent anomalies for a specific location
func (db *DB) GetAnomalies(ctx context.Context, location string, limit int) ([]models.Anomaly, error) {
	query := `SELECT id, location, timestamp, rating, z_score, severity FROM anomalies WHERE location = ? ORDER BY timestamp DESC LIMIT ?`

	queryStart := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, location, limit)
	metrics.RecordDBQuery("SELECT", "anomalies", time.Since(queryStart), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query anomalies: %w", err)
	}
	defer rows.Close()

	var anomalies []models.Anomaly
	for rows.Next() {
		var a models.Anomaly
		if err := rows.Scan(&a.ID, &a.Location, &a.Timestamp, &a.Rating, &a.ZScore, &a.Severity); err != nil {
			return nil, fmt.Errorf("failed to scan anomaly: %w", err)
		}
		anomalies = append(anomalies, a)
	}

	return anomalies, rows.Err()
}

// GetAlarmSuggestions retrieves alarm suggestions, optionally for one location
func (db *DB) GetAlarmSuggestions(ctx context.Context, location string, limit int) ([]models.AlarmSuggestion, error) {
	query := `SELECT id, location, threshold, operator, suggested_at, confidence, description, anomaly_count FROM alarm_suggestions`
	args := []interface{}{}
	if location != "" {
		query += ` WHERE location = ?`
		args = append(args, location)
	}
	query += ` ORDER BY confidence DESC, suggested_at DESC LIMIT ?`
	args = append(args, limit)

	queryStart := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.RecordDBQuery("SELECT", "alarm_suggestions", time.Since(queryStart), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query alarm suggestions: %w", err)
	}
	defer rows.Close()

	var suggestions []models.AlarmSuggestion
	for rows.Next() {
		var s models.AlarmSuggestion
		if err := rows.Scan(&s.ID, &s.Location, &s.Threshold, &s.Operator, &s.SuggestedAt, &s.Confidence, &s.Description, &s.AnomalyCount); err != nil {
			return nil, fmt.Errorf("failed to scan alarm suggestion: %w", err)
		}
		suggestions = append(suggestions, s)
	}

	return suggestions, rows.Err()
}
