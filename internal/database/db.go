package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"carbonaware/internal/metrics"

	_ "github.com/go-sql-driver/mysql"
)

// DB represents the database connection
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection and initializes the schema
// dsn format: "username:password@tcp(host:port)/dbname?parseTime=true"
// example: "carbon:carbon@tcp(localhost:3306)/carbonaware?parseTime=true"
func NewDB(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn}

	if err := db.initSchema(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// schema is applied statement by statement; the MySQL driver rejects multi-statement Exec.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS locations (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		latitude DOUBLE NULL,
		longitude DOUBLE NULL,
		UNIQUE KEY uq_locations_name (name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS emissions_data (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		location VARCHAR(255) NOT NULL,
		timestamp DATETIME(6) NOT NULL,
		duration_seconds BIGINT NOT NULL DEFAULT 0,
		rating DOUBLE NOT NULL,
		UNIQUE KEY uq_emissions_location_ts (location, timestamp),
		INDEX idx_emissions_timestamp (timestamp)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS forecasts (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		location VARCHAR(255) NOT NULL,
		requested_at DATETIME(6) NULL,
		generated_at DATETIME(6) NULL,
		data_start_at DATETIME(6) NULL,
		data_end_at DATETIME(6) NULL,
		window_size INT NOT NULL DEFAULT 0,
		INDEX idx_forecasts_location (location),
		INDEX idx_forecasts_generated (generated_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS forecast_points (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		forecast_id BIGINT NOT NULL,
		timestamp DATETIME(6) NOT NULL,
		duration_seconds BIGINT NOT NULL DEFAULT 0,
		rating DOUBLE NOT NULL,
		optimal BOOLEAN NOT NULL DEFAULT FALSE,
		INDEX idx_forecast_points_forecast (forecast_id),
		CONSTRAINT fk_forecast_points_forecast FOREIGN KEY (forecast_id) REFERENCES forecasts (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS anomalies (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		location VARCHAR(255) NOT NULL,
		timestamp DATETIME(6) NOT NULL,
		rating DOUBLE NOT NULL,
		z_score DOUBLE NOT NULL,
		severity VARCHAR(50) NOT NULL,
		INDEX idx_anomalies_timestamp (timestamp),
		INDEX idx_anomalies_location (location)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS alarm_suggestions (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		location VARCHAR(255) NOT NULL,
		threshold DOUBLE NOT NULL,
		operator VARCHAR(10) NOT NULL,
		suggested_at DATETIME(6) NOT NULL,
		confidence DOUBLE NOT NULL,
		description TEXT NOT NULL,
		anomaly_count INT NOT NULL,
		INDEX idx_alarm_suggestions_location (location)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

func (db *DB) initSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

func (db *DB) recordPoolStats() {
	stats := db.conn.Stats()
	metrics.UpdateDBConnectionStats(stats.OpenConnections, stats.InUse, stats.Idle)
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
