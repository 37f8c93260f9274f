package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"carbonaware/internal/metrics"

	"github.com/go-sql-driver/mysql"
)

// ErrDuplicateLocation is returned by InsertLocation when the name already exists
var ErrDuplicateLocation = errors.New("duplicate location")

// mysqlDuplicateEntry is ER_DUP_ENTRY
const mysqlDuplicateEntry = 1062

// Location represents a location in the database
type Location struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// InsertLocation inserts a new location into the database
func (db *DB) InsertLocation(ctx context.Context, name string, latitude, longitude *float64) error {
	query := `INSERT INTO locations (name, latitude, longitude) VALUES (?, ?, ?)`

	queryStart := time.Now()
	_, err := db.conn.ExecContext(ctx, query, name, nullFloat(latitude), nullFloat(longitude))
	metrics.RecordDBQuery("INSERT", "locations", time.Since(queryStart), err)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
			return ErrDuplicateLocation
		}
		return fmt.Errorf("failed to insert location: %w", err)
	}
	return nil
}

// GetAllLocations retrieves all locations from the database
func (db *DB) GetAllLocations(ctx context.Context) ([]Location, error) {
	query := `SELECT id, name, latitude, longitude FROM locations ORDER BY name`

	queryStart := time.Now()
	rows, err := db.conn.QueryContext(ctx, query)
	metrics.RecordDBQuery("SELECT", "locations", time.Since(queryStart), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	var locations []Location
	for rows.Next() {
		var (
			loc      Location
			lat, lon sql.NullFloat64
		)
		if err := rows.Scan(&loc.ID, &loc.Name, &lat, &lon); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		if lat.Valid {
			loc.Latitude = &lat.Float64
		}
		if lon.Valid {
			loc.Longitude = &lon.Float64
		}
		locations = append(locations, loc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating locations: %w", err)
	}

	return locations, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
