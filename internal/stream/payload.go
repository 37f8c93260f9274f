// Package stream moves fetched emissions data between the collector and the
// store over a Redis stream.
package stream

import (
	"time"

	"carbonaware/internal/models"
)

const (
	// TypeHistorical is the first backfill of a location
	TypeHistorical = "historical"
	// TypeForecast carries the ratings measured since the last fetch and the current forecast
	TypeForecast = "forecast"
)

// dataField is the stream entry field that carries the JSON payload
const dataField = "data"

// Payload is one collector fetch for a single location
type Payload struct {
	Location  string                     `json:"location"`
	Type      string                     `json:"type"`
	Emissions []models.EmissionsData     `json:"emissions,omitempty"`
	Forecasts []models.EmissionsForecast `json:"forecasts,omitempty"`
	FetchedAt time.Time                  `json:"fetchedAt"`
}
