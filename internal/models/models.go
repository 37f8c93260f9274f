package models

import (
	"encoding/json"
	"time"
)

// EmissionsData is a single measured carbon-intensity reading for a location and time window
type EmissionsData struct {
	Location string        `json:"location"`
	Time     time.Time     `json:"time"`
	Duration time.Duration `json:"duration"`
	Rating   float64       `json:"rating"` // grams CO2 per kWh
}

// emissionsDataWire accepts both the aggregate shape (time/rating) and the
// forecast point shape (timestamp/value) the Web API emits.
type emissionsDataWire struct {
	Location  string     `json:"location"`
	Time      *time.Time `json:"time,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Duration  TimeSpan   `json:"duration"`
	Rating    *float64   `json:"rating,omitempty"`
	Value     *float64   `json:"value,omitempty"`
}

func (e *EmissionsData) UnmarshalJSON(data []byte) error {
	var w emissionsDataWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*e = EmissionsData{
		Location: w.Location,
		Duration: time.Duration(w.Duration),
	}
	switch {
	case w.Time != nil:
		e.Time = *w.Time
	case w.Timestamp != nil:
		e.Time = *w.Timestamp
	}
	switch {
	case w.Rating != nil:
		e.Rating = *w.Rating
	case w.Value != nil:
		e.Rating = *w.Value
	}
	return nil
}

func (e EmissionsData) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Location string    `json:"location"`
		Time     time.Time `json:"time"`
		Duration TimeSpan  `json:"duration"`
		Rating   float64   `json:"rating"`
	}{e.Location, e.Time, TimeSpan(e.Duration), e.Rating})
}

// EmissionsForecast is a predicted sequence of emissions data points generated at a point in time
type EmissionsForecast struct {
	RequestedAt       time.Time       `json:"requestedAt"`
	GeneratedAt       time.Time       `json:"generatedAt"`
	Location          string          `json:"location"`
	DataStartAt       time.Time       `json:"dataStartAt"`
	DataEndAt         time.Time       `json:"dataEndAt"`
	WindowSize        int             `json:"windowSize"` // minutes
	OptimalDataPoints []EmissionsData `json:"optimalDataPoints"`
	ForecastData      []EmissionsData `json:"forecastData"`
}

// UnmarshalJSON also accepts the older single "optimalDataPoint" object.
func (f *EmissionsForecast) UnmarshalJSON(data []byte) error {
	type plain EmissionsForecast
	aux := struct {
		*plain
		OptimalDataPoint *EmissionsData `json:"optimalDataPoint"`
	}{plain: (*plain)(f)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(f.OptimalDataPoints) == 0 && aux.OptimalDataPoint != nil {
		f.OptimalDataPoints = []EmissionsData{*aux.OptimalDataPoint}
	}
	return nil
}

// CarbonIntensity is the average carbon intensity over a time window for a location
type CarbonIntensity struct {
	Location  string    `json:"location"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Rating    float64   `json:"carbonIntensity"`
}

// UnmarshalJSON accepts the value under either "carbonIntensity" or "rating".
func (c *CarbonIntensity) UnmarshalJSON(data []byte) error {
	type plain CarbonIntensity
	aux := struct {
		*plain
		Rating *float64 `json:"rating"`
	}{plain: (*plain)(c)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Rating != nil && c.Rating == 0 {
		c.Rating = *aux.Rating
	}
	return nil
}

// ForecastBatchParameters describes one historical forecast request in a batch
type ForecastBatchParameters struct {
	RequestedAt time.Time
	Location    string
	DataStartAt time.Time
	DataEndAt   time.Time
	WindowSize  int // minutes, zero means the server default
}

func (p ForecastBatchParameters) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		RequestedAt *time.Time `json:"requestedAt,omitempty"`
		Location    string     `json:"location"`
		DataStartAt *time.Time `json:"dataStartAt,omitempty"`
		DataEndAt   *time.Time `json:"dataEndAt,omitempty"`
		WindowSize  int        `json:"windowSize,omitempty"`
	}{
		RequestedAt: timeOrNil(p.RequestedAt),
		Location:    p.Location,
		DataStartAt: timeOrNil(p.DataStartAt),
		DataEndAt:   timeOrNil(p.DataEndAt),
		WindowSize:  p.WindowSize,
	})
}

// IntensityBatchParameters describes one average carbon intensity request in a batch
type IntensityBatchParameters struct {
	Location  string    `json:"location"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// Location is a named geoposition known to the Web API
type Location struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Name      string   `json:"name,omitempty"`
}

func timeOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// StoredRating represents a single persisted rating
type StoredRating struct {
	ID        int64     `json:"id"`
	Location  string    `json:"location"`
	Timestamp time.Time `json:"timestamp"`
	Duration  int64     `json:"duration_seconds"`
	Rating    float64   `json:"rating"`
}

// Anomaly represents a detected anomaly in a location's ratings
type Anomaly struct {
	ID        int64     `json:"id"`
	Location  string    `json:"location"`
	Timestamp time.Time `json:"timestamp"`
	Rating    float64   `json:"rating"`
	ZScore    float64   `json:"z_score"`
	Severity  string    `json:"severity"` // "low", "medium", "high"
}

// AlarmSuggestion represents a suggested carbon-intensity alert rule
type AlarmSuggestion struct {
	ID           int64     `json:"id"`
	Location     string    `json:"location"`
	Threshold    float64   `json:"threshold"`
	Operator     string    `json:"operator"` // ">", "<"
	SuggestedAt  time.Time `json:"suggested_at"`
	Confidence   float64   `json:"confidence"` // 0-1
	Description  string    `json:"description"`
	AnomalyCount int       `json:"anomaly_count"`
}
