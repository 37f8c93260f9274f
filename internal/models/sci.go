package models

import (
	"fmt"
	"time"
)

// SciScoreInput is the request body of the SCI score endpoints
type SciScoreInput struct {
	Location     LocationInput `json:"location"`
	TimeInterval string        `json:"timeInterval"` // ISO 8601 "start/end"
}

// LocationInput names a location either by cloud region or by coordinates.
// LocationType is "CloudProvider" or "Geoposition".
type LocationInput struct {
	LocationType  string   `json:"locationType"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	CloudProvider string   `json:"cloudProvider,omitempty"`
	RegionName    string   `json:"regionName,omitempty"`
}

// SciScore is a Software Carbon Intensity result. Fields the server did not
// compute stay nil.
type SciScore struct {
	SciScore                     *float64 `json:"sciScore,omitempty"`
	EnergyValue                  *float64 `json:"energyValue,omitempty"`
	MarginalCarbonIntensityValue *float64 `json:"marginalCarbonIntensityValue,omitempty"`
	EmbodiedEmissionsValue       *float64 `json:"embodiedEmissionsValue,omitempty"`
	FunctionalUnitValue          *int64   `json:"functionalUnitValue,omitempty"`
}

// TimeInterval formats [start, end] as an ISO 8601 interval.
func TimeInterval(start, end time.Time) string {
	return fmt.Sprintf("%s/%s", start.Format(time.RFC3339), end.Format(time.RFC3339))
}
