package api

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"time"

	"carbonaware/internal/models"
)

const (
	bestEmissionsPath      = "/emissions/bylocations/best"
	emissionsByLocsPath    = "/emissions/bylocations"
	emissionsByLocPath     = "/emissions/bylocation"
	opBestEmissions        = "get_best_emissions_by_locations"
	opEmissionsByLocations = "get_emissions_by_locations"
	opEmissionsByLocation  = "get_emissions_by_location"
)

// EmissionsOption adjusts the query of the emissions operations.
type EmissionsOption func(url.Values)

// WithDurationMinutes sets durationMinutes, the length of each returned window.
// Values <= 0 leave the server default.
func WithDurationMinutes(minutes int) EmissionsOption {
	return func(q url.Values) {
		if minutes > 0 {
			q.Set("durationMinutes", strconv.Itoa(minutes))
		}
	}
}

// BestEmissionsByLocations returns the lowest-rating data point per location within [from, to].
func (c *Client) BestEmissionsByLocations(ctx context.Context, locations []string, from, to time.Time, opts ...EmissionsOption) ([]models.EmissionsData, error) {
	return c.listEmissions(ctx, opBestEmissions, bestEmissionsPath, emissionsQuery(locations, from, to, opts))
}

// EmissionsByLocations returns every data point for the locations within [from, to].
func (c *Client) EmissionsByLocations(ctx context.Context, locations []string, from, to time.Time, opts ...EmissionsOption) ([]models.EmissionsData, error) {
	return c.listEmissions(ctx, opEmissionsByLocations, emissionsByLocsPath, emissionsQuery(locations, from, to, opts))
}

// EmissionsByLocation returns every data point for a single location within [from, to].
func (c *Client) EmissionsByLocation(ctx context.Context, location string, from, to time.Time, opts ...EmissionsOption) ([]models.EmissionsData, error) {
	return c.listEmissions(ctx, opEmissionsByLocation, emissionsByLocPath, emissionsQuery([]string{location}, from, to, opts))
}

func (c *Client) listEmissions(ctx context.Context, operation, path string, query url.Values) ([]models.EmissionsData, error) {
	var data []models.EmissionsData
	status, err := c.get(ctx, operation, path, query, &data)
	if err != nil {
		if errors.Is(err, errNoContent) {
			return []models.EmissionsData{}, nil
		}
		return nil, err
	}
	if err := checkEntries(operation, status, data, blankEmissions); err != nil {
		return nil, err
	}
	if data == nil {
		data = []models.EmissionsData{}
	}
	return data, nil
}

func emissionsQuery(locations []string, from, to time.Time, opts []EmissionsOption) url.Values {
	q := url.Values{}
	for _, loc := range locations {
		q.Add("location", loc)
	}
	setTime(q, "time", from)
	setTime(q, "toTime", to)
	for _, opt := range opts {
		opt(q)
	}
	return q
}
