package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"carbonaware/internal/models"
)

const (
	currentForecastPath = "/emissions/forecasts/current"
	forecastBatchPath   = "/emissions/forecasts/batch"
	opCurrentForecast   = "get_current_forecast"
	opForecastBatch     = "batch_forecast"
)

// CurrentForecast fetches the most recent forecast for each location, scoped to
// [dataStart, dataEnd]. Zero times and windowMinutes <= 0 leave the server defaults.
func (c *Client) CurrentForecast(ctx context.Context, locations []string, dataStart, dataEnd time.Time, windowMinutes int) ([]models.EmissionsForecast, error) {
	q := url.Values{}
	for _, loc := range locations {
		q.Add("location", loc)
	}
	setTime(q, "dataStartAt", dataStart)
	setTime(q, "dataEndAt", dataEnd)
	if windowMinutes > 0 {
		q.Set("windowSize", strconv.Itoa(windowMinutes))
	}

	var forecasts []models.EmissionsForecast
	status, err := c.get(ctx, opCurrentForecast, currentForecastPath, q, &forecasts)
	if err != nil {
		if errors.Is(err, errNoContent) {
			return []models.EmissionsForecast{}, nil
		}
		return nil, err
	}
	if err := checkEntries(opCurrentForecast, status, forecasts, blankForecast); err != nil {
		return nil, err
	}
	if forecasts == nil {
		forecasts = []models.EmissionsForecast{}
	}
	return forecasts, nil
}

// ForecastBatch fetches historical forecasts. The i-th result answers the i-th request.
func (c *Client) ForecastBatch(ctx context.Context, requests []models.ForecastBatchParameters) ([]models.EmissionsForecast, error) {
	if requests == nil {
		requests = []models.ForecastBatchParameters{}
	}

	var forecasts []models.EmissionsForecast
	status, err := c.post(ctx, opForecastBatch, forecastBatchPath, requests, &forecasts)
	if err != nil && !errors.Is(err, errNoContent) {
		return nil, err
	}
	if len(forecasts) != len(requests) {
		return nil, &APIError{
			Operation:  opForecastBatch,
			StatusCode: status,
			Message:    fmt.Sprintf("expected %d forecasts, got %d", len(requests), len(forecasts)),
		}
	}
	if err := checkEntries(opForecastBatch, status, forecasts, blankForecast); err != nil {
		return nil, err
	}
	if forecasts == nil {
		forecasts = []models.EmissionsForecast{}
	}
	return forecasts, nil
}
