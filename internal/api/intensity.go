package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"carbonaware/internal/models"
)

const (
	averageIntensityPath      = "/emissions/average-carbon-intensity"
	averageIntensityBatchPath = "/emissions/average-carbon-intensity/batch"
	opAverageIntensity        = "get_average_carbon_intensity"
	opAverageIntensityBatch   = "get_average_carbon_intensity_batch"
)

// AverageCarbonIntensity returns the measured average carbon intensity for a location over [start, end].
func (c *Client) AverageCarbonIntensity(ctx context.Context, location string, start, end time.Time) (*models.CarbonIntensity, error) {
	q := url.Values{}
	q.Set("location", location)
	setTime(q, "startTime", start)
	setTime(q, "endTime", end)

	var intensity models.CarbonIntensity
	status, err := c.get(ctx, opAverageIntensity, averageIntensityPath, q, &intensity)
	if errors.Is(err, errNoContent) {
		return nil, &APIError{Operation: opAverageIntensity, StatusCode: status, Message: "empty response"}
	}
	if err != nil {
		return nil, err
	}
	if blankIntensity(intensity) {
		return nil, &APIError{Operation: opAverageIntensity, StatusCode: status, Message: "failed to decode response", Err: errBlank}
	}
	return &intensity, nil
}

// AverageCarbonIntensityBatch computes one average per request. The i-th result answers the i-th request.
func (c *Client) AverageCarbonIntensityBatch(ctx context.Context, requests []models.IntensityBatchParameters) ([]models.CarbonIntensity, error) {
	if requests == nil {
		requests = []models.IntensityBatchParameters{}
	}

	var intensities []models.CarbonIntensity
	status, err := c.post(ctx, opAverageIntensityBatch, averageIntensityBatchPath, requests, &intensities)
	if err != nil && !errors.Is(err, errNoContent) {
		return nil, err
	}
	if len(intensities) != len(requests) {
		return nil, &APIError{
			Operation:  opAverageIntensityBatch,
			StatusCode: status,
			Message:    fmt.Sprintf("expected %d results, got %d", len(requests), len(intensities)),
		}
	}
	if err := checkEntries(opAverageIntensityBatch, status, intensities, blankIntensity); err != nil {
		return nil, err
	}
	if intensities == nil {
		intensities = []models.CarbonIntensity{}
	}
	return intensities, nil
}
