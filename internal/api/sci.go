package api

import (
	"context"
	"errors"

	"carbonaware/internal/models"
)

const (
	sciScorePath          = "/sci-scores"
	marginalIntensityPath = "/sci-scores/marginal-carbon-intensity"
	opSciScore            = "create_sci_score"
	opMarginalIntensity   = "get_marginal_carbon_intensity"
)

// SciScore asks the service for the Software Carbon Intensity score of the input.
func (c *Client) SciScore(ctx context.Context, input models.SciScoreInput) (*models.SciScore, error) {
	return c.postSciScore(ctx, opSciScore, sciScorePath, input, func(s models.SciScore) bool {
		return s.SciScore == nil && s.EnergyValue == nil && s.MarginalCarbonIntensityValue == nil &&
			s.EmbodiedEmissionsValue == nil && s.FunctionalUnitValue == nil
	})
}

// MarginalCarbonIntensity returns the average carbon intensity of the input's
// location over its time interval, reported in MarginalCarbonIntensityValue.
func (c *Client) MarginalCarbonIntensity(ctx context.Context, input models.SciScoreInput) (*models.SciScore, error) {
	return c.postSciScore(ctx, opMarginalIntensity, marginalIntensityPath, input, func(s models.SciScore) bool {
		return s.MarginalCarbonIntensityValue == nil
	})
}

func (c *Client) postSciScore(ctx context.Context, operation, path string, input models.SciScoreInput, blank func(models.SciScore) bool) (*models.SciScore, error) {
	var score models.SciScore
	status, err := c.post(ctx, operation, path, input, &score)
	if errors.Is(err, errNoContent) {
		return nil, &APIError{Operation: operation, StatusCode: status, Message: "empty response"}
	}
	if err != nil {
		return nil, err
	}
	if blank(score) {
		return nil, &APIError{Operation: operation, StatusCode: status, Message: "failed to decode response", Err: errBlank}
	}
	return &score, nil
}
