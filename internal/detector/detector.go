package detector

import (
	"context"
	"fmt"
	"math"
	"time"

	"carbonaware/internal/models"

	"github.com/rs/zerolog/log"
)

// minSamples is the smallest baseline worth computing statistics over
const minSamples = 3

// RatingSource supplies stored ratings for a location, newest first
type RatingSource interface {
	GetRatings(ctx context.Context, location string, since time.Time) ([]models.StoredRating, error)
}

// AnomalyDetector flags recent carbon-intensity ratings that stray from the
// location's baseline over the lookback window
type AnomalyDetector struct {
	zScoreThreshold float64 // Standard deviations from mean to flag as anomaly
	lookback        time.Duration
	recent          time.Duration
	now             func() time.Time
}

// NewAnomalyDetector creates a new anomaly detector
func NewAnomalyDetector(zScoreThreshold float64, lookbackDays, recentHours int) *AnomalyDetector {
	return &AnomalyDetector{
		zScoreThreshold: zScoreThreshold,
		lookback:        time.Duration(lookbackDays) * 24 * time.Hour,
		recent:          time.Duration(recentHours) * time.Hour,
		now:             time.Now,
	}
}

// DetectAnomalies compares the ratings of the recent window against the mean and
// standard deviation of the whole lookback window.
func (ad *AnomalyDetector) DetectAnomalies(ctx context.Context, src RatingSource, location string) ([]models.Anomaly, error) {
	now := ad.now()
	ratings, err := src.GetRatings(ctx, location, now.Add(-ad.lookback))
	if err != nil {
		return nil, fmt.Errorf("failed to get ratings for %s: %w", location, err)
	}

	if len(ratings) < minSamples {
		log.Debug().Str("location", location).Int("samples", len(ratings)).Msg("Not enough data for statistical analysis")
		return nil, nil
	}

	values := make([]float64, len(ratings))
	for i, r := range ratings {
		values[i] = r.Rating
	}
	mean := calculateMean(values)
	stdDev := calculateStdDev(values, mean)

	logger := log.With().Str("location", location).Logger()
	logger.Debug().Float64("mean", mean).Float64("std_dev", stdDev).Int("samples", len(values)).Msg("Baseline computed")

	if stdDev == 0 {
		logger.Debug().Msg("No variation in data, skipping")
		return nil, nil
	}

	recentSince := now.Add(-ad.recent)
	var anomalies []models.Anomaly
	for _, r := range ratings {
		if r.Timestamp.Before(recentSince) {
			continue
		}
		zScore := CalculateZScore(r.Rating, mean, stdDev)
		if !ad.IsOutlier(zScore) {
			continue
		}
		anomalies = append(anomalies, models.Anomaly{
			Location:  location,
			Timestamp: r.Timestamp,
			Rating:    r.Rating,
			ZScore:    zScore,
			Severity:  ad.severity(zScore),
		})
	}

	logger.Info().Int("anomalies", len(anomalies)).Msg("Detection finished")
	return anomalies, nil
}

// IsOutlier reports whether the z-score exceeds the configured threshold
func (ad *AnomalyDetector) IsOutlier(zScore float64) bool {
	return math.Abs(zScore) > ad.zScoreThreshold
}

// severity buckets a z-score relative to the threshold
func (ad *AnomalyDetector) severity(zScore float64) string {
	abs := math.Abs(zScore)
	switch {
	case abs > ad.zScoreThreshold*1.5:
		return "high"
	case abs > ad.zScoreThreshold*1.25:
		return "medium"
	}
	return "low"
}

// CalculateZScore calculates the Z-score for a value given mean and standard deviation
func CalculateZScore(value, mean, stdDev float64) float64 {
	if stdDev == 0 {
		return 0
	}
	return (value - mean) / stdDev
}

// calculateMean calculates the mean of values
func calculateMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// calculateStdDev calculates the sample standard deviation of values
func calculateStdDev(values []float64, mean float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}
