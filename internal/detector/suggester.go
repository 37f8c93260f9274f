package detector

import (
	"fmt"
	"math"
	"time"

	"carbonaware/internal/models"
)

// AlarmSuggester suggests carbon-intensity alarms from repeated spikes
type AlarmSuggester struct {
	minAnomaliesForSuggestion int
	now                       func() time.Time
}

// NewAlarmSuggester creates a new alarm suggester
func NewAlarmSuggester() *AlarmSuggester {
	return &AlarmSuggester{
		minAnomaliesForSuggestion: 3, // Suggest after 3 spikes
		now:                       time.Now,
	}
}

// SuggestAlarms proposes a "rating >" alarm for the location when enough
// anomalies sit above the baseline. Dips below the baseline never trigger one.
func (as *AlarmSuggester) SuggestAlarms(anomalies []models.Anomaly, location string) []models.AlarmSuggestion {
	if len(anomalies) == 0 {
		return nil
	}

	var spikes []float64
	for _, a := range anomalies {
		if a.ZScore > 0 {
			spikes = append(spikes, a.Rating)
		}
	}
	if len(spikes) < as.minAnomaliesForSuggestion {
		return nil
	}

	mean := calculateMean(spikes)
	stdDev := calculateStdDev(spikes, mean)
	threshold := math.Round(mean - stdDev)

	return []models.AlarmSuggestion{{
		Location:     location,
		Threshold:    threshold,
		Operator:     ">",
		SuggestedAt:  as.now(),
		Confidence:   as.calculateConfidence(spikes, threshold),
		Description:  fmt.Sprintf("Carbon intensity in %s repeatedly spiking above %.0f gCO2/kWh", location, threshold),
		AnomalyCount: len(spikes),
	}}
}

// calculateConfidence is the share of spikes that would have fired the alarm
func (as *AlarmSuggester) calculateConfidence(values []float64, threshold float64) float64 {
	if len(values) == 0 {
		return 0
	}

	triggeredCount := 0
	for _, v := range values {
		if v > threshold {
			triggeredCount++
		}
	}

	return float64(triggeredCount) / float64(len(values))
}
