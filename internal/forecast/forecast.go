// Package forecast projects a user's daily emission series forward. The
// projection is deliberately simple: a flat line at the recent average with a
// fixed uncertainty band. It exists so the predict endpoint works without a
// fitted time-series model.
package forecast

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"example.com/ecotrack/internal/domain"
)

// ErrInsufficientHistory is returned when the series is too short to forecast.
var ErrInsufficientHistory = errors.New("insufficient history for forecasting")

// MinHistoryDays is the minimum number of daily points required.
const MinHistoryDays = 7

// Trend labels for the forecast response.
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// Point is one forecasted day with its uncertainty band.
type Point struct {
	Date         time.Time `json:"date"`
	PredictedKg  float64   `json:"predicted_emissions_kg"`
	LowerBoundKg float64   `json:"lower_bound_kg"`
	UpperBoundKg float64   `json:"upper_bound_kg"`
}

// Result is the forecast payload.
type Result struct {
	Predictions     []Point `json:"predictions"`
	NextTotalKg     float64 `json:"next_days_total_kg"`
	Trend           string  `json:"trend"`
	RecentAverageKg float64 `json:"recent_average_kg"`
}

// Forecast projects daysAhead daily points past the end of the series.
//
// The prediction is the trailing 7-day average with a +-20% band floored at
// zero. The trend compares the trailing 7-day average against the 7 days
// before it; with fewer than 14 points the trend is reported stable.
func Forecast(series []domain.DailyTotal, daysAhead int) (*Result, error) {
	if len(series) < MinHistoryDays {
		return nil, fmt.Errorf("%w: %d days of history, need %d", ErrInsufficientHistory, len(series), MinHistoryDays)
	}
	if daysAhead <= 0 {
		daysAhead = 7
	}

	ordered := make([]domain.DailyTotal, len(series))
	copy(ordered, series)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Day.Before(ordered[j].Day)
	})

	recentAvg := windowAverage(ordered[len(ordered)-7:])
	lastDay := ordered[len(ordered)-1].Day

	predictions := make([]Point, 0, daysAhead)
	for i := 1; i <= daysAhead; i++ {
		predictions = append(predictions, Point{
			Date:         lastDay.Add(time.Duration(i) * 24 * time.Hour),
			PredictedKg:  floorZero(recentAvg),
			LowerBoundKg: floorZero(recentAvg * 0.8),
			UpperBoundKg: floorZero(recentAvg * 1.2),
		})
	}

	trend := TrendStable
	if len(ordered) >= 2*MinHistoryDays {
		previousAvg := windowAverage(ordered[len(ordered)-14 : len(ordered)-7])
		switch {
		case recentAvg > previousAvg*1.1:
			trend = TrendIncreasing
		case recentAvg < previousAvg*0.9:
			trend = TrendDecreasing
		}
	}

	return &Result{
		Predictions:     predictions,
		NextTotalKg:     floorZero(recentAvg) * float64(daysAhead),
		Trend:           trend,
		RecentAverageKg: recentAvg,
	}, nil
}

func windowAverage(window []domain.DailyTotal) float64 {
	sum := 0.0
	for _, d := range window {
		sum += d.TotalKg
	}
	return sum / float64(len(window))
}

func floorZero(value float64) float64 {
	if value < 0 {
		return 0
	}
	return value
}
