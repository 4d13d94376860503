// Package archetype implements the user-archetype model lifecycle: feature
// standardization, k-means clustering, cluster labeling, and the persisted
// model artifact used for inference.
package archetype

import (
	"fmt"
	"math"
)

// StandardScaler holds per-feature mean and standard deviation fitted at
// training time. The identical transform is applied at inference; the scaler
// is never refit outside a training run.
type StandardScaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// FitScaler computes per-feature mean and population standard deviation over
// the rows. Zero-variance features get scale 1.0 so standardization never
// divides by zero.
func FitScaler(rows [][]float64) (*StandardScaler, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("fit scaler: no rows")
	}

	dims := len(rows[0])
	mean := make([]float64, dims)
	std := make([]float64, dims)

	for _, row := range rows {
		if len(row) != dims {
			return nil, fmt.Errorf("fit scaler: inconsistent row width %d, want %d", len(row), dims)
		}
		for j, value := range row {
			mean[j] += value
		}
	}
	n := float64(len(rows))
	for j := range mean {
		mean[j] /= n
	}

	for _, row := range rows {
		for j, value := range row {
			diff := value - mean[j]
			std[j] += diff * diff
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / n)
		if std[j] == 0 {
			std[j] = 1.0
		}
	}

	return &StandardScaler{Mean: mean, Std: std}, nil
}

// Transform standardizes a single row using the fitted statistics.
func (s *StandardScaler) Transform(row []float64) ([]float64, error) {
	if len(row) != len(s.Mean) {
		return nil, fmt.Errorf("scaler expects %d features, got %d", len(s.Mean), len(row))
	}
	out := make([]float64, len(row))
	for j, value := range row {
		out[j] = (value - s.Mean[j]) / s.Std[j]
	}
	return out, nil
}

// TransformAll standardizes every row.
func (s *StandardScaler) TransformAll(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		scaled, err := s.Transform(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = scaled
	}
	return out, nil
}
