package archetype

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"example.com/ecotrack/internal/domain"
)

// Train fits the full artifact from training rows: scaler over the raw
// feature matrix, k-means over the standardized matrix, then per-cluster
// descriptions from the raw features of each cluster's members.
func Train(rows []TrainingRow, config KMeansConfig) (*Model, error) {
	km := NewKMeans(config)
	if len(rows) < km.config.Clusters {
		return nil, fmt.Errorf("%w: %d rows for %d clusters", domain.ErrTrainingDataInsufficient, len(rows), km.config.Clusters)
	}

	matrix := make([][]float64, len(rows))
	for i, row := range rows {
		if err := row.Features.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		matrix[i] = row.Features.Values()
	}

	scaler, err := FitScaler(matrix)
	if err != nil {
		return nil, err
	}
	scaled, err := scaler.TransformAll(matrix)
	if err != nil {
		return nil, err
	}

	result, err := km.Fit(scaled)
	if err != nil {
		return nil, err
	}

	model := &Model{
		Version:      uuid.NewString(),
		TrainedAt:    time.Now().UTC(),
		Scaler:       scaler,
		Centroids:    result.Centroids,
		Descriptions: describeClusters(rows, result.Labels, len(result.Centroids)),
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}
	return model, nil
}
