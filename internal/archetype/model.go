package archetype

import (
	"fmt"
	"time"

	"example.com/ecotrack/internal/domain"
)

// Model is the persisted archetype artifact: scaler, centroids, and cluster
// descriptions fitted by one training run. Read-only after load; replaced
// wholesale by re-training, never updated incrementally.
type Model struct {
	Version      string
	TrainedAt    time.Time
	Scaler       *StandardScaler
	Centroids    [][]float64
	Descriptions map[int]domain.ClusterDescription
}

// Validate checks that the three artifact parts are mutually consistent and
// match the current feature schema.
func (m *Model) Validate() error {
	if m == nil {
		return domain.ErrModelUnavailable
	}
	dims := len(domain.FeatureNames)
	if m.Scaler == nil || len(m.Scaler.Mean) != dims || len(m.Scaler.Std) != dims {
		return fmt.Errorf("%w: scaler does not cover %d features", domain.ErrModelUnavailable, dims)
	}
	if len(m.Centroids) == 0 {
		return fmt.Errorf("%w: no centroids", domain.ErrModelUnavailable)
	}
	for c, centroid := range m.Centroids {
		if len(centroid) != dims {
			return fmt.Errorf("%w: centroid %d has %d dimensions, want %d", domain.ErrModelUnavailable, c, len(centroid), dims)
		}
		if _, ok := m.Descriptions[c]; !ok {
			return fmt.Errorf("%w: missing description for cluster %d", domain.ErrModelUnavailable, c)
		}
	}
	return nil
}

// Classify standardizes the vector with the training-time scaler and assigns
// it to the nearest centroid by Euclidean distance. Pure; safe for concurrent
// use against the read-only model.
func (m *Model) Classify(vector domain.FeatureVector) (domain.Assignment, error) {
	if m == nil {
		return domain.Assignment{}, domain.ErrModelUnavailable
	}
	if err := vector.Validate(); err != nil {
		return domain.Assignment{}, err
	}

	scaled, err := m.Scaler.Transform(vector.Values())
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("%w: %v", domain.ErrInvalidFeatureVector, err)
	}

	cluster := nearestCentroid(scaled, m.Centroids)
	description, ok := m.Descriptions[cluster]
	if !ok {
		return domain.Assignment{}, fmt.Errorf("%w: missing description for cluster %d", domain.ErrModelUnavailable, cluster)
	}

	return domain.Assignment{
		ClusterID:   cluster,
		Archetype:   description.Archetype,
		Description: description,
	}, nil
}
