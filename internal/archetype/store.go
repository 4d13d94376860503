package archetype

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"example.com/ecotrack/internal/domain"
)

// Artifact file names. The three parts are written together and read together;
// a partial or mixed-version set is treated as no model at all.
const (
	scalerFile       = "scaler.json"
	centroidsFile    = "centroids.json"
	descriptionsFile = "cluster_descriptions.json"
)

type scalerDocument struct {
	ModelVersion string    `json:"model_version"`
	TrainedAt    time.Time `json:"trained_at"`
	FeatureNames []string  `json:"feature_names"`
	Mean         []float64 `json:"mean"`
	Std          []float64 `json:"std"`
}

type centroidsDocument struct {
	ModelVersion string      `json:"model_version"`
	TrainedAt    time.Time   `json:"trained_at"`
	Clusters     int         `json:"n_clusters"`
	Centroids    [][]float64 `json:"centroids"`
}

type descriptionsDocument struct {
	ModelVersion string                               `json:"model_version"`
	TrainedAt    time.Time                            `json:"trained_at"`
	Clusters     map[string]domain.ClusterDescription `json:"clusters"`
}

// FileStore persists the model artifact as three co-located JSON files.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Save writes all three artifact parts, stamped with the model version.
func (s *FileStore) Save(model *Model) error {
	if err := model.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	clusters := make(map[string]domain.ClusterDescription, len(model.Descriptions))
	for id, description := range model.Descriptions {
		clusters[strconv.Itoa(id)] = description
	}

	documents := map[string]interface{}{
		scalerFile: scalerDocument{
			ModelVersion: model.Version,
			TrainedAt:    model.TrainedAt,
			FeatureNames: domain.FeatureNames,
			Mean:         model.Scaler.Mean,
			Std:          model.Scaler.Std,
		},
		centroidsFile: centroidsDocument{
			ModelVersion: model.Version,
			TrainedAt:    model.TrainedAt,
			Clusters:     len(model.Centroids),
			Centroids:    model.Centroids,
		},
		descriptionsFile: descriptionsDocument{
			ModelVersion: model.Version,
			TrainedAt:    model.TrainedAt,
			Clusters:     clusters,
		},
	}

	for name, document := range documents {
		data, err := json.MarshalIndent(document, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

// Load reads the three artifact parts and rejects partial or mixed-version
// sets. All failure modes surface as ErrModelUnavailable so callers degrade
// the same way for a missing, corrupt, or half-replaced artifact.
func (s *FileStore) Load() (*Model, error) {
	var scaler scalerDocument
	if err := s.readJSON(scalerFile, &scaler); err != nil {
		return nil, err
	}
	var centroids centroidsDocument
	if err := s.readJSON(centroidsFile, &centroids); err != nil {
		return nil, err
	}
	var descriptions descriptionsDocument
	if err := s.readJSON(descriptionsFile, &descriptions); err != nil {
		return nil, err
	}

	if scaler.ModelVersion != centroids.ModelVersion || scaler.ModelVersion != descriptions.ModelVersion {
		return nil, fmt.Errorf("%w: artifact parts carry mixed versions", domain.ErrModelUnavailable)
	}
	if len(scaler.FeatureNames) != len(domain.FeatureNames) {
		return nil, fmt.Errorf("%w: artifact covers %d features, runtime expects %d", domain.ErrModelUnavailable, len(scaler.FeatureNames), len(domain.FeatureNames))
	}
	for i, name := range scaler.FeatureNames {
		if name != domain.FeatureNames[i] {
			return nil, fmt.Errorf("%w: feature order drift at %d (%s vs %s)", domain.ErrModelUnavailable, i, name, domain.FeatureNames[i])
		}
	}

	clusterMap := make(map[int]domain.ClusterDescription, len(descriptions.Clusters))
	for key, description := range descriptions.Clusters {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid cluster id %q", domain.ErrModelUnavailable, key)
		}
		clusterMap[id] = description
	}

	model := &Model{
		Version:      scaler.ModelVersion,
		TrainedAt:    scaler.TrainedAt,
		Scaler:       &StandardScaler{Mean: scaler.Mean, Std: scaler.Std},
		Centroids:    centroids.Centroids,
		Descriptions: clusterMap,
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}
	return model, nil
}

func (s *FileStore) readJSON(name string, target interface{}) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", domain.ErrModelUnavailable, name, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: parse %s: %v", domain.ErrModelUnavailable, name, err)
	}
	return nil
}
