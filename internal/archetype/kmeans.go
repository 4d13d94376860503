package archetype

import (
	"fmt"
	"math"
	"math/rand"

	"example.com/ecotrack/internal/domain"
)

// KMeansConfig holds the clustering hyperparameters.
type KMeansConfig struct {
	// Clusters is the number of centroids to fit (default 6).
	Clusters int
	// MaxIterations caps Lloyd iterations per restart (default 300).
	MaxIterations int
	// Restarts is the number of independent initializations; the lowest
	// inertia result wins (default 10).
	Restarts int
	// Tolerance stops iteration once the largest centroid shift falls below
	// it (default 1e-4).
	Tolerance float64
	// Seed makes runs reproducible (default 42). Restart r derives its RNG
	// from Seed+r, so a fixed seed always yields the same partition.
	Seed int64
}

// DefaultKMeansConfig returns the training defaults.
func DefaultKMeansConfig() KMeansConfig {
	return KMeansConfig{
		Clusters:      6,
		MaxIterations: 300,
		Restarts:      10,
		Tolerance:     1e-4,
		Seed:          42,
	}
}

// KMeans partitions points into K clusters by iteratively assigning each point
// to its nearest centroid (Euclidean) and moving centroids to the mean of
// their members. Initial centroids are chosen with k-means++ weighting.
//
// Reference: Arthur & Vassilvitskii, "k-means++: The Advantages of Careful
// Seeding" (SODA 2007).
type KMeans struct {
	config KMeansConfig
}

// NewKMeans creates a KMeans instance, applying defaults for zero values.
func NewKMeans(config KMeansConfig) *KMeans {
	defaults := DefaultKMeansConfig()
	if config.Clusters <= 0 {
		config.Clusters = defaults.Clusters
	}
	if config.MaxIterations <= 0 {
		config.MaxIterations = defaults.MaxIterations
	}
	if config.Restarts <= 0 {
		config.Restarts = defaults.Restarts
	}
	if config.Tolerance <= 0 {
		config.Tolerance = defaults.Tolerance
	}
	if config.Seed == 0 {
		config.Seed = defaults.Seed
	}
	return &KMeans{config: config}
}

// KMeansResult is the fitted partition.
type KMeansResult struct {
	// Centroids are the K cluster centers in the input (standardized) space.
	Centroids [][]float64
	// Labels assigns each input row to a centroid index.
	Labels []int
	// Inertia is the sum of squared distances of rows to their centroid.
	Inertia float64
}

// Fit clusters the rows. Fewer rows than clusters is a training-fatal error.
func (k *KMeans) Fit(rows [][]float64) (*KMeansResult, error) {
	if len(rows) < k.config.Clusters {
		return nil, fmt.Errorf("%w: %d rows for %d clusters", domain.ErrTrainingDataInsufficient, len(rows), k.config.Clusters)
	}
	dims := len(rows[0])
	for i, row := range rows {
		if len(row) != dims {
			return nil, fmt.Errorf("kmeans: row %d has width %d, want %d", i, len(row), dims)
		}
	}

	var best *KMeansResult
	for restart := 0; restart < k.config.Restarts; restart++ {
		rng := rand.New(rand.NewSource(k.config.Seed + int64(restart)))
		result := k.run(rows, rng)
		if best == nil || result.Inertia < best.Inertia {
			best = result
		}
	}
	return best, nil
}

func (k *KMeans) run(rows [][]float64, rng *rand.Rand) *KMeansResult {
	centroids := k.seedCentroids(rows, rng)
	labels := make([]int, len(rows))

	for iter := 0; iter < k.config.MaxIterations; iter++ {
		for i, row := range rows {
			labels[i] = nearestCentroid(row, centroids)
		}

		next := k.recompute(rows, labels, centroids)

		shift := 0.0
		for c := range centroids {
			if d := math.Sqrt(squaredDistance(centroids[c], next[c])); d > shift {
				shift = d
			}
		}
		centroids = next
		if shift < k.config.Tolerance {
			break
		}
	}

	for i, row := range rows {
		labels[i] = nearestCentroid(row, centroids)
	}

	inertia := 0.0
	for i, row := range rows {
		inertia += squaredDistance(row, centroids[labels[i]])
	}

	return &KMeansResult{Centroids: centroids, Labels: labels, Inertia: inertia}
}

// seedCentroids picks initial centers with k-means++: the first uniformly, the
// rest proportional to squared distance from the nearest chosen center.
func (k *KMeans) seedCentroids(rows [][]float64, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k.config.Clusters)
	centroids = append(centroids, cloneRow(rows[rng.Intn(len(rows))]))

	distances := make([]float64, len(rows))
	for len(centroids) < k.config.Clusters {
		total := 0.0
		for i, row := range rows {
			d := squaredDistance(row, centroids[0])
			for _, c := range centroids[1:] {
				if alt := squaredDistance(row, c); alt < d {
					d = alt
				}
			}
			distances[i] = d
			total += d
		}

		if total == 0 {
			// All points coincide with chosen centers; fall back to uniform.
			centroids = append(centroids, cloneRow(rows[rng.Intn(len(rows))]))
			continue
		}

		target := rng.Float64() * total
		cumulative := 0.0
		picked := len(rows) - 1
		for i, d := range distances {
			cumulative += d
			if cumulative >= target {
				picked = i
				break
			}
		}
		centroids = append(centroids, cloneRow(rows[picked]))
	}
	return centroids
}

// recompute moves each centroid to the mean of its members. An empty cluster
// adopts the row farthest from its current centroid so K never shrinks.
func (k *KMeans) recompute(rows [][]float64, labels []int, current [][]float64) [][]float64 {
	dims := len(rows[0])
	next := make([][]float64, k.config.Clusters)
	counts := make([]int, k.config.Clusters)
	for c := range next {
		next[c] = make([]float64, dims)
	}

	for i, row := range rows {
		c := labels[i]
		counts[c]++
		for j, value := range row {
			next[c][j] += value
		}
	}

	for c := range next {
		if counts[c] == 0 {
			next[c] = cloneRow(rows[farthestRow(rows, labels, current)])
			continue
		}
		for j := range next[c] {
			next[c][j] /= float64(counts[c])
		}
	}
	return next
}

func farthestRow(rows [][]float64, labels []int, centroids [][]float64) int {
	worst, worstDist := 0, -1.0
	for i, row := range rows {
		if d := squaredDistance(row, centroids[labels[i]]); d > worstDist {
			worst, worstDist = i, d
		}
	}
	return worst
}

func nearestCentroid(row []float64, centroids [][]float64) int {
	nearest, nearestDist := 0, math.MaxFloat64
	for c, centroid := range centroids {
		if d := squaredDistance(row, centroid); d < nearestDist {
			nearest, nearestDist = c, d
		}
	}
	return nearest
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

func cloneRow(row []float64) []float64 {
	out := make([]float64, len(row))
	copy(out, row)
	return out
}
