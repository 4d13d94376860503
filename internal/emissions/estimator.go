package emissions

import (
	"context"

	"example.com/ecotrack/internal/domain"
)

// Estimation methods reported alongside each estimate.
const (
	MethodLocalFactor = "local_factor"
	MethodClimatiq    = "climatiq"
)

// CatalogEstimator prices activities from the local factor catalog only.
// It satisfies domain.EmissionEstimator and never fails.
type CatalogEstimator struct {
	catalog *Catalog
}

// NewCatalogEstimator wraps a catalog; a nil catalog means the built-in set.
func NewCatalogEstimator(catalog *Catalog) *CatalogEstimator {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &CatalogEstimator{catalog: catalog}
}

// Estimate multiplies the amount by the catalog factor, or by DefaultFactorKg
// when the activity has no catalog entry.
func (e *CatalogEstimator) Estimate(_ context.Context, category domain.Category, subtype string, amount float64, unit string) (float64, string, error) {
	factor, ok := e.catalog.Lookup(string(category), subtype, unit)
	if !ok {
		factor = DefaultFactorKg
	}
	return amount * factor, MethodLocalFactor, nil
}

// Catalog exposes the underlying factor table.
func (e *CatalogEstimator) Catalog() *Catalog {
	return e.catalog
}
