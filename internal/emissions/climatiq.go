package emissions

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"example.com/ecotrack/internal/climatiq"
	"example.com/ecotrack/internal/domain"
	"example.com/ecotrack/internal/observability"
)

// ClimatiqClient is the slice of the API client the estimator needs.
type ClimatiqClient interface {
	Estimate(ctx context.Context, activityID string, amount float64, unit string) (float64, error)
}

// ClimatiqEstimator prices mapped activities through the Climatiq API and
// falls back to the local catalog for everything else. A circuit breaker
// keeps a misbehaving upstream from slowing down activity logging.
type ClimatiqEstimator struct {
	client   ClimatiqClient
	fallback *CatalogEstimator
	breaker  *gobreaker.CircuitBreaker[float64]
	logger   zerolog.Logger
}

// ClimatiqOption configures the estimator.
type ClimatiqOption func(*ClimatiqEstimator)

// WithCatalog overrides the fallback factor catalog.
func WithCatalog(catalog *Catalog) ClimatiqOption {
	return func(e *ClimatiqEstimator) {
		e.fallback = NewCatalogEstimator(catalog)
	}
}

// WithLogger sets the estimator logger.
func WithLogger(logger zerolog.Logger) ClimatiqOption {
	return func(e *ClimatiqEstimator) {
		e.logger = logger
	}
}

// NewClimatiqEstimator wires the API client with a circuit breaker and the
// built-in catalog as fallback.
func NewClimatiqEstimator(client ClimatiqClient, opts ...ClimatiqOption) *ClimatiqEstimator {
	e := &ClimatiqEstimator{
		client:   client,
		fallback: NewCatalogEstimator(nil),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.breaker = gobreaker.NewCircuitBreaker[float64](gobreaker.Settings{
		Name:        "climatiq",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			e.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("climatiq circuit state changed")
		},
	})
	return e
}

// Estimate prices the activity. Unmapped activities go straight to the local
// catalog; mapped activities fall back to it on any upstream failure, so the
// caller always gets an estimate.
func (e *ClimatiqEstimator) Estimate(ctx context.Context, category domain.Category, subtype string, amount float64, unit string) (float64, string, error) {
	activityID, ok := climatiq.MapActivity(string(category), subtype, unit)
	if !ok {
		return e.fallback.Estimate(ctx, category, subtype, amount, unit)
	}

	kg, err := e.breaker.Execute(func() (float64, error) {
		return e.client.Estimate(ctx, activityID, amount, unit)
	})
	if err != nil {
		e.logger.Warn().
			Err(err).
			Str("activity_id", activityID).
			Msg("climatiq estimate failed, using local factor")
		observability.RecordEstimateFallback()
		return e.fallback.Estimate(ctx, category, subtype, amount, unit)
	}
	return kg, MethodClimatiq, nil
}

// Catalog exposes the fallback factor table.
func (e *ClimatiqEstimator) Catalog() *Catalog {
	return e.fallback.Catalog()
}
