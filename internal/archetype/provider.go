package archetype

import (
	"sync/atomic"

	"example.com/ecotrack/internal/domain"
	"example.com/ecotrack/internal/observability"
)

// Provider hands out the currently published model. Publication replaces the
// whole artifact in one step, so readers never observe a scaler from one
// training run paired with centroids from another.
type Provider struct {
	current atomic.Pointer[Model]
}

// NewProvider returns a provider with no model published yet.
func NewProvider() *Provider {
	return &Provider{}
}

// Current returns the published model, or ErrModelUnavailable when none has
// been published.
func (p *Provider) Current() (*Model, error) {
	model := p.current.Load()
	if model == nil {
		return nil, domain.ErrModelUnavailable
	}
	return model, nil
}

// Publish validates the model and makes it the current one.
func (p *Provider) Publish(model *Model) error {
	if err := model.Validate(); err != nil {
		return err
	}
	p.current.Store(model)
	observability.RecordModelPublished(model.TrainedAt)
	return nil
}

// LoadFrom reads an artifact from the store and publishes it. A failed load
// leaves the previously published model in place.
func (p *Provider) LoadFrom(store *FileStore) error {
	model, err := store.Load()
	if err != nil {
		return err
	}
	return p.Publish(model)
}
