package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"example.com/ecotrack/internal/archetype"
	"example.com/ecotrack/internal/domain"
	"example.com/ecotrack/internal/features"
	"example.com/ecotrack/internal/observability"
)

// ActivitySource supplies the trailing activity window for a user.
type ActivitySource interface {
	Window(ctx context.Context, userID string, asOf time.Time, days int) ([]domain.ActivityRecord, error)
}

// ModelSource hands out the currently published archetype model.
type ModelSource interface {
	Current() (*archetype.Model, error)
}

// Response is the full recommendation payload for a user.
type Response struct {
	UserID                  string                  `json:"user_id"`
	ClusterID               int                     `json:"cluster_id"`
	Archetype               string                  `json:"archetype"`
	Recommendations         []domain.Recommendation `json:"recommendations"`
	TotalPotentialSavingsKg float64                 `json:"total_potential_savings_kg"`
	AnnualEmissionsKg       float64                 `json:"annual_emissions_kg"`
}

// Service assembles recommendations: activity window, feature extraction,
// archetype classification, rule evaluation, optional text enhancement.
type Service struct {
	activities ActivitySource
	models     ModelSource
	enhancer   Enhancer
	logger     zerolog.Logger
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithEnhancer wires a language-model text enhancer.
func WithEnhancer(enhancer Enhancer) Option {
	return func(s *Service) {
		s.enhancer = enhancer
	}
}

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService constructs the recommendation service.
func NewService(activities ActivitySource, models ModelSource, opts ...Option) *Service {
	s := &Service{
		activities: activities,
		models:     models,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Recommendations builds the recommendation payload for a user as of now.
//
// A missing or failing model is not an error: the user degrades to the
// Unknown archetype (cluster -1) and still receives threshold-based
// recommendations from their own numbers.
func (s *Service) Recommendations(ctx context.Context, userID string, asOf time.Time) (*Response, error) {
	records, err := s.activities.Window(ctx, userID, asOf, features.WindowDays)
	if err != nil {
		return nil, fmt.Errorf("load activity window: %w", err)
	}

	if len(records) == 0 {
		return &Response{
			UserID:    userID,
			ClusterID: -1,
			Archetype: domain.ArchetypeUnknown,
			Recommendations: []domain.Recommendation{{
				Title:       "Start Logging Activities",
				Description: "Begin logging your daily activities to receive personalized recommendations.",
				Category:    "general",
				Priority:    domain.PriorityLow,
			}},
		}, nil
	}

	vector, err := features.Extract(records, asOf)
	if err != nil {
		return nil, fmt.Errorf("extract features: %w", err)
	}

	clusterID := -1
	archetypeName := domain.ArchetypeUnknown
	if model, err := s.models.Current(); err != nil {
		if !errors.Is(err, domain.ErrModelUnavailable) {
			return nil, err
		}
		s.logger.Debug().Str("user_id", userID).Msg("no archetype model published, serving unclassified recommendations")
	} else if assignment, err := model.Classify(vector); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("classification failed, serving unclassified recommendations")
	} else {
		clusterID = assignment.ClusterID
		archetypeName = assignment.Archetype
	}
	observability.RecordClassification(archetypeName)

	recommendations := Rules(vector, archetypeName)
	recommendations = enhanceAll(ctx, s.enhancer, recommendations, archetypeName, s.logger)

	return &Response{
		UserID:                  userID,
		ClusterID:               clusterID,
		Archetype:               archetypeName,
		Recommendations:         recommendations,
		TotalPotentialSavingsKg: TotalSavings(recommendations),
		AnnualEmissionsKg:       vector.AnnualTotalKg(),
	}, nil
}
