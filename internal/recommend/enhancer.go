package recommend

import (
	"context"

	"github.com/rs/zerolog"

	"example.com/ecotrack/internal/domain"
)

// Enhancer rewrites recommendation copy in friendlier language. Implementations
// are best-effort collaborators: any error means "keep the original text".
type Enhancer interface {
	EnhanceRecommendation(ctx context.Context, title, description, archetype string) (string, error)
}

// enhanceAll applies the enhancer to each recommendation's description. Only
// the wording may change; savings, category, and priority stay as the rule
// engine computed them. Failures are logged and swallowed.
func enhanceAll(ctx context.Context, enhancer Enhancer, recommendations []domain.Recommendation, archetype string, logger zerolog.Logger) []domain.Recommendation {
	if enhancer == nil {
		return recommendations
	}
	for i := range recommendations {
		improved, err := enhancer.EnhanceRecommendation(ctx, recommendations[i].Title, recommendations[i].Description, archetype)
		if err != nil {
			logger.Debug().Err(err).Str("title", recommendations[i].Title).Msg("recommendation enhancement failed, keeping rule text")
			continue
		}
		if improved != "" {
			recommendations[i].Description = improved
		}
	}
	return recommendations
}
