// Package domain defines the business logic for the ecotrack service.
package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidCategory is returned when an activity category is not recognized.
	ErrInvalidCategory = errors.New("invalid activity category")
	// ErrInvalidActivity is returned when an activity payload fails validation.
	ErrInvalidActivity = errors.New("invalid activity input")
	// ErrInvalidFeatureVector is returned when a feature vector contains NaN,
	// infinite, or negative values. Callers must fail fast, never coerce.
	ErrInvalidFeatureVector = errors.New("invalid feature vector")
	// ErrModelUnavailable is returned when no trained archetype model artifact
	// exists or the artifact is partially missing or corrupt. Callers degrade
	// to the Unknown archetype rather than failing the request.
	ErrModelUnavailable = errors.New("archetype model unavailable")
	// ErrTrainingDataInsufficient is returned when a training run has fewer
	// rows than requested clusters. Fatal to training only.
	ErrTrainingDataInsufficient = errors.New("training data insufficient")
)

// DailyTotal is one day of summed emissions.
type DailyTotal struct {
	Day     time.Time
	TotalKg float64
}

// DailyEmissions breaks one day down by category.
type DailyEmissions struct {
	Day           time.Time
	TotalKg       float64
	ByCategory    map[Category]float64
	ActivityCount int
}

// WeeklyEmissions aggregates a 7-day window starting at WeekStart.
type WeeklyEmissions struct {
	WeekStart     time.Time
	WeekEnd       time.Time
	TotalKg       float64
	Daily         []DailyTotal
	ByCategory    map[Category]float64
	ActivityCount int
}

// EmissionsSummary is the all-time aggregate for a user.
type EmissionsSummary struct {
	TotalKg       float64
	ByCategory    map[Category]float64
	ActivityCount int
	FirstLoggedAt *time.Time
	LastLoggedAt  *time.Time
}

// Cursor models the keyset pagination token for history listings.
type Cursor struct {
	OccurredAt time.Time
	ID         string
}

// Repository captures persistence operations for activity records and their
// aggregates.
type Repository interface {
	Insert(ctx context.Context, record ActivityRecord) error
	ListByUser(ctx context.Context, userID string, cursor *Cursor, limit int) ([]ActivityRecord, *Cursor, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	ListWindow(ctx context.Context, userID string, from, to time.Time) ([]ActivityRecord, error)
	CategoryTotals(ctx context.Context, userID string, from, to time.Time) (map[Category]float64, int, error)
	DailyTotals(ctx context.Context, userID string, from, to time.Time) ([]DailyTotal, error)
	Summary(ctx context.Context, userID string) (*EmissionsSummary, error)
	RollupSeries(ctx context.Context, userID string, days int) ([]DailyTotal, error)
}

// EmissionEstimator resolves an activity into CO2-equivalent kilograms. The
// returned method names the source of the factor ("climatiq", "local_factor").
type EmissionEstimator interface {
	Estimate(ctx context.Context, category Category, subtype string, amount float64, unit string) (co2eKg float64, method string, err error)
}

// Service orchestrates activity logging and emission aggregation.
type Service struct {
	repo      Repository
	estimator EmissionEstimator
}

// NewService constructs a Service.
func NewService(repo Repository, estimator EmissionEstimator) *Service {
	return &Service{repo: repo, estimator: estimator}
}

// LogActivityInput captures the payload from the API layer.
type LogActivityInput struct {
	UserID     string
	Category   Category
	Subtype    string
	Amount     float64
	Unit       string
	OccurredAt time.Time
}

// LogActivity estimates emissions for the input and persists the record. The
// returned method reports which estimation path produced the CO2e figure.
func (s *Service) LogActivity(ctx context.Context, input LogActivityInput) (*ActivityRecord, string, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, "", fmt.Errorf("%w: user id is required", ErrInvalidActivity)
	}
	if _, err := ParseCategory(string(input.Category)); err != nil {
		return nil, "", err
	}
	if input.Amount <= 0 {
		return nil, "", fmt.Errorf("%w: amount must be > 0", ErrInvalidActivity)
	}

	subtype := strings.ToLower(strings.TrimSpace(input.Subtype))
	unit := strings.ToLower(strings.TrimSpace(input.Unit))
	if unit == "" {
		unit = "unit"
	}

	co2eKg, method, err := s.estimator.Estimate(ctx, input.Category, subtype, input.Amount, unit)
	if err != nil {
		return nil, "", fmt.Errorf("estimate emissions: %w", err)
	}

	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	record := ActivityRecord{
		ID:         uuid.NewString(),
		UserID:     input.UserID,
		Category:   input.Category,
		Subtype:    subtype,
		Amount:     input.Amount,
		Unit:       unit,
		CO2eKg:     co2eKg,
		OccurredAt: occurredAt.UTC(),
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, record); err != nil {
		return nil, "", err
	}

	return &record, method, nil
}

// History lists a user's activities newest first with cursor pagination and
// the total record count.
func (s *Service) History(ctx context.Context, userID string, cursor *Cursor, limit int) ([]ActivityRecord, *Cursor, int, error) {
	records, next, err := s.repo.ListByUser(ctx, userID, cursor, limit)
	if err != nil {
		return nil, nil, 0, err
	}
	total, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return nil, nil, 0, err
	}
	return records, next, total, nil
}

// Window returns the user's activities in the trailing window ending at asOf.
func (s *Service) Window(ctx context.Context, userID string, asOf time.Time, days int) ([]ActivityRecord, error) {
	from := asOf.Add(-time.Duration(days) * 24 * time.Hour)
	return s.repo.ListWindow(ctx, userID, from, asOf)
}

// Daily aggregates one calendar day (UTC) by category.
func (s *Service) Daily(ctx context.Context, userID string, day time.Time) (*DailyEmissions, error) {
	start := day.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)

	byCategory, count, err := s.repo.CategoryTotals(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	result := &DailyEmissions{
		Day:           start,
		ByCategory:    byCategory,
		ActivityCount: count,
	}
	for _, kg := range byCategory {
		result.TotalKg += kg
	}
	return result, nil
}

// Weekly aggregates the 7 days starting at weekStart, filling zero entries for
// days without activity so the series always has seven points.
func (s *Service) Weekly(ctx context.Context, userID string, weekStart time.Time) (*WeeklyEmissions, error) {
	start := weekStart.UTC().Truncate(24 * time.Hour)
	end := start.Add(7 * 24 * time.Hour)

	byCategory, count, err := s.repo.CategoryTotals(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	daily, err := s.repo.DailyTotals(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	totals := make(map[time.Time]float64, len(daily))
	for _, d := range daily {
		totals[d.Day.UTC().Truncate(24*time.Hour)] = d.TotalKg
	}

	result := &WeeklyEmissions{
		WeekStart:     start,
		WeekEnd:       end.Add(-24 * time.Hour),
		ByCategory:    byCategory,
		ActivityCount: count,
		Daily:         make([]DailyTotal, 0, 7),
	}
	for i := 0; i < 7; i++ {
		day := start.Add(time.Duration(i) * 24 * time.Hour)
		result.Daily = append(result.Daily, DailyTotal{Day: day, TotalKg: totals[day]})
	}
	for _, kg := range byCategory {
		result.TotalKg += kg
	}
	return result, nil
}

// Summary returns the user's all-time aggregate.
func (s *Service) Summary(ctx context.Context, userID string) (*EmissionsSummary, error) {
	return s.repo.Summary(ctx, userID)
}

// DailySeries reads the rollup projection maintained by the consumer. Used by
// the forecast endpoint; may trail the write path by the consumer lag.
func (s *Service) DailySeries(ctx context.Context, userID string, days int) ([]DailyTotal, error) {
	return s.repo.RollupSeries(ctx, userID, days)
}
