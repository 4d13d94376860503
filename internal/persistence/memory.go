package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"example.com/ecotrack/internal/domain"
)

// InMemoryRepository stores activity records in memory for local development
// and tests. It mirrors the query semantics of the Postgres repository,
// including the rollup projection normally maintained by the consumer.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records map[string][]domain.ActivityRecord
	rollups map[string]map[time.Time]rollupRow
}

type rollupRow struct {
	totalKg float64
	count   int
}

// NewInMemoryRepository constructs an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		records: make(map[string][]domain.ActivityRecord),
		rollups: make(map[string]map[time.Time]rollupRow),
	}
}

// Insert implements domain.Repository. The rollup projection is updated in
// the same step since there is no consumer in memory mode.
func (r *InMemoryRepository) Insert(_ context.Context, record domain.ActivityRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[record.UserID] = append(r.records[record.UserID], record)
	r.addToRollupLocked(record.UserID, record.OccurredAt, record.CO2eKg)
	return nil
}

// ListByUser implements domain.Repository with keyset pagination, newest
// first.
func (r *InMemoryRepository) ListByUser(_ context.Context, userID string, cursor *domain.Cursor, limit int) ([]domain.ActivityRecord, *domain.Cursor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sorted := sortedDescending(r.records[userID])
	results := make([]domain.ActivityRecord, 0, limit)
	for _, record := range sorted {
		if cursor != nil && !beforeCursor(record, cursor) {
			continue
		}
		results = append(results, record)
		if len(results) == limit {
			break
		}
	}

	var next *domain.Cursor
	if len(results) == limit {
		last := results[len(results)-1]
		next = &domain.Cursor{OccurredAt: last.OccurredAt, ID: last.ID}
	}
	return results, next, nil
}

// CountByUser implements domain.Repository.
func (r *InMemoryRepository) CountByUser(_ context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records[userID]), nil
}

// ListWindow implements domain.Repository. Both bounds are inclusive.
func (r *InMemoryRepository) ListWindow(_ context.Context, userID string, from, to time.Time) ([]domain.ActivityRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []domain.ActivityRecord
	for _, record := range r.records[userID] {
		if record.OccurredAt.Before(from) || record.OccurredAt.After(to) {
			continue
		}
		results = append(results, record)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].OccurredAt.Before(results[j].OccurredAt)
	})
	return results, nil
}

// CategoryTotals implements domain.Repository over the half-open range
// [from, to).
func (r *InMemoryRepository) CategoryTotals(_ context.Context, userID string, from, to time.Time) (map[domain.Category]float64, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	totals := make(map[domain.Category]float64)
	count := 0
	for _, record := range r.records[userID] {
		if record.OccurredAt.Before(from) || !record.OccurredAt.Before(to) {
			continue
		}
		totals[record.Category] += record.CO2eKg
		count++
	}
	return totals, count, nil
}

// DailyTotals implements domain.Repository over the half-open range [from, to),
// grouping by UTC day. Days without activity are absent from the result.
func (r *InMemoryRepository) DailyTotals(_ context.Context, userID string, from, to time.Time) ([]domain.DailyTotal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byDay := make(map[time.Time]float64)
	for _, record := range r.records[userID] {
		if record.OccurredAt.Before(from) || !record.OccurredAt.Before(to) {
			continue
		}
		day := record.OccurredAt.UTC().Truncate(24 * time.Hour)
		byDay[day] += record.CO2eKg
	}

	results := make([]domain.DailyTotal, 0, len(byDay))
	for day, kg := range byDay {
		results = append(results, domain.DailyTotal{Day: day, TotalKg: kg})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Day.Before(results[j].Day)
	})
	return results, nil
}

// Summary implements domain.Repository.
func (r *InMemoryRepository) Summary(_ context.Context, userID string) (*domain.EmissionsSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summary := &domain.EmissionsSummary{
		ByCategory: make(map[domain.Category]float64),
	}
	for _, record := range r.records[userID] {
		summary.TotalKg += record.CO2eKg
		summary.ByCategory[record.Category] += record.CO2eKg
		summary.ActivityCount++

		occurred := record.OccurredAt
		if summary.FirstLoggedAt == nil || occurred.Before(*summary.FirstLoggedAt) {
			first := occurred
			summary.FirstLoggedAt = &first
		}
		if summary.LastLoggedAt == nil || occurred.After(*summary.LastLoggedAt) {
			last := occurred
			summary.LastLoggedAt = &last
		}
	}
	return summary, nil
}

// RollupSeries implements domain.Repository, returning up to the most recent
// `days` rollup rows in ascending day order.
func (r *InMemoryRepository) RollupSeries(_ context.Context, userID string, days int) ([]domain.DailyTotal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userRollups := r.rollups[userID]
	results := make([]domain.DailyTotal, 0, len(userRollups))
	for day, row := range userRollups {
		results = append(results, domain.DailyTotal{Day: day, TotalKg: row.totalKg})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Day.Before(results[j].Day)
	})
	if days > 0 && len(results) > days {
		results = results[len(results)-days:]
	}
	return results, nil
}

// AddToRollup folds one activity into the daily rollup projection. The
// Postgres consumer path calls the equivalent method on its repository.
func (r *InMemoryRepository) AddToRollup(_ context.Context, userID string, day time.Time, co2eKg float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addToRollupLocked(userID, day, co2eKg)
	return nil
}

func (r *InMemoryRepository) addToRollupLocked(userID string, day time.Time, co2eKg float64) {
	normalized := day.UTC().Truncate(24 * time.Hour)
	if r.rollups[userID] == nil {
		r.rollups[userID] = make(map[time.Time]rollupRow)
	}
	row := r.rollups[userID][normalized]
	row.totalKg += co2eKg
	row.count++
	r.rollups[userID][normalized] = row
}

func sortedDescending(records []domain.ActivityRecord) []domain.ActivityRecord {
	sorted := make([]domain.ActivityRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].OccurredAt.Equal(sorted[j].OccurredAt) {
			return sorted[i].OccurredAt.After(sorted[j].OccurredAt)
		}
		return sorted[i].ID > sorted[j].ID
	})
	return sorted
}

func beforeCursor(record domain.ActivityRecord, cursor *domain.Cursor) bool {
	if record.OccurredAt.Before(cursor.OccurredAt) {
		return true
	}
	return record.OccurredAt.Equal(cursor.OccurredAt) && record.ID < cursor.ID
}
