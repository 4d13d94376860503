// Package postgres provides the Postgres-backed repository for activity
// records, their aggregates, and the transactional outbox rows.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/ecotrack/internal/domain"
	"example.com/ecotrack/internal/events"
	"example.com/ecotrack/internal/observability"
)

// Repository implements domain.Repository on a pgx pool.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const activityColumns = "activity_id, user_id, category, subtype, amount, unit, co2e_kg, occurred_at, created_at"

// Insert persists the record and queues its activity.logged event inside a
// single transaction. Either both rows commit or neither does.
func (r *Repository) Insert(ctx context.Context, record domain.ActivityRecord) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const insertActivity = `INSERT INTO activities (` + activityColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err = tx.Exec(ctx, insertActivity,
		record.ID,
		record.UserID,
		string(record.Category),
		record.Subtype,
		record.Amount,
		record.Unit,
		record.CO2eKg,
		record.OccurredAt,
		record.CreatedAt,
	)
	if err != nil {
		return err
	}

	if err = insertOutbox(ctx, tx, record, "activity.logged", events.ActivityLogged{
		ActivityID: record.ID,
		UserID:     record.UserID,
		Category:   string(record.Category),
		Subtype:    record.Subtype,
		Amount:     record.Amount,
		Unit:       record.Unit,
		CO2eKg:     record.CO2eKg,
		OccurredAt: record.OccurredAt,
		LoggedAt:   record.CreatedAt,
		Version:    "v1",
	}); err != nil {
		return err
	}

	err = tx.Commit(ctx)
	if err != nil {
		return err
	}
	observability.RecordActivityLogged(record.CreatedAt)
	return nil
}

func insertOutbox(ctx context.Context, tx pgx.Tx, record domain.ActivityRecord, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta := eventCatalog[eventType]
	if meta.Topic == "" {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	partitionKey := meta.PartitionKeyFn(record)
	dedupeKey := fmt.Sprintf("%s:%s", record.ID, eventType)

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err = tx.Exec(ctx, stmt,
		"activity",
		record.ID,
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		partitionKey,
		body,
		dedupeKey,
	)
	return err
}

// ListByUser returns a page of the user's activities newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string, cursor *domain.Cursor, limit int) ([]domain.ActivityRecord, *domain.Cursor, error) {
	args := []interface{}{userID, limit}
	query := `SELECT ` + activityColumns + ` FROM activities WHERE user_id=$1`
	if cursor != nil {
		query += ` AND (occurred_at, activity_id) < ($3, $4)`
		args = append(args, cursor.OccurredAt, cursor.ID)
	}
	query += ` ORDER BY occurred_at DESC, activity_id DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	results := make([]domain.ActivityRecord, 0, limit)
	for rows.Next() {
		record, err := scanActivity(rows)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var next *domain.Cursor
	if len(results) == limit {
		last := results[len(results)-1]
		next = &domain.Cursor{OccurredAt: last.OccurredAt, ID: last.ID}
	}
	return results, next, nil
}

// CountByUser returns the user's total activity count.
func (r *Repository) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM activities WHERE user_id=$1`, userID).Scan(&count)
	return count, err
}

// ListWindow returns the user's activities with occurred_at in [from, to],
// oldest first.
func (r *Repository) ListWindow(ctx context.Context, userID string, from, to time.Time) ([]domain.ActivityRecord, error) {
	const query = `SELECT ` + activityColumns + ` FROM activities
        WHERE user_id=$1 AND occurred_at >= $2 AND occurred_at <= $3
        ORDER BY occurred_at, activity_id`

	rows, err := r.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.ActivityRecord
	for rows.Next() {
		record, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, record)
	}
	return results, rows.Err()
}

// CategoryTotals sums CO2e by category over the half-open range [from, to).
func (r *Repository) CategoryTotals(ctx context.Context, userID string, from, to time.Time) (map[domain.Category]float64, int, error) {
	const query = `SELECT category, SUM(co2e_kg), COUNT(*) FROM activities
        WHERE user_id=$1 AND occurred_at >= $2 AND occurred_at < $3
        GROUP BY category`

	rows, err := r.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	totals := make(map[domain.Category]float64)
	count := 0
	for rows.Next() {
		var category string
		var kg float64
		var n int
		if err := rows.Scan(&category, &kg, &n); err != nil {
			return nil, 0, err
		}
		totals[domain.Category(category)] = kg
		count += n
	}
	return totals, count, rows.Err()
}

// DailyTotals sums CO2e per UTC day over the half-open range [from, to).
// Days without activity are absent from the result.
func (r *Repository) DailyTotals(ctx context.Context, userID string, from, to time.Time) ([]domain.DailyTotal, error) {
	const query = `SELECT date_trunc('day', occurred_at AT TIME ZONE 'UTC') AS day, SUM(co2e_kg)
        FROM activities
        WHERE user_id=$1 AND occurred_at >= $2 AND occurred_at < $3
        GROUP BY day ORDER BY day`

	rows, err := r.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.DailyTotal
	for rows.Next() {
		var day time.Time
		var kg float64
		if err := rows.Scan(&day, &kg); err != nil {
			return nil, err
		}
		results = append(results, domain.DailyTotal{Day: day.UTC(), TotalKg: kg})
	}
	return results, rows.Err()
}

// Summary returns the user's all-time aggregate.
func (r *Repository) Summary(ctx context.Context, userID string) (*domain.EmissionsSummary, error) {
	summary := &domain.EmissionsSummary{
		ByCategory: make(map[domain.Category]float64),
	}

	const totalsQuery = `SELECT COUNT(*), COALESCE(SUM(co2e_kg), 0), MIN(occurred_at), MAX(occurred_at)
        FROM activities WHERE user_id=$1`
	err := r.pool.QueryRow(ctx, totalsQuery, userID).Scan(
		&summary.ActivityCount,
		&summary.TotalKg,
		&summary.FirstLoggedAt,
		&summary.LastLoggedAt,
	)
	if err != nil {
		return nil, err
	}

	const categoryQuery = `SELECT category, SUM(co2e_kg) FROM activities WHERE user_id=$1 GROUP BY category`
	rows, err := r.pool.Query(ctx, categoryQuery, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var kg float64
		if err := rows.Scan(&category, &kg); err != nil {
			return nil, err
		}
		summary.ByCategory[domain.Category(category)] = kg
	}
	return summary, rows.Err()
}

// RollupSeries returns up to the most recent `days` rollup rows, ascending.
func (r *Repository) RollupSeries(ctx context.Context, userID string, days int) ([]domain.DailyTotal, error) {
	const query = `SELECT day, total_kg FROM daily_emission_rollups
        WHERE user_id=$1 ORDER BY day DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.DailyTotal
	for rows.Next() {
		var day time.Time
		var kg float64
		if err := rows.Scan(&day, &kg); err != nil {
			return nil, err
		}
		results = append(results, domain.DailyTotal{Day: day.UTC(), TotalKg: kg})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}
	return results, nil
}

// AddToRollup folds one activity into the daily rollup projection. Called by
// the consumer for each activity.logged event.
func (r *Repository) AddToRollup(ctx context.Context, userID string, day time.Time, co2eKg float64) error {
	const stmt = `INSERT INTO daily_emission_rollups (user_id, day, total_kg, activity_count, updated_at)
        VALUES ($1, $2, $3, 1, NOW())
        ON CONFLICT (user_id, day) DO UPDATE
           SET total_kg = daily_emission_rollups.total_kg + EXCLUDED.total_kg,
               activity_count = daily_emission_rollups.activity_count + 1,
               updated_at = NOW()`

	_, err := r.pool.Exec(ctx, stmt, userID, day.UTC().Truncate(24*time.Hour), co2eKg)
	return err
}

func scanActivity(rows pgx.Rows) (domain.ActivityRecord, error) {
	var record domain.ActivityRecord
	var category string
	if err := rows.Scan(
		&record.ID,
		&record.UserID,
		&category,
		&record.Subtype,
		&record.Amount,
		&record.Unit,
		&record.CO2eKg,
		&record.OccurredAt,
		&record.CreatedAt,
	); err != nil {
		return domain.ActivityRecord{}, err
	}
	record.Category = domain.Category(category)
	return record, nil
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic          string
	SchemaSubject  string
	PartitionKeyFn func(domain.ActivityRecord) string
}

var eventCatalog = map[string]EventMetadata{
	"activity.logged": {
		Topic:         "activity_events",
		SchemaSubject: "activity_events-value",
		PartitionKeyFn: func(record domain.ActivityRecord) string {
			return record.UserID
		},
	},
}
