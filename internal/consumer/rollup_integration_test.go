//go:build integration

package consumer

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	kafkacontainer "github.com/testcontainers/testcontainers-go/modules/kafka"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/ecotrack/internal/domain"
	"example.com/ecotrack/internal/outbox"
	"example.com/ecotrack/internal/persistence/postgres"
)

// stubRegistry satisfies the dispatcher's schema registrar without a live
// Schema Registry container.
type stubRegistry struct {
	id int
}

func (s *stubRegistry) EnsureSchema(context.Context, string, string) (int, error) {
	return s.id, nil
}

func TestActivityEventsProjectIntoDailyRollups(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	pool, cleanup := setupPostgres(t, ctx)
	defer cleanup()

	repo := postgres.NewRepository(pool)
	userID := uuid.NewString()
	dayOne := time.Date(2025, time.November, 3, 9, 0, 0, 0, time.UTC)
	dayTwo := dayOne.Add(24 * time.Hour)

	records := []domain.ActivityRecord{
		{
			ID:         uuid.NewString(),
			UserID:     userID,
			Category:   domain.CategoryTransportation,
			Subtype:    "car",
			Amount:     12,
			Unit:       "miles",
			CO2eKg:     4.932,
			OccurredAt: dayOne,
			CreatedAt:  dayOne,
		},
		{
			ID:         uuid.NewString(),
			UserID:     userID,
			Category:   domain.CategoryFood,
			Subtype:    "beef",
			Amount:     0.5,
			Unit:       "kg",
			CO2eKg:     13.5,
			OccurredAt: dayOne.Add(3 * time.Hour),
			CreatedAt:  dayOne.Add(3 * time.Hour),
		},
		{
			ID:         uuid.NewString(),
			UserID:     userID,
			Category:   domain.CategoryEnergy,
			Subtype:    "electricity",
			Amount:     20,
			Unit:       "kwh",
			CO2eKg:     10,
			OccurredAt: dayTwo,
			CreatedAt:  dayTwo,
		},
	}
	for _, record := range records {
		require.NoError(t, repo.Insert(ctx, record))
	}

	kafkaC, err := kafkacontainer.RunContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kafkaC.Terminate(context.Background()) })

	brokers, err := kafkaC.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	broker := brokers[0]

	topic := "activity_events"
	conn, err := kafka.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))

	producer := outbox.NewKafkaProducer([]string{broker})
	defer producer.Close()

	dispatchCtx, stopDispatch := context.WithCancel(ctx)
	dispatcher := outbox.NewDispatcher(pool, producer, &stubRegistry{id: 11}, 50*time.Millisecond, 10)
	go dispatcher.Start(dispatchCtx)
	defer func() {
		stopDispatch()
		dispatcher.Wait()
	}()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{broker},
		GroupID:     "ecotrack-rollup-integration",
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
	defer reader.Close()

	consumeCtx, stopConsume := context.WithCancel(ctx)
	defer stopConsume()

	processor := NewProcessor(reader, NewRollupHandler(repo))
	go func() {
		_ = processor.Run(consumeCtx)
	}()

	require.Eventually(t, func() bool {
		series, seriesErr := repo.RollupSeries(ctx, userID, 30)
		if seriesErr != nil || len(series) != 2 {
			return false
		}
		sort.Slice(series, func(i, j int) bool { return series[i].Day.Before(series[j].Day) })
		return math.Abs(series[0].TotalKg-18.432) < 0.0001 &&
			math.Abs(series[1].TotalKg-10) < 0.0001
	}, 60*time.Second, 500*time.Millisecond, "expected consumed events to accumulate into daily rollups")

	var unpublished int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE published_at IS NULL`).Scan(&unpublished))
	require.Zero(t, unpublished)
}

func setupPostgres(t *testing.T, ctx context.Context) (*pgxpool.Pool, func()) {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("ecotrack"),
		postgrescontainer.WithUsername("ecotrack"),
		postgrescontainer.WithPassword("ecotrack"),
	)
	require.NoError(t, err)

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pg.Terminate(ctx)
	}
	return pool, cleanup
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	t.Helper()

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	migrationsDir := resolvePath(t, "../../db/postgres/migrations")
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files, "expected at least one migration .up.sql file")

	sort.Strings(files)

	for _, file := range files {
		contents, readErr := os.ReadFile(file)
		require.NoErrorf(t, readErr, "read migration %s", file)

		if _, execErr := pool.Exec(ctx, string(contents)); execErr != nil {
			require.NoErrorf(t, execErr, "execute migration %s", file)
		}
	}
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
