package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/ecotrack/internal/api"
	"example.com/ecotrack/internal/archetype"
	"example.com/ecotrack/internal/climatiq"
	"example.com/ecotrack/internal/config"
	"example.com/ecotrack/internal/domain"
	"example.com/ecotrack/internal/emissions"
	"example.com/ecotrack/internal/gemini"
	"example.com/ecotrack/internal/observability"
	"example.com/ecotrack/internal/outbox"
	"example.com/ecotrack/internal/persistence"
	"example.com/ecotrack/internal/persistence/postgres"
	"example.com/ecotrack/internal/recommend"
	httptransport "example.com/ecotrack/internal/transport/http"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := observability.NewLogger("ecotrack-api", cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var repo domain.Repository
	var dispatcher *outbox.Dispatcher

	switch cfg.StorageMode {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		defer pool.Close()

		repo = postgres.NewRepository(pool)

		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()

		registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		dispatcher = outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize,
			outbox.WithDispatcherLogger(logger))
		go dispatcher.Start(ctx)
	default:
		logger.Info().Msg("using in-memory storage, activity events are not published")
		repo = persistence.NewInMemoryRepository()
	}

	var estimator domain.EmissionEstimator = emissions.NewCatalogEstimator(nil)
	if cfg.ClimatiqAPIKey != "" {
		clientOpts := []climatiq.Option{climatiq.WithLogger(logger)}
		if cfg.ClimatiqBaseURL != "" {
			clientOpts = append(clientOpts, climatiq.WithBaseURL(cfg.ClimatiqBaseURL))
		}
		estimator = emissions.NewClimatiqEstimator(
			climatiq.NewClient(cfg.ClimatiqAPIKey, clientOpts...),
			emissions.WithLogger(logger),
		)
	}

	service := domain.NewService(repo, estimator)

	models := archetype.NewProvider()
	if err := models.LoadFrom(archetype.NewFileStore(cfg.ModelDir)); err != nil {
		logger.Warn().Err(err).Str("dir", cfg.ModelDir).Msg("no archetype model loaded, users classify as Unknown until one is trained")
	}

	recommendOpts := []recommend.Option{recommend.WithLogger(logger)}
	handlerOpts := []api.Option{api.WithDefaultUser(cfg.DefaultUserID)}
	if cfg.GeminiAPIKey != "" {
		geminiOpts := []gemini.Option{gemini.WithLogger(logger)}
		if cfg.GeminiBaseURL != "" {
			geminiOpts = append(geminiOpts, gemini.WithBaseURL(cfg.GeminiBaseURL))
		}
		llm := gemini.NewClient(cfg.GeminiAPIKey, geminiOpts...)
		recommendOpts = append(recommendOpts, recommend.WithEnhancer(llm))
		handlerOpts = append(handlerOpts, api.WithParser(llm))
	}

	recommender := recommend.NewService(service, models, recommendOpts...)
	handler := api.NewHandler(service, recommender, emissions.DefaultCatalog(), handlerOpts...)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	requestLog := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("request")
			next.ServeHTTP(w, r)
		})
	}

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, requestLog(httptransport.CORS(cfg.CORSOrigins, mux)))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info().Str("address", cfg.HTTPAddress).Str("storage", cfg.StorageMode).Msg("ecotrack api listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	if dispatcher != nil {
		dispatcher.Wait()
	}
}
