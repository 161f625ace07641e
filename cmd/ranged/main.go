// Package main provides the entrypoint for the rangecast daemon: a scheduler
// that runs range estimations and an HTTP server exposing the results.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/rangecast/rangecast/internal/api"
	"github.com/rangecast/rangecast/internal/config"
	"github.com/rangecast/rangecast/internal/energy"
	"github.com/rangecast/rangecast/internal/estimator"
	"github.com/rangecast/rangecast/internal/history"
	"github.com/rangecast/rangecast/internal/isoline"
	"github.com/rangecast/rangecast/internal/isoline/valhalla"
	"github.com/rangecast/rangecast/internal/metrics"
	"github.com/rangecast/rangecast/internal/output"
	"github.com/rangecast/rangecast/internal/publish/mqtt"
	"github.com/rangecast/rangecast/internal/telemetry"
	"github.com/rangecast/rangecast/internal/vehicle"
	"github.com/rangecast/rangecast/internal/vehicle/homeassistant"
	"github.com/rangecast/rangecast/internal/weather"
	"github.com/rangecast/rangecast/internal/weather/openweathermap"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "rangecast"

	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := newLogger(cfg.Logging, serviceName)
	log.Info().
		Str("build_time", BuildTime).
		Str("config", *configPath).
		Msg("starting rangecast")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Telemetry.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	// Initialize metrics
	sink, err := metrics.NewSink(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	// Run storage
	runs, pool, err := newRunRepository(ctx, cfg.History, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize run storage")
	}
	if pool != nil {
		defer pool.Close()
	}

	// Energy model
	model, err := energy.NewModel(cfg.Vehicle, cfg.Profiles, log)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid energy model configuration")
	}

	// Vehicle telemetry via Home Assistant
	vehicles := vehicle.NewService(vehicle.ServiceConfig{
		Provider: homeassistant.NewClient(homeassistant.ClientConfig{
			BaseURL:  cfg.HomeAssistant.URL,
			Token:    cfg.HomeAssistant.Token,
			Entities: cfg.HomeAssistant.Entities,
			Timeout:  cfg.HomeAssistant.Timeout,
			Logger:   log,
		}),
		Logger:      log,
		HomeLat:     cfg.HomeAssistant.HomeLat,
		HomeLon:     cfg.HomeAssistant.HomeLon,
		ReadTimeout: cfg.HomeAssistant.Timeout,
	})

	// Weather. Without an API key the engine falls back to default conditions.
	var weatherProvider weather.Provider
	if cfg.Weather.APIKey != "" {
		weatherProvider = openweathermap.NewClient(openweathermap.ClientConfig{
			APIKey:  cfg.Weather.APIKey,
			BaseURL: cfg.Weather.BaseURL,
			Logger:  log,
		})
	} else {
		log.Warn().Msg("no weather API key configured, runs will use default conditions")
		weatherProvider = unavailableWeather{}
	}
	weatherSvc := weather.NewService(weather.ServiceConfig{
		Provider:     weatherProvider,
		Logger:       log,
		FetchTimeout: cfg.Weather.Timeout,
	})

	// Reachability contours via Valhalla
	isolines := isoline.NewService(isoline.ServiceConfig{
		Provider: valhalla.NewClient(valhalla.ClientConfig{
			BaseURL:       cfg.Valhalla.URL,
			Costing:       cfg.Valhalla.Costing,
			MaxDistanceKm: cfg.Valhalla.MaxDistanceKm,
			Timeout:       cfg.Valhalla.Timeout,
			Logger:        log,
		}),
		Logger:       log,
		QueryTimeout: cfg.Valhalla.Timeout,
	})

	engine, err := estimator.NewEngine(estimator.Config{
		Vehicles:   vehicles,
		Weather:    weatherSvc,
		Model:      model,
		Bands:      cfg.Bands,
		Isolines:   isolines,
		RunTimeout: cfg.Schedule.RunTimeout,
		Logger:     log,
		Metrics:    sink,
		Tracer:     tp.Tracer,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build estimation engine")
	}

	writer, err := output.NewWriter(cfg.Output.Dir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to prepare output directory")
	}

	var publisher *mqtt.Publisher
	if cfg.MQTT.Enabled {
		publisher, err = mqtt.NewPublisher(cfg.MQTT.Config, log)
		if err != nil {
			log.Error().Err(err).Msg("mqtt publisher unavailable, continuing without it")
		} else {
			defer publisher.Close()
		}
	}

	// HTTP surface
	router := api.NewRouter(api.RouterConfig{
		Version:        Version,
		Logger:         log,
		Runs:           runs,
		RateLimit:      cfg.Server.RateLimit,
		MetricsHandler: sink.Handler(),
	})
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("HTTP server listening")
		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			log.Error().Err(serveErr).Msg("HTTP server error")
		}
	}()

	sched := scheduler{
		engine:    engine,
		runs:      runs,
		writer:    writer,
		publisher: publisher,
		metrics:   sink,
		keep:      cfg.History.Keep,
		logger:    log,
	}
	go sched.loop(ctx, cfg.Schedule.Interval, *cfg.Schedule.RunOnStart)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server forced to shutdown")
	}

	log.Info().Msg("stopped")
}

// newLogger builds the process logger from the logging section.
func newLogger(cfg config.LoggingConfig, service string) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out = os.Stdout
	logger := zerolog.New(out)
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out})
	}
	return logger.Level(level).
		With().
		Timestamp().
		Str("service", service).
		Str("version", Version).
		Logger()
}

// newRunRepository selects the history backend. The pool is non-nil only for
// the postgres backend and must be closed by the caller.
func newRunRepository(ctx context.Context, cfg config.HistoryConfig, log zerolog.Logger) (history.Repository, *pgxpool.Pool, error) {
	if cfg.Backend != "postgres" {
		return history.NewMemoryRepository(cfg.Keep), nil, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	repo := history.NewPostgresRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	log.Info().Msg("postgres run storage ready")
	return repo, pool, nil
}

// unavailableWeather is the provider used when no API key is configured. Its
// errors push the engine onto the documented default conditions.
type unavailableWeather struct{}

func (unavailableWeather) Current(context.Context, float64, float64) (*weather.Observation, error) {
	return nil, weather.ErrProviderUnavailable
}

func (unavailableWeather) Name() string { return "none" }
