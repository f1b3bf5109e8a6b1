package internal

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"akiya-radar/internal/adapters/hazardmap"
	"akiya-radar/internal/adapters/jshis"
	logger_adapter "akiya-radar/internal/adapters/logger"
	postgres_adapter "akiya-radar/internal/adapters/postgres"
	rabbitmq_adapter "akiya-radar/internal/adapters/rabbitmq"
	"akiya-radar/internal/adapters/reinfolib"
	"akiya-radar/internal/adapters/rest"
	"akiya-radar/internal/adapters/scrapers/akiya"
	"akiya-radar/internal/adapters/scrapers/athome"
	"akiya-radar/internal/adapters/scrapers/bitauction"
	"akiya-radar/internal/adapters/scrapers/homes"
	"akiya-radar/internal/adapters/scrapers/suumo"
	"akiya-radar/internal/configs"
	"akiya-radar/internal/contextkeys"
	"akiya-radar/internal/core/port"
	"akiya-radar/internal/core/usecase"
	"akiya-radar/internal/scheduler"
	"akiya-radar/pkg/fluentlogger"
	"akiya-radar/pkg/postgres"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
)

// pipelineBatchLimit caps how many properties one enrichment tick assesses
// and scores.
const pipelineBatchLimit = 50

// App wires every adapter to the core and owns their lifecycles.
type App struct {
	config    *configs.AppConfig
	dbPool    *pgxpool.Pool
	apiServer *rest.Server

	manager         *scheduler.Manager
	watchdog        *scheduler.Watchdog
	sourceScheduler *scheduler.SourceScheduler

	assessUseCase *usecase.AssessHazardUseCase
	scoreUseCase  *usecase.ScorePropertyUseCase

	amqpConn   *amqp.Connection
	dispatcher *rabbitmq_adapter.JobDispatchAdapter
	consumer   *rabbitmq_adapter.JobConsumer

	fluentClient *fluent.Fluent
	baseLogger   port.LoggerPort
	logger       port.LoggerPort
}

// NewApp is the composition root: every dependency is created and linked
// here and nowhere else.
func NewApp() (*App, error) {
	appConfig, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading application configuration: %w", err)
	}

	var activeLoggers []port.LoggerPort

	stdoutLogger := logger_adapter.NewSlogAdapter(logger_adapter.SlogConfig{
		Level:    parseLogLevel(appConfig.StdoutLogger.Level),
		IsJSON:   false,
		UseColor: true,
	})
	activeLoggers = append(activeLoggers, stdoutLogger)

	var fluentClient *fluent.Fluent
	if appConfig.FluentBit.Enabled {
		fluentClient, err = fluentlogger.NewClient(fluentlogger.Config{
			Host:      appConfig.FluentBit.Host,
			Port:      appConfig.FluentBit.Port,
			TagPrefix: appConfig.AppName,
		})
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit client", err, nil)
			return nil, fmt.Errorf("failed to create fluentbit client: %w", err)
		}

		fluentAdapter, err := logger_adapter.NewFluentLoggerAdapter(fluentClient, parseLogLevel(appConfig.FluentBit.Level))
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit adapter", err, nil)
			fluentClient.Close()
			return nil, err
		}
		activeLoggers = append(activeLoggers, fluentAdapter)
	}

	multiLogger, err := logger_adapter.NewMultiloggerAdapter(activeLoggers...)
	if err != nil {
		return nil, fmt.Errorf("failed to create multi-logger: %w", err)
	}

	baseLogger := multiLogger.WithFields(port.Fields{
		"service_name": appConfig.AppName,
	})
	appLogger := baseLogger.WithFields(port.Fields{"component": "app"})
	appLogger.Info("Logger system initialized", port.Fields{
		"active_loggers": len(activeLoggers), "fluent_enabled": appConfig.FluentBit.Enabled,
	})

	dbPool, err := postgres.NewClient(context.Background(), postgres.Config{DatabaseURL: appConfig.Database.URL})
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", err, nil)
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	appLogger.Info("Successfully connected to PostgreSQL pool", nil)

	propertyRepo, err := postgres_adapter.NewPropertyRepository(dbPool)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to create property repository: %w", err)
	}
	hazardRepo, err := postgres_adapter.NewHazardRepository(dbPool)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to create hazard repository: %w", err)
	}
	scoreRepo, err := postgres_adapter.NewScoreRepository(dbPool)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to create score repository: %w", err)
	}
	jobRepo, err := postgres_adapter.NewJobRepository(dbPool)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to create job repository: %w", err)
	}
	appLogger.Info("Postgres repositories initialized", nil)

	scraperRegistry, err := buildScraperRegistry(appConfig.Scrapers)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to build scraper registry: %w", err)
	}
	appLogger.Info("Scraper registry initialized", port.Fields{"sources": len(scraperRegistry)})

	jshisClient, err := jshis.NewClient(appConfig.Hazard.JShisBaseURL)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to create J-SHIS client: %w", err)
	}
	hazardMapClient, err := hazardmap.NewClient(appConfig.Hazard.HazardMapBaseURL)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to create hazard map client: %w", err)
	}

	// Vector overlays need a Reinfolib subscription key; without one the
	// aggregator runs with overlay fields left empty.
	var overlays port.VectorOverlayPort = noopOverlays{}
	if appConfig.Hazard.ReinfolibAPIKey != "" {
		reinfolibClient, err := reinfolib.NewClient(appConfig.Hazard.ReinfolibBaseURL, appConfig.Hazard.ReinfolibAPIKey)
		if err != nil {
			dbPool.Close()
			return nil, fmt.Errorf("failed to create reinfolib client: %w", err)
		}
		overlays = reinfolibClient
	} else {
		appLogger.Warn("REINFOLIB_API_KEY not set, vector overlays disabled", nil)
	}

	dedupUseCase := usecase.NewFindMatchingPropertyUseCase(propertyRepo)
	upsertUseCase := usecase.NewUpsertPropertyUseCase(propertyRepo, dedupUseCase)
	runJobUseCase := usecase.NewRunJobUseCase(jobRepo, upsertUseCase, scraperRegistry)
	assessUseCase := usecase.NewAssessHazardUseCase(propertyRepo, hazardRepo, jshisClient, hazardMapClient, overlays)
	scoreUseCase := usecase.NewScorePropertyUseCase(propertyRepo, hazardRepo, scoreRepo)
	appLogger.Info("All use cases initialized", nil)

	var amqpConn *amqp.Connection
	var dispatcher *rabbitmq_adapter.JobDispatchAdapter
	var consumer *rabbitmq_adapter.JobConsumer
	if appConfig.RabbitMQ.URL != "" {
		amqpConn, err = amqp.Dial(appConfig.RabbitMQ.URL)
		if err != nil {
			dbPool.Close()
			return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		dispatcher, err = rabbitmq_adapter.NewJobDispatchAdapter(amqpConn, appConfig.RabbitMQ.QueueName)
		if err != nil {
			amqpConn.Close()
			dbPool.Close()
			return nil, fmt.Errorf("failed to create job dispatch adapter: %w", err)
		}
		consumer, err = rabbitmq_adapter.NewJobConsumer(amqpConn, appConfig.RabbitMQ.QueueName)
		if err != nil {
			amqpConn.Close()
			dbPool.Close()
			return nil, fmt.Errorf("failed to create job consumer: %w", err)
		}
		appLogger.Info("RabbitMQ job queue initialized", port.Fields{"queue": appConfig.RabbitMQ.QueueName})
	} else {
		appLogger.Info("RabbitMQ URL not set, jobs run in-process", nil)
	}

	var dispatchPort port.JobDispatchPort
	if dispatcher != nil {
		dispatchPort = dispatcher
	}
	manager, err := scheduler.NewManager(jobRepo, runJobUseCase, dispatchPort, appConfig.Scheduler.WorkerCount)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to create job manager: %w", err)
	}
	watchdog, err := scheduler.NewWatchdog(jobRepo, appConfig.Scheduler.StaleJobTimeout)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to create watchdog: %w", err)
	}
	sourceScheduler, err := scheduler.NewSourceScheduler(jobRepo, manager, appConfig.Scheduler.ScheduleInterval)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to create source scheduler: %w", err)
	}

	jobHandlers := rest.NewJobHandler(manager, jobRepo)
	propertyHandlers := rest.NewPropertyHandler(propertyRepo, hazardRepo, scoreRepo)
	apiServer := rest.NewServer(appConfig.HTTPPort, jobHandlers, propertyHandlers, baseLogger)
	appLogger.Info("REST API server configured", nil)

	return &App{
		config:          appConfig,
		dbPool:          dbPool,
		apiServer:       apiServer,
		manager:         manager,
		watchdog:        watchdog,
		sourceScheduler: sourceScheduler,
		assessUseCase:   assessUseCase,
		scoreUseCase:    scoreUseCase,
		amqpConn:        amqpConn,
		dispatcher:      dispatcher,
		consumer:        consumer,
		fluentClient:    fluentClient,
		baseLogger:      baseLogger,
		logger:          appLogger,
	}, nil
}

// Run starts every component and blocks until an OS signal or a critical
// failure, then shuts everything down in reverse order.
func (a *App) Run() error {
	appCtx, cancelApp := context.WithCancel(context.Background())
	appCtx = contextkeys.ContextWithLogger(appCtx, a.baseLogger)

	var wg sync.WaitGroup
	errorsCh := make(chan error, 1)

	defer func() {
		a.logger.Info("Shutdown sequence initiated...", nil)

		a.manager.Wait()
		wg.Wait()

		if err := a.apiServer.Stop(context.Background()); err != nil {
			a.logger.Error("Error during API server shutdown", err, nil)
		}

		if a.consumer != nil {
			if err := a.consumer.Close(); err != nil {
				a.logger.Error("Error closing job consumer", err, nil)
			}
		}
		if a.dispatcher != nil {
			if err := a.dispatcher.Close(); err != nil {
				a.logger.Error("Error closing job dispatcher", err, nil)
			}
		}
		if a.amqpConn != nil {
			if err := a.amqpConn.Close(); err != nil {
				a.logger.Error("Error closing AMQP connection", err, nil)
			}
		}

		a.dbPool.Close()
		a.logger.Info("PostgreSQL pool closed.", nil)

		a.logger.Info("Application shut down gracefully.", nil)

		if a.fluentClient != nil {
			if err := a.fluentClient.Close(); err != nil {
				fmt.Printf("ERROR: Error closing fluent client: %v\n", err)
			}
		}
	}()

	a.logger.Info("Application is starting...", nil)

	a.manager.Start(appCtx)

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.watchdog.Run(appCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.sourceScheduler.Run(appCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.runEnrichmentLoop(appCtx)
	}()

	if a.consumer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			handler := func(ctx context.Context, jobID uuid.UUID, source string) error {
				return a.manager.RunJob(ctx, jobID)
			}
			if err := a.consumer.Consume(appCtx, handler); err != nil && appCtx.Err() == nil {
				errorsCh <- fmt.Errorf("job consumer error: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("Starting HTTP server...", port.Fields{"port": a.config.HTTPPort})
		if err := a.apiServer.Start(); err != nil && err != http.ErrServerClosed {
			errorsCh <- fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	a.logger.Info("Application running. Waiting for signals or server error...", nil)
	select {
	case receivedSignal := <-quit:
		a.logger.Warn("Received OS signal, shutting down...", port.Fields{"signal": receivedSignal.String()})
	case err := <-errorsCh:
		a.logger.Error("A critical component failed, shutting down", err, nil)
	}

	cancelApp()
	return nil
}

// runEnrichmentLoop periodically assesses hazards for properties with
// coordinates and scores the ones still lacking a current score.
func (a *App) runEnrichmentLoop(ctx context.Context) {
	logger := a.baseLogger.WithFields(port.Fields{"component": "enrichment_loop"})

	ticker := time.NewTicker(a.config.Scheduler.ScheduleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		assessed, err := a.assessUseCase.ExecuteBatch(ctx, pipelineBatchLimit)
		if err != nil {
			logger.Error("Hazard assessment batch failed", err, nil)
		} else if assessed > 0 {
			logger.Info("Hazard assessment batch finished", port.Fields{"assessed": assessed})
		}

		scored, err := a.scoreUseCase.ExecuteBatch(ctx, pipelineBatchLimit)
		if err != nil {
			logger.Error("Scoring batch failed", err, nil)
		} else if scored > 0 {
			logger.Info("Scoring batch finished", port.Fields{"scored": scored})
		}
	}
}

func buildScraperRegistry(cfg configs.ScrapersConfig) (map[string]port.ScraperPort, error) {
	akiyaScraper, err := akiya.NewScraper(cfg.Akiya.BaseURL, cfg.Akiya.CrawlDelay)
	if err != nil {
		return nil, err
	}
	suumoScraper, err := suumo.NewScraper(cfg.Suumo.BaseURL, cfg.Suumo.CrawlDelay)
	if err != nil {
		return nil, err
	}
	homesScraper, err := homes.NewScraper(cfg.Homes.BaseURL, cfg.Homes.CrawlDelay)
	if err != nil {
		return nil, err
	}
	athomeScraper, err := athome.NewScraper(cfg.Athome.BaseURL, cfg.Athome.CrawlDelay)
	if err != nil {
		return nil, err
	}
	bitScraper, err := bitauction.NewScraper(cfg.BitAuction.BaseURL, cfg.BitAuction.CrawlDelay)
	if err != nil {
		return nil, err
	}

	return map[string]port.ScraperPort{
		"akiya":  akiyaScraper,
		"suumo":  suumoScraper,
		"homes":  homesScraper,
		"athome": athomeScraper,
		"bit":    bitScraper,
	}, nil
}

// noopOverlays satisfies VectorOverlayPort when no Reinfolib key is
// configured. Nil bytes mean "no overlay", which the aggregator treats as
// outside coverage.
type noopOverlays struct{}

func (noopOverlays) GetDisasterZoneTile(ctx context.Context, z, x, y int) ([]byte, error) {
	return nil, nil
}

func (noopOverlays) GetLandslidePreventionTile(ctx context.Context, z, x, y int) ([]byte, error) {
	return nil, nil
}

func (noopOverlays) GetSteepSlopeTile(ctx context.Context, z, x, y int) ([]byte, error) {
	return nil, nil
}

func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		log.Printf("Warning: Unknown log level '%s'. Defaulting to 'info'.", levelStr)
		return slog.LevelInfo
	}
}
