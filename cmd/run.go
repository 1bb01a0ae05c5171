package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"raffle/application"
	"raffle/config"
	"raffle/database"
	"raffle/domain/interfaces"
	"raffle/domain/services"
	"raffle/handlers"
	"raffle/infrastructure"
	"raffle/infrastructure/observability"
	"raffle/repository"
	"raffle/repository/memstore"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// ConfigureLogging applies the configured level and picks JSON output outside development
func ConfigureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	log.WithFields(log.Fields{
		"environment": cfg.Environment,
		"storage":     cfg.Storage,
		"oracle":      cfg.OracleMode,
	}).Info("Starting raffle...")

	// Initialize metrics
	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	metrics := observability.GetMetrics()

	// Initialize event publishing
	var (
		natsClient *infrastructure.NATSClient
		publisher  interfaces.EventPublisher
		registrar  application.LocalHandlerRegistrar
		localBus   *infrastructure.LocalEventBus
	)
	if cfg.UsesNATS() {
		natsClient = infrastructure.NewNATSClient(cfg.NATSServers)
		if err := natsClient.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}

		natsPublisher := infrastructure.NewNATSEventPublisher(natsClient, infrastructure.NewEventSubjectMapper())
		if err := natsPublisher.EnsureDomainEventStream(); err != nil {
			return fmt.Errorf("failed to ensure domain event stream: %w", err)
		}
		publisher, registrar = natsPublisher, natsPublisher
	} else {
		localBus = infrastructure.NewLocalEventBus()
		publisher, registrar = localBus, localBus
		log.Info("NATS not configured, using local event bus")
	}
	application.RegisterMetricsSubscriptions(registrar, metrics)

	// Initialize storage
	var (
		db         *database.DB
		uowFactory interfaces.UnitOfWorkFactory
	)
	switch cfg.Storage {
	case config.StoragePostgres:
		databaseURL := cfg.GetDatabaseURL()
		if err := database.MigrateUp(databaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		var err error
		db, err = database.NewConnection(ctx, databaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		uowFactory = repository.NewUnitOfWorkFactory(db, publisher)
	default:
		log.Warn("Using in-memory storage, state will not survive a restart")
		uowFactory = memstore.NewUnitOfWorkFactory(memstore.NewStore(), publisher)
	}

	// Initialize the randomness oracle
	var (
		oracle      interfaces.RandomnessOracle
		localOracle *infrastructure.LocalRandomnessOracle
	)
	switch cfg.OracleMode {
	case config.OracleModeNATS:
		natsOracle := infrastructure.NewNATSRandomnessOracle(natsClient)
		if err := natsOracle.EnsureOracleStream(); err != nil {
			return fmt.Errorf("failed to ensure oracle stream: %w", err)
		}
		oracle = natsOracle
	default:
		localOracle = infrastructure.NewLocalRandomnessOracle(cfg.LocalOracleDelay)
		oracle = localOracle
	}

	// Initialize the lottery
	engine := services.NewLotteryEngine(services.EngineConfig{
		EntranceFee:      cfg.EntranceFee,
		Interval:         cfg.Interval,
		KeyHash:          cfg.GasLane,
		SubscriptionID:   cfg.SubscriptionID,
		CallbackGasLimit: cfg.CallbackGasLimit,
	}, uowFactory, oracle)
	if err := engine.Restore(ctx); err != nil {
		return fmt.Errorf("failed to restore lottery state: %w", err)
	}

	fulfillments := application.NewRandomnessFulfillmentHandler(engine, metrics)
	if localOracle != nil {
		localOracle.SetReceiver(fulfillments)
	} else {
		if err := natsClient.Subscribe(infrastructure.SubjectRandomnessFulfilled, fulfillments.HandleMessage); err != nil {
			return fmt.Errorf("failed to subscribe to randomness fulfillments: %w", err)
		}
	}

	// Start the upkeep worker
	stopWorker := application.NewUpkeepWorker(engine, cfg.UpkeepPollInterval, metrics).Start(ctx)

	// Start the HTTP server
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	handlers.NewHTTPHandler(engine, fulfillments, services.NewAccountService(uowFactory), metrics).RegisterRoutes(router)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	log.Infof("Raffle is running in %s mode...", cfg.Environment)

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("http server failed: %w", err)
		}
	}

	// Cleanup resources
	log.Info("Shutting down raffle...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down HTTP server")
	}

	stopWorker()

	if localOracle != nil {
		localOracle.Stop()
	}
	if localBus != nil {
		localBus.Wait()
	}

	if natsClient != nil {
		if err := natsClient.Close(); err != nil {
			log.WithError(err).Error("Error closing NATS connection")
		}
	}

	if db != nil {
		log.Info("Closing database connection...")
		db.Close()
	}

	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down metrics")
	}

	log.Info("Shutdown completed")
	return runErr
}
