package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/campusfound/custody-workflow/internal/application/service"
	"github.com/campusfound/custody-workflow/internal/catalog"
	"github.com/campusfound/custody-workflow/internal/chain"
	"github.com/campusfound/custody-workflow/internal/config"
	"github.com/campusfound/custody-workflow/internal/domain/request"
	"github.com/campusfound/custody-workflow/internal/infrastructure/directory"
	"github.com/campusfound/custody-workflow/internal/infrastructure/persistence/repository"
	"github.com/campusfound/custody-workflow/internal/infrastructure/worker"
	httpadapter "github.com/campusfound/custody-workflow/internal/interfaces/http"
	"github.com/campusfound/custody-workflow/internal/routing"
	"github.com/campusfound/custody-workflow/internal/sla"
	"github.com/campusfound/custody-workflow/pkg/database"
	"github.com/campusfound/custody-workflow/pkg/utils"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting custody workflow service",
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.Run(repository.Migrations); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	kvLogger := utils.NewKVLogger(logger)

	// Persistence
	requestRepo := repository.NewRequestRepository(db.DB, logger)
	eventRepo := repository.NewEventRepository(db.DB, logger)
	txManager := repository.NewTxManager(db.DB, logger)

	// Domain components
	dir := directory.New(db.DB, logger)
	router := routing.NewEngine(dir, kvLogger)
	cat := catalog.New(cfg.Workflow.HighValueThreshold, cfg.Workflow.MinProofLength)
	resolver := chain.NewResolver(chain.Thresholds{
		HighValue:     cfg.Workflow.HighValueThreshold,
		VeryHighValue: cfg.Workflow.VeryHighValueThreshold,
	})
	tracker := sla.NewTracker(sla.Config{
		Deadlines: map[request.Priority]time.Duration{
			request.PriorityUrgent: cfg.Sla.UrgentWindow,
			request.PriorityHigh:   cfg.Sla.HighWindow,
			request.PriorityNormal: cfg.Sla.NormalWindow,
			request.PriorityLow:    cfg.Sla.LowWindow,
		},
		ApproachingFraction: cfg.Sla.ApproachingFraction,
	}, requestRepo)

	// Application services
	workflowService := service.NewWorkflowService(
		cat, resolver, router, dir, requestRepo, eventRepo, txManager, kvLogger)
	queryService := service.NewQueryService(requestRepo, kvLogger)

	// Background workers
	manager := worker.NewManager(logger)
	manager.Register(worker.NewSlaWorker(tracker, cfg.Sla.SweepInterval, logger))

	server := httpadapter.NewServer(httpadapter.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, workflowService, queryService, tracker, kvLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := manager.StartAll(ctx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}
	defer manager.StopAll()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}
}
