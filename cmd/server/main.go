package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/vansh-000/CampusOne/internal/application/service"
	"github.com/vansh-000/CampusOne/internal/config"
	"github.com/vansh-000/CampusOne/internal/infrastructure/persistence/repository"
	"github.com/vansh-000/CampusOne/internal/infrastructure/persistence/sqlite"
	appredis "github.com/vansh-000/CampusOne/internal/infrastructure/redis"
	apphttp "github.com/vansh-000/CampusOne/internal/interfaces/http"
	"github.com/vansh-000/CampusOne/internal/security"
	"github.com/vansh-000/CampusOne/migrations"
	"github.com/vansh-000/CampusOne/pkg/database"
	"github.com/vansh-000/CampusOne/pkg/utils"
)

func main() {
	_ = gotenv.Load()

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

	logger.Info("Starting CampusOne API server",
		zap.Int("port", cfg.Server.Port))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	if err := database.NewMigrator(db, migrations.Files, logger).Run(); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	redisClient, err := appredis.NewClient(ctx, appredis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	txManager := sqlite.NewDB(db.DB, logger)
	appRepo := repository.NewApplicationRepository(db.DB, logger)
	nodeRepo := repository.NewFlowNodeRepository(db.DB, logger)
	userRepo := repository.NewUserRepository(db.DB, logger)
	studentRepo := repository.NewStudentRepository(db.DB, logger)
	facultyRepo := repository.NewFacultyRepository(db.DB, logger)
	importRepo := repository.NewImportJobRepository(db.DB, logger)

	eventBus := appredis.NewEventBus(redisClient)
	importQueue := appredis.NewImportQueue(redisClient)

	applicationService := service.NewApplicationService(
		appRepo, nodeRepo, userRepo, txManager, eventBus,
		cfg.Workflow.RequireDatesForLeave, logger,
	)
	registrationService := service.NewRegistrationService(
		userRepo, studentRepo, facultyRepo, txManager, logger,
	)
	importService := service.NewImportService(
		importRepo, registrationService, importQueue, txManager, logger,
	)

	tokens := security.NewTokenProvider(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)

	server := apphttp.NewServer(apphttp.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, applicationService, importService, tokens, userRepo, logger)

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server shut down cleanly")
}
