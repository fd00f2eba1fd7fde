package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/ingest"
	"github.com/spec-kit/helpdesk-service/internal/notify"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/storage"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	cardRepo := repository.NewCardRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	activityRepo := repository.NewActivityRepository(pool)
	customerRepo := repository.NewCustomerRepository(pool)
	agentRepo := repository.NewAgentRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)

	if err := seedBootstrapAgent(ctx, cfg.Auth, agentRepo, logger); err != nil {
		logger.Fatal("failed to seed bootstrap agent", zap.Error(err))
	}

	gateway := storage.NewGateway(storage.NewObjectStore(cfg.Storage), cfg.Storage, logger)
	dispatcher := events.NewInMemoryDispatcher()

	settingsService := service.NewSettingsService(settingsRepo, activityRepo, cfg.Notification, logger)
	cardService := service.NewCardService(service.CardDependencies{
		CardRepo:       cardRepo,
		MessageRepo:    messageRepo,
		AttachmentRepo: attachmentRepo,
		ActivityRepo:   activityRepo,
		Gateway:        gateway,
		Dispatcher:     dispatcher,
		Logger:         logger,
		DefaultStatus:  domain.CardStatus(cfg.Ingestion.DefaultStatus),
	})
	maintenanceService := service.NewMaintenanceService(
		messageRepo, attachmentRepo, activityRepo, gateway, cfg.Maintenance, cfg.Storage, logger)

	notifier := notify.NewNotifier(
		notify.NewSMTPSender(cfg.Notification),
		notify.NewWebhookSender(cfg.Notification.WebhookURL),
		settingsService,
		cfg.Notification,
		logger,
	)
	worker.StartNotificationWorker(dispatcher, notifier)
	worker.StartMaintenanceWorker(ctx, maintenanceService, cfg.Maintenance.Interval(), logger)

	pipeline := ingest.NewPipeline(ingest.PipelineDependencies{
		Cards:      cardRepo,
		Writer:     cardService,
		Customers:  customerRepo,
		Activities: activityRepo,
		Uploader:   gateway,
		Verifier:   ingest.NewDomainVerifier(cfg.Auth.AllowedDomains, customerRepo),
		Directory:  ingest.NewRedisDirectory(redis.Client),
		Locker:     ingest.NewRedisLocker(redis.Client, cfg.Ingestion.ClaimTTL(), logger),
		Dispatcher: dispatcher,
		Logger:     logger,

		LookupTimeout: cfg.Ingestion.LookupTimeout(),
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewMiddleware(tokens)

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{DisableStartupMessage: cfg.App.Env == "production"})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout(), notifier)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Pages:          handlers.NewPagesHandler(cardService, settingsService, cfg.Auth.AdminDomain, logger),
		Actions:        handlers.NewActionsHandler(cardService, settingsService, cfg.Auth.AdminDomain),
		Ingest:         handlers.NewIngestHandler(pipeline, metrics),
		Auth:           handlers.NewAuthHandler(agentRepo, tokens),
		Attachments:    handlers.NewAttachmentsHandler(attachmentRepo, gateway),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	_ = app.Shutdown()
}

// seedBootstrapAgent creates the initial operator account from environment
// configuration so a fresh deployment has a working login. It is a no-op when
// the variables are unset or the account already exists.
func seedBootstrapAgent(ctx context.Context, cfg config.AuthConfig, agents repository.AgentRepository, logger *zap.Logger) error {
	if cfg.BootstrapEmail == "" || cfg.BootstrapPassword == "" {
		return nil
	}
	if _, err := agents.GetByEmail(ctx, cfg.BootstrapEmail); err == nil {
		return nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hashed, err := auth.HashPassword(cfg.BootstrapPassword, cfg.BcryptCost)
	if err != nil {
		return err
	}
	agent := &domain.Agent{
		Email:        cfg.BootstrapEmail,
		Name:         cfg.BootstrapName,
		PasswordHash: hashed,
	}
	if err := agents.Create(ctx, agent); err != nil {
		return err
	}
	logger.Info("bootstrap agent created", zap.String("email", agent.Email))
	return nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
