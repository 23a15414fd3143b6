package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/notify"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/storage"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

const noticeInboxSize = 50

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := bootstrap()
			defer logger.Sync() //nolint:errcheck
			return serve(cfg, logger)
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := bootstrap()
			defer logger.Sync() //nolint:errcheck

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pg.Close()

			if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
			fmt.Println("Migrations executed successfully.")
			return nil
		},
	}
}

func newSeedUsersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-users",
		Short: "Create the default demo accounts if they do not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := bootstrap()
			defer logger.Sync() //nolint:errcheck

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pg.Close()

			authService := service.NewAuthService(service.AuthDependencies{
				UserRepo:   repository.NewUserRepository(pg.Pool),
				Tokens:     auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
				BcryptCost: cfg.Auth.BcryptCost,
				Logger:     logger,
			})
			for _, seed := range service.DefaultSeedUsers(cfg.Auth.SeedPassword) {
				user, created, err := authService.EnsureUser(ctx, seed)
				if err != nil {
					return fmt.Errorf("seed %s: %w", seed.Username, err)
				}
				logger.Info("seed user", zap.String("username", user.Username), zap.Bool("created", created))
			}
			return nil
		},
	}
}

func bootstrap() (*config.Config, *zap.Logger) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	return cfg, logger
}

func serve(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	pool := pg.Pool
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	statsRepo := repository.NewStatsRepository(pool)
	noticeRepo := repository.NewNoticeRepository(redis.Client, cfg.Cache.NoticeTTL(), noticeInboxSize)
	dashboardCache := repository.NewDashboardCache(redis.Client, cfg.Cache.DashboardTTL())

	blobs, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("init blob storage: %w", err)
	}

	sender, closeSenders, err := notify.Build(cfg.Notification, logger)
	if err != nil {
		return fmt.Errorf("init notification channels: %w", err)
	}
	defer closeSenders()

	dispatcher := events.NewInMemoryDispatcher(logger)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	categoryService := service.NewCategoryService(categoryRepo, cfg.Cache.CategoryTTL())
	attachmentService := service.NewAttachmentService(service.AttachmentDependencies{
		AttachmentRepo: attachmentRepo,
		TicketRepo:     ticketRepo,
		Blobs:          blobs,
		MaxBytes:       cfg.Storage.MaxUploadBytes,
		Logger:         logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:    ticketRepo,
		CommentRepo:   commentRepo,
		UserRepo:      userRepo,
		Categories:    categoryService,
		Blobs:         attachmentService,
		Sender:        sender,
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Logger:        logger,
		NotifyTimeout: cfg.Notification.Timeout(),
	})
	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:   userRepo,
		Tokens:     tokens,
		BcryptCost: cfg.Auth.BcryptCost,
		Logger:     logger,
	})
	dashboardService := service.NewDashboardService(statsRepo, dashboardCache, logger)
	notificationService := service.NewNotificationService(dispatcher, noticeRepo, logger)

	worker.StartNotificationWorker(dispatcher, notificationService, dashboardService)

	scheduler, err := worker.NewScheduler(cfg.Cache.DashboardWarmSpec, dashboardService, logger)
	if err != nil {
		return fmt.Errorf("init dashboard warmer: %w", err)
	}
	scheduler.Start()

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: int(cfg.Storage.MaxUploadBytes) + 1<<20,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	var authLimiter fiber.Handler
	if cfg.RateLimit.Enabled {
		authLimiter = httptransport.NewAuthLimiter(redis.Client, cfg.RateLimit)
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService, notificationService),
		Categories:     handlers.NewCategoriesHandler(categoryService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Attachments:    handlers.NewAttachmentsHandler(attachmentService),
		Dashboard:      handlers.NewDashboardHandler(dashboardService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, userRepo),
		AuthLimiter:    authLimiter,
		Metrics:        metrics,
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-listenErr:
		scheduler.Stop(context.Background())
		return fmt.Errorf("fiber listen: %w", err)
	case sig := <-waitForShutdown():
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	scheduler.Stop(shutdownCtx)
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	return nil
}

func waitForShutdown() <-chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	return sigCh
}
