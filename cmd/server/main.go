package main

import (
	"context"
	"time"

	_ "github.com/focusdeck/creditcore/docs/swagger"
	"github.com/focusdeck/creditcore/internal/api"
	"github.com/focusdeck/creditcore/internal/api/cron"
	v1 "github.com/focusdeck/creditcore/internal/api/v1"
	"github.com/focusdeck/creditcore/internal/config"
	"github.com/focusdeck/creditcore/internal/domain/account"
	"github.com/focusdeck/creditcore/internal/domain/ledger"
	"github.com/focusdeck/creditcore/internal/domain/plan"
	"github.com/focusdeck/creditcore/internal/logger"
	"github.com/focusdeck/creditcore/internal/postgres"
	"github.com/focusdeck/creditcore/internal/repository"
	"github.com/focusdeck/creditcore/internal/scheduler"
	"github.com/focusdeck/creditcore/internal/service"
	"github.com/focusdeck/creditcore/internal/types"
	"github.com/focusdeck/creditcore/internal/validator"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

// @title Focusdeck Credit Core API
// @version 1.0
// @description Credit ledger and subscription lifecycle service for Focusdeck
// @BasePath /v1
// @schemes http https

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	validator.NewValidator()

	app := fx.New(
		fx.Provide(
			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Postgres
			postgres.NewDB,
			provideDBClient,

			// Repositories
			repository.NewAccountRepository,
			repository.NewLedgerRepository,

			// Plan catalog
			plan.NewCatalog,

			// Services
			provideServiceParams,
			service.NewAccountService,
			service.NewLedgerService,
			service.NewEntitlementService,
			service.NewBillingService,
			service.NewSweeperService,

			// Scheduler
			scheduler.NewScheduler,

			// API
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(startApp),
	)
	app.Run()
}

func provideDBClient(db *postgres.DB) postgres.IClient {
	return db
}

func provideServiceParams(
	cfg *config.Configuration,
	logger *logger.Logger,
	db postgres.IClient,
	accountRepo account.Repository,
	ledgerRepo ledger.Repository,
	catalog *plan.Catalog,
) service.ServiceParams {
	return service.ServiceParams{
		Logger:      logger,
		Config:      cfg,
		DB:          db,
		AccountRepo: accountRepo,
		LedgerRepo:  ledgerRepo,
		Catalog:     catalog,
	}
}

func provideHandlers(
	cfg *config.Configuration,
	logger *logger.Logger,
	accountService service.AccountService,
	ledgerService service.LedgerService,
	entitlementService service.EntitlementService,
	billingService service.BillingService,
	sweeperService service.SweeperService,
) api.Handlers {
	return api.Handlers{
		Health:      v1.NewHealthHandler(logger),
		Account:     v1.NewAccountHandler(accountService, logger),
		Ledger:      v1.NewLedgerHandler(ledgerService, logger),
		Entitlement: v1.NewEntitlementHandler(entitlementService, logger),
		Webhook:     v1.NewWebhookHandler(billingService, cfg, logger),
		CronSweeper: cron.NewSweeperHandler(logger, sweeperService),
	}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration, logger *logger.Logger) *gin.Engine {
	return api.NewRouter(handlers, cfg, logger)
}

func startApp(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	sched *scheduler.Scheduler,
	db *postgres.DB,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal:
		startAPIServer(lc, r, cfg, log)
		startScheduler(lc, sched, cfg, log)
	case types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
	case types.ModeSweeper:
		startScheduler(lc, sched, cfg, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			db.Close()
			return nil
		},
	})
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}

func startScheduler(
	lc fx.Lifecycle,
	sched *scheduler.Scheduler,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	if !cfg.Sweeper.Enabled {
		log.Info("In-process sweeper disabled, relying on external cron triggers")
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return sched.Start()
		},
		OnStop: func(ctx context.Context) error {
			return sched.Stop(ctx)
		},
	})
}
