package api

import (
	"github.com/focusdeck/creditcore/internal/api/cron"
	v1 "github.com/focusdeck/creditcore/internal/api/v1"
	"github.com/focusdeck/creditcore/internal/config"
	"github.com/focusdeck/creditcore/internal/logger"
	"github.com/focusdeck/creditcore/internal/rest/middleware"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Handlers struct {
	Health      *v1.HealthHandler
	Account     *v1.AccountHandler
	Ledger      *v1.LedgerHandler
	Entitlement *v1.EntitlementHandler
	Webhook     *v1.WebhookHandler
	CronSweeper *cron.SweeperHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, logger *logger.Logger) *gin.Engine {
	router := gin.Default()

	router.Use(
		middleware.RequestIDMiddleware,
		middleware.TenantMiddleware,
		middleware.ErrorHandler(),
	)

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", handlers.Health.Health)

	// v1 routes
	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	// Cron routes live outside /v1 so platform schedulers can be pointed at
	// a stable path
	cronGroup := router.Group("/cron")
	registerCronRoutes(cronGroup, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	// Account routes
	accounts := router.Group("/accounts")
	{
		accounts.POST("", handlers.Account.CreateAccount)
		accounts.GET("/:id", handlers.Account.GetAccount)
		accounts.GET("/:id/balance", handlers.Account.GetBalance)
		accounts.GET("/:id/transactions", handlers.Account.ListTransactions)
		accounts.GET("/:id/entitlements", handlers.Entitlement.GetEntitlements)
		accounts.POST("/:id/debit", handlers.Ledger.DebitCredits)
	}

	// Webhook routes
	webhooks := router.Group("/webhooks")
	{
		webhooks.POST("/:provider", handlers.Webhook.HandleBillingEvent)
	}
}

func registerCronRoutes(router *gin.RouterGroup, handlers Handlers) {
	sweeps := router.Group("/sweeps")
	{
		sweeps.POST("", handlers.CronSweeper.RunSweep)
		sweeps.POST("/expirations", handlers.CronSweeper.RunExpirations)
		sweeps.POST("/renewals", handlers.CronSweeper.RunRenewals)
	}
}
