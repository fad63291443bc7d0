package service

import (
	"github.com/focusdeck/creditcore/internal/config"
	"github.com/focusdeck/creditcore/internal/domain/account"
	"github.com/focusdeck/creditcore/internal/domain/ledger"
	"github.com/focusdeck/creditcore/internal/domain/plan"
	"github.com/focusdeck/creditcore/internal/logger"
	"github.com/focusdeck/creditcore/internal/postgres"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	// Repositories
	AccountRepo account.Repository
	LedgerRepo  ledger.Repository

	// Catalog is the static plan catalog
	Catalog *plan.Catalog
}
