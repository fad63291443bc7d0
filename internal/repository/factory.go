package repository

import (
	"github.com/focusdeck/creditcore/internal/domain/account"
	"github.com/focusdeck/creditcore/internal/domain/ledger"
	"github.com/focusdeck/creditcore/internal/logger"
	"github.com/focusdeck/creditcore/internal/postgres"
	postgresRepo "github.com/focusdeck/creditcore/internal/repository/postgres"
)

func NewAccountRepository(db *postgres.DB, logger *logger.Logger) account.Repository {
	return postgresRepo.NewAccountRepository(db, logger)
}

func NewLedgerRepository(db *postgres.DB, logger *logger.Logger) ledger.Repository {
	return postgresRepo.NewLedgerRepository(db, logger)
}
