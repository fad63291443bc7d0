package service

import (
	"context"
	"time"

	"github.com/focusdeck/creditcore/internal/api/dto"
	"github.com/focusdeck/creditcore/internal/domain/ledger"
	"github.com/focusdeck/creditcore/internal/idempotency"
	"github.com/focusdeck/creditcore/internal/types"
)

// AccountService registers accounts and exposes their ledger state
type AccountService interface {
	CreateAccount(ctx context.Context, req *dto.CreateAccountRequest) (*dto.AccountResponse, error)
	GetAccount(ctx context.Context, id string) (*dto.AccountResponse, error)
	GetBalance(ctx context.Context, accountID string) (*dto.BalanceResponse, error)
	GetTransactions(ctx context.Context, f *ledger.TransactionFilter) (*dto.ListTransactionsResponse, error)
}

type accountService struct {
	ServiceParams
	ledgerSvc LedgerService
	idempGen  *idempotency.Generator
}

// NewAccountService creates a new instance of AccountService
func NewAccountService(params ServiceParams) AccountService {
	return &accountService{
		ServiceParams: params,
		ledgerSvc:     NewLedgerService(params),
		idempGen:      idempotency.NewGenerator(),
	}
}

// CreateAccount registers the account, opens a zeroed balance and applies the
// first monthly allotment through the ledger so the balance stays a fold over
// the transaction log
func (s *accountService) CreateAccount(ctx context.Context, req *dto.CreateAccountRequest) (*dto.AccountResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	a := req.ToAccount(ctx)
	if err := a.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	cycle := types.CycleKeyFor(now)

	p, err := s.Catalog.Get(a.Tier)
	if err != nil {
		return nil, err
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.AccountRepo.Create(ctx, a); err != nil {
			return err
		}

		balance := &ledger.Balance{
			AccountID: a.ID,
			BaseModel: types.GetDefaultBaseModel(ctx),
		}
		if balance.TenantID == "" {
			balance.TenantID = a.TenantID
		}
		if err := s.LedgerRepo.CreateBalance(ctx, balance); err != nil {
			return err
		}

		key := s.idempGen.GenerateKey(idempotency.ScopeRenewal, map[string]interface{}{
			"account_id": a.ID,
			"cycle":      cycle,
		})

		_, err := s.ledgerSvc.CreditRenewal(ctx, RenewalCommand{
			AccountID:      a.ID,
			NewAllotment:   p.MonthlyCreditAllotment,
			Cycle:          cycle,
			IdempotencyKey: key,
			Description:    "initial monthly allotment",
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("account created",
		"account_id", a.ID,
		"external_id", a.ExternalID,
		"tier", a.Tier,
	)

	return dto.FromAccount(a, now), nil
}

func (s *accountService) GetAccount(ctx context.Context, id string) (*dto.AccountResponse, error) {
	a, err := s.AccountRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.FromAccount(a, time.Now().UTC()), nil
}

func (s *accountService) GetBalance(ctx context.Context, accountID string) (*dto.BalanceResponse, error) {
	// Ensure unknown accounts surface as not found rather than an empty
	// balance
	if _, err := s.AccountRepo.Get(ctx, accountID); err != nil {
		return nil, err
	}

	b, err := s.LedgerRepo.GetBalance(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return dto.FromBalance(b), nil
}

func (s *accountService) GetTransactions(ctx context.Context, f *ledger.TransactionFilter) (*dto.ListTransactionsResponse, error) {
	txns, err := s.LedgerRepo.ListTransactions(ctx, f)
	if err != nil {
		return nil, err
	}

	total, err := s.LedgerRepo.CountTransactions(ctx, f)
	if err != nil {
		return nil, err
	}

	return dto.FromTransactionList(txns, total), nil
}
