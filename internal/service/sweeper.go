package service

import (
	"context"
	"time"

	"github.com/focusdeck/creditcore/internal/api/dto"
	"github.com/focusdeck/creditcore/internal/domain/account"
	"github.com/focusdeck/creditcore/internal/idempotency"
	"github.com/focusdeck/creditcore/internal/types"
)

const defaultSweepBatchSize = 500

// SweeperService is the lifecycle sweeper: it expires stale subscriptions
// and resets monthly allotments. Runs are idempotent per account per cycle;
// re-running after a crash or overlap causes no double-application.
type SweeperService interface {
	Run(ctx context.Context, now time.Time) (*dto.SweepRunResponse, error)
	SweepExpirations(ctx context.Context, now time.Time) (*dto.SweepPassResponse, error)
	SweepRenewals(ctx context.Context, now time.Time) (*dto.SweepPassResponse, error)
}

type sweeperService struct {
	ServiceParams
	ledgerSvc LedgerService
	idempGen  *idempotency.Generator
}

// NewSweeperService creates a new instance of SweeperService
func NewSweeperService(params ServiceParams) SweeperService {
	return &sweeperService{
		ServiceParams: params,
		ledgerSvc:     NewLedgerService(params),
		idempGen:      idempotency.NewGenerator(),
	}
}

func (s *sweeperService) batchSize() int {
	if s.Config != nil && s.Config.Sweeper.BatchSize > 0 {
		return s.Config.Sweeper.BatchSize
	}
	return defaultSweepBatchSize
}

// Run executes the expiration pass first so accounts that lapsed this cycle
// are downgraded before renewals hand out allotments
func (s *sweeperService) Run(ctx context.Context, now time.Time) (*dto.SweepRunResponse, error) {
	run := &dto.SweepRunResponse{
		RunID:     types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SWEEP_RUN),
		StartedAt: now,
	}

	s.Logger.Infow("sweep run starting", "run_id", run.RunID, "now", now)

	expirations, err := s.SweepExpirations(ctx, now)
	if err != nil {
		return nil, err
	}
	run.Expirations = *expirations

	renewals, err := s.SweepRenewals(ctx, now)
	if err != nil {
		return nil, err
	}
	run.Renewals = *renewals

	run.CompletedAt = time.Now().UTC()
	s.Logger.Infow("sweep run completed",
		"run_id", run.RunID,
		"expired", run.Expirations.Success,
		"expire_failures", run.Expirations.Failed,
		"renewed", run.Renewals.Success,
		"renewal_failures", run.Renewals.Failed,
	)
	return run, nil
}

// SweepExpirations downgrades paid accounts whose expiry has passed: claw
// back the monthly bucket (purchased credits survive), then set tier free and
// clear the expiry. Per-account failures are collected, not fatal.
func (s *sweeperService) SweepExpirations(ctx context.Context, now time.Time) (*dto.SweepPassResponse, error) {
	result := &dto.SweepPassResponse{}
	seen := make(map[string]bool)

	for {
		// The sweep may be stopped between account items, never inside one
		if err := ctx.Err(); err != nil {
			return result, err
		}

		accounts, err := s.AccountRepo.ListExpired(ctx, now, s.batchSize())
		if err != nil {
			return result, err
		}
		if len(accounts) == 0 {
			return result, nil
		}

		handledNew := false
		for _, a := range accounts {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			// Failed accounts still match the expiry query; each account is
			// handled at most once per run and failures retry on the next run
			if seen[a.ID] {
				continue
			}
			seen[a.ID] = true
			handledNew = true

			result.Total++
			if err := s.expireAccount(ctx, a); err != nil {
				s.Logger.Errorw("failed to expire account",
					"account_id", a.ID,
					"error", err,
				)
				result.Failed++
				result.FailedAccountIDs = append(result.FailedAccountIDs, a.ID)
				continue
			}
			result.Success++
		}

		if !handledNew {
			return result, nil
		}
	}
}

func (s *sweeperService) expireAccount(ctx context.Context, a *account.Account) error {
	// Sweeper scans cross tenants; downstream queries are tenant scoped
	ctx = context.WithValue(ctx, types.CtxTenantID, a.TenantID)

	key := s.idempGen.GenerateKey(idempotency.ScopeExpiry, map[string]interface{}{
		"account_id": a.ID,
		"expires_at": a.TierExpiresAt.UTC().Format(time.RFC3339),
	})

	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.ledgerSvc.ExpireClawback(ctx, ClawbackCommand{
			AccountID:      a.ID,
			IdempotencyKey: key,
			Description:    "subscription expired",
		}); err != nil {
			return err
		}

		a.Tier = types.TierFree
		a.TierExpiresAt = nil
		return s.AccountRepo.Update(ctx, a)
	})
}

// SweepRenewals applies the catalog allotment once per billing cycle to every
// account whose balance has not yet crossed into the current cycle
func (s *sweeperService) SweepRenewals(ctx context.Context, now time.Time) (*dto.SweepPassResponse, error) {
	result := &dto.SweepPassResponse{}
	cycle := types.CycleKeyFor(now)
	seen := make(map[string]bool)

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		accounts, err := s.AccountRepo.ListRenewalDue(ctx, cycle, s.batchSize())
		if err != nil {
			return result, err
		}
		if len(accounts) == 0 {
			return result, nil
		}

		handledNew := false
		for _, a := range accounts {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			if seen[a.ID] {
				continue
			}
			seen[a.ID] = true
			handledNew = true

			result.Total++
			if err := s.renewAccount(ctx, a, cycle, now); err != nil {
				s.Logger.Errorw("failed to renew account",
					"account_id", a.ID,
					"cycle", cycle,
					"error", err,
				)
				result.Failed++
				result.FailedAccountIDs = append(result.FailedAccountIDs, a.ID)
				continue
			}
			result.Success++
		}

		if !handledNew {
			return result, nil
		}
	}
}

func (s *sweeperService) renewAccount(ctx context.Context, a *account.Account, cycle types.CycleKey, now time.Time) error {
	ctx = context.WithValue(ctx, types.CtxTenantID, a.TenantID)

	// The still-active tier decides the allotment; an account that lapsed
	// but has not been swept yet renews as free
	p, err := s.Catalog.Get(a.EffectiveTier(now))
	if err != nil {
		return err
	}

	key := s.idempGen.GenerateKey(idempotency.ScopeRenewal, map[string]interface{}{
		"account_id": a.ID,
		"cycle":      cycle,
	})

	_, err = s.ledgerSvc.CreditRenewal(ctx, RenewalCommand{
		AccountID:      a.ID,
		NewAllotment:   p.MonthlyCreditAllotment,
		Cycle:          cycle,
		IdempotencyKey: key,
		Description:    "monthly allotment reset",
	})
	return err
}
