/**
 * @description
 * Wallet operations: lazy wallet provisioning, direct deposits, withdrawals,
 * and transaction history. Every balance change runs inside one ledger unit.
 */

package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/domain"
	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/ledger"
	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/store"
)

// GetWallet returns the caller's wallet, creating an empty one on first access.
func (s *Service) GetWallet(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	return s.repo.FindOrCreateWalletByUserID(ctx, userID, s.currency)
}

// Deposit credits the caller's wallet. A caller-supplied reference makes the
// call replay-safe: resubmitting the same reference returns the original
// ledger entry without crediting twice.
func (s *Service) Deposit(ctx context.Context, userID uuid.UUID, req domain.DepositRequest) (*domain.WalletOperationResult, error) {
	owned, err := s.repo.FindOrCreateWalletByUserID(ctx, userID, s.currency)
	if err != nil {
		return nil, fmt.Errorf("failed to provision wallet: %w", err)
	}

	reference := req.Reference
	if reference == "" {
		reference = newReference("DEP")
	}

	tx, replayed, err := s.executor.Execute(ctx, reference, func(ctx context.Context, u store.Unit) (*domain.Transaction, error) {
		wallet, err := u.WalletForUpdate(ctx, userID)
		if err != nil {
			return nil, err
		}
		transition, err := ledger.Deposit(wallet.Balance, req.Amount)
		if err != nil {
			return nil, err
		}
		if err := u.SetWalletBalance(ctx, wallet.ID, transition.BalanceAfter); err != nil {
			return nil, err
		}
		entry := &domain.Transaction{
			WalletID:      wallet.ID,
			Type:          domain.TxDeposit,
			Amount:        req.Amount,
			Status:        domain.TxCompleted,
			Reference:     reference,
			BalanceBefore: &transition.BalanceBefore,
			BalanceAfter:  &transition.BalanceAfter,
		}
		if err := u.InsertTransaction(ctx, entry); err != nil {
			return nil, err
		}
		audit := &domain.AuditLog{
			UserID:     &userID,
			Action:     "wallet.deposit",
			Resource:   "wallet",
			ResourceID: auditResourceID(wallet.ID),
			OldValue:   map[string]any{"balance": transition.BalanceBefore.String()},
			NewValue:   map[string]any{"balance": transition.BalanceAfter.String()},
		}
		if err := u.InsertAudit(ctx, audit); err != nil {
			return nil, err
		}
		return entry, nil
	})
	if err != nil {
		return nil, err
	}
	if replayed && tx.WalletID != owned.ID {
		// The reference was first used by a different wallet. Treat it as
		// unknown rather than exposing another user's ledger entry.
		return nil, store.ErrTransactionNotFound
	}

	if !replayed {
		s.notify(ctx, userID, "wallet", "Deposit successful",
			fmt.Sprintf("Your wallet was credited with %s %s.", s.currency, req.Amount.StringFixed(2)),
			map[string]any{"transaction_id": tx.ID.String(), "reference": tx.Reference})
	}

	wallet, err := s.repo.FindWalletByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload wallet: %w", err)
	}
	return &domain.WalletOperationResult{Wallet: wallet, Transaction: tx}, nil
}

// Withdraw debits the caller's wallet, rejecting overdrafts.
func (s *Service) Withdraw(ctx context.Context, userID uuid.UUID, req domain.WithdrawRequest) (*domain.WalletOperationResult, error) {
	reference := newReference("WTH")

	tx, replayed, err := s.executor.Execute(ctx, reference, func(ctx context.Context, u store.Unit) (*domain.Transaction, error) {
		wallet, err := u.WalletForUpdate(ctx, userID)
		if err != nil {
			return nil, err
		}
		transition, err := ledger.Withdraw(wallet.Balance, req.Amount)
		if err != nil {
			return nil, err
		}
		if err := u.SetWalletBalance(ctx, wallet.ID, transition.BalanceAfter); err != nil {
			return nil, err
		}
		entry := &domain.Transaction{
			WalletID:      wallet.ID,
			Type:          domain.TxWithdrawal,
			Amount:        req.Amount,
			Status:        domain.TxCompleted,
			Reference:     reference,
			BalanceBefore: &transition.BalanceBefore,
			BalanceAfter:  &transition.BalanceAfter,
		}
		if err := u.InsertTransaction(ctx, entry); err != nil {
			return nil, err
		}
		audit := &domain.AuditLog{
			UserID:     &userID,
			Action:     "wallet.withdraw",
			Resource:   "wallet",
			ResourceID: auditResourceID(wallet.ID),
			OldValue:   map[string]any{"balance": transition.BalanceBefore.String()},
			NewValue:   map[string]any{"balance": transition.BalanceAfter.String()},
		}
		if err := u.InsertAudit(ctx, audit); err != nil {
			return nil, err
		}
		return entry, nil
	})
	if err != nil {
		return nil, err
	}

	if !replayed {
		s.notify(ctx, userID, "wallet", "Withdrawal successful",
			fmt.Sprintf("You withdrew %s %s from your wallet.", s.currency, req.Amount.StringFixed(2)),
			map[string]any{"transaction_id": tx.ID.String(), "reference": tx.Reference})
	}

	wallet, err := s.repo.FindWalletByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload wallet: %w", err)
	}
	return &domain.WalletOperationResult{Wallet: wallet, Transaction: tx}, nil
}

// ListWalletTransactions returns the caller's ledger history, newest first.
func (s *Service) ListWalletTransactions(ctx context.Context, userID uuid.UUID, opts domain.ListOptions) ([]domain.Transaction, error) {
	wallet, err := s.repo.FindWalletByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListTransactionsByWalletID(ctx, wallet.ID, opts)
}
