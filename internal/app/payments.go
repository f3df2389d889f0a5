/**
 * @description
 * Gateway-backed payment flows. Initializing a payment records a PENDING
 * ledger entry with no balance effect; the balance is applied only when the
 * external charge is confirmed through FulfillPayment. Fulfillment is keyed by
 * the reference handed to the gateway, and applies at most once.
 */

package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/domain"
	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/ledger"
	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/store"
)

// InitializeDeposit records a PENDING deposit awaiting gateway confirmation.
// No balance changes until FulfillPayment sees the reference.
func (s *Service) InitializeDeposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*domain.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ledger.ErrInvalidAmount
	}
	wallet, err := s.repo.FindOrCreateWalletByUserID(ctx, userID, s.currency)
	if err != nil {
		return nil, fmt.Errorf("failed to provision wallet: %w", err)
	}

	reference := newReference("DEP")
	tx, _, err := s.executor.Execute(ctx, reference, func(ctx context.Context, u store.Unit) (*domain.Transaction, error) {
		entry := &domain.Transaction{
			WalletID:  wallet.ID,
			Type:      domain.TxDeposit,
			Amount:    amount,
			Status:    domain.TxPending,
			Reference: reference,
			Metadata:  map[string]any{"channel": "gateway"},
		}
		if err := u.InsertTransaction(ctx, entry); err != nil {
			return nil, err
		}
		return entry, nil
	})
	return tx, err
}

// InitializeGoalFunding records a PENDING goal funding awaiting gateway
// confirmation. The wallet is bypassed: on fulfillment the charged amount is
// deposited and moved into the goal in one unit.
func (s *Service) InitializeGoalFunding(ctx context.Context, userID, goalID uuid.UUID, amount decimal.Decimal) (*domain.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ledger.ErrInvalidAmount
	}
	goal, err := s.repo.FindGoalForUser(ctx, goalID, userID)
	if err != nil {
		return nil, err
	}
	if goal.Status != domain.GoalActive {
		return nil, ledger.ErrGoalNotActive
	}
	wallet, err := s.repo.FindOrCreateWalletByUserID(ctx, userID, s.currency)
	if err != nil {
		return nil, fmt.Errorf("failed to provision wallet: %w", err)
	}

	reference := fmt.Sprintf("FUND-%s-%d", goalID, s.now().UnixMilli())
	tx, _, err := s.executor.Execute(ctx, reference, func(ctx context.Context, u store.Unit) (*domain.Transaction, error) {
		entry := &domain.Transaction{
			WalletID:  wallet.ID,
			GoalID:    &goalID,
			Type:      domain.TxGoalFunding,
			Amount:    amount,
			Status:    domain.TxPending,
			Reference: reference,
			Metadata:  map[string]any{"channel": "gateway"},
		}
		if err := u.InsertTransaction(ctx, entry); err != nil {
			return nil, err
		}
		return entry, nil
	})
	return tx, err
}

// FulfillPayment applies the balance effect of a confirmed gateway payment.
// It is safe to call more than once for the same reference: only the first
// call mutates anything, later calls get the settled entry back.
func (s *Service) FulfillPayment(ctx context.Context, reference string) (*domain.Transaction, error) {
	existing, err := s.repo.FindTransactionByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if existing.Status != domain.TxPending {
		return existing, nil
	}

	var ownerID uuid.UUID
	tx, _, err := s.executor.Execute(ctx, "", func(ctx context.Context, u store.Unit) (*domain.Transaction, error) {
		entry, err := u.PendingTransactionByReferenceForUpdate(ctx, reference)
		if err != nil {
			// A concurrent fulfillment won the race between our read and the lock.
			if errors.Is(err, store.ErrTransactionNotFound) {
				return nil, store.ErrAlreadyProcessed
			}
			return nil, err
		}

		wallet, err := u.WalletByIDForUpdate(ctx, entry.WalletID)
		if err != nil {
			return nil, err
		}
		ownerID = wallet.UserID

		meta := map[string]any{}
		switch entry.Type {
		case domain.TxDeposit:
			transition, err := ledger.Deposit(wallet.Balance, entry.Amount)
			if err != nil {
				return nil, err
			}
			if err := u.SetWalletBalance(ctx, wallet.ID, transition.BalanceAfter); err != nil {
				return nil, err
			}
			meta["balance_before"] = transition.BalanceBefore.String()
			meta["balance_after"] = transition.BalanceAfter.String()

		case domain.TxGoalFunding:
			if entry.GoalID == nil {
				return nil, store.ErrGoalNotFound
			}
			goal, err := u.GoalForUpdate(ctx, *entry.GoalID)
			if err != nil {
				return nil, err
			}
			// The charge already happened externally, so credit the wallet first
			// and then move the same amount into the goal.
			deposit, err := ledger.Deposit(wallet.Balance, entry.Amount)
			if err != nil {
				return nil, err
			}
			wallet.Balance = deposit.BalanceAfter
			transition, err := ledger.FundGoal(wallet, goal, entry.Amount)
			if err != nil {
				return nil, err
			}
			if err := u.SetWalletBalance(ctx, wallet.ID, transition.Wallet.BalanceAfter); err != nil {
				return nil, err
			}
			if err := u.ApplyGoalProgress(ctx, goal.ID, transition.Goal.BalanceAfter, transition.ResultStatus); err != nil {
				return nil, err
			}
			meta["goal_status"] = string(transition.ResultStatus)

		default:
			return nil, fmt.Errorf("reference %s is not a fulfillable payment type", reference)
		}

		if err := u.FinalizeTransaction(ctx, entry.ID, domain.TxCompleted, meta); err != nil {
			return nil, err
		}
		audit := &domain.AuditLog{
			UserID:     &wallet.UserID,
			Action:     "payment.fulfill",
			Resource:   "transaction",
			ResourceID: auditResourceID(entry.ID),
			OldValue:   map[string]any{"status": string(domain.TxPending)},
			NewValue:   map[string]any{"status": string(domain.TxCompleted)},
		}
		if err := u.InsertAudit(ctx, audit); err != nil {
			return nil, err
		}
		entry.Status = domain.TxCompleted
		return entry, nil
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyProcessed) {
			return s.repo.FindTransactionByReference(ctx, reference)
		}
		return nil, err
	}

	s.notify(ctx, ownerID, "wallet", "Payment confirmed",
		fmt.Sprintf("Your payment of %s %s was confirmed.", s.currency, tx.Amount.StringFixed(2)),
		map[string]any{"transaction_id": tx.ID.String(), "reference": tx.Reference})
	return tx, nil
}

// VerifyPayment is the read-only status lookup for a gateway reference. The
// lookup is scoped to the caller's wallet so one user cannot probe another
// user's references.
func (s *Service) VerifyPayment(ctx context.Context, userID uuid.UUID, reference string) (*domain.Transaction, error) {
	tx, err := s.repo.FindTransactionByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	wallet, err := s.repo.FindWalletByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrWalletNotFound) {
			return nil, store.ErrTransactionNotFound
		}
		return nil, err
	}
	if tx.WalletID != wallet.ID {
		return nil, store.ErrTransactionNotFound
	}
	return tx, nil
}
