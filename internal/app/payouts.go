/**
 * @description
 * Merchant payout flow. Funds are held (debited from the merchant balance) the
 * moment a payout request is accepted, so an approved payout never discovers
 * missing funds. Rejection applies the compensating credit in the same unit
 * that cancels the request.
 */

package app

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/domain"
	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/ledger"
	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/store"
)

// RequestPayout holds the requested amount from the caller's merchant balance
// and records a PENDING payout for admin review.
func (s *Service) RequestPayout(ctx context.Context, userID uuid.UUID, req domain.PayoutRequest) (*domain.Transaction, error) {
	wallet, err := s.repo.FindOrCreateWalletByUserID(ctx, userID, s.currency)
	if err != nil {
		return nil, fmt.Errorf("failed to provision wallet: %w", err)
	}

	reference := newReference("PO")
	tx, replayed, err := s.executor.Execute(ctx, reference, func(ctx context.Context, u store.Unit) (*domain.Transaction, error) {
		merchant, err := u.MerchantByUserIDForUpdate(ctx, userID)
		if err != nil {
			return nil, err
		}
		transition, err := ledger.HoldPayout(merchant, req.Amount)
		if err != nil {
			return nil, err
		}
		if err := u.SetMerchantBalance(ctx, merchant.ID, transition.BalanceAfter); err != nil {
			return nil, err
		}
		entry := &domain.Transaction{
			WalletID:          wallet.ID,
			MerchantProfileID: &merchant.ID,
			Type:              domain.TxMerchantPayout,
			Amount:            req.Amount,
			Status:            domain.TxPending,
			Reference:         reference,
			BalanceBefore:     &transition.BalanceBefore,
			BalanceAfter:      &transition.BalanceAfter,
			Metadata:          map[string]any{"kind": "payout_request"},
		}
		if err := u.InsertTransaction(ctx, entry); err != nil {
			return nil, err
		}
		audit := &domain.AuditLog{
			UserID:     &userID,
			Action:     "payout.request",
			Resource:   "merchant_profile",
			ResourceID: auditResourceID(merchant.ID),
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
		s.notify(ctx, userID, "payout", "Payout requested",
			fmt.Sprintf("Your payout request for %s %s is pending review.", s.currency, req.Amount.StringFixed(2)),
			map[string]any{"transaction_id": tx.ID.String()})
	}
	return tx, nil
}

// ApprovePayout marks a pending payout as completed. The funds were already
// held at request time, so approval changes no balance.
func (s *Service) ApprovePayout(ctx context.Context, adminID, transactionID uuid.UUID) (*domain.Transaction, error) {
	tx, _, err := s.executor.Execute(ctx, "", func(ctx context.Context, u store.Unit) (*domain.Transaction, error) {
		entry, err := u.TransactionForUpdate(ctx, transactionID)
		if err != nil {
			return nil, err
		}
		if entry.Type != domain.TxMerchantPayout || entry.MerchantProfileID == nil {
			return nil, store.ErrTransactionNotFound
		}
		if err := u.FinalizeTransaction(ctx, entry.ID, domain.TxCompleted, map[string]any{"approved_by": adminID.String()}); err != nil {
			return nil, err
		}
		audit := &domain.AuditLog{
			UserID:     &adminID,
			Action:     "payout.approve",
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
		return nil, err
	}

	s.notifyMerchantUser(ctx, tx, "Payout approved",
		fmt.Sprintf("Your payout of %s %s was approved.", s.currency, tx.Amount.StringFixed(2)))
	return tx, nil
}

// RejectPayout cancels a pending payout and credits the held amount back to
// the merchant. The status flip and the compensating credit are one unit, so a
// rejection can never lose or double-restore funds.
func (s *Service) RejectPayout(ctx context.Context, adminID, transactionID uuid.UUID, req domain.RejectPayoutRequest) (*domain.Transaction, error) {
	tx, _, err := s.executor.Execute(ctx, "", func(ctx context.Context, u store.Unit) (*domain.Transaction, error) {
		entry, err := u.TransactionForUpdate(ctx, transactionID)
		if err != nil {
			return nil, err
		}
		if entry.Type != domain.TxMerchantPayout || entry.MerchantProfileID == nil {
			return nil, store.ErrTransactionNotFound
		}
		// The status flip doubles as the idempotency gate: a second rejection
		// finds a non-PENDING row and stops before touching the balance.
		if err := u.FinalizeTransaction(ctx, entry.ID, domain.TxFailed, map[string]any{
			"rejected_by": adminID.String(),
			"reason":      req.Reason,
		}); err != nil {
			return nil, err
		}
		merchant, err := u.MerchantForUpdate(ctx, *entry.MerchantProfileID)
		if err != nil {
			return nil, err
		}
		transition, err := ledger.ReleasePayout(merchant, entry.Amount)
		if err != nil {
			return nil, err
		}
		if err := u.SetMerchantBalance(ctx, merchant.ID, transition.BalanceAfter); err != nil {
			return nil, err
		}
		audit := &domain.AuditLog{
			UserID:     &adminID,
			Action:     "payout.reject",
			Resource:   "transaction",
			ResourceID: auditResourceID(entry.ID),
			OldValue:   map[string]any{"status": string(domain.TxPending), "merchant_balance": transition.BalanceBefore.String()},
			NewValue:   map[string]any{"status": string(domain.TxFailed), "merchant_balance": transition.BalanceAfter.String()},
		}
		if err := u.InsertAudit(ctx, audit); err != nil {
			return nil, err
		}
		entry.Status = domain.TxFailed
		return entry, nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyMerchantUser(ctx, tx, "Payout rejected",
		fmt.Sprintf("Your payout of %s %s was rejected: %s", s.currency, tx.Amount.StringFixed(2), req.Reason))
	return tx, nil
}

// ListPendingPayouts lists payout requests awaiting an admin decision.
func (s *Service) ListPendingPayouts(ctx context.Context) ([]domain.Transaction, error) {
	return s.repo.ListPendingPayouts(ctx)
}

func (s *Service) notifyMerchantUser(ctx context.Context, tx *domain.Transaction, title, message string) {
	if tx.MerchantProfileID == nil {
		return
	}
	merchant, err := s.repo.FindMerchantByID(ctx, *tx.MerchantProfileID)
	if err != nil {
		log.Printf("level=warn component=service msg=\"failed to load merchant for payout notice\" merchant_id=%s err=%v", tx.MerchantProfileID, err)
		return
	}
	s.notify(ctx, merchant.UserID, "payout", title, message, map[string]any{"transaction_id": tx.ID.String()})
}
