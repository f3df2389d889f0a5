/**
 * @description
 * Savings goal operations: creation (free-form or product-linked), funding,
 * withdrawal back to the wallet, redemption to the merchant, and recurring
 * auto-debit settings.
 *
 * Key behaviors:
 * - A product-linked goal takes its target amount from the catalog price; any
 *   client-supplied target is ignored.
 * - Funding past the target is allowed. Crossing the target completes the goal
 *   in the same atomic unit as the funding credit.
 * - Redemption requires a COMPLETED product-linked goal and moves the goal's
 *   full balance to the merchant, archiving the goal.
 */

package app

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/domain"
	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/ledger"
	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/store"
)

// CreateGoal creates a savings goal for the caller.
func (s *Service) CreateGoal(ctx context.Context, userID uuid.UUID, req domain.CreateGoalRequest) (*domain.Goal, error) {
	goal := &domain.Goal{
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		Status:      domain.GoalActive,
		Deadline:    req.Deadline,
	}

	if req.ProductID != nil {
		if s.catalog == nil {
			return nil, fmt.Errorf("product-linked goals are not available: no catalog configured")
		}
		product, err := s.catalog.GetProduct(ctx, req.ProductID.String())
		if err != nil {
			return nil, fmt.Errorf("failed to resolve product: %w", err)
		}
		if !product.InStock {
			return nil, fmt.Errorf("product %s is out of stock", product.ID)
		}
		if !product.Price.IsPositive() {
			return nil, fmt.Errorf("product %s has no valid price", product.ID)
		}
		merchantID, err := uuid.Parse(product.MerchantProfileID)
		if err != nil {
			return nil, fmt.Errorf("catalog returned invalid merchant id for product %s: %w", product.ID, err)
		}
		// The catalog price is authoritative; a client-supplied target is ignored.
		goal.ProductID = req.ProductID
		goal.MerchantProfileID = &merchantID
		goal.TargetAmount = product.Price
	} else {
		if req.TargetAmount == nil || !req.TargetAmount.IsPositive() {
			return nil, ledger.ErrInvalidAmount
		}
		goal.TargetAmount = *req.TargetAmount
	}

	if req.IsRecurring {
		if req.MonthlyAmount == nil || !req.MonthlyAmount.IsPositive() {
			return nil, ledger.ErrInvalidAmount
		}
		goal.IsRecurring = true
		goal.MonthlyAmount = req.MonthlyAmount
		day := 1
		if req.SavingsDay != nil {
			day = *req.SavingsDay
		}
		goal.SavingsDay = &day
	} else if req.SavingsDay != nil {
		goal.SavingsDay = req.SavingsDay
	}

	if err := s.repo.CreateGoal(ctx, goal); err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}

	s.notify(ctx, userID, "goal", "Goal created",
		fmt.Sprintf("Your goal %q was created with a target of %s %s.", goal.Name, s.currency, goal.TargetAmount.StringFixed(2)),
		map[string]any{"goal_id": goal.ID.String()})

	return goal, nil
}

// GetGoal returns a goal scoped to its owner.
func (s *Service) GetGoal(ctx context.Context, userID, goalID uuid.UUID) (*domain.Goal, error) {
	return s.repo.FindGoalForUser(ctx, goalID, userID)
}

// ListGoals returns the caller's goals, newest first.
func (s *Service) ListGoals(ctx context.Context, userID uuid.UUID) ([]domain.Goal, error) {
	return s.repo.ListGoalsByUserID(ctx, userID)
}

// FundGoal moves funds from the caller's wallet into one of their goals. When
// the credit carries the goal to or past its target the goal completes in the
// same unit.
func (s *Service) FundGoal(ctx context.Context, userID, goalID uuid.UUID, req domain.FundGoalRequest) (*domain.GoalOperationResult, error) {
	// Ownership check before any lock is taken.
	if _, err := s.repo.FindGoalForUser(ctx, goalID, userID); err != nil {
		return nil, err
	}

	reference := fmt.Sprintf("FUND-%s-%d", goalID, s.now().UnixMilli())
	tx, replayed, err := s.fundGoalWithReference(ctx, userID, goalID, req.Amount, domain.TxGoalFunding, reference)
	if err != nil {
		return nil, err
	}

	goal, err := s.repo.FindGoalForUser(ctx, goalID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload goal: %w", err)
	}

	if !replayed {
		s.notify(ctx, userID, "goal", "Goal funded",
			fmt.Sprintf("You added %s %s to %q.", s.currency, req.Amount.StringFixed(2), goal.Name),
			map[string]any{"goal_id": goal.ID.String(), "transaction_id": tx.ID.String()})
		if goal.Status == domain.GoalCompleted {
			s.notify(ctx, userID, "goal", "Goal completed",
				fmt.Sprintf("Congratulations, %q has reached its target of %s %s.", goal.Name, s.currency, goal.TargetAmount.StringFixed(2)),
				map[string]any{"goal_id": goal.ID.String()})
		}
	}

	return &domain.GoalOperationResult{Goal: goal, Transaction: tx}, nil
}

// fundGoalWithReference is the shared atomic unit behind manual funding and the
// automated monthly debit. The wallet row is locked before the goal row.
func (s *Service) fundGoalWithReference(ctx context.Context, userID, goalID uuid.UUID, amount decimal.Decimal, txType domain.TransactionType, reference string) (*domain.Transaction, bool, error) {
	return s.executor.Execute(ctx, reference, func(ctx context.Context, u store.Unit) (*domain.Transaction, error) {
		wallet, err := u.WalletForUpdate(ctx, userID)
		if err != nil {
			return nil, err
		}
		goal, err := u.GoalForUpdate(ctx, goalID)
		if err != nil {
			return nil, err
		}
		transition, err := ledger.FundGoal(wallet, goal, amount)
		if err != nil {
			return nil, err
		}
		if err := u.SetWalletBalance(ctx, wallet.ID, transition.Wallet.BalanceAfter); err != nil {
			return nil, err
		}
		if err := u.ApplyGoalProgress(ctx, goal.ID, transition.Goal.BalanceAfter, transition.ResultStatus); err != nil {
			return nil, err
		}
		entry := &domain.Transaction{
			WalletID:      wallet.ID,
			GoalID:        &goal.ID,
			Type:          txType,
			Amount:        amount,
			Status:        domain.TxCompleted,
			Reference:     reference,
			BalanceBefore: &transition.Wallet.BalanceBefore,
			BalanceAfter:  &transition.Wallet.BalanceAfter,
			Metadata:      map[string]any{"goal_status": string(transition.ResultStatus)},
		}
		if err := u.InsertTransaction(ctx, entry); err != nil {
			return nil, err
		}
		audit := &domain.AuditLog{
			UserID:     &userID,
			Action:     "goal.fund",
			Resource:   "goal",
			ResourceID: auditResourceID(goal.ID),
			OldValue:   map[string]any{"current_amount": transition.Goal.BalanceBefore.String(), "status": string(domain.GoalActive)},
			NewValue:   map[string]any{"current_amount": transition.Goal.BalanceAfter.String(), "status": string(transition.ResultStatus)},
		}
		if err := u.InsertAudit(ctx, audit); err != nil {
			return nil, err
		}
		return entry, nil
	})
}

// WithdrawFromGoal reclaims funds from a goal back into the wallet. A nil
// amount reclaims the goal's full current balance. The goal's status is left
// untouched.
func (s *Service) WithdrawFromGoal(ctx context.Context, userID, goalID uuid.UUID, req domain.GoalWithdrawRequest) (*domain.GoalOperationResult, error) {
	if _, err := s.repo.FindGoalForUser(ctx, goalID, userID); err != nil {
		return nil, err
	}

	reference := fmt.Sprintf("GWD-%s-%d", goalID, s.now().UnixMilli())
	tx, replayed, err := s.executor.Execute(ctx, reference, func(ctx context.Context, u store.Unit) (*domain.Transaction, error) {
		wallet, err := u.WalletForUpdate(ctx, userID)
		if err != nil {
			return nil, err
		}
		goal, err := u.GoalForUpdate(ctx, goalID)
		if err != nil {
			return nil, err
		}
		amount := goal.CurrentAmount
		if req.Amount != nil {
			amount = *req.Amount
		}
		transition, err := ledger.ReclaimFromGoal(goal, wallet, amount)
		if err != nil {
			return nil, err
		}
		if err := u.ApplyGoalProgress(ctx, goal.ID, transition.Goal.BalanceAfter, goal.Status); err != nil {
			return nil, err
		}
		if err := u.SetWalletBalance(ctx, wallet.ID, transition.Wallet.BalanceAfter); err != nil {
			return nil, err
		}
		entry := &domain.Transaction{
			WalletID:      wallet.ID,
			GoalID:        &goal.ID,
			Type:          domain.TxGoalWithdrawal,
			Amount:        amount,
			Status:        domain.TxCompleted,
			Reference:     reference,
			BalanceBefore: &transition.Wallet.BalanceBefore,
			BalanceAfter:  &transition.Wallet.BalanceAfter,
		}
		if err := u.InsertTransaction(ctx, entry); err != nil {
			return nil, err
		}
		audit := &domain.AuditLog{
			UserID:     &userID,
			Action:     "goal.withdraw",
			Resource:   "goal",
			ResourceID: auditResourceID(goal.ID),
			OldValue:   map[string]any{"current_amount": transition.Goal.BalanceBefore.String()},
			NewValue:   map[string]any{"current_amount": transition.Goal.BalanceAfter.String()},
		}
		if err := u.InsertAudit(ctx, audit); err != nil {
			return nil, err
		}
		return entry, nil
	})
	if err != nil {
		return nil, err
	}

	goal, err := s.repo.FindGoalForUser(ctx, goalID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload goal: %w", err)
	}
	if !replayed {
		s.notify(ctx, userID, "goal", "Goal withdrawal",
			fmt.Sprintf("You moved %s %s from %q back to your wallet.", s.currency, tx.Amount.StringFixed(2), goal.Name),
			map[string]any{"goal_id": goal.ID.String(), "transaction_id": tx.ID.String()})
	}
	return &domain.GoalOperationResult{Goal: goal, Transaction: tx}, nil
}

// RedeemGoal converts a completed product-linked goal into a merchant credit.
// The goal's full balance moves to the merchant and the goal is archived.
func (s *Service) RedeemGoal(ctx context.Context, userID, goalID uuid.UUID) (*domain.GoalOperationResult, error) {
	if _, err := s.repo.FindGoalForUser(ctx, goalID, userID); err != nil {
		return nil, err
	}
	wallet, err := s.repo.FindOrCreateWalletByUserID(ctx, userID, s.currency)
	if err != nil {
		return nil, fmt.Errorf("failed to provision wallet: %w", err)
	}

	reference := fmt.Sprintf("PAYOUT-%s-%d", goalID, s.now().UnixMilli())
	tx, replayed, err := s.executor.Execute(ctx, reference, func(ctx context.Context, u store.Unit) (*domain.Transaction, error) {
		goal, err := u.GoalForUpdate(ctx, goalID)
		if err != nil {
			return nil, err
		}
		if goal.MerchantProfileID == nil {
			return nil, ledger.ErrNotRedeemable
		}
		merchant, err := u.MerchantForUpdate(ctx, *goal.MerchantProfileID)
		if err != nil {
			return nil, err
		}
		transition, err := ledger.RedeemGoal(goal, merchant)
		if err != nil {
			return nil, err
		}
		if err := u.ApplyGoalProgress(ctx, goal.ID, decimal.Zero, domain.GoalArchived); err != nil {
			return nil, err
		}
		if err := u.SetMerchantBalance(ctx, merchant.ID, transition.Merchant.BalanceAfter); err != nil {
			return nil, err
		}
		entry := &domain.Transaction{
			WalletID:          wallet.ID,
			GoalID:            &goal.ID,
			MerchantProfileID: &merchant.ID,
			Type:              domain.TxMerchantPayout,
			Amount:            transition.Amount,
			Status:            domain.TxCompleted,
			Reference:         reference,
			BalanceBefore:     &transition.Merchant.BalanceBefore,
			BalanceAfter:      &transition.Merchant.BalanceAfter,
			Metadata:          map[string]any{"kind": "goal_redemption"},
		}
		if err := u.InsertTransaction(ctx, entry); err != nil {
			return nil, err
		}
		audit := &domain.AuditLog{
			UserID:     &userID,
			Action:     "goal.redeem",
			Resource:   "goal",
			ResourceID: auditResourceID(goal.ID),
			OldValue:   map[string]any{"status": string(goal.Status), "current_amount": goal.CurrentAmount.String()},
			NewValue:   map[string]any{"status": string(domain.GoalArchived), "current_amount": "0"},
		}
		if err := u.InsertAudit(ctx, audit); err != nil {
			return nil, err
		}
		return entry, nil
	})
	if err != nil {
		return nil, err
	}

	goal, err := s.repo.FindGoalForUser(ctx, goalID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload goal: %w", err)
	}
	if !replayed {
		s.notify(ctx, userID, "goal", "Goal redeemed",
			fmt.Sprintf("%q was redeemed. The merchant has been credited %s %s.", goal.Name, s.currency, tx.Amount.StringFixed(2)),
			map[string]any{"goal_id": goal.ID.String(), "transaction_id": tx.ID.String()})
		if tx.MerchantProfileID != nil {
			if merchant, merr := s.repo.FindMerchantByID(ctx, *tx.MerchantProfileID); merr == nil {
				s.notify(ctx, merchant.UserID, "merchant", "Goal redemption received",
					fmt.Sprintf("A customer redeemed a goal worth %s %s.", s.currency, tx.Amount.StringFixed(2)),
					map[string]any{"transaction_id": tx.ID.String()})
			} else {
				log.Printf("level=warn component=service msg=\"failed to load merchant for redemption notice\" merchant_id=%s err=%v", tx.MerchantProfileID, merr)
			}
		}
	}
	return &domain.GoalOperationResult{Goal: goal, Transaction: tx}, nil
}

// UpdateRecurringSettings patches a goal's auto-debit configuration.
func (s *Service) UpdateRecurringSettings(ctx context.Context, userID, goalID uuid.UUID, req domain.RecurringSettingsRequest) (*domain.Goal, error) {
	if _, err := s.repo.FindGoalForUser(ctx, goalID, userID); err != nil {
		return nil, err
	}
	if req.MonthlyAmount != nil && !req.MonthlyAmount.IsPositive() {
		return nil, ledger.ErrInvalidAmount
	}
	return s.repo.UpdateGoalRecurringSettings(ctx, goalID, store.RecurringSettingsUpdate{
		IsRecurring:   req.IsRecurring,
		MonthlyAmount: req.MonthlyAmount,
		SavingsDay:    req.SavingsDay,
	})
}
