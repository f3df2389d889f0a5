/**
 * @description
 * The recurring savings automation. Once a day the batch finds every ACTIVE
 * recurring goal whose savings day matches today and that has not yet been
 * debited this month, and moves the configured monthly amount from the owner's
 * wallet into the goal.
 *
 * Key behaviors:
 * - The ledger reference is deterministic per goal per day, so re-running the
 *   batch on the same day replays instead of charging twice. The month-start
 *   predicate on last_auto_debit_date bounds each goal to one charge a month.
 * - One goal's failure (typically insufficient wallet funds) never aborts the
 *   batch; it is recorded on the result and the owner is notified.
 */

package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/domain"
	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/ledger"
	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/store"
)

// RunDailyAutomation executes the automated savings batch for today.
func (s *Service) RunDailyAutomation(ctx context.Context) (*domain.AutomationResult, error) {
	now := s.now().UTC()
	day := now.Day()
	// Savings days are capped at 28 so a configured day always exists in every
	// month; late-month runs match the cap.
	if day > 28 {
		day = 28
	}
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	goals, err := s.repo.FindDueRecurringGoals(ctx, day, monthStart)
	if err != nil {
		return nil, fmt.Errorf("failed to find due recurring goals: %w", err)
	}

	result := &domain.AutomationResult{Day: day, Errors: []domain.AutomationError{}}
	slog.Info("starting automated savings batch", "day", day, "due_goals", len(goals))

	for _, goal := range goals {
		if goal.MonthlyAmount == nil {
			continue
		}
		reference := fmt.Sprintf("AUTO-%s-%s", goal.ID, now.Format("2006-01-02"))
		tx, replayed, err := s.runAutoDebit(ctx, goal.UserID, goal.ID, reference, now)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, domain.AutomationError{GoalID: goal.ID, Error: err.Error()})
			slog.Error("automated debit failed", "goal_id", goal.ID, "user_id", goal.UserID, "error", err)
			if err == ledger.ErrInsufficientBalance {
				s.notify(ctx, goal.UserID, "automation", "Automated saving skipped",
					fmt.Sprintf("We could not move %s %s into %q: your wallet balance is too low.",
						s.currency, goal.MonthlyAmount.StringFixed(2), goal.Name),
					map[string]any{"goal_id": goal.ID.String()})
			}
			continue
		}
		result.Success++
		if replayed {
			slog.Info("automated debit already applied", "goal_id", goal.ID, "reference", reference)
			continue
		}
		slog.Info("automated debit applied", "goal_id", goal.ID, "transaction_id", tx.ID, "amount", goal.MonthlyAmount.String())
		s.notify(ctx, goal.UserID, "automation", "Automated saving applied",
			fmt.Sprintf("We moved %s %s into %q as scheduled.", s.currency, goal.MonthlyAmount.StringFixed(2), goal.Name),
			map[string]any{"goal_id": goal.ID.String(), "transaction_id": tx.ID.String()})
	}

	slog.Info("automated savings batch finished", "day", day, "success", result.Success, "failed", result.Failed)
	return result, nil
}

// runAutoDebit is one goal's monthly charge: the funding unit plus the
// last-debit stamp that keeps the goal out of the rest of this month's runs.
func (s *Service) runAutoDebit(ctx context.Context, userID, goalID uuid.UUID, reference string, when time.Time) (*domain.Transaction, bool, error) {
	return s.executor.Execute(ctx, reference, func(ctx context.Context, u store.Unit) (*domain.Transaction, error) {
		wallet, err := u.WalletForUpdate(ctx, userID)
		if err != nil {
			return nil, err
		}
		goal, err := u.GoalForUpdate(ctx, goalID)
		if err != nil {
			return nil, err
		}
		if goal.MonthlyAmount == nil {
			return nil, ledger.ErrInvalidAmount
		}
		amount := *goal.MonthlyAmount
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
		if err := u.MarkGoalAutoDebited(ctx, goal.ID, when); err != nil {
			return nil, err
		}
		entry := &domain.Transaction{
			WalletID:      wallet.ID,
			GoalID:        &goal.ID,
			Type:          domain.TxAutomatedSavings,
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
			Action:     "goal.auto_debit",
			Resource:   "goal",
			ResourceID: auditResourceID(goal.ID),
			OldValue:   map[string]any{"current_amount": transition.Goal.BalanceBefore.String()},
			NewValue:   map[string]any{"current_amount": transition.Goal.BalanceAfter.String(), "status": string(transition.ResultStatus)},
		}
		if err := u.InsertAudit(ctx, audit); err != nil {
			return nil, err
		}
		return entry, nil
	})
}
