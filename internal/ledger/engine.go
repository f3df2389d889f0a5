/**
 * @description
 * The balance transition engine: pure functions that compute before/after
 * balance pairs and validate preconditions for every money-movement operation.
 * No I/O happens here. Callers read entity state inside a storage transaction,
 * ask the engine for a transition, and persist the result through the
 * transactional executor so that the computed state is applied atomically.
 */

package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/domain"
)

// Transition is a before/after snapshot of a single mutable balance.
type Transition struct {
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
}

// GoalFundingTransition is the result of crediting a goal from a wallet. The
// wallet transition is the primary one recorded on the ledger entry. When the
// credited amount carries currentAmount to or past the target, ResultStatus is
// COMPLETED and must be applied in the same atomic unit as the funding.
type GoalFundingTransition struct {
	Wallet       Transition
	Goal         Transition
	ResultStatus domain.GoalStatus
}

// GoalReclaimTransition reverses funding: goal debit, wallet credit.
type GoalReclaimTransition struct {
	Goal   Transition
	Wallet Transition
}

// RedemptionTransition archives a completed goal and credits the merchant by
// the goal's full current balance. The merchant transition is primary.
type RedemptionTransition struct {
	Merchant Transition
	Amount   decimal.Decimal
}

// Deposit credits a wallet balance.
func Deposit(balance, amount decimal.Decimal) (Transition, error) {
	if !amount.IsPositive() {
		return Transition{}, ErrInvalidAmount
	}
	return Transition{BalanceBefore: balance, BalanceAfter: balance.Add(amount)}, nil
}

// Withdraw debits a wallet balance, rejecting overdrafts.
func Withdraw(balance, amount decimal.Decimal) (Transition, error) {
	if !amount.IsPositive() {
		return Transition{}, ErrInvalidAmount
	}
	if balance.LessThan(amount) {
		return Transition{}, ErrInsufficientBalance
	}
	return Transition{BalanceBefore: balance, BalanceAfter: balance.Sub(amount)}, nil
}

// FundGoal debits the wallet and credits the goal. Funding past the target is
// permitted; crossing the threshold transitions the goal to COMPLETED.
func FundGoal(wallet *domain.Wallet, goal *domain.Goal, amount decimal.Decimal) (GoalFundingTransition, error) {
	if !amount.IsPositive() {
		return GoalFundingTransition{}, ErrInvalidAmount
	}
	if goal.Status != domain.GoalActive {
		return GoalFundingTransition{}, ErrGoalNotActive
	}
	if wallet.Balance.LessThan(amount) {
		return GoalFundingTransition{}, ErrInsufficientBalance
	}

	goalAfter := goal.CurrentAmount.Add(amount)
	status := domain.GoalActive
	if goalAfter.GreaterThanOrEqual(goal.TargetAmount) {
		status = domain.GoalCompleted
	}

	return GoalFundingTransition{
		Wallet:       Transition{BalanceBefore: wallet.Balance, BalanceAfter: wallet.Balance.Sub(amount)},
		Goal:         Transition{BalanceBefore: goal.CurrentAmount, BalanceAfter: goalAfter},
		ResultStatus: status,
	}, nil
}

// ReclaimFromGoal debits the goal and credits the wallet. The goal's status is
// left untouched; only its balance moves.
func ReclaimFromGoal(goal *domain.Goal, wallet *domain.Wallet, amount decimal.Decimal) (GoalReclaimTransition, error) {
	if !amount.IsPositive() {
		return GoalReclaimTransition{}, ErrInvalidAmount
	}
	if goal.CurrentAmount.LessThan(amount) {
		return GoalReclaimTransition{}, ErrInsufficientGoalBalance
	}
	return GoalReclaimTransition{
		Goal:   Transition{BalanceBefore: goal.CurrentAmount, BalanceAfter: goal.CurrentAmount.Sub(amount)},
		Wallet: Transition{BalanceBefore: wallet.Balance, BalanceAfter: wallet.Balance.Add(amount)},
	}, nil
}

// RedeemGoal validates that a goal can be redeemed and computes the merchant
// credit. Redemption requires a COMPLETED goal linked to a merchant product.
func RedeemGoal(goal *domain.Goal, merchant *domain.MerchantProfile) (RedemptionTransition, error) {
	if goal.Status != domain.GoalCompleted || goal.ProductID == nil {
		return RedemptionTransition{}, ErrNotRedeemable
	}
	return RedemptionTransition{
		Merchant: Transition{
			BalanceBefore: merchant.Balance,
			BalanceAfter:  merchant.Balance.Add(goal.CurrentAmount),
		},
		Amount: goal.CurrentAmount,
	}, nil
}

// HoldPayout reserves merchant funds for a payout request by debiting the
// merchant balance immediately.
func HoldPayout(merchant *domain.MerchantProfile, amount decimal.Decimal) (Transition, error) {
	if !amount.IsPositive() {
		return Transition{}, ErrInvalidAmount
	}
	if merchant.Balance.LessThan(amount) {
		return Transition{}, ErrInsufficientBalance
	}
	return Transition{BalanceBefore: merchant.Balance, BalanceAfter: merchant.Balance.Sub(amount)}, nil
}

// ReleasePayout is the compensating credit applied when a payout is rejected.
// It must be paired 1:1 with the hold it reverses, in the same atomic unit as
// the status update.
func ReleasePayout(merchant *domain.MerchantProfile, amount decimal.Decimal) (Transition, error) {
	if !amount.IsPositive() {
		return Transition{}, ErrInvalidAmount
	}
	return Transition{BalanceBefore: merchant.Balance, BalanceAfter: merchant.Balance.Add(amount)}, nil
}
