/**
 * @description
 * Request and response payloads for the HTTP API. Keeping DTOs distinct from
 * the persisted entities keeps the wire contract independent of storage.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DepositRequest funds a wallet directly. Reference is optional; the service
// generates one when absent. A supplied reference makes the call replay-safe.
type DepositRequest struct {
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	Reference string          `json:"reference,omitempty" validate:"omitempty,max=120"`
}

// WithdrawRequest moves funds out of the wallet.
type WithdrawRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

// CreateGoalRequest creates a savings goal. When ProductID is set the target
// amount is resolved from the product's current price, which is authoritative
// over any client-supplied target.
type CreateGoalRequest struct {
	Name          string           `json:"name" validate:"required,min=1,max=120"`
	Description   *string          `json:"description,omitempty" validate:"omitempty,max=500"`
	TargetAmount  *decimal.Decimal `json:"target_amount,omitempty"`
	ProductID     *uuid.UUID       `json:"product_id,omitempty"`
	Deadline      *time.Time       `json:"deadline,omitempty"`
	IsRecurring   bool             `json:"is_recurring"`
	MonthlyAmount *decimal.Decimal `json:"monthly_amount,omitempty"`
	SavingsDay    *int             `json:"savings_day,omitempty" validate:"omitempty,min=1,max=28"`
}

// FundGoalRequest moves funds from the owner's wallet into a goal.
type FundGoalRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

// GoalWithdrawRequest reclaims funds from a goal back into the wallet. A nil
// amount reclaims the goal's full current balance.
type GoalWithdrawRequest struct {
	Amount *decimal.Decimal `json:"amount,omitempty"`
}

// RecurringSettingsRequest updates a goal's auto-debit configuration.
type RecurringSettingsRequest struct {
	IsRecurring   *bool            `json:"is_recurring,omitempty"`
	MonthlyAmount *decimal.Decimal `json:"monthly_amount,omitempty"`
	SavingsDay    *int             `json:"savings_day,omitempty" validate:"omitempty,min=1,max=28"`
}

// PayoutRequest asks for a merchant payout. Funds are held the moment the
// request is accepted, not when an admin approves it.
type PayoutRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

// RejectPayoutRequest carries the admin's rejection reason.
type RejectPayoutRequest struct {
	Reason string `json:"reason" validate:"required,min=1,max=500"`
}

// CreateMerchantProfileRequest registers the caller as a merchant.
type CreateMerchantProfileRequest struct {
	BusinessName    string  `json:"business_name" validate:"required,min=1,max=160"`
	BankName        *string `json:"bank_name,omitempty" validate:"omitempty,max=120"`
	BankAccountNo   *string `json:"bank_account_no,omitempty" validate:"omitempty,max=40"`
	BankAccountName *string `json:"bank_account_name,omitempty" validate:"omitempty,max=160"`
}

// FulfillPaymentRequest completes a PENDING gateway-backed transaction once the
// external charge has been verified by the caller.
type FulfillPaymentRequest struct {
	Reference string `json:"reference" validate:"required,min=1,max=120"`
}

// WalletOperationResult pairs the updated wallet with the ledger entry that
// recorded the movement.
type WalletOperationResult struct {
	Wallet      *Wallet      `json:"wallet"`
	Transaction *Transaction `json:"transaction"`
}

// GoalOperationResult pairs the updated goal with the ledger entry.
type GoalOperationResult struct {
	Goal        *Goal        `json:"goal"`
	Transaction *Transaction `json:"transaction"`
}

// ListOptions controls pagination for admin listings.
type ListOptions struct {
	Limit  int
	Offset int
}
