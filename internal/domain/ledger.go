/**
 * @description
 * This file defines the core domain models for the savings ledger. These structs
 * represent the entities persisted by the store layer and moved through the
 * business logic: custodial wallets, savings goals, merchant profiles, the
 * immutable transaction ledger, and the append-only audit log.
 *
 * @notes
 * - Monetary amounts use shopspring/decimal throughout. Balances are stored as
 *   NUMERIC in PostgreSQL; floating point is never used for money fields.
 * - Transaction financial fields (amount, balance snapshots) are write-once.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is the ISO 4217 code used when none is configured.
const DefaultCurrency = "GHS"

// GoalStatus enumerates the lifecycle states of a savings goal.
type GoalStatus string

const (
	GoalActive    GoalStatus = "ACTIVE"
	GoalCompleted GoalStatus = "COMPLETED"
	GoalArchived  GoalStatus = "ARCHIVED"
	GoalCancelled GoalStatus = "CANCELLED"
)

// TransactionType enumerates the kinds of ledger entries.
type TransactionType string

const (
	TxDeposit          TransactionType = "DEPOSIT"
	TxWithdrawal       TransactionType = "WITHDRAWAL"
	TxGoalFunding      TransactionType = "GOAL_FUNDING"
	TxGoalWithdrawal   TransactionType = "GOAL_WITHDRAWAL"
	TxAutomatedSavings TransactionType = "AUTOMATED_SAVINGS"
	TxMerchantPayout   TransactionType = "MERCHANT_PAYOUT"
)

// TransactionStatus enumerates ledger entry states. A transaction is terminal
// once it leaves PENDING; only processing metadata may be attached afterwards.
type TransactionStatus string

const (
	TxPending   TransactionStatus = "PENDING"
	TxCompleted TransactionStatus = "COMPLETED"
	TxFailed    TransactionStatus = "FAILED"
	TxCancelled TransactionStatus = "CANCELLED"
)

// Wallet is the custodial wallet, one per user. It is created lazily on first
// access and mutated only inside a ledger unit.
type Wallet struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Goal is a named savings target owned by a user, optionally linked to a
// merchant product which fixes the target amount at creation time.
type Goal struct {
	ID                uuid.UUID        `json:"id"`
	UserID            uuid.UUID        `json:"user_id"`
	Name              string           `json:"name"`
	Description       *string          `json:"description,omitempty"`
	TargetAmount      decimal.Decimal  `json:"target_amount"`
	CurrentAmount     decimal.Decimal  `json:"current_amount"`
	Status            GoalStatus       `json:"status"`
	ProductID         *uuid.UUID       `json:"product_id,omitempty"`
	MerchantProfileID *uuid.UUID       `json:"merchant_profile_id,omitempty"`
	IsRecurring       bool             `json:"is_recurring"`
	MonthlyAmount     *decimal.Decimal `json:"monthly_amount,omitempty"`
	SavingsDay        *int             `json:"savings_day,omitempty"`
	LastAutoDebitDate *time.Time       `json:"last_auto_debit_date,omitempty"`
	Deadline          *time.Time       `json:"deadline,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// MerchantProfile holds a merchant's redemption balance and advisory bank
// details used when paying out.
type MerchantProfile struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	BusinessName    string          `json:"business_name"`
	Balance         decimal.Decimal `json:"balance"`
	IsVerified      bool            `json:"is_verified"`
	BankName        *string         `json:"bank_name,omitempty"`
	BankAccountNo   *string         `json:"bank_account_no,omitempty"`
	BankAccountName *string         `json:"bank_account_name,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Transaction is an immutable ledger entry. BalanceBefore/BalanceAfter snapshot
// the primary balance affected: the wallet balance for wallet-type operations,
// the merchant balance for payout operations.
type Transaction struct {
	ID                uuid.UUID         `json:"id"`
	WalletID          uuid.UUID         `json:"wallet_id"`
	GoalID            *uuid.UUID        `json:"goal_id,omitempty"`
	MerchantProfileID *uuid.UUID        `json:"merchant_profile_id,omitempty"`
	Type              TransactionType   `json:"type"`
	Amount            decimal.Decimal   `json:"amount"`
	Status            TransactionStatus `json:"status"`
	Reference         string            `json:"reference"`
	BalanceBefore     *decimal.Decimal  `json:"balance_before,omitempty"`
	BalanceAfter      *decimal.Decimal  `json:"balance_after,omitempty"`
	Metadata          map[string]any    `json:"metadata,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}

// AuditLog is an append-only record of a sensitive action. It is never mutated
// and is kept separate from the transaction ledger.
type AuditLog struct {
	ID         uuid.UUID      `json:"id"`
	UserID     *uuid.UUID     `json:"user_id,omitempty"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	ResourceID *string        `json:"resource_id,omitempty"`
	OldValue   map[string]any `json:"old_value,omitempty"`
	NewValue   map[string]any `json:"new_value,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// AutomationError records a single goal failure inside a daily automation run.
type AutomationError struct {
	GoalID uuid.UUID `json:"goal_id"`
	Error  string    `json:"error"`
}

// AutomationResult summarizes a daily automation batch. One goal's failure
// never aborts the batch; it is accumulated here instead.
type AutomationResult struct {
	Day     int               `json:"day"`
	Success int               `json:"success"`
	Failed  int               `json:"failed"`
	Errors  []AutomationError `json:"errors"`
}

// SystemStats is the aggregate view served to the admin surface.
type SystemStats struct {
	Users             int64           `json:"users"`
	Merchants         int64           `json:"merchants"`
	ActiveGoals       int64           `json:"active_goals"`
	TotalSaved        decimal.Decimal `json:"total_saved"`
	TotalTransactions int64           `json:"total_transactions"`
}

// InAppNotification is the persisted in-app channel record. External channel
// delivery (SMS/WhatsApp/email) is handled outside this service.
type InAppNotification struct {
	ID        uuid.UUID      `json:"id"`
	UserID    uuid.UUID      `json:"user_id"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Category  string         `json:"category"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
