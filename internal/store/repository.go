/**
 * @description
 * This file defines the `Repository` interface, the contract for all data
 * access the services need outside of an atomic ledger unit, plus the `Unit`
 * contract exposed by the transactional executor inside one. Defining
 * interfaces here decouples the business logic from PostgreSQL and lets the
 * tests substitute hand-written stubs.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid, github.com/shopspring/decimal
 * - internal/domain: The service's domain models.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/domain"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrGoalNotFound        = errors.New("goal not found")
	ErrMerchantNotFound    = errors.New("merchant profile not found")
	ErrMerchantExists      = errors.New("merchant profile already exists")
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrAlreadyProcessed is returned when a reference has been seen before or
	// a transaction is already terminal. The original balance effect stands.
	ErrAlreadyProcessed = errors.New("transaction already processed")
	// ErrStorageConflict surfaces after the executor has exhausted its retries
	// for a serialization failure or deadlock. The whole unit is safe to retry.
	ErrStorageConflict = errors.New("storage conflict")
)

// RecurringSettingsUpdate carries the nullable fields of a recurring-settings
// patch; nil fields are left unchanged.
type RecurringSettingsUpdate struct {
	IsRecurring   *bool
	MonthlyAmount *decimal.Decimal
	SavingsDay    *int
}

// Repository defines plain (non-unit) reads and writes.
type Repository interface {
	// Wallets
	FindOrCreateWalletByUserID(ctx context.Context, userID uuid.UUID, currency string) (*domain.Wallet, error)
	FindWalletByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)

	// Goals
	CreateGoal(ctx context.Context, goal *domain.Goal) error
	FindGoalForUser(ctx context.Context, goalID, userID uuid.UUID) (*domain.Goal, error)
	ListGoalsByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Goal, error)
	UpdateGoalRecurringSettings(ctx context.Context, goalID uuid.UUID, update RecurringSettingsUpdate) (*domain.Goal, error)
	// FindDueRecurringGoals selects ACTIVE recurring goals whose savings day
	// matches and that have not been debited since the start of the month.
	FindDueRecurringGoals(ctx context.Context, day int, monthStart time.Time) ([]domain.Goal, error)

	// Merchants
	CreateMerchantProfile(ctx context.Context, profile *domain.MerchantProfile) error
	FindMerchantByUserID(ctx context.Context, userID uuid.UUID) (*domain.MerchantProfile, error)
	FindMerchantByID(ctx context.Context, merchantID uuid.UUID) (*domain.MerchantProfile, error)
	SetMerchantVerified(ctx context.Context, merchantID uuid.UUID, verified bool) (*domain.MerchantProfile, error)
	ListMerchants(ctx context.Context, opts domain.ListOptions) ([]domain.MerchantProfile, error)

	// Transactions (read-only; writes go through the executor)
	FindTransactionByID(ctx context.Context, transactionID uuid.UUID) (*domain.Transaction, error)
	FindTransactionByReference(ctx context.Context, reference string) (*domain.Transaction, error)
	ListTransactionsByWalletID(ctx context.Context, walletID uuid.UUID, opts domain.ListOptions) ([]domain.Transaction, error)
	ListPendingPayouts(ctx context.Context) ([]domain.Transaction, error)
	ListTransactions(ctx context.Context, opts domain.ListOptions) ([]domain.Transaction, error)

	// Notifications and admin
	CreateInAppNotification(ctx context.Context, n *domain.InAppNotification) error
	GetSystemStats(ctx context.Context) (*domain.SystemStats, error)
}

// Unit is the view of the store bound to one atomic ledger unit. Every balance
// read inside a unit takes a row lock, so concurrent units against the same
// wallet, goal, or merchant serialize at the storage layer. Mutations are
// applied in the fixed order: debit source, credit destination, transaction
// record, audit record.
type Unit interface {
	WalletForUpdate(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	WalletByIDForUpdate(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error)
	GoalForUpdate(ctx context.Context, goalID uuid.UUID) (*domain.Goal, error)
	MerchantForUpdate(ctx context.Context, merchantID uuid.UUID) (*domain.MerchantProfile, error)
	MerchantByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*domain.MerchantProfile, error)
	TransactionForUpdate(ctx context.Context, transactionID uuid.UUID) (*domain.Transaction, error)
	PendingTransactionByReferenceForUpdate(ctx context.Context, reference string) (*domain.Transaction, error)

	SetWalletBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) error
	ApplyGoalProgress(ctx context.Context, goalID uuid.UUID, currentAmount decimal.Decimal, status domain.GoalStatus) error
	SetGoalStatus(ctx context.Context, goalID uuid.UUID, status domain.GoalStatus) error
	MarkGoalAutoDebited(ctx context.Context, goalID uuid.UUID, when time.Time) error
	SetMerchantBalance(ctx context.Context, merchantID uuid.UUID, balance decimal.Decimal) error

	InsertTransaction(ctx context.Context, tx *domain.Transaction) error
	// FinalizeTransaction moves a PENDING transaction to a terminal status and
	// merges processing metadata. Financial fields are never touched.
	FinalizeTransaction(ctx context.Context, transactionID uuid.UUID, status domain.TransactionStatus, metadata map[string]any) error
	InsertAudit(ctx context.Context, entry *domain.AuditLog) error
}

// UnitFunc builds one atomic unit. It returns the ledger entry the unit
// produced (or acted on) so the executor can hand it back to the caller.
type UnitFunc func(ctx context.Context, u Unit) (*domain.Transaction, error)

// LedgerExecutor is the single entry point for atomic multi-entity mutations.
// Services compose mutations through the Unit; they never open nested
// transactions.
type LedgerExecutor interface {
	// Execute runs fn in one storage transaction. When reference is non-empty
	// and a transaction with that reference already exists, the unit is not
	// run: the existing entry is returned with replayed=true. This is the
	// replay-safety guarantee relied on by the scheduler and webhook callers.
	Execute(ctx context.Context, reference string, fn UnitFunc) (tx *domain.Transaction, replayed bool, err error)
}
