/**
 * @description
 * The transactional executor: the single entry point for atomic multi-entity
 * ledger mutations. Every money movement runs inside exactly one PostgreSQL
 * transaction built here. Services compose mutations through the Unit view,
 * they never open nested transactions.
 *
 * Guarantees:
 * - All-or-nothing: any failure inside the unit rolls everything back; no
 *   balance, goal status, or ledger row is ever partially visible.
 * - Replay safety: a duplicate reference short-circuits to the existing
 *   transaction without re-applying the balance change. The UNIQUE constraint
 *   on transactions.reference backstops the in-transaction check.
 * - Bounded retry: serialization failures and deadlocks retry the whole unit
 *   a fixed number of times before surfacing ErrStorageConflict.
 */

package store

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/domain"
)

const defaultUnitRetries = 3

// Executor implements LedgerExecutor on top of a pgx pool.
type Executor struct {
	db      *pgxpool.Pool
	retries int
}

// NewExecutor creates an executor. maxRetries bounds how often a unit is
// re-run after a serialization failure or deadlock; values < 1 use the default.
func NewExecutor(db *pgxpool.Pool, maxRetries int) *Executor {
	if maxRetries < 1 {
		maxRetries = defaultUnitRetries
	}
	return &Executor{db: db, retries: maxRetries}
}

// Execute runs fn as one atomic unit. See LedgerExecutor for the contract.
func (e *Executor) Execute(ctx context.Context, reference string, fn UnitFunc) (*domain.Transaction, bool, error) {
	var lastErr error
	for attempt := 1; attempt <= e.retries; attempt++ {
		tx, replayed, err := e.runOnce(ctx, reference, fn)
		if err == nil || !isRetryable(err) {
			return tx, replayed, err
		}
		lastErr = err
		log.Printf("level=warn component=executor msg=\"unit conflicted; retrying\" reference=%s attempt=%d err=%v", reference, attempt, err)
		time.Sleep(time.Duration(attempt) * 25 * time.Millisecond)
	}
	return nil, false, errors.Join(ErrStorageConflict, lastErr)
}

func (e *Executor) runOnce(ctx context.Context, reference string, fn UnitFunc) (*domain.Transaction, bool, error) {
	pgxTx, err := e.db.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer pgxTx.Rollback(ctx)

	u := &unitTx{tx: pgxTx}

	if reference != "" {
		existing, err := u.transactionByReference(ctx, reference)
		if err != nil && !errors.Is(err, ErrTransactionNotFound) {
			return nil, false, err
		}
		if existing != nil {
			// Duplicate reference: no-op, hand back the prior entry.
			return existing, true, nil
		}
	}

	result, err := fn(ctx, u)
	if err != nil {
		if existing, dup := e.resolveDuplicateReference(ctx, reference, err); dup {
			return existing, true, nil
		}
		return nil, false, err
	}

	if err := pgxTx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return result, false, nil
}

// resolveDuplicateReference handles the race where two units insert the same
// reference concurrently: the loser's unique violation is converted into the
// winner's transaction.
func (e *Executor) resolveDuplicateReference(ctx context.Context, reference string, err error) (*domain.Transaction, bool) {
	if reference == "" || !isUniqueViolation(err) {
		return nil, false
	}
	row := e.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE reference = $1`, reference)
	existing, selErr := scanTransaction(row)
	if selErr != nil {
		return nil, false
	}
	return existing, true
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	// 40001 serialization_failure, 40P01 deadlock_detected
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// unitTx implements Unit over one pgx transaction. Balance reads lock the row
// so concurrent units against the same entity serialize at the storage layer.
type unitTx struct {
	tx pgx.Tx
}

func (u *unitTx) WalletForUpdate(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 FOR UPDATE`
	return scanWallet(u.tx.QueryRow(ctx, query, userID))
}

func (u *unitTx) WalletByIDForUpdate(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`
	return scanWallet(u.tx.QueryRow(ctx, query, walletID))
}

func (u *unitTx) GoalForUpdate(ctx context.Context, goalID uuid.UUID) (*domain.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE id = $1 FOR UPDATE`
	return scanGoal(u.tx.QueryRow(ctx, query, goalID))
}

func (u *unitTx) MerchantForUpdate(ctx context.Context, merchantID uuid.UUID) (*domain.MerchantProfile, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchant_profiles WHERE id = $1 FOR UPDATE`
	return scanMerchant(u.tx.QueryRow(ctx, query, merchantID))
}

func (u *unitTx) MerchantByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*domain.MerchantProfile, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchant_profiles WHERE user_id = $1 FOR UPDATE`
	return scanMerchant(u.tx.QueryRow(ctx, query, userID))
}

func (u *unitTx) TransactionForUpdate(ctx context.Context, transactionID uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 FOR UPDATE`
	return scanTransaction(u.tx.QueryRow(ctx, query, transactionID))
}

func (u *unitTx) PendingTransactionByReferenceForUpdate(ctx context.Context, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference = $1 AND status = 'PENDING' FOR UPDATE`
	return scanTransaction(u.tx.QueryRow(ctx, query, reference))
}

func (u *unitTx) transactionByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference = $1`
	return scanTransaction(u.tx.QueryRow(ctx, query, reference))
}

func (u *unitTx) SetWalletBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) error {
	tag, err := u.tx.Exec(ctx, `UPDATE wallets SET balance = $2, updated_at = NOW() WHERE id = $1`, walletID, balance)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWalletNotFound
	}
	return nil
}

func (u *unitTx) ApplyGoalProgress(ctx context.Context, goalID uuid.UUID, currentAmount decimal.Decimal, status domain.GoalStatus) error {
	tag, err := u.tx.Exec(ctx,
		`UPDATE goals SET current_amount = $2, status = $3, updated_at = NOW() WHERE id = $1`,
		goalID, currentAmount, status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrGoalNotFound
	}
	return nil
}

func (u *unitTx) SetGoalStatus(ctx context.Context, goalID uuid.UUID, status domain.GoalStatus) error {
	tag, err := u.tx.Exec(ctx, `UPDATE goals SET status = $2, updated_at = NOW() WHERE id = $1`, goalID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrGoalNotFound
	}
	return nil
}

func (u *unitTx) MarkGoalAutoDebited(ctx context.Context, goalID uuid.UUID, when time.Time) error {
	tag, err := u.tx.Exec(ctx, `UPDATE goals SET last_auto_debit_date = $2, updated_at = NOW() WHERE id = $1`, goalID, when)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrGoalNotFound
	}
	return nil
}

func (u *unitTx) SetMerchantBalance(ctx context.Context, merchantID uuid.UUID, balance decimal.Decimal) error {
	tag, err := u.tx.Exec(ctx, `UPDATE merchant_profiles SET balance = $2, updated_at = NOW() WHERE id = $1`, merchantID, balance)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMerchantNotFound
	}
	return nil
}

func (u *unitTx) InsertTransaction(ctx context.Context, t *domain.Transaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	query := `
		INSERT INTO transactions (id, wallet_id, goal_id, merchant_profile_id, type, amount,
			status, reference, balance_before, balance_after, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`
	return u.tx.QueryRow(ctx, query,
		t.ID, t.WalletID, t.GoalID, t.MerchantProfileID, t.Type, t.Amount,
		t.Status, t.Reference, t.BalanceBefore, t.BalanceAfter, t.Metadata,
	).Scan(&t.CreatedAt)
}

func (u *unitTx) FinalizeTransaction(ctx context.Context, transactionID uuid.UUID, status domain.TransactionStatus, metadata map[string]any) error {
	// Only a PENDING entry may move to a terminal status; financial fields are
	// write-once and never touched here.
	query := `
		UPDATE transactions
		SET status = $2, metadata = COALESCE(metadata, '{}'::jsonb) || COALESCE($3::jsonb, '{}'::jsonb)
		WHERE id = $1 AND status = 'PENDING'
	`
	tag, err := u.tx.Exec(ctx, query, transactionID, status, metadata)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyProcessed
	}
	return nil
}

func (u *unitTx) InsertAudit(ctx context.Context, entry *domain.AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	query := `
		INSERT INTO audit_logs (id, user_id, action, resource, resource_id, old_value, new_value)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	return u.tx.QueryRow(ctx, query,
		entry.ID, entry.UserID, entry.Action, entry.Resource, entry.ResourceID, entry.OldValue, entry.NewValue,
	).Scan(&entry.CreatedAt)
}
