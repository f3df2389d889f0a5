/**
 * @description
 * PostgreSQL implementation of the `Repository` interface plus pool
 * construction. All SQL for plain reads and writes lives here; multi-entity
 * balance mutations go through the executor in executor.go.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver.
 * - github.com/jackc/pgx-shopspring-decimal: Registers the NUMERIC <-> decimal codec.
 * - internal/domain: Domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/domain"
)

// NewPool builds a pgx connection pool with the shopspring decimal codec
// registered, so NUMERIC columns scan directly into decimal.Decimal.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = 50
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	return pgxpool.NewWithConfig(ctx, poolConfig)
}

// PostgresRepository is the concrete Repository backed by a pgx pool.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const walletColumns = `id, user_id, balance, currency, created_at, updated_at`

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var w domain.Wallet
	err := row.Scan(&w.ID, &w.UserID, &w.Balance, &w.Currency, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &w, nil
}

// FindOrCreateWalletByUserID returns the user's wallet, creating an empty one
// on first access. The UNIQUE(user_id) constraint makes concurrent first
// accesses converge on a single row.
func (r *PostgresRepository) FindOrCreateWalletByUserID(ctx context.Context, userID uuid.UUID, currency string) (*domain.Wallet, error) {
	insert := `
		INSERT INTO wallets (id, user_id, balance, currency)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, insert, uuid.New(), userID, currency); err != nil {
		return nil, err
	}
	return r.FindWalletByUserID(ctx, userID)
}

// FindWalletByUserID retrieves a wallet without creating it.
func (r *PostgresRepository) FindWalletByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`
	return scanWallet(r.db.QueryRow(ctx, query, userID))
}

const goalColumns = `id, user_id, name, description, target_amount, current_amount, status,
	product_id, merchant_profile_id, is_recurring, monthly_amount, savings_day,
	last_auto_debit_date, deadline, created_at, updated_at`

func scanGoal(row pgx.Row) (*domain.Goal, error) {
	var g domain.Goal
	var monthly decimal.NullDecimal
	err := row.Scan(
		&g.ID, &g.UserID, &g.Name, &g.Description, &g.TargetAmount, &g.CurrentAmount, &g.Status,
		&g.ProductID, &g.MerchantProfileID, &g.IsRecurring, &monthly, &g.SavingsDay,
		&g.LastAutoDebitDate, &g.Deadline, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGoalNotFound
		}
		return nil, err
	}
	if monthly.Valid {
		g.MonthlyAmount = &monthly.Decimal
	}
	return &g, nil
}

// CreateGoal persists a new goal and fills generated fields on the input.
func (r *PostgresRepository) CreateGoal(ctx context.Context, goal *domain.Goal) error {
	if goal.ID == uuid.Nil {
		goal.ID = uuid.New()
	}
	query := `
		INSERT INTO goals (id, user_id, name, description, target_amount, current_amount, status,
			product_id, merchant_profile_id, is_recurring, monthly_amount, savings_day, deadline)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7, $8, $9, $10, $11, $12)
		RETURNING current_amount, created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		goal.ID, goal.UserID, goal.Name, goal.Description, goal.TargetAmount, goal.Status,
		goal.ProductID, goal.MerchantProfileID, goal.IsRecurring, goal.MonthlyAmount, goal.SavingsDay, goal.Deadline,
	).Scan(&goal.CurrentAmount, &goal.CreatedAt, &goal.UpdatedAt)
}

// FindGoalForUser retrieves a goal scoped to its owner. A goal belonging to a
// different user is indistinguishable from a missing one.
func (r *PostgresRepository) FindGoalForUser(ctx context.Context, goalID, userID uuid.UUID) (*domain.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE id = $1 AND user_id = $2`
	return scanGoal(r.db.QueryRow(ctx, query, goalID, userID))
}

// ListGoalsByUserID lists a user's goals newest first.
func (r *PostgresRepository) ListGoalsByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goals []domain.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

// UpdateGoalRecurringSettings patches the recurring fields, leaving nil inputs
// unchanged, and returns the updated goal.
func (r *PostgresRepository) UpdateGoalRecurringSettings(ctx context.Context, goalID uuid.UUID, update RecurringSettingsUpdate) (*domain.Goal, error) {
	query := `
		UPDATE goals SET
			is_recurring = COALESCE($2, is_recurring),
			monthly_amount = COALESCE($3, monthly_amount),
			savings_day = COALESCE($4, savings_day),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + goalColumns
	return scanGoal(r.db.QueryRow(ctx, query, goalID, update.IsRecurring, update.MonthlyAmount, update.SavingsDay))
}

// FindDueRecurringGoals selects the goals eligible for today's automated debit.
// The lastAutoDebitDate predicate is what makes the daily batch safe to
// re-invoke for the same day.
func (r *PostgresRepository) FindDueRecurringGoals(ctx context.Context, day int, monthStart time.Time) ([]domain.Goal, error) {
	query := `
		SELECT ` + goalColumns + `
		FROM goals
		WHERE is_recurring = TRUE
		  AND status = 'ACTIVE'
		  AND savings_day = $1
		  AND monthly_amount IS NOT NULL
		  AND (last_auto_debit_date IS NULL OR last_auto_debit_date < $2)
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, day, monthStart)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goals []domain.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

const merchantColumns = `id, user_id, business_name, balance, is_verified,
	bank_name, bank_account_no, bank_account_name, created_at, updated_at`

func scanMerchant(row pgx.Row) (*domain.MerchantProfile, error) {
	var m domain.MerchantProfile
	err := row.Scan(
		&m.ID, &m.UserID, &m.BusinessName, &m.Balance, &m.IsVerified,
		&m.BankName, &m.BankAccountNo, &m.BankAccountName, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMerchantNotFound
		}
		return nil, err
	}
	return &m, nil
}

// CreateMerchantProfile registers a merchant. A second registration for the
// same user is rejected with ErrMerchantExists.
func (r *PostgresRepository) CreateMerchantProfile(ctx context.Context, profile *domain.MerchantProfile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	query := `
		INSERT INTO merchant_profiles (id, user_id, business_name, balance, is_verified,
			bank_name, bank_account_no, bank_account_name)
		VALUES ($1, $2, $3, 0, FALSE, $4, $5, $6)
		ON CONFLICT (user_id) DO NOTHING
		RETURNING balance, is_verified, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		profile.ID, profile.UserID, profile.BusinessName,
		profile.BankName, profile.BankAccountNo, profile.BankAccountName,
	).Scan(&profile.Balance, &profile.IsVerified, &profile.CreatedAt, &profile.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrMerchantExists
	}
	return err
}

// FindMerchantByUserID retrieves a merchant profile by its owning user.
func (r *PostgresRepository) FindMerchantByUserID(ctx context.Context, userID uuid.UUID) (*domain.MerchantProfile, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchant_profiles WHERE user_id = $1`
	return scanMerchant(r.db.QueryRow(ctx, query, userID))
}

// FindMerchantByID retrieves a merchant profile by primary key.
func (r *PostgresRepository) FindMerchantByID(ctx context.Context, merchantID uuid.UUID) (*domain.MerchantProfile, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchant_profiles WHERE id = $1`
	return scanMerchant(r.db.QueryRow(ctx, query, merchantID))
}

// SetMerchantVerified toggles the admin verification flag.
func (r *PostgresRepository) SetMerchantVerified(ctx context.Context, merchantID uuid.UUID, verified bool) (*domain.MerchantProfile, error) {
	query := `
		UPDATE merchant_profiles SET is_verified = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + merchantColumns
	return scanMerchant(r.db.QueryRow(ctx, query, merchantID, verified))
}

// ListMerchants lists merchant profiles newest first for the admin surface.
func (r *PostgresRepository) ListMerchants(ctx context.Context, opts domain.ListOptions) ([]domain.MerchantProfile, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchant_profiles ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, normalizeLimit(opts.Limit, 50), opts.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var merchants []domain.MerchantProfile
	for rows.Next() {
		m, err := scanMerchant(rows)
		if err != nil {
			return nil, err
		}
		merchants = append(merchants, *m)
	}
	return merchants, rows.Err()
}

const transactionColumns = `id, wallet_id, goal_id, merchant_profile_id, type, amount, status,
	reference, balance_before, balance_after, metadata, created_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	var before, after decimal.NullDecimal
	err := row.Scan(
		&t.ID, &t.WalletID, &t.GoalID, &t.MerchantProfileID, &t.Type, &t.Amount, &t.Status,
		&t.Reference, &before, &after, &t.Metadata, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	if before.Valid {
		t.BalanceBefore = &before.Decimal
	}
	if after.Valid {
		t.BalanceAfter = &after.Decimal
	}
	return &t, nil
}

// FindTransactionByID retrieves a ledger entry by primary key.
func (r *PostgresRepository) FindTransactionByID(ctx context.Context, transactionID uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return scanTransaction(r.db.QueryRow(ctx, query, transactionID))
}

// FindTransactionByReference retrieves a ledger entry by its unique reference.
func (r *PostgresRepository) FindTransactionByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference = $1`
	return scanTransaction(r.db.QueryRow(ctx, query, reference))
}

// ListTransactionsByWalletID lists a wallet's history newest first.
func (r *PostgresRepository) ListTransactionsByWalletID(ctx context.Context, walletID uuid.UUID, opts domain.ListOptions) ([]domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + ` FROM transactions
		WHERE wallet_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`
	return r.queryTransactions(ctx, query, walletID, normalizeLimit(opts.Limit, 50), opts.Offset)
}

// ListPendingPayouts lists payout requests awaiting an admin decision.
func (r *PostgresRepository) ListPendingPayouts(ctx context.Context) ([]domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + ` FROM transactions
		WHERE type = 'MERCHANT_PAYOUT' AND status = 'PENDING'
		ORDER BY created_at DESC
	`
	return r.queryTransactions(ctx, query)
}

// ListTransactions is the global paginated history for the admin surface.
func (r *PostgresRepository) ListTransactions(ctx context.Context, opts domain.ListOptions) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	return r.queryTransactions(ctx, query, normalizeLimit(opts.Limit, 50), opts.Offset)
}

func (r *PostgresRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

// CreateInAppNotification persists an in-app notification row. Delivery to
// external channels happens through the event bus, not here.
func (r *PostgresRepository) CreateInAppNotification(ctx context.Context, n *domain.InAppNotification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	query := `
		INSERT INTO notifications (id, user_id, title, message, category, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	return r.db.QueryRow(ctx, query, n.ID, n.UserID, n.Title, n.Message, n.Category, n.Metadata).Scan(&n.CreatedAt)
}

// GetSystemStats aggregates the counters served on the admin overview.
func (r *PostgresRepository) GetSystemStats(ctx context.Context) (*domain.SystemStats, error) {
	query := `
		SELECT
			(SELECT COUNT(DISTINCT user_id) FROM wallets),
			(SELECT COUNT(*) FROM merchant_profiles),
			(SELECT COUNT(*) FROM goals WHERE status = 'ACTIVE'),
			(SELECT COALESCE(SUM(current_amount), 0) FROM goals),
			(SELECT COUNT(*) FROM transactions)
	`
	var stats domain.SystemStats
	err := r.db.QueryRow(ctx, query).Scan(
		&stats.Users, &stats.Merchants, &stats.ActiveGoals, &stats.TotalSaved, &stats.TotalTransactions,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 || limit > 200 {
		return fallback
	}
	return limit
}
