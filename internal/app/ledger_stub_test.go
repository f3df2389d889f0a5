package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/domain"
	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/store"
)

// memoryLedger is an in-memory stand-in for the PostgreSQL store. It backs
// both the Repository and the ledger executor so service flows can be
// exercised end to end, including replay and rollback semantics.
type memoryLedger struct {
	store.Repository

	wallets   map[uuid.UUID]*domain.Wallet // keyed by wallet ID
	goals     map[uuid.UUID]*domain.Goal
	merchants map[uuid.UUID]*domain.MerchantProfile
	txByID    map[uuid.UUID]*domain.Transaction
	txByRef   map[string]*domain.Transaction
	audits    []domain.AuditLog
	notes     []domain.InAppNotification
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		wallets:   map[uuid.UUID]*domain.Wallet{},
		goals:     map[uuid.UUID]*domain.Goal{},
		merchants: map[uuid.UUID]*domain.MerchantProfile{},
		txByID:    map[uuid.UUID]*domain.Transaction{},
		txByRef:   map[string]*domain.Transaction{},
	}
}

func (m *memoryLedger) seedWallet(userID uuid.UUID, balance decimal.Decimal) *domain.Wallet {
	w := &domain.Wallet{ID: uuid.New(), UserID: userID, Balance: balance, Currency: "GHS"}
	m.wallets[w.ID] = w
	return w
}

func (m *memoryLedger) seedGoal(g *domain.Goal) *domain.Goal {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	if g.Status == "" {
		g.Status = domain.GoalActive
	}
	m.goals[g.ID] = g
	return g
}

func (m *memoryLedger) seedMerchant(userID uuid.UUID, balance decimal.Decimal) *domain.MerchantProfile {
	p := &domain.MerchantProfile{ID: uuid.New(), UserID: userID, BusinessName: "Test Merchant", Balance: balance}
	m.merchants[p.ID] = p
	return p
}

func (m *memoryLedger) walletByUser(userID uuid.UUID) *domain.Wallet {
	for _, w := range m.wallets {
		if w.UserID == userID {
			return w
		}
	}
	return nil
}

// --- Repository subset used by the services ---

func (m *memoryLedger) FindOrCreateWalletByUserID(ctx context.Context, userID uuid.UUID, currency string) (*domain.Wallet, error) {
	if w := m.walletByUser(userID); w != nil {
		copied := *w
		return &copied, nil
	}
	w := m.seedWallet(userID, decimal.Zero)
	copied := *w
	return &copied, nil
}

func (m *memoryLedger) FindWalletByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	if w := m.walletByUser(userID); w != nil {
		copied := *w
		return &copied, nil
	}
	return nil, store.ErrWalletNotFound
}

func (m *memoryLedger) CreateGoal(ctx context.Context, goal *domain.Goal) error {
	goal.ID = uuid.New()
	goal.CreatedAt = time.Now()
	stored := *goal
	m.goals[goal.ID] = &stored
	return nil
}

func (m *memoryLedger) FindGoalForUser(ctx context.Context, goalID, userID uuid.UUID) (*domain.Goal, error) {
	g, ok := m.goals[goalID]
	if !ok || g.UserID != userID {
		return nil, store.ErrGoalNotFound
	}
	copied := *g
	return &copied, nil
}

func (m *memoryLedger) FindDueRecurringGoals(ctx context.Context, day int, monthStart time.Time) ([]domain.Goal, error) {
	var due []domain.Goal
	for _, g := range m.goals {
		if !g.IsRecurring || g.Status != domain.GoalActive || g.MonthlyAmount == nil {
			continue
		}
		if g.SavingsDay == nil || *g.SavingsDay != day {
			continue
		}
		if g.LastAutoDebitDate != nil && !g.LastAutoDebitDate.Before(monthStart) {
			continue
		}
		due = append(due, *g)
	}
	return due, nil
}

func (m *memoryLedger) FindMerchantByID(ctx context.Context, merchantID uuid.UUID) (*domain.MerchantProfile, error) {
	p, ok := m.merchants[merchantID]
	if !ok {
		return nil, store.ErrMerchantNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *memoryLedger) FindTransactionByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	tx, ok := m.txByRef[reference]
	if !ok {
		return nil, store.ErrTransactionNotFound
	}
	copied := *tx
	return &copied, nil
}

func (m *memoryLedger) CreateInAppNotification(ctx context.Context, n *domain.InAppNotification) error {
	n.ID = uuid.New()
	n.CreatedAt = time.Now()
	m.notes = append(m.notes, *n)
	return nil
}

// --- Executor ---

type ledgerSnapshot struct {
	wallets   map[uuid.UUID]domain.Wallet
	goals     map[uuid.UUID]domain.Goal
	merchants map[uuid.UUID]domain.MerchantProfile
	txByID    map[uuid.UUID]domain.Transaction
	auditLen  int
}

func (m *memoryLedger) snapshot() ledgerSnapshot {
	s := ledgerSnapshot{
		wallets:   map[uuid.UUID]domain.Wallet{},
		goals:     map[uuid.UUID]domain.Goal{},
		merchants: map[uuid.UUID]domain.MerchantProfile{},
		txByID:    map[uuid.UUID]domain.Transaction{},
		auditLen:  len(m.audits),
	}
	for id, w := range m.wallets {
		s.wallets[id] = *w
	}
	for id, g := range m.goals {
		s.goals[id] = *g
	}
	for id, p := range m.merchants {
		s.merchants[id] = *p
	}
	for id, tx := range m.txByID {
		s.txByID[id] = *tx
	}
	return s
}

func (m *memoryLedger) restore(s ledgerSnapshot) {
	m.wallets = map[uuid.UUID]*domain.Wallet{}
	for id, w := range s.wallets {
		copied := w
		m.wallets[id] = &copied
	}
	m.goals = map[uuid.UUID]*domain.Goal{}
	for id, g := range s.goals {
		copied := g
		m.goals[id] = &copied
	}
	m.merchants = map[uuid.UUID]*domain.MerchantProfile{}
	for id, p := range s.merchants {
		copied := p
		m.merchants[id] = &copied
	}
	m.txByID = map[uuid.UUID]*domain.Transaction{}
	m.txByRef = map[string]*domain.Transaction{}
	for id, tx := range s.txByID {
		copied := tx
		m.txByID[id] = &copied
		m.txByRef[copied.Reference] = &copied
	}
	m.audits = m.audits[:s.auditLen]
}

// memoryExecutor mimics the transactional executor: duplicate references
// replay, and any unit error rolls every mutation back.
type memoryExecutor struct {
	ledger *memoryLedger
}

func (e *memoryExecutor) Execute(ctx context.Context, reference string, fn store.UnitFunc) (*domain.Transaction, bool, error) {
	if reference != "" {
		if existing, ok := e.ledger.txByRef[reference]; ok {
			copied := *existing
			return &copied, true, nil
		}
	}
	snap := e.ledger.snapshot()
	tx, err := fn(ctx, &memoryUnit{ledger: e.ledger})
	if err != nil {
		e.ledger.restore(snap)
		return nil, false, err
	}
	return tx, false, nil
}

type memoryUnit struct {
	ledger *memoryLedger
}

func (u *memoryUnit) WalletForUpdate(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	if w := u.ledger.walletByUser(userID); w != nil {
		copied := *w
		return &copied, nil
	}
	return nil, store.ErrWalletNotFound
}

func (u *memoryUnit) WalletByIDForUpdate(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error) {
	w, ok := u.ledger.wallets[walletID]
	if !ok {
		return nil, store.ErrWalletNotFound
	}
	copied := *w
	return &copied, nil
}

func (u *memoryUnit) GoalForUpdate(ctx context.Context, goalID uuid.UUID) (*domain.Goal, error) {
	g, ok := u.ledger.goals[goalID]
	if !ok {
		return nil, store.ErrGoalNotFound
	}
	copied := *g
	return &copied, nil
}

func (u *memoryUnit) MerchantForUpdate(ctx context.Context, merchantID uuid.UUID) (*domain.MerchantProfile, error) {
	p, ok := u.ledger.merchants[merchantID]
	if !ok {
		return nil, store.ErrMerchantNotFound
	}
	copied := *p
	return &copied, nil
}

func (u *memoryUnit) MerchantByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*domain.MerchantProfile, error) {
	for _, p := range u.ledger.merchants {
		if p.UserID == userID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, store.ErrMerchantNotFound
}

func (u *memoryUnit) TransactionForUpdate(ctx context.Context, transactionID uuid.UUID) (*domain.Transaction, error) {
	tx, ok := u.ledger.txByID[transactionID]
	if !ok {
		return nil, store.ErrTransactionNotFound
	}
	copied := *tx
	return &copied, nil
}

func (u *memoryUnit) PendingTransactionByReferenceForUpdate(ctx context.Context, reference string) (*domain.Transaction, error) {
	tx, ok := u.ledger.txByRef[reference]
	if !ok || tx.Status != domain.TxPending {
		return nil, store.ErrTransactionNotFound
	}
	copied := *tx
	return &copied, nil
}

func (u *memoryUnit) SetWalletBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) error {
	w, ok := u.ledger.wallets[walletID]
	if !ok {
		return store.ErrWalletNotFound
	}
	w.Balance = balance
	return nil
}

func (u *memoryUnit) ApplyGoalProgress(ctx context.Context, goalID uuid.UUID, currentAmount decimal.Decimal, status domain.GoalStatus) error {
	g, ok := u.ledger.goals[goalID]
	if !ok {
		return store.ErrGoalNotFound
	}
	g.CurrentAmount = currentAmount
	g.Status = status
	return nil
}

func (u *memoryUnit) SetGoalStatus(ctx context.Context, goalID uuid.UUID, status domain.GoalStatus) error {
	g, ok := u.ledger.goals[goalID]
	if !ok {
		return store.ErrGoalNotFound
	}
	g.Status = status
	return nil
}

func (u *memoryUnit) MarkGoalAutoDebited(ctx context.Context, goalID uuid.UUID, when time.Time) error {
	g, ok := u.ledger.goals[goalID]
	if !ok {
		return store.ErrGoalNotFound
	}
	g.LastAutoDebitDate = &when
	return nil
}

func (u *memoryUnit) SetMerchantBalance(ctx context.Context, merchantID uuid.UUID, balance decimal.Decimal) error {
	p, ok := u.ledger.merchants[merchantID]
	if !ok {
		return store.ErrMerchantNotFound
	}
	p.Balance = balance
	return nil
}

func (u *memoryUnit) InsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if _, exists := u.ledger.txByRef[tx.Reference]; exists {
		return fmt.Errorf("duplicate reference %s", tx.Reference)
	}
	tx.CreatedAt = time.Now()
	stored := *tx
	u.ledger.txByID[stored.ID] = &stored
	u.ledger.txByRef[stored.Reference] = &stored
	return nil
}

func (u *memoryUnit) FinalizeTransaction(ctx context.Context, transactionID uuid.UUID, status domain.TransactionStatus, metadata map[string]any) error {
	tx, ok := u.ledger.txByID[transactionID]
	if !ok {
		return store.ErrTransactionNotFound
	}
	if tx.Status != domain.TxPending {
		return store.ErrAlreadyProcessed
	}
	tx.Status = status
	if tx.Metadata == nil {
		tx.Metadata = map[string]any{}
	}
	for k, v := range metadata {
		tx.Metadata[k] = v
	}
	return nil
}

func (u *memoryUnit) InsertAudit(ctx context.Context, entry *domain.AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()
	u.ledger.audits = append(u.ledger.audits, *entry)
	return nil
}

// newTestService wires a Service against the in-memory ledger.
func newTestService(ledger *memoryLedger) *Service {
	return NewService(ledger, &memoryExecutor{ledger: ledger}, nil, nil, "savegoal.notifications", "GHS")
}
