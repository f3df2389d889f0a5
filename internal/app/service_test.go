package app

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/domain"
	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/ledger"
	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/store"
)

func dec(t *testing.T, v string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(v)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", v, err)
	}
	return d
}

func TestDeposit_CreditsWalletAndRecordsLedgerEntry(t *testing.T) {
	mem := newMemoryLedger()
	svc := newTestService(mem)
	userID := uuid.New()
	wallet := mem.seedWallet(userID, dec(t, "10.00"))

	result, err := svc.Deposit(context.Background(), userID, domain.DepositRequest{Amount: dec(t, "25.50")})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !result.Wallet.Balance.Equal(dec(t, "35.50")) {
		t.Errorf("expected balance 35.50, got %s", result.Wallet.Balance)
	}
	if result.Transaction.Type != domain.TxDeposit || result.Transaction.Status != domain.TxCompleted {
		t.Errorf("unexpected ledger entry: type=%s status=%s", result.Transaction.Type, result.Transaction.Status)
	}
	if !mem.wallets[wallet.ID].Balance.Equal(dec(t, "35.50")) {
		t.Errorf("stored wallet balance not updated: %s", mem.wallets[wallet.ID].Balance)
	}
	if len(mem.audits) != 1 {
		t.Errorf("expected 1 audit record, got %d", len(mem.audits))
	}
}

func TestDeposit_SuppliedReferenceReplaysWithoutSecondCredit(t *testing.T) {
	mem := newMemoryLedger()
	svc := newTestService(mem)
	userID := uuid.New()
	wallet := mem.seedWallet(userID, decimal.Zero)

	req := domain.DepositRequest{Amount: dec(t, "40.00"), Reference: "DEP-client-001"}
	first, err := svc.Deposit(context.Background(), userID, req)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	second, err := svc.Deposit(context.Background(), userID, req)
	if err != nil {
		t.Fatalf("expected nil error on replay, got %v", err)
	}
	if first.Transaction.ID != second.Transaction.ID {
		t.Errorf("replay returned a different ledger entry: %s vs %s", first.Transaction.ID, second.Transaction.ID)
	}
	if !mem.wallets[wallet.ID].Balance.Equal(dec(t, "40.00")) {
		t.Errorf("expected the credit applied exactly once, balance is %s", mem.wallets[wallet.ID].Balance)
	}
}

func TestDeposit_ReferenceOwnedByAnotherWalletIsNotFound(t *testing.T) {
	mem := newMemoryLedger()
	svc := newTestService(mem)
	userA := uuid.New()
	userB := uuid.New()
	walletA := mem.seedWallet(userA, decimal.Zero)
	walletB := mem.seedWallet(userB, decimal.Zero)

	first, err := svc.Deposit(context.Background(), userA, domain.DepositRequest{Amount: dec(t, "100.00"), Reference: "SHARED-REF"})
	if err != nil {
		t.Fatalf("expected nil error for the first deposit, got %v", err)
	}
	if first.Transaction.WalletID != walletA.ID {
		t.Fatalf("first deposit landed on the wrong wallet: %s", first.Transaction.WalletID)
	}

	_, err = svc.Deposit(context.Background(), userB, domain.DepositRequest{Amount: dec(t, "50.00"), Reference: "SHARED-REF"})
	if !errors.Is(err, store.ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound for another user's reference, got %v", err)
	}
	if !mem.wallets[walletA.ID].Balance.Equal(dec(t, "100.00")) {
		t.Errorf("expected wallet A untouched at 100.00, got %s", mem.wallets[walletA.ID].Balance)
	}
	if !mem.wallets[walletB.ID].Balance.IsZero() {
		t.Errorf("expected wallet B still empty, got %s", mem.wallets[walletB.ID].Balance)
	}
	if len(mem.txByID) != 1 {
		t.Errorf("expected exactly one ledger entry, got %d", len(mem.txByID))
	}
}

func TestWithdraw_InsufficientBalanceLeavesWalletUntouched(t *testing.T) {
	mem := newMemoryLedger()
	svc := newTestService(mem)
	userID := uuid.New()
	wallet := mem.seedWallet(userID, dec(t, "5.00"))

	_, err := svc.Withdraw(context.Background(), userID, domain.WithdrawRequest{Amount: dec(t, "20.00")})
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if !mem.wallets[wallet.ID].Balance.Equal(dec(t, "5.00")) {
		t.Errorf("expected balance unchanged at 5.00, got %s", mem.wallets[wallet.ID].Balance)
	}
	if len(mem.txByID) != 0 {
		t.Errorf("expected no ledger entries after a rejected withdrawal, got %d", len(mem.txByID))
	}
}

func TestFundGoal_DebitsWalletAndCreditsGoalEqually(t *testing.T) {
	mem := newMemoryLedger()
	svc := newTestService(mem)
	userID := uuid.New()
	wallet := mem.seedWallet(userID, dec(t, "100.00"))
	goal := mem.seedGoal(&domain.Goal{
		UserID:        userID,
		Name:          "New phone",
		TargetAmount:  dec(t, "500.00"),
		CurrentAmount: decimal.Zero,
	})

	result, err := svc.FundGoal(context.Background(), userID, goal.ID, domain.FundGoalRequest{Amount: dec(t, "30.00")})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !mem.wallets[wallet.ID].Balance.Equal(dec(t, "70.00")) {
		t.Errorf("expected wallet balance 70.00, got %s", mem.wallets[wallet.ID].Balance)
	}
	if !mem.goals[goal.ID].CurrentAmount.Equal(dec(t, "30.00")) {
		t.Errorf("expected goal balance 30.00, got %s", mem.goals[goal.ID].CurrentAmount)
	}
	if result.Goal.Status != domain.GoalActive {
		t.Errorf("expected goal still ACTIVE, got %s", result.Goal.Status)
	}
	if result.Transaction.Type != domain.TxGoalFunding {
		t.Errorf("expected GOAL_FUNDING entry, got %s", result.Transaction.Type)
	}
}

func TestFundGoal_CrossingTargetCompletesGoalAtomically(t *testing.T) {
	mem := newMemoryLedger()
	svc := newTestService(mem)
	userID := uuid.New()
	mem.seedWallet(userID, dec(t, "100.00"))
	goal := mem.seedGoal(&domain.Goal{
		UserID:        userID,
		Name:          "Headphones",
		TargetAmount:  dec(t, "50.00"),
		CurrentAmount: dec(t, "40.00"),
	})

	result, err := svc.FundGoal(context.Background(), userID, goal.ID, domain.FundGoalRequest{Amount: dec(t, "25.00")})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if result.Goal.Status != domain.GoalCompleted {
		t.Errorf("expected goal COMPLETED, got %s", result.Goal.Status)
	}
	// Overshooting the target is allowed; the full amount lands on the goal.
	if !result.Goal.CurrentAmount.Equal(dec(t, "65.00")) {
		t.Errorf("expected goal balance 65.00, got %s", result.Goal.CurrentAmount)
	}
}

func TestFundGoal_InsufficientWalletFundsRollsBackEverything(t *testing.T) {
	mem := newMemoryLedger()
	svc := newTestService(mem)
	userID := uuid.New()
	wallet := mem.seedWallet(userID, dec(t, "10.00"))
	goal := mem.seedGoal(&domain.Goal{
		UserID:        userID,
		Name:          "Laptop",
		TargetAmount:  dec(t, "1000.00"),
		CurrentAmount: decimal.Zero,
	})

	_, err := svc.FundGoal(context.Background(), userID, goal.ID, domain.FundGoalRequest{Amount: dec(t, "30.00")})
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if !mem.wallets[wallet.ID].Balance.Equal(dec(t, "10.00")) {
		t.Errorf("wallet balance mutated on failure: %s", mem.wallets[wallet.ID].Balance)
	}
	if !mem.goals[goal.ID].CurrentAmount.Equal(decimal.Zero) {
		t.Errorf("goal balance mutated on failure: %s", mem.goals[goal.ID].CurrentAmount)
	}
	if len(mem.txByID) != 0 || len(mem.audits) != 0 {
		t.Errorf("expected no ledger or audit records, got %d and %d", len(mem.txByID), len(mem.audits))
	}
}

func TestFundGoal_OtherUsersGoalIsNotFound(t *testing.T) {
	mem := newMemoryLedger()
	svc := newTestService(mem)
	owner := uuid.New()
	stranger := uuid.New()
	mem.seedWallet(stranger, dec(t, "100.00"))
	goal := mem.seedGoal(&domain.Goal{
		UserID:        owner,
		Name:          "Private goal",
		TargetAmount:  dec(t, "100.00"),
		CurrentAmount: decimal.Zero,
	})

	_, err := svc.FundGoal(context.Background(), stranger, goal.ID, domain.FundGoalRequest{Amount: dec(t, "10.00")})
	if err == nil {
		t.Fatal("expected an error funding another user's goal")
	}
}

func TestWithdrawFromGoal_NilAmountReclaimsFullBalance(t *testing.T) {
	mem := newMemoryLedger()
	svc := newTestService(mem)
	userID := uuid.New()
	wallet := mem.seedWallet(userID, dec(t, "10.00"))
	goal := mem.seedGoal(&domain.Goal{
		UserID:        userID,
		Name:          "Vacation",
		TargetAmount:  dec(t, "300.00"),
		CurrentAmount: dec(t, "120.00"),
	})

	result, err := svc.WithdrawFromGoal(context.Background(), userID, goal.ID, domain.GoalWithdrawRequest{})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !result.Transaction.Amount.Equal(dec(t, "120.00")) {
		t.Errorf("expected the full goal balance reclaimed, got %s", result.Transaction.Amount)
	}
	if !mem.wallets[wallet.ID].Balance.Equal(dec(t, "130.00")) {
		t.Errorf("expected wallet balance 130.00, got %s", mem.wallets[wallet.ID].Balance)
	}
	if !mem.goals[goal.ID].CurrentAmount.Equal(decimal.Zero) {
		t.Errorf("expected goal drained to zero, got %s", mem.goals[goal.ID].CurrentAmount)
	}
	if mem.goals[goal.ID].Status != domain.GoalActive {
		t.Errorf("goal status should be untouched by a withdrawal, got %s", mem.goals[goal.ID].Status)
	}
}

func TestRedeemGoal_CreditsMerchantAndArchivesGoal(t *testing.T) {
	mem := newMemoryLedger()
	svc := newTestService(mem)
	userID := uuid.New()
	merchantUser := uuid.New()
	mem.seedWallet(userID, decimal.Zero)
	merchant := mem.seedMerchant(merchantUser, dec(t, "200.00"))
	productID := uuid.New()
	goal := mem.seedGoal(&domain.Goal{
		UserID:            userID,
		Name:              "Fridge",
		TargetAmount:      dec(t, "150.00"),
		CurrentAmount:     dec(t, "150.00"),
		Status:            domain.GoalCompleted,
		ProductID:         &productID,
		MerchantProfileID: &merchant.ID,
	})

	result, err := svc.RedeemGoal(context.Background(), userID, goal.ID)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !mem.merchants[merchant.ID].Balance.Equal(dec(t, "350.00")) {
		t.Errorf("expected merchant balance 350.00, got %s", mem.merchants[merchant.ID].Balance)
	}
	if mem.goals[goal.ID].Status != domain.GoalArchived {
		t.Errorf("expected goal ARCHIVED, got %s", mem.goals[goal.ID].Status)
	}
	if !mem.goals[goal.ID].CurrentAmount.Equal(decimal.Zero) {
		t.Errorf("expected goal balance zeroed, got %s", mem.goals[goal.ID].CurrentAmount)
	}
	if result.Transaction.Type != domain.TxMerchantPayout {
		t.Errorf("expected MERCHANT_PAYOUT entry, got %s", result.Transaction.Type)
	}
}

func TestRedeemGoal_ActiveGoalIsNotRedeemable(t *testing.T) {
	mem := newMemoryLedger()
	svc := newTestService(mem)
	userID := uuid.New()
	mem.seedWallet(userID, decimal.Zero)
	merchant := mem.seedMerchant(uuid.New(), decimal.Zero)
	productID := uuid.New()
	goal := mem.seedGoal(&domain.Goal{
		UserID:            userID,
		Name:              "TV",
		TargetAmount:      dec(t, "400.00"),
		CurrentAmount:     dec(t, "100.00"),
		ProductID:         &productID,
		MerchantProfileID: &merchant.ID,
	})

	_, err := svc.RedeemGoal(context.Background(), userID, goal.ID)
	if !errors.Is(err, ledger.ErrNotRedeemable) {
		t.Fatalf("expected ErrNotRedeemable, got %v", err)
	}
	if !mem.merchants[merchant.ID].Balance.Equal(decimal.Zero) {
		t.Errorf("merchant balance mutated on a rejected redemption: %s", mem.merchants[merchant.ID].Balance)
	}
}

func TestRedeemGoal_FreeFormGoalIsNotRedeemable(t *testing.T) {
	mem := newMemoryLedger()
	svc := newTestService(mem)
	userID := uuid.New()
	mem.seedWallet(userID, decimal.Zero)
	goal := mem.seedGoal(&domain.Goal{
		UserID:        userID,
		Name:          "Rainy day",
		TargetAmount:  dec(t, "100.00"),
		CurrentAmount: dec(t, "100.00"),
		Status:        domain.GoalCompleted,
	})

	_, err := svc.RedeemGoal(context.Background(), userID, goal.ID)
	if !errors.Is(err, ledger.ErrNotRedeemable) {
		t.Fatalf("expected ErrNotRedeemable, got %v", err)
	}
}

func TestCreateGoal_FreeFormRequiresPositiveTarget(t *testing.T) {
	mem := newMemoryLedger()
	svc := newTestService(mem)

	_, err := svc.CreateGoal(context.Background(), uuid.New(), domain.CreateGoalRequest{Name: "No target"})
	if !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestCreateGoal_RecurringDefaultsSavingsDayToFirst(t *testing.T) {
	mem := newMemoryLedger()
	svc := newTestService(mem)
	monthly := dec(t, "50.00")

	goal, err := svc.CreateGoal(context.Background(), uuid.New(), domain.CreateGoalRequest{
		Name:          "Monthly saver",
		TargetAmount:  decimalPtr(dec(t, "600.00")),
		IsRecurring:   true,
		MonthlyAmount: &monthly,
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if goal.SavingsDay == nil || *goal.SavingsDay != 1 {
		t.Errorf("expected savings day defaulted to 1, got %v", goal.SavingsDay)
	}
}

func decimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
