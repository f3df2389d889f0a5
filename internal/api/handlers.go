/**
 * @description
 * This file contains the HTTP handlers for the savings service's API
 * endpoints. Handlers parse incoming requests, call the appropriate methods on
 * the application service, and write the HTTP response. They act as the bridge
 * between the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - github.com/go-playground/validator/v10: Request payload validation.
 * - internal/app, internal/domain, internal/ledger, internal/store: Service
 *   logic, models, and sentinel errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/app"
	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/domain"
	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/ledger"
	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/store"
)

// Handlers holds the application service and validator the handlers use.
type Handlers struct {
	service  *app.Service
	validate *validator.Validate
}

// NewHandlers creates a new instance of Handlers.
func NewHandlers(service *app.Service) *Handlers {
	return &Handlers{
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// --- Wallet ---

// GetWalletHandler returns the caller's wallet, creating it on first access.
func (h *Handlers) GetWalletHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}
	wallet, err := h.service.GetWallet(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, "get_wallet", err)
		return
	}
	h.writeJSON(w, http.StatusOK, wallet)
}

// DepositHandler credits the caller's wallet directly.
func (h *Handlers) DepositHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}
	var req domain.DepositRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	result, err := h.service.Deposit(r.Context(), userID, req)
	if err != nil {
		h.respondServiceError(w, "deposit", err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// WithdrawHandler debits the caller's wallet.
func (h *Handlers) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}
	var req domain.WithdrawRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	result, err := h.service.Withdraw(r.Context(), userID, req)
	if err != nil {
		h.respondServiceError(w, "withdraw", err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// ListTransactionsHandler returns the caller's ledger history.
func (h *Handlers) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}
	txs, err := h.service.ListWalletTransactions(r.Context(), userID, listOptions(r))
	if err != nil {
		h.respondServiceError(w, "list_transactions", err)
		return
	}
	h.writeJSON(w, http.StatusOK, txs)
}

// --- Gateway payments ---

// InitializeDepositHandler records a PENDING gateway deposit and returns the
// reference to hand to the payment gateway.
func (h *Handlers) InitializeDepositHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}
	var req domain.DepositRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	tx, err := h.service.InitializeDeposit(r.Context(), userID, req.Amount)
	if err != nil {
		h.respondServiceError(w, "initialize_deposit", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, tx)
}

// InitializeGoalFundingHandler records a PENDING gateway goal funding.
func (h *Handlers) InitializeGoalFundingHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}
	goalID, ok := h.pathUUID(w, r, "goalID")
	if !ok {
		return
	}
	var req domain.FundGoalRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	tx, err := h.service.InitializeGoalFunding(r.Context(), userID, goalID, req.Amount)
	if err != nil {
		h.respondServiceError(w, "initialize_goal_funding", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, tx)
}

// VerifyPaymentHandler returns the current status of a gateway reference.
func (h *Handlers) VerifyPaymentHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}
	reference := chi.URLParam(r, "reference")
	if reference == "" {
		h.writeError(w, http.StatusBadRequest, "Missing payment reference")
		return
	}
	tx, err := h.service.VerifyPayment(r.Context(), userID, reference)
	if err != nil {
		h.respondServiceError(w, "verify_payment", err)
		return
	}
	h.writeJSON(w, http.StatusOK, tx)
}

// FulfillPaymentHandler applies a confirmed gateway payment. Internal only.
func (h *Handlers) FulfillPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.FulfillPaymentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	tx, err := h.service.FulfillPayment(r.Context(), req.Reference)
	if err != nil {
		h.respondServiceError(w, "fulfill_payment", err)
		return
	}
	h.writeJSON(w, http.StatusOK, tx)
}

// --- Goals ---

// CreateGoalHandler creates a savings goal.
func (h *Handlers) CreateGoalHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}
	var req domain.CreateGoalRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	goal, err := h.service.CreateGoal(r.Context(), userID, req)
	if err != nil {
		h.respondServiceError(w, "create_goal", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, goal)
}

// ListGoalsHandler lists the caller's goals.
func (h *Handlers) ListGoalsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}
	goals, err := h.service.ListGoals(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, "list_goals", err)
		return
	}
	h.writeJSON(w, http.StatusOK, goals)
}

// GetGoalHandler returns one of the caller's goals.
func (h *Handlers) GetGoalHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}
	goalID, ok := h.pathUUID(w, r, "goalID")
	if !ok {
		return
	}
	goal, err := h.service.GetGoal(r.Context(), userID, goalID)
	if err != nil {
		h.respondServiceError(w, "get_goal", err)
		return
	}
	h.writeJSON(w, http.StatusOK, goal)
}

// FundGoalHandler moves wallet funds into a goal.
func (h *Handlers) FundGoalHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}
	goalID, ok := h.pathUUID(w, r, "goalID")
	if !ok {
		return
	}
	var req domain.FundGoalRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	log.Printf("level=info component=api endpoint=fund_goal outcome=accepted user_id=%s goal_id=%s amount=%s", userID, goalID, req.Amount)
	result, err := h.service.FundGoal(r.Context(), userID, goalID, req)
	if err != nil {
		h.respondServiceError(w, "fund_goal", err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// GoalWithdrawHandler reclaims goal funds back into the wallet.
func (h *Handlers) GoalWithdrawHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}
	goalID, ok := h.pathUUID(w, r, "goalID")
	if !ok {
		return
	}
	var req domain.GoalWithdrawRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	result, err := h.service.WithdrawFromGoal(r.Context(), userID, goalID, req)
	if err != nil {
		h.respondServiceError(w, "goal_withdraw", err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// RedeemGoalHandler converts a completed product-linked goal into a merchant
// credit.
func (h *Handlers) RedeemGoalHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}
	goalID, ok := h.pathUUID(w, r, "goalID")
	if !ok {
		return
	}
	result, err := h.service.RedeemGoal(r.Context(), userID, goalID)
	if err != nil {
		h.respondServiceError(w, "redeem_goal", err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// UpdateRecurringSettingsHandler updates a goal's auto-debit settings.
func (h *Handlers) UpdateRecurringSettingsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}
	goalID, ok := h.pathUUID(w, r, "goalID")
	if !ok {
		return
	}
	var req domain.RecurringSettingsRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	goal, err := h.service.UpdateRecurringSettings(r.Context(), userID, goalID, req)
	if err != nil {
		h.respondServiceError(w, "update_recurring", err)
		return
	}
	h.writeJSON(w, http.StatusOK, goal)
}

// --- Merchants ---

// CreateMerchantProfileHandler registers the caller as a merchant.
func (h *Handlers) CreateMerchantProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}
	var req domain.CreateMerchantProfileRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	profile, err := h.service.CreateMerchantProfile(r.Context(), userID, req)
	if err != nil {
		h.respondServiceError(w, "create_merchant", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, profile)
}

// GetMerchantProfileHandler returns the caller's merchant profile.
func (h *Handlers) GetMerchantProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}
	profile, err := h.service.GetMerchantProfile(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, "get_merchant", err)
		return
	}
	h.writeJSON(w, http.StatusOK, profile)
}

// RequestPayoutHandler holds merchant funds and records a pending payout.
func (h *Handlers) RequestPayoutHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}
	var req domain.PayoutRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	tx, err := h.service.RequestPayout(r.Context(), userID, req)
	if err != nil {
		h.respondServiceError(w, "request_payout", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, tx)
}

// --- Admin ---

// SystemStatsHandler serves the admin overview counters.
func (h *Handlers) SystemStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetSystemStats(r.Context())
	if err != nil {
		h.respondServiceError(w, "system_stats", err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// ListMerchantsHandler pages through merchant profiles.
func (h *Handlers) ListMerchantsHandler(w http.ResponseWriter, r *http.Request) {
	merchants, err := h.service.ListMerchants(r.Context(), listOptions(r))
	if err != nil {
		h.respondServiceError(w, "list_merchants", err)
		return
	}
	h.writeJSON(w, http.StatusOK, merchants)
}

type verifyMerchantRequest struct {
	Verified bool `json:"verified"`
}

// VerifyMerchantHandler flips a merchant's verification flag.
func (h *Handlers) VerifyMerchantHandler(w http.ResponseWriter, r *http.Request) {
	merchantID, ok := h.pathUUID(w, r, "merchantID")
	if !ok {
		return
	}
	var req verifyMerchantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	profile, err := h.service.SetMerchantVerified(r.Context(), merchantID, req.Verified)
	if err != nil {
		h.respondServiceError(w, "verify_merchant", err)
		return
	}
	h.writeJSON(w, http.StatusOK, profile)
}

// ListAllTransactionsHandler pages through the whole ledger.
func (h *Handlers) ListAllTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	txs, err := h.service.ListAllTransactions(r.Context(), listOptions(r))
	if err != nil {
		h.respondServiceError(w, "list_all_transactions", err)
		return
	}
	h.writeJSON(w, http.StatusOK, txs)
}

// ListPendingPayoutsHandler lists payout requests awaiting a decision.
func (h *Handlers) ListPendingPayoutsHandler(w http.ResponseWriter, r *http.Request) {
	payouts, err := h.service.ListPendingPayouts(r.Context())
	if err != nil {
		h.respondServiceError(w, "list_pending_payouts", err)
		return
	}
	h.writeJSON(w, http.StatusOK, payouts)
}

// ApprovePayoutHandler completes a pending payout.
func (h *Handlers) ApprovePayoutHandler(w http.ResponseWriter, r *http.Request) {
	adminID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}
	transactionID, ok := h.pathUUID(w, r, "transactionID")
	if !ok {
		return
	}
	tx, err := h.service.ApprovePayout(r.Context(), adminID, transactionID)
	if err != nil {
		h.respondServiceError(w, "approve_payout", err)
		return
	}
	h.writeJSON(w, http.StatusOK, tx)
}

// RejectPayoutHandler cancels a pending payout and restores the held funds.
func (h *Handlers) RejectPayoutHandler(w http.ResponseWriter, r *http.Request) {
	adminID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}
	transactionID, ok := h.pathUUID(w, r, "transactionID")
	if !ok {
		return
	}
	var req domain.RejectPayoutRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	tx, err := h.service.RejectPayout(r.Context(), adminID, transactionID, req)
	if err != nil {
		h.respondServiceError(w, "reject_payout", err)
		return
	}
	h.writeJSON(w, http.StatusOK, tx)
}

// --- Internal ---

// RunAutomationHandler triggers the daily automated savings batch. Internal
// only; safe to re-invoke for the same day.
func (h *Handlers) RunAutomationHandler(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RunDailyAutomation(r.Context())
	if err != nil {
		h.respondServiceError(w, "run_automation", err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// --- Helpers ---

func (h *Handlers) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Validation failed: %v", err))
		return false
	}
	return true
}

func (h *Handlers) pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}

func listOptions(r *http.Request) domain.ListOptions {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return domain.ListOptions{Limit: limit, Offset: offset}
}

// respondServiceError maps service errors onto HTTP statuses.
func (h *Handlers) respondServiceError(w http.ResponseWriter, endpoint string, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ledger.ErrGoalNotActive):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrInsufficientBalance), errors.Is(err, ledger.ErrInsufficientGoalBalance):
		h.writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, ledger.ErrNotRedeemable), errors.Is(err, store.ErrMerchantExists), errors.Is(err, store.ErrAlreadyProcessed):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrWalletNotFound), errors.Is(err, store.ErrGoalNotFound),
		errors.Is(err, store.ErrMerchantNotFound), errors.Is(err, store.ErrTransactionNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrStorageConflict):
		log.Printf("level=error component=api endpoint=%s msg=\"storage conflict after retries\" err=%v", endpoint, err)
		h.writeError(w, http.StatusInternalServerError, "The operation conflicted with another request. Please retry.")
	default:
		log.Printf("level=error component=api endpoint=%s msg=\"unhandled service error\" err=%v", endpoint, err)
		h.writeError(w, http.StatusInternalServerError, "An internal error occurred")
	}
}

// writeJSON is a helper for writing JSON responses.
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
