package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/ledger"
	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/store"
)

func TestRespondServiceErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "invalid amount", err: ledger.ErrInvalidAmount, want: http.StatusBadRequest},
		{name: "goal not active", err: ledger.ErrGoalNotActive, want: http.StatusBadRequest},
		{name: "insufficient balance", err: ledger.ErrInsufficientBalance, want: http.StatusPaymentRequired},
		{name: "insufficient goal balance", err: ledger.ErrInsufficientGoalBalance, want: http.StatusPaymentRequired},
		{name: "not redeemable", err: ledger.ErrNotRedeemable, want: http.StatusConflict},
		{name: "already processed", err: store.ErrAlreadyProcessed, want: http.StatusConflict},
		{name: "goal not found", err: store.ErrGoalNotFound, want: http.StatusNotFound},
		{name: "wrapped not found", err: errors.Join(store.ErrWalletNotFound, errors.New("context")), want: http.StatusNotFound},
		{name: "storage conflict", err: store.ErrStorageConflict, want: http.StatusInternalServerError},
		{name: "unknown", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	h := NewHandlers(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.respondServiceError(rec, "test", tt.err)
			if rec.Code != tt.want {
				t.Fatalf("expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestInternalAPIKeyMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("valid key passes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/internal/automation/run", nil)
		req.Header.Set("X-Internal-API-Key", "secret")
		InternalAPIKeyMiddleware("secret")(next).ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
	})

	t.Run("wrong key rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/internal/automation/run", nil)
		req.Header.Set("X-Internal-API-Key", "wrong")
		InternalAPIKeyMiddleware("secret")(next).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("missing key rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/internal/automation/run", nil)
		InternalAPIKeyMiddleware("secret")(next).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("unconfigured key disables endpoint", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/internal/automation/run", nil)
		req.Header.Set("X-Internal-API-Key", "anything")
		InternalAPIKeyMiddleware("")(next).ServeHTTP(rec, req)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	})
}

func TestRequireAdminRejectsMissingRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	RequireAdmin(next).ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
