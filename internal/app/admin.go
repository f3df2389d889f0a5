/**
 * @description
 * Admin surfaces: platform stats, merchant verification, and the global
 * transaction listing.
 */

package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/domain"
)

// GetSystemStats aggregates the counters for the admin overview.
func (s *Service) GetSystemStats(ctx context.Context) (*domain.SystemStats, error) {
	return s.repo.GetSystemStats(ctx)
}

// ListMerchants pages through all merchant profiles.
func (s *Service) ListMerchants(ctx context.Context, opts domain.ListOptions) ([]domain.MerchantProfile, error) {
	return s.repo.ListMerchants(ctx, opts)
}

// SetMerchantVerified flips a merchant's verification flag.
func (s *Service) SetMerchantVerified(ctx context.Context, merchantID uuid.UUID, verified bool) (*domain.MerchantProfile, error) {
	merchant, err := s.repo.SetMerchantVerified(ctx, merchantID, verified)
	if err != nil {
		return nil, err
	}
	if verified {
		s.notify(ctx, merchant.UserID, "merchant", "Merchant profile verified",
			fmt.Sprintf("Your merchant profile %q has been verified.", merchant.BusinessName),
			map[string]any{"merchant_profile_id": merchant.ID.String()})
	}
	return merchant, nil
}

// ListAllTransactions pages through the whole ledger.
func (s *Service) ListAllTransactions(ctx context.Context, opts domain.ListOptions) ([]domain.Transaction, error) {
	return s.repo.ListTransactions(ctx, opts)
}
