/**
 * @description
 * Merchant profile management: registration, profile lookup, and the merchant's
 * own redemption balance view.
 */

package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nsiahkofidennis001-cloud/savegoal-backend/internal/domain"
)

// CreateMerchantProfile registers the caller as a merchant. A user holds at
// most one merchant profile.
func (s *Service) CreateMerchantProfile(ctx context.Context, userID uuid.UUID, req domain.CreateMerchantProfileRequest) (*domain.MerchantProfile, error) {
	profile := &domain.MerchantProfile{
		UserID:          userID,
		BusinessName:    req.BusinessName,
		BankName:        req.BankName,
		BankAccountNo:   req.BankAccountNo,
		BankAccountName: req.BankAccountName,
	}
	if err := s.repo.CreateMerchantProfile(ctx, profile); err != nil {
		return nil, err
	}

	s.notify(ctx, userID, "merchant", "Merchant profile created",
		fmt.Sprintf("Your merchant profile %q was created and is awaiting verification.", profile.BusinessName),
		map[string]any{"merchant_profile_id": profile.ID.String()})
	return profile, nil
}

// GetMerchantProfile returns the caller's merchant profile.
func (s *Service) GetMerchantProfile(ctx context.Context, userID uuid.UUID) (*domain.MerchantProfile, error) {
	return s.repo.FindMerchantByUserID(ctx, userID)
}
