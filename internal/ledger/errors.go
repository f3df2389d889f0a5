package ledger

import "errors"

// Typed rejections returned by the transition functions. The API layer maps
// each to a stable error code; they are never coerced to generic failures.
var (
	ErrInvalidAmount           = errors.New("amount must be positive")
	ErrInsufficientBalance     = errors.New("insufficient balance")
	ErrInsufficientGoalBalance = errors.New("insufficient goal balance")
	ErrGoalNotActive           = errors.New("goal is not active")
	ErrNotRedeemable           = errors.New("goal is not redeemable")
)
