package loyalty

import (
	"time"

	"github.com/qualee/backend/internal/domain/shared"
)

// Lookup failures
var (
	ErrInvalidRequest   = shared.NewDomainError("INVALID_REQUEST", "Invalid request")
	ErrMerchantNotFound = shared.NewDomainError("MERCHANT_NOT_FOUND", "Merchant not found")
	ErrAccountNotFound  = shared.NewDomainError("CLIENT_NOT_FOUND", "Loyalty client not found")
	ErrRewardNotFound   = shared.NewDomainError("REWARD_NOT_FOUND", "Reward not found")
	ErrCodeNotFound     = shared.NewDomainError("CODE_NOT_FOUND", "Redemption code not found")
)

// Input validation failures
var (
	ErrMissingContact        = shared.NewDomainError("MISSING_CONTACT", "Phone or email is required")
	ErrInvalidEmail          = shared.NewDomainError("INVALID_EMAIL", "Email address is not valid")
	ErrInvalidLanguage       = shared.NewDomainError("INVALID_LANGUAGE", "Preferred language is not a valid language tag")
	ErrInvalidBirthday       = shared.NewDomainError("INVALID_BIRTHDAY", "Birthday must use the YYYY-MM-DD format")
	ErrInvalidStatus         = shared.NewDomainError("INVALID_STATUS", "Status must be one of: active, suspended, inactive")
	ErrInvalidAction         = shared.NewDomainError("INVALID_ACTION", "Action must be one of: earn, bonus, adjustment, redeem")
	ErrInvalidPoints         = shared.NewDomainError("INVALID_POINTS", "Points must be a positive integer")
	ErrMissingPoints         = shared.NewDomainError("MISSING_POINTS", "Points are required for an adjustment")
	ErrInvalidPurchaseAmount = shared.NewDomainError("INVALID_PURCHASE_AMOUNT", "Purchase amount must be positive and within the supported range")
	ErrInvalidRewardName     = shared.NewDomainError("INVALID_NAME", "Reward name is required")
	ErrInvalidRewardType     = shared.NewDomainError("INVALID_TYPE", "Reward type must be one of: discount, product, service, cashback")
	ErrInvalidCost           = shared.NewDomainError("INVALID_COST", "Points cost must be greater than zero")
	ErrInvalidQuantity       = shared.NewDomainError("INVALID_QUANTITY", "Quantity available cannot be negative")
	ErrInvalidResolveAction  = shared.NewDomainError("INVALID_ACTION", "Action must be one of: use, cancel")
	ErrInvalidSettings       = shared.NewDomainError("INVALID_SETTINGS", "Invalid loyalty settings")
)

// Business rule violations
var (
	ErrLoyaltyDisabled      = shared.NewDomainError("LOYALTY_DISABLED", "Loyalty program is not enabled for this merchant")
	ErrBelowThreshold       = shared.NewDomainError("BELOW_THRESHOLD", "Purchase amount is below the minimum for earning points")
	ErrInsufficientPoints   = shared.NewDomainError("INSUFFICIENT_POINTS", "Insufficient points")
	ErrNegativeBalance      = shared.NewDomainError("NEGATIVE_BALANCE", "Operation would result in a negative balance")
	ErrAccountInactive      = shared.NewDomainError("CLIENT_INACTIVE", "Loyalty client is not active")
	ErrRewardInactive       = shared.NewDomainError("REWARD_INACTIVE", "Reward is not active")
	ErrRewardExpired        = shared.NewDomainError("REWARD_EXPIRED", "Reward is no longer available")
	ErrOutOfStock           = shared.NewDomainError("OUT_OF_STOCK", "Reward is out of stock")
	ErrCodeAlreadyUsed      = shared.NewDomainError("CODE_ALREADY_USED", "This code has already been used")
	ErrCodeAlreadyCancelled = shared.NewDomainError("CODE_ALREADY_CANCELLED", "This code has been cancelled")
	ErrCodeExpired          = shared.NewDomainError("CODE_EXPIRED", "This code has expired")
	ErrContactInUse         = shared.NewDomainError("CONTACT_IN_USE", "Phone or email already belongs to another client")
)

// Infrastructure-facing failures
var (
	ErrCodeCollision        = shared.NewDomainError("CODE_COLLISION", "Redemption code already exists")
	ErrCardIDCollision      = shared.NewDomainError("CARD_ID_COLLISION", "Card identifier already exists")
	ErrCodeGenerationFailed = shared.NewDomainError("CODE_GENERATION_FAILED", "Could not allocate a unique redemption code")
)

// InsufficientPoints reports the shortfall for a debit.
func InsufficientPoints(required, available int64) error {
	return ErrInsufficientPoints.
		WithDetail("required", required).
		WithDetail("available", available)
}

// NegativeBalance reports the balance the rejected operation was applied to.
func NegativeBalance(current int64) error {
	return ErrNegativeBalance.WithDetail("currentBalance", current)
}

// CodeAlreadyUsed reports when the code was consumed.
func CodeAlreadyUsed(usedAt *time.Time) error {
	if usedAt == nil {
		return ErrCodeAlreadyUsed
	}
	return ErrCodeAlreadyUsed.WithDetail("usedAt", usedAt.UTC())
}
