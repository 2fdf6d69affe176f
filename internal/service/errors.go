package service

import "errors"

var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAdminNotFound      = errors.New("admin not found")
	ErrWeakPassword       = errors.New("password does not meet policy")
)

// 票种与库存
var (
	ErrTicketTypeNotFound      = errors.New("ticket type not found")
	ErrTicketTypeInvalid       = errors.New("invalid ticket type")
	ErrTicketTypeStatusInvalid = errors.New("invalid ticket type status")
	ErrTicketTypeNotOnSale     = errors.New("ticket type is not on sale")
	ErrInvalidQuantity         = errors.New("invalid quantity")
	ErrExceedsMaxPerOrder      = errors.New("quantity exceeds max per order")
	ErrInsufficientInventory   = errors.New("insufficient inventory")
	ErrSeatUnavailable         = errors.New("seat unavailable")
	ErrSeatSelectionInvalid    = errors.New("invalid seat selection")
	ErrInventoryConflict       = errors.New("inventory update conflict")
)

// 座位保留与结账
var (
	ErrReservationNotFound  = errors.New("reservation not found")
	ErrReservationExpired   = errors.New("reservation expired")
	ErrBuyerInvalid         = errors.New("invalid buyer information")
	ErrCheckoutUnavailable  = errors.New("checkout provider unavailable")
	ErrCheckoutCreateFailed = errors.New("checkout session create failed")
	ErrWebhookInvalid       = errors.New("invalid payment webhook")
)

// 售票与核验
var (
	ErrSaleNotFound       = errors.New("ticket sale not found")
	ErrSaleStatusInvalid  = errors.New("invalid ticket sale status")
	ErrSaleNotRefundable  = errors.New("ticket sale is not refundable")
	ErrSaleAmountInvalid  = errors.New("invalid ticket sale amount")
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrValidationCodeFull = errors.New("validation code generation exhausted")
)

// 推广申请与推广者
var (
	ErrApplicationNotFound        = errors.New("Application not found")
	ErrApplicationAlreadyApproved = errors.New("Application already approved")
	ErrApplicationRejected        = errors.New("Application already rejected")
	ErrApplicationInvalid         = errors.New("invalid affiliate application")
	ErrApplicationDuplicate       = errors.New("a pending application already exists for this email")
	ErrAffiliateNotFound          = errors.New("affiliate not found")
	ErrAffiliateStatusInvalid     = errors.New("invalid affiliate status")
	ErrInvalidCommissionRate      = errors.New("Commission rate must be between 0 and 1")
	ErrReferralCodeExhausted      = errors.New("referral code generation exhausted")
	ErrPayoutAccountInvalid       = errors.New("invalid payout account")
)

// 佣金结算
var (
	ErrPayoutNotFound       = errors.New("payout not found")
	ErrPayoutStatusInvalid  = errors.New("invalid payout status")
	ErrPayoutBalanceChanged = errors.New("affiliate pending balance changed")
	ErrPayoutTransferFailed = errors.New("payout transfer failed")
	ErrTransferUnavailable  = errors.New("payout transfer provider unavailable")
)
