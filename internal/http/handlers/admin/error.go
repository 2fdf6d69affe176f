package admin

import (
	handlershared "github.com/courtline/internal/http/handlers/shared"
	"github.com/courtline/internal/http/response"
	"github.com/courtline/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func respondMappedError(c *gin.Context, err error, rules []handlershared.MappedError, fallbackMsg string) {
	handlershared.RespondMappedError(c, err, rules, response.CodeInternal, fallbackMsg)
}

var ticketTypeErrorRules = []handlershared.MappedError{
	{Target: service.ErrTicketTypeNotFound, Code: response.CodeNotFound},
	{Target: service.ErrTicketTypeInvalid, Code: response.CodeBadRequest},
	{Target: service.ErrTicketTypeStatusInvalid, Code: response.CodeBadRequest},
	{Target: service.ErrSeatSelectionInvalid, Code: response.CodeBadRequest},
	{Target: service.ErrInvalidQuantity, Code: response.CodeBadRequest},
	{Target: service.ErrInsufficientInventory, Code: response.CodeBadRequest},
	{Target: service.ErrSeatUnavailable, Code: response.CodeBadRequest},
	{Target: service.ErrInventoryConflict, Code: response.CodeBadRequest},
}

var reservationErrorRules = []handlershared.MappedError{
	{Target: service.ErrReservationNotFound, Code: response.CodeNotFound},
	{Target: service.ErrReservationExpired, Code: response.CodeBadRequest},
}

var ticketSaleErrorRules = []handlershared.MappedError{
	{Target: service.ErrTicketTypeNotFound, Code: response.CodeNotFound},
	{Target: service.ErrTicketTypeNotOnSale, Code: response.CodeBadRequest},
	{Target: service.ErrSaleNotFound, Code: response.CodeNotFound},
	{Target: service.ErrSaleStatusInvalid, Code: response.CodeBadRequest},
	{Target: service.ErrSaleNotRefundable, Code: response.CodeBadRequest},
	{Target: service.ErrSaleAmountInvalid, Code: response.CodeBadRequest},
	{Target: service.ErrInvalidQuantity, Code: response.CodeBadRequest},
	{Target: service.ErrExceedsMaxPerOrder, Code: response.CodeBadRequest},
	{Target: service.ErrInsufficientInventory, Code: response.CodeBadRequest},
	{Target: service.ErrSeatUnavailable, Code: response.CodeBadRequest},
	{Target: service.ErrSeatSelectionInvalid, Code: response.CodeBadRequest},
	{Target: service.ErrInventoryConflict, Code: response.CodeBadRequest},
	{Target: service.ErrBuyerInvalid, Code: response.CodeBadRequest},
}

var affiliateErrorRules = []handlershared.MappedError{
	{Target: service.ErrApplicationNotFound, Code: response.CodeNotFound},
	{Target: service.ErrApplicationAlreadyApproved, Code: response.CodeBadRequest},
	{Target: service.ErrApplicationRejected, Code: response.CodeBadRequest},
	{Target: service.ErrApplicationInvalid, Code: response.CodeBadRequest},
	{Target: service.ErrAffiliateNotFound, Code: response.CodeNotFound},
	{Target: service.ErrAffiliateStatusInvalid, Code: response.CodeBadRequest},
	{Target: service.ErrInvalidCommissionRate, Code: response.CodeBadRequest},
	{Target: service.ErrPayoutAccountInvalid, Code: response.CodeBadRequest},
	{Target: service.ErrReferralCodeExhausted, Code: response.CodeInternal},
}

var payoutErrorRules = []handlershared.MappedError{
	{Target: service.ErrPayoutNotFound, Code: response.CodeNotFound},
	{Target: service.ErrPayoutStatusInvalid, Code: response.CodeBadRequest},
	{Target: service.ErrTransferUnavailable, Code: response.CodeBadRequest},
}
