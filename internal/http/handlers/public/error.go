package public

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

var purchaseErrorRules = []handlershared.MappedError{
	{Target: service.ErrTicketTypeNotFound, Code: response.CodeNotFound},
	{Target: service.ErrTicketTypeNotOnSale, Code: response.CodeBadRequest},
	{Target: service.ErrInvalidQuantity, Code: response.CodeBadRequest},
	{Target: service.ErrExceedsMaxPerOrder, Code: response.CodeBadRequest},
	{Target: service.ErrInsufficientInventory, Code: response.CodeBadRequest},
	{Target: service.ErrSeatUnavailable, Code: response.CodeBadRequest},
	{Target: service.ErrSeatSelectionInvalid, Code: response.CodeBadRequest},
	{Target: service.ErrInventoryConflict, Code: response.CodeBadRequest},
	{Target: service.ErrBuyerInvalid, Code: response.CodeBadRequest},
	{Target: service.ErrCheckoutUnavailable, Code: response.CodeBadRequest},
	{Target: service.ErrCheckoutCreateFailed, Code: response.CodeInternal},
}

var affiliateApplicationErrorRules = []handlershared.MappedError{
	{Target: service.ErrApplicationInvalid, Code: response.CodeBadRequest},
	{Target: service.ErrApplicationDuplicate, Code: response.CodeBadRequest},
}
