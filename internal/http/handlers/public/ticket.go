package public

import (
	"github.com/courtline/internal/constants"
	handlershared "github.com/courtline/internal/http/handlers/shared"
	"github.com/courtline/internal/http/response"
	"github.com/courtline/internal/repository"
	"github.com/courtline/internal/service"

	"github.com/gin-gonic/gin"
)

// PurchaseRequest 购票请求
type PurchaseRequest struct {
	Quantity     int      `json:"quantity"`
	SeatNumbers  []string `json:"seat_numbers"`
	ReferralCode string   `json:"referral_code"`
	BuyerName    string   `json:"buyer_name"`
	BuyerEmail   string   `json:"buyer_email" binding:"required"`
}

// ListEventTicketTypes 活动在售票种列表（不含已下架）
func (h *Handler) ListEventTicketTypes(c *gin.Context) {
	eventID, ok := handlershared.ParseUintParam(c, "event_id")
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	items, total, err := h.TicketService.ListTicketTypes(eventID, repository.TicketTypeListFilter{
		Page:            page,
		PageSize:        pageSize,
		ExcludeInactive: true,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "ticket type fetch failed", err)
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}

// GetTicketType 票种详情
func (h *Handler) GetTicketType(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	ticketType, err := h.TicketService.GetTicketType(id)
	if err != nil {
		respondMappedError(c, err, purchaseErrorRules, "ticket type fetch failed")
		return
	}
	if ticketType.Status == constants.TicketTypeStatusInactive {
		respondError(c, response.CodeNotFound, service.ErrTicketTypeNotFound.Error(), nil)
		return
	}
	response.Success(c, ticketType)
}

// PurchaseTickets 保留座位并创建收银台会话
func (h *Handler) PurchaseTickets(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	result, err := h.CheckoutService.InitiatePurchase(c.Request.Context(), service.PurchaseInput{
		TicketTypeID: id,
		Quantity:     req.Quantity,
		SeatNumbers:  req.SeatNumbers,
		ReferralCode: req.ReferralCode,
		BuyerName:    req.BuyerName,
		BuyerEmail:   req.BuyerEmail,
	})
	if err != nil {
		respondMappedError(c, err, purchaseErrorRules, "purchase failed")
		return
	}
	requestLog(c).Infow("public_purchase_initiated",
		"ticket_type_id", id,
		"reservation_no", result.ReservationNo,
		"quantity", result.Quantity,
		"client_ip", c.ClientIP(),
	)
	response.Success(c, result)
}
