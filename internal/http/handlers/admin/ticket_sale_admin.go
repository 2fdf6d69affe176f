package admin

import (
	"time"

	handlershared "github.com/courtline/internal/http/handlers/shared"
	"github.com/courtline/internal/http/response"
	"github.com/courtline/internal/repository"
	"github.com/courtline/internal/service"

	"github.com/gin-gonic/gin"
)

// BoxOfficeSaleRequest 窗口售票请求
type BoxOfficeSaleRequest struct {
	TicketTypeID uint     `json:"ticket_type_id" binding:"required"`
	Quantity     int      `json:"quantity"`
	SeatNumbers  []string `json:"seat_numbers"`
	BuyerName    string   `json:"buyer_name"`
	BuyerEmail   string   `json:"buyer_email"`
	ReferralCode string   `json:"referral_code"`
	PaymentRef   string   `json:"payment_ref"`
}

// RefundSaleRequest 退款请求，status 取 refunded 或 cancelled
type RefundSaleRequest struct {
	Status string `json:"status"`
}

// ValidateTicketRequest 检票请求
type ValidateTicketRequest struct {
	ValidationCode string `json:"validation_code" binding:"required"`
}

// ListTicketSales 售票记录列表
func (h *Handler) ListTicketSales(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	filter := repository.TicketSaleListFilter{
		Page:         page,
		PageSize:     pageSize,
		EventID:      handlershared.QueryUint(c, "event_id"),
		TicketTypeID: handlershared.QueryUint(c, "ticket_type_id"),
		AffiliateID:  handlershared.QueryUint(c, "affiliate_id"),
		Status:       c.Query("status"),
		BuyerEmail:   c.Query("buyer_email"),
	}
	from, ok := parseQueryTime(c, "created_from")
	if !ok {
		return
	}
	to, ok := parseQueryTime(c, "created_to")
	if !ok {
		return
	}
	filter.CreatedFrom = from
	filter.CreatedTo = to

	items, total, err := h.TicketSaleService.ListSales(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "ticket sale fetch failed", err)
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}

// GetTicketSale 售票记录详情
func (h *Handler) GetTicketSale(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	sale, err := h.TicketSaleService.GetSale(id)
	if err != nil {
		respondMappedError(c, err, ticketSaleErrorRules, "ticket sale fetch failed")
		return
	}
	response.Success(c, sale)
}

// CreateBoxOfficeSale 窗口售票，直接扣减库存并出票
func (h *Handler) CreateBoxOfficeSale(c *gin.Context) {
	var req BoxOfficeSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	sale, err := h.TicketSaleService.BoxOfficeSale(service.BoxOfficeSaleInput{
		TicketTypeID: req.TicketTypeID,
		Quantity:     req.Quantity,
		SeatNumbers:  req.SeatNumbers,
		BuyerName:    req.BuyerName,
		BuyerEmail:   req.BuyerEmail,
		ReferralCode: req.ReferralCode,
		PaymentRef:   req.PaymentRef,
	})
	if err != nil {
		respondMappedError(c, err, ticketSaleErrorRules, "ticket sale create failed")
		return
	}
	requestLog(c).Infow("admin_box_office_sale_created",
		"admin_id", currentAdminID(c),
		"sale_id", sale.ID,
		"ticket_type_id", sale.TicketTypeID,
		"quantity", sale.Quantity,
	)
	response.Success(c, sale)
}

// RefundTicketSale 退款或取消售票
func (h *Handler) RefundTicketSale(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req RefundSaleRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, response.CodeBadRequest, "bad request", err)
			return
		}
	}
	sale, err := h.TicketSaleService.RefundSale(id, req.Status)
	if err != nil {
		respondMappedError(c, err, ticketSaleErrorRules, "ticket sale refund failed")
		return
	}
	requestLog(c).Infow("admin_ticket_sale_refunded",
		"admin_id", currentAdminID(c),
		"sale_id", sale.ID,
		"status", sale.Status,
	)
	response.Success(c, sale)
}

// GetTicketSalesStats 售票统计，可按活动过滤
func (h *Handler) GetTicketSalesStats(c *gin.Context) {
	stats, err := h.TicketSaleService.GetSalesStats(handlershared.QueryUint(c, "event_id"))
	if err != nil {
		respondError(c, response.CodeInternal, "ticket sale stats failed", err)
		return
	}
	response.Success(c, stats)
}

// ValidateTicket 检票，核验失败以 valid=false 返回而非错误
func (h *Handler) ValidateTicket(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	ticketID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req ValidateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	result, err := h.TicketValidationService.ValidateTicket(ticketID, req.ValidationCode, adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "ticket validate failed", err)
		return
	}
	response.SuccessWithMsg(c, result.Message, result)
}

func parseQueryTime(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid "+name, nil)
		return nil, false
	}
	return &parsed, true
}
