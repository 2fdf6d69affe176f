package admin

import (
	"time"

	handlershared "github.com/courtline/internal/http/handlers/shared"
	"github.com/courtline/internal/http/response"
	"github.com/courtline/internal/models"
	"github.com/courtline/internal/repository"
	"github.com/courtline/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateTicketTypeRequest 创建票种请求
type CreateTicketTypeRequest struct {
	Name        string       `json:"name" binding:"required"`
	Description string       `json:"description"`
	Price       models.Money `json:"price"`
	Quantity    int          `json:"quantity"`
	SeatNumbers []string     `json:"seat_numbers"`
	SaleStartAt *time.Time   `json:"sale_start_at"`
	SaleEndAt   *time.Time   `json:"sale_end_at"`
	MaxPerOrder int          `json:"max_per_order"`
}

// UpdateTicketTypeStatusRequest 更新票种状态请求
type UpdateTicketTypeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateInventoryRequest 调整库存请求，delta 为正表示售出、为负表示退回
type UpdateInventoryRequest struct {
	Delta       int      `json:"delta"`
	SeatNumbers []string `json:"seat_numbers"`
}

// CreateTicketType 创建票种
func (h *Handler) CreateTicketType(c *gin.Context) {
	eventID, ok := handlershared.ParseUintParam(c, "event_id")
	if !ok {
		return
	}
	var req CreateTicketTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	ticketType, err := h.TicketService.CreateTicketType(service.CreateTicketTypeInput{
		EventID:     eventID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price.Decimal,
		Quantity:    req.Quantity,
		SeatNumbers: req.SeatNumbers,
		SaleStartAt: req.SaleStartAt,
		SaleEndAt:   req.SaleEndAt,
		MaxPerOrder: req.MaxPerOrder,
	})
	if err != nil {
		respondMappedError(c, err, ticketTypeErrorRules, "ticket type create failed")
		return
	}
	requestLog(c).Infow("admin_ticket_type_created",
		"admin_id", currentAdminID(c),
		"event_id", eventID,
		"ticket_type_id", ticketType.ID,
	)
	response.Success(c, ticketType)
}

// ListTicketTypes 活动下的票种列表（含已下架）
func (h *Handler) ListTicketTypes(c *gin.Context) {
	eventID, ok := handlershared.ParseUintParam(c, "event_id")
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	items, total, err := h.TicketService.ListTicketTypes(eventID, repository.TicketTypeListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   c.Query("status"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "ticket type fetch failed", err)
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}

// UpdateTicketTypeStatus 上下架票种
func (h *Handler) UpdateTicketTypeStatus(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req UpdateTicketTypeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	ticketType, err := h.TicketService.UpdateTicketTypeStatus(id, req.Status)
	if err != nil {
		respondMappedError(c, err, ticketTypeErrorRules, "ticket type update failed")
		return
	}
	response.Success(c, ticketType)
}

// UpdateTicketInventory 调整票种库存
func (h *Handler) UpdateTicketInventory(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req UpdateInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	ticketType, err := h.TicketService.UpdateInventory(id, req.Delta, req.SeatNumbers)
	if err != nil {
		respondMappedError(c, err, ticketTypeErrorRules, "inventory update failed")
		return
	}
	requestLog(c).Infow("admin_ticket_inventory_updated",
		"admin_id", currentAdminID(c),
		"ticket_type_id", id,
		"delta", req.Delta,
		"seat_count", len(req.SeatNumbers),
		"status", ticketType.Status,
	)
	response.Success(c, ticketType)
}
