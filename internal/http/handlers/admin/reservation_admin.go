package admin

import (
	"strings"
	"time"

	handlershared "github.com/courtline/internal/http/handlers/shared"
	"github.com/courtline/internal/http/response"
	"github.com/courtline/internal/repository"

	"github.com/gin-gonic/gin"
)

// ExpireReservationsRequest 手动回收过期保留请求
type ExpireReservationsRequest struct {
	Limit int `json:"limit"`
}

// ListReservations 座位保留列表
func (h *Handler) ListReservations(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	items, total, err := h.ReservationService.ListReservations(repository.SeatReservationListFilter{
		Page:         page,
		PageSize:     pageSize,
		TicketTypeID: handlershared.QueryUint(c, "ticket_type_id"),
		Status:       c.Query("status"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "reservation fetch failed", err)
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}

// CancelReservation 取消保留并归还座位
func (h *Handler) CancelReservation(c *gin.Context) {
	reservationNo := strings.TrimSpace(c.Param("no"))
	if reservationNo == "" {
		respondError(c, response.CodeBadRequest, "invalid reservation no", nil)
		return
	}
	reservation, err := h.ReservationService.CancelReservation(c.Request.Context(), reservationNo)
	if err != nil {
		respondMappedError(c, err, reservationErrorRules, "reservation cancel failed")
		return
	}
	requestLog(c).Infow("admin_reservation_cancelled",
		"admin_id", currentAdminID(c),
		"reservation_no", reservationNo,
		"status", reservation.Status,
	)
	response.Success(c, reservation)
}

// ExpireReservations 立即回收已到期的保留
func (h *Handler) ExpireReservations(c *gin.Context) {
	var req ExpireReservationsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, response.CodeBadRequest, "bad request", err)
			return
		}
	}
	released, err := h.ReservationService.ExpireDueReservations(c.Request.Context(), time.Now(), req.Limit)
	if err != nil {
		respondError(c, response.CodeInternal, "reservation expire failed", err)
		return
	}
	response.Success(c, gin.H{"released": released})
}
