package admin

import (
	"errors"
	"time"

	handlershared "github.com/courtline/internal/http/handlers/shared"
	"github.com/courtline/internal/http/response"
	"github.com/courtline/internal/repository"
	"github.com/courtline/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// RejectApplicationRequest 驳回申请请求
type RejectApplicationRequest struct {
	Reason string `json:"reason"`
}

// UpdateCommissionRateRequest 修改佣金比例请求
type UpdateCommissionRateRequest struct {
	CommissionRate decimal.Decimal `json:"commission_rate"`
}

// UpdateAffiliateStatusRequest 修改推广者状态请求
type UpdateAffiliateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdatePayoutAccountRequest 绑定收款账户请求，空字符串表示解绑
type UpdatePayoutAccountRequest struct {
	PayoutAccountID string `json:"payout_account_id"`
}

// ListAffiliateApplications 推广申请列表
func (h *Handler) ListAffiliateApplications(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	items, total, err := h.AffiliateService.ListApplications(repository.AffiliateApplicationListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   c.Query("status"),
		Keyword:  c.Query("keyword"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "affiliate application fetch failed", err)
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}

// ApproveAffiliateApplication 审核通过并生成推广者
func (h *Handler) ApproveAffiliateApplication(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	affiliate, err := h.AffiliateService.ApproveAffiliate(id, adminID)
	if err != nil {
		respondMappedError(c, err, affiliateErrorRules, "affiliate approve failed")
		return
	}
	response.Success(c, affiliate)
}

// RejectAffiliateApplication 驳回推广申请
func (h *Handler) RejectAffiliateApplication(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req RejectApplicationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, response.CodeBadRequest, "bad request", err)
			return
		}
	}
	app, err := h.AffiliateService.RejectApplication(id, adminID, req.Reason)
	if err != nil {
		respondMappedError(c, err, affiliateErrorRules, "affiliate reject failed")
		return
	}
	response.Success(c, app)
}

// ListAffiliates 推广者列表
func (h *Handler) ListAffiliates(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	items, total, err := h.AffiliateService.ListAffiliates(repository.AffiliateListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   c.Query("status"),
		Code:     c.Query("code"),
		Keyword:  c.Query("keyword"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "affiliate fetch failed", err)
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}

// GetAffiliate 推广者详情
func (h *Handler) GetAffiliate(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	affiliate, err := h.AffiliateService.GetAffiliate(id)
	if err != nil {
		respondMappedError(c, err, affiliateErrorRules, "affiliate fetch failed")
		return
	}
	response.Success(c, affiliate)
}

// UpdateAffiliateCommissionRate 修改佣金比例
func (h *Handler) UpdateAffiliateCommissionRate(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req UpdateCommissionRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	affiliate, err := h.AffiliateService.UpdateCommissionRate(id, req.CommissionRate)
	if err != nil {
		respondMappedError(c, err, affiliateErrorRules, "affiliate update failed")
		return
	}
	requestLog(c).Infow("admin_affiliate_commission_rate_updated",
		"admin_id", currentAdminID(c),
		"affiliate_id", id,
		"commission_rate", req.CommissionRate.String(),
	)
	response.Success(c, affiliate)
}

// UpdateAffiliateStatus 启用或暂停推广者
func (h *Handler) UpdateAffiliateStatus(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req UpdateAffiliateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	affiliate, err := h.AffiliateService.UpdateAffiliateStatus(id, req.Status)
	if err != nil {
		respondMappedError(c, err, affiliateErrorRules, "affiliate update failed")
		return
	}
	response.Success(c, affiliate)
}

// UpdateAffiliatePayoutAccount 绑定收款账户
func (h *Handler) UpdateAffiliatePayoutAccount(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req UpdatePayoutAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	affiliate, err := h.AffiliateService.UpdatePayoutAccount(id, req.PayoutAccountID)
	if err != nil {
		respondMappedError(c, err, affiliateErrorRules, "affiliate update failed")
		return
	}
	response.Success(c, affiliate)
}

// ProcessAffiliatePayouts 触发月度结算批处理
func (h *Handler) ProcessAffiliatePayouts(c *gin.Context) {
	results, err := h.AffiliatePayoutService.ProcessMonthlyPayouts(c.Request.Context(), time.Now())
	if err != nil {
		respondError(c, response.CodeInternal, "affiliate payout process failed", err)
		return
	}
	failed := 0
	for _, item := range results {
		if item.Error != "" {
			failed++
		}
	}
	requestLog(c).Infow("admin_affiliate_payouts_processed",
		"admin_id", currentAdminID(c),
		"total", len(results),
		"failed", failed,
	)
	response.Success(c, gin.H{
		"results": results,
		"total":   len(results),
		"failed":  failed,
	})
}

// ListAffiliatePayouts 结算记录列表
func (h *Handler) ListAffiliatePayouts(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	items, total, err := h.AffiliatePayoutService.ListPayouts(repository.AffiliatePayoutListFilter{
		Page:        page,
		PageSize:    pageSize,
		AffiliateID: handlershared.QueryUint(c, "affiliate_id"),
		Status:      c.Query("status"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "affiliate payout fetch failed", err)
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}

// GetAffiliatePayout 结算记录详情
func (h *Handler) GetAffiliatePayout(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	payout, err := h.AffiliatePayoutService.GetPayout(id)
	if err != nil {
		respondMappedError(c, err, payoutErrorRules, "affiliate payout fetch failed")
		return
	}
	response.Success(c, payout)
}

// ExecuteAffiliatePayout 立即对 pending 结算发起转账
func (h *Handler) ExecuteAffiliatePayout(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	payout, err := h.AffiliatePayoutService.ExecutePayout(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrPayoutTransferFailed) && payout != nil {
			// 转账失败时余额已退回，附带最新结算记录
			response.ErrorWithData(c, response.CodeBadRequest, err.Error(), gin.H{"payout": payout})
			return
		}
		respondMappedError(c, err, payoutErrorRules, "affiliate payout execute failed")
		return
	}
	response.Success(c, payout)
}
