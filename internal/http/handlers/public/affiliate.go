package public

import (
	"errors"

	"github.com/courtline/internal/http/response"
	"github.com/courtline/internal/service"

	"github.com/gin-gonic/gin"
)

// AffiliateApplicationRequest 推广申请请求
type AffiliateApplicationRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required"`
	Phone   string `json:"phone"`
	Website string `json:"website"`
	Message string `json:"message"`
}

// GetReferral 查询推广码
func (h *Handler) GetReferral(c *gin.Context) {
	info, err := h.AffiliateService.GetAffiliateByCode(c.Param("code"))
	if err != nil {
		if errors.Is(err, service.ErrAffiliateNotFound) {
			respondError(c, response.CodeNotFound, "referral code not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "referral fetch failed", err)
		return
	}
	response.Success(c, info)
}

// SubmitAffiliateApplication 提交推广申请
func (h *Handler) SubmitAffiliateApplication(c *gin.Context) {
	var req AffiliateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	app, err := h.AffiliateService.SubmitApplication(service.AffiliateApplicationInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Website: req.Website,
		Message: req.Message,
	})
	if err != nil {
		respondMappedError(c, err, affiliateApplicationErrorRules, "affiliate application submit failed")
		return
	}
	response.Success(c, gin.H{
		"id":     app.ID,
		"status": app.Status,
	})
}
