package admin

import (
	"errors"
	"time"

	"github.com/courtline/internal/http/response"
	"github.com/courtline/internal/service"

	"github.com/gin-gonic/gin"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string                 `json:"token"`
	User      map[string]interface{} `json:"user"`
	ExpiresAt string                 `json:"expires_at"`
}

// AdminLogin 管理员登录
func (h *Handler) AdminLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	result, err := h.AuthService.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respondError(c, response.CodeUnauthorized, service.ErrInvalidCredentials.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "login failed", err)
		return
	}
	response.Success(c, LoginResponse{
		Token: result.Token,
		User: map[string]interface{}{
			"id":       result.Admin.ID,
			"username": result.Admin.Username,
			"is_super": result.Admin.IsSuper,
		},
		ExpiresAt: result.ExpiresAt.Format(time.RFC3339),
	})
}

// GetAdminMe 当前管理员信息与生效权限
func (h *Handler) GetAdminMe(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	admin, err := h.AuthService.GetAdmin(adminID)
	if err != nil {
		if errors.Is(err, service.ErrAdminNotFound) {
			respondError(c, response.CodeNotFound, service.ErrAdminNotFound.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "admin fetch failed", err)
		return
	}

	data := gin.H{
		"id":            admin.ID,
		"username":      admin.Username,
		"is_super":      admin.IsSuper,
		"last_login_at": admin.LastLoginAt,
		"roles":         []string{},
		"policies":      []interface{}{},
	}
	if h.AuthzService != nil && !admin.IsSuper {
		roles, err := h.AuthzService.GetAdminRoles(admin.ID)
		if err != nil {
			respondError(c, response.CodeInternal, "admin roles fetch failed", err)
			return
		}
		policies, err := h.AuthzService.GetAdminPolicies(admin.ID)
		if err != nil {
			respondError(c, response.CodeInternal, "admin policies fetch failed", err)
			return
		}
		data["roles"] = roles
		data["policies"] = policies
	}
	response.Success(c, data)
}
