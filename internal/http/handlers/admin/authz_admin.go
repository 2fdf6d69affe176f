package admin

import (
	"strings"

	"github.com/courtline/internal/authz"
	"github.com/courtline/internal/constants"
	handlershared "github.com/courtline/internal/http/handlers/shared"
	"github.com/courtline/internal/http/response"
	"github.com/courtline/internal/logger"
	"github.com/courtline/internal/models"
	"github.com/courtline/internal/repository"
	"github.com/courtline/internal/service"

	"github.com/gin-gonic/gin"
)

type authzCreateAdminPayload struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
	IsSuper  bool   `json:"is_super"`
}

type authzSetAdminRolesPayload struct {
	Roles []string `json:"roles"`
}

// ListAuthzRoles 角色列表
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	if !h.ensureAuthz(c) {
		return
	}
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "role fetch failed", err)
		return
	}
	response.Success(c, roles)
}

// GetAuthzRolePolicies 角色策略
func (h *Handler) GetAuthzRolePolicies(c *gin.Context) {
	if !h.ensureAuthz(c) {
		return
	}
	policies, err := h.AuthzService.GetRolePolicies(c.Param("role"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid role", err)
		return
	}
	response.Success(c, policies)
}

// ListAuthzAdmins 管理员列表
func (h *Handler) ListAuthzAdmins(c *gin.Context) {
	admins, err := h.AdminRepo.List()
	if err != nil {
		respondError(c, response.CodeInternal, "admin fetch failed", err)
		return
	}
	response.Success(c, admins)
}

// CreateAuthzAdmin 创建管理员并绑定初始角色
func (h *Handler) CreateAuthzAdmin(c *gin.Context) {
	if !requireSuperAdmin(c) || !h.ensureAuthz(c) {
		return
	}
	var req authzCreateAdminPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	username := strings.TrimSpace(req.Username)
	password := strings.TrimSpace(req.Password)
	if username == "" {
		respondError(c, response.CodeBadRequest, "username is required", nil)
		return
	}
	if err := h.AuthService.ValidatePassword(password); err != nil {
		respondError(c, response.CodeBadRequest, err.Error(), nil)
		return
	}
	role := strings.TrimSpace(req.Role)
	if !req.IsSuper && !h.isKnownRole(c, role) {
		return
	}

	existing, err := h.AdminRepo.GetByUsername(username)
	if err != nil {
		respondError(c, response.CodeInternal, "admin create failed", err)
		return
	}
	if existing != nil {
		respondError(c, response.CodeBadRequest, "username already exists", nil)
		return
	}
	hash, err := h.AuthService.HashPassword(password)
	if err != nil {
		respondError(c, response.CodeInternal, "admin create failed", err)
		return
	}
	admin := &models.Admin{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		IsSuper:      req.IsSuper,
	}
	if err := h.AdminRepo.Create(admin); err != nil {
		respondError(c, response.CodeInternal, "admin create failed", err)
		return
	}
	if !admin.IsSuper {
		if err := h.AuthzService.SetAdminRoles(admin.ID, []string{role}); err != nil {
			respondError(c, response.CodeInternal, "admin role assign failed", err)
			return
		}
	}

	h.recordAuthzAudit(c, constants.AuthzAuditActionAdminCreate, admin, []string{role})
	logger.Infow("admin_authz_admin_created",
		"operator_admin_id", currentAdminID(c),
		"target_admin_id", admin.ID,
		"target_username", admin.Username,
		"role", admin.Role,
		"is_super", admin.IsSuper,
	)
	response.Success(c, admin)
}

// GetAuthzAdminRoles 查询管理员角色
func (h *Handler) GetAuthzAdminRoles(c *gin.Context) {
	if !h.ensureAuthz(c) {
		return
	}
	adminID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "admin roles fetch failed", err)
		return
	}
	response.Success(c, gin.H{"admin_id": adminID, "roles": roles})
}

// SetAuthzAdminRoles 覆盖管理员角色
func (h *Handler) SetAuthzAdminRoles(c *gin.Context) {
	if !requireSuperAdmin(c) || !h.ensureAuthz(c) {
		return
	}
	adminID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req authzSetAdminRolesPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	target, err := h.AdminRepo.GetByID(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "admin fetch failed", err)
		return
	}
	if target == nil {
		respondError(c, response.CodeNotFound, "admin not found", nil)
		return
	}
	for _, role := range req.Roles {
		if !h.isKnownRole(c, role) {
			return
		}
	}
	if err := h.AuthzService.SetAdminRoles(adminID, req.Roles); err != nil {
		respondError(c, response.CodeInternal, "admin role assign failed", err)
		return
	}
	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "admin roles fetch failed", err)
		return
	}
	h.recordAuthzAudit(c, constants.AuthzAuditActionRolesUpdate, target, roles)
	logger.Infow("admin_authz_roles_updated",
		"operator_admin_id", currentAdminID(c),
		"target_admin_id", adminID,
		"roles", roles,
	)
	response.Success(c, gin.H{"admin_id": adminID, "roles": roles})
}

// RevokeAuthzAdminTokens 作废管理员全部登录态
func (h *Handler) RevokeAuthzAdminTokens(c *gin.Context) {
	if !requireSuperAdmin(c) {
		return
	}
	adminID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	target, err := h.AdminRepo.GetByID(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "admin fetch failed", err)
		return
	}
	if target == nil {
		respondError(c, response.CodeNotFound, "admin not found", nil)
		return
	}
	if err := h.AuthService.RevokeTokens(adminID); err != nil {
		respondError(c, response.CodeInternal, "admin token revoke failed", err)
		return
	}
	h.recordAuthzAudit(c, constants.AuthzAuditActionTokensRevoke, target, nil)
	logger.Infow("admin_authz_tokens_revoked",
		"operator_admin_id", currentAdminID(c),
		"target_admin_id", adminID,
	)
	response.Success(c, gin.H{"admin_id": adminID})
}

// ListAuthzAuditLogs 权限变更审计日志
func (h *Handler) ListAuthzAuditLogs(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	filter := repository.AuthzAuditLogListFilter{
		Page:            page,
		PageSize:        pageSize,
		OperatorAdminID: handlershared.QueryUint(c, "operator_admin_id"),
		TargetAdminID:   handlershared.QueryUint(c, "target_admin_id"),
		Action:          c.Query("action"),
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

	items, total, err := h.AuthzAuditService.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "authz audit fetch failed", err)
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}

// recordAuthzAudit 写入审计失败只记日志，不影响已生效的变更
func (h *Handler) recordAuthzAudit(c *gin.Context, action string, target *models.Admin, roles []string) {
	entry := service.AuthzAuditEntry{
		OperatorID:   currentAdminID(c),
		OperatorName: currentUsername(c),
		Target:       target,
		Action:       action,
		Roles:        roles,
		RequestID:    c.GetString("request_id"),
	}
	if err := h.AuthzAuditService.Record(entry); err != nil {
		requestLog(c).Warnw("admin_authz_audit_record_failed", "action", action, "error", err)
	}
}

func (h *Handler) ensureAuthz(c *gin.Context) bool {
	if h.AuthzService == nil {
		respondError(c, response.CodeInternal, "authz service unavailable", nil)
		return false
	}
	return true
}

func (h *Handler) isKnownRole(c *gin.Context, role string) bool {
	normalized, err := authz.NormalizeRole(role)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid role", nil)
		return false
	}
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "role fetch failed", err)
		return false
	}
	for _, item := range roles {
		if item == normalized {
			return true
		}
	}
	respondError(c, response.CodeBadRequest, "unknown role: "+strings.TrimSpace(role), nil)
	return false
}

func requireSuperAdmin(c *gin.Context) bool {
	if !isSuperAdmin(c) {
		respondError(c, response.CodeForbidden, "super admin required", nil)
		return false
	}
	return true
}
