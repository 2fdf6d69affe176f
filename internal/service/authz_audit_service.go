package service

import (
	"slices"
	"strings"
	"time"

	"github.com/courtline/internal/models"
	"github.com/courtline/internal/repository"
)

// AuthzAuditEntry 一次权限变更
type AuthzAuditEntry struct {
	OperatorID   uint
	OperatorName string
	Target       *models.Admin
	Action       string
	Roles        []string
	RequestID    string
}

// AuthzAuditService 记录并查询后台账号、角色与令牌的变更
type AuthzAuditService struct {
	repo repository.AuthzAuditLogRepository
	now  func() time.Time
}

// NewAuthzAuditService 创建权限审计服务
func NewAuthzAuditService(repo repository.AuthzAuditLogRepository) *AuthzAuditService {
	return &AuthzAuditService{repo: repo, now: time.Now}
}

// Record 写入审计记录；没有操作人或动作的条目直接丢弃
func (s *AuthzAuditService) Record(entry AuthzAuditEntry) error {
	if s == nil || s.repo == nil {
		return nil
	}
	action := strings.TrimSpace(entry.Action)
	if entry.OperatorID == 0 || action == "" {
		return nil
	}

	log := &models.AuthzAuditLog{
		OperatorAdminID:  entry.OperatorID,
		OperatorUsername: strings.TrimSpace(entry.OperatorName),
		Action:           action,
		Roles:            models.StringArray(auditRoles(entry.Roles)),
		RequestID:        strings.TrimSpace(entry.RequestID),
		CreatedAt:        s.now(),
	}
	if entry.Target != nil {
		targetID := entry.Target.ID
		log.TargetAdminID = &targetID
		log.TargetUsername = entry.Target.Username
	}
	return s.repo.Create(log)
}

// auditRoles 去空、去重并排序
func auditRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		if role = strings.TrimSpace(role); role != "" {
			out = append(out, role)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// List 按条件分页查询
func (s *AuthzAuditService) List(filter repository.AuthzAuditLogListFilter) ([]models.AuthzAuditLog, int64, error) {
	if s == nil || s.repo == nil {
		return []models.AuthzAuditLog{}, 0, nil
	}
	return s.repo.List(filter)
}
