package models

import "time"

// AuthzAuditLog 后台权限变更审计
type AuthzAuditLog struct {
	ID               uint        `gorm:"primarykey" json:"id"`
	OperatorAdminID  uint        `gorm:"index;not null" json:"operator_admin_id"`
	OperatorUsername string      `gorm:"type:varchar(100);not null;default:''" json:"operator_username"`
	TargetAdminID    *uint       `gorm:"index" json:"target_admin_id,omitempty"`
	TargetUsername   string      `gorm:"type:varchar(100);not null;default:''" json:"target_username"`
	Action           string      `gorm:"type:varchar(60);index;not null" json:"action"`
	Roles            StringArray `gorm:"type:json" json:"roles,omitempty"`
	RequestID        string      `gorm:"type:varchar(64);not null;default:''" json:"request_id"`
	CreatedAt        time.Time   `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (AuthzAuditLog) TableName() string {
	return "authz_audit_logs"
}
