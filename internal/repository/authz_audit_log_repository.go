package repository

import (
	"github.com/courtline/internal/models"

	"gorm.io/gorm"
)

// AuthzAuditLogRepository 权限审计日志数据访问接口
type AuthzAuditLogRepository interface {
	Create(log *models.AuthzAuditLog) error
	List(filter AuthzAuditLogListFilter) ([]models.AuthzAuditLog, int64, error)
}

// GormAuthzAuditLogRepository GORM 实现
type GormAuthzAuditLogRepository struct {
	db *gorm.DB
}

// NewAuthzAuditLogRepository 创建权限审计日志仓库
func NewAuthzAuditLogRepository(db *gorm.DB) *GormAuthzAuditLogRepository {
	return &GormAuthzAuditLogRepository{db: db}
}

func (r *GormAuthzAuditLogRepository) Create(log *models.AuthzAuditLog) error {
	return r.db.Create(log).Error
}

// List 最新记录在前
func (r *GormAuthzAuditLogRepository) List(filter AuthzAuditLogListFilter) ([]models.AuthzAuditLog, int64, error) {
	query := filter.scope(r.db.Model(&models.AuthzAuditLog{}))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var logs []models.AuthzAuditLog
	err := query.Scopes(paginate(filter.Page, filter.PageSize)).Order("id DESC").Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

func (f AuthzAuditLogListFilter) scope(db *gorm.DB) *gorm.DB {
	if f.OperatorAdminID != 0 {
		db = db.Where("operator_admin_id = ?", f.OperatorAdminID)
	}
	if f.TargetAdminID != 0 {
		db = db.Where("target_admin_id = ?", f.TargetAdminID)
	}
	if f.Action != "" {
		db = db.Where("action = ?", f.Action)
	}
	if f.CreatedFrom != nil {
		db = db.Where("created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		db = db.Where("created_at <= ?", *f.CreatedTo)
	}
	return db
}
