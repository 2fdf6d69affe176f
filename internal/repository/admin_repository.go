package repository

import (
	"strings"
	"time"

	"github.com/courtline/internal/models"

	"gorm.io/gorm"
)

// AdminRepository 管理员数据访问接口
type AdminRepository interface {
	GetByUsername(username string) (*models.Admin, error)
	GetByID(id uint) (*models.Admin, error)
	List() ([]models.Admin, error)
	Create(admin *models.Admin) error
	TouchLogin(id uint, at time.Time) error
	RevokeTokens(id uint, at time.Time) error
}

// GormAdminRepository GORM 实现
type GormAdminRepository struct {
	db *gorm.DB
}

// NewAdminRepository 创建管理员仓库
func NewAdminRepository(db *gorm.DB) *GormAdminRepository {
	return &GormAdminRepository{db: db}
}

// GetByUsername 用户名为空或不存在时返回 nil
func (r *GormAdminRepository) GetByUsername(username string) (*models.Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, nil
	}
	return firstOrNil[models.Admin](r.db.Where("username = ?", username))
}

// GetByID 不存在时返回 nil
func (r *GormAdminRepository) GetByID(id uint) (*models.Admin, error) {
	return firstOrNil[models.Admin](r.db, id)
}

// List 全部管理员，不含密码与 Token 字段
func (r *GormAdminRepository) List() ([]models.Admin, error) {
	var admins []models.Admin
	err := r.db.Select("id", "username", "role", "is_super", "last_login_at", "created_at").
		Order("id ASC").
		Find(&admins).Error
	return admins, err
}

func (r *GormAdminRepository) Create(admin *models.Admin) error {
	return r.db.Create(admin).Error
}

func (r *GormAdminRepository) TouchLogin(id uint, at time.Time) error {
	return r.db.Model(&models.Admin{}).Where("id = ?", id).Update("last_login_at", at).Error
}

// RevokeTokens 递增 Token 版本并记录失效时间点，旧 Token 全部作废
func (r *GormAdminRepository) RevokeTokens(id uint, at time.Time) error {
	return r.db.Model(&models.Admin{}).Where("id = ?", id).Updates(map[string]interface{}{
		"token_version":        gorm.Expr("token_version + 1"),
		"token_invalid_before": at,
	}).Error
}
