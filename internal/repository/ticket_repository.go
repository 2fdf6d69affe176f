package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/courtline/internal/constants"
	"github.com/courtline/internal/models"

	"gorm.io/gorm"
)

// TicketRepository 门票数据访问接口
type TicketRepository interface {
	WithTx(tx *gorm.DB) TicketRepository

	CreateBatch(tickets []models.Ticket) error
	GetByID(id uint) (*models.Ticket, error)
	ListBySale(saleID uint) ([]models.Ticket, error)
	ExistsByCode(code string) (bool, error)
	MarkUsed(id uint, validationCode string, adminID uint, at time.Time) (int64, error)
	TransitionBySale(saleID uint, from, to string, at time.Time) (int64, error)
}

// GormTicketRepository GORM 实现
type GormTicketRepository struct {
	db *gorm.DB
}

// NewTicketRepository 创建门票仓库
func NewTicketRepository(db *gorm.DB) *GormTicketRepository {
	return &GormTicketRepository{db: db}
}

// WithTx 绑定事务
func (r *GormTicketRepository) WithTx(tx *gorm.DB) TicketRepository {
	if tx == nil {
		return r
	}
	return &GormTicketRepository{db: tx}
}

// CreateBatch 批量创建门票
func (r *GormTicketRepository) CreateBatch(tickets []models.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	return r.db.Create(&tickets).Error
}

// GetByID 根据 ID 获取门票
func (r *GormTicketRepository) GetByID(id uint) (*models.Ticket, error) {
	if id == 0 {
		return nil, nil
	}
	var row models.Ticket
	if err := r.db.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ListBySale 获取售票记录下的全部门票
func (r *GormTicketRepository) ListBySale(saleID uint) ([]models.Ticket, error) {
	var rows []models.Ticket
	if err := r.db.Where("ticket_sale_id = ?", saleID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ExistsByCode 核验码是否已存在
func (r *GormTicketRepository) ExistsByCode(code string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Ticket{}).Where("validation_code = ?", code).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkUsed 核验门票，仅 active 且核验码匹配时更新
func (r *GormTicketRepository) MarkUsed(id uint, validationCode string, adminID uint, at time.Time) (int64, error) {
	updates := map[string]interface{}{
		"status":     constants.TicketStatusUsed,
		"used_at":    at,
		"updated_at": at,
	}
	if adminID != 0 {
		updates["used_by"] = adminID
	}
	result := r.db.Model(&models.Ticket{}).
		Where("id = ? AND validation_code = ? AND status = ?", id, strings.TrimSpace(validationCode), constants.TicketStatusActive).
		Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// TransitionBySale 批量流转售票记录下的门票状态
func (r *GormTicketRepository) TransitionBySale(saleID uint, from, to string, at time.Time) (int64, error) {
	result := r.db.Model(&models.Ticket{}).
		Where("ticket_sale_id = ? AND status = ?", saleID, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": at,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
