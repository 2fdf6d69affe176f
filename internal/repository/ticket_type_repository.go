package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/courtline/internal/constants"
	"github.com/courtline/internal/models"

	"gorm.io/gorm"
)

// InventoryChange 票种库存的一次原子变更
type InventoryChange struct {
	SoldDelta     int
	ReservedDelta int
	// AvailableSeats 非 nil 时整体替换可售座位列表
	AvailableSeats models.StringArray
	// ExpectVersion 非 nil 时要求库存版本一致（座位列表 CAS）
	ExpectVersion *uint64
	// RequireActive 要求票种处于 active 状态
	RequireActive bool
}

// TicketTypeRepository 票种数据访问接口
type TicketTypeRepository interface {
	WithTx(tx *gorm.DB) TicketTypeRepository
	Transaction(fn func(tx *gorm.DB) error) error

	Create(ticketType *models.TicketType) error
	GetByID(id uint) (*models.TicketType, error)
	List(filter TicketTypeListFilter) ([]models.TicketType, int64, error)
	UpdateStatus(id uint, status string) (int64, error)
	ApplyInventoryChange(id uint, change InventoryChange) (int64, error)
}

// GormTicketTypeRepository GORM 实现
type GormTicketTypeRepository struct {
	db *gorm.DB
}

// NewTicketTypeRepository 创建票种仓库
func NewTicketTypeRepository(db *gorm.DB) *GormTicketTypeRepository {
	return &GormTicketTypeRepository{db: db}
}

// WithTx 绑定事务
func (r *GormTicketTypeRepository) WithTx(tx *gorm.DB) TicketTypeRepository {
	if tx == nil {
		return r
	}
	return &GormTicketTypeRepository{db: tx}
}

// Transaction 执行事务
func (r *GormTicketTypeRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建票种
func (r *GormTicketTypeRepository) Create(ticketType *models.TicketType) error {
	if ticketType == nil {
		return errors.New("ticket type is nil")
	}
	return r.db.Create(ticketType).Error
}

// GetByID 根据 ID 获取票种
func (r *GormTicketTypeRepository) GetByID(id uint) (*models.TicketType, error) {
	if id == 0 {
		return nil, nil
	}
	var row models.TicketType
	if err := r.db.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// List 查询票种列表
func (r *GormTicketTypeRepository) List(filter TicketTypeListFilter) ([]models.TicketType, int64, error) {
	query := r.db.Model(&models.TicketType{})
	if filter.EventID != 0 {
		query = query.Where("event_id = ?", filter.EventID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if filter.ExcludeInactive {
		query = query.Where("status <> ?", constants.TicketTypeStatusInactive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = query.Scopes(paginate(filter.Page, filter.PageSize))

	var rows []models.TicketType
	if err := query.Order("id asc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// UpdateStatus 上下架票种，sold_out 由库存变更自动维护
func (r *GormTicketTypeRepository) UpdateStatus(id uint, status string) (int64, error) {
	if id == 0 {
		return 0, errors.New("invalid ticket type id")
	}
	var value interface{} = status
	if status == constants.TicketTypeStatusActive {
		value = gorm.Expr("CASE WHEN quantity_sold >= quantity_available THEN ? ELSE ? END",
			constants.TicketTypeStatusSoldOut, constants.TicketTypeStatusActive)
	}
	result := r.db.Model(&models.TicketType{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     value,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ApplyInventoryChange 单条条件 UPDATE 完成校验与变更，RowsAffected 为 0 表示条件不满足
func (r *GormTicketTypeRepository) ApplyInventoryChange(id uint, change InventoryChange) (int64, error) {
	if id == 0 {
		return 0, errors.New("invalid ticket type id")
	}
	net := change.SoldDelta + change.ReservedDelta
	query := r.db.Model(&models.TicketType{}).
		Where("id = ?", id).
		Where("quantity_sold + ? >= 0", change.SoldDelta).
		Where("quantity_reserved + ? >= 0", change.ReservedDelta).
		Where("quantity_sold + quantity_reserved + ? <= quantity_available", net)
	if change.ExpectVersion != nil {
		query = query.Where("inventory_version = ?", *change.ExpectVersion)
	}
	if change.RequireActive {
		query = query.Where("status = ?", constants.TicketTypeStatusActive)
	}

	updates := map[string]interface{}{
		"quantity_sold":     gorm.Expr("quantity_sold + ?", change.SoldDelta),
		"quantity_reserved": gorm.Expr("quantity_reserved + ?", change.ReservedDelta),
		"status": gorm.Expr("CASE WHEN status = ? THEN status WHEN quantity_sold + ? >= quantity_available THEN ? ELSE ? END",
			constants.TicketTypeStatusInactive, change.SoldDelta,
			constants.TicketTypeStatusSoldOut, constants.TicketTypeStatusActive),
		"inventory_version": gorm.Expr("inventory_version + 1"),
		"updated_at":        time.Now(),
	}
	if change.AvailableSeats != nil {
		updates["available_seats"] = change.AvailableSeats
	}

	result := query.Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
