package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/courtline/internal/constants"
	"github.com/courtline/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SalesStatsAggregate 售票统计聚合结果
type SalesStatsAggregate struct {
	TotalRevenue    decimal.Decimal
	TotalCommission decimal.Decimal
	TicketsSold     int64
	SalesCount      int64
	RefundedCount   int64
}

// TicketSaleRepository 售票记录数据访问接口
type TicketSaleRepository interface {
	WithTx(tx *gorm.DB) TicketSaleRepository

	Create(sale *models.TicketSale) error
	GetByID(id uint) (*models.TicketSale, error)
	GetByPaymentRef(paymentRef string) (*models.TicketSale, error)
	GetByReservationNo(reservationNo string) (*models.TicketSale, error)
	List(filter TicketSaleListFilter) ([]models.TicketSale, int64, error)
	TransitionStatus(id uint, from, to string, at time.Time) (int64, error)
	Stats(eventID uint) (SalesStatsAggregate, error)
}

// GormTicketSaleRepository GORM 实现
type GormTicketSaleRepository struct {
	db *gorm.DB
}

// NewTicketSaleRepository 创建售票记录仓库
func NewTicketSaleRepository(db *gorm.DB) *GormTicketSaleRepository {
	return &GormTicketSaleRepository{db: db}
}

// WithTx 绑定事务
func (r *GormTicketSaleRepository) WithTx(tx *gorm.DB) TicketSaleRepository {
	if tx == nil {
		return r
	}
	return &GormTicketSaleRepository{db: tx}
}

// Create 创建售票记录
func (r *GormTicketSaleRepository) Create(sale *models.TicketSale) error {
	if sale == nil {
		return errors.New("ticket sale is nil")
	}
	return r.db.Omit("Tickets").Create(sale).Error
}

// GetByID 获取售票记录及其门票
func (r *GormTicketSaleRepository) GetByID(id uint) (*models.TicketSale, error) {
	if id == 0 {
		return nil, nil
	}
	var row models.TicketSale
	if err := r.db.Preload("Tickets", func(db *gorm.DB) *gorm.DB {
		return db.Order("id asc")
	}).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// GetByPaymentRef 根据外部支付流水获取
func (r *GormTicketSaleRepository) GetByPaymentRef(paymentRef string) (*models.TicketSale, error) {
	paymentRef = strings.TrimSpace(paymentRef)
	if paymentRef == "" {
		return nil, nil
	}
	var row models.TicketSale
	if err := r.db.Where("payment_ref = ?", paymentRef).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// GetByReservationNo 根据保留单号获取
func (r *GormTicketSaleRepository) GetByReservationNo(reservationNo string) (*models.TicketSale, error) {
	reservationNo = strings.TrimSpace(reservationNo)
	if reservationNo == "" {
		return nil, nil
	}
	var row models.TicketSale
	if err := r.db.Where("reservation_no = ?", reservationNo).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// List 查询售票记录
func (r *GormTicketSaleRepository) List(filter TicketSaleListFilter) ([]models.TicketSale, int64, error) {
	query := r.db.Model(&models.TicketSale{})
	if filter.EventID != 0 {
		query = query.Where("event_id = ?", filter.EventID)
	}
	if filter.TicketTypeID != 0 {
		query = query.Where("ticket_type_id = ?", filter.TicketTypeID)
	}
	if filter.AffiliateID != 0 {
		query = query.Where("affiliate_id = ?", filter.AffiliateID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if email := strings.TrimSpace(filter.BuyerEmail); email != "" {
		query = query.Where("buyer_email = ?", strings.ToLower(email))
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = query.Scopes(paginate(filter.Page, filter.PageSize))

	var rows []models.TicketSale
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// TransitionStatus 条件状态流转
func (r *GormTicketSaleRepository) TransitionStatus(id uint, from, to string, at time.Time) (int64, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": at,
	}
	if to == constants.TicketSaleStatusRefunded || to == constants.TicketSaleStatusCancelled {
		updates["refunded_at"] = at
	}
	result := r.db.Model(&models.TicketSale{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Stats 汇总已完成的售票记录，eventID 为 0 时统计全部赛事
func (r *GormTicketSaleRepository) Stats(eventID uint) (SalesStatsAggregate, error) {
	base := func() *gorm.DB {
		query := r.db.Model(&models.TicketSale{})
		if eventID != 0 {
			query = query.Where("event_id = ?", eventID)
		}
		return query
	}

	var row struct {
		TotalRevenue    decimal.Decimal `gorm:"column:total_revenue"`
		TotalCommission decimal.Decimal `gorm:"column:total_commission"`
		TicketsSold     int64           `gorm:"column:tickets_sold"`
		SalesCount      int64           `gorm:"column:sales_count"`
	}
	if err := base().
		Where("status = ?", constants.TicketSaleStatusCompleted).
		Select("COALESCE(SUM(total_amount), 0) AS total_revenue, " +
			"COALESCE(SUM(commission_amount), 0) AS total_commission, " +
			"COALESCE(SUM(quantity), 0) AS tickets_sold, " +
			"COUNT(*) AS sales_count").
		Scan(&row).Error; err != nil {
		return SalesStatsAggregate{}, err
	}

	var refunded int64
	if err := base().
		Where("status IN ?", []string{constants.TicketSaleStatusRefunded, constants.TicketSaleStatusCancelled}).
		Count(&refunded).Error; err != nil {
		return SalesStatsAggregate{}, err
	}

	return SalesStatsAggregate{
		TotalRevenue:    row.TotalRevenue.Round(2),
		TotalCommission: row.TotalCommission.Round(2),
		TicketsSold:     row.TicketsSold,
		SalesCount:      row.SalesCount,
		RefundedCount:   refunded,
	}, nil
}
