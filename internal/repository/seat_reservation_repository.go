package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/courtline/internal/constants"
	"github.com/courtline/internal/models"

	"gorm.io/gorm"
)

// SeatReservationRepository 座位保留数据访问接口
type SeatReservationRepository interface {
	WithTx(tx *gorm.DB) SeatReservationRepository

	Create(reservation *models.SeatReservation) error
	GetByNo(reservationNo string) (*models.SeatReservation, error)
	GetByCheckoutSession(sessionID string) (*models.SeatReservation, error)
	List(filter SeatReservationListFilter) ([]models.SeatReservation, int64, error)
	ListDueActive(now time.Time, limit int) ([]models.SeatReservation, error)
	UpdateCheckoutSession(reservationNo, sessionID string) error
	TransitionStatus(reservationNo, from, to string, at time.Time) (int64, error)
}

// GormSeatReservationRepository GORM 实现
type GormSeatReservationRepository struct {
	db *gorm.DB
}

// NewSeatReservationRepository 创建座位保留仓库
func NewSeatReservationRepository(db *gorm.DB) *GormSeatReservationRepository {
	return &GormSeatReservationRepository{db: db}
}

// WithTx 绑定事务
func (r *GormSeatReservationRepository) WithTx(tx *gorm.DB) SeatReservationRepository {
	if tx == nil {
		return r
	}
	return &GormSeatReservationRepository{db: tx}
}

// Create 创建保留记录
func (r *GormSeatReservationRepository) Create(reservation *models.SeatReservation) error {
	if reservation == nil {
		return errors.New("reservation is nil")
	}
	return r.db.Create(reservation).Error
}

// GetByNo 根据保留单号获取
func (r *GormSeatReservationRepository) GetByNo(reservationNo string) (*models.SeatReservation, error) {
	reservationNo = strings.TrimSpace(reservationNo)
	if reservationNo == "" {
		return nil, nil
	}
	var row models.SeatReservation
	if err := r.db.Where("reservation_no = ?", reservationNo).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// GetByCheckoutSession 根据收银台会话获取
func (r *GormSeatReservationRepository) GetByCheckoutSession(sessionID string) (*models.SeatReservation, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, nil
	}
	var row models.SeatReservation
	if err := r.db.Where("checkout_session_id = ?", sessionID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// List 查询保留记录
func (r *GormSeatReservationRepository) List(filter SeatReservationListFilter) ([]models.SeatReservation, int64, error) {
	query := r.db.Model(&models.SeatReservation{})
	if filter.TicketTypeID != 0 {
		query = query.Where("ticket_type_id = ?", filter.TicketTypeID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = query.Scopes(paginate(filter.Page, filter.PageSize))

	var rows []models.SeatReservation
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListDueActive 查询已到期但仍为 active 的保留记录
func (r *GormSeatReservationRepository) ListDueActive(now time.Time, limit int) ([]models.SeatReservation, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.SeatReservation
	if err := r.db.
		Where("status = ? AND expires_at <= ?", constants.SeatReservationStatusActive, now).
		Order("expires_at asc").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateCheckoutSession 记录收银台会话ID
func (r *GormSeatReservationRepository) UpdateCheckoutSession(reservationNo, sessionID string) error {
	return r.db.Model(&models.SeatReservation{}).
		Where("reservation_no = ?", reservationNo).
		Updates(map[string]interface{}{
			"checkout_session_id": sessionID,
			"updated_at":          time.Now(),
		}).Error
}

// TransitionStatus 条件状态流转，只有当前状态为 from 时才会更新
func (r *GormSeatReservationRepository) TransitionStatus(reservationNo, from, to string, at time.Time) (int64, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": at,
	}
	switch to {
	case constants.SeatReservationStatusCompleted:
		updates["completed_at"] = at
	case constants.SeatReservationStatusExpired:
		updates["expired_at"] = at
	}
	result := r.db.Model(&models.SeatReservation{}).
		Where("reservation_no = ? AND status = ?", reservationNo, from).
		Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
