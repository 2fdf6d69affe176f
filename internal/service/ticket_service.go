package service

import (
	"strings"
	"time"

	"github.com/courtline/internal/config"
	"github.com/courtline/internal/constants"
	"github.com/courtline/internal/models"
	"github.com/courtline/internal/repository"

	"github.com/shopspring/decimal"
)

// TicketService 票种与库存服务
type TicketService struct {
	ticketTypeRepo repository.TicketTypeRepository
	cfg            config.TicketingConfig
}

// NewTicketService 创建票种服务
func NewTicketService(ticketTypeRepo repository.TicketTypeRepository, cfg config.TicketingConfig) *TicketService {
	return &TicketService{
		ticketTypeRepo: ticketTypeRepo,
		cfg:            cfg,
	}
}

// CreateTicketTypeInput 创建票种输入
type CreateTicketTypeInput struct {
	EventID     uint
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    int
	SeatNumbers []string
	SaleStartAt *time.Time
	SaleEndAt   *time.Time
	MaxPerOrder int
}

// CreateTicketType 创建票种，对号入座时可售座位初始化为全部座位
func (s *TicketService) CreateTicketType(input CreateTicketTypeInput) (*models.TicketType, error) {
	name := strings.TrimSpace(input.Name)
	if input.EventID == 0 || name == "" {
		return nil, ErrTicketTypeInvalid
	}
	if input.Price.IsNegative() || input.Quantity < 0 || input.MaxPerOrder < 0 {
		return nil, ErrTicketTypeInvalid
	}
	if input.SaleStartAt != nil && input.SaleEndAt != nil && !input.SaleEndAt.After(*input.SaleStartAt) {
		return nil, ErrTicketTypeInvalid
	}

	seats := models.NormalizeSeatNumbers(input.SeatNumbers)
	if len(seats) != countNonEmpty(input.SeatNumbers) {
		// 重复座位号
		return nil, ErrSeatSelectionInvalid
	}
	quantity := input.Quantity
	if len(seats) > 0 {
		if quantity == 0 {
			quantity = len(seats)
		}
		if quantity != len(seats) {
			return nil, ErrSeatSelectionInvalid
		}
	}

	status := constants.TicketTypeStatusActive
	if quantity == 0 {
		status = constants.TicketTypeStatusSoldOut
	}
	ticketType := &models.TicketType{
		EventID:           input.EventID,
		Name:              name,
		Description:       strings.TrimSpace(input.Description),
		Price:             models.NewMoneyFromDecimal(input.Price),
		QuantityAvailable: quantity,
		SeatNumbers:       seats,
		AvailableSeats:    append(models.StringArray{}, seats...),
		Status:            status,
		SaleStartAt:       input.SaleStartAt,
		SaleEndAt:         input.SaleEndAt,
		MaxPerOrder:       input.MaxPerOrder,
	}
	if err := s.ticketTypeRepo.Create(ticketType); err != nil {
		return nil, err
	}
	return ticketType, nil
}

// ListTicketTypes 查询赛事下的票种
func (s *TicketService) ListTicketTypes(eventID uint, filter repository.TicketTypeListFilter) ([]models.TicketType, int64, error) {
	filter.EventID = eventID
	return s.ticketTypeRepo.List(filter)
}

// GetTicketType 获取票种
func (s *TicketService) GetTicketType(id uint) (*models.TicketType, error) {
	ticketType, err := s.ticketTypeRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if ticketType == nil {
		return nil, ErrTicketTypeNotFound
	}
	return ticketType, nil
}

// UpdateTicketTypeStatus 上架或下架票种
func (s *TicketService) UpdateTicketTypeStatus(id uint, status string) (*models.TicketType, error) {
	status = strings.TrimSpace(status)
	if status != constants.TicketTypeStatusActive && status != constants.TicketTypeStatusInactive {
		return nil, ErrTicketTypeStatusInvalid
	}
	affected, err := s.ticketTypeRepo.UpdateStatus(id, status)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrTicketTypeNotFound
	}
	return s.GetTicketType(id)
}

// UpdateInventory 调整已售数量，正数为售出、负数为退回；对号入座票同时取出或归还座位
func (s *TicketService) UpdateInventory(id uint, delta int, seatNumbers []string) (*models.TicketType, error) {
	if delta == 0 {
		return nil, ErrInvalidQuantity
	}
	ticketType, err := s.GetTicketType(id)
	if err != nil {
		return nil, err
	}
	op, err := buildSoldInventoryOp(ticketType, delta, seatNumbers)
	if err != nil {
		return nil, err
	}
	return applyInventory(s.ticketTypeRepo, id, op)
}

// MaxPerOrder 票种单笔限购，未设置时使用全局默认
func (s *TicketService) MaxPerOrder(ticketType *models.TicketType) int {
	return maxPerOrder(ticketType, s.cfg)
}

func buildSoldInventoryOp(ticketType *models.TicketType, delta int, seatNumbers []string) (inventoryOp, error) {
	op := inventoryOp{soldDelta: delta}
	seats := models.NormalizeSeatNumbers(seatNumbers)
	if !ticketType.IsSeated() {
		if len(seats) > 0 {
			return op, ErrSeatSelectionInvalid
		}
		return op, nil
	}
	size := delta
	if size < 0 {
		size = -size
	}
	if len(seats) != size {
		return op, ErrSeatSelectionInvalid
	}
	if delta > 0 {
		op.takeSeats = seats
	} else {
		op.returnSeats = seats
	}
	return op, nil
}

func maxPerOrder(ticketType *models.TicketType, cfg config.TicketingConfig) int {
	if ticketType != nil && ticketType.MaxPerOrder > 0 {
		return ticketType.MaxPerOrder
	}
	if cfg.DefaultMaxPerOrder > 0 {
		return cfg.DefaultMaxPerOrder
	}
	return 10
}

func countNonEmpty(values []string) int {
	count := 0
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			count++
		}
	}
	return count
}
