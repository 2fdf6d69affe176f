package service

import (
	"context"
	"strings"
	"time"

	"github.com/courtline/internal/cache"
	"github.com/courtline/internal/config"
	"github.com/courtline/internal/constants"
	"github.com/courtline/internal/logger"
	"github.com/courtline/internal/metrics"
	"github.com/courtline/internal/models"
	"github.com/courtline/internal/queue"
	"github.com/courtline/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReservationService 座位保留服务
type ReservationService struct {
	ticketTypeRepo  repository.TicketTypeRepository
	reservationRepo repository.SeatReservationRepository
	seatLocker      *cache.SeatLocker
	queueClient     *queue.Client
	cfg             config.TicketingConfig
}

// NewReservationService 创建座位保留服务
func NewReservationService(
	ticketTypeRepo repository.TicketTypeRepository,
	reservationRepo repository.SeatReservationRepository,
	seatLocker *cache.SeatLocker,
	queueClient *queue.Client,
	cfg config.TicketingConfig,
) *ReservationService {
	return &ReservationService{
		ticketTypeRepo:  ticketTypeRepo,
		reservationRepo: reservationRepo,
		seatLocker:      seatLocker,
		queueClient:     queueClient,
		cfg:             cfg,
	}
}

// ReserveSeatsInput 座位保留输入
type ReserveSeatsInput struct {
	TicketTypeID  uint
	Quantity      int
	SeatNumbers   []string
	ReservationNo string
	BuyerName     string
	BuyerEmail    string
	ReferralCode  string
	AffiliateID   *uint
}

// ReserveSeats 原子地占用数量与座位并写入 active 保留，到期时间为当前时间加保留时长
func (s *ReservationService) ReserveSeats(ctx context.Context, input ReserveSeatsInput) (*models.SeatReservation, error) {
	now := time.Now()
	ticketType, err := s.ticketTypeRepo.GetByID(input.TicketTypeID)
	if err != nil {
		return nil, err
	}
	if ticketType == nil {
		return nil, ErrTicketTypeNotFound
	}
	if ticketType.Status == constants.TicketTypeStatusInactive || !ticketType.OnSale(now) {
		s.trackRejected()
		return nil, ErrTicketTypeNotOnSale
	}
	quantity, seats, err := resolveSeatSelection(ticketType, input.Quantity, input.SeatNumbers)
	if err != nil {
		s.trackRejected()
		return nil, err
	}
	if quantity > maxPerOrder(ticketType, s.cfg) {
		s.trackRejected()
		return nil, ErrExceedsMaxPerOrder
	}

	reservationNo := strings.TrimSpace(input.ReservationNo)
	if reservationNo == "" {
		reservationNo = uuid.NewString()
	}
	ttl := s.cfg.ReservationTTL()

	locked, lockErr := s.seatLocker.Acquire(ctx, ticketType.ID, seats, reservationNo, ttl)
	if lockErr != nil {
		logger.Warnw("seat_lock_acquire_failed", "ticket_type_id", ticketType.ID, "reservation_no", reservationNo, "error", lockErr)
	} else if !locked {
		s.trackRejected()
		return nil, ErrSeatUnavailable
	}

	reservation := &models.SeatReservation{
		ReservationNo: reservationNo,
		TicketTypeID:  ticketType.ID,
		Quantity:      quantity,
		SeatNumbers:   seats,
		Status:        constants.SeatReservationStatusActive,
		ExpiresAt:     now.Add(ttl),
		BuyerName:     strings.TrimSpace(input.BuyerName),
		BuyerEmail:    strings.ToLower(strings.TrimSpace(input.BuyerEmail)),
		ReferralCode:  strings.ToUpper(strings.TrimSpace(input.ReferralCode)),
		AffiliateID:   input.AffiliateID,
		UnitPrice:     ticketType.Price,
		TotalAmount:   ticketType.Price.Times(quantity),
	}

	err = s.ticketTypeRepo.Transaction(func(tx *gorm.DB) error {
		if _, err := applyInventory(s.ticketTypeRepo.WithTx(tx), ticketType.ID, inventoryOp{
			reservedDelta: quantity,
			takeSeats:     seats,
			requireActive: true,
		}); err != nil {
			return err
		}
		return s.reservationRepo.WithTx(tx).Create(reservation)
	})
	if err != nil {
		if lockErr == nil {
			s.releaseSeatLocks(ctx, reservation)
		}
		s.trackRejected()
		return nil, err
	}

	metrics.TrackReservation(metrics.ReservationReserved)
	if err := s.queueClient.EnqueueReservationExpire(queue.ReservationExpirePayload{ReservationNo: reservationNo}, ttl); err != nil {
		logger.Warnw("reservation_expire_enqueue_failed", "reservation_no", reservationNo, "error", err)
	}
	return reservation, nil
}

// GetReservation 获取保留记录
func (s *ReservationService) GetReservation(reservationNo string) (*models.SeatReservation, error) {
	reservation, err := s.reservationRepo.GetByNo(reservationNo)
	if err != nil {
		return nil, err
	}
	if reservation == nil {
		return nil, ErrReservationNotFound
	}
	return reservation, nil
}

// CompleteReservation 支付完成后将保留转为已售，座位保持移出状态；重复完成为空操作
func (s *ReservationService) CompleteReservation(ctx context.Context, reservationNo string) (*models.SeatReservation, error) {
	var completed *models.SeatReservation
	err := s.ticketTypeRepo.Transaction(func(tx *gorm.DB) error {
		reservation, err := completeReservationTx(s.ticketTypeRepo.WithTx(tx), s.reservationRepo.WithTx(tx), reservationNo, time.Now())
		if err != nil {
			return err
		}
		completed = reservation
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.releaseSeatLocks(ctx, completed)
	return completed, nil
}

// CancelReservation 释放 active 保留：归还座位与保留数量并标记 expired，非 active 保留原样返回
func (s *ReservationService) CancelReservation(ctx context.Context, reservationNo string) (*models.SeatReservation, error) {
	reservation, _, err := s.releaseReservation(ctx, reservationNo, time.Now())
	return reservation, err
}

// ExpireDueReservations 回收已到期的 active 保留，返回实际释放的数量
func (s *ReservationService) ExpireDueReservations(ctx context.Context, now time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = s.cfg.SweepBatchSize
	}
	due, err := s.reservationRepo.ListDueActive(now, limit)
	if err != nil {
		return 0, err
	}
	released := 0
	for _, item := range due {
		if ctx.Err() != nil {
			return released, ctx.Err()
		}
		_, ok, err := s.releaseReservation(ctx, item.ReservationNo, now)
		if err != nil {
			logger.Warnw("reservation_expire_failed", "reservation_no", item.ReservationNo, "error", err)
			continue
		}
		if ok {
			released++
		}
	}
	if released > 0 {
		logger.Infow("reservation_sweep_released", "count", released, "scanned", len(due))
	}
	return released, nil
}

// ExpireReservation 到期任务入口，未到期时不释放
func (s *ReservationService) ExpireReservation(ctx context.Context, reservationNo string, now time.Time) (bool, error) {
	reservation, err := s.GetReservation(reservationNo)
	if err != nil {
		return false, err
	}
	if reservation.Status != constants.SeatReservationStatusActive || reservation.ExpiresAt.After(now) {
		return false, nil
	}
	_, ok, err := s.releaseReservation(ctx, reservationNo, now)
	return ok, err
}

// ListReservations 查询保留记录
func (s *ReservationService) ListReservations(filter repository.SeatReservationListFilter) ([]models.SeatReservation, int64, error) {
	return s.reservationRepo.List(filter)
}

func (s *ReservationService) releaseReservation(ctx context.Context, reservationNo string, now time.Time) (*models.SeatReservation, bool, error) {
	reservation, err := s.GetReservation(reservationNo)
	if err != nil {
		return nil, false, err
	}
	if reservation.Status != constants.SeatReservationStatusActive {
		return reservation, false, nil
	}

	released := false
	err = s.ticketTypeRepo.Transaction(func(tx *gorm.DB) error {
		affected, err := s.reservationRepo.WithTx(tx).TransitionStatus(reservation.ReservationNo,
			constants.SeatReservationStatusActive, constants.SeatReservationStatusExpired, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
		if _, err := applyInventory(s.ticketTypeRepo.WithTx(tx), reservation.TicketTypeID, inventoryOp{
			reservedDelta: -reservation.Quantity,
			returnSeats:   reservation.SeatNumbers,
		}); err != nil {
			return err
		}
		released = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	current, err := s.GetReservation(reservationNo)
	if err != nil {
		return nil, false, err
	}
	if released {
		s.releaseSeatLocks(ctx, current)
		metrics.TrackReservation(metrics.ReservationExpired)
	}
	return current, released, nil
}

func (s *ReservationService) releaseSeatLocks(ctx context.Context, reservation *models.SeatReservation) {
	if reservation == nil || len(reservation.SeatNumbers) == 0 {
		return
	}
	if err := s.seatLocker.Release(ctx, reservation.TicketTypeID, reservation.SeatNumbers, reservation.ReservationNo); err != nil {
		logger.Warnw("seat_lock_release_failed", "reservation_no", reservation.ReservationNo, "error", err)
	}
}

func (s *ReservationService) trackRejected() {
	metrics.TrackReservation(metrics.ReservationRejected)
}

// completeReservationTx 在事务内完成保留：状态条件流转后把保留数量转为已售
func completeReservationTx(
	ticketTypeRepo repository.TicketTypeRepository,
	reservationRepo repository.SeatReservationRepository,
	reservationNo string,
	now time.Time,
) (*models.SeatReservation, error) {
	reservation, err := reservationRepo.GetByNo(reservationNo)
	if err != nil {
		return nil, err
	}
	if reservation == nil {
		return nil, ErrReservationNotFound
	}
	switch reservation.Status {
	case constants.SeatReservationStatusCompleted:
		return reservation, nil
	case constants.SeatReservationStatusExpired:
		return nil, ErrReservationExpired
	}

	affected, err := reservationRepo.TransitionStatus(reservation.ReservationNo,
		constants.SeatReservationStatusActive, constants.SeatReservationStatusCompleted, now)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		current, err := reservationRepo.GetByNo(reservationNo)
		if err != nil {
			return nil, err
		}
		if current != nil && current.Status == constants.SeatReservationStatusCompleted {
			return current, nil
		}
		return nil, ErrReservationExpired
	}
	if _, err := applyInventory(ticketTypeRepo, reservation.TicketTypeID, inventoryOp{
		soldDelta:     reservation.Quantity,
		reservedDelta: -reservation.Quantity,
	}); err != nil {
		return nil, err
	}
	metrics.TrackReservation(metrics.ReservationCompleted)

	reservation.Status = constants.SeatReservationStatusCompleted
	reservation.CompletedAt = &now
	return reservation, nil
}
