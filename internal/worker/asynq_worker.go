package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/courtline/internal/logger"
	"github.com/courtline/internal/models"
	"github.com/courtline/internal/provider"
	"github.com/courtline/internal/queue"
	"github.com/courtline/internal/service"

	"github.com/hibiken/asynq"
)

// ReservationExpirer 保留到期回收
type ReservationExpirer interface {
	ExpireReservation(ctx context.Context, reservationNo string, now time.Time) (bool, error)
	ExpireDueReservations(ctx context.Context, now time.Time, limit int) (int, error)
}

// PayoutExecutor 佣金转账执行
type PayoutExecutor interface {
	ExecutePayout(ctx context.Context, payoutID uint) (*models.AffiliatePayout, error)
}

// Consumer 异步任务消费者
type Consumer struct {
	reservations ReservationExpirer
	payouts      PayoutExecutor
}

// NewConsumer 从容器创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	if c == nil {
		return &Consumer{}
	}
	consumer := &Consumer{}
	if c.ReservationService != nil {
		consumer.reservations = c.ReservationService
	}
	if c.AffiliatePayoutService != nil {
		consumer.payouts = c.AffiliatePayoutService
	}
	return consumer
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskReservationExpire, c.handleReservationExpire)
	mux.HandleFunc(queue.TaskAffiliatePayoutTransfer, c.handlePayoutTransfer)
}

func (c *Consumer) handleReservationExpire(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_reservation_expire_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ReservationExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_reservation_expire_unmarshal_failed", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	reservationNo := strings.TrimSpace(payload.ReservationNo)
	if reservationNo == "" {
		logger.Debugw("worker_reservation_expire_skip_invalid_payload")
		return nil
	}
	if c.reservations == nil {
		logger.Warnw("worker_reservation_expire_skip_service_nil", "reservation_no", reservationNo)
		return nil
	}
	released, err := c.reservations.ExpireReservation(ctx, reservationNo, time.Now())
	if err != nil {
		if errors.Is(err, service.ErrReservationNotFound) {
			logger.Debugw("worker_reservation_expire_skip_not_found", "reservation_no", reservationNo)
			return nil
		}
		logger.Warnw("worker_reservation_expire_failed", "reservation_no", reservationNo, "error", err)
		return err
	}
	if released {
		logger.Infow("worker_reservation_expired", "reservation_no", reservationNo)
	}
	return nil
}

func (c *Consumer) handlePayoutTransfer(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_payout_transfer_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.AffiliatePayoutTransferPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_payout_transfer_unmarshal_failed", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if payload.PayoutID == 0 {
		logger.Debugw("worker_payout_transfer_skip_invalid_payload", "payout_id", payload.PayoutID)
		return nil
	}
	if c.payouts == nil {
		logger.Warnw("worker_payout_transfer_skip_service_nil", "payout_id", payload.PayoutID)
		return nil
	}
	payout, err := c.payouts.ExecutePayout(ctx, payload.PayoutID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPayoutNotFound):
			logger.Debugw("worker_payout_transfer_skip_not_found", "payout_id", payload.PayoutID)
			return nil
		case errors.Is(err, service.ErrTransferUnavailable):
			logger.Warnw("worker_payout_transfer_skip_unavailable", "payout_id", payload.PayoutID)
			return nil
		case errors.Is(err, service.ErrPayoutTransferFailed):
			// 结算已标记 failed 且余额已退回，重试不会改变结果
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		default:
			logger.Warnw("worker_payout_transfer_failed", "payout_id", payload.PayoutID, "error", err)
			return err
		}
	}
	if payout != nil {
		logger.Debugw("worker_payout_transfer_done", "payout_id", payout.ID, "status", payout.Status)
	}
	return nil
}
