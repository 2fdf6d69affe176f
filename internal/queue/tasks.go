package queue

import (
	"encoding/json"

	"github.com/courtline/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskReservationExpire 座位保留到期释放任务
	TaskReservationExpire = constants.TaskReservationExpire
	// TaskAffiliatePayoutTransfer 推广佣金转账任务
	TaskAffiliatePayoutTransfer = constants.TaskAffiliatePayoutTransfer
)

// ReservationExpirePayload 保留到期任务载荷
type ReservationExpirePayload struct {
	ReservationNo string `json:"reservation_no"`
}

// AffiliatePayoutTransferPayload 佣金转账任务载荷
type AffiliatePayoutTransferPayload struct {
	PayoutID uint `json:"payout_id"`
}

// NewReservationExpireTask 创建保留到期任务
func NewReservationExpireTask(payload ReservationExpirePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReservationExpire, body), nil
}

// NewAffiliatePayoutTransferTask 创建佣金转账任务
func NewAffiliatePayoutTransferTask(payload AffiliatePayoutTransferPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAffiliatePayoutTransfer, body), nil
}
