package service

import (
	"context"
	"fmt"
	"time"

	"github.com/courtline/internal/constants"
	"github.com/courtline/internal/logger"
	"github.com/courtline/internal/metrics"
	"github.com/courtline/internal/models"
	"github.com/courtline/internal/payment/stripe"
	"github.com/courtline/internal/queue"
	"github.com/courtline/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PayoutTransferProvider 佣金转账通道
type PayoutTransferProvider interface {
	Enabled() bool
	CreateTransfer(ctx context.Context, input stripe.TransferInput) (*stripe.TransferResult, error)
}

// AffiliatePayoutService 佣金结算服务
type AffiliatePayoutService struct {
	repo            repository.AffiliateRepository
	transfer        PayoutTransferProvider
	queueClient     *queue.Client
	transferEnabled bool
	currency        string
}

// NewAffiliatePayoutService 创建结算服务
func NewAffiliatePayoutService(
	repo repository.AffiliateRepository,
	transfer PayoutTransferProvider,
	queueClient *queue.Client,
	transferEnabled bool,
	currency string,
) *AffiliatePayoutService {
	return &AffiliatePayoutService{
		repo:            repo,
		transfer:        transfer,
		queueClient:     queueClient,
		transferEnabled: transferEnabled,
		currency:        currency,
	}
}

// PayoutResult 单个推广者的批处理结果
type PayoutResult struct {
	AffiliateID uint         `json:"affiliate_id"`
	PayoutID    uint         `json:"payout_id,omitempty"`
	Amount      models.Money `json:"amount"`
	Status      string       `json:"status"`
	Error       string       `json:"error,omitempty"`
}

// ProcessMonthlyPayouts 为所有有待结算余额且已绑定收款账户的推广者生成结算记录。
// 每个推广者独立事务，单个失败记为 error 结果并继续处理其余推广者。
func (s *AffiliatePayoutService) ProcessMonthlyPayouts(ctx context.Context, now time.Time) ([]PayoutResult, error) {
	affiliates, err := s.repo.ListPayableAffiliates(0)
	if err != nil {
		return nil, err
	}
	periodStart, periodEnd := previousMonth(now)

	results := make([]PayoutResult, 0, len(affiliates))
	for _, affiliate := range affiliates {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
		amount := affiliate.PendingEarnings.Decimal.Round(2)
		result := PayoutResult{
			AffiliateID: affiliate.ID,
			Amount:      models.NewMoneyFromDecimal(amount),
		}
		payout, err := s.schedulePayout(affiliate, amount, periodStart, periodEnd)
		if err != nil {
			result.Status = constants.PayoutResultError
			result.Error = err.Error()
			logger.Warnw("affiliate_payout_schedule_failed", "affiliate_id", affiliate.ID, "amount", amount.StringFixed(2), "error", err)
		} else {
			result.Status = constants.PayoutResultSuccess
			result.PayoutID = payout.ID
			s.dispatchTransfer(payout.ID)
		}
		metrics.TrackPayout(result.Status)
		results = append(results, result)
	}
	logger.Infow("affiliate_payout_batch_done", "total", len(results), "period_start", periodStart, "period_end", periodEnd)
	return results, nil
}

// ExecutePayout 执行转账：pending → processing → completed/failed，失败时退回推广者待结算余额
func (s *AffiliatePayoutService) ExecutePayout(ctx context.Context, payoutID uint) (*models.AffiliatePayout, error) {
	if !s.transferAvailable() {
		return nil, ErrTransferUnavailable
	}
	payout, err := s.GetPayout(payoutID)
	if err != nil {
		return nil, err
	}
	switch payout.Status {
	case constants.AffiliatePayoutStatusCompleted, constants.AffiliatePayoutStatusFailed:
		return payout, nil
	case constants.AffiliatePayoutStatusPending:
		affected, err := s.repo.TransitionPayout(payout.ID, constants.AffiliatePayoutStatusPending, constants.AffiliatePayoutStatusProcessing, nil)
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return s.GetPayout(payoutID)
		}
	case constants.AffiliatePayoutStatusProcessing:
		// 上次执行中断，转账幂等键保证不会重复打款
	default:
		return nil, ErrPayoutStatusInvalid
	}

	result, transferErr := s.transfer.CreateTransfer(ctx, stripe.TransferInput{
		PayoutID:    payout.ID,
		Amount:      payout.Amount.StringFixed(2),
		Currency:    s.currency,
		Destination: payout.PayoutAccountID,
	})
	now := time.Now()
	if transferErr != nil {
		if err := s.failPayout(payout, transferErr.Error(), now); err != nil {
			return nil, err
		}
		metrics.TrackPayout(constants.AffiliatePayoutStatusFailed)
		logger.Warnw("affiliate_payout_transfer_failed", "payout_id", payout.ID, "affiliate_id", payout.AffiliateID, "error", transferErr)
		failed, err := s.GetPayout(payoutID)
		if err != nil {
			return nil, err
		}
		return failed, fmt.Errorf("%w: %v", ErrPayoutTransferFailed, transferErr)
	}

	if _, err := s.repo.TransitionPayout(payout.ID, constants.AffiliatePayoutStatusProcessing, constants.AffiliatePayoutStatusCompleted, map[string]interface{}{
		"transfer_ref": result.TransferID,
		"processed_at": now,
	}); err != nil {
		return nil, err
	}
	metrics.TrackPayout(constants.AffiliatePayoutStatusCompleted)
	logger.Infow("affiliate_payout_completed", "payout_id", payout.ID, "affiliate_id", payout.AffiliateID, "transfer_ref", result.TransferID)
	return s.GetPayout(payoutID)
}

// GetPayout 获取结算记录
func (s *AffiliatePayoutService) GetPayout(id uint) (*models.AffiliatePayout, error) {
	payout, err := s.repo.GetPayoutByID(id)
	if err != nil {
		return nil, err
	}
	if payout == nil {
		return nil, ErrPayoutNotFound
	}
	return payout, nil
}

// ListPayouts 查询结算记录
func (s *AffiliatePayoutService) ListPayouts(filter repository.AffiliatePayoutListFilter) ([]models.AffiliatePayout, int64, error) {
	return s.repo.ListPayouts(filter)
}

func (s *AffiliatePayoutService) schedulePayout(affiliate models.Affiliate, amount decimal.Decimal, periodStart, periodEnd time.Time) (*models.AffiliatePayout, error) {
	payout := &models.AffiliatePayout{
		AffiliateID:     affiliate.ID,
		Amount:          models.NewMoneyFromDecimal(amount),
		Status:          constants.AffiliatePayoutStatusPending,
		PeriodStart:     periodStart,
		PeriodEnd:       periodEnd,
		PayoutAccountID: affiliate.PayoutAccountID,
	}
	err := s.repo.Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.CreatePayout(payout); err != nil {
			return err
		}
		affected, err := txRepo.SettlePending(affiliate.ID, amount)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrPayoutBalanceChanged
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payout, nil
}

func (s *AffiliatePayoutService) failPayout(payout *models.AffiliatePayout, reason string, now time.Time) error {
	if len(reason) > 255 {
		reason = reason[:255]
	}
	return s.repo.Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		affected, err := txRepo.TransitionPayout(payout.ID, constants.AffiliatePayoutStatusProcessing, constants.AffiliatePayoutStatusFailed, map[string]interface{}{
			"fail_reason":  reason,
			"processed_at": now,
		})
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
		_, err = txRepo.RestorePending(payout.AffiliateID, payout.Amount.Decimal)
		return err
	})
}

func (s *AffiliatePayoutService) dispatchTransfer(payoutID uint) {
	if !s.transferAvailable() {
		return
	}
	if err := s.queueClient.EnqueueAffiliatePayoutTransfer(queue.AffiliatePayoutTransferPayload{PayoutID: payoutID}); err != nil {
		logger.Warnw("affiliate_payout_enqueue_failed", "payout_id", payoutID, "error", err)
	}
}

func (s *AffiliatePayoutService) transferAvailable() bool {
	return s.transferEnabled && s.transfer != nil && s.transfer.Enabled()
}

// previousMonth 返回上一个自然月的 [开始, 结束)
func previousMonth(now time.Time) (time.Time, time.Time) {
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return end.AddDate(0, -1, 0), end
}
