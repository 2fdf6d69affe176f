package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/courtline/internal/constants"
	"github.com/courtline/internal/logger"
	"github.com/courtline/internal/models"
	"github.com/courtline/internal/payment/stripe"
	"github.com/courtline/internal/repository"

	"gorm.io/gorm"
)

// CheckoutProvider 收银台通道
type CheckoutProvider interface {
	Enabled() bool
	CreateCheckoutSession(ctx context.Context, input stripe.CheckoutInput) (*stripe.CheckoutSession, error)
	VerifyWebhook(header http.Header, body []byte, now time.Time) (*stripe.WebhookEvent, error)
}

// CheckoutService 线上购票：保留、收银台会话与支付回调
type CheckoutService struct {
	reservationService *ReservationService
	affiliateService   *AffiliateService
	ticketTypeRepo     repository.TicketTypeRepository
	reservationRepo    repository.SeatReservationRepository
	saleRepo           repository.TicketSaleRepository
	ticketRepo         repository.TicketRepository
	affiliateRepo      repository.AffiliateRepository
	provider           CheckoutProvider
	currency           string
}

// CheckoutServiceOptions 结账服务依赖
type CheckoutServiceOptions struct {
	ReservationService *ReservationService
	AffiliateService   *AffiliateService
	TicketTypeRepo     repository.TicketTypeRepository
	ReservationRepo    repository.SeatReservationRepository
	SaleRepo           repository.TicketSaleRepository
	TicketRepo         repository.TicketRepository
	AffiliateRepo      repository.AffiliateRepository
	Provider           CheckoutProvider
	Currency           string
}

// NewCheckoutService 创建结账服务
func NewCheckoutService(opts CheckoutServiceOptions) *CheckoutService {
	return &CheckoutService{
		reservationService: opts.ReservationService,
		affiliateService:   opts.AffiliateService,
		ticketTypeRepo:     opts.TicketTypeRepo,
		reservationRepo:    opts.ReservationRepo,
		saleRepo:           opts.SaleRepo,
		ticketRepo:         opts.TicketRepo,
		affiliateRepo:      opts.AffiliateRepo,
		provider:           opts.Provider,
		currency:           opts.Currency,
	}
}

// PurchaseInput 购票输入
type PurchaseInput struct {
	TicketTypeID uint
	Quantity     int
	SeatNumbers  []string
	ReferralCode string
	BuyerName    string
	BuyerEmail   string
}

// PurchaseResult 购票结果，CheckoutURL 为支付跳转地址
type PurchaseResult struct {
	ReservationNo string       `json:"reservation_no"`
	CheckoutURL   string       `json:"checkout_url"`
	SessionID     string       `json:"session_id"`
	ExpiresAt     time.Time    `json:"expires_at"`
	Quantity      int          `json:"quantity"`
	SeatNumbers   []string     `json:"seat_numbers,omitempty"`
	TotalAmount   models.Money `json:"total_amount"`
}

// InitiatePurchase 保留座位并创建收银台会话，会话创建失败时释放保留
func (s *CheckoutService) InitiatePurchase(ctx context.Context, input PurchaseInput) (*PurchaseResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.BuyerEmail))
	if email == "" {
		return nil, ErrBuyerInvalid
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrBuyerInvalid
	}
	if s.provider == nil || !s.provider.Enabled() {
		return nil, ErrCheckoutUnavailable
	}

	reserveInput := ReserveSeatsInput{
		TicketTypeID: input.TicketTypeID,
		Quantity:     input.Quantity,
		SeatNumbers:  input.SeatNumbers,
		BuyerName:    input.BuyerName,
		BuyerEmail:   email,
	}
	affiliate, err := s.affiliateService.ResolveReferral(input.ReferralCode)
	if err != nil {
		return nil, err
	}
	if affiliate != nil {
		affiliateID := affiliate.ID
		reserveInput.AffiliateID = &affiliateID
		reserveInput.ReferralCode = affiliate.ReferralCode
	}

	reservation, err := s.reservationService.ReserveSeats(ctx, reserveInput)
	if err != nil {
		return nil, err
	}
	ticketType, err := s.ticketTypeRepo.GetByID(reservation.TicketTypeID)
	if err != nil {
		s.abandonReservation(ctx, reservation.ReservationNo)
		return nil, err
	}
	description := ""
	if ticketType != nil {
		description = ticketType.Name
	}

	session, err := s.provider.CreateCheckoutSession(ctx, stripe.CheckoutInput{
		ReservationNo: reservation.ReservationNo,
		Description:   description,
		UnitAmount:    reservation.UnitPrice.StringFixed(2),
		Quantity:      reservation.Quantity,
		Currency:      s.currency,
		CustomerEmail: email,
		ExpiresAt:     reservation.ExpiresAt,
	})
	if err != nil {
		s.abandonReservation(ctx, reservation.ReservationNo)
		logger.Warnw("checkout_session_create_failed", "reservation_no", reservation.ReservationNo, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrCheckoutCreateFailed, err)
	}
	if err := s.reservationRepo.UpdateCheckoutSession(reservation.ReservationNo, session.SessionID); err != nil {
		s.abandonReservation(ctx, reservation.ReservationNo)
		return nil, err
	}

	return &PurchaseResult{
		ReservationNo: reservation.ReservationNo,
		CheckoutURL:   session.URL,
		SessionID:     session.SessionID,
		ExpiresAt:     reservation.ExpiresAt,
		Quantity:      reservation.Quantity,
		SeatNumbers:   reservation.SeatNumbers,
		TotalAmount:   reservation.TotalAmount,
	}, nil
}

// HandlePaymentConfirmed 支付确认：完成保留、记账并出票，同一支付流水重复回调返回已有记录
func (s *CheckoutService) HandlePaymentConfirmed(ctx context.Context, reservationNo string, paymentRef string) (*models.TicketSale, error) {
	reservationNo = strings.TrimSpace(reservationNo)
	paymentRef = strings.TrimSpace(paymentRef)
	if existing, err := s.findExistingSale(reservationNo, paymentRef); err != nil || existing != nil {
		return existing, err
	}

	var sale *models.TicketSale
	err := s.ticketTypeRepo.Transaction(func(tx *gorm.DB) error {
		ticketTypeRepo := s.ticketTypeRepo.WithTx(tx)
		reservation, err := completeReservationTx(ticketTypeRepo, s.reservationRepo.WithTx(tx), reservationNo, time.Now())
		if err != nil {
			return err
		}
		ticketType, err := ticketTypeRepo.GetByID(reservation.TicketTypeID)
		if err != nil {
			return err
		}
		if ticketType == nil {
			return ErrTicketTypeNotFound
		}
		created, err := recordSaleTx(s.saleRepo.WithTx(tx), s.ticketRepo.WithTx(tx), s.affiliateRepo.WithTx(tx), RecordTicketSaleInput{
			TicketTypeID:  reservation.TicketTypeID,
			EventID:       ticketType.EventID,
			BuyerName:     reservation.BuyerName,
			BuyerEmail:    reservation.BuyerEmail,
			Quantity:      reservation.Quantity,
			SeatNumbers:   reservation.SeatNumbers,
			UnitPrice:     reservation.UnitPrice.Decimal,
			TotalAmount:   reservation.TotalAmount.Decimal,
			ReferralCode:  reservation.ReferralCode,
			AffiliateID:   reservation.AffiliateID,
			PaymentRef:    paymentRef,
			ReservationNo: reservation.ReservationNo,
			Channel:       constants.TicketSaleChannelOnline,
		}, time.Now())
		if err != nil {
			return err
		}
		sale = created
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			if existing, findErr := s.findExistingSale(reservationNo, paymentRef); findErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}

	trackSale(sale)
	if reservation, err := s.reservationRepo.GetByNo(reservationNo); err == nil && reservation != nil {
		s.reservationService.releaseSeatLocks(ctx, reservation)
	}
	logger.Infow("ticket_sale_recorded",
		"sale_no", sale.SaleNo,
		"reservation_no", reservationNo,
		"payment_ref", paymentRef,
		"commission", sale.CommissionAmount.StringFixed(2),
	)
	return sale, nil
}

// HandleCheckoutExpired 收银台会话过期，释放保留
func (s *CheckoutService) HandleCheckoutExpired(ctx context.Context, reservationNo string) (*models.SeatReservation, error) {
	return s.reservationService.CancelReservation(ctx, reservationNo)
}

// HandleStripeWebhook 校验签名并分发 checkout.session 事件
func (s *CheckoutService) HandleStripeWebhook(ctx context.Context, header http.Header, body []byte) error {
	if s.provider == nil {
		return ErrCheckoutUnavailable
	}
	event, err := s.provider.VerifyWebhook(header, body, time.Now())
	if err != nil {
		logger.Warnw("stripe_webhook_verify_failed", "error", err)
		return fmt.Errorf("%w: %v", ErrWebhookInvalid, err)
	}
	reservationNo := event.ReservationNo
	if reservationNo == "" && event.SessionID != "" {
		reservation, err := s.reservationRepo.GetByCheckoutSession(event.SessionID)
		if err != nil {
			return err
		}
		if reservation != nil {
			reservationNo = reservation.ReservationNo
		}
	}
	if reservationNo == "" {
		logger.Debugw("stripe_webhook_skip_unrelated", "event_id", event.EventID, "event_type", event.EventType)
		return nil
	}

	switch event.Status {
	case stripe.StatusSuccess:
		_, err := s.HandlePaymentConfirmed(ctx, reservationNo, event.PaymentRef())
		if errors.Is(err, ErrReservationExpired) {
			// 保留已被回收但用户完成了支付，需要人工退款
			logger.Errorw("stripe_payment_after_reservation_expired",
				"reservation_no", reservationNo,
				"payment_ref", event.PaymentRef(),
				"event_id", event.EventID,
			)
			return nil
		}
		return err
	case stripe.StatusExpired, stripe.StatusFailed:
		_, err := s.HandleCheckoutExpired(ctx, reservationNo)
		if errors.Is(err, ErrReservationNotFound) {
			return nil
		}
		return err
	default:
		logger.Debugw("stripe_webhook_skip_status", "event_id", event.EventID, "event_type", event.EventType, "status", event.Status)
		return nil
	}
}

func (s *CheckoutService) findExistingSale(reservationNo, paymentRef string) (*models.TicketSale, error) {
	if paymentRef != "" {
		sale, err := s.saleRepo.GetByPaymentRef(paymentRef)
		if err != nil || sale != nil {
			return sale, err
		}
	}
	if reservationNo != "" {
		return s.saleRepo.GetByReservationNo(reservationNo)
	}
	return nil, nil
}

func (s *CheckoutService) abandonReservation(ctx context.Context, reservationNo string) {
	if _, err := s.reservationService.CancelReservation(ctx, reservationNo); err != nil {
		logger.Warnw("reservation_abandon_failed", "reservation_no", reservationNo, "error", err)
	}
}
