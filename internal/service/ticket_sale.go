package service

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/courtline/internal/constants"
	"github.com/courtline/internal/metrics"
	"github.com/courtline/internal/models"
	"github.com/courtline/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	validationCodeLength   = 12
	validationCodeMaxRetry = 16
	codeAlphabet           = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// TicketSaleService 售票记录、出票与佣金记账服务
type TicketSaleService struct {
	ticketTypeRepo repository.TicketTypeRepository
	saleRepo       repository.TicketSaleRepository
	ticketRepo     repository.TicketRepository
	affiliateRepo  repository.AffiliateRepository
}

// NewTicketSaleService 创建售票服务
func NewTicketSaleService(
	ticketTypeRepo repository.TicketTypeRepository,
	saleRepo repository.TicketSaleRepository,
	ticketRepo repository.TicketRepository,
	affiliateRepo repository.AffiliateRepository,
) *TicketSaleService {
	return &TicketSaleService{
		ticketTypeRepo: ticketTypeRepo,
		saleRepo:       saleRepo,
		ticketRepo:     ticketRepo,
		affiliateRepo:  affiliateRepo,
	}
}

// RecordTicketSaleInput 售票记录输入
type RecordTicketSaleInput struct {
	TicketTypeID  uint
	EventID       uint
	BuyerName     string
	BuyerEmail    string
	Quantity      int
	SeatNumbers   []string
	UnitPrice     decimal.Decimal
	TotalAmount   decimal.Decimal
	ReferralCode  string
	AffiliateID   *uint
	PaymentRef    string
	ReservationNo string
	Channel       string
}

// BoxOfficeSaleInput 现场售票输入
type BoxOfficeSaleInput struct {
	TicketTypeID uint
	Quantity     int
	SeatNumbers  []string
	BuyerName    string
	BuyerEmail   string
	ReferralCode string
	PaymentRef   string
}

// SalesStats 售票统计
type SalesStats struct {
	EventID         uint         `json:"event_id,omitempty"`
	TotalRevenue    models.Money `json:"total_revenue"`
	TotalCommission models.Money `json:"total_commission"`
	TicketsSold     int64        `json:"tickets_sold"`
	SalesCount      int64        `json:"sales_count"`
	RefundedCount   int64        `json:"refunded_count"`
}

// RecordTicketSale 写入售票记录并出票，推广码有效时按比例计佣
func (s *TicketSaleService) RecordTicketSale(input RecordTicketSaleInput) (*models.TicketSale, error) {
	var sale *models.TicketSale
	err := s.ticketTypeRepo.Transaction(func(tx *gorm.DB) error {
		created, err := recordSaleTx(s.saleRepo.WithTx(tx), s.ticketRepo.WithTx(tx), s.affiliateRepo.WithTx(tx), input, time.Now())
		if err != nil {
			return err
		}
		sale = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	trackSale(sale)
	return sale, nil
}

// IssueTickets 为售票记录补发门票，已出票时直接返回现有门票
func (s *TicketSaleService) IssueTickets(saleID uint) ([]models.Ticket, error) {
	sale, err := s.GetSale(saleID)
	if err != nil {
		return nil, err
	}
	if len(sale.Tickets) > 0 {
		return sale.Tickets, nil
	}
	if sale.Status != constants.TicketSaleStatusCompleted {
		return nil, ErrSaleStatusInvalid
	}
	var tickets []models.Ticket
	err = s.ticketTypeRepo.Transaction(func(tx *gorm.DB) error {
		issued, err := issueTickets(s.ticketRepo.WithTx(tx), sale)
		if err != nil {
			return err
		}
		tickets = issued
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// BoxOfficeSale 现场售票：直接扣减已售数量后记账出票
func (s *TicketSaleService) BoxOfficeSale(input BoxOfficeSaleInput) (*models.TicketSale, error) {
	ticketType, err := s.ticketTypeRepo.GetByID(input.TicketTypeID)
	if err != nil {
		return nil, err
	}
	if ticketType == nil {
		return nil, ErrTicketTypeNotFound
	}
	if ticketType.Status == constants.TicketTypeStatusInactive {
		return nil, ErrTicketTypeNotOnSale
	}
	quantity, seats, err := resolveSeatSelection(ticketType, input.Quantity, input.SeatNumbers)
	if err != nil {
		return nil, err
	}

	var affiliateID *uint
	referralCode := normalizeReferralCode(input.ReferralCode)
	if referralCode != "" {
		affiliate, err := s.affiliateRepo.GetAffiliateByCode(referralCode)
		if err != nil {
			return nil, err
		}
		if affiliate != nil && affiliate.Status == constants.AffiliateStatusActive {
			id := affiliate.ID
			affiliateID = &id
		}
	}

	unitPrice := ticketType.Price.Decimal
	record := RecordTicketSaleInput{
		TicketTypeID: ticketType.ID,
		EventID:      ticketType.EventID,
		BuyerName:    input.BuyerName,
		BuyerEmail:   input.BuyerEmail,
		Quantity:     quantity,
		SeatNumbers:  seats,
		UnitPrice:    unitPrice,
		TotalAmount:  unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
		ReferralCode: referralCode,
		AffiliateID:  affiliateID,
		PaymentRef:   input.PaymentRef,
		Channel:      constants.TicketSaleChannelBoxOffice,
	}

	var sale *models.TicketSale
	err = s.ticketTypeRepo.Transaction(func(tx *gorm.DB) error {
		if _, err := applyInventory(s.ticketTypeRepo.WithTx(tx), ticketType.ID, inventoryOp{
			soldDelta:     quantity,
			takeSeats:     seats,
			requireActive: true,
		}); err != nil {
			return err
		}
		created, err := recordSaleTx(s.saleRepo.WithTx(tx), s.ticketRepo.WithTx(tx), s.affiliateRepo.WithTx(tx), record, time.Now())
		if err != nil {
			return err
		}
		sale = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	trackSale(sale)
	return sale, nil
}

// RefundSale 退款或取消：归还库存与座位、作废未使用门票并回冲佣金
func (s *TicketSaleService) RefundSale(saleID uint, status string) (*models.TicketSale, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		status = constants.TicketSaleStatusRefunded
	}
	ticketStatus := constants.TicketStatusRefunded
	switch status {
	case constants.TicketSaleStatusRefunded:
	case constants.TicketSaleStatusCancelled:
		ticketStatus = constants.TicketStatusCancelled
	default:
		return nil, ErrSaleStatusInvalid
	}

	err := s.ticketTypeRepo.Transaction(func(tx *gorm.DB) error {
		saleRepo := s.saleRepo.WithTx(tx)
		sale, err := saleRepo.GetByID(saleID)
		if err != nil {
			return err
		}
		if sale == nil {
			return ErrSaleNotFound
		}
		now := time.Now()
		affected, err := saleRepo.TransitionStatus(sale.ID, constants.TicketSaleStatusCompleted, status, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrSaleNotRefundable
		}

		ticketTypeRepo := s.ticketTypeRepo.WithTx(tx)
		ticketType, err := ticketTypeRepo.GetByID(sale.TicketTypeID)
		if err != nil {
			return err
		}
		if ticketType == nil {
			return ErrTicketTypeNotFound
		}
		op := inventoryOp{soldDelta: -sale.Quantity, clampSold: true}
		if ticketType.IsSeated() {
			op.returnSeats = sale.SeatNumbers
		}
		if _, err := applyInventory(ticketTypeRepo, ticketType.ID, op); err != nil {
			return err
		}
		if _, err := s.ticketRepo.WithTx(tx).TransitionBySale(sale.ID, constants.TicketStatusActive, ticketStatus, now); err != nil {
			return err
		}
		if sale.CommissionPosted && sale.AffiliateID != nil {
			if _, err := s.affiliateRepo.WithTx(tx).ReverseCommission(*sale.AffiliateID, sale.CommissionAmount.Decimal); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetSale(saleID)
}

// ListSales 查询售票记录
func (s *TicketSaleService) ListSales(filter repository.TicketSaleListFilter) ([]models.TicketSale, int64, error) {
	return s.saleRepo.List(filter)
}

// GetSale 获取售票记录及门票
func (s *TicketSaleService) GetSale(id uint) (*models.TicketSale, error) {
	sale, err := s.saleRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, ErrSaleNotFound
	}
	return sale, nil
}

// GetSalesStats 汇总已完成的售票，eventID 为 0 时统计全部赛事
func (s *TicketSaleService) GetSalesStats(eventID uint) (*SalesStats, error) {
	aggregate, err := s.saleRepo.Stats(eventID)
	if err != nil {
		return nil, err
	}
	return &SalesStats{
		EventID:         eventID,
		TotalRevenue:    models.NewMoneyFromDecimal(aggregate.TotalRevenue),
		TotalCommission: models.NewMoneyFromDecimal(aggregate.TotalCommission),
		TicketsSold:     aggregate.TicketsSold,
		SalesCount:      aggregate.SalesCount,
		RefundedCount:   aggregate.RefundedCount,
	}, nil
}

// recordSaleTx 在事务内写入售票记录：推广者ID按传入保存，佣金默认为 0，推广者有效且推广码一致时计佣并累加推广者余额
func recordSaleTx(
	saleRepo repository.TicketSaleRepository,
	ticketRepo repository.TicketRepository,
	affiliateRepo repository.AffiliateRepository,
	input RecordTicketSaleInput,
	now time.Time,
) (*models.TicketSale, error) {
	if input.TicketTypeID == 0 || input.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if input.UnitPrice.IsNegative() || input.TotalAmount.IsNegative() {
		return nil, ErrSaleAmountInvalid
	}
	channel := strings.TrimSpace(input.Channel)
	if channel == "" {
		channel = constants.TicketSaleChannelOnline
	}

	sale := &models.TicketSale{
		SaleNo:           uuid.NewString(),
		TicketTypeID:     input.TicketTypeID,
		EventID:          input.EventID,
		BuyerName:        strings.TrimSpace(input.BuyerName),
		BuyerEmail:       strings.ToLower(strings.TrimSpace(input.BuyerEmail)),
		Quantity:         input.Quantity,
		SeatNumbers:      models.NormalizeSeatNumbers(input.SeatNumbers),
		UnitPrice:        models.NewMoneyFromDecimal(input.UnitPrice),
		TotalAmount:      models.NewMoneyFromDecimal(input.TotalAmount),
		ReferralCode:     normalizeReferralCode(input.ReferralCode),
		CommissionAmount: models.ZeroMoney(),
		ReservationNo:    strings.TrimSpace(input.ReservationNo),
		Channel:          channel,
		Status:           constants.TicketSaleStatusCompleted,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if ref := strings.TrimSpace(input.PaymentRef); ref != "" {
		sale.PaymentRef = &ref
	}
	if input.AffiliateID != nil && *input.AffiliateID != 0 {
		affiliateID := *input.AffiliateID
		sale.AffiliateID = &affiliateID
	}

	if sale.ReferralCode != "" && sale.AffiliateID != nil {
		affiliate, err := affiliateRepo.GetAffiliateByID(*input.AffiliateID)
		if err != nil {
			return nil, err
		}
		if commissionEligible(affiliate, sale.ReferralCode) {
			commission := calculateCommission(sale.TotalAmount.Decimal, affiliate.CommissionRate)
			affected, err := affiliateRepo.CreditCommission(affiliate.ID, commission)
			if err != nil {
				return nil, err
			}
			if affected == 1 {
				sale.CommissionPosted = true
				sale.CommissionAmount = models.NewMoneyFromDecimal(commission)
			}
		}
	}

	if err := saleRepo.Create(sale); err != nil {
		return nil, err
	}
	tickets, err := issueTickets(ticketRepo, sale)
	if err != nil {
		return nil, err
	}
	sale.Tickets = tickets
	return sale, nil
}

// calculateCommission 佣金 = 总额 × 比例，保留两位小数
func calculateCommission(total decimal.Decimal, rate decimal.Decimal) decimal.Decimal {
	if total.LessThanOrEqual(decimal.Zero) || rate.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return total.Mul(rate).Round(2)
}

func commissionEligible(affiliate *models.Affiliate, referralCode string) bool {
	if affiliate == nil || affiliate.Status != constants.AffiliateStatusActive {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(affiliate.ReferralCode), referralCode)
}

// issueTickets 每单位一张门票，对号入座按顺序分配座位
func issueTickets(ticketRepo repository.TicketRepository, sale *models.TicketSale) ([]models.Ticket, error) {
	tickets := make([]models.Ticket, 0, sale.Quantity)
	used := make(map[string]struct{}, sale.Quantity)
	for i := 0; i < sale.Quantity; i++ {
		code, err := generateValidationCode(ticketRepo, used)
		if err != nil {
			return nil, err
		}
		ticket := models.Ticket{
			TicketSaleID:   sale.ID,
			TicketTypeID:   sale.TicketTypeID,
			EventID:        sale.EventID,
			ValidationCode: code,
			Status:         constants.TicketStatusActive,
		}
		if i < len(sale.SeatNumbers) {
			ticket.SeatNumber = sale.SeatNumbers[i]
		}
		tickets = append(tickets, ticket)
	}
	if err := ticketRepo.CreateBatch(tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func generateValidationCode(ticketRepo repository.TicketRepository, used map[string]struct{}) (string, error) {
	for i := 0; i < validationCodeMaxRetry; i++ {
		code, err := randomCode(validationCodeLength)
		if err != nil {
			return "", err
		}
		if _, ok := used[code]; ok {
			continue
		}
		exists, err := ticketRepo.ExistsByCode(code)
		if err != nil {
			return "", err
		}
		if exists {
			continue
		}
		used[code] = struct{}{}
		return code, nil
	}
	return "", ErrValidationCodeFull
}

func randomCode(length int) (string, error) {
	var builder strings.Builder
	builder.Grow(length)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(codeAlphabet[n.Int64()])
	}
	return builder.String(), nil
}

func trackSale(sale *models.TicketSale) {
	if sale == nil {
		return
	}
	metrics.TrackTicketSale(sale.Channel, sale.Quantity)
	if sale.CommissionPosted {
		metrics.TrackCommission(sale.CommissionAmount.InexactFloat64())
	}
}
