package service

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/courtline/internal/config"
	"github.com/courtline/internal/constants"
	"github.com/courtline/internal/models"
	"github.com/courtline/internal/payment/stripe"
	"github.com/courtline/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ticketingTestEnv struct {
	db              *gorm.DB
	ticketTypeRepo  *repository.GormTicketTypeRepository
	reservationRepo *repository.GormSeatReservationRepository
	saleRepo        *repository.GormTicketSaleRepository
	ticketRepo      *repository.GormTicketRepository
	affiliateRepo   *repository.GormAffiliateRepository

	tickets     *TicketService
	reservation *ReservationService
	sales       *TicketSaleService
	validation  *TicketValidationService
	affiliates  *AffiliateService
}

func setupTicketingTest(t *testing.T) *ticketingTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := models.MigrateDB(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	cfg := config.TicketingConfig{
		ReservationTTLMinutes: 15,
		SweepBatchSize:        50,
		DefaultMaxPerOrder:    10,
		Currency:              "usd",
	}
	env := &ticketingTestEnv{
		db:              db,
		ticketTypeRepo:  repository.NewTicketTypeRepository(db),
		reservationRepo: repository.NewSeatReservationRepository(db),
		saleRepo:        repository.NewTicketSaleRepository(db),
		ticketRepo:      repository.NewTicketRepository(db),
		affiliateRepo:   repository.NewAffiliateRepository(db),
	}
	env.tickets = NewTicketService(env.ticketTypeRepo, cfg)
	env.reservation = NewReservationService(env.ticketTypeRepo, env.reservationRepo, nil, nil, cfg)
	env.sales = NewTicketSaleService(env.ticketTypeRepo, env.saleRepo, env.ticketRepo, env.affiliateRepo)
	env.validation = NewTicketValidationService(env.ticketRepo)
	env.affiliates = NewAffiliateService(env.affiliateRepo, config.AffiliateConfig{DefaultCommissionRate: 0.15, CodeLength: 8})
	return env
}

func (env *ticketingTestEnv) createTicketType(t *testing.T, quantity int, seats []string) *models.TicketType {
	t.Helper()
	ticketType, err := env.tickets.CreateTicketType(CreateTicketTypeInput{
		EventID:     7,
		Name:        "Courtside",
		Price:       decimal.NewFromInt(50),
		Quantity:    quantity,
		SeatNumbers: seats,
	})
	if err != nil {
		t.Fatalf("create ticket type failed: %v", err)
	}
	return ticketType
}

func (env *ticketingTestEnv) reloadTicketType(t *testing.T, id uint) *models.TicketType {
	t.Helper()
	ticketType, err := env.ticketTypeRepo.GetByID(id)
	if err != nil || ticketType == nil {
		t.Fatalf("reload ticket type failed: %v", err)
	}
	return ticketType
}

// approveTestAffiliate 走完整申请审核流程并设置佣金比例
func (env *ticketingTestEnv) approveTestAffiliate(t *testing.T, email string, rate string) *models.Affiliate {
	t.Helper()
	app, err := env.affiliates.SubmitApplication(AffiliateApplicationInput{Name: "Hoops Blog", Email: email})
	if err != nil {
		t.Fatalf("submit application failed: %v", err)
	}
	affiliate, err := env.affiliates.ApproveAffiliate(app.ID, 1)
	if err != nil {
		t.Fatalf("approve affiliate failed: %v", err)
	}
	if rate != "" {
		affiliate, err = env.affiliates.UpdateCommissionRate(affiliate.ID, decimal.RequireFromString(rate))
		if err != nil {
			t.Fatalf("update commission rate failed: %v", err)
		}
	}
	return affiliate
}

func (env *ticketingTestEnv) setPendingEarnings(t *testing.T, affiliateID uint, pending string, account string) {
	t.Helper()
	if err := env.db.Model(&models.Affiliate{}).Where("id = ?", affiliateID).Updates(map[string]interface{}{
		"pending_earnings":  decimal.RequireFromString(pending),
		"payout_account_id": account,
		"status":            constants.AffiliateStatusActive,
	}).Error; err != nil {
		t.Fatalf("set pending earnings failed: %v", err)
	}
}

type checkoutProviderStub struct {
	enabled   bool
	createErr error
	sessions  []stripe.CheckoutInput
	event     *stripe.WebhookEvent
	verifyErr error
}

func (p *checkoutProviderStub) Enabled() bool { return p.enabled }

func (p *checkoutProviderStub) CreateCheckoutSession(_ context.Context, input stripe.CheckoutInput) (*stripe.CheckoutSession, error) {
	if p.createErr != nil {
		return nil, p.createErr
	}
	p.sessions = append(p.sessions, input)
	id := fmt.Sprintf("cs_test_%d", len(p.sessions))
	return &stripe.CheckoutSession{SessionID: id, URL: "https://checkout.stripe.test/" + id, Status: "open"}, nil
}

func (p *checkoutProviderStub) VerifyWebhook(_ http.Header, _ []byte, _ time.Time) (*stripe.WebhookEvent, error) {
	if p.verifyErr != nil {
		return nil, p.verifyErr
	}
	return p.event, nil
}

type transferProviderStub struct {
	err       error
	transfers []stripe.TransferInput
}

func (p *transferProviderStub) Enabled() bool { return true }

func (p *transferProviderStub) CreateTransfer(_ context.Context, input stripe.TransferInput) (*stripe.TransferResult, error) {
	p.transfers = append(p.transfers, input)
	if p.err != nil {
		return nil, p.err
	}
	return &stripe.TransferResult{TransferID: fmt.Sprintf("tr_%d", input.PayoutID)}, nil
}
