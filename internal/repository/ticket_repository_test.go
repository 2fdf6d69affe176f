package repository

import (
	"testing"
	"time"

	"github.com/courtline/internal/constants"
	"github.com/courtline/internal/models"

	"github.com/shopspring/decimal"
)

func TestMarkUsedOnlyOnce(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewTicketRepository(db)
	tickets := []models.Ticket{{
		TicketSaleID:   1,
		TicketTypeID:   1,
		EventID:        1,
		ValidationCode: "CODE-1",
		Status:         constants.TicketStatusActive,
	}}
	if err := repo.CreateBatch(tickets); err != nil {
		t.Fatalf("create tickets failed: %v", err)
	}
	id := tickets[0].ID

	affected, err := repo.MarkUsed(id, "WRONG", 1, time.Now())
	if err != nil || affected != 0 {
		t.Fatalf("wrong code should not mark used: affected=%d err=%v", affected, err)
	}
	affected, err = repo.MarkUsed(id, "CODE-1", 1, time.Now())
	if err != nil || affected != 1 {
		t.Fatalf("first redemption failed: affected=%d err=%v", affected, err)
	}
	affected, err = repo.MarkUsed(id, "CODE-1", 1, time.Now())
	if err != nil || affected != 0 {
		t.Fatalf("second redemption should not update: affected=%d err=%v", affected, err)
	}
	got, _ := repo.GetByID(id)
	if got.Status != constants.TicketStatusUsed || got.UsedAt == nil || got.UsedBy == nil || *got.UsedBy != 1 {
		t.Fatalf("unexpected ticket state: %+v", got)
	}
}

func TestTicketSaleStatsFiltersByEventAndStatus(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewTicketSaleRepository(db)

	sales := []models.TicketSale{
		{SaleNo: "S1", EventID: 1, TicketTypeID: 1, Quantity: 2, TotalAmount: models.NewMoneyFromDecimal(decimal.RequireFromString("100.00")), CommissionAmount: models.NewMoneyFromDecimal(decimal.RequireFromString("15.00")), Status: constants.TicketSaleStatusCompleted},
		{SaleNo: "S2", EventID: 1, TicketTypeID: 1, Quantity: 1, TotalAmount: models.NewMoneyFromDecimal(decimal.RequireFromString("50.00")), Status: constants.TicketSaleStatusCompleted},
		{SaleNo: "S3", EventID: 1, TicketTypeID: 1, Quantity: 1, TotalAmount: models.NewMoneyFromDecimal(decimal.RequireFromString("50.00")), Status: constants.TicketSaleStatusRefunded},
		{SaleNo: "S4", EventID: 2, TicketTypeID: 2, Quantity: 4, TotalAmount: models.NewMoneyFromDecimal(decimal.RequireFromString("80.00")), Status: constants.TicketSaleStatusCompleted},
	}
	for i := range sales {
		sales[i].Channel = constants.TicketSaleChannelOnline
		if err := repo.Create(&sales[i]); err != nil {
			t.Fatalf("create sale failed: %v", err)
		}
	}

	stats, err := repo.Stats(1)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if !stats.TotalRevenue.Equal(decimal.RequireFromString("150.00")) {
		t.Fatalf("unexpected revenue: %s", stats.TotalRevenue)
	}
	if !stats.TotalCommission.Equal(decimal.RequireFromString("15.00")) {
		t.Fatalf("unexpected commission: %s", stats.TotalCommission)
	}
	if stats.TicketsSold != 3 || stats.SalesCount != 2 || stats.RefundedCount != 1 {
		t.Fatalf("unexpected counters: %+v", stats)
	}

	all, err := repo.Stats(0)
	if err != nil {
		t.Fatalf("stats all failed: %v", err)
	}
	if all.SalesCount != 3 || all.TicketsSold != 7 {
		t.Fatalf("unexpected global counters: %+v", all)
	}
}

func TestTicketSaleTransitionStatusIsConditional(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewTicketSaleRepository(db)
	sale := &models.TicketSale{SaleNo: "S1", EventID: 1, TicketTypeID: 1, Quantity: 1, Channel: constants.TicketSaleChannelOnline, Status: constants.TicketSaleStatusCompleted}
	if err := repo.Create(sale); err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	affected, err := repo.TransitionStatus(sale.ID, constants.TicketSaleStatusCompleted, constants.TicketSaleStatusRefunded, time.Now())
	if err != nil || affected != 1 {
		t.Fatalf("refund transition failed: affected=%d err=%v", affected, err)
	}
	affected, err = repo.TransitionStatus(sale.ID, constants.TicketSaleStatusCompleted, constants.TicketSaleStatusCancelled, time.Now())
	if err != nil || affected != 0 {
		t.Fatalf("second transition should be rejected: affected=%d err=%v", affected, err)
	}
}
