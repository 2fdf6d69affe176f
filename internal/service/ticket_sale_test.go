package service

import (
	"errors"
	"testing"

	"github.com/courtline/internal/constants"

	"github.com/shopspring/decimal"
)

func TestRecordTicketSaleCreditsCommission(t *testing.T) {
	env := setupTicketingTest(t)
	ticketType := env.createTicketType(t, 10, nil)
	affiliate := env.approveTestAffiliate(t, "blog@example.com", "0.15")
	affiliateID := affiliate.ID

	sale, err := env.sales.RecordTicketSale(RecordTicketSaleInput{
		TicketTypeID: ticketType.ID,
		EventID:      ticketType.EventID,
		BuyerName:    "Jordan",
		BuyerEmail:   "jordan@example.com",
		Quantity:     2,
		UnitPrice:    decimal.NewFromInt(50),
		TotalAmount:  decimal.NewFromInt(100),
		ReferralCode: affiliate.ReferralCode,
		AffiliateID:  &affiliateID,
	})
	if err != nil {
		t.Fatalf("record sale failed: %v", err)
	}
	if sale.CommissionAmount.StringFixed(2) != "15.00" {
		t.Fatalf("expected commission 15.00, got %s", sale.CommissionAmount.StringFixed(2))
	}
	if sale.AffiliateID == nil || *sale.AffiliateID != affiliate.ID || !sale.CommissionPosted {
		t.Fatalf("expected sale attributed to affiliate with commission posted")
	}
	if len(sale.Tickets) != 2 {
		t.Fatalf("expected 2 tickets issued, got %d", len(sale.Tickets))
	}
	if sale.Tickets[0].ValidationCode == sale.Tickets[1].ValidationCode {
		t.Fatalf("validation codes must be unique")
	}

	reloaded, err := env.affiliates.GetAffiliate(affiliate.ID)
	if err != nil {
		t.Fatalf("reload affiliate failed: %v", err)
	}
	if reloaded.PendingEarnings.StringFixed(2) != "15.00" || reloaded.TotalEarnings.StringFixed(2) != "15.00" {
		t.Fatalf("unexpected earnings pending=%s total=%s", reloaded.PendingEarnings.StringFixed(2), reloaded.TotalEarnings.StringFixed(2))
	}
	if reloaded.TotalSales != 1 {
		t.Fatalf("expected total_sales=1, got %d", reloaded.TotalSales)
	}
}

func TestRecordTicketSaleWithoutEligibleAffiliate(t *testing.T) {
	env := setupTicketingTest(t)
	ticketType := env.createTicketType(t, 10, nil)
	affiliate := env.approveTestAffiliate(t, "courtside@example.com", "0.20")
	affiliateID := affiliate.ID

	cases := []struct {
		name         string
		referralCode string
		affiliateID  *uint
		suspend      bool
	}{
		{"no referral", "", nil, false},
		{"code mismatch", "NOTREAL1", &affiliateID, false},
		{"suspended affiliate", affiliate.ReferralCode, &affiliateID, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.suspend {
				if _, err := env.affiliates.UpdateAffiliateStatus(affiliate.ID, constants.AffiliateStatusSuspended); err != nil {
					t.Fatalf("suspend failed: %v", err)
				}
			}
			sale, err := env.sales.RecordTicketSale(RecordTicketSaleInput{
				TicketTypeID: ticketType.ID,
				EventID:      ticketType.EventID,
				Quantity:     1,
				UnitPrice:    decimal.NewFromInt(50),
				TotalAmount:  decimal.NewFromInt(50),
				ReferralCode: tc.referralCode,
				AffiliateID:  tc.affiliateID,
			})
			if err != nil {
				t.Fatalf("record sale failed: %v", err)
			}
			if !sale.CommissionAmount.IsZero() || sale.CommissionPosted {
				t.Fatalf("expected no commission, got %s posted=%v", sale.CommissionAmount.StringFixed(2), sale.CommissionPosted)
			}
			if (tc.affiliateID == nil) != (sale.AffiliateID == nil) {
				t.Fatalf("affiliate_id should be kept as given, got %v", sale.AffiliateID)
			}
		})
	}

	reloaded, err := env.affiliates.GetAffiliate(affiliate.ID)
	if err != nil {
		t.Fatalf("reload affiliate failed: %v", err)
	}
	if !reloaded.PendingEarnings.IsZero() {
		t.Fatalf("pending earnings should stay zero, got %s", reloaded.PendingEarnings.StringFixed(2))
	}
}

func TestRecordTicketSaleRejectsNegativeAmount(t *testing.T) {
	env := setupTicketingTest(t)
	ticketType := env.createTicketType(t, 10, nil)
	_, err := env.sales.RecordTicketSale(RecordTicketSaleInput{
		TicketTypeID: ticketType.ID,
		Quantity:     1,
		UnitPrice:    decimal.NewFromInt(10),
		TotalAmount:  decimal.NewFromInt(-10),
	})
	if !errors.Is(err, ErrSaleAmountInvalid) {
		t.Fatalf("expected amount invalid, got %v", err)
	}
}

func TestBoxOfficeSaleAndRefund(t *testing.T) {
	env := setupTicketingTest(t)
	ticketType := env.createTicketType(t, 0, []string{"A1", "A2"})
	affiliate := env.approveTestAffiliate(t, "podcast@example.com", "0.10")

	sale, err := env.sales.BoxOfficeSale(BoxOfficeSaleInput{
		TicketTypeID: ticketType.ID,
		Quantity:     2,
		BuyerName:    "Walk-up",
		ReferralCode: affiliate.ReferralCode,
	})
	if err != nil {
		t.Fatalf("box office sale failed: %v", err)
	}
	if sale.Channel != constants.TicketSaleChannelBoxOffice {
		t.Fatalf("unexpected channel: %s", sale.Channel)
	}
	if sale.CommissionAmount.StringFixed(2) != "10.00" {
		t.Fatalf("expected commission 10.00, got %s", sale.CommissionAmount.StringFixed(2))
	}
	if sale.Tickets[0].SeatNumber != "A1" || sale.Tickets[1].SeatNumber != "A2" {
		t.Fatalf("unexpected seat assignment: %s %s", sale.Tickets[0].SeatNumber, sale.Tickets[1].SeatNumber)
	}
	current := env.reloadTicketType(t, ticketType.ID)
	if current.Status != constants.TicketTypeStatusSoldOut || len(current.AvailableSeats) != 0 {
		t.Fatalf("expected sold_out with no seats, got status=%s seats=%v", current.Status, current.AvailableSeats)
	}

	refunded, err := env.sales.RefundSale(sale.ID, constants.TicketSaleStatusRefunded)
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if refunded.Status != constants.TicketSaleStatusRefunded {
		t.Fatalf("expected refunded, got %s", refunded.Status)
	}
	for _, ticket := range refunded.Tickets {
		if ticket.Status != constants.TicketStatusRefunded {
			t.Fatalf("expected ticket refunded, got %s", ticket.Status)
		}
	}
	current = env.reloadTicketType(t, ticketType.ID)
	if current.Status != constants.TicketTypeStatusActive || current.QuantitySold != 0 || len(current.AvailableSeats) != 2 {
		t.Fatalf("expected inventory restored, got status=%s sold=%d seats=%v", current.Status, current.QuantitySold, current.AvailableSeats)
	}
	reloaded, err := env.affiliates.GetAffiliate(affiliate.ID)
	if err != nil {
		t.Fatalf("reload affiliate failed: %v", err)
	}
	if !reloaded.PendingEarnings.IsZero() || reloaded.TotalSales != 0 {
		t.Fatalf("expected commission reversed, pending=%s sales=%d", reloaded.PendingEarnings.StringFixed(2), reloaded.TotalSales)
	}

	if _, err := env.sales.RefundSale(sale.ID, constants.TicketSaleStatusRefunded); !errors.Is(err, ErrSaleNotRefundable) {
		t.Fatalf("expected not refundable on second refund, got %v", err)
	}
}

func TestIssueTicketsIsIdempotent(t *testing.T) {
	env := setupTicketingTest(t)
	ticketType := env.createTicketType(t, 10, nil)
	sale, err := env.sales.RecordTicketSale(RecordTicketSaleInput{
		TicketTypeID: ticketType.ID,
		Quantity:     3,
		UnitPrice:    decimal.NewFromInt(50),
		TotalAmount:  decimal.NewFromInt(150),
	})
	if err != nil {
		t.Fatalf("record sale failed: %v", err)
	}
	tickets, err := env.sales.IssueTickets(sale.ID)
	if err != nil {
		t.Fatalf("issue tickets failed: %v", err)
	}
	if len(tickets) != 3 {
		t.Fatalf("expected existing 3 tickets, got %d", len(tickets))
	}
}

func TestGetSalesStats(t *testing.T) {
	env := setupTicketingTest(t)
	ticketType := env.createTicketType(t, 10, nil)
	affiliate := env.approveTestAffiliate(t, "stats@example.com", "0.15")

	if _, err := env.sales.BoxOfficeSale(BoxOfficeSaleInput{TicketTypeID: ticketType.ID, Quantity: 2, ReferralCode: affiliate.ReferralCode}); err != nil {
		t.Fatalf("sale failed: %v", err)
	}
	second, err := env.sales.BoxOfficeSale(BoxOfficeSaleInput{TicketTypeID: ticketType.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("sale failed: %v", err)
	}
	if _, err := env.sales.RefundSale(second.ID, constants.TicketSaleStatusCancelled); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	stats, err := env.sales.GetSalesStats(ticketType.EventID)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.SalesCount != 1 || stats.TicketsSold != 2 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.TotalRevenue.StringFixed(2) != "100.00" || stats.TotalCommission.StringFixed(2) != "15.00" {
		t.Fatalf("unexpected totals revenue=%s commission=%s", stats.TotalRevenue.StringFixed(2), stats.TotalCommission.StringFixed(2))
	}
	if stats.RefundedCount != 1 {
		t.Fatalf("expected 1 refunded, got %d", stats.RefundedCount)
	}
}

func TestCalculateCommission(t *testing.T) {
	got := calculateCommission(decimal.RequireFromString("33.33"), decimal.RequireFromString("0.15"))
	if got.StringFixed(2) != "5.00" {
		t.Fatalf("expected 5.00, got %s", got.StringFixed(2))
	}
	if !calculateCommission(decimal.NewFromInt(100), decimal.Zero).IsZero() {
		t.Fatalf("expected zero commission for zero rate")
	}
}

func TestRefundSaleRecordedWithoutInventory(t *testing.T) {
	env := setupTicketingTest(t)
	ticketType := env.createTicketType(t, 5, nil)

	sale, err := env.sales.RecordTicketSale(RecordTicketSaleInput{
		TicketTypeID: ticketType.ID,
		EventID:      ticketType.EventID,
		Quantity:     2,
		UnitPrice:    decimal.NewFromInt(50),
		TotalAmount:  decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("record sale failed: %v", err)
	}
	if current := env.reloadTicketType(t, ticketType.ID); current.QuantitySold != 0 {
		t.Fatalf("recording a sale must not touch inventory, sold=%d", current.QuantitySold)
	}

	cancelled, err := env.sales.RefundSale(sale.ID, constants.TicketSaleStatusCancelled)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != constants.TicketSaleStatusCancelled || cancelled.RefundedAt == nil {
		t.Fatalf("expected cancelled sale, got status=%s refunded_at=%v", cancelled.Status, cancelled.RefundedAt)
	}
	for _, ticket := range cancelled.Tickets {
		if ticket.Status != constants.TicketStatusCancelled {
			t.Fatalf("expected ticket cancelled, got %s", ticket.Status)
		}
	}
	if current := env.reloadTicketType(t, ticketType.ID); current.QuantitySold != 0 {
		t.Fatalf("sold quantity must not go negative, got %d", current.QuantitySold)
	}
}

func TestRefundSaleClampsManuallyLoweredInventory(t *testing.T) {
	env := setupTicketingTest(t)
	ticketType := env.createTicketType(t, 5, nil)

	sale, err := env.sales.BoxOfficeSale(BoxOfficeSaleInput{TicketTypeID: ticketType.ID, Quantity: 3})
	if err != nil {
		t.Fatalf("box office sale failed: %v", err)
	}
	if err := env.db.Exec("UPDATE ticket_types SET quantity_sold = 1 WHERE id = ?", ticketType.ID).Error; err != nil {
		t.Fatalf("lower sold quantity failed: %v", err)
	}

	refunded, err := env.sales.RefundSale(sale.ID, constants.TicketSaleStatusRefunded)
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if refunded.Status != constants.TicketSaleStatusRefunded {
		t.Fatalf("expected refunded, got %s", refunded.Status)
	}
	if current := env.reloadTicketType(t, ticketType.ID); current.QuantitySold != 0 {
		t.Fatalf("expected sold quantity clamped to 0, got %d", current.QuantitySold)
	}
}

func TestRefundUnpostedSaleKeepsAffiliateTotals(t *testing.T) {
	env := setupTicketingTest(t)
	ticketType := env.createTicketType(t, 10, nil)
	affiliate := env.approveTestAffiliate(t, "dunk@example.com", "0.10")
	affiliateID := affiliate.ID

	if _, err := env.sales.BoxOfficeSale(BoxOfficeSaleInput{
		TicketTypeID: ticketType.ID,
		Quantity:     1,
		ReferralCode: affiliate.ReferralCode,
	}); err != nil {
		t.Fatalf("box office sale failed: %v", err)
	}

	unposted, err := env.sales.RecordTicketSale(RecordTicketSaleInput{
		TicketTypeID: ticketType.ID,
		EventID:      ticketType.EventID,
		Quantity:     1,
		UnitPrice:    decimal.NewFromInt(50),
		TotalAmount:  decimal.NewFromInt(50),
		ReferralCode: "NOTREAL1",
		AffiliateID:  &affiliateID,
	})
	if err != nil {
		t.Fatalf("record sale failed: %v", err)
	}
	if unposted.AffiliateID == nil || *unposted.AffiliateID != affiliate.ID {
		t.Fatalf("expected affiliate_id kept, got %v", unposted.AffiliateID)
	}
	if unposted.CommissionPosted || !unposted.CommissionAmount.IsZero() {
		t.Fatalf("code mismatch must not post commission")
	}

	if _, err := env.sales.RefundSale(unposted.ID, constants.TicketSaleStatusRefunded); err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	reloaded, err := env.affiliates.GetAffiliate(affiliate.ID)
	if err != nil {
		t.Fatalf("reload affiliate failed: %v", err)
	}
	if reloaded.TotalSales != 1 || reloaded.PendingEarnings.StringFixed(2) != "5.00" {
		t.Fatalf("unposted refund must not touch totals, sales=%d pending=%s", reloaded.TotalSales, reloaded.PendingEarnings.StringFixed(2))
	}
}
