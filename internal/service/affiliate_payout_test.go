package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/courtline/internal/constants"
	"github.com/courtline/internal/models"
	"github.com/courtline/internal/repository"

	"gorm.io/gorm"
)

// hookedAffiliateRepo 在真实仓储外包一层，按推广者注入结算失败或在列表后改写余额
type hookedAffiliateRepo struct {
	repository.AffiliateRepository
	failPayoutFor uint
	afterList     func()
}

func (r *hookedAffiliateRepo) WithTx(tx *gorm.DB) repository.AffiliateRepository {
	return &hookedAffiliateRepo{
		AffiliateRepository: r.AffiliateRepository.WithTx(tx),
		failPayoutFor:       r.failPayoutFor,
	}
}

func (r *hookedAffiliateRepo) ListPayableAffiliates(limit int) ([]models.Affiliate, error) {
	rows, err := r.AffiliateRepository.ListPayableAffiliates(limit)
	if err == nil && r.afterList != nil {
		r.afterList()
	}
	return rows, err
}

func (r *hookedAffiliateRepo) CreatePayout(payout *models.AffiliatePayout) error {
	if payout != nil && payout.AffiliateID == r.failPayoutFor {
		return errors.New("payout insert rejected")
	}
	return r.AffiliateRepository.CreatePayout(payout)
}

func TestProcessMonthlyPayoutsSettlesPending(t *testing.T) {
	env := setupTicketingTest(t)
	affiliate := env.approveTestAffiliate(t, "payout@example.com", "")
	idle := env.approveTestAffiliate(t, "idle@example.com", "")
	env.setPendingEarnings(t, affiliate.ID, "42.50", "acct_123")
	env.setPendingEarnings(t, idle.ID, "0", "acct_456")

	svc := NewAffiliatePayoutService(env.affiliateRepo, nil, nil, false, "usd")
	now := time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)
	results, err := svc.ProcessMonthlyPayouts(context.Background(), now)
	if err != nil {
		t.Fatalf("process payouts failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected a single payable affiliate, got %d", len(results))
	}
	if results[0].Status != constants.PayoutResultSuccess || results[0].Amount.StringFixed(2) != "42.50" {
		t.Fatalf("unexpected result: %+v", results[0])
	}

	payout, err := svc.GetPayout(results[0].PayoutID)
	if err != nil {
		t.Fatalf("get payout failed: %v", err)
	}
	if payout.Amount.StringFixed(2) != "42.50" || payout.Status != constants.AffiliatePayoutStatusPending {
		t.Fatalf("unexpected payout: amount=%s status=%s", payout.Amount.StringFixed(2), payout.Status)
	}
	if !payout.PeriodStart.Equal(time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected period start: %v", payout.PeriodStart)
	}
	if payout.PayoutAccountID != "acct_123" {
		t.Fatalf("expected account snapshot, got %s", payout.PayoutAccountID)
	}

	reloaded, err := env.affiliates.GetAffiliate(affiliate.ID)
	if err != nil {
		t.Fatalf("reload affiliate failed: %v", err)
	}
	if !reloaded.PendingEarnings.IsZero() || reloaded.PaidEarnings.StringFixed(2) != "42.50" {
		t.Fatalf("unexpected earnings pending=%s paid=%s", reloaded.PendingEarnings.StringFixed(2), reloaded.PaidEarnings.StringFixed(2))
	}

	again, err := svc.ProcessMonthlyPayouts(context.Background(), now)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("second run should find nothing payable, got %d", len(again))
	}
}

func TestExecutePayoutCompletes(t *testing.T) {
	env := setupTicketingTest(t)
	affiliate := env.approveTestAffiliate(t, "transfer@example.com", "")
	env.setPendingEarnings(t, affiliate.ID, "20.00", "acct_ok")

	transfer := &transferProviderStub{}
	svc := NewAffiliatePayoutService(env.affiliateRepo, transfer, nil, true, "usd")
	results, err := svc.ProcessMonthlyPayouts(context.Background(), time.Now())
	if err != nil || len(results) != 1 {
		t.Fatalf("process payouts failed: results=%d err=%v", len(results), err)
	}

	payout, err := svc.ExecutePayout(context.Background(), results[0].PayoutID)
	if err != nil {
		t.Fatalf("execute payout failed: %v", err)
	}
	if payout.Status != constants.AffiliatePayoutStatusCompleted || payout.TransferRef == "" || payout.ProcessedAt == nil {
		t.Fatalf("unexpected payout: %+v", payout)
	}
	if len(transfer.transfers) != 1 || transfer.transfers[0].Amount != "20.00" || transfer.transfers[0].Destination != "acct_ok" {
		t.Fatalf("unexpected transfer input: %+v", transfer.transfers)
	}

	if _, err := svc.ExecutePayout(context.Background(), payout.ID); err != nil {
		t.Fatalf("completed payout should be returned as is, got %v", err)
	}
	if len(transfer.transfers) != 1 {
		t.Fatalf("completed payout must not transfer again")
	}
}

func TestExecutePayoutFailureRestoresPending(t *testing.T) {
	env := setupTicketingTest(t)
	affiliate := env.approveTestAffiliate(t, "bounce@example.com", "")
	env.setPendingEarnings(t, affiliate.ID, "42.50", "acct_closed")

	transfer := &transferProviderStub{err: errors.New("account closed")}
	svc := NewAffiliatePayoutService(env.affiliateRepo, transfer, nil, true, "usd")
	results, err := svc.ProcessMonthlyPayouts(context.Background(), time.Now())
	if err != nil || len(results) != 1 {
		t.Fatalf("process payouts failed: results=%d err=%v", len(results), err)
	}

	payout, err := svc.ExecutePayout(context.Background(), results[0].PayoutID)
	if !errors.Is(err, ErrPayoutTransferFailed) {
		t.Fatalf("expected transfer failed, got %v", err)
	}
	if payout == nil || payout.Status != constants.AffiliatePayoutStatusFailed || payout.FailReason != "account closed" {
		t.Fatalf("unexpected payout: %+v", payout)
	}

	reloaded, err := env.affiliates.GetAffiliate(affiliate.ID)
	if err != nil {
		t.Fatalf("reload affiliate failed: %v", err)
	}
	if reloaded.PendingEarnings.StringFixed(2) != "42.50" || !reloaded.PaidEarnings.IsZero() {
		t.Fatalf("expected pending restored, pending=%s paid=%s", reloaded.PendingEarnings.StringFixed(2), reloaded.PaidEarnings.StringFixed(2))
	}
}

func TestExecutePayoutRequiresTransfer(t *testing.T) {
	env := setupTicketingTest(t)
	svc := NewAffiliatePayoutService(env.affiliateRepo, &transferProviderStub{}, nil, false, "usd")
	if _, err := svc.ExecutePayout(context.Background(), 1); !errors.Is(err, ErrTransferUnavailable) {
		t.Fatalf("expected transfer unavailable, got %v", err)
	}
}

func TestPreviousMonth(t *testing.T) {
	start, end := previousMonth(time.Date(2026, time.January, 15, 8, 0, 0, 0, time.UTC))
	if !start.Equal(time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC)) || !end.Equal(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected period: %v - %v", start, end)
	}
}

func TestProcessMonthlyPayoutsContinuesAfterFailure(t *testing.T) {
	env := setupTicketingTest(t)
	broken := env.approveTestAffiliate(t, "broken@example.com", "")
	healthy := env.approveTestAffiliate(t, "healthy@example.com", "")
	env.setPendingEarnings(t, broken.ID, "10.00", "acct_broken")
	env.setPendingEarnings(t, healthy.ID, "42.50", "acct_healthy")

	repo := &hookedAffiliateRepo{AffiliateRepository: env.affiliateRepo, failPayoutFor: broken.ID}
	svc := NewAffiliatePayoutService(repo, nil, nil, false, "usd")
	results, err := svc.ProcessMonthlyPayouts(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("process payouts failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].AffiliateID != broken.ID || results[0].Status != constants.PayoutResultError || results[0].Error == "" {
		t.Fatalf("unexpected first result: %+v", results[0])
	}
	if results[0].PayoutID != 0 {
		t.Fatalf("failed result must not carry a payout id, got %d", results[0].PayoutID)
	}
	if results[1].AffiliateID != healthy.ID || results[1].Status != constants.PayoutResultSuccess || results[1].Amount.StringFixed(2) != "42.50" {
		t.Fatalf("unexpected second result: %+v", results[1])
	}

	a, err := env.affiliates.GetAffiliate(broken.ID)
	if err != nil {
		t.Fatalf("reload affiliate failed: %v", err)
	}
	if a.PendingEarnings.StringFixed(2) != "10.00" || !a.PaidEarnings.IsZero() {
		t.Fatalf("failed affiliate must keep its balance, pending=%s paid=%s", a.PendingEarnings.StringFixed(2), a.PaidEarnings.StringFixed(2))
	}
	b, err := env.affiliates.GetAffiliate(healthy.ID)
	if err != nil {
		t.Fatalf("reload affiliate failed: %v", err)
	}
	if !b.PendingEarnings.IsZero() || b.PaidEarnings.StringFixed(2) != "42.50" {
		t.Fatalf("healthy affiliate should be settled, pending=%s paid=%s", b.PendingEarnings.StringFixed(2), b.PaidEarnings.StringFixed(2))
	}
	_, total, err := svc.ListPayouts(repository.AffiliatePayoutListFilter{AffiliateID: broken.ID})
	if err != nil {
		t.Fatalf("list payouts failed: %v", err)
	}
	if total != 0 {
		t.Fatalf("failed affiliate must have no payout row, got %d", total)
	}
}

func TestProcessMonthlyPayoutsBalanceChanged(t *testing.T) {
	env := setupTicketingTest(t)
	affiliate := env.approveTestAffiliate(t, "refunds@example.com", "")
	env.setPendingEarnings(t, affiliate.ID, "30.00", "acct_refunds")

	repo := &hookedAffiliateRepo{
		AffiliateRepository: env.affiliateRepo,
		afterList: func() {
			env.setPendingEarnings(t, affiliate.ID, "12.00", "acct_refunds")
		},
	}
	svc := NewAffiliatePayoutService(repo, nil, nil, false, "usd")
	results, err := svc.ProcessMonthlyPayouts(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("process payouts failed: %v", err)
	}
	if len(results) != 1 || results[0].Status != constants.PayoutResultError {
		t.Fatalf("expected a single error result, got %+v", results)
	}
	if results[0].Error != ErrPayoutBalanceChanged.Error() {
		t.Fatalf("expected balance changed error, got %q", results[0].Error)
	}

	reloaded, err := env.affiliates.GetAffiliate(affiliate.ID)
	if err != nil {
		t.Fatalf("reload affiliate failed: %v", err)
	}
	if reloaded.PendingEarnings.StringFixed(2) != "12.00" || !reloaded.PaidEarnings.IsZero() {
		t.Fatalf("balance must be left untouched, pending=%s paid=%s", reloaded.PendingEarnings.StringFixed(2), reloaded.PaidEarnings.StringFixed(2))
	}
	_, total, err := svc.ListPayouts(repository.AffiliatePayoutListFilter{AffiliateID: affiliate.ID})
	if err != nil {
		t.Fatalf("list payouts failed: %v", err)
	}
	if total != 0 {
		t.Fatalf("rolled back payout must not persist, got %d", total)
	}
}
