//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/courtline/internal/constants"
	"github.com/courtline/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := models.AllModels()
	_ = db.Migrator().DropTable(cleanupModels...)
	if err := models.MigrateDB(db); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func TestPostgresConcurrentReservationsNeverOversell(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	row := createRepoTestTicketType(t, db, 10, nil)
	repo := NewTicketTypeRepository(db)

	const workers = 40
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			affected, err := repo.ApplyInventoryChange(row.ID, InventoryChange{ReservedDelta: 1, RequireActive: true})
			if err != nil {
				t.Errorf("apply inventory change failed: %v", err)
				return
			}
			if affected == 1 {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 10 {
		t.Fatalf("expected exactly 10 reservations, got %d", succeeded)
	}
	reloaded, err := repo.GetByID(row.ID)
	if err != nil || reloaded == nil {
		t.Fatalf("reload ticket type failed: %v", err)
	}
	if reloaded.QuantityReserved != 10 || reloaded.Status != constants.TicketTypeStatusActive {
		t.Fatalf("unexpected inventory: reserved=%d status=%s", reloaded.QuantityReserved, reloaded.Status)
	}
}

func TestPostgresCommissionCreditAndSettle(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewAffiliateRepository(db)
	affiliate := &models.Affiliate{
		ApplicationID:  1,
		Name:           "Postgres Partner",
		Email:          "pg@partner.test",
		ReferralCode:   "PGCODE01",
		CommissionRate: decimal.RequireFromString("0.1"),
		Status:         constants.AffiliateStatusActive,
	}
	if err := repo.CreateAffiliate(affiliate); err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.CreditCommission(affiliate.ID, decimal.RequireFromString("2.50")); err != nil {
				t.Errorf("credit commission failed: %v", err)
			}
		}()
	}
	wg.Wait()

	reloaded, err := repo.GetAffiliateByID(affiliate.ID)
	if err != nil || reloaded == nil {
		t.Fatalf("reload affiliate failed: %v", err)
	}
	if reloaded.TotalSales != 20 || !reloaded.PendingEarnings.Decimal.Equal(decimal.RequireFromString("50")) {
		t.Fatalf("unexpected totals: sales=%d pending=%s", reloaded.TotalSales, reloaded.PendingEarnings.String())
	}

	affected, err := repo.SettlePending(affiliate.ID, decimal.RequireFromString("60"))
	if err != nil {
		t.Fatalf("settle pending failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("settling more than pending must not apply")
	}
}
