package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/courtline/internal/constants"
	"github.com/courtline/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupRepositoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repository_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
		t.Fatalf("migrate failed: %v", err)
	}
	return db
}

func createRepoTestTicketType(t *testing.T, db *gorm.DB, quantity int, seats []string) *models.TicketType {
	t.Helper()
	row := &models.TicketType{
		EventID:           1,
		Name:              "General Admission",
		Price:             models.NewMoneyFromDecimal(decimal.NewFromInt(25)),
		QuantityAvailable: quantity,
		SeatNumbers:       models.StringArray(seats),
		AvailableSeats:    append(models.StringArray{}, seats...),
		Status:            constants.TicketTypeStatusActive,
	}
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("create ticket type failed: %v", err)
	}
	return row
}
