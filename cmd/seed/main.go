package main

import (
	"flag"
	"fmt"

	"github.com/courtline/internal/app"
	"github.com/courtline/internal/config"
	"github.com/courtline/internal/constants"
	"github.com/courtline/internal/logger"
	"github.com/courtline/internal/models"
	"github.com/courtline/internal/repository"
	"github.com/courtline/internal/service"

	"github.com/shopspring/decimal"
)

type ticketTypeSeed struct {
	Name        string
	Description string
	Price       string
	Quantity    int
	Seats       []string
	MaxPerOrder int
}

func main() {
	var eventID uint
	var staffPassword string
	flag.UintVar(&eventID, "event", 1, "演示赛事 ID")
	flag.StringVar(&staffPassword, "staff-password", "", "演示员工账号密码，为空则不创建")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := app.InitDatabase(cfg); err != nil {
		stdLog.Fatalf("Failed to prepare database: %v", err)
	}

	ticketTypeRepo := repository.NewTicketTypeRepository(models.DB)
	ticketService := service.NewTicketService(ticketTypeRepo, cfg.Ticketing)

	// 票种
	seeds := []ticketTypeSeed{
		{Name: "Upper Deck", Description: "General admission, upper bowl", Price: "18.00", Quantity: 2000, MaxPerOrder: 8},
		{Name: "Lower Bowl", Description: "General admission, lower bowl", Price: "45.00", Quantity: 800},
		{Name: "Courtside", Description: "Assigned courtside seats", Price: "350.00", Quantity: 8,
			Seats: []string{"CS-A1", "CS-A2", "CS-A3", "CS-A4", "CS-B1", "CS-B2", "CS-B3", "CS-B4"}, MaxPerOrder: 4},
	}
	existing, _, err := ticketService.ListTicketTypes(eventID, repository.TicketTypeListFilter{Page: 1, PageSize: 100})
	if err != nil {
		stdLog.Fatalf("Failed to load ticket types: %v", err)
	}
	existingNames := make(map[string]bool, len(existing))
	for _, item := range existing {
		existingNames[item.Name] = true
	}
	for _, seed := range seeds {
		if existingNames[seed.Name] {
			stdLog.Printf("Ticket type already exists: %s", seed.Name)
			continue
		}
		created, err := ticketService.CreateTicketType(service.CreateTicketTypeInput{
			EventID:     eventID,
			Name:        seed.Name,
			Description: seed.Description,
			Price:       decimal.RequireFromString(seed.Price),
			Quantity:    seed.Quantity,
			SeatNumbers: seed.Seats,
			MaxPerOrder: seed.MaxPerOrder,
		})
		if err != nil {
			stdLog.Printf("Failed to create ticket type %s: %v", seed.Name, err)
			continue
		}
		stdLog.Printf("Created ticket type: %s (id=%d)", created.Name, created.ID)
	}

	// 演示推广者
	affiliateService := service.NewAffiliateService(repository.NewAffiliateRepository(models.DB), cfg.Affiliate)
	application, err := affiliateService.SubmitApplication(service.AffiliateApplicationInput{
		Name:    "Fast Break Podcast",
		Email:   "partners@fastbreak.example",
		Website: "https://fastbreak.example",
		Message: "Weekly league coverage",
	})
	if err != nil {
		stdLog.Printf("Skip demo affiliate: %v", err)
	} else if affiliate, err := affiliateService.ApproveAffiliate(application.ID, 0); err != nil {
		stdLog.Printf("Failed to approve demo affiliate: %v", err)
	} else {
		stdLog.Printf("Created affiliate %s with referral code %s", affiliate.Name, affiliate.ReferralCode)
	}

	// 演示员工账号，角色在服务启动时同步到 casbin
	if staffPassword != "" {
		seedStaff(cfg, staffPassword)
	}

	stdLog.Printf("Seed completed for event %d", eventID)
}

func seedStaff(cfg *config.Config, password string) {
	stdLog := logger.StdLogger()
	adminRepo := repository.NewAdminRepository(models.DB)
	authService := service.NewAuthService(cfg, adminRepo)
	roles := []string{constants.RoleBoxOffice, constants.RoleTicketing, constants.RoleAffiliateManager, constants.RoleReadonlyAuditor}
	for _, role := range roles {
		username := fmt.Sprintf("demo_%s", role)
		found, err := adminRepo.GetByUsername(username)
		if err != nil {
			stdLog.Printf("Failed to look up %s: %v", username, err)
			continue
		}
		if found != nil {
			stdLog.Printf("Admin already exists: %s", username)
			continue
		}
		hash, err := authService.HashPassword(password)
		if err != nil {
			stdLog.Fatalf("Failed to hash password: %v", err)
		}
		if err := adminRepo.Create(&models.Admin{Username: username, PasswordHash: hash, Role: role}); err != nil {
			stdLog.Printf("Failed to create admin %s: %v", username, err)
			continue
		}
		stdLog.Printf("Created admin: %s", username)
	}
}
