package provider

import (
	"time"

	"github.com/courtline/internal/authz"
	"github.com/courtline/internal/cache"
	"github.com/courtline/internal/config"
	"github.com/courtline/internal/logger"
	"github.com/courtline/internal/models"
	"github.com/courtline/internal/payment/stripe"
	"github.com/courtline/internal/queue"
	"github.com/courtline/internal/repository"
	"github.com/courtline/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config       *config.Config
	QueueClient  *queue.Client
	SeatLocker   *cache.SeatLocker
	StripeClient *stripe.Client

	// Repositories
	AdminRepo       repository.AdminRepository
	TicketTypeRepo  repository.TicketTypeRepository
	ReservationRepo repository.SeatReservationRepository
	SaleRepo        repository.TicketSaleRepository
	TicketRepo      repository.TicketRepository
	AffiliateRepo   repository.AffiliateRepository
	AuthzAuditRepo  repository.AuthzAuditLogRepository

	// Services
	AuthzService            *authz.Service
	AuthzAuditService       *service.AuthzAuditService
	AuthService             *service.AuthService
	TicketService           *service.TicketService
	ReservationService      *service.ReservationService
	TicketSaleService       *service.TicketSaleService
	TicketValidationService *service.TicketValidationService
	AffiliateService        *service.AffiliateService
	AffiliatePayoutService  *service.AffiliatePayoutService
	CheckoutService         *service.CheckoutService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		SeatLocker:  cache.DefaultSeatLocker(),
		StripeClient: stripe.NewClient(stripe.Config{
			SecretKey:     cfg.Stripe.SecretKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			SuccessURL:    cfg.Stripe.SuccessURL,
			CancelURL:     cfg.Stripe.CancelURL,
			APIBaseURL:    cfg.Stripe.APIBaseURL,
			Currency:      cfg.Ticketing.Currency,
			Timeout:       time.Duration(cfg.Stripe.TimeoutSeconds) * time.Second,
		}),
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.TicketTypeRepo = repository.NewTicketTypeRepository(db)
	c.ReservationRepo = repository.NewSeatReservationRepository(db)
	c.SaleRepo = repository.NewTicketSaleRepository(db)
	c.TicketRepo = repository.NewTicketRepository(db)
	c.AffiliateRepo = repository.NewAffiliateRepository(db)
	c.AuthzAuditRepo = repository.NewAuthzAuditLogRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
	} else {
		if err := authzService.BootstrapBuiltinRoles(); err != nil {
			logger.Errorw("provider_bootstrap_roles_failed", "error", err)
		}
		c.AuthzService = authzService
		c.syncAdminRoles()
	}

	c.AuthzAuditService = service.NewAuthzAuditService(c.AuthzAuditRepo)
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.TicketService = service.NewTicketService(c.TicketTypeRepo, c.Config.Ticketing)
	c.ReservationService = service.NewReservationService(
		c.TicketTypeRepo,
		c.ReservationRepo,
		c.SeatLocker,
		c.QueueClient,
		c.Config.Ticketing,
	)
	c.TicketSaleService = service.NewTicketSaleService(c.TicketTypeRepo, c.SaleRepo, c.TicketRepo, c.AffiliateRepo)
	c.TicketValidationService = service.NewTicketValidationService(c.TicketRepo)
	c.AffiliateService = service.NewAffiliateService(c.AffiliateRepo, c.Config.Affiliate)
	c.AffiliatePayoutService = service.NewAffiliatePayoutService(
		c.AffiliateRepo,
		c.StripeClient,
		c.QueueClient,
		c.Config.Stripe.TransferEnabled,
		c.Config.Ticketing.Currency,
	)
	c.CheckoutService = service.NewCheckoutService(service.CheckoutServiceOptions{
		ReservationService: c.ReservationService,
		AffiliateService:   c.AffiliateService,
		TicketTypeRepo:     c.TicketTypeRepo,
		ReservationRepo:    c.ReservationRepo,
		SaleRepo:           c.SaleRepo,
		TicketRepo:         c.TicketRepo,
		AffiliateRepo:      c.AffiliateRepo,
		Provider:           c.StripeClient,
		Currency:           c.Config.Ticketing.Currency,
	})
}

// syncAdminRoles 将账号上的初始角色同步为 casbin 角色绑定
func (c *Container) syncAdminRoles() {
	admins, err := c.AdminRepo.List()
	if err != nil {
		logger.Warnw("provider_list_admins_failed", "error", err)
		return
	}
	for _, admin := range admins {
		if admin.IsSuper {
			continue
		}
		synced, err := c.AuthzService.SyncAdminRole(admin.ID, admin.Role)
		if err != nil {
			logger.Warnw("provider_sync_admin_role_failed", "admin_id", admin.ID, "role", admin.Role, "error", err)
			continue
		}
		if synced {
			logger.Infow("provider_admin_role_synced", "admin_id", admin.ID, "role", admin.Role)
		}
	}
}
