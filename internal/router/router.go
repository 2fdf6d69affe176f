package router

import (
	"net/http"
	"strings"

	"github.com/courtline/internal/cache"
	"github.com/courtline/internal/config"
	adminhandlers "github.com/courtline/internal/http/handlers/admin"
	publichandlers "github.com/courtline/internal/http/handlers/public"
	"github.com/courtline/internal/http/response"
	"github.com/courtline/internal/logger"
	"github.com/courtline/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "cl"
	}
	var limiter redis.Cmdable
	if client := cache.Client(); client != nil {
		limiter = client
	}
	security := cfg.Security
	loginLimit := rateLimitRule(redisPrefix, "admin_login", security.LoginRateLimit, "too many login attempts")
	purchaseLimit := rateLimitRule(redisPrefix, "purchase", security.PurchaseRateLimit, "too many purchase attempts")
	applicationLimit := rateLimitRule(redisPrefix, "affiliate_application", security.PurchaseRateLimit, "too many applications")

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log, "/health", cfg.Metrics.Path))
	if cfg.Metrics.Enabled {
		r.Use(MetricsMiddleware())
	}
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/events/:event_id/ticket-types", publicHandler.ListEventTicketTypes)
			public.GET("/ticket-types/:id", publicHandler.GetTicketType)
			public.POST("/ticket-types/:id/purchase", RateLimitMiddleware(limiter, purchaseLimit, KeyByIP), publicHandler.PurchaseTickets)
			public.GET("/affiliates/referral/:code", publicHandler.GetReferral)
			public.POST("/affiliate-applications", RateLimitMiddleware(limiter, applicationLimit, KeyByIPAndJSONField("email")), publicHandler.SubmitAffiliateApplication)
			public.POST("/payments/stripe/webhook", publicHandler.StripeWebhook)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", RateLimitMiddleware(limiter, loginLimit, KeyByIPAndJSONField("username")), adminHandler.AdminLogin)

			// 需要鉴权的接口
			authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo), AdminRBACMiddleware(c.AuthzService))
			{
				authorized.GET("/me", adminHandler.GetAdminMe)

				// 票种与库存
				authorized.POST("/events/:event_id/ticket-types", adminHandler.CreateTicketType)
				authorized.GET("/events/:event_id/ticket-types", adminHandler.ListTicketTypes)
				authorized.PUT("/ticket-types/:id/status", adminHandler.UpdateTicketTypeStatus)
				authorized.POST("/ticket-types/:id/inventory", adminHandler.UpdateTicketInventory)

				// 座位保留
				authorized.GET("/reservations", adminHandler.ListReservations)
				authorized.POST("/reservations/:no/cancel", adminHandler.CancelReservation)
				authorized.POST("/reservations/expire", adminHandler.ExpireReservations)

				// 售票与检票
				authorized.GET("/ticket-sales", adminHandler.ListTicketSales)
				authorized.GET("/ticket-sales/stats", adminHandler.GetTicketSalesStats)
				authorized.GET("/ticket-sales/:id", adminHandler.GetTicketSale)
				authorized.POST("/ticket-sales", adminHandler.CreateBoxOfficeSale)
				authorized.POST("/ticket-sales/:id/refund", adminHandler.RefundTicketSale)
				authorized.POST("/tickets/:id/validate", adminHandler.ValidateTicket)

				// 推广
				authorized.GET("/affiliate-applications", adminHandler.ListAffiliateApplications)
				authorized.POST("/affiliate-applications/:id/approve", adminHandler.ApproveAffiliateApplication)
				authorized.POST("/affiliate-applications/:id/reject", adminHandler.RejectAffiliateApplication)
				authorized.GET("/affiliates", adminHandler.ListAffiliates)
				authorized.GET("/affiliates/:id", adminHandler.GetAffiliate)
				authorized.PUT("/affiliates/:id/commission-rate", adminHandler.UpdateAffiliateCommissionRate)
				authorized.PUT("/affiliates/:id/status", adminHandler.UpdateAffiliateStatus)
				authorized.PUT("/affiliates/:id/payout-account", adminHandler.UpdateAffiliatePayoutAccount)
				authorized.POST("/affiliate-payouts/process", adminHandler.ProcessAffiliatePayouts)
				authorized.GET("/affiliate-payouts", adminHandler.ListAffiliatePayouts)
				authorized.GET("/affiliate-payouts/:id", adminHandler.GetAffiliatePayout)
				authorized.POST("/affiliate-payouts/:id/execute", adminHandler.ExecuteAffiliatePayout)

				// 权限管理
				authorized.GET("/authz/roles", adminHandler.ListAuthzRoles)
				authorized.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
				authorized.GET("/authz/admins", adminHandler.ListAuthzAdmins)
				authorized.POST("/authz/admins", adminHandler.CreateAuthzAdmin)
				authorized.GET("/authz/admins/:id/roles", adminHandler.GetAuthzAdminRoles)
				authorized.PUT("/authz/admins/:id/roles", adminHandler.SetAuthzAdminRoles)
				authorized.POST("/authz/admins/:id/revoke-tokens", adminHandler.RevokeAuthzAdminTokens)
				authorized.GET("/authz/audit-logs", adminHandler.ListAuthzAuditLogs)
				authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, permissionCatalog(r.Routes()))
				})
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics.Enabled {
		metricsPath := strings.TrimSpace(cfg.Metrics.Path)
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		r.GET(metricsPath, gin.WrapH(promhttp.Handler()))
	}

	return r
}

func rateLimitRule(prefix, name string, cfg config.RateLimitConfig, message string) RateLimitRule {
	return RateLimitRule{
		Prefix:        prefix + ":rate:" + name,
		WindowSeconds: cfg.WindowSeconds,
		MaxRequests:   cfg.MaxAttempts,
		BlockSeconds:  cfg.BlockSeconds,
		Message:       message,
	}
}
