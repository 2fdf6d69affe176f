package router

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/courtline/internal/authz"
	"github.com/courtline/internal/config"
	"github.com/courtline/internal/http/handlers/shared"
	"github.com/courtline/internal/http/response"
	"github.com/courtline/internal/logger"
	"github.com/courtline/internal/metrics"
	"github.com/courtline/internal/repository"
	"github.com/courtline/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	requestIDKey           = "request_id"
	requestIDHeader        = "X-Request-ID"
	requestIDMaxLength     = 64
	adminIsSuperContextKey = "admin_is_super"
)

var defaultCORSHeaders = []string{
	"Content-Type",
	"Authorization",
	"Cache-Control",
	"X-Requested-With",
	requestIDHeader,
	"Stripe-Signature",
}

// CORSMiddleware 跨域中间件，预检请求直接返回 204
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	methods := cfg.AllowedMethods
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	}
	headers := cfg.AllowedHeaders
	if len(headers) == 0 {
		headers = defaultCORSHeaders
	}
	allowMethods := strings.Join(methods, ", ")
	allowHeaders := strings.Join(headers, ", ")
	maxAge := ""
	if cfg.MaxAge > 0 {
		maxAge = strconv.Itoa(cfg.MaxAge)
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		if origin := resolveAllowedOrigin(c.GetHeader("Origin"), origins, cfg.AllowCredentials); origin != "" {
			h.Set("Access-Control-Allow-Origin", origin)
			if origin != "*" {
				h.Add("Vary", "Origin")
			}
		}
		if cfg.AllowCredentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		h.Set("Access-Control-Allow-Methods", allowMethods)
		h.Set("Access-Control-Allow-Headers", allowHeaders)
		h.Set("Access-Control-Expose-Headers", requestIDHeader)
		if maxAge != "" {
			h.Set("Access-Control-Max-Age", maxAge)
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// resolveAllowedOrigin 计算回写的 Allow-Origin；携带凭证时通配符回显请求来源
func resolveAllowedOrigin(origin string, allowed []string, allowCredentials bool) string {
	for _, item := range allowed {
		if item != "*" {
			continue
		}
		if allowCredentials && origin != "" {
			return origin
		}
		return "*"
	}
	if origin == "" {
		return ""
	}
	for _, item := range allowed {
		if strings.EqualFold(item, origin) {
			return origin
		}
	}
	return ""
}

// RequestIDMiddleware 透传或生成请求 ID，非法的外部 ID 会被替换
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := sanitizeRequestID(c.GetHeader(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// sanitizeRequestID 只接受字母数字与 -_.: 组成且不超长的 ID
func sanitizeRequestID(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > requestIDMaxLength {
		return ""
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.', r == ':':
		default:
			return ""
		}
	}
	return id
}

// LoggerMiddleware 访问日志，5xx 记 error，4xx 记 warn；skipPaths 中的路径不记录
func LoggerMiddleware(log *zap.Logger, skipPaths ...string) gin.HandlerFunc {
	if log == nil {
		log = zap.L()
	}
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		if p = strings.TrimSpace(p); p != "" {
			skip[p] = struct{}{}
		}
	}
	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", getRequestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
			zap.String("client_ip", c.ClientIP()),
		}
		if adminID := c.GetUint("admin_id"); adminID > 0 {
			fields = append(fields, zap.Uint("admin_id", adminID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if ce := log.Check(accessLogLevel(status, len(c.Errors) > 0), "http_request"); ce != nil {
			ce.Write(fields...)
		}
	}
}

func accessLogLevel(status int, hasErrors bool) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError || hasErrors:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

func getRequestID(c *gin.Context) string {
	if id, ok := c.Get(requestIDKey); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

// MetricsMiddleware 按路由模板记录请求耗时
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metrics.ObserveHTTP(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

// JWTAuthMiddleware 校验 Bearer Token，并确认账号存在且 Token 未被吊销
func JWTAuthMiddleware(secretKey string, adminRepo repository.AdminRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secretKey == "" || adminRepo == nil {
			logger.Errorw("admin_auth_misconfigured", "secret_set", secretKey != "", "repo_set", adminRepo != nil)
			abortUnauthorized(c, "jwt secret is not configured")
			return
		}
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "authorization header is required")
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			abortUnauthorized(c, "authorization header format must be Bearer {token}")
			return
		}

		claims, err := service.ParseAdminToken(secretKey, strings.TrimSpace(raw))
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}
		admin, err := adminRepo.GetByID(claims.AdminID)
		if err != nil {
			shared.RequestLog(c).Errorw("admin_auth_lookup_failed", "admin_id", claims.AdminID, "error", err)
		}
		if admin == nil {
			abortUnauthorized(c, "invalid token")
			return
		}
		if claims.TokenVersion != admin.TokenVersion || !isIssuedAfterInvalidBefore(claims.IssuedAt, admin.TokenInvalidBefore) {
			abortUnauthorized(c, "token revoked")
			return
		}

		c.Set("admin_id", admin.ID)
		c.Set("username", admin.Username)
		c.Set(adminIsSuperContextKey, admin.IsSuper)
		c.Next()
	}
}

// AdminRBACMiddleware 管理端 RBAC 鉴权中间件，超级管理员跳过校验
func AdminRBACMiddleware(authzService *authz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authzService == nil {
			logger.Errorw("admin_rbac_service_unavailable")
			abortUnauthorized(c, "unauthorized")
			return
		}

		if c.GetBool(adminIsSuperContextKey) {
			c.Next()
			return
		}

		adminID := c.GetUint("admin_id")
		if adminID == 0 {
			abortUnauthorized(c, "unauthorized")
			return
		}

		resource := c.FullPath()
		if strings.TrimSpace(resource) == "" {
			resource = c.Request.URL.Path
		}

		allowed, err := authzService.EnforceAdmin(adminID, resource, c.Request.Method)
		if err != nil {
			logger.Errorw("admin_rbac_enforce_failed",
				"admin_id", adminID,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", err,
			)
			abortUnauthorized(c, "unauthorized")
			return
		}
		if !allowed {
			logger.Warnw("admin_rbac_permission_denied",
				"admin_id", adminID,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"resource", authz.NormalizeObject(resource),
			)
			response.Forbidden(c, "forbidden")
			c.Abort()
			return
		}

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	response.Unauthorized(c, msg)
	c.Abort()
}

func isIssuedAfterInvalidBefore(issuedAt *jwt.NumericDate, invalidBefore *time.Time) bool {
	if invalidBefore == nil {
		return true
	}
	if issuedAt == nil {
		return false
	}
	return issuedAt.Time.Unix() >= invalidBefore.Unix()
}
