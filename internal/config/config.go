package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/courtline/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Queue     QueueConfig     `mapstructure:"queue"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Security  SecurityConfig  `mapstructure:"security"`
	Ticketing TicketingConfig `mapstructure:"ticketing"`
	Affiliate AffiliateConfig `mapstructure:"affiliate"`
	Stripe    StripeConfig    `mapstructure:"stripe"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
	Level      string `mapstructure:"level"`  // debug / info / warn / error
	Stdout     bool   `mapstructure:"stdout"` // release 模式下同时输出到标准输出
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
		Level:      c.Level,
		Stdout:     c.Stdout,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // sqlite / postgres
	DSN    string             `mapstructure:"dsn"`
	Pool   DatabasePoolConfig `mapstructure:"pool"`
	// SlowQueryMS 超过该耗时的 SQL 以 warn 记录
	SlowQueryMS int `mapstructure:"slow_query_ms"`
}

// JWTConfig 管理端 JWT 配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

var placeholderSecrets = []string{"change-me", "change-in-production", "your-secret-key", "secret"}

// IsWeakSecret 密钥短于 32 字节或包含占位文本
func (c JWTConfig) IsWeakSecret() bool {
	if len(c.SecretKey) < 32 {
		return true
	}
	lower := strings.ToLower(c.SecretKey)
	for _, p := range placeholderSecrets {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	LoginRateLimit    RateLimitConfig      `mapstructure:"login_rate_limit"`
	PurchaseRateLimit RateLimitConfig      `mapstructure:"purchase_rate_limit"`
	PasswordPolicy    PasswordPolicyConfig `mapstructure:"password_policy"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxAttempts   int `mapstructure:"max_attempts"`
	BlockSeconds  int `mapstructure:"block_seconds"`
}

// PasswordPolicyConfig 管理员密码策略
type PasswordPolicyConfig struct {
	MinLength      int  `mapstructure:"min_length"`
	RequireUpper   bool `mapstructure:"require_upper"`
	RequireLower   bool `mapstructure:"require_lower"`
	RequireNumber  bool `mapstructure:"require_number"`
	RequireSpecial bool `mapstructure:"require_special"`
}

// TicketingConfig 票务配置
type TicketingConfig struct {
	ReservationTTLMinutes int    `mapstructure:"reservation_ttl_minutes"`
	SweepIntervalSeconds  int    `mapstructure:"sweep_interval_seconds"`
	SweepBatchSize        int    `mapstructure:"sweep_batch_size"`
	DefaultMaxPerOrder    int    `mapstructure:"default_max_per_order"`
	Currency              string `mapstructure:"currency"`
}

// ReservationTTL 座位保留时长
func (c TicketingConfig) ReservationTTL() time.Duration {
	if c.ReservationTTLMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.ReservationTTLMinutes) * time.Minute
}

// SweepInterval 过期保留扫描间隔
func (c TicketingConfig) SweepInterval() time.Duration {
	if c.SweepIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// AffiliateConfig 推广配置
type AffiliateConfig struct {
	DefaultCommissionRate float64 `mapstructure:"default_commission_rate"`
	CodeLength            int     `mapstructure:"code_length"`
}

// StripeConfig Stripe 收银台与分账配置
type StripeConfig struct {
	SecretKey       string `mapstructure:"secret_key"`
	WebhookSecret   string `mapstructure:"webhook_secret"`
	APIBaseURL      string `mapstructure:"api_base_url"`
	SuccessURL      string `mapstructure:"success_url"`
	CancelURL       string `mapstructure:"cancel_url"`
	TransferEnabled bool   `mapstructure:"transfer_enabled"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load 从 config.yml 加载配置
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./")
	viper.AddConfigPath("../")
	viper.AddConfigPath("./etc")

	setDefaults(viper.GetViper())

	// 环境变量支持，server.port -> SERVER_PORT
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}

	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "app.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("log.level", "")
	v.SetDefault("log.stdout", false)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/courtline.db")
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	v.SetDefault("database.slow_query_ms", 200)
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "cl")
	v.SetDefault("queue.enabled", true)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.queues", map[string]int{
		"default":  10,
		"critical": 5,
	})
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
		"X-Request-ID",
		"Stripe-Signature",
	})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("security.login_rate_limit.window_seconds", 300)
	v.SetDefault("security.login_rate_limit.max_attempts", 5)
	v.SetDefault("security.login_rate_limit.block_seconds", 900)
	v.SetDefault("security.purchase_rate_limit.window_seconds", 60)
	v.SetDefault("security.purchase_rate_limit.max_attempts", 20)
	v.SetDefault("security.purchase_rate_limit.block_seconds", 120)
	v.SetDefault("security.password_policy.min_length", 10)
	v.SetDefault("security.password_policy.require_upper", true)
	v.SetDefault("security.password_policy.require_lower", true)
	v.SetDefault("security.password_policy.require_number", true)
	v.SetDefault("security.password_policy.require_special", false)
	v.SetDefault("ticketing.reservation_ttl_minutes", 15)
	v.SetDefault("ticketing.sweep_interval_seconds", 60)
	v.SetDefault("ticketing.sweep_batch_size", 100)
	v.SetDefault("ticketing.default_max_per_order", 10)
	v.SetDefault("ticketing.currency", "usd")
	v.SetDefault("affiliate.default_commission_rate", 0.15)
	v.SetDefault("affiliate.code_length", 8)
	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.webhook_secret", "")
	v.SetDefault("stripe.api_base_url", "https://api.stripe.com")
	v.SetDefault("stripe.success_url", "")
	v.SetDefault("stripe.cancel_url", "")
	v.SetDefault("stripe.transfer_enabled", false)
	v.SetDefault("stripe.timeout_seconds", 15)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}
