package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/courtline/internal/logger"

	"github.com/glebarez/sqlite" // 纯 Go SQLite 驱动（基于 modernc.org/sqlite）
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB 进程内数据库句柄，仅在启动阶段注入到 provider.Container
var DB *gorm.DB

// DBOptions 连接参数，零值表示使用驱动默认
type DBOptions struct {
	Driver          string // sqlite / postgres
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	SlowThreshold   time.Duration
}

// OpenDB 打开数据库连接，SQL 告警经 zap 输出，不修改全局句柄
func OpenDB(opts DBOptions) (*gorm.DB, error) {
	dialector, err := dialectorFor(opts.Driver, opts.DSN)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: newGormLogger(opts.SlowThreshold)})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Driver, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if opts.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
	return db, nil
}

// InitDB 打开连接并设为全局句柄
func InitDB(opts DBOptions) error {
	db, err := OpenDB(opts)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		if err := ensureSQLiteDir(dsn); err != nil {
			return nil, err
		}
		return sqlite.Open(dsn), nil
	case "postgres", "postgresql":
		if strings.TrimSpace(dsn) == "" {
			return nil, errors.New("postgres dsn is empty")
		}
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// ensureSQLiteDir 为文件型 SQLite 创建所在目录，内存库跳过
func ensureSQLiteDir(dsn string) error {
	path, _, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	if path == "" || path == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func newGormLogger(slow time.Duration) gormlogger.Interface {
	if slow <= 0 {
		slow = 200 * time.Millisecond
	}
	out, err := zap.NewStdLogAt(logger.Z().With(zap.String("component", "gorm")), zapcore.WarnLevel)
	if err != nil {
		return gormlogger.Default.LogMode(gormlogger.Warn)
	}
	return gormlogger.New(out, gormlogger.Config{
		SlowThreshold:             slow,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// AllModels 返回需要迁移的全部模型
func AllModels() []interface{} {
	return []interface{}{
		&Admin{},
		&TicketType{},
		&SeatReservation{},
		&TicketSale{},
		&Ticket{},
		&AffiliateApplication{},
		&Affiliate{},
		&AffiliatePayout{},
		&AuthzAuditLog{},
	}
}

// MigrateDB 对指定连接执行迁移
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	return db.AutoMigrate(AllModels()...)
}
