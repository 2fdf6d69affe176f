package app

import (
	"errors"
	"strings"
	"time"

	"github.com/courtline/internal/config"
	"github.com/courtline/internal/models"
	"github.com/courtline/internal/repository"
	"github.com/courtline/internal/service"
)

const defaultAdminUsername = "admin"

// InitDatabase 按配置打开全局连接并迁移表结构
func InitDatabase(cfg *config.Config) error {
	db := cfg.Database
	seconds := func(n int) time.Duration { return time.Duration(n) * time.Second }
	if err := models.InitDB(models.DBOptions{
		Driver:          db.Driver,
		DSN:             db.DSN,
		MaxOpenConns:    db.Pool.MaxOpenConns,
		MaxIdleConns:    db.Pool.MaxIdleConns,
		ConnMaxLifetime: seconds(db.Pool.ConnMaxLifetimeSeconds),
		ConnMaxIdleTime: seconds(db.Pool.ConnMaxIdleTimeSeconds),
		SlowThreshold:   time.Duration(db.SlowQueryMS) * time.Millisecond,
	}); err != nil {
		return err
	}
	return models.MigrateDB(models.DB)
}

// EnsureDefaultAdmin 库中没有任何管理员时创建超级管理员，返回是否创建
func EnsureDefaultAdmin(adminRepo repository.AdminRepository, auth *service.AuthService, username, password string) (bool, error) {
	existing, err := adminRepo.List()
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}
	if password == "" {
		return false, errors.New("default admin password is empty")
	}
	if username = strings.TrimSpace(username); username == "" {
		username = defaultAdminUsername
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}
	if err := adminRepo.Create(&models.Admin{Username: username, PasswordHash: hash, IsSuper: true}); err != nil {
		return false, err
	}
	return true, nil
}
