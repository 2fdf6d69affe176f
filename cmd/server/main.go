package main

import (
	"flag"
	"os"
	"syscall"

	"github.com/courtline/internal/app"
	"github.com/courtline/internal/config"
	"github.com/courtline/internal/logger"
	"github.com/courtline/internal/models"
	"github.com/courtline/internal/repository"
	"github.com/courtline/internal/service"

	"github.com/gin-gonic/gin"
)

func main() {
	rawMode := flag.String("mode", app.ModeAll, "run mode: all, api or worker")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	log := logger.Named("bootstrap")
	defer func() { _ = logger.Z().Sync() }()

	mode, err := app.ParseMode(*rawMode)
	if err != nil {
		log.Fatalw("invalid_run_mode", "error", err)
	}

	release := cfg.Server.Mode == "release"
	if cfg.JWT.IsWeakSecret() {
		if release {
			log.Fatalw("jwt_secret_too_weak", "hint", "set jwt.secret to a random value of at least 32 bytes")
		}
		log.Warnw("jwt_secret_too_weak", "mode", cfg.Server.Mode)
	}
	if release {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := app.InitDatabase(cfg); err != nil {
		log.Fatalw("database_init_failed", "driver", cfg.Database.Driver, "error", err)
	}

	adminUser := os.Getenv("CL_DEFAULT_ADMIN_USERNAME")
	adminPass := os.Getenv("CL_DEFAULT_ADMIN_PASSWORD")
	if adminPass == "" && release {
		log.Warnw("default_admin_skipped", "reason", "CL_DEFAULT_ADMIN_PASSWORD is empty")
	} else {
		adminRepo := repository.NewAdminRepository(models.DB)
		created, err := app.EnsureDefaultAdmin(adminRepo, service.NewAuthService(cfg, adminRepo), adminUser, adminPass)
		switch {
		case err != nil:
			log.Warnw("default_admin_init_failed", "error", err)
		case created:
			log.Warnw("default_admin_created", "username", adminUser)
		}
	}

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		log.Fatalw("app_exit", "error", err)
	}
}
