package app

import (
	"errors"
	"fmt"
	"net"

	"github.com/courtline/internal/config"
	"github.com/courtline/internal/provider"
	"github.com/courtline/internal/router"
	"github.com/courtline/internal/worker"
)

// BuildRunner 初始化依赖容器并按模式组装服务
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	return buildServices(cfg, provider.NewContainer(cfg), mode)
}

func buildServices(cfg *config.Config, c *provider.Container, mode string) (*Runner, error) {
	var (
		withAPI    = mode == ModeAll || mode == ModeAPI
		withWorker = mode == ModeAll || mode == ModeWorker
		services   []Service
	)
	if !withAPI && !withWorker {
		return nil, fmt.Errorf("unknown mode %q", mode)
	}

	if withAPI {
		addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
		services = append(services, NewHTTPService(addr, router.SetupRouter(cfg, c)))
	}
	if withWorker {
		if cfg.Queue.Enabled {
			consumer, err := worker.NewService(&cfg.Queue, worker.NewConsumer(c))
			if err != nil {
				return nil, err
			}
			services = append(services, consumer)
		}
		// 队列未启用或丢失任务时，由定时扫描回收过期保留
		sweeper, err := worker.NewSweepService(cfg.Ticketing, c.ReservationService)
		if err != nil {
			return nil, err
		}
		services = append(services, sweeper)
	}
	return NewRunner(services...), nil
}

// Run 组装服务并阻塞运行直到收到退出信号
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}
	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}
	opts.Logger.Infow("app_start", "mode", opts.Mode, "services", runner.Names())
	return RunWithOptions(runner, opts)
}
