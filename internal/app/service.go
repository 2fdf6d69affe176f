package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"time"

	"go.uber.org/zap"
)

// Service 可独立启停的后台服务（HTTP、队列消费、保留回收）
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Runner 服务运行器，任一服务退出即整体停机
type Runner struct {
	services []Service
}

type serviceExit struct {
	name string
	err  error
}

// NewRunner 创建服务运行器
func NewRunner(services ...Service) *Runner {
	return &Runner{services: services}
}

// Names 返回已注册服务名称，按启动顺序
func (r *Runner) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.services))
	for _, svc := range r.services {
		if svc == nil {
			names = append(names, "unknown")
			continue
		}
		names = append(names, svc.Name())
	}
	return names
}

// RunWithOptions 运行服务并在收到系统信号时优雅停机
func RunWithOptions(runner *Runner, opts Options) error {
	if runner == nil {
		return errors.New("runner is nil")
	}
	opts = normalizeOptions(opts)
	ctx := context.Background()
	if len(opts.Signals) > 0 {
		var cancel context.CancelFunc
		ctx, cancel = signal.NotifyContext(ctx, opts.Signals...)
		defer cancel()
	}
	return runner.Run(ctx, opts.ShutdownTimeout, opts.Logger)
}

// Run 并发启动全部服务，ctx 取消或任一服务退出后按启动逆序停止
func (r *Runner) Run(ctx context.Context, stopTimeout time.Duration, log *zap.SugaredLogger) error {
	if r == nil || len(r.services) == 0 {
		return errors.New("no services to run")
	}
	for i, svc := range r.services {
		if svc == nil {
			return fmt.Errorf("service #%d is nil", i)
		}
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	exits := make(chan serviceExit, len(r.services))
	for _, svc := range r.services {
		go func(svc Service) {
			name := svc.Name()
			if log != nil {
				log.Infow("service_start", "service", name)
			}
			exits <- serviceExit{name: name, err: svc.Start(ctx)}
		}(svc)
	}

	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case exit := <-exits:
		runErr = exit.err
		if log != nil {
			log.Infow("service_exit", "service", exit.name, "error", exit.err)
		}
	}
	cancel()

	r.stopAll(stopTimeout, log)
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

func (r *Runner) stopAll(timeout time.Duration, log *zap.SugaredLogger) {
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), timeout)
	defer stopCancel()
	for i := len(r.services) - 1; i >= 0; i-- {
		svc := r.services[i]
		started := time.Now()
		if err := svc.Stop(stopCtx); err != nil {
			if log != nil {
				log.Errorw("service_stop_failed", "service", svc.Name(), "error", err)
			}
			continue
		}
		if log != nil {
			log.Infow("service_stopped", "service", svc.Name(), "elapsed_ms", time.Since(started).Milliseconds())
		}
	}
}
