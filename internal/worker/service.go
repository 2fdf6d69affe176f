package worker

import (
	"context"
	"errors"
	"time"

	"github.com/courtline/internal/config"
	"github.com/courtline/internal/logger"
	"github.com/courtline/internal/queue"

	"github.com/hibiken/asynq"
)

// Service asynq 消费服务，处理延迟释放与佣金转账任务
type Service struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	switch {
	case cfg == nil || !cfg.Enabled:
		return nil, errors.New("queue disabled")
	case consumer == nil:
		return nil, errors.New("consumer is nil")
	}
	redisOpt, serverCfg := queue.BuildServerConfig(cfg)
	serverCfg.Logger = logger.Named("asynq")
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{server: asynq.NewServer(redisOpt, serverCfg), mux: mux}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	return "worker"
}

// Start 启动消费者后阻塞到 ctx 取消；信号由 Runner 统一处理
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("worker not initialized")
	}
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// Stop 等待进行中的任务结束后停止
func (s *Service) Stop(context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	s.server.Shutdown()
	return nil
}

// SweepService 周期回收到期保留，队列未启用时同样运行
type SweepService struct {
	expirer   ReservationExpirer
	interval  time.Duration
	batchSize int
	done      chan struct{}
}

// NewSweepService 创建保留回收服务
func NewSweepService(cfg config.TicketingConfig, expirer ReservationExpirer) (*SweepService, error) {
	if expirer == nil {
		return nil, errors.New("reservation expirer is nil")
	}
	return &SweepService{
		expirer:   expirer,
		interval:  cfg.SweepInterval(),
		batchSize: cfg.SweepBatchSize,
		done:      make(chan struct{}),
	}, nil
}

// Name 服务名称
func (s *SweepService) Name() string {
	return "reservation_sweeper"
}

// Start 立即执行一次，之后按间隔执行，直到 ctx 取消或 Stop
func (s *SweepService) Start(ctx context.Context) error {
	if s == nil || s.expirer == nil {
		return errors.New("sweeper not initialized")
	}
	s.sweepOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

// Stop 停止服务
func (s *SweepService) Stop(ctx context.Context) error {
	if s == nil || s.done == nil {
		return nil
	}
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return nil
}

func (s *SweepService) sweepOnce(ctx context.Context) {
	released, err := s.expirer.ExpireDueReservations(ctx, time.Now(), s.batchSize)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warnw("worker_reservation_sweep_failed", "released", released, "error", err)
	}
}
