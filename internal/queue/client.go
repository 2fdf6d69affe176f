package queue

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/courtline/internal/config"
	"github.com/courtline/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault
	// CriticalQueue 资金相关任务队列
	CriticalQueue = constants.QueueCritical

	defaultRedisHost       = "127.0.0.1"
	defaultRedisPort       = 6379
	defaultConcurrency     = 10
	payoutTransferMaxRetry = 5
)

// enqueuer asynq.Client 的最小子集
type enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client 投递延迟释放与佣金转账任务；未启用时所有投递为空操作
type Client struct {
	inner enqueuer
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{}, nil
	}
	return &Client{inner: asynq.NewClient(redisOpt(cfg))}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.inner != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.inner.Close()
}

// EnqueueReservationExpire 按保留有效期延迟投递释放任务，同一保留只投递一次
func (c *Client) EnqueueReservationExpire(payload ReservationExpirePayload, delay time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewReservationExpireTask(payload)
	if err != nil {
		return err
	}
	return c.enqueueOnce(task, taskID("reservation_expire", strings.TrimSpace(payload.ReservationNo)),
		asynq.Queue(DefaultQueue),
		asynq.ProcessIn(max(delay, 0)),
	)
}

// EnqueueAffiliatePayoutTransfer 投递佣金转账任务
func (c *Client) EnqueueAffiliatePayoutTransfer(payload AffiliatePayoutTransferPayload) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewAffiliatePayoutTransferTask(payload)
	if err != nil {
		return err
	}
	return c.enqueueOnce(task, taskID("payout_transfer", strconv.FormatUint(uint64(payload.PayoutID), 10)),
		asynq.Queue(CriticalQueue),
		asynq.MaxRetry(payoutTransferMaxRetry),
	)
}

// enqueueOnce 以固定任务ID投递，重复投递视为成功
func (c *Client) enqueueOnce(task *asynq.Task, id string, opts ...asynq.Option) error {
	opts = append(opts, asynq.TaskID(id))
	if _, err := c.inner.Enqueue(task, opts...); err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return err
	}
	return nil
}

func taskID(kind, key string) string {
	return kind + ":" + key
}

// BuildServerConfig 生成消费端连接与并发配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	serverCfg := asynq.Config{
		Concurrency: defaultConcurrency,
		Queues:      map[string]int{DefaultQueue: 1, CriticalQueue: 1},
	}
	if cfg != nil {
		if cfg.Concurrency > 0 {
			serverCfg.Concurrency = cfg.Concurrency
		}
		if len(cfg.Queues) > 0 {
			serverCfg.Queues = cfg.Queues
		}
	}
	return redisOpt(cfg), serverCfg
}

func redisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	if cfg == nil {
		return asynq.RedisClientOpt{Addr: net.JoinHostPort(defaultRedisHost, strconv.Itoa(defaultRedisPort))}
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = defaultRedisHost
	}
	port := cfg.Port
	if port <= 0 {
		port = defaultRedisPort
	}
	return asynq.RedisClientOpt{
		Addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}
