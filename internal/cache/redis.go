package cache

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/courtline/internal/config"

	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "cl"
	pingTimeout      = 3 * time.Second
)

// shared 进程内共享的 Redis 连接，未启用或连接失败时 client 为 nil
var shared = struct {
	mu     sync.RWMutex
	client *redis.Client
	prefix string
}{prefix: defaultKeyPrefix}

// InitRedis 连接并探活 Redis；失败时保持未启用，座位锁随之退化为仅依赖数据库
func InitRedis(cfg *config.RedisConfig) error {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	client := redis.NewClient(redisOptions(cfg))
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("redis ping %s: %w", client.Options().Addr, err)
	}

	shared.mu.Lock()
	defer shared.mu.Unlock()
	shared.client = client
	if prefix := strings.TrimSpace(cfg.Prefix); prefix != "" {
		shared.prefix = prefix
	}
	return nil
}

func redisOptions(cfg *config.RedisConfig) *redis.Options {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	return &redis.Options{
		Addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// Enabled 判断缓存是否启用
func Enabled() bool {
	return Client() != nil
}

// Client 获取 Redis 客户端，未启用时返回 nil
func Client() *redis.Client {
	shared.mu.RLock()
	defer shared.mu.RUnlock()
	return shared.client
}

// Prefix 当前键前缀
func Prefix() string {
	shared.mu.RLock()
	defer shared.mu.RUnlock()
	return shared.prefix
}

// Close 关闭客户端
func Close() error {
	shared.mu.Lock()
	client := shared.client
	shared.client = nil
	shared.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Close()
}

func buildKey(prefix, key string) string {
	key = strings.TrimSpace(key)
	switch {
	case key == "":
		return prefix
	case prefix == "":
		return key
	}
	return prefix + ":" + key
}
