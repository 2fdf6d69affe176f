package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseSeatScript 仅删除仍由 holder 持有的座位锁
const releaseSeatScript = `
local released = 0
for i, key in ipairs(KEYS) do
  if redis.call("GET", key) == ARGV[1] then
    redis.call("DEL", key)
    released = released + 1
  end
end
return released
`

// SeatLocker 基于 SET NX 的座位短锁，用于结账并发时快速失败
type SeatLocker struct {
	client redis.Cmdable
	prefix string
}

// NewSeatLocker 创建座位锁
func NewSeatLocker(client redis.Cmdable, prefix string) *SeatLocker {
	if client == nil {
		return nil
	}
	return &SeatLocker{client: client, prefix: prefix}
}

// DefaultSeatLocker 使用全局 Redis 客户端，未启用时返回 nil
func DefaultSeatLocker() *SeatLocker {
	client := Client()
	if client == nil {
		return nil
	}
	return NewSeatLocker(client, Prefix())
}

// SeatKey 座位锁键
func (l *SeatLocker) SeatKey(ticketTypeID uint, seat string) string {
	return buildKey(l.prefix, fmt.Sprintf("seat_lock:%d:%s", ticketTypeID, seat))
}

// Acquire 逐个加锁，任一座位被占用时回滚已获取的锁并返回 false
func (l *SeatLocker) Acquire(ctx context.Context, ticketTypeID uint, seats []string, holder string, ttl time.Duration) (bool, error) {
	if l == nil || len(seats) == 0 {
		return true, nil
	}
	acquired := make([]string, 0, len(seats))
	for _, key := range seatKeys(l, ticketTypeID, seats) {
		ok, err := l.client.SetNX(ctx, key, holder, ttl).Result()
		if err != nil || !ok {
			if len(acquired) > 0 {
				_ = l.releaseKeys(ctx, acquired, holder)
			}
			return false, err
		}
		acquired = append(acquired, key)
	}
	return true, nil
}

// Release 释放 holder 持有的座位锁
func (l *SeatLocker) Release(ctx context.Context, ticketTypeID uint, seats []string, holder string) error {
	if l == nil || len(seats) == 0 {
		return nil
	}
	return l.releaseKeys(ctx, seatKeys(l, ticketTypeID, seats), holder)
}

func (l *SeatLocker) releaseKeys(ctx context.Context, keys []string, holder string) error {
	return l.client.Eval(ctx, releaseSeatScript, keys, holder).Err()
}

func seatKeys(l *SeatLocker, ticketTypeID uint, seats []string) []string {
	keys := make([]string, 0, len(seats))
	for _, seat := range seats {
		keys = append(keys, l.SeatKey(ticketTypeID, seat))
	}
	return keys
}
