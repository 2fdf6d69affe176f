package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/courtline/internal/http/handlers/shared"
	"github.com/courtline/internal/http/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 从请求中提取限流维度
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 固定窗口限流规则；BlockSeconds > 0 时超限后整段封禁
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	BlockSeconds  int
	Message       string
}

func (r RateLimitRule) enabled() bool {
	return r.WindowSeconds > 0 && r.MaxRequests > 0
}

func (r RateLimitRule) key(subject string) string {
	if r.Prefix == "" {
		return subject
	}
	return r.Prefix + ":" + subject
}

// KEYS[1] 计数 key，KEYS[2] 封禁 key；ARGV 为 window、block、max
// 返回 {count, ttl}，count 为 -1 表示仍在封禁期
var rateLimitScript = redis.NewScript(`
local blocked = redis.call("TTL", KEYS[2])
if blocked > 0 then
	return {-1, blocked}
end
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local block = tonumber(ARGV[2])
if block > 0 and current > tonumber(ARGV[3]) then
	redis.call("SET", KEYS[2], "1", "EX", block)
	return {current, block}
end
return {current, redis.call("TTL", KEYS[1])}
`)

// RateLimitMiddleware 基于 Redis 的限流；client 为 nil 或规则未配置时直接放行
func RateLimitMiddleware(client redis.Cmdable, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	msg := strings.TrimSpace(rule.Message)
	if msg == "" {
		msg = "too many requests"
	}
	return func(c *gin.Context) {
		if client == nil || !rule.enabled() {
			c.Next()
			return
		}
		subject := ""
		if keyFunc != nil {
			subject = strings.TrimSpace(keyFunc(c))
		}
		if subject == "" {
			subject = c.ClientIP()
		}
		key := rule.key(subject)

		res, err := rateLimitScript.Run(c.Request.Context(), client,
			[]string{key, key + ":blocked"},
			rule.WindowSeconds, rule.BlockSeconds, rule.MaxRequests,
		).Int64Slice()
		if err == nil && len(res) < 2 {
			err = fmt.Errorf("unexpected script reply %v", res)
		}
		if err != nil {
			shared.RequestLog(c).Errorw("rate_limit_eval_failed", "key", key, "error", err)
			response.Error(c, response.CodeInternal, "rate limit unavailable")
			c.Abort()
			return
		}

		count, ttl := res[0], res[1]
		if count >= 0 && count <= int64(rule.MaxRequests) {
			c.Next()
			return
		}
		wait := retryAfterSeconds(ttl, rule.WindowSeconds)
		shared.RequestLog(c).Warnw("rate_limit_rejected", "key", key, "count", count, "retry_after", wait)
		c.Header("Retry-After", strconv.Itoa(wait))
		response.Error(c, response.CodeTooManyRequests, fmt.Sprintf("%s, retry after %d seconds", msg, wait))
		c.Abort()
	}
}

// retryAfterSeconds 优先使用 Redis 剩余 TTL，不可用时退回窗口长度，最少 1 秒
func retryAfterSeconds(ttl int64, window int) int {
	if ttl > 0 {
		return int(ttl)
	}
	if window > 0 {
		return window
	}
	return 1
}

// KeyByIP 按客户端 IP 限流
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByIPAndJSONField 按 JSON 字段（小写）与 IP 组合限流，字段缺失时仅按 IP
func KeyByIPAndJSONField(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.ToLower(peekJSONString(c, field))
		if value == "" {
			return c.ClientIP()
		}
		return value + "|" + c.ClientIP()
	}
}

// peekJSONString 读取请求体中的字符串字段，读取后回填请求体供后续绑定
func peekJSONString(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	raw, err := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload map[string]json.RawMessage
	if json.Unmarshal(raw, &payload) != nil {
		return ""
	}
	var value string
	if json.Unmarshal(payload[field], &value) != nil {
		return ""
	}
	return strings.TrimSpace(value)
}
