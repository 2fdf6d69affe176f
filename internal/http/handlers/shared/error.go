package shared

import (
	"errors"

	"github.com/courtline/internal/http/response"
	"github.com/courtline/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 返回带 request_id 与路由信息的日志实例
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	id := c.GetString("request_id")
	if id == "" {
		return logger.S()
	}
	return logger.SW("request_id", id, "route", c.FullPath())
}

// RespondError 输出业务错误；err 非空时记录原始错误，响应中只返回 msg
func RespondError(c *gin.Context, code int, msg string, err error) {
	if err != nil {
		RequestLog(c).Errorw("handler_error", "code", code, "message", msg, "error", err)
	}
	response.Error(c, code, msg)
}

// MappedError 业务错误与响应码的映射，Msg 为空时使用错误自身文案
type MappedError struct {
	Target error
	Code   int
	Msg    string
}

// RespondMappedError 按顺序匹配映射规则，全部未命中时按兜底码响应并记录原始错误
func RespondMappedError(c *gin.Context, err error, rules []MappedError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if !errors.Is(err, rule.Target) {
			continue
		}
		msg := rule.Msg
		if msg == "" {
			msg = rule.Target.Error()
		}
		response.Error(c, rule.Code, msg)
		return
	}
	RespondError(c, fallbackCode, fallbackMsg, err)
}
