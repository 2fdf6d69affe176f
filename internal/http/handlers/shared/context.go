package shared

import (
	"strconv"
	"strings"

	"github.com/courtline/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetContextUint 读取鉴权中间件写入的 uint 值，缺失时按未登录处理
func GetContextUint(c *gin.Context, key string) (uint, bool) {
	if v := c.GetUint(key); v > 0 {
		return v, true
	}
	response.Unauthorized(c, "unauthorized")
	return 0, false
}

// ParseUintParam 解析路径参数中的正整数 ID，非法时直接响应 400
func ParseUintParam(c *gin.Context, name string) (uint, bool) {
	if id := parsePositiveID(c.Param(name)); id > 0 {
		return id, true
	}
	response.Error(c, response.CodeBadRequest, "invalid "+name)
	return 0, false
}

// QueryUint 读取可选的正整数查询参数，缺失或非法返回 0
func QueryUint(c *gin.Context, name string) uint {
	return parsePositiveID(c.Query(name))
}

func parsePositiveID(raw string) uint {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 0)
	if err != nil {
		return 0
	}
	return uint(id)
}
