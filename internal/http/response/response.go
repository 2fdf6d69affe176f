package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构，业务错误同样以 HTTP 200 返回
type Response struct {
	StatusCode int         `json:"status_code"`          // 业务状态码
	Msg        string      `json:"msg"`                  // 提示消息
	Data       interface{} `json:"data"`                 // 数据内容
	Pagination *Pagination `json:"pagination,omitempty"` // 分页信息
	RequestID  string      `json:"request_id,omitempty"` // 请求ID
}

// Pagination 分页信息
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"page_size"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"total_page"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	write(c, http.StatusOK, CodeOK, "success", data, nil)
}

// SuccessWithMsg 成功响应（自定义消息），用于核验结果等需要直接展示文案的场景
func SuccessWithMsg(c *gin.Context, msg string, data interface{}) {
	write(c, http.StatusOK, CodeOK, msg, data, nil)
}

// SuccessWithPage 分页成功响应
func SuccessWithPage(c *gin.Context, data interface{}, pagination Pagination) {
	write(c, http.StatusOK, CodeOK, "success", data, &pagination)
}

// Error 错误响应
func Error(c *gin.Context, statusCode int, msg string) {
	write(c, http.StatusOK, statusCode, msg, nil, nil)
}

// ErrorWithData 错误响应（带数据）
func ErrorWithData(c *gin.Context, statusCode int, msg string, data interface{}) {
	write(c, http.StatusOK, statusCode, msg, data, nil)
}

// ErrorWithHTTPStatus 以指定 HTTP 状态码返回错误，供支付回调等需要外部重试的入口使用
func ErrorWithHTTPStatus(c *gin.Context, httpStatus int, statusCode int, msg string) {
	write(c, httpStatus, statusCode, msg, nil, nil)
}

// Unauthorized 401响应
func Unauthorized(c *gin.Context, msg string) {
	Error(c, CodeUnauthorized, msg)
}

// Forbidden 403响应
func Forbidden(c *gin.Context, msg string) {
	Error(c, CodeForbidden, msg)
}

func write(c *gin.Context, httpStatus int, statusCode int, msg string, data interface{}, pagination *Pagination) {
	c.JSON(httpStatus, Response{
		StatusCode: statusCode,
		Msg:        msg,
		Data:       data,
		Pagination: pagination,
		RequestID:  requestID(c),
	})
}

func requestID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	value, ok := c.Get("request_id")
	if !ok {
		return ""
	}
	id, _ := value.(string)
	return id
}
