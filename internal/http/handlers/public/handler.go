package public

import "github.com/courtline/internal/provider"

// Handler 前台/公开接口处理器入口
// 说明：该处理器仅用于购票、推广申请与支付回调等公开 API。
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
