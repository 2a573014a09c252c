package public

import "github.com/storefront/coupon-engine/internal/provider"

// Handler 前台/公开接口处理器入口
// 说明：该处理器服务于结账流程调用的优惠券接口。
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
