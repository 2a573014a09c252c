package public

import (
	"github.com/storefront/coupon-engine/internal/http/handlers/shared"
	"github.com/storefront/coupon-engine/internal/http/response"
	"github.com/storefront/coupon-engine/internal/service"

	"github.com/gin-gonic/gin"
)

// CartSnapshotRequest 购物车快照
type CartSnapshotRequest struct {
	Subtotal  int64 `json:"subtotal"`
	ItemCount int   `json:"item_count"`
}

// ValidateCouponRequest 优惠码校验请求
type ValidateCouponRequest struct {
	Code         string              `json:"code" binding:"required"`
	UserID       uint                `json:"user_id" binding:"required"`
	CartSnapshot CartSnapshotRequest `json:"cart_snapshot"`
}

// RedeemCouponRequest 优惠码核销请求
type RedeemCouponRequest struct {
	Code         string              `json:"code" binding:"required"`
	UserID       uint                `json:"user_id" binding:"required"`
	OrderNo      string              `json:"order_no"`
	CartSnapshot CartSnapshotRequest `json:"cart_snapshot"`
}

// couponDecisionView 判定结果输出
type couponDecisionView struct {
	Applicable     bool   `json:"applicable"`
	DiscountAmount int64  `json:"discount_amount"`
	Reason         string `json:"reason,omitempty"`
	Message        string `json:"message"`
	Code           string `json:"code,omitempty"`
	DiscountType   string `json:"discount_type,omitempty"`
}

func buildDecisionView(c *gin.Context, decision *service.CouponDecision) couponDecisionView {
	view := couponDecisionView{
		Applicable:     decision.Applicable,
		DiscountAmount: decision.DiscountAmount,
		Reason:         decision.Reason,
		Message:        shared.CouponReasonMessage(c, decision.Reason),
	}
	if decision.Coupon != nil {
		view.Code = decision.Coupon.Code
		view.DiscountType = decision.Coupon.DiscountType
	}
	return view
}

// ValidateCoupon 校验优惠码并返回折扣金额，不占用名额
func (h *Handler) ValidateCoupon(c *gin.Context) {
	var req ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	decision, err := h.CouponService.Evaluate(c.Request.Context(), req.Code, service.CartSnapshot{
		Subtotal:  req.CartSnapshot.Subtotal,
		ItemCount: req.CartSnapshot.ItemCount,
		UserID:    req.UserID,
	})
	if err != nil {
		respondCouponError(c, err, "error.internal")
		return
	}
	response.Success(c, buildDecisionView(c, decision))
}

// RedeemCoupon 下单时核销优惠码；相同 order_no 重复提交返回首次结果
func (h *Handler) RedeemCoupon(c *gin.Context) {
	var req RedeemCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	result, err := h.CouponService.Redeem(c.Request.Context(), service.CouponRedeemInput{
		Code:    req.Code,
		OrderNo: req.OrderNo,
		Cart: service.CartSnapshot{
			Subtotal:  req.CartSnapshot.Subtotal,
			ItemCount: req.CartSnapshot.ItemCount,
			UserID:    req.UserID,
		},
	})
	if err != nil {
		respondCouponError(c, err, "error.internal")
		return
	}

	response.Success(c, gin.H{
		"decision": buildDecisionView(c, &result.Decision),
		"usage":    result.Usage,
		"replayed": result.Replayed,
	})
}
