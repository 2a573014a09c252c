package admin

import (
	"github.com/storefront/coupon-engine/internal/http/response"

	"github.com/gin-gonic/gin"
)

// CouponAssignmentRequest 定向用户批量操作请求
type CouponAssignmentRequest struct {
	UserIDs []uint `json:"user_ids" binding:"required"`
}

// GetCouponAssignments 获取定向用户列表
func (h *Handler) GetCouponAssignments(c *gin.Context) {
	couponID, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	userIDs, err := h.CouponAssignmentService.List(couponID)
	if err != nil {
		respondCouponError(c, err, "error.internal")
		return
	}
	response.Success(c, gin.H{
		"coupon_id": couponID,
		"user_ids":  userIDs,
	})
}

// AddCouponAssignments 批量添加定向用户（全部成功或全部失败）
func (h *Handler) AddCouponAssignments(c *gin.Context) {
	couponID, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	var req CouponAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	userIDs, err := h.CouponAssignmentService.Add(couponID, req.UserIDs)
	if err != nil {
		respondCouponError(c, err, "error.coupon_update_failed")
		return
	}
	response.Success(c, gin.H{
		"coupon_id": couponID,
		"user_ids":  userIDs,
	})
}

// RemoveCouponAssignments 批量移除定向用户
func (h *Handler) RemoveCouponAssignments(c *gin.Context) {
	couponID, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	var req CouponAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	userIDs, err := h.CouponAssignmentService.Remove(couponID, req.UserIDs)
	if err != nil {
		respondCouponError(c, err, "error.coupon_update_failed")
		return
	}
	response.Success(c, gin.H{
		"coupon_id": couponID,
		"user_ids":  userIDs,
	})
}
