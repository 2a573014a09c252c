package admin

import (
	"strconv"
	"strings"

	"github.com/storefront/coupon-engine/internal/http/response"
	"github.com/storefront/coupon-engine/internal/queue"
	"github.com/storefront/coupon-engine/internal/repository"
	"github.com/storefront/coupon-engine/internal/service"

	"github.com/gin-gonic/gin"
)

// GetCouponUsages 分页获取优惠券使用记录
func (h *Handler) GetCouponUsages(c *gin.Context) {
	couponID, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	var userID uint
	if raw := strings.TrimSpace(c.Query("user_id")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || parsed == 0 {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
		userID = uint(parsed)
	}

	usages, total, err := h.CouponUsageService.ListForCoupon(repository.CouponUsageListFilter{
		Page:     page,
		PageSize: pageSize,
		CouponID: couponID,
		UserID:   userID,
	})
	if err != nil {
		respondCouponError(c, err, "error.internal")
		return
	}
	response.SuccessWithPage(c, usages, buildPagination(page, pageSize, total))
}

// ReconcileCoupon 校准优惠券使用计数；async=true 时投递到任务队列
func (h *Handler) ReconcileCoupon(c *gin.Context) {
	couponID, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	async, ok := parseQueryBool(c, "async")
	if !ok {
		return
	}

	if async != nil && *async {
		if !h.QueueClient.Enabled() {
			respondCouponError(c, service.ErrQueueUnavailable, "error.coupon_reconcile_failed")
			return
		}
		if err := h.QueueClient.EnqueueCouponReconcile(queue.CouponReconcilePayload{
			CouponID: couponID,
			Source:   "admin",
		}); err != nil {
			respondError(c, response.CodeInternal, "error.coupon_reconcile_failed", err)
			return
		}
		response.Success(c, gin.H{
			"coupon_id": couponID,
			"queued":    true,
		})
		return
	}

	result, err := h.CouponUsageService.Reconcile(couponID)
	if err != nil {
		respondCouponError(c, err, "error.coupon_reconcile_failed")
		return
	}
	response.Success(c, result)
}
