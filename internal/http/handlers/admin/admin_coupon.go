package admin

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/storefront/coupon-engine/internal/constants"
	"github.com/storefront/coupon-engine/internal/http/response"
	"github.com/storefront/coupon-engine/internal/models"
	"github.com/storefront/coupon-engine/internal/repository"
	"github.com/storefront/coupon-engine/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateCouponRequest 创建优惠券请求
type CreateCouponRequest struct {
	Code            string         `json:"code" binding:"required"`
	DiscountType    string         `json:"discount_type" binding:"required"`
	DiscountValue   models.Numeric `json:"discount_value"`
	MinCartValue    *int64         `json:"min_cart_value"`
	MinItemQuantity *int           `json:"min_item_quantity"`
	ValidFrom       time.Time      `json:"valid_from" binding:"required"`
	ValidUntil      time.Time      `json:"valid_until" binding:"required"`
	MaxUses         int            `json:"max_uses"`
	MaxUsesPerUser  int            `json:"max_uses_per_user"`
	Scope           string         `json:"scope"`
	IsActive        *bool          `json:"is_active"`
}

// UpdateCouponRequest 部分更新请求；min_cart_value / min_item_quantity 传 null 表示清除
type UpdateCouponRequest struct {
	Code            *string         `json:"code"`
	DiscountType    *string         `json:"discount_type"`
	DiscountValue   *models.Numeric `json:"discount_value"`
	MinCartValue    nullableInt64   `json:"min_cart_value"`
	MinItemQuantity nullableInt     `json:"min_item_quantity"`
	ValidFrom       *time.Time      `json:"valid_from"`
	ValidUntil      *time.Time      `json:"valid_until"`
	MaxUses         *int            `json:"max_uses"`
	MaxUsesPerUser  *int            `json:"max_uses_per_user"`
	Scope           *string         `json:"scope"`
	IsActive        *bool           `json:"is_active"`
}

// nullableInt64 区分“未传”与“显式 null”
type nullableInt64 struct {
	Set   bool
	Value *int64
}

func (n *nullableInt64) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		n.Value = nil
		return nil
	}
	var value int64
	if err := json.Unmarshal(b, &value); err != nil {
		return err
	}
	n.Value = &value
	return nil
}

type nullableInt struct {
	Set   bool
	Value *int
}

func (n *nullableInt) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		n.Value = nil
		return nil
	}
	var value int
	if err := json.Unmarshal(b, &value); err != nil {
		return err
	}
	n.Value = &value
	return nil
}

// couponView 管理端优惠券输出
type couponView struct {
	models.Coupon
	Status        string `json:"status"`
	AssignedUsers *int64 `json:"assigned_users,omitempty"`
	TotalDiscount *int64 `json:"total_discount,omitempty"`
}

func newCouponView(coupon *models.Coupon) couponView {
	return couponView{
		Coupon: *coupon,
		Status: coupon.StatusAt(time.Now().UTC()),
	}
}

// CreateCoupon 创建优惠券
func (h *Handler) CreateCoupon(c *gin.Context) {
	var req CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	coupon, err := h.CouponAdminService.Create(service.CreateCouponInput{
		Code:            req.Code,
		DiscountType:    req.DiscountType,
		DiscountValue:   req.DiscountValue,
		MinCartValue:    req.MinCartValue,
		MinItemQuantity: req.MinItemQuantity,
		ValidFrom:       req.ValidFrom,
		ValidUntil:      req.ValidUntil,
		MaxUses:         req.MaxUses,
		MaxUsesPerUser:  req.MaxUsesPerUser,
		Scope:           req.Scope,
		IsActive:        req.IsActive,
	})
	if err != nil {
		respondCouponError(c, err, "error.coupon_create_failed")
		return
	}

	response.Success(c, newCouponView(coupon))
}

// GetCoupon 获取优惠券详情
func (h *Handler) GetCoupon(c *gin.Context) {
	couponID, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	coupon, err := h.CouponAdminService.Get(couponID)
	if err != nil {
		respondCouponError(c, err, "error.internal")
		return
	}
	response.Success(c, newCouponView(coupon))
}

// UpdateCoupon 部分更新优惠券
func (h *Handler) UpdateCoupon(c *gin.Context) {
	couponID, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	var req UpdateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	input := service.UpdateCouponInput{
		Code:           req.Code,
		DiscountType:   req.DiscountType,
		DiscountValue:  req.DiscountValue,
		ValidFrom:      req.ValidFrom,
		ValidUntil:     req.ValidUntil,
		MaxUses:        req.MaxUses,
		MaxUsesPerUser: req.MaxUsesPerUser,
		Scope:          req.Scope,
		IsActive:       req.IsActive,
	}
	if req.MinCartValue.Set {
		input.MinCartValue = req.MinCartValue.Value
		input.ClearMinCartValue = req.MinCartValue.Value == nil
	}
	if req.MinItemQuantity.Set {
		input.MinItemQuantity = req.MinItemQuantity.Value
		input.ClearMinItemQuantity = req.MinItemQuantity.Value == nil
	}

	coupon, err := h.CouponAdminService.Update(couponID, input)
	if err != nil {
		respondCouponError(c, err, "error.coupon_update_failed")
		return
	}
	response.Success(c, newCouponView(coupon))
}

// ToggleCoupon 切换优惠券启用状态
func (h *Handler) ToggleCoupon(c *gin.Context) {
	couponID, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	coupon, err := h.CouponAdminService.ToggleActive(couponID)
	if err != nil {
		respondCouponError(c, err, "error.coupon_update_failed")
		return
	}
	response.Success(c, newCouponView(coupon))
}

// DeleteCoupon 删除优惠券；force=true 时保留使用记录并解除关联
func (h *Handler) DeleteCoupon(c *gin.Context) {
	couponID, ok := parsePathID(c, "id")
	if !ok {
		return
	}
	force, ok := parseQueryBool(c, "force")
	if !ok {
		return
	}
	forced := force != nil && *force
	if err := h.CouponAdminService.Delete(couponID, forced); err != nil {
		respondCouponError(c, err, "error.coupon_delete_failed")
		return
	}
	if forced {
		adminID, _ := c.Get("admin_id")
		requestLog(c).Infow("admin_coupon_force_deleted", "coupon_id", couponID, "admin_id", adminID)
	}
	response.Success(c, gin.H{
		"deleted": true,
	})
}

// GetAdminCoupons 获取优惠券列表
func (h *Handler) GetAdminCoupons(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	var id uint
	if rawID := strings.TrimSpace(c.Query("id")); rawID != "" {
		parsed, err := strconv.ParseUint(rawID, 10, 64)
		if err != nil || parsed == 0 {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
		id = uint(parsed)
	}
	scope := ""
	if raw := strings.TrimSpace(c.Query("scope")); raw != "" {
		parsed, ok := service.ParseCouponScope(raw)
		if !ok {
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
			return
		}
		scope = parsed
	}
	status := strings.ToLower(strings.TrimSpace(c.Query("status")))
	switch status {
	case "", constants.CouponStatusActive, constants.CouponStatusScheduled, constants.CouponStatusExpired,
		constants.CouponStatusExhausted, constants.CouponStatusInactive:
	default:
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	isActive, ok := parseQueryBool(c, "is_active")
	if !ok {
		return
	}

	summaries, total, err := h.CouponAdminService.List(repository.CouponListFilter{
		Page:     page,
		PageSize: pageSize,
		ID:       id,
		Keyword:  strings.TrimSpace(c.Query("keyword")),
		Scope:    scope,
		IsActive: isActive,
		Status:   status,
	})
	if err != nil {
		respondCouponError(c, err, "error.internal")
		return
	}

	items := make([]couponView, 0, len(summaries))
	for i := range summaries {
		assigned := summaries[i].AssignedUsers
		discount := summaries[i].TotalDiscount
		items = append(items, couponView{
			Coupon:        summaries[i].Coupon,
			Status:        summaries[i].Status,
			AssignedUsers: &assigned,
			TotalDiscount: &discount,
		})
	}
	response.SuccessWithPage(c, items, buildPagination(page, pageSize, total))
}
