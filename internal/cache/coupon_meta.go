package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/storefront/coupon-engine/internal/models"
)

// CouponMeta 优惠券元数据快照
// 不包含 current_uses，计数始终以数据库为准
type CouponMeta struct {
	ID              uint           `json:"id"`
	Code            string         `json:"code"`
	DiscountType    string         `json:"discount_type"`
	DiscountValue   models.Numeric `json:"discount_value"`
	MinCartValue    *int64         `json:"min_cart_value,omitempty"`
	MinItemQuantity *int           `json:"min_item_quantity,omitempty"`
	ValidFrom       time.Time      `json:"valid_from"`
	ValidUntil      time.Time      `json:"valid_until"`
	MaxUses         int            `json:"max_uses"`
	MaxUsesPerUser  int            `json:"max_uses_per_user"`
	Scope           string         `json:"scope"`
	IsActive        bool           `json:"is_active"`
}

func couponMetaKey(code string) string {
	return fmt.Sprintf("coupon:meta:%s", models.NormalizeCouponCode(code))
}

// BuildCouponMeta 从优惠券模型构建元数据快照
func BuildCouponMeta(coupon *models.Coupon) *CouponMeta {
	if coupon == nil {
		return nil
	}
	return &CouponMeta{
		ID:              coupon.ID,
		Code:            coupon.Code,
		DiscountType:    coupon.DiscountType,
		DiscountValue:   coupon.DiscountValue,
		MinCartValue:    coupon.MinCartValue,
		MinItemQuantity: coupon.MinItemQuantity,
		ValidFrom:       coupon.ValidFrom,
		ValidUntil:      coupon.ValidUntil,
		MaxUses:         coupon.MaxUses,
		MaxUsesPerUser:  coupon.MaxUsesPerUser,
		Scope:           coupon.Scope,
		IsActive:        coupon.IsActive,
	}
}

// GetCouponMeta 读取优惠券元数据缓存
func GetCouponMeta(ctx context.Context, code string) (*CouponMeta, bool, error) {
	if strings.TrimSpace(code) == "" {
		return nil, false, nil
	}
	var meta CouponMeta
	hit, err := GetJSON(ctx, couponMetaKey(code), &meta)
	if err != nil || !hit {
		return nil, false, err
	}
	return &meta, true, nil
}

// SetCouponMeta 写入优惠券元数据缓存
func SetCouponMeta(ctx context.Context, meta *CouponMeta, ttl time.Duration) error {
	if meta == nil || ttl <= 0 {
		return nil
	}
	return SetJSON(ctx, couponMetaKey(meta.Code), meta, ttl)
}

// DelCouponMeta 删除优惠券元数据缓存
func DelCouponMeta(ctx context.Context, codes ...string) error {
	for _, code := range codes {
		if strings.TrimSpace(code) == "" {
			continue
		}
		if err := Del(ctx, couponMetaKey(code)); err != nil {
			return err
		}
	}
	return nil
}
