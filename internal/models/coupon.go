package models

import (
	"strings"
	"time"

	"github.com/storefront/coupon-engine/internal/constants"
)

// Coupon 优惠券
type Coupon struct {
	ID              uint      `gorm:"primarykey" json:"id"`                              // 主键
	Code            string    `gorm:"size:32;not null" json:"code"`                      // 优惠码（保留管理员输入的大小写）
	CodeKey         string    `gorm:"size:32;uniqueIndex;not null" json:"-"`             // 优惠码归一化键（大写，大小写不敏感唯一）
	DiscountType    string    `gorm:"size:20;not null" json:"discount_type"`             // 折扣类型（PERCENTAGE/FIXED_AMOUNT）
	DiscountValue   Numeric   `gorm:"type:decimal(20,2);not null" json:"discount_value"` // 折扣值（百分比或最小货币单位金额）
	MinCartValue    *int64    `json:"min_cart_value"`                                    // 最低购物车金额（最小货币单位）
	MinItemQuantity *int      `json:"min_item_quantity"`                                 // 最低商品件数
	ValidFrom       time.Time `gorm:"index;not null" json:"valid_from"`                  // 生效时间
	ValidUntil      time.Time `gorm:"index;not null" json:"valid_until"`                 // 失效时间
	MaxUses         int       `gorm:"not null" json:"max_uses"`                          // 总使用上限
	MaxUsesPerUser  int       `gorm:"not null" json:"max_uses_per_user"`                 // 每人使用上限
	CurrentUses     int       `gorm:"not null;default:0" json:"current_uses"`            // 已使用次数
	Scope           string    `gorm:"size:20;not null;default:'GENERAL'" json:"scope"`   // 适用范围（GENERAL/SPECIFIC_USERS）
	IsActive        bool      `gorm:"not null;index" json:"is_active"`                   // 是否启用
	CreatedAt       time.Time `gorm:"index" json:"created_at"`                           // 创建时间
	UpdatedAt       time.Time `gorm:"index" json:"updated_at"`                           // 更新时间
}

// TableName 指定表名
func (Coupon) TableName() string {
	return "coupons"
}

// NormalizeCouponCode 生成大小写不敏感的优惠码键
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// StatusAt 计算优惠券在指定时间的派生状态
func (c *Coupon) StatusAt(now time.Time) string {
	switch {
	case !c.IsActive:
		return constants.CouponStatusInactive
	case now.Before(c.ValidFrom):
		return constants.CouponStatusScheduled
	case now.After(c.ValidUntil):
		return constants.CouponStatusExpired
	case c.CurrentUses >= c.MaxUses:
		return constants.CouponStatusExhausted
	default:
		return constants.CouponStatusActive
	}
}
