package models

import "time"

// CouponUsage 优惠券使用记录（只追加，不可修改）
type CouponUsage struct {
	ID             uint      `gorm:"primarykey" json:"id"`                                                  // 主键
	CouponID       *uint     `gorm:"index;uniqueIndex:idx_coupon_usage_order,priority:1" json:"coupon_id"`  // 优惠券ID（强制删除后置空）
	CouponCode     string    `gorm:"size:32;not null" json:"coupon_code"`                                   // 优惠码快照（审计用）
	UserID         uint      `gorm:"index;not null" json:"user_id"`                                         // 用户ID
	OrderNo        *string   `gorm:"size:64;uniqueIndex:idx_coupon_usage_order,priority:2" json:"order_no"` // 订单号（提交幂等键）
	DiscountAmount int64     `gorm:"not null;default:0" json:"discount_amount"`                             // 实际抵扣金额（最小货币单位）
	CreatedAt      time.Time `gorm:"index" json:"created_at"`                                               // 创建时间
}

// TableName 指定表名
func (CouponUsage) TableName() string {
	return "coupon_usages"
}
