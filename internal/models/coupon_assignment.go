package models

import "time"

// CouponAssignment 定向优惠券的可用用户
type CouponAssignment struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                                          // 主键
	CouponID  uint      `gorm:"not null;uniqueIndex:idx_coupon_assignment_pair,priority:1" json:"coupon_id"`       // 优惠券ID
	UserID    uint      `gorm:"not null;uniqueIndex:idx_coupon_assignment_pair,priority:2;index" json:"user_id"` // 用户ID
	CreatedAt time.Time `json:"created_at"`                                                                    // 分配时间
}

// TableName 指定表名
func (CouponAssignment) TableName() string {
	return "coupon_assignments"
}
