package repository

import "time"

// CouponListFilter 查询优惠券列表的过滤条件
type CouponListFilter struct {
	Page     int
	PageSize int
	ID       uint
	Keyword  string
	Scope    string
	IsActive *bool
	Status   string
	Now      time.Time
}

// CouponUsageListFilter 查询优惠券使用记录列表的过滤条件
type CouponUsageListFilter struct {
	Page     int
	PageSize int
	CouponID uint
	UserID   uint
}
