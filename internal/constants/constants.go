package constants

// 优惠券折扣类型常量（持久化层唯一合法取值）
const (
	CouponTypePercentage  = "PERCENTAGE"
	CouponTypeFixedAmount = "FIXED_AMOUNT"
)

// 优惠券适用范围常量
const (
	CouponScopeGeneral       = "GENERAL"
	CouponScopeSpecificUsers = "SPECIFIC_USERS"
)

// 优惠券派生状态常量（不落库，按当前时间计算）
const (
	CouponStatusActive    = "active"
	CouponStatusScheduled = "scheduled"
	CouponStatusExpired   = "expired"
	CouponStatusExhausted = "exhausted"
	CouponStatusInactive  = "inactive"
)

// 优惠券判定原因码
const (
	CouponReasonNotFound           = "NOT_FOUND"
	CouponReasonInactive           = "INACTIVE"
	CouponReasonNotYetValid        = "NOT_YET_VALID"
	CouponReasonExpired            = "EXPIRED"
	CouponReasonGlobalLimitReached = "GLOBAL_LIMIT_REACHED"
	CouponReasonUserLimitReached   = "USER_LIMIT_REACHED"
	CouponReasonNotEligible        = "NOT_ELIGIBLE"
	CouponReasonCartTooLow         = "CART_TOO_LOW"
	CouponReasonNotEnoughItems     = "NOT_ENOUGH_ITEMS"
)

// 优惠码长度约束
const (
	CouponCodeMinLength = 3
	CouponCodeMaxLength = 20
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 队列名称常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 异步任务类型常量
const (
	TaskCouponReconcile = "coupon:reconcile"
)
