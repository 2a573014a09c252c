package i18n

var messages = map[string]map[string]string{
	LocaleZH: {
		"error.bad_request":             "请求参数错误",
		"error.unauthorized":            "未登录或登录已过期",
		"error.forbidden":               "没有权限执行该操作",
		"error.not_found":               "资源不存在",
		"error.internal":                "服务器内部错误",
		"error.rate_limited":            "请求过于频繁，请 %d 秒后重试",
		"error.rate_limit_unavailable":  "限流服务暂不可用",
		"error.token_invalid":           "令牌无效",
		"error.admin_id_invalid":        "管理员ID无效",
		"error.admin_id_type_invalid":   "管理员ID类型错误",
		"error.coupon_invalid":          "优惠券参数无效",
		"error.coupon_not_found":        "优惠券不存在",
		"error.coupon_code_exists":      "优惠码已存在",
		"error.coupon_scope_mismatch":   "该优惠券不是定向优惠券",
		"error.coupon_in_use":           "优惠券已被使用，无法删除",
		"error.coupon_force_disabled":   "未开启强制删除",
		"error.coupon_storage":          "优惠券存储暂不可用，请稍后重试",
		"error.user_not_found":          "用户不存在",
		"error.queue_unavailable":       "任务队列未启用",
		"error.coupon_create_failed":    "创建优惠券失败",
		"error.coupon_update_failed":    "更新优惠券失败",
		"error.coupon_delete_failed":    "删除优惠券失败",
		"error.coupon_reconcile_failed": "校准优惠券计数失败",

		"coupon.reason.NOT_FOUND":            "优惠码不存在",
		"coupon.reason.INACTIVE":             "优惠券未启用",
		"coupon.reason.NOT_YET_VALID":        "优惠券尚未生效",
		"coupon.reason.EXPIRED":              "优惠券已过期",
		"coupon.reason.GLOBAL_LIMIT_REACHED": "优惠券已被领完",
		"coupon.reason.USER_LIMIT_REACHED":   "已达到个人使用次数上限",
		"coupon.reason.NOT_ELIGIBLE":         "当前用户不可使用该优惠券",
		"coupon.reason.CART_TOO_LOW":         "未达到最低消费金额",
		"coupon.reason.NOT_ENOUGH_ITEMS":     "商品件数不足",
		"coupon.applicable":                  "优惠券可用",
	},
	LocaleEN: {
		"error.bad_request":             "Invalid request parameters",
		"error.unauthorized":            "Not signed in or session expired",
		"error.forbidden":               "Permission denied",
		"error.not_found":               "Resource not found",
		"error.internal":                "Internal server error",
		"error.rate_limited":            "Too many requests, retry in %d seconds",
		"error.rate_limit_unavailable":  "Rate limiter unavailable",
		"error.token_invalid":           "Invalid token",
		"error.admin_id_invalid":        "Invalid admin id",
		"error.admin_id_type_invalid":   "Invalid admin id type",
		"error.coupon_invalid":          "Invalid coupon parameters",
		"error.coupon_not_found":        "Coupon not found",
		"error.coupon_code_exists":      "Coupon code already exists",
		"error.coupon_scope_mismatch":   "Coupon is not restricted to specific users",
		"error.coupon_in_use":           "Coupon has been used and cannot be deleted",
		"error.coupon_force_disabled":   "Force delete is disabled",
		"error.coupon_storage":          "Coupon storage unavailable, please retry",
		"error.user_not_found":          "User not found",
		"error.queue_unavailable":       "Task queue is disabled",
		"error.coupon_create_failed":    "Failed to create coupon",
		"error.coupon_update_failed":    "Failed to update coupon",
		"error.coupon_delete_failed":    "Failed to delete coupon",
		"error.coupon_reconcile_failed": "Failed to reconcile coupon usage",

		"coupon.reason.NOT_FOUND":            "Coupon code does not exist",
		"coupon.reason.INACTIVE":             "Coupon is not active",
		"coupon.reason.NOT_YET_VALID":        "Coupon is not valid yet",
		"coupon.reason.EXPIRED":              "Coupon has expired",
		"coupon.reason.GLOBAL_LIMIT_REACHED": "Coupon usage limit reached",
		"coupon.reason.USER_LIMIT_REACHED":   "You have reached the usage limit for this coupon",
		"coupon.reason.NOT_ELIGIBLE":         "This coupon is not available for your account",
		"coupon.reason.CART_TOO_LOW":         "Cart total is below the minimum",
		"coupon.reason.NOT_ENOUGH_ITEMS":     "Not enough items in cart",
		"coupon.applicable":                  "Coupon applied",
	},
}
