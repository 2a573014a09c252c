package shared

import (
	"errors"

	"github.com/storefront/coupon-engine/internal/http/response"
	"github.com/storefront/coupon-engine/internal/i18n"
	"github.com/storefront/coupon-engine/internal/service"

	"github.com/gin-gonic/gin"
)

// RespondCouponError 将优惠券服务错误映射为统一响应；未识别的错误按 fallbackKey 返回 500
func RespondCouponError(c *gin.Context, err error, fallbackKey string) {
	locale := i18n.ResolveLocale(c)

	var validationErr *service.ValidationError
	var unknownUsersErr *service.UnknownUsersError
	switch {
	case errors.As(err, &validationErr):
		if validationErr.Field == "code" && validationErr.Reason == "already exists" {
			response.ErrorWithData(c, response.CodeConflict, i18n.T(locale, "error.coupon_code_exists"), gin.H{
				"field": validationErr.Field,
			})
			return
		}
		response.ErrorWithData(c, response.CodeBadRequest, i18n.T(locale, "error.coupon_invalid"), gin.H{
			"field":  validationErr.Field,
			"reason": validationErr.Reason,
		})
	case errors.As(err, &unknownUsersErr):
		response.ErrorWithData(c, response.CodeNotFound, i18n.T(locale, "error.user_not_found"), gin.H{
			"user_ids": unknownUsersErr.UserIDs,
		})
	case errors.Is(err, service.ErrCouponInvalid):
		RespondError(c, response.CodeBadRequest, "error.coupon_invalid", nil)
	case errors.Is(err, service.ErrCouponNotFound):
		RespondError(c, response.CodeNotFound, "error.coupon_not_found", nil)
	case errors.Is(err, service.ErrUserNotFound):
		RespondError(c, response.CodeNotFound, "error.user_not_found", nil)
	case errors.Is(err, service.ErrCouponScopeMismatch):
		RespondError(c, response.CodeConflict, "error.coupon_scope_mismatch", nil)
	case errors.Is(err, service.ErrCouponInUse):
		RespondError(c, response.CodeConflict, "error.coupon_in_use", nil)
	case errors.Is(err, service.ErrForceDeleteDisabled):
		RespondError(c, response.CodeForbidden, "error.coupon_force_disabled", nil)
	case errors.Is(err, service.ErrQueueUnavailable):
		RespondError(c, response.CodeUnavailable, "error.queue_unavailable", nil)
	case errors.Is(err, service.ErrCouponStorage):
		RespondError(c, response.CodeUnavailable, "error.coupon_storage", err)
	default:
		RespondError(c, response.CodeInternal, fallbackKey, err)
	}
}

// CouponReasonMessage 返回判定原因码的本地化提示
func CouponReasonMessage(c *gin.Context, reason string) string {
	locale := i18n.ResolveLocale(c)
	if reason == "" {
		return i18n.T(locale, "coupon.applicable")
	}
	return i18n.T(locale, "coupon.reason."+reason)
}
