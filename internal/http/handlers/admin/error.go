package admin

import (
	handlershared "github.com/storefront/coupon-engine/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondCouponError(c *gin.Context, err error, fallbackKey string) {
	handlershared.RespondCouponError(c, err, fallbackKey)
}
