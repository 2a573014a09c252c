package admin

import (
	"strconv"
	"strings"

	handlershared "github.com/storefront/coupon-engine/internal/http/handlers/shared"
	"github.com/storefront/coupon-engine/internal/http/response"

	"github.com/gin-gonic/gin"
)

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUintWithKeys(c, "admin_id", "error.admin_id_invalid", "error.admin_id_type_invalid")
}

func isSuperAdmin(c *gin.Context) bool {
	value, exists := c.Get("admin_is_super")
	if !exists {
		return false
	}
	flag, ok := value.(bool)
	return ok && flag
}

func parsePathID(c *gin.Context, key string) (uint, bool) {
	parsed, err := strconv.ParseUint(strings.TrimSpace(c.Param(key)), 10, 64)
	if err != nil || parsed == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return 0, false
	}
	return uint(parsed), true
}

func parseQueryBool(c *gin.Context, key string) (*bool, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return nil, false
	}
	return &parsed, true
}

func normalizePagination(page, pageSize int) (int, int) {
	return handlershared.NormalizePagination(page, pageSize)
}

func buildPagination(page, pageSize int, total int64) response.Pagination {
	return response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
}
