package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/storefront/coupon-engine/internal/authz"
	"github.com/storefront/coupon-engine/internal/cache"
	"github.com/storefront/coupon-engine/internal/config"
	adminhandlers "github.com/storefront/coupon-engine/internal/http/handlers/admin"
	publichandlers "github.com/storefront/coupon-engine/internal/http/handlers/public"
	"github.com/storefront/coupon-engine/internal/http/response"
	"github.com/storefront/coupon-engine/internal/logger"
	"github.com/storefront/coupon-engine/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按结账/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "cpn"
	}
	redisClient := cache.Client()
	checkoutRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:checkout", redisPrefix),
		WindowSeconds: cfg.Security.CheckoutRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.CheckoutRateLimit.MaxRequests,
		BlockSeconds:  cfg.Security.CheckoutRateLimit.BlockSeconds,
		MessageKey:    "error.rate_limited",
	}
	checkoutLimiter := RateLimitMiddleware(redisClient, checkoutRule, KeyByIPAndJSONField("user_id"))

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		// 结账流程接口
		checkout := apiV1.Group("/coupons")
		checkout.Use(checkoutLimiter)
		{
			checkout.POST("/validate", publicHandler.ValidateCoupon)
			checkout.POST("/redeem", publicHandler.RedeemCoupon)
		}

		// 管理员接口（令牌由外部认证服务签发）
		admin := apiV1.Group("/admin")
		admin.Use(JWTAuthMiddleware(c.AdminTokenService), AdminRBACMiddleware(c.AuthzService))
		{
			// 权限
			admin.GET("/authz/me", adminHandler.GetAuthzMe)
			admin.GET("/authz/roles", adminHandler.ListAuthzRoles)
			admin.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
				response.Success(ctx, buildAdminPermissionCatalog(r))
			})
			admin.GET("/authz/admins/:id/roles", adminHandler.GetAuthzAdminRoles)
			admin.PUT("/authz/admins/:id/roles", adminHandler.SetAuthzAdminRoles)

			// 优惠券
			admin.GET("/coupons", adminHandler.GetAdminCoupons)
			admin.POST("/coupons", adminHandler.CreateCoupon)
			admin.GET("/coupons/:id", adminHandler.GetCoupon)
			admin.PATCH("/coupons/:id", adminHandler.UpdateCoupon)
			admin.DELETE("/coupons/:id", adminHandler.DeleteCoupon)
			admin.POST("/coupons/:id/toggle", adminHandler.ToggleCoupon)

			// 定向用户
			admin.GET("/coupons/:id/assignments", adminHandler.GetCouponAssignments)
			admin.POST("/coupons/:id/assignments", adminHandler.AddCouponAssignments)
			admin.DELETE("/coupons/:id/assignments", adminHandler.RemoveCouponAssignments)

			// 使用账本
			admin.GET("/coupons/:id/usages", adminHandler.GetCouponUsages)
			admin.POST("/coupons/:id/reconcile", adminHandler.ReconcileCoupon)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	if segments[1] == "authz" {
		return "authz"
	}
	return segments[1]
}
