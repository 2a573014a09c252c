package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/storefront/coupon-engine/internal/authz"
	"github.com/storefront/coupon-engine/internal/config"
	"github.com/storefront/coupon-engine/internal/constants"
	"github.com/storefront/coupon-engine/internal/logger"
	"github.com/storefront/coupon-engine/internal/models"
	"github.com/storefront/coupon-engine/internal/repository"
	"github.com/storefront/coupon-engine/internal/service"

	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, cfg.Server.Mode == "debug"); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 添加用户（账号系统的只读镜像）
	now := time.Now().UTC()
	users := make([]models.User, 0, 5)
	for id := uint(1); id <= 5; id++ {
		users = append(users, models.User{
			ID:        id,
			Email:     fmt.Sprintf("shopper%d@example.com", id),
			Status:    constants.UserStatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if err := models.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&users).Error; err != nil {
		stdLog.Fatalf("Failed to create users: %v", err)
	}

	couponRepo := repository.NewCouponRepository(models.DB)
	usageRepo := repository.NewCouponUsageRepository(models.DB)
	assignmentRepo := repository.NewCouponAssignmentRepository(models.DB)
	userRepo := repository.NewUserRepository(models.DB)
	adminService := service.NewCouponAdminService(couponRepo, usageRepo, assignmentRepo, cfg.Coupon.AllowForceDelete)
	assignmentService := service.NewCouponAssignmentService(couponRepo, assignmentRepo, userRepo)

	minCart := int64(3000)
	minItems := 2
	inactive := false
	coupons := []service.CreateCouponInput{
		{
			Code:           "SAVE10",
			DiscountType:   constants.CouponTypePercentage,
			DiscountValue:  models.NewNumeric(decimal.NewFromInt(10)),
			ValidFrom:      now.Add(-time.Hour),
			ValidUntil:     now.AddDate(0, 1, 0),
			MaxUses:        1000,
			MaxUsesPerUser: 1,
		},
		{
			Code:            "FLAT500",
			DiscountType:    constants.CouponTypeFixedAmount,
			DiscountValue:   models.NewNumeric(decimal.NewFromInt(500)),
			MinCartValue:    &minCart,
			MinItemQuantity: &minItems,
			ValidFrom:       now.Add(-time.Hour),
			ValidUntil:      now.AddDate(0, 0, 7),
			MaxUses:         100,
			MaxUsesPerUser:  3,
		},
		{
			Code:           "VIP20",
			DiscountType:   constants.CouponTypePercentage,
			DiscountValue:  models.NewNumeric(decimal.NewFromInt(20)),
			ValidFrom:      now.Add(-time.Hour),
			ValidUntil:     now.AddDate(0, 3, 0),
			MaxUses:        50,
			MaxUsesPerUser: 2,
			Scope:          constants.CouponScopeSpecificUsers,
		},
		{
			Code:           "NEXTWEEK",
			DiscountType:   constants.CouponTypePercentage,
			DiscountValue:  models.NewNumeric(decimal.NewFromFloat(12.5)),
			ValidFrom:      now.AddDate(0, 0, 7),
			ValidUntil:     now.AddDate(0, 0, 14),
			MaxUses:        200,
			MaxUsesPerUser: 1,
		},
		{
			Code:           "PAUSED",
			DiscountType:   constants.CouponTypeFixedAmount,
			DiscountValue:  models.NewNumeric(decimal.NewFromInt(1000)),
			ValidFrom:      now.Add(-time.Hour),
			ValidUntil:     now.AddDate(0, 1, 0),
			MaxUses:        10,
			MaxUsesPerUser: 1,
			IsActive:       &inactive,
		},
	}

	created := 0
	for _, input := range coupons {
		coupon, err := adminService.Create(input)
		if err != nil {
			if errors.Is(err, service.ErrCouponInvalid) {
				stdLog.Printf("Skip coupon %s: %v", input.Code, err)
				continue
			}
			stdLog.Fatalf("Failed to create coupon %s: %v", input.Code, err)
		}
		created++
		stdLog.Printf("Created coupon: %s", coupon.Code)
		if coupon.Scope == constants.CouponScopeSpecificUsers {
			if _, err := assignmentService.Add(coupon.ID, []uint{1, 2}); err != nil {
				stdLog.Printf("Failed to assign coupon %s: %v", coupon.Code, err)
			}
		}
	}

	// 预置角色并为演示管理员授权
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		stdLog.Fatalf("Failed to init authz: %v", err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		stdLog.Fatalf("Failed to bootstrap roles: %v", err)
	}
	if err := authzService.SetAdminRoles(2, []string{authz.RoleCouponOperator}); err != nil {
		stdLog.Fatalf("Failed to grant operator role: %v", err)
	}
	if err := authzService.SetAdminRoles(3, []string{authz.RoleCouponViewer}); err != nil {
		stdLog.Fatalf("Failed to grant viewer role: %v", err)
	}

	fmt.Println("\n✅ Test data created successfully!")
	fmt.Println("Summary:")
	fmt.Println("- 5 Users (id 1-5)")
	fmt.Printf("- %d Coupons (SAVE10, FLAT500, VIP20 -> users 1,2, NEXTWEEK, PAUSED)\n", created)
	fmt.Println("- Admin 2: coupon_operator, Admin 3: coupon_viewer")

	// 开发环境令牌
	tokenService := service.NewAdminTokenService(cfg.JWT)
	tokens := []struct {
		adminID  uint
		username string
		isSuper  bool
	}{
		{adminID: 1, username: "root", isSuper: true},
		{adminID: 2, username: "operator"},
		{adminID: 3, username: "viewer"},
	}
	fmt.Println("\nDev tokens:")
	for _, item := range tokens {
		token, expiresAt, err := tokenService.GenerateJWT(item.adminID, item.username, item.isSuper)
		if err != nil {
			stdLog.Printf("Failed to sign token for %s: %v", item.username, err)
			continue
		}
		fmt.Printf("- %s (expires %s)\n  %s\n", item.username, expiresAt.Format(time.RFC3339), token)
	}
}
