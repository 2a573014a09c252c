package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/storefront/coupon-engine/internal/config"
	"github.com/storefront/coupon-engine/internal/constants"
	"github.com/storefront/coupon-engine/internal/models"
	"github.com/storefront/coupon-engine/internal/provider"
	"github.com/storefront/coupon-engine/internal/queue"
	"github.com/storefront/coupon-engine/internal/repository"
	"github.com/storefront/coupon-engine/internal/service"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

func setupWorkerTest(t *testing.T) (*Consumer, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:worker_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	couponRepo := repository.NewCouponRepository(db)
	usageRepo := repository.NewCouponUsageRepository(db)
	container := &provider.Container{
		Config:             &config.Config{Coupon: config.CouponConfig{ReconcileConcurrency: 2}},
		CouponRepo:         couponRepo,
		CouponUsageRepo:    usageRepo,
		CouponUsageService: service.NewCouponUsageService(couponRepo, usageRepo),
	}
	return NewConsumer(container), db
}

func createDriftedCoupon(t *testing.T, db *gorm.DB, code string, ledger int) *models.Coupon {
	t.Helper()
	now := time.Now().UTC()
	coupon := &models.Coupon{
		Code:           code,
		CodeKey:        models.NormalizeCouponCode(code),
		DiscountType:   constants.CouponTypeFixedAmount,
		DiscountValue:  models.NewNumericFromInt(100),
		ValidFrom:      now.Add(-time.Hour),
		ValidUntil:     now.Add(time.Hour),
		MaxUses:        10,
		MaxUsesPerUser: 5,
		Scope:          constants.CouponScopeGeneral,
		IsActive:       true,
	}
	if err := db.Create(coupon).Error; err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}
	for i := 0; i < ledger; i++ {
		usage := models.CouponUsage{
			CouponID:       &coupon.ID,
			CouponCode:     coupon.Code,
			UserID:         uint(i + 1),
			DiscountAmount: 100,
			CreatedAt:      now,
		}
		if err := db.Create(&usage).Error; err != nil {
			t.Fatalf("create usage failed: %v", err)
		}
	}
	return coupon
}

func currentUses(t *testing.T, db *gorm.DB, id uint) int {
	t.Helper()
	var coupon models.Coupon
	if err := db.First(&coupon, id).Error; err != nil {
		t.Fatalf("reload coupon failed: %v", err)
	}
	return coupon.CurrentUses
}

func TestHandleCouponReconcileSingle(t *testing.T) {
	consumer, db := setupWorkerTest(t)
	coupon := createDriftedCoupon(t, db, "DRIFT1", 2)

	task, err := queue.NewCouponReconcileTask(queue.CouponReconcilePayload{CouponID: coupon.ID})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	if err := consumer.handleCouponReconcile(context.Background(), task); err != nil {
		t.Fatalf("handle task failed: %v", err)
	}
	if got := currentUses(t, db, coupon.ID); got != 2 {
		t.Fatalf("current uses want 2 got %d", got)
	}
}

func TestHandleCouponReconcileAll(t *testing.T) {
	consumer, db := setupWorkerTest(t)
	first := createDriftedCoupon(t, db, "DRIFT1", 1)
	second := createDriftedCoupon(t, db, "DRIFT2", 3)

	task, err := queue.NewCouponReconcileTask(queue.CouponReconcilePayload{Source: "test"})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	if err := consumer.handleCouponReconcile(context.Background(), task); err != nil {
		t.Fatalf("handle task failed: %v", err)
	}
	if currentUses(t, db, first.ID) != 1 || currentUses(t, db, second.ID) != 3 {
		t.Fatalf("sweep should repair every coupon")
	}
}

func TestHandleCouponReconcileSkips(t *testing.T) {
	consumer, _ := setupWorkerTest(t)

	task, err := queue.NewCouponReconcileTask(queue.CouponReconcilePayload{CouponID: 4242})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	if err := consumer.handleCouponReconcile(context.Background(), task); err != nil {
		t.Fatalf("missing coupon should be skipped, got %v", err)
	}

	bad := asynq.NewTask(queue.TaskCouponReconcile, []byte("{not-json"))
	if err := consumer.handleCouponReconcile(context.Background(), bad); err == nil {
		t.Fatalf("malformed payload should fail")
	}

	var nilConsumer *Consumer
	if err := nilConsumer.handleCouponReconcile(context.Background(), task); err != nil {
		t.Fatalf("nil consumer should be a no-op, got %v", err)
	}
}
