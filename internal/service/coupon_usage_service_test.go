package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/storefront/coupon-engine/internal/models"
	"github.com/storefront/coupon-engine/internal/repository"
)

func TestCouponUsageServiceLedger(t *testing.T) {
	env := setupCouponServiceTest(t)
	input := baseCouponInput("LEDGER")
	input.MaxUsesPerUser = 3
	coupon := createTestCoupon(t, env, input)

	subtotals := []int64{1000, 2000, 3000}
	for _, subtotal := range subtotals {
		if _, err := env.couponSvc.Redeem(context.Background(), CouponRedeemInput{
			Code: "LEDGER",
			Cart: CartSnapshot{Subtotal: subtotal, ItemCount: 1, UserID: 11},
		}); err != nil {
			t.Fatalf("redeem failed: %v", err)
		}
	}

	total, err := env.usageSvc.CountTotal(coupon.ID)
	if err != nil || total != 3 {
		t.Fatalf("count total want 3 got %d err=%v", total, err)
	}
	perUser, err := env.usageSvc.CountForUser(coupon.ID, 11)
	if err != nil || perUser != 3 {
		t.Fatalf("count for user want 3 got %d err=%v", perUser, err)
	}
	sum, err := env.usageSvc.SumDiscount(coupon.ID)
	if err != nil || sum != 600 {
		t.Fatalf("sum discount want 600 got %d err=%v", sum, err)
	}

	usages, count, err := env.usageSvc.ListForCoupon(repository.CouponUsageListFilter{CouponID: coupon.ID, Page: 1, PageSize: 10})
	if err != nil || count != 3 {
		t.Fatalf("list want 3 got %d err=%v", count, err)
	}
	for i := 1; i < len(usages); i++ {
		if usages[i].CreatedAt.Before(usages[i-1].CreatedAt) {
			t.Fatalf("ledger must be ordered by created_at ascending")
		}
	}

	if _, _, err := env.usageSvc.ListForCoupon(repository.CouponUsageListFilter{CouponID: 4242}); !errors.Is(err, ErrCouponNotFound) {
		t.Fatalf("missing coupon want ErrCouponNotFound got %v", err)
	}
}

func TestCouponUsageServiceReconcile(t *testing.T) {
	env := setupCouponServiceTest(t)
	coupon := createTestCoupon(t, env, baseCouponInput("DRIFT"))

	// 模拟计数落后于账本
	for userID := uint(1); userID <= 3; userID++ {
		usage := models.CouponUsage{
			CouponID:       &coupon.ID,
			CouponCode:     coupon.Code,
			UserID:         userID,
			DiscountAmount: 10,
			CreatedAt:      time.Now().UTC(),
		}
		if err := env.usageRepo.Create(&usage); err != nil {
			t.Fatalf("create usage failed: %v", err)
		}
	}

	result, err := env.usageSvc.Reconcile(coupon.ID)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if !result.Repaired || result.CurrentUses != 3 || result.LedgerCount != 3 {
		t.Fatalf("reconcile result mismatch: %+v", result)
	}
	reloaded, _ := env.couponRepo.GetByID(coupon.ID)
	if reloaded.CurrentUses != 3 {
		t.Fatalf("counter want 3 got %d", reloaded.CurrentUses)
	}

	result, err = env.usageSvc.Reconcile(coupon.ID)
	if err != nil || result.Repaired {
		t.Fatalf("second reconcile should be a no-op, got %+v err=%v", result, err)
	}
}

func TestCouponUsageServiceReconcileNeverLowers(t *testing.T) {
	env := setupCouponServiceTest(t)
	coupon := createTestCoupon(t, env, baseCouponInput("AHEAD"))
	if _, err := env.couponRepo.IncrementUsage(coupon.ID, time.Now().UTC()); err != nil {
		t.Fatalf("increment failed: %v", err)
	}

	result, err := env.usageSvc.Reconcile(coupon.ID)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if result.Repaired || result.CurrentUses != 1 || result.LedgerCount != 0 {
		t.Fatalf("counter must not be lowered: %+v", result)
	}
}

func TestCouponUsageServiceReconcileAll(t *testing.T) {
	env := setupCouponServiceTest(t)
	drifted := createTestCoupon(t, env, baseCouponInput("SWEEP1"))
	createTestCoupon(t, env, baseCouponInput("SWEEP2"))
	usage := models.CouponUsage{
		CouponID:       &drifted.ID,
		CouponCode:     drifted.Code,
		UserID:         1,
		DiscountAmount: 10,
		CreatedAt:      time.Now().UTC(),
	}
	if err := env.usageRepo.Create(&usage); err != nil {
		t.Fatalf("create usage failed: %v", err)
	}

	report, err := env.usageSvc.ReconcileAll(context.Background(), 2)
	if err != nil {
		t.Fatalf("reconcile all failed: %v", err)
	}
	if report.Checked != 2 || report.Repaired != 1 || report.Failed != 0 {
		t.Fatalf("report mismatch: %+v", report)
	}
}
