package repository

import (
	"testing"
	"time"

	"github.com/storefront/coupon-engine/internal/models"
)

func TestCouponUsageRepositoryLedgerQueries(t *testing.T) {
	db := setupCouponRepositoryTest(t)
	usageRepo := NewCouponUsageRepository(db)
	first := createRepoTestCoupon(t, db, "LEDGER1", nil)
	second := createRepoTestCoupon(t, db, "LEDGER2", nil)

	base := time.Now().UTC().Add(-time.Hour)
	orderA := "ORD-A"
	records := []models.CouponUsage{
		{CouponID: &first.ID, CouponCode: first.Code, UserID: 7, DiscountAmount: 300, CreatedAt: base.Add(2 * time.Minute)},
		{CouponID: &first.ID, CouponCode: first.Code, UserID: 8, DiscountAmount: 200, CreatedAt: base.Add(time.Minute), OrderNo: &orderA},
		{CouponID: &first.ID, CouponCode: first.Code, UserID: 7, DiscountAmount: 100, CreatedAt: base.Add(3 * time.Minute)},
		{CouponID: &second.ID, CouponCode: second.Code, UserID: 7, DiscountAmount: 50, CreatedAt: base},
	}
	for i := range records {
		if err := usageRepo.Create(&records[i]); err != nil {
			t.Fatalf("create usage %d failed: %v", i, err)
		}
	}

	total, err := usageRepo.CountByCoupon(first.ID)
	if err != nil || total != 3 {
		t.Fatalf("count by coupon want 3 got %d err=%v", total, err)
	}
	perUser, err := usageRepo.CountByUser(first.ID, 7)
	if err != nil || perUser != 2 {
		t.Fatalf("count by user want 2 got %d err=%v", perUser, err)
	}
	sum, err := usageRepo.SumDiscount(first.ID)
	if err != nil || sum != 600 {
		t.Fatalf("sum discount want 600 got %d err=%v", sum, err)
	}

	rows, count, err := usageRepo.ListByCoupon(CouponUsageListFilter{CouponID: first.ID, Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("list by coupon failed: %v", err)
	}
	if count != 3 || len(rows) != 2 {
		t.Fatalf("unexpected page: count=%d len=%d", count, len(rows))
	}
	if rows[0].DiscountAmount != 200 || rows[1].DiscountAmount != 300 {
		t.Fatalf("ledger should be ordered by created_at asc, got %+v", rows)
	}

	sums, err := usageRepo.SumDiscountByCouponIDs([]uint{first.ID, second.ID, 9999})
	if err != nil {
		t.Fatalf("sum by ids failed: %v", err)
	}
	if sums[first.ID] != 600 || sums[second.ID] != 50 || sums[9999] != 0 {
		t.Fatalf("unexpected sums: %+v", sums)
	}

	byOrder, err := usageRepo.GetByOrderNo(first.ID, " ORD-A ")
	if err != nil || byOrder == nil || byOrder.UserID != 8 {
		t.Fatalf("get by order no mismatch: %+v err=%v", byOrder, err)
	}
}

func TestCouponUsageRepositoryDetachCoupon(t *testing.T) {
	db := setupCouponRepositoryTest(t)
	usageRepo := NewCouponUsageRepository(db)
	coupon := createRepoTestCoupon(t, db, "DETACH", nil)

	usage := models.CouponUsage{CouponID: &coupon.ID, CouponCode: coupon.Code, UserID: 1, DiscountAmount: 10, CreatedAt: time.Now().UTC()}
	if err := usageRepo.Create(&usage); err != nil {
		t.Fatalf("create usage failed: %v", err)
	}
	exists, err := usageRepo.ExistsByCoupon(coupon.ID)
	if err != nil || !exists {
		t.Fatalf("expected usage to exist, got %v err=%v", exists, err)
	}

	affected, err := usageRepo.DetachCoupon(coupon.ID)
	if err != nil || affected != 1 {
		t.Fatalf("detach want 1 row got %d err=%v", affected, err)
	}
	exists, err = usageRepo.ExistsByCoupon(coupon.ID)
	if err != nil || exists {
		t.Fatalf("expected no linked usage after detach, got %v err=%v", exists, err)
	}

	var stored models.CouponUsage
	if err := db.First(&stored, usage.ID).Error; err != nil {
		t.Fatalf("reload usage failed: %v", err)
	}
	if stored.CouponID != nil || stored.CouponCode != "DETACH" {
		t.Fatalf("detached record should keep snapshot and drop coupon id: %+v", stored)
	}
}

func TestCouponAssignmentRepositoryIdempotent(t *testing.T) {
	db := setupCouponRepositoryTest(t)
	repo := NewCouponAssignmentRepository(db)
	coupon := createRepoTestCoupon(t, db, "VIP", nil)
	now := time.Now().UTC()

	if err := repo.AddUsers(coupon.ID, []uint{8, 7}, now); err != nil {
		t.Fatalf("add users failed: %v", err)
	}
	if err := repo.AddUsers(coupon.ID, []uint{7, 9}, now); err != nil {
		t.Fatalf("re-add users failed: %v", err)
	}
	ids, err := repo.ListUserIDs(coupon.ID)
	if err != nil {
		t.Fatalf("list user ids failed: %v", err)
	}
	if len(ids) != 3 || ids[0] != 7 || ids[1] != 8 || ids[2] != 9 {
		t.Fatalf("unexpected assignment set: %v", ids)
	}

	if err := repo.RemoveUsers(coupon.ID, []uint{9, 42}); err != nil {
		t.Fatalf("remove users failed: %v", err)
	}
	ok, err := repo.Exists(coupon.ID, 9)
	if err != nil || ok {
		t.Fatalf("user 9 should be removed, got %v err=%v", ok, err)
	}
	counts, err := repo.CountByCouponIDs([]uint{coupon.ID})
	if err != nil || counts[coupon.ID] != 2 {
		t.Fatalf("count want 2 got %v err=%v", counts, err)
	}
}
