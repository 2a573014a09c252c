//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/storefront/coupon-engine/internal/constants"
	"github.com/storefront/coupon-engine/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := []interface{}{
		&models.CouponUsage{},
		&models.CouponAssignment{},
		&models.Coupon{},
		&models.User{},
	}
	_ = db.Migrator().DropTable(cleanupModels...)

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func createPostgresCoupon(t *testing.T, db *gorm.DB, code string, maxUses int) *models.Coupon {
	t.Helper()
	now := time.Now().UTC()
	coupon := &models.Coupon{
		Code:           code,
		CodeKey:        models.NormalizeCouponCode(code),
		DiscountType:   constants.CouponTypePercentage,
		DiscountValue:  models.NewNumeric(decimal.NewFromInt(10)),
		ValidFrom:      now.Add(-time.Hour),
		ValidUntil:     now.Add(time.Hour),
		MaxUses:        maxUses,
		MaxUsesPerUser: 1,
		Scope:          constants.CouponScopeGeneral,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := db.Create(coupon).Error; err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}
	return coupon
}

func TestPostgresIncrementUsageNeverExceedsLimit(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	coupon := createPostgresCoupon(t, db, "PGRACE", 5)
	repo := NewCouponRepository(db)

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Transaction(func(tx *gorm.DB) error {
				txRepo := repo.WithTx(tx)
				if _, err := txRepo.GetByIDForUpdate(coupon.ID); err != nil {
					return err
				}
				ok, err := txRepo.IncrementUsage(coupon.ID, time.Now().UTC())
				if err != nil {
					return err
				}
				if ok {
					mu.Lock()
					granted++
					mu.Unlock()
				}
				return nil
			})
			if err != nil {
				t.Errorf("transaction failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if granted != 5 {
		t.Fatalf("granted want 5 got %d", granted)
	}
	stored, err := repo.GetByID(coupon.ID)
	if err != nil {
		t.Fatalf("get coupon failed: %v", err)
	}
	if stored.CurrentUses != 5 {
		t.Fatalf("current_uses want 5 got %d", stored.CurrentUses)
	}
}

func TestPostgresCouponKeywordAndCodeKey(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	createPostgresCoupon(t, db, "Summer_Sale", 10)
	createPostgresCoupon(t, db, "WINTER", 10)
	repo := NewCouponRepository(db)

	coupons, total, err := repo.List(CouponListFilter{Page: 1, PageSize: 20, Keyword: "summer_"})
	if err != nil {
		t.Fatalf("list coupons failed: %v", err)
	}
	if total != 1 || len(coupons) != 1 || coupons[0].Code != "Summer_Sale" {
		t.Fatalf("unexpected keyword result: total=%d coupons=%+v", total, coupons)
	}

	found, err := repo.GetByCode("summer_sale")
	if err != nil || found == nil {
		t.Fatalf("case-insensitive lookup failed: %v", err)
	}

	dup := &models.Coupon{
		Code:           "winter",
		CodeKey:        models.NormalizeCouponCode("winter"),
		DiscountType:   constants.CouponTypeFixedAmount,
		DiscountValue:  models.NewNumeric(decimal.NewFromInt(100)),
		ValidFrom:      time.Now().UTC(),
		ValidUntil:     time.Now().UTC().Add(time.Hour),
		MaxUses:        1,
		MaxUsesPerUser: 1,
		Scope:          constants.CouponScopeGeneral,
		IsActive:       true,
	}
	if err := repo.Create(dup); err == nil {
		t.Fatalf("duplicate code key should be rejected")
	}
}

func TestPostgresDetachCouponKeepsLedger(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	coupon := createPostgresCoupon(t, db, "PGLEDGER", 10)
	usageRepo := NewCouponUsageRepository(db)

	orderNo := "PG-ORDER-1"
	usage := &models.CouponUsage{
		CouponID:       &coupon.ID,
		CouponCode:     coupon.Code,
		UserID:         1,
		OrderNo:        &orderNo,
		DiscountAmount: 250,
		CreatedAt:      time.Now().UTC(),
	}
	if err := usageRepo.Create(usage); err != nil {
		t.Fatalf("create usage failed: %v", err)
	}

	detached, err := usageRepo.DetachCoupon(coupon.ID)
	if err != nil {
		t.Fatalf("detach failed: %v", err)
	}
	if detached != 1 {
		t.Fatalf("detached want 1 got %d", detached)
	}
	var stored models.CouponUsage
	if err := db.First(&stored, usage.ID).Error; err != nil {
		t.Fatalf("reload usage failed: %v", err)
	}
	if stored.CouponID != nil || stored.CouponCode != "PGLEDGER" {
		t.Fatalf("unexpected detached usage: %+v", stored)
	}
}
