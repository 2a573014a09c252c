package service

import (
	"context"
	"sync"
	"time"

	"github.com/storefront/coupon-engine/internal/logger"
	"github.com/storefront/coupon-engine/internal/models"
	"github.com/storefront/coupon-engine/internal/repository"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const defaultReconcileConcurrency = 4

// CouponUsageService 优惠券使用账本服务
type CouponUsageService struct {
	couponRepo repository.CouponRepository
	usageRepo  repository.CouponUsageRepository
	now        func() time.Time
}

// CouponReconcileResult 单个优惠券的计数对账结果
type CouponReconcileResult struct {
	CouponID    uint  `json:"coupon_id"`
	CurrentUses int   `json:"current_uses"`
	LedgerCount int64 `json:"ledger_count"`
	Repaired    bool  `json:"repaired"`
}

// CouponReconcileReport 批量对账汇总
type CouponReconcileReport struct {
	Checked  int `json:"checked"`
	Repaired int `json:"repaired"`
	Failed   int `json:"failed"`
}

// NewCouponUsageService 创建使用账本服务
func NewCouponUsageService(couponRepo repository.CouponRepository, usageRepo repository.CouponUsageRepository) *CouponUsageService {
	return &CouponUsageService{
		couponRepo: couponRepo,
		usageRepo:  usageRepo,
		now:        utcNow,
	}
}

// ListForCoupon 分页获取优惠券使用记录（按创建时间升序）
func (s *CouponUsageService) ListForCoupon(filter repository.CouponUsageListFilter) ([]models.CouponUsage, int64, error) {
	if err := s.ensureCoupon(filter.CouponID); err != nil {
		return nil, 0, err
	}
	usages, total, err := s.usageRepo.ListByCoupon(filter)
	if err != nil {
		return nil, 0, wrapStorageError("list coupon usages", err)
	}
	return usages, total, nil
}

// CountTotal 获取优惠券总使用次数
func (s *CouponUsageService) CountTotal(couponID uint) (int64, error) {
	count, err := s.usageRepo.CountByCoupon(couponID)
	if err != nil {
		return 0, wrapStorageError("count coupon usages", err)
	}
	return count, nil
}

// CountForUser 获取用户对优惠券的使用次数
func (s *CouponUsageService) CountForUser(couponID, userID uint) (int64, error) {
	count, err := s.usageRepo.CountByUser(couponID, userID)
	if err != nil {
		return 0, wrapStorageError("count coupon usages by user", err)
	}
	return count, nil
}

// SumDiscount 统计优惠券累计抵扣金额
func (s *CouponUsageService) SumDiscount(couponID uint) (int64, error) {
	total, err := s.usageRepo.SumDiscount(couponID)
	if err != nil {
		return 0, wrapStorageError("sum coupon discount", err)
	}
	return total, nil
}

// Reconcile 对比计数与账本记录数，计数落后时上调（计数不回退）
func (s *CouponUsageService) Reconcile(couponID uint) (*CouponReconcileResult, error) {
	if couponID == 0 {
		return nil, newValidationError("id", "required")
	}
	var result *CouponReconcileResult
	err := s.couponRepo.Transaction(func(tx *gorm.DB) error {
		couponRepo := s.couponRepo.WithTx(tx)
		coupon, err := couponRepo.GetByIDForUpdate(couponID)
		if err != nil {
			return err
		}
		if coupon == nil {
			return ErrCouponNotFound
		}
		count, err := s.usageRepo.WithTx(tx).CountByCoupon(couponID)
		if err != nil {
			return err
		}
		result = &CouponReconcileResult{
			CouponID:    coupon.ID,
			CurrentUses: coupon.CurrentUses,
			LedgerCount: count,
		}
		if count <= int64(coupon.CurrentUses) {
			if count < int64(coupon.CurrentUses) {
				logger.Warnw("coupon_usage_counter_ahead_of_ledger",
					"coupon_id", coupon.ID,
					"current_uses", coupon.CurrentUses,
					"ledger_count", count,
				)
			}
			return nil
		}
		target := int(count)
		if target > coupon.MaxUses {
			target = coupon.MaxUses
		}
		if target <= coupon.CurrentUses {
			return nil
		}
		if err := couponRepo.RepairUsage(coupon.ID, target, s.now()); err != nil {
			return err
		}
		result.CurrentUses = target
		result.Repaired = true
		return nil
	})
	if err != nil {
		return nil, wrapStorageError("reconcile coupon usage", err)
	}
	if result.Repaired {
		logger.Warnw("coupon_usage_counter_repaired",
			"coupon_id", result.CouponID,
			"current_uses", result.CurrentUses,
			"ledger_count", result.LedgerCount,
		)
	}
	return result, nil
}

// ReconcileAll 并发对账全部优惠券
func (s *CouponUsageService) ReconcileAll(ctx context.Context, concurrency int) (*CouponReconcileReport, error) {
	ids, err := s.couponRepo.ListAllIDs()
	if err != nil {
		return nil, wrapStorageError("list coupon ids", err)
	}
	if concurrency <= 0 {
		concurrency = defaultReconcileConcurrency
	}

	report := &CouponReconcileReport{}
	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)
	for _, id := range ids {
		couponID := id
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			result, err := s.Reconcile(couponID)
			mu.Lock()
			defer mu.Unlock()
			report.Checked++
			if err != nil {
				// 单个优惠券失败不影响其余对账
				report.Failed++
				logger.Warnw("coupon_reconcile_failed", "coupon_id", couponID, "error", err)
				return nil
			}
			if result.Repaired {
				report.Repaired++
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return report, err
	}
	return report, nil
}

func (s *CouponUsageService) ensureCoupon(couponID uint) error {
	if couponID == 0 {
		return newValidationError("id", "required")
	}
	coupon, err := s.couponRepo.GetByID(couponID)
	if err != nil {
		return wrapStorageError("get coupon", err)
	}
	if coupon == nil {
		return ErrCouponNotFound
	}
	return nil
}
