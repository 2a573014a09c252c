package service

import (
	"sort"
	"time"

	"github.com/storefront/coupon-engine/internal/constants"
	"github.com/storefront/coupon-engine/internal/logger"
	"github.com/storefront/coupon-engine/internal/repository"

	"gorm.io/gorm"
)

// CouponAssignmentService 定向优惠券用户集合管理
type CouponAssignmentService struct {
	couponRepo     repository.CouponRepository
	assignmentRepo repository.CouponAssignmentRepository
	userRepo       repository.UserRepository
	now            func() time.Time
}

// NewCouponAssignmentService 创建定向用户服务
func NewCouponAssignmentService(
	couponRepo repository.CouponRepository,
	assignmentRepo repository.CouponAssignmentRepository,
	userRepo repository.UserRepository,
) *CouponAssignmentService {
	return &CouponAssignmentService{
		couponRepo:     couponRepo,
		assignmentRepo: assignmentRepo,
		userRepo:       userRepo,
		now:            utcNow,
	}
}

// Add 批量添加定向用户，任一用户不存在则整批失败
func (s *CouponAssignmentService) Add(couponID uint, userIDs []uint) ([]uint, error) {
	ids, err := normalizeAssignmentUserIDs(userIDs)
	if err != nil {
		return nil, err
	}

	var result []uint
	err = s.couponRepo.Transaction(func(tx *gorm.DB) error {
		if err := s.lockSpecificCoupon(tx, couponID); err != nil {
			return err
		}
		existing, err := s.userRepo.WithTx(tx).ListExistingIDs(ids)
		if err != nil {
			return err
		}
		if missing := diffUserIDs(ids, existing); len(missing) > 0 {
			return &UnknownUsersError{UserIDs: missing}
		}
		assignmentRepo := s.assignmentRepo.WithTx(tx)
		if err := assignmentRepo.AddUsers(couponID, ids, s.now()); err != nil {
			return err
		}
		result, err = assignmentRepo.ListUserIDs(couponID)
		return err
	})
	if err != nil {
		return nil, wrapStorageError("add coupon assignments", err)
	}
	logger.Infow("coupon_assignments_added", "coupon_id", couponID, "user_ids", ids)
	return result, nil
}

// Remove 批量移除定向用户，未在集合中的用户忽略
func (s *CouponAssignmentService) Remove(couponID uint, userIDs []uint) ([]uint, error) {
	ids, err := normalizeAssignmentUserIDs(userIDs)
	if err != nil {
		return nil, err
	}

	var result []uint
	err = s.couponRepo.Transaction(func(tx *gorm.DB) error {
		if err := s.lockSpecificCoupon(tx, couponID); err != nil {
			return err
		}
		assignmentRepo := s.assignmentRepo.WithTx(tx)
		if err := assignmentRepo.RemoveUsers(couponID, ids); err != nil {
			return err
		}
		result, err = assignmentRepo.ListUserIDs(couponID)
		return err
	})
	if err != nil {
		return nil, wrapStorageError("remove coupon assignments", err)
	}
	logger.Infow("coupon_assignments_removed", "coupon_id", couponID, "user_ids", ids)
	return result, nil
}

// List 获取定向用户集合
func (s *CouponAssignmentService) List(couponID uint) ([]uint, error) {
	if couponID == 0 {
		return nil, newValidationError("id", "required")
	}
	coupon, err := s.couponRepo.GetByID(couponID)
	if err != nil {
		return nil, wrapStorageError("get coupon", err)
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	if coupon.Scope != constants.CouponScopeSpecificUsers {
		return nil, ErrCouponScopeMismatch
	}
	ids, err := s.assignmentRepo.ListUserIDs(couponID)
	if err != nil {
		return nil, wrapStorageError("list coupon assignments", err)
	}
	return ids, nil
}

func (s *CouponAssignmentService) lockSpecificCoupon(tx *gorm.DB, couponID uint) error {
	if couponID == 0 {
		return newValidationError("id", "required")
	}
	coupon, err := s.couponRepo.WithTx(tx).GetByIDForUpdate(couponID)
	if err != nil {
		return err
	}
	if coupon == nil {
		return ErrCouponNotFound
	}
	if coupon.Scope != constants.CouponScopeSpecificUsers {
		return ErrCouponScopeMismatch
	}
	return nil
}

func normalizeAssignmentUserIDs(userIDs []uint) ([]uint, error) {
	if len(userIDs) == 0 {
		return nil, newValidationError("user_ids", "required")
	}
	seen := make(map[uint]struct{}, len(userIDs))
	ids := make([]uint, 0, len(userIDs))
	for _, id := range userIDs {
		if id == 0 {
			return nil, newValidationError("user_ids", "must be positive")
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func diffUserIDs(want, existing []uint) []uint {
	found := make(map[uint]struct{}, len(existing))
	for _, id := range existing {
		found[id] = struct{}{}
	}
	missing := make([]uint, 0)
	for _, id := range want {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
