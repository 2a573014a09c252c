package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/storefront/coupon-engine/internal/cache"
	"github.com/storefront/coupon-engine/internal/constants"
	"github.com/storefront/coupon-engine/internal/logger"
	"github.com/storefront/coupon-engine/internal/models"
	"github.com/storefront/coupon-engine/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var couponCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// CouponAdminService 优惠券管理服务
type CouponAdminService struct {
	couponRepo       repository.CouponRepository
	usageRepo        repository.CouponUsageRepository
	assignmentRepo   repository.CouponAssignmentRepository
	allowForceDelete bool
	now              func() time.Time
}

// NewCouponAdminService 创建优惠券管理服务
func NewCouponAdminService(
	couponRepo repository.CouponRepository,
	usageRepo repository.CouponUsageRepository,
	assignmentRepo repository.CouponAssignmentRepository,
	allowForceDelete bool,
) *CouponAdminService {
	return &CouponAdminService{
		couponRepo:       couponRepo,
		usageRepo:        usageRepo,
		assignmentRepo:   assignmentRepo,
		allowForceDelete: allowForceDelete,
		now:              utcNow,
	}
}

// CreateCouponInput 创建优惠券输入
type CreateCouponInput struct {
	Code            string
	DiscountType    string
	DiscountValue   models.Numeric
	MinCartValue    *int64
	MinItemQuantity *int
	ValidFrom       time.Time
	ValidUntil      time.Time
	MaxUses         int
	MaxUsesPerUser  int
	Scope           string
	IsActive        *bool
}

// UpdateCouponInput 更新优惠券输入（仅非 nil 字段生效）
type UpdateCouponInput struct {
	Code                 *string
	DiscountType         *string
	DiscountValue        *models.Numeric
	MinCartValue         *int64
	ClearMinCartValue    bool
	MinItemQuantity      *int
	ClearMinItemQuantity bool
	ValidFrom            *time.Time
	ValidUntil           *time.Time
	MaxUses              *int
	MaxUsesPerUser       *int
	Scope                *string
	IsActive             *bool
}

// CouponSummary 列表展示用的优惠券汇总
type CouponSummary struct {
	Coupon        models.Coupon
	Status        string
	AssignedUsers int64
	TotalDiscount int64
}

// ParseDiscountType 解析折扣类型（兼容宽松写法），返回规范值
func ParseDiscountType(raw string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	switch normalized {
	case "percentage", "percent", "pct", "%":
		return constants.CouponTypePercentage, true
	case "fixed_amount", "fixed", "amount", "fixedamount", "flat":
		return constants.CouponTypeFixedAmount, true
	default:
		return "", false
	}
}

// ParseCouponScope 解析适用范围（兼容宽松写法），返回规范值
func ParseCouponScope(raw string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	switch normalized {
	case "general", "all", "public":
		return constants.CouponScopeGeneral, true
	case "specific_users", "specific", "users", "targeted":
		return constants.CouponScopeSpecificUsers, true
	default:
		return "", false
	}
}

// Create 创建优惠券
func (s *CouponAdminService) Create(input CreateCouponInput) (*models.Coupon, error) {
	discountType, ok := ParseDiscountType(input.DiscountType)
	if !ok {
		return nil, newValidationError("discount_type", "unsupported")
	}
	scope := constants.CouponScopeGeneral
	if strings.TrimSpace(input.Scope) != "" {
		if scope, ok = ParseCouponScope(input.Scope); !ok {
			return nil, newValidationError("scope", "unsupported")
		}
	}
	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	code := strings.TrimSpace(input.Code)
	coupon := &models.Coupon{
		Code:            code,
		CodeKey:         models.NormalizeCouponCode(code),
		DiscountType:    discountType,
		DiscountValue:   models.NewNumeric(input.DiscountValue.Decimal),
		MinCartValue:    input.MinCartValue,
		MinItemQuantity: input.MinItemQuantity,
		ValidFrom:       input.ValidFrom.UTC(),
		ValidUntil:      input.ValidUntil.UTC(),
		MaxUses:         input.MaxUses,
		MaxUsesPerUser:  input.MaxUsesPerUser,
		CurrentUses:     0,
		Scope:           scope,
		IsActive:        isActive,
	}
	if err := validateCouponDefinition(coupon); err != nil {
		return nil, err
	}

	exist, err := s.couponRepo.GetByCode(coupon.CodeKey)
	if err != nil {
		return nil, wrapStorageError("get coupon by code", err)
	}
	if exist != nil {
		return nil, newValidationError("code", "already exists")
	}

	now := s.now()
	coupon.CreatedAt = now
	coupon.UpdatedAt = now
	if err := s.couponRepo.Create(coupon); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, newValidationError("code", "already exists")
		}
		return nil, wrapStorageError("create coupon", err)
	}
	invalidateCouponMeta(coupon.Code)
	logger.Infow("coupon_created", "coupon_id", coupon.ID, "code", coupon.Code)
	return coupon, nil
}

// Update 部分更新优惠券定义；范围改为 GENERAL 时同一事务内清空定向用户
func (s *CouponAdminService) Update(id uint, input UpdateCouponInput) (*models.Coupon, error) {
	if id == 0 {
		return nil, newValidationError("id", "required")
	}

	var updated *models.Coupon
	var previousCode string
	err := s.couponRepo.Transaction(func(tx *gorm.DB) error {
		couponRepo := s.couponRepo.WithTx(tx)
		existing, err := couponRepo.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrCouponNotFound
		}
		previousCode = existing.Code
		previousScope := existing.Scope

		if err := applyCouponPatch(existing, input); err != nil {
			return err
		}
		if err := validateCouponDefinition(existing); err != nil {
			return err
		}
		if existing.MaxUses < existing.CurrentUses {
			return newValidationError("max_uses", "must not be below current uses")
		}

		if existing.CodeKey != models.NormalizeCouponCode(previousCode) {
			dup, err := couponRepo.GetByCode(existing.CodeKey)
			if err != nil {
				return err
			}
			if dup != nil && dup.ID != existing.ID {
				return newValidationError("code", "already exists")
			}
		}

		existing.UpdatedAt = s.now()
		if err := couponRepo.Update(existing); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return newValidationError("code", "already exists")
			}
			return err
		}
		if previousScope == constants.CouponScopeSpecificUsers && existing.Scope != constants.CouponScopeSpecificUsers {
			if err := s.assignmentRepo.WithTx(tx).DeleteByCoupon(existing.ID); err != nil {
				return err
			}
		}
		updated = existing
		return nil
	})
	if err != nil {
		return nil, wrapStorageError("update coupon", err)
	}
	invalidateCouponMeta(previousCode, updated.Code)
	logger.Infow("coupon_updated", "coupon_id", updated.ID, "code", updated.Code)
	return updated, nil
}

// ToggleActive 切换启用状态
func (s *CouponAdminService) ToggleActive(id uint) (*models.Coupon, error) {
	if id == 0 {
		return nil, newValidationError("id", "required")
	}
	var toggled *models.Coupon
	err := s.couponRepo.Transaction(func(tx *gorm.DB) error {
		couponRepo := s.couponRepo.WithTx(tx)
		existing, err := couponRepo.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrCouponNotFound
		}
		now := s.now()
		if err := couponRepo.SetActive(existing.ID, !existing.IsActive, now); err != nil {
			return err
		}
		existing.IsActive = !existing.IsActive
		existing.UpdatedAt = now
		toggled = existing
		return nil
	})
	if err != nil {
		return nil, wrapStorageError("toggle coupon", err)
	}
	invalidateCouponMeta(toggled.Code)
	logger.Infow("coupon_toggled", "coupon_id", toggled.ID, "is_active", toggled.IsActive)
	return toggled, nil
}

// Delete 删除优惠券；存在使用记录时需 force，force 删除保留账本快照并解除关联
func (s *CouponAdminService) Delete(id uint, force bool) error {
	if id == 0 {
		return newValidationError("id", "required")
	}
	if force && !s.allowForceDelete {
		return ErrForceDeleteDisabled
	}

	var deleted *models.Coupon
	var detached int64
	err := s.couponRepo.Transaction(func(tx *gorm.DB) error {
		couponRepo := s.couponRepo.WithTx(tx)
		usageRepo := s.usageRepo.WithTx(tx)
		existing, err := couponRepo.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrCouponNotFound
		}
		used, err := usageRepo.ExistsByCoupon(existing.ID)
		if err != nil {
			return err
		}
		if used {
			if !force {
				return ErrCouponInUse
			}
			if detached, err = usageRepo.DetachCoupon(existing.ID); err != nil {
				return err
			}
		}
		if err := s.assignmentRepo.WithTx(tx).DeleteByCoupon(existing.ID); err != nil {
			return err
		}
		if err := couponRepo.Delete(existing.ID); err != nil {
			return err
		}
		deleted = existing
		return nil
	})
	if err != nil {
		return wrapStorageError("delete coupon", err)
	}
	invalidateCouponMeta(deleted.Code)
	logger.Infow("coupon_deleted",
		"coupon_id", deleted.ID,
		"code", deleted.Code,
		"force", force,
		"detached_usages", detached,
	)
	return nil
}

// Get 获取优惠券
func (s *CouponAdminService) Get(id uint) (*models.Coupon, error) {
	if id == 0 {
		return nil, newValidationError("id", "required")
	}
	coupon, err := s.couponRepo.GetByID(id)
	if err != nil {
		return nil, wrapStorageError("get coupon", err)
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	return coupon, nil
}

// List 获取优惠券列表（附派生状态、定向人数与累计抵扣）
func (s *CouponAdminService) List(filter repository.CouponListFilter) ([]CouponSummary, int64, error) {
	if filter.Now.IsZero() {
		filter.Now = s.now()
	}
	coupons, total, err := s.couponRepo.List(filter)
	if err != nil {
		return nil, 0, wrapStorageError("list coupons", err)
	}
	ids := make([]uint, 0, len(coupons))
	for _, coupon := range coupons {
		ids = append(ids, coupon.ID)
	}
	assigned, err := s.assignmentRepo.CountByCouponIDs(ids)
	if err != nil {
		return nil, 0, wrapStorageError("count coupon assignments", err)
	}
	discounts, err := s.usageRepo.SumDiscountByCouponIDs(ids)
	if err != nil {
		return nil, 0, wrapStorageError("sum coupon discounts", err)
	}

	summaries := make([]CouponSummary, 0, len(coupons))
	for _, coupon := range coupons {
		summaries = append(summaries, CouponSummary{
			Coupon:        coupon,
			Status:        coupon.StatusAt(filter.Now),
			AssignedUsers: assigned[coupon.ID],
			TotalDiscount: discounts[coupon.ID],
		})
	}
	return summaries, total, nil
}

func applyCouponPatch(coupon *models.Coupon, input UpdateCouponInput) error {
	if input.Code != nil {
		code := strings.TrimSpace(*input.Code)
		coupon.Code = code
		coupon.CodeKey = models.NormalizeCouponCode(code)
	}
	if input.DiscountType != nil {
		discountType, ok := ParseDiscountType(*input.DiscountType)
		if !ok {
			return newValidationError("discount_type", "unsupported")
		}
		coupon.DiscountType = discountType
	}
	if input.DiscountValue != nil {
		coupon.DiscountValue = models.NewNumeric(input.DiscountValue.Decimal)
	}
	if input.ClearMinCartValue {
		coupon.MinCartValue = nil
	} else if input.MinCartValue != nil {
		value := *input.MinCartValue
		coupon.MinCartValue = &value
	}
	if input.ClearMinItemQuantity {
		coupon.MinItemQuantity = nil
	} else if input.MinItemQuantity != nil {
		value := *input.MinItemQuantity
		coupon.MinItemQuantity = &value
	}
	if input.ValidFrom != nil {
		coupon.ValidFrom = input.ValidFrom.UTC()
	}
	if input.ValidUntil != nil {
		coupon.ValidUntil = input.ValidUntil.UTC()
	}
	if input.MaxUses != nil {
		coupon.MaxUses = *input.MaxUses
	}
	if input.MaxUsesPerUser != nil {
		coupon.MaxUsesPerUser = *input.MaxUsesPerUser
	}
	if input.Scope != nil {
		scope, ok := ParseCouponScope(*input.Scope)
		if !ok {
			return newValidationError("scope", "unsupported")
		}
		coupon.Scope = scope
	}
	if input.IsActive != nil {
		coupon.IsActive = *input.IsActive
	}
	return nil
}

// validateCouponDefinition 写入前校验优惠券定义，任一字段不合法即拒绝
func validateCouponDefinition(coupon *models.Coupon) error {
	length := len(coupon.Code)
	if length < constants.CouponCodeMinLength || length > constants.CouponCodeMaxLength {
		return newValidationError("code", "length must be between 3 and 20")
	}
	if !couponCodePattern.MatchString(coupon.Code) {
		return newValidationError("code", "only letters, digits, '-' and '_' are allowed")
	}

	value := coupon.DiscountValue.Decimal
	if !value.IsPositive() {
		return newValidationError("discount_value", "must be positive")
	}
	switch coupon.DiscountType {
	case constants.CouponTypePercentage:
		if value.GreaterThan(decimal.NewFromInt(100)) {
			return newValidationError("discount_value", "percentage must not exceed 100")
		}
	case constants.CouponTypeFixedAmount:
	default:
		return newValidationError("discount_type", "unsupported")
	}

	if coupon.MinCartValue != nil && *coupon.MinCartValue < 0 {
		return newValidationError("min_cart_value", "must not be negative")
	}
	if coupon.MinItemQuantity != nil && *coupon.MinItemQuantity < 0 {
		return newValidationError("min_item_quantity", "must not be negative")
	}
	if coupon.ValidFrom.IsZero() {
		return newValidationError("valid_from", "required")
	}
	if coupon.ValidUntil.IsZero() {
		return newValidationError("valid_until", "required")
	}
	if coupon.ValidUntil.Before(coupon.ValidFrom) {
		return newValidationError("valid_until", "must not be before valid_from")
	}
	if coupon.MaxUses <= 0 {
		return newValidationError("max_uses", "must be positive")
	}
	if coupon.MaxUsesPerUser <= 0 {
		return newValidationError("max_uses_per_user", "must be positive")
	}
	if coupon.Scope != constants.CouponScopeGeneral && coupon.Scope != constants.CouponScopeSpecificUsers {
		return newValidationError("scope", "unsupported")
	}
	return nil
}

func invalidateCouponMeta(codes ...string) {
	if err := cache.DelCouponMeta(context.Background(), codes...); err != nil {
		logger.Warnw("coupon_meta_cache_invalidate_failed", "codes", codes, "error", err)
	}
}
