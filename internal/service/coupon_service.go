package service

import (
	"context"
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

const couponOrderNoMaxLength = 64

// CartSnapshot 购物车快照（只读）
type CartSnapshot struct {
	Subtotal  int64
	ItemCount int
	UserID    uint
}

// CouponDecision 优惠券判定结果
type CouponDecision struct {
	Applicable     bool
	DiscountAmount int64
	Reason         string
	Coupon         *models.Coupon
}

// CouponRedeemInput 核销输入
type CouponRedeemInput struct {
	Code    string
	Cart    CartSnapshot
	OrderNo string
}

// CouponRedemption 核销结果
type CouponRedemption struct {
	Decision CouponDecision
	Usage    *models.CouponUsage
	Replayed bool // 同一订单号重复提交，返回已有记录
}

// CouponService 优惠券判定与核销服务
type CouponService struct {
	couponRepo     repository.CouponRepository
	usageRepo      repository.CouponUsageRepository
	assignmentRepo repository.CouponAssignmentRepository
	metaTTL        time.Duration
	now            func() time.Time
}

// NewCouponService 创建优惠券服务
func NewCouponService(
	couponRepo repository.CouponRepository,
	usageRepo repository.CouponUsageRepository,
	assignmentRepo repository.CouponAssignmentRepository,
	metaTTL time.Duration,
) *CouponService {
	return &CouponService{
		couponRepo:     couponRepo,
		usageRepo:      usageRepo,
		assignmentRepo: assignmentRepo,
		metaTTL:        metaTTL,
		now:            utcNow,
	}
}

func utcNow() time.Time {
	return time.Now().UTC()
}

// Evaluate 判定优惠码对购物车是否可用并计算折扣，不产生任何写入
func (s *CouponService) Evaluate(ctx context.Context, code string, cart CartSnapshot) (*CouponDecision, error) {
	if err := validateCartSnapshot(cart); err != nil {
		return nil, err
	}
	key := models.NormalizeCouponCode(code)
	if key == "" {
		return rejectCoupon(nil, constants.CouponReasonNotFound), nil
	}
	now := s.now()

	// 元数据缓存只用于提前拒绝，放行时仍以数据库为准
	if meta := s.lookupMeta(ctx, key); meta != nil {
		if reason := checkCouponWindow(meta.IsActive, meta.ValidFrom, meta.ValidUntil, now); reason != "" {
			return rejectCoupon(nil, reason), nil
		}
	}

	coupon, err := s.couponRepo.GetByCode(key)
	if err != nil {
		return nil, wrapStorageError("get coupon by code", err)
	}
	if coupon == nil {
		return rejectCoupon(nil, constants.CouponReasonNotFound), nil
	}
	s.storeMeta(ctx, coupon)

	return evaluateCoupon(s.usageRepo, s.assignmentRepo, coupon, cart, now)
}

// Redeem 在单个事务内重新判定并核销：锁定优惠券行、条件自增计数、追加使用记录
func (s *CouponService) Redeem(ctx context.Context, input CouponRedeemInput) (*CouponRedemption, error) {
	if err := validateCartSnapshot(input.Cart); err != nil {
		return nil, err
	}
	orderNo := strings.TrimSpace(input.OrderNo)
	if len(orderNo) > couponOrderNoMaxLength {
		return nil, newValidationError("order_no", "too long")
	}
	key := models.NormalizeCouponCode(input.Code)
	if key == "" {
		return &CouponRedemption{Decision: *rejectCoupon(nil, constants.CouponReasonNotFound)}, nil
	}

	coupon, err := s.couponRepo.GetByCode(key)
	if err != nil {
		return nil, wrapStorageError("get coupon by code", err)
	}
	if coupon == nil {
		return &CouponRedemption{Decision: *rejectCoupon(nil, constants.CouponReasonNotFound)}, nil
	}

	var result *CouponRedemption
	err = s.couponRepo.Transaction(func(tx *gorm.DB) error {
		couponRepo := s.couponRepo.WithTx(tx)
		usageRepo := s.usageRepo.WithTx(tx)
		assignmentRepo := s.assignmentRepo.WithTx(tx)

		locked, err := couponRepo.GetByIDForUpdate(coupon.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			result = &CouponRedemption{Decision: *rejectCoupon(nil, constants.CouponReasonNotFound)}
			return nil
		}

		if orderNo != "" {
			existing, err := usageRepo.GetByOrderNo(locked.ID, orderNo)
			if err != nil {
				return err
			}
			if existing != nil {
				if existing.UserID != input.Cart.UserID {
					return newValidationError("order_no", "already redeemed by another user")
				}
				result = &CouponRedemption{
					Decision: CouponDecision{
						Applicable:     true,
						DiscountAmount: existing.DiscountAmount,
						Coupon:         locked,
					},
					Usage:    existing,
					Replayed: true,
				}
				return nil
			}
		}

		now := s.now()
		decision, err := evaluateCoupon(usageRepo, assignmentRepo, locked, input.Cart, now)
		if err != nil {
			return err
		}
		if !decision.Applicable {
			result = &CouponRedemption{Decision: *decision}
			return nil
		}

		ok, err := couponRepo.IncrementUsage(locked.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			result = &CouponRedemption{Decision: *rejectCoupon(locked, constants.CouponReasonGlobalLimitReached)}
			return nil
		}

		usage := &models.CouponUsage{
			CouponID:       &locked.ID,
			CouponCode:     locked.Code,
			UserID:         input.Cart.UserID,
			DiscountAmount: decision.DiscountAmount,
			CreatedAt:      now,
		}
		if orderNo != "" {
			usage.OrderNo = &orderNo
		}
		if err := usageRepo.Create(usage); err != nil {
			return err
		}
		locked.CurrentUses++
		result = &CouponRedemption{Decision: *decision, Usage: usage}
		return nil
	})
	if err != nil {
		wrapped := wrapStorageError("redeem coupon", err)
		if _, ok := wrapped.(*StorageError); ok {
			logger.Warnw("coupon_redeem_failed",
				"coupon_id", coupon.ID,
				"user_id", input.Cart.UserID,
				"order_no", orderNo,
				"error", err,
			)
		}
		return nil, wrapped
	}
	if result.Usage != nil && !result.Replayed {
		logger.Infow("coupon_redeemed",
			"coupon_id", coupon.ID,
			"user_id", input.Cart.UserID,
			"order_no", orderNo,
			"discount_amount", result.Decision.DiscountAmount,
		)
	}
	return result, nil
}

// evaluateCoupon 按固定顺序执行判定步骤（状态、有效期、总量、单人、定向、门槛、件数、折扣）
func evaluateCoupon(
	usageRepo repository.CouponUsageRepository,
	assignmentRepo repository.CouponAssignmentRepository,
	coupon *models.Coupon,
	cart CartSnapshot,
	now time.Time,
) (*CouponDecision, error) {
	if reason := checkCouponWindow(coupon.IsActive, coupon.ValidFrom, coupon.ValidUntil, now); reason != "" {
		return rejectCoupon(coupon, reason), nil
	}
	if coupon.CurrentUses >= coupon.MaxUses {
		return rejectCoupon(coupon, constants.CouponReasonGlobalLimitReached), nil
	}

	used, err := usageRepo.CountByUser(coupon.ID, cart.UserID)
	if err != nil {
		return nil, wrapStorageError("count usage by user", err)
	}
	if used >= int64(coupon.MaxUsesPerUser) {
		return rejectCoupon(coupon, constants.CouponReasonUserLimitReached), nil
	}

	if coupon.Scope == constants.CouponScopeSpecificUsers {
		assigned, err := assignmentRepo.Exists(coupon.ID, cart.UserID)
		if err != nil {
			return nil, wrapStorageError("check coupon assignment", err)
		}
		if !assigned {
			return rejectCoupon(coupon, constants.CouponReasonNotEligible), nil
		}
	}

	if coupon.MinCartValue != nil && cart.Subtotal < *coupon.MinCartValue {
		return rejectCoupon(coupon, constants.CouponReasonCartTooLow), nil
	}
	if coupon.MinItemQuantity != nil && cart.ItemCount < *coupon.MinItemQuantity {
		return rejectCoupon(coupon, constants.CouponReasonNotEnoughItems), nil
	}

	discount, err := calculateCouponDiscount(coupon, cart.Subtotal)
	if err != nil {
		return nil, err
	}
	return &CouponDecision{
		Applicable:     true,
		DiscountAmount: discount,
		Coupon:         coupon,
	}, nil
}

func checkCouponWindow(active bool, validFrom, validUntil, now time.Time) string {
	if !active {
		return constants.CouponReasonInactive
	}
	if now.Before(validFrom) {
		return constants.CouponReasonNotYetValid
	}
	if now.After(validUntil) {
		return constants.CouponReasonExpired
	}
	return ""
}

// calculateCouponDiscount 计算折扣金额（最小货币单位，四舍五入，不超过小计）
func calculateCouponDiscount(coupon *models.Coupon, subtotal int64) (int64, error) {
	total := decimal.NewFromInt(subtotal)
	value := coupon.DiscountValue.Decimal

	var discount decimal.Decimal
	switch coupon.DiscountType {
	case constants.CouponTypePercentage:
		discount = total.Mul(value).Div(decimal.NewFromInt(100))
	case constants.CouponTypeFixedAmount:
		discount = decimal.Min(value, total)
	default:
		return 0, newValidationError("discount_type", "unsupported")
	}

	// 折扣非负，Round(0) 即半数进位
	discount = discount.Round(0)
	if discount.GreaterThan(total) {
		discount = total
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return discount.IntPart(), nil
}

func rejectCoupon(coupon *models.Coupon, reason string) *CouponDecision {
	return &CouponDecision{
		Applicable: false,
		Reason:     reason,
		Coupon:     coupon,
	}
}

func validateCartSnapshot(cart CartSnapshot) error {
	if cart.UserID == 0 {
		return newValidationError("user_id", "required")
	}
	if cart.Subtotal < 0 {
		return newValidationError("subtotal", "must not be negative")
	}
	if cart.ItemCount < 0 {
		return newValidationError("item_count", "must not be negative")
	}
	return nil
}

func (s *CouponService) lookupMeta(ctx context.Context, key string) *cache.CouponMeta {
	meta, hit, err := cache.GetCouponMeta(ctx, key)
	if err != nil {
		logger.Debugw("coupon_meta_cache_get_failed", "code", key, "error", err)
		return nil
	}
	if !hit {
		return nil
	}
	return meta
}

func (s *CouponService) storeMeta(ctx context.Context, coupon *models.Coupon) {
	if err := cache.SetCouponMeta(ctx, cache.BuildCouponMeta(coupon), s.metaTTL); err != nil {
		logger.Debugw("coupon_meta_cache_set_failed", "coupon_id", coupon.ID, "error", err)
	}
}
