package repository

import (
	"errors"
	"strings"

	"github.com/storefront/coupon-engine/internal/models"

	"gorm.io/gorm"
)

// CouponUsageRepository 优惠券使用记录（账本）数据访问接口
type CouponUsageRepository interface {
	Create(usage *models.CouponUsage) error
	GetByOrderNo(couponID uint, orderNo string) (*models.CouponUsage, error)
	CountByCoupon(couponID uint) (int64, error)
	CountByUser(couponID, userID uint) (int64, error)
	ExistsByCoupon(couponID uint) (bool, error)
	ListByCoupon(filter CouponUsageListFilter) ([]models.CouponUsage, int64, error)
	SumDiscount(couponID uint) (int64, error)
	SumDiscountByCouponIDs(couponIDs []uint) (map[uint]int64, error)
	DetachCoupon(couponID uint) (int64, error)
	WithTx(tx *gorm.DB) *GormCouponUsageRepository
}

// GormCouponUsageRepository GORM 实现
type GormCouponUsageRepository struct {
	db *gorm.DB
}

// NewCouponUsageRepository 创建优惠券使用记录仓库
func NewCouponUsageRepository(db *gorm.DB) *GormCouponUsageRepository {
	return &GormCouponUsageRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCouponUsageRepository) WithTx(tx *gorm.DB) *GormCouponUsageRepository {
	if tx == nil {
		return r
	}
	return &GormCouponUsageRepository{db: tx}
}

// Create 追加使用记录
func (r *GormCouponUsageRepository) Create(usage *models.CouponUsage) error {
	return r.db.Create(usage).Error
}

// GetByOrderNo 根据订单号获取使用记录
func (r *GormCouponUsageRepository) GetByOrderNo(couponID uint, orderNo string) (*models.CouponUsage, error) {
	orderNo = strings.TrimSpace(orderNo)
	if couponID == 0 || orderNo == "" {
		return nil, nil
	}
	var usage models.CouponUsage
	if err := r.db.Where("coupon_id = ? AND order_no = ?", couponID, orderNo).First(&usage).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &usage, nil
}

// CountByCoupon 获取优惠券总使用次数
func (r *GormCouponUsageRepository) CountByCoupon(couponID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.CouponUsage{}).
		Where("coupon_id = ?", couponID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByUser 获取用户使用次数
func (r *GormCouponUsageRepository) CountByUser(couponID, userID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.CouponUsage{}).
		Where("coupon_id = ? AND user_id = ?", couponID, userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByCoupon 判断优惠券是否存在使用记录
func (r *GormCouponUsageRepository) ExistsByCoupon(couponID uint) (bool, error) {
	var ids []uint
	if err := r.db.Model(&models.CouponUsage{}).
		Where("coupon_id = ?", couponID).
		Limit(1).
		Pluck("id", &ids).Error; err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

// ListByCoupon 获取优惠券使用记录（按创建时间升序）
func (r *GormCouponUsageRepository) ListByCoupon(filter CouponUsageListFilter) ([]models.CouponUsage, int64, error) {
	query := r.db.Model(&models.CouponUsage{}).Where("coupon_id = ?", filter.CouponID)
	if filter.UserID > 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var usages []models.CouponUsage
	if err := query.Order("created_at asc").Order("id asc").Find(&usages).Error; err != nil {
		return nil, 0, err
	}
	return usages, total, nil
}

// SumDiscount 统计优惠券累计抵扣金额
func (r *GormCouponUsageRepository) SumDiscount(couponID uint) (int64, error) {
	var total int64
	if err := r.db.Model(&models.CouponUsage{}).
		Where("coupon_id = ?", couponID).
		Select("COALESCE(SUM(discount_amount), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

type couponDiscountRow struct {
	CouponID uint
	Total    int64
}

// SumDiscountByCouponIDs 批量统计累计抵扣金额
func (r *GormCouponUsageRepository) SumDiscountByCouponIDs(couponIDs []uint) (map[uint]int64, error) {
	result := make(map[uint]int64, len(couponIDs))
	if len(couponIDs) == 0 {
		return result, nil
	}
	var rows []couponDiscountRow
	if err := r.db.Model(&models.CouponUsage{}).
		Select("coupon_id, COALESCE(SUM(discount_amount), 0) AS total").
		Where("coupon_id IN ?", couponIDs).
		Group("coupon_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.CouponID] = row.Total
	}
	return result, nil
}

// DetachCoupon 解除使用记录与优惠券的关联（保留审计快照）
func (r *GormCouponUsageRepository) DetachCoupon(couponID uint) (int64, error) {
	result := r.db.Model(&models.CouponUsage{}).
		Where("coupon_id = ?", couponID).
		UpdateColumn("coupon_id", nil)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
