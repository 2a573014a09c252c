package repository

import (
	"time"

	"github.com/storefront/coupon-engine/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CouponAssignmentRepository 定向优惠券用户集合数据访问接口
type CouponAssignmentRepository interface {
	AddUsers(couponID uint, userIDs []uint, now time.Time) error
	RemoveUsers(couponID uint, userIDs []uint) error
	DeleteByCoupon(couponID uint) error
	ListUserIDs(couponID uint) ([]uint, error)
	Exists(couponID, userID uint) (bool, error)
	CountByCouponIDs(couponIDs []uint) (map[uint]int64, error)
	WithTx(tx *gorm.DB) *GormCouponAssignmentRepository
}

// GormCouponAssignmentRepository GORM 实现
type GormCouponAssignmentRepository struct {
	db *gorm.DB
}

// NewCouponAssignmentRepository 创建定向用户仓库
func NewCouponAssignmentRepository(db *gorm.DB) *GormCouponAssignmentRepository {
	return &GormCouponAssignmentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCouponAssignmentRepository) WithTx(tx *gorm.DB) *GormCouponAssignmentRepository {
	if tx == nil {
		return r
	}
	return &GormCouponAssignmentRepository{db: tx}
}

// AddUsers 批量添加用户，已存在的用户忽略
func (r *GormCouponAssignmentRepository) AddUsers(couponID uint, userIDs []uint, now time.Time) error {
	if len(userIDs) == 0 {
		return nil
	}
	rows := make([]models.CouponAssignment, 0, len(userIDs))
	for _, userID := range userIDs {
		rows = append(rows, models.CouponAssignment{
			CouponID:  couponID,
			UserID:    userID,
			CreatedAt: now,
		})
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "coupon_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&rows).Error
}

// RemoveUsers 批量移除用户，不存在的用户忽略
func (r *GormCouponAssignmentRepository) RemoveUsers(couponID uint, userIDs []uint) error {
	if len(userIDs) == 0 {
		return nil
	}
	return r.db.Where("coupon_id = ? AND user_id IN ?", couponID, userIDs).
		Delete(&models.CouponAssignment{}).Error
}

// DeleteByCoupon 清空优惠券的定向用户
func (r *GormCouponAssignmentRepository) DeleteByCoupon(couponID uint) error {
	return r.db.Where("coupon_id = ?", couponID).Delete(&models.CouponAssignment{}).Error
}

// ListUserIDs 获取优惠券的定向用户ID（升序）
func (r *GormCouponAssignmentRepository) ListUserIDs(couponID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&models.CouponAssignment{}).
		Where("coupon_id = ?", couponID).
		Order("user_id asc").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Exists 判断用户是否在定向集合中
func (r *GormCouponAssignmentRepository) Exists(couponID, userID uint) (bool, error) {
	var count int64
	if err := r.db.Model(&models.CouponAssignment{}).
		Where("coupon_id = ? AND user_id = ?", couponID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

type couponAssignmentCountRow struct {
	CouponID uint
	Total    int64
}

// CountByCouponIDs 批量统计定向用户数量
func (r *GormCouponAssignmentRepository) CountByCouponIDs(couponIDs []uint) (map[uint]int64, error) {
	result := make(map[uint]int64, len(couponIDs))
	if len(couponIDs) == 0 {
		return result, nil
	}
	var rows []couponAssignmentCountRow
	if err := r.db.Model(&models.CouponAssignment{}).
		Select("coupon_id, COUNT(*) AS total").
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
