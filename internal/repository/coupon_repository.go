package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/storefront/coupon-engine/internal/constants"
	"github.com/storefront/coupon-engine/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CouponRepository 优惠券数据访问接口
type CouponRepository interface {
	GetByID(id uint) (*models.Coupon, error)
	GetByIDForUpdate(id uint) (*models.Coupon, error)
	GetByCode(code string) (*models.Coupon, error)
	ListAllIDs() ([]uint, error)
	Create(coupon *models.Coupon) error
	Update(coupon *models.Coupon) error
	SetActive(id uint, active bool, now time.Time) error
	Delete(id uint) error
	List(filter CouponListFilter) ([]models.Coupon, int64, error)
	IncrementUsage(id uint, now time.Time) (bool, error)
	RepairUsage(id uint, uses int, now time.Time) error
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormCouponRepository
}

// GormCouponRepository GORM 实现
type GormCouponRepository struct {
	db *gorm.DB
}

// NewCouponRepository 创建优惠券仓库
func NewCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCouponRepository) WithTx(tx *gorm.DB) *GormCouponRepository {
	if tx == nil {
		return r
	}
	return &GormCouponRepository{db: tx}
}

// Transaction 执行事务
func (r *GormCouponRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// GetByID 根据ID获取优惠券
func (r *GormCouponRepository) GetByID(id uint) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.First(&coupon, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &coupon, nil
}

// GetByIDForUpdate 加行锁获取优惠券（sqlite 下由单写锁保证串行）
func (r *GormCouponRepository) GetByIDForUpdate(id uint) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&coupon, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &coupon, nil
}

// GetByCode 根据优惠码获取优惠券（大小写不敏感）
func (r *GormCouponRepository) GetByCode(code string) (*models.Coupon, error) {
	key := models.NormalizeCouponCode(code)
	if key == "" {
		return nil, nil
	}
	var coupon models.Coupon
	if err := r.db.Where("code_key = ?", key).First(&coupon).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &coupon, nil
}

// ListAllIDs 获取全部优惠券ID
func (r *GormCouponRepository) ListAllIDs() ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&models.Coupon{}).Order("id asc").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Create 创建优惠券
func (r *GormCouponRepository) Create(coupon *models.Coupon) error {
	return r.db.Create(coupon).Error
}

// Update 更新优惠券定义，current_uses 只能由核销路径修改
func (r *GormCouponRepository) Update(coupon *models.Coupon) error {
	return r.db.Model(coupon).
		Select("*").
		Omit("id", "current_uses", "created_at").
		Updates(coupon).Error
}

// SetActive 设置启用状态
func (r *GormCouponRepository) SetActive(id uint, active bool, now time.Time) error {
	return r.db.Model(&models.Coupon{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"is_active":  active,
			"updated_at": now,
		}).Error
}

// Delete 删除优惠券
func (r *GormCouponRepository) Delete(id uint) error {
	return r.db.Delete(&models.Coupon{}, id).Error
}

// List 获取优惠券列表
func (r *GormCouponRepository) List(filter CouponListFilter) ([]models.Coupon, int64, error) {
	var coupons []models.Coupon
	query := r.db.Model(&models.Coupon{})

	if filter.ID > 0 {
		query = query.Where("id = ?", filter.ID)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		condition, argCount := buildLikeCondition(r.db, []string{"code"})
		query = query.Where(condition, repeatLikeArgs(escapeLike(keyword), argCount)...)
	}
	if scope := strings.TrimSpace(filter.Scope); scope != "" {
		query = query.Where("scope = ?", scope)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		now := filter.Now
		if now.IsZero() {
			now = time.Now().UTC()
		}
		query = applyCouponStatusFilter(query, status, now)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	if err := query.Order("id desc").Find(&coupons).Error; err != nil {
		return nil, 0, err
	}
	return coupons, total, nil
}

// applyCouponStatusFilter 按派生状态过滤，优先级与 Coupon.StatusAt 保持一致
func applyCouponStatusFilter(query *gorm.DB, status string, now time.Time) *gorm.DB {
	switch status {
	case constants.CouponStatusInactive:
		return query.Where("is_active = ?", false)
	case constants.CouponStatusScheduled:
		return query.Where("is_active = ? AND valid_from > ?", true, now)
	case constants.CouponStatusExpired:
		return query.Where("is_active = ? AND valid_from <= ? AND valid_until < ?", true, now, now)
	case constants.CouponStatusExhausted:
		return query.Where("is_active = ? AND valid_from <= ? AND valid_until >= ? AND current_uses >= max_uses", true, now, now)
	case constants.CouponStatusActive:
		return query.Where("is_active = ? AND valid_from <= ? AND valid_until >= ? AND current_uses < max_uses", true, now, now)
	default:
		return query.Where("1 = 0")
	}
}

// IncrementUsage 条件自增使用次数，未启用、不在有效期或达到上限时不更新并返回 false
func (r *GormCouponRepository) IncrementUsage(id uint, now time.Time) (bool, error) {
	result := r.db.Model(&models.Coupon{}).
		Where("id = ? AND current_uses < max_uses", id).
		Where("is_active = ? AND valid_from <= ? AND valid_until >= ?", true, now, now).
		UpdateColumns(map[string]interface{}{
			"current_uses": gorm.Expr("current_uses + ?", 1),
			"updated_at":   now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// RepairUsage 将计数上调到账本记录数（只增不减，且不超过上限）
func (r *GormCouponRepository) RepairUsage(id uint, uses int, now time.Time) error {
	return r.db.Model(&models.Coupon{}).
		Where("id = ? AND current_uses < ? AND max_uses >= ?", id, uses, uses).
		UpdateColumns(map[string]interface{}{
			"current_uses": uses,
			"updated_at":   now,
		}).Error
}
