package repository

import (
	"errors"

	"github.com/storefront/coupon-engine/internal/models"

	"gorm.io/gorm"
)

// UserRepository 用户数据访问接口（只读为主）
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	ListExistingIDs(ids []uint) ([]uint, error)
	Create(user *models.User) error
	WithTx(tx *gorm.DB) *GormUserRepository
}

// GormUserRepository GORM 实现
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// WithTx 绑定事务
func (r *GormUserRepository) WithTx(tx *gorm.DB) *GormUserRepository {
	if tx == nil {
		return r
	}
	return &GormUserRepository{db: tx}
}

// GetByID 根据 ID 获取用户
func (r *GormUserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// ListExistingIDs 返回给定 ID 中实际存在的用户 ID
func (r *GormUserRepository) ListExistingIDs(ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return []uint{}, nil
	}
	var existing []uint
	if err := r.db.Model(&models.User{}).Where("id IN ?", ids).Pluck("id", &existing).Error; err != nil {
		return nil, err
	}
	return existing, nil
}

// Create 创建用户（仅用于初始化数据）
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}
