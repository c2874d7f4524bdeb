// Package repository 用户数据仓库
package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/zhangdayeb/tg-hongbao-go/internal/database/models"
)

// UserRepository 用户仓库
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx 返回绑定到事务的仓库
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

// GetByTG 根据 TG ID 获取用户
func (r *UserRepository) GetByTG(tg int64) (*models.User, error) {
	var user models.User
	err := r.db.Where("tg = ?", tg).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetOrCreate 获取用户，不存在则初始化
func (r *UserRepository) GetOrCreate(tg int64, name string) (*models.User, error) {
	user, err := r.GetByTG(tg)
	if err == nil {
		// 顺带刷新展示名
		if name != "" && user.Name != name {
			r.db.Model(user).Update("name", name)
			user.Name = name
		}
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = &models.User{
		TG:        tg,
		Name:      name,
		Balance:   0,
		CreatedAt: time.Now(),
	}
	if err := r.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// Debit 扣款，余额不足时返回 false
func (r *UserRepository) Debit(tg int64, amount int64) (bool, error) {
	result := r.db.Model(&models.User{}).
		Where("tg = ? AND balance >= ?", tg, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Credit 入账
func (r *UserRepository) Credit(tg int64, amount int64) error {
	result := r.db.Model(&models.User{}).
		Where("tg = ?", tg).
		Update("balance", gorm.Expr("balance + ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// 领取者首次与 bot 交互，先建号再入账
		user := &models.User{TG: tg, Balance: amount, CreatedAt: time.Now()}
		return r.db.Create(user).Error
	}
	return nil
}
