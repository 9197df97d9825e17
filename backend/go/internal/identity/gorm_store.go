package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Koro/backend/go/internal/models"

	"gorm.io/gorm"
)

// GormAccountStore 把账号保存在 MySQL 的 users 表中。
type GormAccountStore struct {
	DB *gorm.DB
}

// NewGormAccountStore 创建存储并迁移 users 表结构。
func NewGormAccountStore(db *gorm.DB) (*GormAccountStore, error) {
	if err := db.AutoMigrate(&models.User{}); err != nil {
		return nil, fmt.Errorf("迁移 users 表失败: %w", err)
	}
	return &GormAccountStore{DB: db}, nil
}

// Create 在数据库中创建一个新用户。
func (s *GormAccountStore) Create(ctx context.Context, user *models.User) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAccountExists
		}
		return tx.Create(user).Error
	})
}

// ByEmail 通过邮箱地址查找用户。
func (s *GormAccountStore) ByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// ByID 通过 ID 查找用户。
func (s *GormAccountStore) ByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// TouchLogin 记录最近一次登录时间。
func (s *GormAccountStore) TouchLogin(ctx context.Context, id string, at time.Time) error {
	return s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("last_login_at", at).Error
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrAccountNotFound
	}
	return err
}
