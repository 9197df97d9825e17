package models

import (
	"time"

	"gorm.io/datatypes"
)

// UserStatus 定义了用户账户的生命周期状态。
type UserStatus string

const (
	StatusActive      UserStatus = "active"      // 账号正常
	StatusDeactivated UserStatus = "deactivated" // 账号已停用
)

// 身份来源。
const (
	ProviderEmail = "email"
	ProviderLocal = "local"
)

// User 代表一个操作者身份，既可以是注册账号，也可以是离线本地身份。
type User struct {
	ID        string `gorm:"primaryKey;size:64" json:"id"`
	Name      string `gorm:"size:255" json:"name"`
	Email     string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password  string `gorm:"size:255" json:"-"` // 存储哈希后的密码，json中忽略
	AvatarURL string `gorm:"size:512" json:"avatar"`
	Provider  string `gorm:"size:32;not null" json:"provider"`

	Status      UserStatus     `gorm:"type:varchar(20);default:'active';not null" json:"status"`
	LastLoginAt *time.Time     `json:"lastLoginAt,omitempty"`
	Settings    datatypes.JSON `json:"settings,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"-"`
}

// TableName 自定义表名。
func (User) TableName() string {
	return "users"
}
