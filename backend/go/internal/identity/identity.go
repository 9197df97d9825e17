// Package identity 提供两种身份来源：注册账号与离线本地身份，二者实现同一个 Provider 接口。
package identity

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"Koro/backend/go/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("Invalid neural key or registry identity.")
	ErrAccountExists      = errors.New("Identity already registered in neural grid.")
	ErrMissingCredentials = errors.New("Missing registry credentials.")
	ErrWeakPassword       = errors.New("neural key must be at least 8 characters")
	ErrAccountNotFound    = errors.New("account not found")
)

// MinPasswordLength 是注册账号时密码的最小长度。
const MinPasswordLength = 8

// Provider 是登录界面背后的身份提供者。
type Provider interface {
	SignUp(ctx context.Context, name, email, password string) (*models.User, string, error)
	SignIn(ctx context.Context, email, password string) (*models.User, string, error)
	SignOut(ctx context.Context, userID string) error
}

// AvatarURL 返回由种子生成的默认头像地址。
func AvatarURL(seed string) string {
	return "https://api.dicebear.com/7.x/avataaars/svg?seed=" + url.QueryEscape(seed)
}

// normalizeEmail 去除空白并转为小写，账号按邮箱唯一。
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// displayName 在未提供名字时使用邮箱的本地部分。
func displayName(name, email string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return "Neural Operator"
}
