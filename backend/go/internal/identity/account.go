package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"Koro/backend/go/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AccountStore 保存注册账号。
type AccountStore interface {
	Create(ctx context.Context, user *models.User) error
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByID(ctx context.Context, id string) (*models.User, error)
	TouchLogin(ctx context.Context, id string, at time.Time) error
}

// AccountProvider 是基于邮箱与密码的身份提供者。
type AccountProvider struct {
	store  AccountStore
	tokens *TokenIssuer
	now    func() time.Time
}

// NewAccountProvider 创建账号身份提供者。
func NewAccountProvider(store AccountStore, tokens *TokenIssuer) *AccountProvider {
	return &AccountProvider{store: store, tokens: tokens, now: time.Now}
}

// SignUp 注册新账号并直接登录。
func (p *AccountProvider) SignUp(ctx context.Context, name, email, password string) (*models.User, string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, "", ErrMissingCredentials
	}
	if len(password) < MinPasswordLength {
		return nil, "", ErrWeakPassword
	}

	// 检查用户是否已存在
	if _, err := p.store.ByEmail(ctx, email); err == nil {
		return nil, "", ErrAccountExists
	} else if !errors.Is(err, ErrAccountNotFound) {
		return nil, "", err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("密码哈希失败: %w", err)
	}

	user := &models.User{
		ID:        uuid.NewString(),
		Name:      displayName(name, email),
		Email:     email,
		Password:  string(hashed),
		AvatarURL: AvatarURL(email),
		Provider:  models.ProviderEmail,
		Status:    models.StatusActive,
		CreatedAt: p.now(),
	}
	if err := p.store.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := p.tokens.Issue(user.ID, user.Provider)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// SignIn 校验密码并签发令牌。用户不存在与密码错误返回同一个错误。
func (p *AccountProvider) SignIn(ctx context.Context, email, password string) (*models.User, string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, "", ErrMissingCredentials
	}

	user, err := p.store.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if user.Status != models.StatusActive {
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	now := p.now()
	if err := p.store.TouchLogin(ctx, user.ID, now); err == nil {
		user.LastLoginAt = &now
	}

	token, err := p.tokens.Issue(user.ID, user.Provider)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// SignOut 对无状态令牌无事可做。
func (p *AccountProvider) SignOut(context.Context, string) error {
	return nil
}

// MemoryAccountStore 是进程内的账号存储，用于开发环境和测试。
type MemoryAccountStore struct {
	mu      sync.RWMutex
	byID    map[string]*models.User
	byEmail map[string]string
}

// NewMemoryAccountStore 创建空的内存账号存储。
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{byID: make(map[string]*models.User), byEmail: make(map[string]string)}
}

func (s *MemoryAccountStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[user.Email]; ok {
		return ErrAccountExists
	}
	u := *user
	s.byID[u.ID] = &u
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *MemoryAccountStore) ByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	id, ok := s.byEmail[email]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrAccountNotFound
	}
	return s.ByID(ctx, id)
}

func (s *MemoryAccountStore) ByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryAccountStore) TouchLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return ErrAccountNotFound
	}
	u.LastLoginAt = &at
	return nil
}
