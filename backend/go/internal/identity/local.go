package identity

import (
	"context"
	"time"

	"Koro/backend/go/internal/models"
	"Koro/backend/go/internal/storage"

	"github.com/google/uuid"
)

// LocalProvider 是离线本地身份：不校验任何凭据，只记住当前操作者。
// 它不提供任何访问控制，令牌只用于让 API 层统一处理请求。
type LocalProvider struct {
	kv     storage.Store
	tokens *TokenIssuer
	now    func() time.Time
}

// NewLocalProvider 创建本地身份提供者，操作者记录保存在 kv 中。
func NewLocalProvider(kv storage.Store, tokens *TokenIssuer) *LocalProvider {
	return &LocalProvider{kv: kv, tokens: tokens, now: time.Now}
}

// SignUp 与 SignIn 相同，密码被忽略。
func (p *LocalProvider) SignUp(ctx context.Context, name, email, _ string) (*models.User, string, error) {
	return p.signIn(ctx, name, email)
}

// SignIn 以邮箱派生出稳定的用户 ID，同一邮箱总是进入同一个工作区。
func (p *LocalProvider) SignIn(ctx context.Context, email, _ string) (*models.User, string, error) {
	return p.signIn(ctx, "", email)
}

func (p *LocalProvider) signIn(ctx context.Context, name, email string) (*models.User, string, error) {
	email = normalizeEmail(email)
	if email == "" {
		email = "operator@local.core"
	}
	if name == "" {
		if cur, err := p.Current(ctx); err == nil && cur != nil && cur.Email == email {
			name = cur.Name
		}
	}

	user := &models.User{
		ID:        "local-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte("koro:"+email)).String(),
		Name:      displayName(name, email),
		Email:     email,
		AvatarURL: AvatarURL(email),
		Provider:  models.ProviderLocal,
		Status:    models.StatusActive,
		CreatedAt: p.now(),
	}
	if err := storage.SaveJSON(ctx, p.kv, storage.KeyLocalOperator, user); err != nil {
		return nil, "", err
	}

	token, err := p.tokens.Issue(user.ID, user.Provider)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// SignOut 清除保存的本地操作者。
func (p *LocalProvider) SignOut(ctx context.Context, _ string) error {
	return p.kv.Delete(ctx, storage.KeyLocalOperator)
}

// Current 返回保存的本地操作者，没有时返回 nil。
func (p *LocalProvider) Current(ctx context.Context) (*models.User, error) {
	var user models.User
	ok, err := storage.LoadJSON(ctx, p.kv, storage.KeyLocalOperator, &user)
	if err != nil || !ok {
		return nil, err
	}
	return &user, nil
}
