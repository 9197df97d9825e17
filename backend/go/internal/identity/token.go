package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

// Claims 是从令牌中解析出的身份信息。
type Claims struct {
	UserID   string
	Provider string
}

// TokenIssuer 签发并校验 HS256 令牌。
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer 创建令牌签发器，ttl 不大于 0 时使用 24 小时。
func NewTokenIssuer(secret, issuer string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue 为指定用户生成一个新的 JWT。
func (t *TokenIssuer) Issue(userID, provider string) (string, error) {
	now := t.now()
	claims := jwt.MapClaims{
		"sub":      userID,
		"iss":      t.issuer,
		"provider": provider,
		"exp":      now.Add(t.ttl).Unix(),
		"iat":      now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("签发令牌失败: %w", err)
	}
	return signed, nil
}

// Parse 校验签名、有效期和签发者，返回令牌中的身份。
func (t *TokenIssuer) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// 确保 token 的签名方法是我们期望的
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("非预期的签名方法")
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidCredentials
	}
	if t.issuer != "" && !claims.VerifyIssuer(t.issuer, true) {
		return nil, ErrInvalidCredentials
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, ErrInvalidCredentials
	}
	provider, _ := claims["provider"].(string)
	return &Claims{UserID: sub, Provider: provider}, nil
}
