package identity

import (
	"context"
	"testing"
	"time"

	"Koro/backend/go/internal/models"
	"Koro/backend/go/internal/storage"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIssuer() *TokenIssuer {
	return NewTokenIssuer("test-secret", "koro_service", time.Hour)
}

func TestAccountSignUpAndSignIn(t *testing.T) {
	ctx := context.Background()
	tokens := newIssuer()
	p := NewAccountProvider(NewMemoryAccountStore(), tokens)

	user, token, err := p.SignUp(ctx, "Zara", " Zara@Example.com ", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "zara@example.com", user.Email)
	assert.Equal(t, models.ProviderEmail, user.Provider)
	assert.NotEqual(t, "correct-horse", user.Password)
	assert.Contains(t, user.AvatarURL, "seed=zara%40example.com")

	claims, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	_, _, err = p.SignUp(ctx, "Other", "zara@example.com", "another-pass")
	assert.ErrorIs(t, err, ErrAccountExists)

	again, _, err := p.SignIn(ctx, "zara@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
	assert.NotNil(t, again.LastLoginAt)

	_, _, err = p.SignIn(ctx, "zara@example.com", "wrong-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = p.SignIn(ctx, "nobody@example.com", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = p.SignIn(ctx, "", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestAccountSignUpRejectsShortPassword(t *testing.T) {
	p := NewAccountProvider(NewMemoryAccountStore(), newIssuer())
	_, _, err := p.SignUp(context.Background(), "", "a@b.c", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestTokenParseRejects(t *testing.T) {
	tokens := newIssuer()

	other := NewTokenIssuer("other-secret", "koro_service", time.Hour)
	forged, err := other.Issue("u1", models.ProviderEmail)
	require.NoError(t, err)
	_, err = tokens.Parse(forged)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	wrongIssuer := NewTokenIssuer("test-secret", "someone-else", time.Hour)
	tok, err := wrongIssuer.Issue("u1", models.ProviderEmail)
	require.NoError(t, err)
	_, err = tokens.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	expired := newIssuer()
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	tok, err = expired.Issue("u1", models.ProviderEmail)
	require.NoError(t, err)
	_, err = tokens.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1", "iss": "koro_service"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tokens.Parse(unsigned)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLocalProvider(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	tokens := newIssuer()
	p := NewLocalProvider(kv, tokens)

	user, token, err := p.SignUp(ctx, "Pilot", "pilot@local.core", "")
	require.NoError(t, err)
	assert.Equal(t, models.ProviderLocal, user.Provider)
	assert.Equal(t, AvatarURL("pilot@local.core"), user.AvatarURL)

	claims, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.ProviderLocal, claims.Provider)

	// 同一邮箱得到同一身份，名字沿用保存的记录
	again, _, err := p.SignIn(ctx, "PILOT@local.core", "anything")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
	assert.Equal(t, "Pilot", again.Name)

	cur, err := p.Current(ctx)
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, user.ID, cur.ID)

	require.NoError(t, p.SignOut(ctx, user.ID))
	cur, err = p.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, cur)
}

func TestLocalProviderDefaultsOperator(t *testing.T) {
	user, _, err := NewLocalProvider(storage.NewMemoryStore(), newIssuer()).SignIn(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "operator@local.core", user.Email)
	assert.Equal(t, "operator", user.Name)
}
