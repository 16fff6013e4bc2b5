package service

import (
	"testing"
	"time"

	autherror "github.com/giovanistefani/Construction-manager-sub001/internal/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
}

var testIdentity = Identity{
	AccountID:   "acc-123",
	TenantID:    "tenant-9",
	Email:       "ana@example.com",
	DisplayName: "Ana",
	Role:        "user",
}

func newTestTokenService(clock *fakeClock) *TokenService {
	return NewTokenService("access-secret", "refresh-secret", time.Hour, 7*24*time.Hour, 30*24*time.Hour).
		WithClock(clock.Now)
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name              string
		accessSecret      string
		refreshSecret     string
		wantRefreshSecret string
	}{
		{name: "separate secrets", accessSecret: "a", refreshSecret: "r", wantRefreshSecret: "r"},
		{name: "refresh secret falls back to access secret", accessSecret: "a", refreshSecret: "", wantRefreshSecret: "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := NewTokenService(tt.accessSecret, tt.refreshSecret, time.Hour, 2*time.Hour, 3*time.Hour)

			assert.Equal(t, tt.accessSecret, ts.AccessTokenSecret)
			assert.Equal(t, tt.wantRefreshSecret, ts.RefreshTokenSecret)
			assert.Equal(t, time.Hour, ts.AccessTokenExpiry)
			assert.Equal(t, 2*time.Hour, ts.RememberMeExpiry)
			assert.Equal(t, 3*time.Hour, ts.RefreshTokenExpiry)
		})
	}
}

func TestTokenService_IssueAndVerify(t *testing.T) {
	clock := newFakeClock()
	ts := newTestTokenService(clock)

	token, expiresAt, err := ts.Issue(testIdentity, TokenKindAccess, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(time.Hour), expiresAt)

	claims, err := ts.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, testIdentity, claims.Identity())
	assert.Equal(t, TokenKindAccess, claims.Kind)
	assert.Equal(t, testIdentity.AccountID, claims.Subject)
	assert.Equal(t, clock.Now().Unix(), claims.IssuedAt.Unix())
}

func TestTokenService_Verify_Expired(t *testing.T) {
	clock := newFakeClock()
	ts := newTestTokenService(clock)

	token, _, err := ts.Issue(testIdentity, TokenKindAccess, time.Hour)
	require.NoError(t, err)

	clock.Advance(59 * time.Minute)
	_, err = ts.Verify(token)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = ts.Verify(token)
	assert.ErrorIs(t, err, autherror.ErrTokenExpired)
}

func TestTokenService_KindSeparation(t *testing.T) {
	t.Run("separate secrets", func(t *testing.T) {
		ts := newTestTokenService(newFakeClock())
		pair, err := ts.GenerateTokenPair(testIdentity, false)
		require.NoError(t, err)

		_, err = ts.VerifyAccessToken(pair.RefreshToken)
		assert.ErrorIs(t, err, autherror.ErrTokenWrongKind)

		_, err = ts.VerifyRefreshToken(pair.AccessToken)
		assert.ErrorIs(t, err, autherror.ErrTokenWrongKind)

		_, err = ts.VerifyAccessToken(pair.AccessToken)
		assert.NoError(t, err)
		_, err = ts.VerifyRefreshToken(pair.RefreshToken)
		assert.NoError(t, err)
	})

	t.Run("shared secret still checks the kind", func(t *testing.T) {
		ts := NewTokenService("shared", "", time.Hour, time.Hour, time.Hour).WithClock(newFakeClock().Now)
		pair, err := ts.GenerateTokenPair(testIdentity, false)
		require.NoError(t, err)

		_, err = ts.VerifyAccessToken(pair.RefreshToken)
		assert.ErrorIs(t, err, autherror.ErrTokenWrongKind)
	})
}

func TestTokenService_GenerateTokenPair_RememberMe(t *testing.T) {
	clock := newFakeClock()
	ts := newTestTokenService(clock)

	pair, err := ts.GenerateTokenPair(testIdentity, false)
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(time.Hour), pair.AccessExpiresAt)
	assert.Equal(t, clock.Now().Add(30*24*time.Hour), pair.RefreshExpiresAt)

	pair, err = ts.GenerateTokenPair(testIdentity, true)
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(7*24*time.Hour), pair.AccessExpiresAt)
}

func TestTokenService_Verify_Rejections(t *testing.T) {
	clock := newFakeClock()
	ts := newTestTokenService(clock)

	valid, _, err := ts.Issue(testIdentity, TokenKindAccess, time.Hour)
	require.NoError(t, err)

	otherKey := NewTokenService("someone-else", "someone-else", time.Hour, time.Hour, time.Hour).WithClock(clock.Now)
	forged, _, err := otherKey.Issue(testIdentity, TokenKindAccess, time.Hour)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, JWTCustomClaims{
		UserID: "acc-123",
		Kind:   TokenKindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("access-secret"))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, JWTCustomClaims{
		UserID: "acc-123",
		Kind:   TokenKindAccess,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noKind, err := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTCustomClaims{
		UserID: "acc-123",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("access-secret"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "empty", token: "", wantErr: autherror.ErrTokenMalformed},
		{name: "garbage", token: "not-a-jwt", wantErr: autherror.ErrTokenMalformed},
		{name: "tampered payload", token: valid[:len(valid)-4] + "abcd", wantErr: autherror.ErrTokenInvalidSignature},
		{name: "wrong key", token: forged, wantErr: autherror.ErrTokenInvalidSignature},
		{name: "disallowed algorithm", token: hs512, wantErr: autherror.ErrTokenInvalidSignature},
		{name: "alg none", token: unsigned, wantErr: autherror.ErrTokenInvalidSignature},
		{name: "missing kind", token: noKind, wantErr: autherror.ErrTokenMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ts.VerifyAccessToken(tt.token)
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, autherror.IsTokenError(err))
		})
	}
}
