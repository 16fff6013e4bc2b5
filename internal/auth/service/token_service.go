package service

//go:generate mockgen -destination=../../mocks/mock_token_generator.go -package=mocks github.com/giovanistefani/Construction-manager-sub001/internal/auth/service TokenGenerator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	autherror "github.com/giovanistefani/Construction-manager-sub001/internal/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

type TokenGenerator interface {
	GenerateTokenPair(identity Identity, rememberMe bool) (*TokenPair, error)
	VerifyAccessToken(tokenString string) (*JWTCustomClaims, error)
	VerifyRefreshToken(tokenString string) (*JWTCustomClaims, error)
}

// Identity is the claim set fixed at issuance. Every consumer reads these
// fields and nothing else.
type Identity struct {
	AccountID   string
	TenantID    string
	Email       string
	DisplayName string
	Role        string
}

type JWTCustomClaims struct {
	jwt.RegisteredClaims
	UserID   string    `json:"user_id"`
	TenantID string    `json:"tenant_id"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Role     string    `json:"role"`
	Kind     TokenKind `json:"typ"`
}

func (c *JWTCustomClaims) Identity() Identity {
	return Identity{
		AccountID:   c.UserID,
		TenantID:    c.TenantID,
		Email:       c.Email,
		DisplayName: c.Name,
		Role:        c.Role,
	}
}

type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

type TokenService struct {
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenExpiry  time.Duration
	RememberMeExpiry   time.Duration
	RefreshTokenExpiry time.Duration

	now func() time.Time
}

func NewTokenService(accessSecret, refreshSecret string, accessExpiry, rememberMeExpiry, refreshExpiry time.Duration) *TokenService {
	if refreshSecret == "" {
		refreshSecret = accessSecret
	}
	return &TokenService{
		AccessTokenSecret:  accessSecret,
		RefreshTokenSecret: refreshSecret,
		AccessTokenExpiry:  accessExpiry,
		RememberMeExpiry:   rememberMeExpiry,
		RefreshTokenExpiry: refreshExpiry,
		now:                time.Now,
	}
}

// WithClock replaces the clock used for issuance and verification.
func (ts *TokenService) WithClock(now func() time.Time) *TokenService {
	ts.now = now
	return ts
}

func (ts *TokenService) secretFor(kind TokenKind) (string, error) {
	switch kind {
	case TokenKindAccess:
		return ts.AccessTokenSecret, nil
	case TokenKindRefresh:
		return ts.RefreshTokenSecret, nil
	default:
		return "", autherror.ErrTokenMalformed
	}
}

// Issue signs a token of the given kind valid for ttl from now.
func (ts *TokenService) Issue(identity Identity, kind TokenKind, ttl time.Duration) (string, time.Time, error) {
	secret, err := ts.secretFor(kind)
	if err != nil {
		return "", time.Time{}, err
	}

	now := ts.now()
	expiresAt := now.Add(ttl)
	claims := JWTCustomClaims{
		UserID:   identity.AccountID,
		TenantID: identity.TenantID,
		Email:    identity.Email,
		Name:     identity.DisplayName,
		Role:     identity.Role,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity.AccountID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign %s token: %w", kind, err)
	}
	return token, expiresAt, nil
}

// GenerateTokenPair issues an access token (long-lived when rememberMe is set)
// and a refresh token for the same identity.
func (ts *TokenService) GenerateTokenPair(identity Identity, rememberMe bool) (*TokenPair, error) {
	accessTTL := ts.AccessTokenExpiry
	if rememberMe {
		accessTTL = ts.RememberMeExpiry
	}

	access, accessExp, err := ts.Issue(identity, TokenKindAccess, accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := ts.Issue(identity, TokenKindRefresh, ts.RefreshTokenExpiry)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Verify parses and validates a token of either kind. It fails closed: the
// claims are only returned when the signature and expiry both check out.
func (ts *TokenService) Verify(tokenString string) (*JWTCustomClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, autherror.ErrTokenMalformed
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ts.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)

	claims := &JWTCustomClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Ensure the token's signing method is HMAC.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		secret, err := ts.secretFor(claims.Kind)
		if err != nil {
			return nil, err
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, mapTokenError(err)
	}
	if !token.Valid {
		return nil, autherror.ErrTokenMalformed
	}
	return claims, nil
}

func (ts *TokenService) VerifyAccessToken(tokenString string) (*JWTCustomClaims, error) {
	return ts.verifyKind(tokenString, TokenKindAccess)
}

func (ts *TokenService) VerifyRefreshToken(tokenString string) (*JWTCustomClaims, error) {
	return ts.verifyKind(tokenString, TokenKindRefresh)
}

func (ts *TokenService) verifyKind(tokenString string, kind TokenKind) (*JWTCustomClaims, error) {
	claims, err := ts.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Kind != kind {
		return nil, autherror.ErrTokenWrongKind
	}
	return claims, nil
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return autherror.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return autherror.ErrTokenInvalidSignature
	default:
		return autherror.ErrTokenMalformed
	}
}
