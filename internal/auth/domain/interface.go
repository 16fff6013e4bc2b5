package domain

//go:generate mockgen -destination=../../mocks/mock_repositories.go -package=mocks github.com/giovanistefani/Construction-manager-sub001/internal/auth/domain AccountRepository,TenantRepository,TwoFactorRepository,PasswordResetRepository,AuditRepository

import (
	"context"
	"time"
)

// AccountRepository returns (nil, nil) when a lookup finds nothing.
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByLogin(ctx context.Context, login string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	Create(ctx context.Context, account *Account) error
	RegisterFailedAttempt(ctx context.Context, id string, maxAttempts int, lockUntil time.Time) (*LockoutState, error)
	ResetFailedAttempts(ctx context.Context, id string) error
	UnlockIfExpired(ctx context.Context, id string, now time.Time) (bool, error)
	SetTwoFactorEnabled(ctx context.Context, id string, enabled bool) error
}

type TenantRepository interface {
	GetByID(ctx context.Context, id string) (*Tenant, error)
}

type TwoFactorRepository interface {
	// Replace consumes every outstanding code of the account and stores code.
	Replace(ctx context.Context, code *TwoFactorCode) error
	// Consume marks a matching live code consumed; false when none matched.
	Consume(ctx context.Context, accountID, codeHash string, now time.Time) (bool, error)
	// RegisterMiss counts a wrong guess against the live code and burns it at
	// maxAttempts; true when this miss burned it.
	RegisterMiss(ctx context.Context, accountID string, maxAttempts int, now time.Time) (bool, error)
}

type PasswordResetRepository interface {
	Create(ctx context.Context, token *PasswordResetToken) error
	GetActiveByHash(ctx context.Context, tokenHash string, now time.Time) (*PasswordResetToken, error)
	// Redeem consumes the token, stores the new hash and consumes every other
	// outstanding token of the account, atomically. ok is false when the
	// token was not live.
	Redeem(ctx context.Context, tokenHash, passwordHash string, now time.Time) (accountID string, ok bool, err error)
}

type AuditRepository interface {
	Insert(ctx context.Context, entry *AuditEntry) error
}
