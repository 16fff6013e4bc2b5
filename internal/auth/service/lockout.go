package service

import (
	"context"
	"fmt"
	"time"

	"github.com/giovanistefani/Construction-manager-sub001/internal/auth/domain"
	autherror "github.com/giovanistefani/Construction-manager-sub001/internal/errors"
)

// LockoutPolicy tracks consecutive failed logins per account. The counter
// itself lives in the accounts table and every change is a single statement.
type LockoutPolicy struct {
	accounts    domain.AccountRepository
	MaxAttempts int
	Duration    time.Duration
	now         func() time.Time
}

func NewLockoutPolicy(accounts domain.AccountRepository, maxAttempts int, duration time.Duration) *LockoutPolicy {
	return &LockoutPolicy{
		accounts:    accounts,
		MaxAttempts: maxAttempts,
		Duration:    duration,
		now:         time.Now,
	}
}

// Check rejects a locked account with a *LockedError. A lock whose window has
// passed is cleared here, on the next attempt.
func (p *LockoutPolicy) Check(ctx context.Context, account *domain.Account) error {
	if account.Status != domain.AccountStatusLocked {
		return nil
	}

	now := p.now()
	if account.IsLocked(now) {
		return &autherror.LockedError{RetryAfter: account.LockRemaining(now)}
	}

	if _, err := p.accounts.UnlockIfExpired(ctx, account.ID, now); err != nil {
		return fmt.Errorf("failed to clear expired lock: %w", err)
	}
	account.Status = domain.AccountStatusActive
	account.FailedAttempts = 0
	account.LockedUntil = nil
	return nil
}

// RegisterFailure records a failed password check. When this failure reaches
// the threshold the returned error is a *LockedError.
func (p *LockoutPolicy) RegisterFailure(ctx context.Context, account *domain.Account) (*domain.LockoutState, error) {
	now := p.now()
	state, err := p.accounts.RegisterFailedAttempt(ctx, account.ID, p.MaxAttempts, now.Add(p.Duration))
	if err != nil {
		return nil, fmt.Errorf("failed to register failed attempt: %w", err)
	}

	account.FailedAttempts = state.FailedAttempts
	account.Status = state.Status
	account.LockedUntil = state.LockedUntil
	if account.IsLocked(now) {
		return state, &autherror.LockedError{RetryAfter: account.LockRemaining(now)}
	}
	return state, nil
}

func (p *LockoutPolicy) RegisterSuccess(ctx context.Context, account *domain.Account) error {
	if err := p.accounts.ResetFailedAttempts(ctx, account.ID); err != nil {
		return fmt.Errorf("failed to reset failed attempts: %w", err)
	}
	account.FailedAttempts = 0
	account.Status = domain.AccountStatusActive
	account.LockedUntil = nil
	return nil
}
