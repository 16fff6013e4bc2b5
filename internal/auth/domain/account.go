package domain

import "time"

type AccountStatus string

const (
	AccountStatusActive AccountStatus = "active"
	AccountStatusLocked AccountStatus = "locked"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type Account struct {
	ID               string
	TenantID         string
	Username         string
	Email            string
	DisplayName      string
	PasswordHash     string
	Role             string
	Status           AccountStatus
	FailedAttempts   int
	LockedUntil      *time.Time
	TwoFactorEnabled bool
	DeletedAt        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsLocked reports whether the lock is still in force at now.
func (a *Account) IsLocked(now time.Time) bool {
	return a.Status == AccountStatusLocked && a.LockedUntil != nil && a.LockedUntil.After(now)
}

// LockRemaining returns how long the lock still lasts, zero when unlocked.
func (a *Account) LockRemaining(now time.Time) time.Duration {
	if !a.IsLocked(now) {
		return 0
	}
	return a.LockedUntil.Sub(now)
}

func (a *Account) IsDeleted() bool {
	return a.DeletedAt != nil
}

// LockoutState is what the store reports back after an atomic failure update.
type LockoutState struct {
	FailedAttempts int
	Status         AccountStatus
	LockedUntil    *time.Time
}

type Tenant struct {
	ID        string
	Name      string
	Active    bool
	CreatedAt time.Time
}
