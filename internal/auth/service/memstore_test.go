package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/giovanistefani/Construction-manager-sub001/internal/auth/domain"
	autherror "github.com/giovanistefani/Construction-manager-sub001/internal/errors"
)

// memStore is an in-memory stand-in for the postgres repositories. Each
// method holds the lock for its whole body, mirroring the single-statement
// guarantees of the SQL versions.
type memStore struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
	tenants  map[string]*domain.Tenant
	codes    []*domain.TwoFactorCode
	resets   []*domain.PasswordResetToken
	audit    []domain.AuditEntry
}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[string]*domain.Account{},
		tenants:  map[string]*domain.Tenant{},
	}
}

func (s *memStore) account(id string) domain.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.accounts[id]
}

type memAccounts struct{ *memStore }

func (r memAccounts) find(match func(a *domain.Account) bool) *domain.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if match(a) {
			cp := *a
			return &cp
		}
	}
	return nil
}

func (r memAccounts) GetByID(_ context.Context, id string) (*domain.Account, error) {
	return r.find(func(a *domain.Account) bool { return a.ID == id }), nil
}

func (r memAccounts) GetByLogin(_ context.Context, login string) (*domain.Account, error) {
	return r.find(func(a *domain.Account) bool {
		return (a.Username == login || a.Email == login) && a.DeletedAt == nil
	}), nil
}

func (r memAccounts) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	return r.find(func(a *domain.Account) bool { return a.Email == email && a.DeletedAt == nil }), nil
}

func (r memAccounts) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	return r.find(func(a *domain.Account) bool { return a.Username == username || a.Email == email }) != nil, nil
}

func (r memAccounts) Create(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Username == account.Username || a.Email == account.Email {
			return autherror.ErrAccountAlreadyExists
		}
	}
	cp := *account
	r.accounts[account.ID] = &cp
	return nil
}

func (r memAccounts) RegisterFailedAttempt(_ context.Context, id string, maxAttempts int, lockUntil time.Time) (*domain.LockoutState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, autherror.ErrAccountNotFound
	}
	a.FailedAttempts++
	if a.FailedAttempts >= maxAttempts {
		a.Status = domain.AccountStatusLocked
		until := lockUntil
		a.LockedUntil = &until
	}
	return &domain.LockoutState{FailedAttempts: a.FailedAttempts, Status: a.Status, LockedUntil: a.LockedUntil}, nil
}

func (r memAccounts) ResetFailedAttempts(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return autherror.ErrAccountNotFound
	}
	a.FailedAttempts = 0
	a.Status = domain.AccountStatusActive
	a.LockedUntil = nil
	return nil
}

func (r memAccounts) UnlockIfExpired(_ context.Context, id string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok || a.Status != domain.AccountStatusLocked || a.LockedUntil == nil || a.LockedUntil.After(now) {
		return false, nil
	}
	a.FailedAttempts = 0
	a.Status = domain.AccountStatusActive
	a.LockedUntil = nil
	return true, nil
}

func (r memAccounts) SetTwoFactorEnabled(_ context.Context, id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok || a.DeletedAt != nil {
		return autherror.ErrAccountNotFound
	}
	a.TwoFactorEnabled = enabled
	return nil
}

type memTenants struct{ *memStore }

func (r memTenants) GetByID(_ context.Context, id string) (*domain.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

type memCodes struct{ *memStore }

func (r memCodes) Replace(_ context.Context, code *domain.TwoFactorCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.AccountID == code.AccountID && !c.Consumed {
			c.Consumed = true
		}
	}
	cp := *code
	r.codes = append(r.codes, &cp)
	return nil
}

func (r memCodes) Consume(_ context.Context, accountID, codeHash string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.AccountID == accountID && c.CodeHash == codeHash && !c.Consumed && c.ExpiresAt.After(now) {
			c.Consumed = true
			c.ConsumedAt = &now
			return true, nil
		}
	}
	return false, nil
}

func (r memCodes) RegisterMiss(_ context.Context, accountID string, maxAttempts int, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.codes {
		if c.AccountID == accountID && !c.Consumed && c.ExpiresAt.After(now) {
			c.Attempts++
			if c.Attempts >= maxAttempts {
				c.Consumed = true
				c.ConsumedAt = &now
				return true, nil
			}
			return false, nil
		}
	}
	return false, nil
}

type memResets struct{ *memStore }

func (r memResets) Create(_ context.Context, token *domain.PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *token
	r.resets = append(r.resets, &cp)
	return nil
}

func (r memResets) GetActiveByHash(_ context.Context, tokenHash string, now time.Time) (*domain.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.resets {
		if t.TokenHash == tokenHash && !t.Consumed && t.ExpiresAt.After(now) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memResets) Redeem(_ context.Context, tokenHash, passwordHash string, now time.Time) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var target *domain.PasswordResetToken
	for _, t := range r.resets {
		if t.TokenHash == tokenHash && !t.Consumed && t.ExpiresAt.After(now) {
			target = t
			break
		}
	}
	if target == nil {
		return "", false, nil
	}

	a := r.accounts[target.AccountID]
	a.PasswordHash = passwordHash
	a.FailedAttempts = 0
	a.Status = domain.AccountStatusActive
	a.LockedUntil = nil

	for _, t := range r.resets {
		if t.AccountID == target.AccountID && !t.Consumed {
			t.Consumed = true
			t.ConsumedAt = &now
		}
	}
	return target.AccountID, true, nil
}

type memAudit struct{ *memStore }

func (r memAudit) Insert(_ context.Context, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audit = append(r.audit, *entry)
	return nil
}

func (s *memStore) auditActions() []domain.AuditAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuditAction, 0, len(s.audit))
	for _, e := range s.audit {
		out = append(out, e.Action)
	}
	return out
}

// captureNotifier keeps the last secret delivered to each account.
type captureNotifier struct {
	mu     sync.Mutex
	codes  map[string]string
	resets map[string]string
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{codes: map[string]string{}, resets: map[string]string{}}
}

func (n *captureNotifier) SendTwoFactorCode(_ context.Context, account *domain.Account, code string, _ time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.codes[account.ID] = code
	return nil
}

func (n *captureNotifier) SendPasswordReset(_ context.Context, account *domain.Account, token string, _ time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets[account.ID] = token
	return nil
}

func (n *captureNotifier) code(accountID string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.codes[accountID]
}

func (n *captureNotifier) reset(accountID string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.resets[accountID]
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
