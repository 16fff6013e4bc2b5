package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/giovanistefani/Construction-manager-sub001/internal/auth/domain"
	autherror "github.com/giovanistefani/Construction-manager-sub001/internal/errors"
	"github.com/jackc/pgx/v5"
)

const accountColumns = `id, tenant_id, username, email, display_name, password_hash, role, status,
	failed_attempts, locked_until, two_factor_enabled, deleted_at, created_at, updated_at`

type AccountRepository struct {
	db DB
}

func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		a      domain.Account
		status string
	)
	err := row.Scan(&a.ID, &a.TenantID, &a.Username, &a.Email, &a.DisplayName, &a.PasswordHash, &a.Role, &status,
		&a.FailedAttempts, &a.LockedUntil, &a.TwoFactorEnabled, &a.DeletedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Status = domain.AccountStatus(status)
	return &a, nil
}

func (r *AccountRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Account, error) {
	account, err := scanAccount(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return account, nil
}

// GetByID also returns soft-deleted accounts; callers decide what deletion means.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	account, err := r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get account by id: %w", err)
	}
	return account, nil
}

// GetByLogin matches either the username or the email of a live account.
func (r *AccountRepository) GetByLogin(ctx context.Context, login string) (*domain.Account, error) {
	account, err := r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts
		WHERE (username = $1 OR email = $1) AND deleted_at IS NULL
		LIMIT 1`, login)
	if err != nil {
		return nil, fmt.Errorf("failed to get account by login: %w", err)
	}
	return account, nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	account, err := r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts
		WHERE email = $1 AND deleted_at IS NULL
		LIMIT 1`, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}
	return account, nil
}

func (r *AccountRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE username = $1 OR email = $2)`,
		username, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check account uniqueness: %w", err)
	}
	return exists, nil
}

func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO accounts (id, tenant_id, username, email, display_name, password_hash, role, status,
			failed_attempts, two_factor_enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.TenantID, a.Username, a.Email, a.DisplayName, a.PasswordHash, a.Role, string(a.Status),
		a.FailedAttempts, a.TwoFactorEnabled, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return autherror.ErrAccountAlreadyExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// RegisterFailedAttempt increments the counter and, once it reaches
// maxAttempts, locks the account until lockUntil. It is a single statement so
// concurrent failures are never undercounted.
func (r *AccountRepository) RegisterFailedAttempt(ctx context.Context, id string, maxAttempts int, lockUntil time.Time) (*domain.LockoutState, error) {
	var (
		state  domain.LockoutState
		status string
	)
	err := r.db.QueryRow(ctx, `
		UPDATE accounts SET
			failed_attempts = failed_attempts + 1,
			status = CASE WHEN failed_attempts + 1 >= $2::int THEN 'locked' ELSE status END,
			locked_until = CASE WHEN failed_attempts + 1 >= $2::int THEN $3::timestamptz ELSE locked_until END,
			updated_at = now()
		WHERE id = $1
		RETURNING failed_attempts, status, locked_until`,
		id, maxAttempts, lockUntil).Scan(&state.FailedAttempts, &status, &state.LockedUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, autherror.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to register failed attempt: %w", err)
	}
	state.Status = domain.AccountStatus(status)
	return &state, nil
}

// ResetFailedAttempts clears the counter and any lock.
func (r *AccountRepository) ResetFailedAttempts(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE accounts SET failed_attempts = 0, status = 'active', locked_until = NULL, updated_at = now()
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to reset failed attempts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return autherror.ErrAccountNotFound
	}
	return nil
}

// UnlockIfExpired clears a lock whose window has passed. It reports whether a
// row changed.
func (r *AccountRepository) UnlockIfExpired(ctx context.Context, id string, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE accounts SET failed_attempts = 0, status = 'active', locked_until = NULL, updated_at = now()
		WHERE id = $1 AND status = 'locked' AND locked_until <= $2`, id, now)
	if err != nil {
		return false, fmt.Errorf("failed to unlock account: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *AccountRepository) SetTwoFactorEnabled(ctx context.Context, id string, enabled bool) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE accounts SET two_factor_enabled = $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, id, enabled)
	if err != nil {
		return fmt.Errorf("failed to update two-factor flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return autherror.ErrAccountNotFound
	}
	return nil
}
