package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/giovanistefani/Construction-manager-sub001/internal/auth/domain"
	"github.com/jackc/pgx/v5"
)

var errResetTokenNotLive = errors.New("reset token not live")

type PasswordResetRepository struct {
	db DB
}

func NewPasswordResetRepository(db DB) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

func (r *PasswordResetRepository) Create(ctx context.Context, t *domain.PasswordResetToken) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO password_reset_tokens (id, account_id, token_hash, expires_at, consumed, created_at)
		VALUES ($1, $2, $3, $4, FALSE, $5)`,
		t.ID, t.AccountID, t.TokenHash, t.ExpiresAt, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	return nil
}

func (r *PasswordResetRepository) GetActiveByHash(ctx context.Context, tokenHash string, now time.Time) (*domain.PasswordResetToken, error) {
	var t domain.PasswordResetToken
	err := r.db.QueryRow(ctx, `
		SELECT id, account_id, token_hash, expires_at, consumed, consumed_at, created_at
		FROM password_reset_tokens
		WHERE token_hash = $1 AND consumed = FALSE AND expires_at > $2`, tokenHash, now).
		Scan(&t.ID, &t.AccountID, &t.TokenHash, &t.ExpiresAt, &t.Consumed, &t.ConsumedAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}
	return &t, nil
}

// Redeem consumes the token, stores the new password hash (clearing any
// lockout) and retires the account's other outstanding tokens in one
// transaction.
func (r *PasswordResetRepository) Redeem(ctx context.Context, tokenHash, passwordHash string, now time.Time) (string, bool, error) {
	var accountID string
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE password_reset_tokens SET consumed = TRUE, consumed_at = $2
			WHERE token_hash = $1 AND consumed = FALSE AND expires_at > $2
			RETURNING account_id`, tokenHash, now).Scan(&accountID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return errResetTokenNotLive
			}
			return fmt.Errorf("failed to consume reset token: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE accounts SET password_hash = $2, failed_attempts = 0, status = 'active',
				locked_until = NULL, updated_at = $3
			WHERE id = $1`, accountID, passwordHash, now); err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE password_reset_tokens SET consumed = TRUE, consumed_at = $2
			WHERE account_id = $1 AND consumed = FALSE`, accountID, now); err != nil {
			return fmt.Errorf("failed to retire reset tokens: %w", err)
		}
		return nil
	})
	if errors.Is(err, errResetTokenNotLive) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return accountID, true, nil
}
