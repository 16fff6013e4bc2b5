package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/giovanistefani/Construction-manager-sub001/internal/auth/domain"
	"github.com/jackc/pgx/v5"
)

type TwoFactorRepository struct {
	db DB
}

func NewTwoFactorRepository(db DB) *TwoFactorRepository {
	return &TwoFactorRepository{db: db}
}

// Replace retires every outstanding code of the account and stores the new one
// in the same transaction, so at most one code is ever live.
func (r *TwoFactorRepository) Replace(ctx context.Context, code *domain.TwoFactorCode) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			UPDATE two_factor_codes SET consumed = TRUE, consumed_at = $2
			WHERE account_id = $1 AND consumed = FALSE`,
			code.AccountID, code.CreatedAt); err != nil {
			return fmt.Errorf("failed to supersede two-factor codes: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO two_factor_codes (id, account_id, code_hash, expires_at, consumed, created_at)
			VALUES ($1, $2, $3, $4, FALSE, $5)`,
			code.ID, code.AccountID, code.CodeHash, code.ExpiresAt, code.CreatedAt); err != nil {
			return fmt.Errorf("failed to store two-factor code: %w", err)
		}
		return nil
	})
}

// Consume marks the matching live code consumed. Postgres re-checks the WHERE
// clause after acquiring the row lock, so two concurrent calls cannot both win.
func (r *TwoFactorRepository) Consume(ctx context.Context, accountID, codeHash string, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE two_factor_codes SET consumed = TRUE, consumed_at = $3
		WHERE account_id = $1 AND code_hash = $2 AND consumed = FALSE AND expires_at > $3`,
		accountID, codeHash, now)
	if err != nil {
		return false, fmt.Errorf("failed to consume two-factor code: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// RegisterMiss bumps the attempt counter of the live code and consumes it once
// the counter reaches maxAttempts. One statement, so parallel guesses are all
// counted.
func (r *TwoFactorRepository) RegisterMiss(ctx context.Context, accountID string, maxAttempts int, now time.Time) (bool, error) {
	var burned bool
	err := r.db.QueryRow(ctx, `
		UPDATE two_factor_codes SET
			attempts = attempts + 1,
			consumed = attempts + 1 >= $2::int,
			consumed_at = CASE WHEN attempts + 1 >= $2::int THEN $3::timestamptz ELSE consumed_at END
		WHERE account_id = $1 AND consumed = FALSE AND expires_at > $3
		RETURNING consumed`,
		accountID, maxAttempts, now).Scan(&burned)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to register two-factor miss: %w", err)
	}
	return burned, nil
}
