package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/giovanistefani/Construction-manager-sub001/internal/auth/domain"
	repo "github.com/giovanistefani/Construction-manager-sub001/internal/auth/repository/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwoFactorRepository_Replace(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewTwoFactorRepository(mock)
	ctx := context.Background()
	now := time.Now()
	code := &domain.TwoFactorCode{
		ID: "code-1", AccountID: "acc-1", CodeHash: "hash", ExpiresAt: now.Add(10 * time.Minute), CreatedAt: now,
	}

	t.Run("supersedes and inserts in one transaction", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE two_factor_codes SET consumed = TRUE").
			WithArgs(code.AccountID, now).
			WillReturnResult(pgxmock.NewResult("UPDATE", 2))
		mock.ExpectExec("INSERT INTO two_factor_codes").
			WithArgs(code.ID, code.AccountID, code.CodeHash, code.ExpiresAt, code.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		assert.NoError(t, r.Replace(ctx, code))
	})

	t.Run("insert failure rolls back", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE two_factor_codes SET consumed = TRUE").
			WithArgs(code.AccountID, now).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectExec("INSERT INTO two_factor_codes").
			WithArgs(code.ID, code.AccountID, code.CodeHash, code.ExpiresAt, code.CreatedAt).
			WillReturnError(fmt.Errorf("db error"))
		mock.ExpectRollback()

		assert.Error(t, r.Replace(ctx, code))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTwoFactorRepository_Consume(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewTwoFactorRepository(mock)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectExec("consumed = FALSE AND expires_at > \\$3").
		WithArgs("acc-1", "hash", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	ok, err := r.Consume(ctx, "acc-1", "hash", now)
	require.NoError(t, err)
	assert.True(t, ok)

	// second attempt finds nothing left to consume
	mock.ExpectExec("consumed = FALSE AND expires_at > \\$3").
		WithArgs("acc-1", "hash", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	ok, err = r.Consume(ctx, "acc-1", "hash", now)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTwoFactorRepository_RegisterMiss(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewTwoFactorRepository(mock)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectQuery("attempts = attempts \\+ 1").
		WithArgs("acc-1", 5, now).
		WillReturnRows(pgxmock.NewRows([]string{"consumed"}).AddRow(false))
	burned, err := r.RegisterMiss(ctx, "acc-1", 5, now)
	require.NoError(t, err)
	assert.False(t, burned)

	mock.ExpectQuery("attempts = attempts \\+ 1").
		WithArgs("acc-1", 5, now).
		WillReturnRows(pgxmock.NewRows([]string{"consumed"}).AddRow(true))
	burned, err = r.RegisterMiss(ctx, "acc-1", 5, now)
	require.NoError(t, err)
	assert.True(t, burned)

	// no live code left to count against
	mock.ExpectQuery("attempts = attempts \\+ 1").
		WithArgs("acc-1", 5, now).
		WillReturnError(pgx.ErrNoRows)
	burned, err = r.RegisterMiss(ctx, "acc-1", 5, now)
	require.NoError(t, err)
	assert.False(t, burned)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPasswordResetRepository_GetActiveByHash(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewPasswordResetRepository(mock)
	ctx := context.Background()
	now := time.Now()
	cols := []string{"id", "account_id", "token_hash", "expires_at", "consumed", "consumed_at", "created_at"}

	t.Run("live token", func(t *testing.T) {
		mock.ExpectQuery("FROM password_reset_tokens").
			WithArgs("hash", now).
			WillReturnRows(pgxmock.NewRows(cols).
				AddRow("tok-1", "acc-1", "hash", now.Add(time.Hour), false, (*time.Time)(nil), now))

		token, err := r.GetActiveByHash(ctx, "hash", now)
		require.NoError(t, err)
		require.NotNil(t, token)
		assert.Equal(t, "acc-1", token.AccountID)
	})

	t.Run("unknown or consumed", func(t *testing.T) {
		mock.ExpectQuery("FROM password_reset_tokens").
			WithArgs("hash", now).
			WillReturnError(pgx.ErrNoRows)

		token, err := r.GetActiveByHash(ctx, "hash", now)
		require.NoError(t, err)
		assert.Nil(t, token)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPasswordResetRepository_Redeem(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewPasswordResetRepository(mock)
	ctx := context.Background()
	now := time.Now()

	t.Run("success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("RETURNING account_id").
			WithArgs("hash", now).
			WillReturnRows(pgxmock.NewRows([]string{"account_id"}).AddRow("acc-1"))
		mock.ExpectExec("UPDATE accounts SET password_hash").
			WithArgs("acc-1", "new-hash", now).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec("WHERE account_id = \\$1 AND consumed = FALSE").
			WithArgs("acc-1", now).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		accountID, ok, err := r.Redeem(ctx, "hash", "new-hash", now)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "acc-1", accountID)
	})

	t.Run("token already used", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("RETURNING account_id").
			WithArgs("hash", now).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectRollback()

		accountID, ok, err := r.Redeem(ctx, "hash", "new-hash", now)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, accountID)
	})

	t.Run("password update failure rolls back", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("RETURNING account_id").
			WithArgs("hash", now).
			WillReturnRows(pgxmock.NewRows([]string{"account_id"}).AddRow("acc-1"))
		mock.ExpectExec("UPDATE accounts SET password_hash").
			WithArgs("acc-1", "new-hash", now).
			WillReturnError(fmt.Errorf("db error"))
		mock.ExpectRollback()

		_, ok, err := r.Redeem(ctx, "hash", "new-hash", now)
		assert.Error(t, err)
		assert.False(t, ok)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPasswordResetRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewPasswordResetRepository(mock)
	now := time.Now()
	token := &domain.PasswordResetToken{ID: "tok-1", AccountID: "acc-1", TokenHash: "hash", ExpiresAt: now.Add(time.Hour), CreatedAt: now}

	mock.ExpectExec("INSERT INTO password_reset_tokens").
		WithArgs(token.ID, token.AccountID, token.TokenHash, token.ExpiresAt, token.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, r.Create(context.Background(), token))
	assert.NoError(t, mock.ExpectationsWereMet())
}
