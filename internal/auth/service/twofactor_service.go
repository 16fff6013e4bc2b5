package service

import (
	"context"
	"encoding/base32"
	"fmt"
	"time"

	"github.com/giovanistefani/Construction-manager-sub001/internal/auth/domain"
	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

type TwoFactorService struct {
	codes       domain.TwoFactorRepository
	accounts    domain.AccountRepository
	ttl         time.Duration
	digits      otp.Digits
	maxAttempts int
	now         func() time.Time
}

func NewTwoFactorService(codes domain.TwoFactorRepository, accounts domain.AccountRepository, ttl time.Duration,
	digits, maxAttempts int) *TwoFactorService {
	d := otp.DigitsSix
	if digits == 8 {
		d = otp.DigitsEight
	}
	return &TwoFactorService{
		codes:       codes,
		accounts:    accounts,
		ttl:         ttl,
		digits:      d,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// IssueChallenge derives a numeric code from a fresh HOTP secret and stores
// its hash. Any earlier unconsumed code of the account stops being valid.
func (s *TwoFactorService) IssueChallenge(ctx context.Context, accountID string) (string, time.Time, error) {
	secret, err := randomBytes(20)
	if err != nil {
		return "", time.Time{}, err
	}

	now := s.now()
	code, err := hotp.GenerateCodeCustom(base32.StdEncoding.EncodeToString(secret), uint64(now.UnixNano()), hotp.ValidateOpts{
		Digits:    s.digits,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate two-factor code: %w", err)
	}

	expiresAt := now.Add(s.ttl)
	err = s.codes.Replace(ctx, &domain.TwoFactorCode{
		ID:        uuid.NewString(),
		AccountID: accountID,
		CodeHash:  hashSecret(code),
		ExpiresAt: expiresAt,
		CreatedAt: now,
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return code, expiresAt, nil
}

// Verify consumes the code if it is live. A second call with the same code
// returns false. Every miss counts against the live code, which is burned
// after maxAttempts misses.
func (s *TwoFactorService) Verify(ctx context.Context, accountID, code string) (bool, error) {
	now := s.now()
	if code != "" && len(code) == s.digits.Length() {
		ok, err := s.codes.Consume(ctx, accountID, hashSecret(code), now)
		if err != nil || ok {
			return ok, err
		}
	}

	if _, err := s.codes.RegisterMiss(ctx, accountID, s.maxAttempts, now); err != nil {
		return false, err
	}
	return false, nil
}

func (s *TwoFactorService) SetEnabled(ctx context.Context, accountID string, enabled bool) error {
	return s.accounts.SetTwoFactorEnabled(ctx, accountID, enabled)
}
