package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/giovanistefani/Construction-manager-sub001/internal/auth/domain"
	autherror "github.com/giovanistefani/Construction-manager-sub001/internal/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const resetTokenBytes = 32

type PasswordPolicy struct {
	MinLength int
}

// Violations lists every rule password breaks; empty means it is acceptable.
func (p PasswordPolicy) Violations(password string) []string {
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r):
			hasSpecial = true
		}
	}

	var reasons []string
	if len([]rune(password)) < p.MinLength {
		reasons = append(reasons, fmt.Sprintf("a senha deve ter pelo menos %d caracteres", p.MinLength))
	}
	if !hasUpper {
		reasons = append(reasons, "a senha deve conter pelo menos uma letra maiúscula")
	}
	if !hasLower {
		reasons = append(reasons, "a senha deve conter pelo menos uma letra minúscula")
	}
	if !hasDigit {
		reasons = append(reasons, "a senha deve conter pelo menos um número")
	}
	if !hasSpecial {
		reasons = append(reasons, "a senha deve conter pelo menos um caractere especial")
	}
	return reasons
}

func (p PasswordPolicy) Validate(password string) error {
	if reasons := p.Violations(password); len(reasons) > 0 {
		return autherror.NewValidationError(reasons...)
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// unknownAccountHash is compared against when a login matches no account so
// that path costs the same bcrypt work as a wrong password.
var unknownAccountHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	return hash
})

type PasswordService struct {
	accounts      domain.AccountRepository
	tokens        domain.PasswordResetRepository
	notifier      Notifier
	auditor       *Auditor
	logger        *zap.Logger
	Policy        PasswordPolicy
	ttl           time.Duration
	revealUnknown bool
	now           func() time.Time
}

func NewPasswordService(accounts domain.AccountRepository, tokens domain.PasswordResetRepository, notifier Notifier,
	auditor *Auditor, logger *zap.Logger, policy PasswordPolicy, ttl time.Duration, revealUnknown bool) *PasswordService {
	return &PasswordService{
		accounts:      accounts,
		tokens:        tokens,
		notifier:      notifier,
		auditor:       auditor,
		logger:        logger,
		Policy:        policy,
		ttl:           ttl,
		revealUnknown: revealUnknown,
		now:           time.Now,
	}
}

// RequestReset issues a reset token for the account behind email and hands
// it to the notifier. An unknown email is reported as success unless
// revealUnknown is set.
func (s *PasswordService) RequestReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if account == nil {
		if s.revealUnknown {
			return autherror.ErrAccountNotFound
		}
		s.logger.Info("password reset requested for unknown email")
		return nil
	}

	token, err := randomToken(resetTokenBytes)
	if err != nil {
		return err
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	err = s.tokens.Create(ctx, &domain.PasswordResetToken{
		ID:        uuid.NewString(),
		AccountID: account.ID,
		TokenHash: hashSecret(token),
		ExpiresAt: expiresAt,
		CreatedAt: now,
	})
	if err != nil {
		return err
	}

	if err := s.notifier.SendPasswordReset(ctx, account, token, expiresAt); err != nil {
		return fmt.Errorf("failed to deliver reset token: %w", err)
	}
	return nil
}

// VerifyResetToken reports whether token could be redeemed right now. It
// changes nothing.
func (s *PasswordService) VerifyResetToken(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	t, err := s.tokens.GetActiveByHash(ctx, hashSecret(token), s.now())
	if err != nil {
		return false, err
	}
	return t != nil, nil
}

// Redeem sets a new password. The policy is checked first so a rejected
// password leaves the token redeemable.
func (s *PasswordService) Redeem(ctx context.Context, token, newPassword string) error {
	if err := s.Policy.Validate(newPassword); err != nil {
		return err
	}
	if token == "" {
		return autherror.ErrInvalidResetToken
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}

	accountID, ok, err := s.tokens.Redeem(ctx, hashSecret(token), hash, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return autherror.ErrInvalidResetToken
	}

	s.auditor.Record(ctx, domain.AuditEntry{
		Table:    "accounts",
		RecordID: accountID,
		ActorID:  accountID,
		Action:   domain.AuditActionPasswordReset,
		Detail:   "password changed through reset token",
	})
	return nil
}
