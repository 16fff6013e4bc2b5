package service

//go:generate mockgen -destination=../../mocks/mock_notifier.go -package=mocks github.com/giovanistefani/Construction-manager-sub001/internal/auth/service Notifier

import (
	"context"
	"time"

	"github.com/giovanistefani/Construction-manager-sub001/internal/auth/domain"
	"go.uber.org/zap"
)

// Notifier delivers one-time secrets to the account holder.
type Notifier interface {
	SendTwoFactorCode(ctx context.Context, account *domain.Account, code string, expiresAt time.Time) error
	SendPasswordReset(ctx context.Context, account *domain.Account, token string, expiresAt time.Time) error
}

// LogNotifier writes deliveries to the log. Secrets are only included when
// RevealSecrets is set, which main does outside production.
type LogNotifier struct {
	logger        *zap.Logger
	RevealSecrets bool
}

func NewLogNotifier(logger *zap.Logger, revealSecrets bool) *LogNotifier {
	return &LogNotifier{logger: logger, RevealSecrets: revealSecrets}
}

func (n *LogNotifier) SendTwoFactorCode(_ context.Context, account *domain.Account, code string, expiresAt time.Time) error {
	n.logger.Info("two-factor code issued",
		zap.String("account_id", account.ID),
		zap.String("email", account.Email),
		zap.String("code", n.mask(code)),
		zap.Time("expires_at", expiresAt),
	)
	return nil
}

func (n *LogNotifier) SendPasswordReset(_ context.Context, account *domain.Account, token string, expiresAt time.Time) error {
	n.logger.Info("password reset token issued",
		zap.String("account_id", account.ID),
		zap.String("email", account.Email),
		zap.String("token", n.mask(token)),
		zap.Time("expires_at", expiresAt),
	)
	return nil
}

func (n *LogNotifier) mask(secret string) string {
	if n.RevealSecrets {
		return secret
	}
	return "[redacted]"
}
