package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/giovanistefani/Construction-manager-sub001/config"
	"github.com/giovanistefani/Construction-manager-sub001/internal/auth/domain"
	"github.com/giovanistefani/Construction-manager-sub001/internal/auth/dto"
	autherror "github.com/giovanistefani/Construction-manager-sub001/internal/errors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	msgLoginSuccess       = "Login realizado com sucesso"
	msgTwoFactorRequired  = "Código de verificação enviado"
	msgTwoFactorVerified  = "Verificação concluída com sucesso"
	msgTokenRefreshed     = "Token renovado com sucesso"
	msgAccountRegistered  = "Usuário criado com sucesso"
	msgMissingCredentials = "nome_usuario e senha são obrigatórios"
	msgInactiveTenant     = "empresa inativa"
)

type Repositories struct {
	Accounts  domain.AccountRepository
	Tenants   domain.TenantRepository
	TwoFactor domain.TwoFactorRepository
	Resets    domain.PasswordResetRepository
}

// AuthService drives login, the 2FA challenge, refresh, registration and the
// password reset flow.
type AuthService struct {
	accounts  domain.AccountRepository
	tenants   domain.TenantRepository
	tokens    TokenGenerator
	lockout   *LockoutPolicy
	twoFactor *TwoFactorService
	passwords *PasswordService
	notifier  Notifier
	auditor   *Auditor
	validate  *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

func NewAuthService(repos Repositories, tokens TokenGenerator, notifier Notifier, auditor *Auditor,
	cfg *config.Config, logger *zap.Logger) *AuthService {
	policy := PasswordPolicy{MinLength: cfg.PasswordMinLength}
	if policy.MinLength <= 0 {
		policy.MinLength = config.DefaultPasswordMinLength
	}
	twoFactorAttempts := cfg.TwoFactorMaxAttempts
	if twoFactorAttempts <= 0 {
		twoFactorAttempts = config.DefaultTwoFactorMaxAttempts
	}

	return &AuthService{
		accounts:  repos.Accounts,
		tenants:   repos.Tenants,
		tokens:    tokens,
		lockout:   NewLockoutPolicy(repos.Accounts, cfg.LoginMaxAttempts, cfg.LockoutDuration),
		twoFactor: NewTwoFactorService(repos.TwoFactor, repos.Accounts, cfg.TwoFactorCodeTTL, cfg.TwoFactorCodeDigits,
			twoFactorAttempts),
		passwords: NewPasswordService(repos.Accounts, repos.Resets, notifier, auditor, logger, policy,
			cfg.PasswordResetTTL, cfg.PasswordResetRevealUnknown),
		notifier: notifier,
		auditor:  auditor,
		validate: newValidator(),
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock swaps the clock of the service and every policy it owns.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	s.lockout.now = now
	s.twoFactor.now = now
	s.passwords.now = now
	return s
}

func identityOf(a *domain.Account) Identity {
	return Identity{
		AccountID:   a.ID,
		TenantID:    a.TenantID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		Role:        a.Role,
	}
}

func ToAccountOutput(a *domain.Account) *dto.AccountOutput {
	return &dto.AccountOutput{
		ID:               a.ID,
		Username:         a.Username,
		Email:            a.Email,
		DisplayName:      a.DisplayName,
		TenantID:         a.TenantID,
		Role:             a.Role,
		TwoFactorEnabled: a.TwoFactorEnabled,
		CreatedAt:        a.CreatedAt,
	}
}

// Login checks credentials and either returns tokens or, for accounts with
// 2FA enabled, issues a challenge and returns only the account id.
func (s *AuthService) Login(ctx context.Context, input dto.LoginInput) (*dto.LoginOutput, error) {
	login := strings.TrimSpace(input.Login)
	if login == "" || input.Password == "" {
		return nil, autherror.NewValidationError(msgMissingCredentials)
	}
	// Emails are stored lowercased; usernames are matched as typed.
	if strings.Contains(login, "@") {
		login = strings.ToLower(login)
	}

	account, err := s.accounts.GetByLogin(ctx, login)
	if err != nil {
		return nil, err
	}
	if account == nil {
		_ = bcrypt.CompareHashAndPassword(unknownAccountHash(), []byte(input.Password))
		return nil, autherror.ErrInvalidCredentials
	}

	if err := s.lockout.Check(ctx, account); err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(input.Password)) != nil {
		return nil, s.loginFailed(ctx, account, loginDetail(input), autherror.ErrInvalidCredentials)
	}

	if err := s.lockout.RegisterSuccess(ctx, account); err != nil {
		return nil, err
	}

	if account.TwoFactorEnabled {
		code, expiresAt, err := s.twoFactor.IssueChallenge(ctx, account.ID)
		if err != nil {
			return nil, err
		}
		if err := s.notifier.SendTwoFactorCode(ctx, account, code, expiresAt); err != nil {
			return nil, err
		}
		return &dto.LoginOutput{
			Message:           msgTwoFactorRequired,
			RequiresTwoFactor: true,
			AccountID:         account.ID,
		}, nil
	}

	pair, err := s.tokens.GenerateTokenPair(identityOf(account), input.RememberMe)
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, domain.AuditEntry{
		Table:    "accounts",
		RecordID: account.ID,
		ActorID:  account.ID,
		Action:   domain.AuditActionLogin,
		Detail:   loginDetail(input),
	})

	return &dto.LoginOutput{
		Message:      msgLoginSuccess,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.AccessExpiresAt.Unix(),
		User:         ToAccountOutput(account),
	}, nil
}

// loginFailed registers a failed password or 2FA check and returns what the
// caller should see: the lock when this attempt reached the threshold,
// otherwise failure.
func (s *AuthService) loginFailed(ctx context.Context, account *domain.Account, detail string, failure error) error {
	state, err := s.lockout.RegisterFailure(ctx, account)

	var locked *autherror.LockedError
	if err != nil && !errors.As(err, &locked) {
		return err
	}

	s.auditor.Record(ctx, domain.AuditEntry{
		Table:    "accounts",
		RecordID: account.ID,
		Action:   domain.AuditActionLoginFailed,
		After:    snapshot(state),
		Detail:   detail,
	})

	if locked != nil {
		s.logger.Warn("account locked after repeated failures",
			zap.String("account_id", account.ID),
			zap.Int("failed_attempts", state.FailedAttempts),
		)
		s.auditor.Record(ctx, domain.AuditEntry{
			Table:    "accounts",
			RecordID: account.ID,
			Action:   domain.AuditActionAccountLocked,
			After:    snapshot(state),
		})
		return locked
	}
	return failure
}

func loginDetail(input dto.LoginInput) string {
	if input.IPAddress == "" {
		return ""
	}
	return "ip=" + input.IPAddress + " ua=" + input.UserAgent
}

// VerifyTwoFactor completes a login that was answered with a challenge.
func (s *AuthService) VerifyTwoFactor(ctx context.Context, input dto.VerifyTwoFactorInput) (*dto.TokenOutput, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	account, err := s.liveAccount(ctx, input.AccountID)
	if err != nil {
		return nil, err
	}
	if err := s.lockout.Check(ctx, account); err != nil {
		return nil, err
	}

	ok, err := s.twoFactor.Verify(ctx, account.ID, input.Code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.loginFailed(ctx, account, "wrong two-factor code", autherror.ErrInvalidTwoFactorCode)
	}
	if account.FailedAttempts > 0 {
		if err := s.lockout.RegisterSuccess(ctx, account); err != nil {
			return nil, err
		}
	}

	pair, err := s.tokens.GenerateTokenPair(identityOf(account), input.RememberMe)
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, domain.AuditEntry{
		Table:    "accounts",
		RecordID: account.ID,
		ActorID:  account.ID,
		Action:   domain.AuditActionTwoFactor,
		Detail:   "two-factor challenge completed",
	})

	return tokenOutput(msgTwoFactorVerified, pair, account), nil
}

// Refresh exchanges a refresh token for a new pair, provided the account
// still exists.
func (s *AuthService) Refresh(ctx context.Context, input dto.RefreshInput) (*dto.TokenOutput, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	claims, err := s.tokens.VerifyRefreshToken(input.RefreshToken)
	if err != nil {
		return nil, err
	}

	account, err := s.liveAccount(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if account.IsLocked(now) {
		return nil, &autherror.LockedError{RetryAfter: account.LockRemaining(now)}
	}

	pair, err := s.tokens.GenerateTokenPair(identityOf(account), false)
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, domain.AuditEntry{
		Table:    "accounts",
		RecordID: account.ID,
		ActorID:  account.ID,
		Action:   domain.AuditActionRefresh,
	})

	return tokenOutput(msgTokenRefreshed, pair, account), nil
}

func tokenOutput(message string, pair *TokenPair, account *domain.Account) *dto.TokenOutput {
	return &dto.TokenOutput{
		Message:      message,
		Token:        pair.AccessToken,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.AccessExpiresAt.Unix(),
		User:         ToAccountOutput(account),
	}
}

// liveAccount loads an account that exists and was not soft-deleted.
func (s *AuthService) liveAccount(ctx context.Context, id string) (*domain.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, autherror.ErrAccountNotFound
	}
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil || account.IsDeleted() {
		return nil, autherror.ErrAccountNotFound
	}
	return account, nil
}

// Register validates input in full before touching the store, then creates
// an active account with the default role.
func (s *AuthService) Register(ctx context.Context, input dto.RegisterInput) (*domain.Account, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.DisplayName = strings.TrimSpace(input.DisplayName)

	var reasons []string
	if err := s.validate.Struct(input); err != nil {
		reasons = validationReasons(err)
	}
	if input.Password != "" {
		reasons = append(reasons, s.passwords.Policy.Violations(input.Password)...)
	}
	if len(reasons) > 0 {
		return nil, autherror.NewValidationError(reasons...)
	}

	tenant, err := s.tenants.GetByID(ctx, input.TenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, autherror.ErrTenantNotFound
	}
	if !tenant.Active {
		return nil, autherror.NewValidationError(msgInactiveTenant)
	}

	exists, err := s.accounts.ExistsByUsernameOrEmail(ctx, input.Username, input.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, autherror.ErrAccountAlreadyExists
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	account := &domain.Account{
		ID:           uuid.NewString(),
		TenantID:     tenant.ID,
		Username:     input.Username,
		Email:        input.Email,
		DisplayName:  input.DisplayName,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Status:       domain.AccountStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, domain.AuditEntry{
		Table:    "accounts",
		RecordID: account.ID,
		ActorID:  input.ActorID,
		Action:   domain.AuditActionCreate,
		After:    snapshot(ToAccountOutput(account)),
	})
	return account, nil
}

// ValidateToken is the authorization check for every protected route: it
// accepts a raw access token or an "Authorization: Bearer" value.
func (s *AuthService) ValidateToken(bearer string) (*JWTCustomClaims, error) {
	token := strings.TrimSpace(bearer)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return s.tokens.VerifyAccessToken(token)
}

func (s *AuthService) Me(ctx context.Context, claims *JWTCustomClaims) (*dto.AccountOutput, error) {
	account, err := s.liveAccount(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	return ToAccountOutput(account), nil
}

// ConfigureTwoFactor lets the bearer turn 2FA on or off for their own account.
func (s *AuthService) ConfigureTwoFactor(ctx context.Context, claims *JWTCustomClaims, enable bool) error {
	return s.setTwoFactor(ctx, claims, claims.UserID, enable)
}

// SetTwoFactor is the administrative variant of ConfigureTwoFactor. The
// target must belong to the administrator's tenant.
func (s *AuthService) SetTwoFactor(ctx context.Context, actor *JWTCustomClaims, accountID string, enable bool) error {
	return s.setTwoFactor(ctx, actor, accountID, enable)
}

// tenantAccount is liveAccount restricted to the actor's tenant. Accounts of
// other tenants are reported as not found.
func (s *AuthService) tenantAccount(ctx context.Context, actor *JWTCustomClaims, id string) (*domain.Account, error) {
	account, err := s.liveAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor == nil || account.TenantID != actor.TenantID {
		return nil, autherror.ErrAccountNotFound
	}
	return account, nil
}

func (s *AuthService) setTwoFactor(ctx context.Context, actor *JWTCustomClaims, accountID string, enable bool) error {
	account, err := s.tenantAccount(ctx, actor, accountID)
	if err != nil {
		return err
	}
	if err := s.twoFactor.SetEnabled(ctx, account.ID, enable); err != nil {
		return err
	}

	s.auditor.Record(ctx, domain.AuditEntry{
		Table:    "accounts",
		RecordID: account.ID,
		ActorID:  actor.UserID,
		Action:   domain.AuditActionTwoFactorSetup,
		Before:   snapshot(map[string]bool{"two_factor_enabled": account.TwoFactorEnabled}),
		After:    snapshot(map[string]bool{"two_factor_enabled": enable}),
	})
	return nil
}

// UnlockAccount clears a lockout before its window ends. The target must
// belong to the administrator's tenant.
func (s *AuthService) UnlockAccount(ctx context.Context, actor *JWTCustomClaims, accountID string) error {
	account, err := s.tenantAccount(ctx, actor, accountID)
	if err != nil {
		return err
	}
	if err := s.accounts.ResetFailedAttempts(ctx, account.ID); err != nil {
		return err
	}

	s.auditor.Record(ctx, domain.AuditEntry{
		Table:    "accounts",
		RecordID: account.ID,
		ActorID:  actor.UserID,
		Action:   domain.AuditActionAccountUnlock,
		Before: snapshot(domain.LockoutState{
			FailedAttempts: account.FailedAttempts,
			Status:         account.Status,
			LockedUntil:    account.LockedUntil,
		}),
	})
	return nil
}

func (s *AuthService) RequestPasswordReset(ctx context.Context, input dto.ForgotPasswordInput) error {
	if err := s.validateInput(input); err != nil {
		return err
	}
	return s.passwords.RequestReset(ctx, input.Email)
}

func (s *AuthService) VerifyResetToken(ctx context.Context, token string) (bool, error) {
	return s.passwords.VerifyResetToken(ctx, token)
}

func (s *AuthService) ResetPassword(ctx context.Context, input dto.ResetPasswordInput) error {
	if err := s.validateInput(input); err != nil {
		return err
	}
	return s.passwords.Redeem(ctx, input.Token, input.NewPassword)
}
