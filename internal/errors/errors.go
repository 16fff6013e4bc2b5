package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAccountNotFound      = errors.New("account not found")
	ErrTenantNotFound       = errors.New("tenant not found")
	ErrAccountAlreadyExists = errors.New("username or email already in use")
	ErrInvalidTwoFactorCode = errors.New("invalid or expired two-factor code")
	ErrInvalidResetToken    = errors.New("invalid or expired password reset token")
	ErrForbidden            = errors.New("insufficient permissions")

	ErrTokenMalformed        = errors.New("token is malformed")
	ErrTokenExpired          = errors.New("token is expired")
	ErrTokenInvalidSignature = errors.New("token signature is invalid")
	ErrTokenWrongKind        = errors.New("token kind not accepted here")
)

// IsTokenError reports whether err is any of the token verification failures.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenInvalidSignature) ||
		errors.Is(err, ErrTokenWrongKind)
}

// ValidationError carries every reason the input was rejected.
type ValidationError struct {
	Reasons []string
}

func NewValidationError(reasons ...string) *ValidationError {
	return &ValidationError{Reasons: reasons}
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Reasons, "; ")
}

// LockedError is returned while an account is locked out.
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked, retry after %s", e.RetryAfter.Round(time.Second))
}

// RetryAfterSeconds rounds up so a client never retries too early.
func (e *LockedError) RetryAfterSeconds() int {
	secs := int(e.RetryAfter / time.Second)
	if e.RetryAfter%time.Second != 0 {
		secs++
	}
	return secs
}
