package domain

import "time"

type TwoFactorCode struct {
	ID         string
	AccountID  string
	CodeHash   string
	ExpiresAt  time.Time
	Attempts   int
	Consumed   bool
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

type PasswordResetToken struct {
	ID         string
	AccountID  string
	TokenHash  string
	ExpiresAt  time.Time
	Consumed   bool
	ConsumedAt *time.Time
	CreatedAt  time.Time
}
