package domain

import (
	"encoding/json"
	"time"
)

type AuditAction string

const (
	AuditActionLogin          AuditAction = "LOGIN"
	AuditActionLoginFailed    AuditAction = "LOGIN_FAILED"
	AuditActionAccountLocked  AuditAction = "ACCOUNT_LOCKED"
	AuditActionAccountUnlock  AuditAction = "ACCOUNT_UNLOCKED"
	AuditActionTwoFactor      AuditAction = "TWO_FACTOR"
	AuditActionRefresh        AuditAction = "REFRESH"
	AuditActionCreate         AuditAction = "CREATE"
	AuditActionPasswordReset  AuditAction = "PASSWORD_RESET"
	AuditActionTwoFactorSetup AuditAction = "TWO_FACTOR_CONFIG"
)

// AuditEntry is an append-only record of a security relevant action.
type AuditEntry struct {
	ID        string          `json:"id"`
	Table     string          `json:"table"`
	RecordID  string          `json:"record_id"`
	ActorID   string          `json:"actor_id,omitempty"`
	Action    AuditAction     `json:"action"`
	Before    json.RawMessage `json:"before,omitempty"`
	After     json.RawMessage `json:"after,omitempty"`
	Detail    string          `json:"detail,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
