package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/giovanistefani/Construction-manager-sub001/internal/auth/domain"
)

type AuditRepository struct {
	db DB
}

func NewAuditRepository(db DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Insert(ctx context.Context, e *domain.AuditEntry) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO audit_log (id, table_name, record_id, actor_id, action, before_data, after_data, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.Table, e.RecordID, nullString(e.ActorID), string(e.Action),
		nullJSON(e.Before), nullJSON(e.After), nullString(e.Detail), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
