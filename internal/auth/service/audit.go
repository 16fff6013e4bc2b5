package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/giovanistefani/Construction-manager-sub001/internal/auth/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Auditor fans an entry out to every sink. Writes are best effort: a failing
// sink is logged and never fails the operation being audited.
type Auditor struct {
	sinks  []domain.AuditRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewAuditor(logger *zap.Logger, sinks ...domain.AuditRepository) *Auditor {
	return &Auditor{sinks: sinks, logger: logger, now: time.Now}
}

func (a *Auditor) Record(ctx context.Context, entry domain.AuditEntry) {
	if a == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = a.now()
	}

	for _, sink := range a.sinks {
		if err := sink.Insert(ctx, &entry); err != nil {
			a.logger.Warn("failed to write audit entry",
				zap.String("action", string(entry.Action)),
				zap.String("record_id", entry.RecordID),
				zap.Error(err),
			)
		}
	}
}

// snapshot marshals v for the before/after columns; failures yield nil.
func snapshot(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
