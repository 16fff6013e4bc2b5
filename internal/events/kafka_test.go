package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/giovanistefani/Construction-manager-sub001/internal/auth/domain"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closeErr error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return w.closeErr
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestProducer_Insert(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducer(w, &recordingWriter{}, "auth.audit", "auth.notifications", zap.NewNop())

	entry := &domain.AuditEntry{ID: "audit-1", Table: "accounts", RecordID: "acc-1", Action: domain.AuditActionLogin}
	require.NoError(t, p.Insert(context.Background(), entry))

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "auth.audit", msg.Topic)
	assert.Equal(t, "acc-1", string(msg.Key))
	assert.Equal(t, "audit.LOGIN", header(msg, headerEventType))

	var decoded domain.AuditEntry
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "audit-1", decoded.ID)
}

func TestProducer_Notifications(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducer(&recordingWriter{}, w, "auth.audit", "auth.notifications", zap.NewNop())
	account := &domain.Account{ID: "acc-1", TenantID: "tenant-1", Email: "ana@example.com", DisplayName: "Ana"}
	expiresAt := time.Date(2025, 3, 10, 9, 10, 0, 0, time.UTC)

	require.NoError(t, p.SendTwoFactorCode(context.Background(), account, "123456", expiresAt))
	require.NoError(t, p.SendPasswordReset(context.Background(), account, "reset-token", expiresAt))

	require.Len(t, w.messages, 2)
	assert.Equal(t, EventTwoFactorCode, header(w.messages[0], headerEventType))
	assert.Equal(t, EventPasswordReset, header(w.messages[1], headerEventType))

	var decoded SecretDelivery
	require.NoError(t, json.Unmarshal(w.messages[1].Value, &decoded))
	assert.Equal(t, "reset-token", decoded.Secret)
	assert.Equal(t, "ana@example.com", decoded.Email)
	assert.True(t, expiresAt.Equal(decoded.ExpiresAt))
}

func TestProducer_WriteError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	p := NewProducer(&recordingWriter{}, w, "auth.audit", "auth.notifications", zap.NewNop())

	err := p.SendTwoFactorCode(context.Background(), &domain.Account{ID: "acc-1"}, "123456", time.Now())
	assert.ErrorContains(t, err, "broker down")
}

func TestProducer_AuditAndDeliveriesUseSeparateWriters(t *testing.T) {
	audit := &recordingWriter{}
	notifications := &recordingWriter{}
	p := NewProducer(audit, notifications, "auth.audit", "auth.notifications", zap.NewNop())
	account := &domain.Account{ID: "acc-1"}

	require.NoError(t, p.Insert(context.Background(), &domain.AuditEntry{RecordID: "acc-1", Action: domain.AuditActionLogin}))
	require.NoError(t, p.SendTwoFactorCode(context.Background(), account, "123456", time.Now()))

	require.Len(t, audit.messages, 1)
	assert.Equal(t, "auth.audit", audit.messages[0].Topic)
	require.Len(t, notifications.messages, 1)
	assert.Equal(t, "auth.notifications", notifications.messages[0].Topic)
}

func TestNewWriter(t *testing.T) {
	assert.True(t, NewWriter([]string{"localhost:9092"}, true, zap.NewNop()).Async)
	assert.False(t, NewWriter([]string{"localhost:9092"}, false, zap.NewNop()).Async)
}

func TestProducer_Close(t *testing.T) {
	t.Run("closes both writers", func(t *testing.T) {
		audit, notifications := &recordingWriter{}, &recordingWriter{}
		p := NewProducer(audit, notifications, "a", "n", zap.NewNop())

		require.NoError(t, p.Close())
		assert.True(t, audit.closed)
		assert.True(t, notifications.closed)
	})

	t.Run("first error is returned after closing both", func(t *testing.T) {
		audit := &recordingWriter{closeErr: errors.New("flush failed")}
		notifications := &recordingWriter{}
		p := NewProducer(audit, notifications, "a", "n", zap.NewNop())

		assert.ErrorContains(t, p.Close(), "flush failed")
		assert.True(t, notifications.closed)
	})
}
