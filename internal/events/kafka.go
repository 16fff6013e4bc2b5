package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/giovanistefani/Construction-manager-sub001/internal/auth/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	EventTwoFactorCode  = "auth.two_factor_code"
	EventPasswordReset  = "auth.password_reset"
	headerEventType     = "event-type"
	headerContentType   = "content-type"
	contentTypeJSON     = "application/json"
	defaultWriteTimeout = 5 * time.Second
)

// MessageWriter is the part of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter builds a hash-balanced writer. An async writer returns as soon as
// the message is queued; delivery failures surface only through Completion.
func NewWriter(brokers []string, async bool, logger *zap.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        async,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("failed to write kafka messages",
					zap.Error(err),
					zap.Int("message_count", len(messages)),
				)
			}
		},
	}
}

// Producer publishes audit entries and secret deliveries. It satisfies both
// domain.AuditRepository and service.Notifier. Audit entries and deliveries
// go through separate writers.
type Producer struct {
	auditWriter        MessageWriter
	notificationWriter MessageWriter
	auditTopic         string
	notificationTopic  string
	logger             *zap.Logger
}

func NewProducer(auditWriter, notificationWriter MessageWriter, auditTopic, notificationTopic string, logger *zap.Logger) *Producer {
	return &Producer{
		auditWriter:        auditWriter,
		notificationWriter: notificationWriter,
		auditTopic:         auditTopic,
		notificationTopic:  notificationTopic,
		logger:             logger,
	}
}

func (p *Producer) publish(ctx context.Context, writer MessageWriter, topic, eventType, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", eventType, err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: headerEventType, Value: []byte(eventType)},
			{Key: headerContentType, Value: []byte(contentTypeJSON)},
		},
	}
	if err := writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	p.logger.Debug("produced kafka message",
		zap.String("topic", topic),
		zap.String("event_type", eventType),
		zap.String("key", key),
	)
	return nil
}

// Insert streams an audit entry keyed by the affected record, so entries of
// one account stay ordered within a partition.
func (p *Producer) Insert(ctx context.Context, entry *domain.AuditEntry) error {
	return p.publish(ctx, p.auditWriter, p.auditTopic, "audit."+string(entry.Action), entry.RecordID, entry)
}

type SecretDelivery struct {
	AccountID   string    `json:"account_id"`
	TenantID    string    `json:"tenant_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Secret      string    `json:"secret"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func delivery(account *domain.Account, secret string, expiresAt time.Time) SecretDelivery {
	return SecretDelivery{
		AccountID:   account.ID,
		TenantID:    account.TenantID,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		Secret:      secret,
		ExpiresAt:   expiresAt,
	}
}

func (p *Producer) SendTwoFactorCode(ctx context.Context, account *domain.Account, code string, expiresAt time.Time) error {
	return p.publish(ctx, p.notificationWriter, p.notificationTopic, EventTwoFactorCode, account.ID, delivery(account, code, expiresAt))
}

func (p *Producer) SendPasswordReset(ctx context.Context, account *domain.Account, token string, expiresAt time.Time) error {
	return p.publish(ctx, p.notificationWriter, p.notificationTopic, EventPasswordReset, account.ID, delivery(account, token, expiresAt))
}

// Close flushes and closes both writers. The first error is returned.
func (p *Producer) Close() error {
	var first error
	for _, w := range []MessageWriter{p.auditWriter, p.notificationWriter} {
		if err := w.Close(); err != nil {
			p.logger.Error("failed to close kafka writer", zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	if first == nil {
		p.logger.Info("kafka producer closed")
	}
	return first
}
