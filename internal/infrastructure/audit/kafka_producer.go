// Package audit implements the licensing audit trail: a Kafka producer for
// the event stream and a GORM-backed store for the queryable trail.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/cle/internal/config"
	"github.com/turtacn/cle/internal/domain/models"
	"github.com/turtacn/cle/internal/domain/service"
	"github.com/turtacn/cle/pkg/constants"
	"github.com/turtacn/cle/pkg/errors"
	"github.com/turtacn/cle/pkg/logger"
)

// kafkaMessage is the wire envelope published to the audit topic. The
// signature covers the serialized event under the configured HMAC secret.
type kafkaMessage struct {
	Event     *models.AuditEvent `json:"event"`
	Signature string             `json:"signature,omitempty"`
}

// KafkaProducer publishes audit events to the licensing audit topic.
type KafkaProducer struct {
	writer     *kafka.Writer
	hmacSecret string
	log        logger.Logger
}

var _ service.AuditService = (*KafkaProducer)(nil)

// NewKafkaProducer creates a Kafka-backed audit service. The topic defaults
// to the built-in audit topic when configuration leaves it empty.
//
// Parameters:
//   - cfg: Audit configuration (brokers, topic, HMAC secret).
//   - log: Logger for producer diagnostics.
//
// Returns:
//   - *KafkaProducer: The configured producer.
//   - error: Configuration error if no brokers are set.
func NewKafkaProducer(cfg *config.AuditConfig, log logger.Logger) (*KafkaProducer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.ErrKafkaConnectionFailed("no brokers configured")
	}

	topic := cfg.Topic
	if topic == "" {
		topic = constants.AuditTopic
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}

	return &KafkaProducer{
		writer:     writer,
		hmacSecret: cfg.HMACSecret,
		log:        log.WithComponent("audit_kafka"),
	}, nil
}

// LogEvent publishes one audit event, keyed by its event ID so replays of the
// same event land in the same partition.
//
// Parameters:
//   - ctx: Context for timeout control.
//   - event: The audit event to publish.
//
// Returns:
//   - error: Publish failure. Callers treat auditing as best-effort.
func (p *KafkaProducer) LogEvent(ctx context.Context, event *models.AuditEvent) error {
	msg := kafkaMessage{Event: event}
	if p.hmacSecret != "" {
		sig, err := SignAuditEvent(event, p.hmacSecret)
		if err != nil {
			p.log.Error(ctx, "Failed to sign audit event", err)
			return err
		}
		msg.Signature = sig
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		p.log.Error(ctx, "Failed to marshal audit event", err)
		return err
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.EventID.String()),
		Value: payload,
	}); err != nil {
		p.log.Error(ctx, "Failed to publish audit event", err,
			logger.String("event_type", string(event.EventType)),
		)
		return err
	}
	return nil
}

// Close flushes and closes the underlying Kafka writer.
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// CompositeAuditService fans one event out to several audit sinks. Each sink
// is attempted regardless of earlier failures; the first error is returned.
type CompositeAuditService struct {
	sinks []service.AuditService
}

var _ service.AuditService = (*CompositeAuditService)(nil)

// NewCompositeAuditService combines several audit sinks into one.
func NewCompositeAuditService(sinks ...service.AuditService) *CompositeAuditService {
	return &CompositeAuditService{sinks: sinks}
}

// LogEvent delivers the event to every sink.
func (c *CompositeAuditService) LogEvent(ctx context.Context, event *models.AuditEvent) error {
	var firstErr error
	for _, sink := range c.sinks {
		if err := sink.LogEvent(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
