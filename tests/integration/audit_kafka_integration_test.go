//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/cle/internal/config"
	"github.com/turtacn/cle/internal/domain/models"
	"github.com/turtacn/cle/internal/infrastructure/audit"
	"github.com/turtacn/cle/pkg/constants"
	"github.com/turtacn/cle/pkg/logger"
)

func TestAuditKafkaIntegration(t *testing.T) {
	if os.Getenv("SKIP_DOCKER_TESTS") != "" {
		t.Skip("Skipping Docker-dependent tests")
	}

	const secret = "integration-hmac-secret"
	producer, err := audit.NewKafkaProducer(&config.AuditConfig{
		Brokers:    []string{kafkaBroker},
		Topic:      auditTopic,
		HMACSecret: secret,
	}, logger.NewNoopLogger())
	require.NoError(t, err)
	defer producer.Close()

	event := models.NewAuditEvent(
		constants.EventTypeLicenseLoaded,
		constants.AuditResultSuccess,
		"license accepted",
	).WithLicense("lic-integration-001")

	require.NoError(t, producer.LogEvent(context.Background(), event))

	// Consume the message to verify the envelope and its signature.
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   []string{kafkaBroker},
		Topic:     auditTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	msg, err := r.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, event.EventID.String(), string(msg.Key))

	var envelope struct {
		Event     *models.AuditEvent `json:"event"`
		Signature string             `json:"signature"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &envelope))
	require.NotNil(t, envelope.Event)
	assert.Equal(t, constants.EventTypeLicenseLoaded, envelope.Event.EventType)
	assert.Equal(t, "lic-integration-001", envelope.Event.LicenseID)
	assert.True(t, audit.VerifyAuditEvent(envelope.Event, secret, envelope.Signature),
		"the published envelope carries a valid HMAC signature")
}
