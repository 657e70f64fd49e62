package audit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/turtacn/cle/internal/domain/models"
	"github.com/turtacn/cle/internal/domain/service"
	"github.com/turtacn/cle/internal/infrastructure/audit"
	"github.com/turtacn/cle/pkg/constants"
)

func newTestAuditService(t *testing.T) *audit.GormAuditService {
	t.Helper()
	// One shared in-memory database per test; a bare ":memory:" DSN would
	// give every pooled connection its own empty database.
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	svc, err := audit.NewGormAuditService(db)
	require.NoError(t, err)
	return svc
}

func TestGormAuditService_LogAndQuery(t *testing.T) {
	svc := newTestAuditService(t)
	ctx := context.Background()

	event := models.NewAuditEvent(
		constants.EventTypeClientRejected,
		constants.AuditResultFailure,
		"client refused by tolerance gate",
	).WithClient("client-42").
		WithReason(constants.AdmissionReasonLimitExceeded).
		WithResultCode(constants.ErrCodeClientLimitExceeded)

	require.NoError(t, svc.LogEvent(ctx, event))

	admitted := models.NewAuditEvent(
		constants.EventTypeClientAdmitted,
		constants.AuditResultSuccess,
		"client admitted",
	).WithClient("client-7").WithReason(constants.AdmissionReasonWithinLimit)
	require.NoError(t, svc.LogEvent(ctx, admitted))

	logs, err := svc.RecentEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	// Newest first.
	assert.Equal(t, string(constants.EventTypeClientAdmitted), logs[0].EventType)
	assert.Equal(t, "client-42", logs[1].ClientID)
	assert.Equal(t, string(constants.ErrCodeClientLimitExceeded), logs[1].ResultCode)
}

func TestGormAuditService_DuplicateEventIDRefused(t *testing.T) {
	svc := newTestAuditService(t)
	ctx := context.Background()

	event := models.NewAuditEvent(
		constants.EventTypeLicenseLoaded,
		constants.AuditResultSuccess,
		"license loaded",
	).WithLicense("lic-1")

	require.NoError(t, svc.LogEvent(ctx, event))
	assert.Error(t, svc.LogEvent(ctx, event), "the event ID is unique in the trail")
}

func TestSignAuditEvent(t *testing.T) {
	t.Parallel()

	event := models.NewAuditEvent(
		constants.EventTypeIssuerRejected,
		constants.AuditResultFailure,
		"issuer refused",
	).WithIssuer("https://rogue.example.com")

	sig, err := audit.SignAuditEvent(event, "trail-secret")
	require.NoError(t, err)
	require.NotEmpty(t, sig)

	assert.True(t, audit.VerifyAuditEvent(event, "trail-secret", sig))
	assert.False(t, audit.VerifyAuditEvent(event, "wrong-secret", sig))

	event.Message = "tampered"
	assert.False(t, audit.VerifyAuditEvent(event, "trail-secret", sig))
}

type recordingSink struct {
	events []*models.AuditEvent
	err    error
}

func (r *recordingSink) LogEvent(_ context.Context, event *models.AuditEvent) error {
	r.events = append(r.events, event)
	return r.err
}

func TestCompositeAuditService_FansOutPastFailures(t *testing.T) {
	t.Parallel()

	failing := &recordingSink{err: assert.AnError}
	healthy := &recordingSink{}
	composite := audit.NewCompositeAuditService(
		service.AuditService(failing),
		service.AuditService(healthy),
	)

	event := models.NewAuditEvent(constants.EventTypeLicenseLoaded, constants.AuditResultSuccess, "ok")
	err := composite.LogEvent(context.Background(), event)

	assert.ErrorIs(t, err, assert.AnError, "the first failure is surfaced")
	assert.Len(t, healthy.events, 1, "later sinks still receive the event")
}
