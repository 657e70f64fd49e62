package audit

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/turtacn/cle/internal/domain/models"
	"github.com/turtacn/cle/internal/domain/service"
	"github.com/turtacn/cle/pkg/constants"
)

// LicenseAuditLog is the relational form of an audit event. It is the
// queryable trail; the Kafka stream carries the same events for consumers.
type LicenseAuditLog struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	EventID    string    `gorm:"size:36;uniqueIndex;not null"`
	EventType  string    `gorm:"size:64;index;not null"`
	Result     string    `gorm:"size:16;not null"`
	ResultCode string    `gorm:"size:64"`
	LicenseID  string    `gorm:"size:255;index"`
	ClientID   string    `gorm:"size:255;index"`
	Issuer     string    `gorm:"size:255;index"`
	Reason     string    `gorm:"size:64"`
	ActorID    string    `gorm:"size:255"`
	IPAddress  string    `gorm:"size:45"`
	TraceID    string    `gorm:"size:64"`
	Message    string    `gorm:"type:text"`
	Metadata   []byte    `gorm:"type:jsonb"`
	Timestamp  time.Time `gorm:"index;not null"`
	CreatedAt  time.Time
}

// TableName pins the table name independent of GORM's pluralization.
func (LicenseAuditLog) TableName() string {
	return constants.TableNameLicenseAuditLogs
}

// GormAuditService stores audit events in a relational database.
type GormAuditService struct {
	db *gorm.DB
}

var _ service.AuditService = (*GormAuditService)(nil)

// NewGormAuditService creates a database-backed audit service and ensures the
// trail table exists.
//
// Parameters:
//   - db: An open GORM handle.
//
// Returns:
//   - *GormAuditService: The configured service.
//   - error: Migration failure.
func NewGormAuditService(db *gorm.DB) (*GormAuditService, error) {
	if err := db.AutoMigrate(&LicenseAuditLog{}); err != nil {
		return nil, err
	}
	return &GormAuditService{db: db}, nil
}

// LogEvent persists one audit event to the trail table.
//
// Parameters:
//   - ctx: Context for timeout control.
//   - event: The audit event to store.
//
// Returns:
//   - error: Persistence failure.
func (s *GormAuditService) LogEvent(ctx context.Context, event *models.AuditEvent) error {
	record := &LicenseAuditLog{
		EventID:    event.EventID.String(),
		EventType:  string(event.EventType),
		Result:     string(event.Result),
		ResultCode: string(event.ResultCode),
		LicenseID:  event.LicenseID,
		ClientID:   event.ClientID,
		Issuer:     event.Issuer,
		Reason:     string(event.Reason),
		ActorID:    event.ActorID,
		IPAddress:  event.IPAddress,
		TraceID:    event.TraceID,
		Message:    event.Message,
		Metadata:   event.Metadata,
		Timestamp:  event.Timestamp,
	}
	return s.db.WithContext(ctx).Create(record).Error
}

// RecentEvents returns the newest events in the trail, newest first.
//
// Parameters:
//   - ctx: Context for timeout control.
//   - limit: Maximum number of events to return.
//
// Returns:
//   - []LicenseAuditLog: The trail entries.
//   - error: Query failure.
func (s *GormAuditService) RecentEvents(ctx context.Context, limit int) ([]LicenseAuditLog, error) {
	var logs []LicenseAuditLog
	err := s.db.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
