package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/turtacn/cle/internal/domain/models"
	"github.com/turtacn/cle/internal/domain/repository"
	"github.com/turtacn/cle/pkg/errors"
	"github.com/turtacn/cle/pkg/logger"
)

// LicenseRepositoryImpl implements LicenseRepository on PostgreSQL. License
// records are keyed by jti and soft-deleted, so an audit of past grants
// survives removal.
type LicenseRepositoryImpl struct {
	db  *DBConnection
	log logger.Logger
}

var _ repository.LicenseRepository = (*LicenseRepositoryImpl)(nil)

// NewLicenseRepository creates a PostgreSQL-backed license repository.
//
// Parameters:
//   - db: Database connection manager.
//   - log: Logger for repository operations.
//
// Returns:
//   - repository.LicenseRepository: Initialized repository implementation.
func NewLicenseRepository(db *DBConnection, log logger.Logger) repository.LicenseRepository {
	return &LicenseRepositoryImpl{
		db:  db,
		log: log.WithComponent("license_repository"),
	}
}

// Save upserts a license record by jti. Re-ingesting the same token revives a
// soft-deleted record and refreshes its fields.
//
// Parameters:
//   - ctx: Context for timeout and cancellation.
//   - lic: The license to persist.
//
// Returns:
//   - error: Persistence error including constraint violations.
func (r *LicenseRepositoryImpl) Save(ctx context.Context, lic *models.License) error {
	query := `
		INSERT INTO license_records (
			id, issuer, subject, not_before, expires_at, grace_period_seconds,
			client_limit, issuer_limit, valid_issuers, issued_at, raw_token,
			source, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			issuer = EXCLUDED.issuer,
			subject = EXCLUDED.subject,
			not_before = EXCLUDED.not_before,
			expires_at = EXCLUDED.expires_at,
			grace_period_seconds = EXCLUDED.grace_period_seconds,
			client_limit = EXCLUDED.client_limit,
			issuer_limit = EXCLUDED.issuer_limit,
			valid_issuers = EXCLUDED.valid_issuers,
			raw_token = EXCLUDED.raw_token,
			source = EXCLUDED.source,
			deleted_at = NULL,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`

	var graceSeconds *int64
	if lic.GracePeriod != nil {
		secs := int64(lic.GracePeriod.Seconds())
		graceSeconds = &secs
	}

	err := r.db.Pool().QueryRow(ctx, query,
		lic.ID,
		lic.Issuer,
		lic.Subject,
		lic.NotBefore,
		lic.ExpiresAt,
		graceSeconds,
		lic.ClientLimit,
		lic.IssuerLimit,
		lic.ValidIssuers,
		lic.IssuedAt,
		lic.Raw,
		lic.Source,
	).Scan(&lic.CreatedAt, &lic.UpdatedAt)

	if err != nil {
		r.log.Error(ctx, "Failed to save license record", err,
			logger.String("license_id", lic.ID),
		)
		return errors.ErrStorageOperation("save license").WithCause(err)
	}

	r.log.Info(ctx, "License record saved",
		logger.String("license_id", lic.ID),
		logger.String("issuer", lic.Issuer),
		logger.String("source", lic.Source),
	)
	return nil
}

const licenseColumns = `
	id, issuer, subject, not_before, expires_at, grace_period_seconds,
	client_limit, issuer_limit, valid_issuers, issued_at, raw_token,
	source, created_at, updated_at
`

// FindByID retrieves a license record by jti.
//
// Parameters:
//   - ctx: Context for timeout control.
//   - id: The license jti.
//
// Returns:
//   - *models.License: The record if found.
//   - error: A not-found error when no record matches, or a storage error.
func (r *LicenseRepositoryImpl) FindByID(ctx context.Context, id string) (*models.License, error) {
	query := `
		SELECT ` + licenseColumns + `
		FROM license_records
		WHERE id = $1 AND deleted_at IS NULL
	`

	lic, err := scanLicense(r.db.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.ErrLicenseNotFound(id)
		}
		r.log.Error(ctx, "Failed to find license record", err,
			logger.String("license_id", id),
		)
		return nil, errors.ErrStorageOperation("find license").WithCause(err)
	}
	return lic, nil
}

// ListAll returns every non-deleted license record ordered by window start,
// nulls first so open-start licenses come before every dated one.
//
// Parameters:
//   - ctx: Context for timeout control.
//
// Returns:
//   - []*models.License: All persisted records.
//   - error: Storage error if any.
func (r *LicenseRepositoryImpl) ListAll(ctx context.Context) ([]*models.License, error) {
	query := `
		SELECT ` + licenseColumns + `
		FROM license_records
		WHERE deleted_at IS NULL
		ORDER BY not_before ASC NULLS FIRST, id ASC
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		r.log.Error(ctx, "Failed to list license records", err)
		return nil, errors.ErrStorageOperation("list licenses").WithCause(err)
	}
	defer rows.Close()

	var licenses []*models.License
	for rows.Next() {
		lic, err := scanLicense(rows)
		if err != nil {
			return nil, errors.ErrStorageOperation("scan license row").WithCause(err)
		}
		licenses = append(licenses, lic)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.ErrStorageOperation("iterate license rows").WithCause(err)
	}
	return licenses, nil
}

// Delete soft-deletes a license record by jti.
//
// Parameters:
//   - ctx: Context for timeout control.
//   - id: The license jti.
//
// Returns:
//   - error: A not-found error when no live record matches.
func (r *LicenseRepositoryImpl) Delete(ctx context.Context, id string) error {
	query := `
		UPDATE license_records
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	tag, err := r.db.Pool().Exec(ctx, query, id)
	if err != nil {
		r.log.Error(ctx, "Failed to delete license record", err,
			logger.String("license_id", id),
		)
		return errors.ErrStorageOperation("delete license").WithCause(err)
	}
	if tag.RowsAffected() == 0 {
		return errors.ErrLicenseNotFound(id)
	}

	r.log.Info(ctx, "License record deleted", logger.String("license_id", id))
	return nil
}

// Count returns the number of non-deleted license records.
//
// Parameters:
//   - ctx: Context for timeout control.
//
// Returns:
//   - int64: The record count.
//   - error: Storage error if any.
func (r *LicenseRepositoryImpl) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.Pool().QueryRow(ctx,
		`SELECT COUNT(*) FROM license_records WHERE deleted_at IS NULL`,
	).Scan(&count)
	if err != nil {
		return 0, errors.ErrStorageOperation("count licenses").WithCause(err)
	}
	return count, nil
}

// scanLicense maps one license_records row onto the domain model.
func scanLicense(row pgx.Row) (*models.License, error) {
	lic := &models.License{}
	var graceSeconds sql.NullInt64
	var issuedAt sql.NullTime

	err := row.Scan(
		&lic.ID,
		&lic.Issuer,
		&lic.Subject,
		&lic.NotBefore,
		&lic.ExpiresAt,
		&graceSeconds,
		&lic.ClientLimit,
		&lic.IssuerLimit,
		&lic.ValidIssuers,
		&issuedAt,
		&lic.Raw,
		&lic.Source,
		&lic.CreatedAt,
		&lic.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if graceSeconds.Valid {
		gp := time.Duration(graceSeconds.Int64) * time.Second
		lic.GracePeriod = &gp
	}
	if issuedAt.Valid {
		lic.IssuedAt = issuedAt.Time
	}
	return lic, nil
}
