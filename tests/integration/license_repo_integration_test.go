//go:build integration

package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/cle/internal/config"
	"github.com/turtacn/cle/internal/domain/models"
	"github.com/turtacn/cle/internal/infrastructure/persistence/postgres"
	"github.com/turtacn/cle/pkg/logger"
)

const licenseRecordsDDL = `
CREATE TABLE IF NOT EXISTS license_records (
	id                   TEXT PRIMARY KEY,
	issuer               TEXT NOT NULL,
	subject              TEXT NOT NULL,
	not_before           TIMESTAMPTZ,
	expires_at           TIMESTAMPTZ,
	grace_period_seconds BIGINT,
	client_limit         BIGINT,
	issuer_limit         BIGINT,
	valid_issuers        TEXT[],
	issued_at            TIMESTAMPTZ,
	raw_token            TEXT NOT NULL,
	source               TEXT NOT NULL,
	created_at           TIMESTAMPTZ NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL,
	deleted_at           TIMESTAMPTZ
)`

func startPostgres(t *testing.T) *postgres.DBConnection {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("cle_test"),
		tcpostgres.WithUsername("cle"),
		tcpostgres.WithPassword("secret"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, testcontainers.TerminateContainer(ctr))
	})

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	db, err := postgres.NewDBConnection(ctx, &config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "cle",
		Password:        "secret",
		Database:        "cle_test",
		SSLMode:         "disable",
		MaxConns:        5,
		MinConns:        1,
		MaxConnLifetime: 5,
		MaxConnIdleTime: 5,
	}, logger.NewNoopLogger())
	require.NoError(t, err)
	t.Cleanup(db.Close)

	_, err = db.Pool().Exec(ctx, licenseRecordsDDL)
	require.NoError(t, err)
	return db
}

func TestLicenseRepositoryIntegration(t *testing.T) {
	if os.Getenv("SKIP_DOCKER_TESTS") != "" {
		t.Skip("Skipping Docker-dependent tests")
	}

	ctx := context.Background()
	db := startPostgres(t)
	repo := postgres.NewLicenseRepository(db, logger.NewNoopLogger())

	now := time.Now().UTC().Truncate(time.Second)
	exp := now.Add(90 * 24 * time.Hour)
	limit := int64(50)
	grace := 14 * 24 * time.Hour

	lic := models.NewLicense("lic-int-001", "https://licensing.example.com", "acme-corp")
	lic.ExpiresAt = &exp
	lic.ClientLimit = &limit
	lic.GracePeriod = &grace
	lic.ValidIssuers = []string{"https://tokens.example.com"}
	lic.IssuedAt = now
	lic.Raw = "raw.jwt.token"
	lic.Source = "api"

	require.NoError(t, repo.Save(ctx, lic))

	got, err := repo.FindByID(ctx, "lic-int-001")
	require.NoError(t, err)
	assert.Equal(t, lic.Issuer, got.Issuer)
	assert.Equal(t, lic.Subject, got.Subject)
	require.NotNil(t, got.ClientLimit)
	assert.Equal(t, int64(50), *got.ClientLimit)
	require.NotNil(t, got.GracePeriod)
	assert.Equal(t, grace, *got.GracePeriod)
	assert.Equal(t, []string{"https://tokens.example.com"}, got.ValidIssuers)
	assert.Equal(t, "raw.jwt.token", got.Raw)

	// Re-ingesting the same jti upserts rather than duplicating.
	newLimit := int64(80)
	lic.ClientLimit = &newLimit
	require.NoError(t, repo.Save(ctx, lic))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err = repo.FindByID(ctx, "lic-int-001")
	require.NoError(t, err)
	assert.Equal(t, int64(80), *got.ClientLimit)

	// ListAll orders open-start licenses before dated ones.
	nb := now.Add(-time.Hour)
	dated := models.NewLicense("lic-int-002", "iss", "sub")
	dated.NotBefore = &nb
	dated.Raw = "raw2"
	dated.Source = "file"
	require.NoError(t, repo.Save(ctx, dated))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "lic-int-001", all[0].ID, "NULL not_before sorts first")
	assert.Equal(t, "lic-int-002", all[1].ID)

	// Delete soft-deletes: the record vanishes from reads but a re-save
	// revives it.
	require.NoError(t, repo.Delete(ctx, "lic-int-002"))
	_, err = repo.FindByID(ctx, "lic-int-002")
	assert.Error(t, err)

	count, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, repo.Save(ctx, dated))
	_, err = repo.FindByID(ctx, "lic-int-002")
	assert.NoError(t, err)

	assert.Error(t, repo.Delete(ctx, "lic-missing"))
}
