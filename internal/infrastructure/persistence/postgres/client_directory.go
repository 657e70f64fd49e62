package postgres

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/turtacn/cle/internal/domain/service"
	"github.com/turtacn/cle/pkg/constants"
	"github.com/turtacn/cle/pkg/errors"
	"github.com/turtacn/cle/pkg/logger"
)

// ClientDirectoryImpl answers whether a client identifier is provisioned in
// the host deployment's registered_clients table. Answers are cached with a
// short TTL because the directory sits on the admission hot path and a
// provisioned client rarely disappears.
type ClientDirectoryImpl struct {
	db    *DBConnection
	cache *gocache.Cache
	log   logger.Logger
}

var _ service.ClientDirectory = (*ClientDirectoryImpl)(nil)

// NewClientDirectory creates a directory backed by PostgreSQL with an
// in-process answer cache.
//
// Parameters:
//   - db: Database connection manager.
//   - cacheTTL: Lifetime of cached answers; zero selects the default.
//   - log: Logger for directory operations.
//
// Returns:
//   - service.ClientDirectory: Initialized directory implementation.
func NewClientDirectory(db *DBConnection, cacheTTL time.Duration, log logger.Logger) service.ClientDirectory {
	if cacheTTL <= 0 {
		cacheTTL = constants.DirectoryCacheTTL
	}
	return &ClientDirectoryImpl{
		db:    db,
		cache: gocache.New(cacheTTL, 2*cacheTTL),
		log:   log.WithComponent("client_directory"),
	}
}

// Exists reports whether the client is provisioned. Only positive answers are
// cached: a client provisioned moments after a negative lookup must become
// visible without waiting out the TTL.
//
// Parameters:
//   - ctx: Context for timeout control.
//   - clientID: The client identifier to look up.
//
// Returns:
//   - bool: True if the client is provisioned.
//   - error: Storage error if the lookup fails.
func (d *ClientDirectoryImpl) Exists(ctx context.Context, clientID string) (bool, error) {
	cacheKey := constants.CacheKeyPrefixDirectory + clientID
	if _, found := d.cache.Get(cacheKey); found {
		return true, nil
	}

	var exists bool
	err := d.db.Pool().QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM registered_clients WHERE client_id = $1 AND disabled_at IS NULL)`,
		clientID,
	).Scan(&exists)
	if err != nil {
		d.log.Error(ctx, "Client directory lookup failed", err,
			logger.String("client_id", clientID),
		)
		return false, errors.ErrStorageOperation("client directory lookup").WithCause(err)
	}

	if exists {
		d.cache.SetDefault(cacheKey, struct{}{})
	}
	return exists, nil
}
