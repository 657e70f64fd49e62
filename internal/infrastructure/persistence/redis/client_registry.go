package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/cle/internal/domain/service"
	"github.com/turtacn/cle/pkg/constants"
	"github.com/turtacn/cle/pkg/errors"
	"github.com/turtacn/cle/pkg/logger"
)

// ClientRegistryImpl mirrors the seen-client and seen-issuer sets into Redis
// sets, so every replica of the service agrees on which principals are
// grandfathered. Set membership is the source of truth for "seen before"
// across restarts; the in-process maps are only the fast path.
type ClientRegistryImpl struct {
	client redis.UniversalClient
	log    logger.Logger
}

var _ service.ClientRegistry = (*ClientRegistryImpl)(nil)

// NewClientRegistry creates a Redis-backed client registry.
//
// Parameters:
//   - conn: Redis connection manager.
//   - log: Logger for registry operations.
//
// Returns:
//   - service.ClientRegistry: Initialized registry implementation.
func NewClientRegistry(conn *RedisConnection, log logger.Logger) service.ClientRegistry {
	return &ClientRegistryImpl{
		client: conn.Client(),
		log:    log.WithComponent("client_registry"),
	}
}

// AddClient records a client ID in the shared set.
//
// Parameters:
//   - ctx: Context for timeout control.
//   - clientID: The client identifier to record.
//
// Returns:
//   - bool: True if the ID was newly added.
//   - error: Registry error if the operation fails.
func (r *ClientRegistryImpl) AddClient(ctx context.Context, clientID string) (bool, error) {
	added, err := r.client.SAdd(ctx, constants.RegistryKeySeenClients, clientID).Result()
	if err != nil {
		return false, errors.ErrCacheOperation("add client").WithCause(err)
	}
	if added > 0 {
		r.log.Debug(ctx, "Client recorded in shared registry",
			logger.String("client_id", clientID),
		)
	}
	return added > 0, nil
}

// HasClient reports whether a client ID has been recorded.
func (r *ClientRegistryImpl) HasClient(ctx context.Context, clientID string) (bool, error) {
	seen, err := r.client.SIsMember(ctx, constants.RegistryKeySeenClients, clientID).Result()
	if err != nil {
		return false, errors.ErrCacheOperation("check client").WithCause(err)
	}
	return seen, nil
}

// CountClients returns the number of distinct recorded client IDs.
func (r *ClientRegistryImpl) CountClients(ctx context.Context) (int64, error) {
	count, err := r.client.SCard(ctx, constants.RegistryKeySeenClients).Result()
	if err != nil {
		return 0, errors.ErrCacheOperation("count clients").WithCause(err)
	}
	return count, nil
}

// AddIssuer records an issuer in the shared set.
//
// Parameters:
//   - ctx: Context for timeout control.
//   - issuer: The issuer to record.
//
// Returns:
//   - bool: True if the issuer was newly added.
//   - error: Registry error if the operation fails.
func (r *ClientRegistryImpl) AddIssuer(ctx context.Context, issuer string) (bool, error) {
	added, err := r.client.SAdd(ctx, constants.RegistryKeySeenIssuers, issuer).Result()
	if err != nil {
		return false, errors.ErrCacheOperation("add issuer").WithCause(err)
	}
	if added > 0 {
		r.log.Debug(ctx, "Issuer recorded in shared registry",
			logger.String("issuer", issuer),
		)
	}
	return added > 0, nil
}

// HasIssuer reports whether an issuer has been recorded.
func (r *ClientRegistryImpl) HasIssuer(ctx context.Context, issuer string) (bool, error) {
	seen, err := r.client.SIsMember(ctx, constants.RegistryKeySeenIssuers, issuer).Result()
	if err != nil {
		return false, errors.ErrCacheOperation("check issuer").WithCause(err)
	}
	return seen, nil
}

// CountIssuers returns the number of distinct recorded issuers.
func (r *ClientRegistryImpl) CountIssuers(ctx context.Context) (int64, error) {
	count, err := r.client.SCard(ctx, constants.RegistryKeySeenIssuers).Result()
	if err != nil {
		return 0, errors.ErrCacheOperation("count issuers").WithCause(err)
	}
	return count, nil
}
