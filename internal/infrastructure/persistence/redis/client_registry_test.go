package redis_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/cle/internal/config"
	redisinfra "github.com/turtacn/cle/internal/infrastructure/persistence/redis"
	"github.com/turtacn/cle/internal/domain/service"
	"github.com/turtacn/cle/pkg/constants"
	"github.com/turtacn/cle/pkg/logger"
)

func newTestRegistry(t *testing.T) (service.ClientRegistry, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	log := logger.NewLogger(constants.LogLevelError, &bytes.Buffer{})

	conn, err := redisinfra.NewRedisConnection(context.Background(), &config.RedisConfig{
		Addresses: []string{mr.Addr()},
	}, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return redisinfra.NewClientRegistry(conn, log), mr
}

func TestClientRegistry_Clients(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	added, err := reg.AddClient(ctx, "client-1")
	require.NoError(t, err)
	assert.True(t, added)

	// Re-adding the same ID is idempotent.
	added, err = reg.AddClient(ctx, "client-1")
	require.NoError(t, err)
	assert.False(t, added)

	seen, err := reg.HasClient(ctx, "client-1")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = reg.HasClient(ctx, "client-2")
	require.NoError(t, err)
	assert.False(t, seen)

	for i := 0; i < 5; i++ {
		_, err := reg.AddClient(ctx, fmt.Sprintf("bulk-%d", i))
		require.NoError(t, err)
	}
	count, err := reg.CountClients(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), count)
}

func TestClientRegistry_Issuers(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	added, err := reg.AddIssuer(ctx, "https://issuer1.example.com")
	require.NoError(t, err)
	assert.True(t, added)

	seen, err := reg.HasIssuer(ctx, "https://issuer1.example.com")
	require.NoError(t, err)
	assert.True(t, seen)

	// Issuers and clients live in separate sets.
	seen, err = reg.HasClient(ctx, "https://issuer1.example.com")
	require.NoError(t, err)
	assert.False(t, seen)

	count, err := reg.CountIssuers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestClientRegistry_SurfacesConnectionLoss(t *testing.T) {
	reg, mr := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.AddClient(ctx, "client-1")
	require.NoError(t, err)

	mr.Close()

	_, err = reg.HasClient(ctx, "client-1")
	assert.Error(t, err, "a dead registry reports an error, callers decide the fallback")
}
