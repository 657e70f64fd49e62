package crypto_test

import (
	"context"
	stdcrypto "crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/cle/internal/infrastructure/crypto"
)

func writePEMFile(t *testing.T, blocks ...*pem.Block) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "anchors.pem")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	for _, b := range blocks {
		require.NoError(t, pem.Encode(f, b))
	}
	return path
}

func publicKeyBlock(t *testing.T, pub ed25519.PublicKey, kid string) *pem.Block {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)
	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	if kid != "" {
		block.Headers = map[string]string{"kid": kid}
	}
	return block
}

func TestEmbeddedTrustStore(t *testing.T) {
	t.Parallel()

	store, err := crypto.NewEmbeddedTrustStore()
	require.NoError(t, err)

	require.Len(t, store.KeyIDs(), 1)

	pub, err := store.VerificationKey(context.Background(), "")
	require.NoError(t, err)
	_, ok := pub.(ed25519.PublicKey)
	assert.True(t, ok, "the embedded anchor is an Ed25519 key")
}

func TestFileTrustStore(t *testing.T) {
	t.Parallel()

	pubA, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	pubB, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	path := writePEMFile(t,
		publicKeyBlock(t, pubA, "signing-2025"),
		publicKeyBlock(t, pubB, ""),
	)

	store, err := crypto.NewFileTrustStore(path, testLogger())
	require.NoError(t, err)
	assert.Len(t, store.KeyIDs(), 2)

	ctx := context.Background()

	got, err := store.VerificationKey(ctx, "signing-2025")
	require.NoError(t, err)
	assert.True(t, pubA.Equal(got.(ed25519.PublicKey)))

	// The first block in the file doubles as the default anchor.
	def, err := store.VerificationKey(ctx, "")
	require.NoError(t, err)
	assert.True(t, pubA.Equal(def.(ed25519.PublicKey)))

	_, err = store.VerificationKey(ctx, "retired-2019")
	assert.Error(t, err)
}

func TestFileTrustStore_Errors(t *testing.T) {
	t.Parallel()

	_, err := crypto.NewFileTrustStore(filepath.Join(t.TempDir(), "missing.pem"), testLogger())
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.pem")
	require.NoError(t, os.WriteFile(empty, []byte("not pem at all"), 0o600))
	_, err = crypto.NewFileTrustStore(empty, testLogger())
	assert.Error(t, err)
}

func TestStaticTrustStore(t *testing.T) {
	t.Parallel()

	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	_, err = crypto.NewStaticTrustStore(nil)
	assert.Error(t, err, "an empty anchor map is refused")

	store, err := crypto.NewStaticTrustStore(map[string]stdcrypto.PublicKey{"k1": pub})
	require.NoError(t, err)

	got, err := store.VerificationKey(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, pub.Equal(got.(ed25519.PublicKey)), "a single anchor serves as the default")
}
