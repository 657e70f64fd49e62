package crypto

import (
	"context"
	stdcrypto "crypto"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"
	"sort"

	"github.com/turtacn/cle/internal/config"
	"github.com/turtacn/cle/internal/domain/service"
	"github.com/turtacn/cle/pkg/constants"
	"github.com/turtacn/cle/pkg/errors"
	"github.com/turtacn/cle/pkg/logger"
)

// embeddedTrustAnchorPEM is the Ed25519 verification key compiled into the
// binary. Deployments that never configure a file or Vault source verify
// license tokens against this anchor alone.
// embeddedTrustAnchorPEM 是编译进二进制文件的 Ed25519 验证密钥。
// 从未配置文件或 Vault 来源的部署仅使用此信任锚验证许可令牌。
const embeddedTrustAnchorPEM = `-----BEGIN PUBLIC KEY-----
MCowBQYDK2VwAyEAlbXZQRx8jgMzwpXbbjOGcnA+9TG0lms/auxbPzY+Tdo=
-----END PUBLIC KEY-----`

// trustStore holds a fixed set of verification keys, indexed by key ID.
// The set is immutable after construction, so lookups need no locking.
type trustStore struct {
	keys       map[string]stdcrypto.PublicKey
	defaultKID string
}

var _ service.TrustStore = (*trustStore)(nil)

// NewTrustStore builds the trust store selected by cfg.TrustAnchorSource:
// "embedded", "file", or "vault".
// NewTrustStore 构建由 cfg.TrustAnchorSource 选择的信任存储：
// "embedded"、"file" 或 "vault"。
//
// Parameters:
//   - ctx: Context for the optional Vault fetch.
//   - cfg: License configuration naming the source.
//   - vaultClient: Required only when the source is "vault".
//   - log: Structured logger.
//
// Returns:
//   - service.TrustStore: The constructed store.
//   - error: When the source cannot be loaded or parsed.
func NewTrustStore(ctx context.Context, cfg *config.LicenseConfig, vaultClient VaultClient, log logger.Logger) (service.TrustStore, error) {
	switch cfg.TrustAnchorSource {
	case "file":
		return NewFileTrustStore(cfg.TrustAnchorFile, log)
	case "vault":
		if vaultClient == nil {
			return nil, errors.ErrVaultOperation("trust store: no vault client configured")
		}
		return NewVaultTrustStore(ctx, vaultClient, log)
	default:
		return NewEmbeddedTrustStore()
	}
}

// NewEmbeddedTrustStore builds a store holding only the compiled-in anchor.
// NewEmbeddedTrustStore 构建仅包含编译内置信任锚的存储。
func NewEmbeddedTrustStore() (service.TrustStore, error) {
	return newTrustStoreFromPEM([]byte(embeddedTrustAnchorPEM))
}

// NewFileTrustStore loads every PEM block from path. A block may carry a
// "kid" PEM header; blocks without one are addressed by their SHA-256
// fingerprint. The first block also becomes the default anchor.
// NewFileTrustStore 从 path 加载所有 PEM 块。块可以携带 "kid" PEM 头；
// 没有该头的块通过其 SHA-256 指纹寻址。第一个块同时成为默认信任锚。
func NewFileTrustStore(path string, log logger.Logger) (service.TrustStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trust anchor file %s: %w", path, err)
	}
	store, err := newTrustStoreFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("trust anchor file %s: %w", path, err)
	}
	log.Info(context.Background(), "Loaded trust anchors from file",
		logger.String("path", path),
		logger.Int("keys", len(store.(*trustStore).keys)),
	)
	return store, nil
}

// NewVaultTrustStore fetches the anchor set from Vault. The secret at the
// trust-anchors path maps key IDs to PEM-encoded public keys.
// NewVaultTrustStore 从 Vault 获取信任锚集合。信任锚路径处的机密将密钥 ID
// 映射到 PEM 编码的公钥。
func NewVaultTrustStore(ctx context.Context, client VaultClient, log logger.Logger) (service.TrustStore, error) {
	data, err := client.GetSecret(ctx, constants.VaultTrustAnchorsPath)
	if err != nil {
		return nil, err
	}

	keys := make(map[string]stdcrypto.PublicKey, len(data))
	kids := make([]string, 0, len(data))
	for kid, raw := range data {
		pemText, ok := raw.(string)
		if !ok {
			return nil, errors.ErrVaultOperation(fmt.Sprintf("trust anchor %q is not a PEM string", kid))
		}
		pub, err := parsePublicKeyPEM([]byte(pemText))
		if err != nil {
			return nil, errors.ErrVaultOperation(fmt.Sprintf("trust anchor %q", kid)).WithCause(err)
		}
		keys[kid] = pub
		kids = append(kids, kid)
	}
	if len(keys) == 0 {
		return nil, errors.ErrVaultOperation("trust anchors secret holds no keys")
	}

	// The default anchor must be stable across restarts, so pick the
	// lexicographically first key ID rather than map iteration order.
	sort.Strings(kids)
	log.Info(ctx, "Loaded trust anchors from vault", logger.Int("keys", len(keys)))
	return &trustStore{keys: keys, defaultKID: kids[0]}, nil
}

// NewStaticTrustStore wraps an explicit anchor map. The empty-string entry,
// when present, becomes the default anchor; otherwise the lexicographically
// first key ID does.
// NewStaticTrustStore 包装一个显式的信任锚映射。存在空字符串条目时其成为默认
// 信任锚；否则由字典序最小的密钥 ID 充当。
func NewStaticTrustStore(anchors map[string]stdcrypto.PublicKey) (service.TrustStore, error) {
	if len(anchors) == 0 {
		return nil, fmt.Errorf("static trust store needs at least one anchor")
	}

	keys := make(map[string]stdcrypto.PublicKey, len(anchors))
	kids := make([]string, 0, len(anchors))
	for kid, pub := range anchors {
		keys[kid] = pub
		kids = append(kids, kid)
	}
	sort.Strings(kids)

	defaultKID := kids[0]
	if _, ok := keys[""]; ok {
		defaultKID = ""
	}
	return &trustStore{keys: keys, defaultKID: defaultKID}, nil
}

// VerificationKey returns the anchor registered under kid. An empty kid
// selects the default anchor.
func (s *trustStore) VerificationKey(_ context.Context, kid string) (stdcrypto.PublicKey, error) {
	if kid == "" {
		kid = s.defaultKID
	}
	pub, ok := s.keys[kid]
	if !ok {
		return nil, fmt.Errorf("no trust anchor for key id %q", kid)
	}
	return pub, nil
}

// KeyIDs lists the key IDs held by the store in sorted order.
func (s *trustStore) KeyIDs() []string {
	kids := make([]string, 0, len(s.keys))
	for kid := range s.keys {
		kids = append(kids, kid)
	}
	sort.Strings(kids)
	return kids
}

// newTrustStoreFromPEM parses every PEM block in data into an anchor.
func newTrustStoreFromPEM(data []byte) (service.TrustStore, error) {
	keys := make(map[string]stdcrypto.PublicKey)
	defaultKID := ""
	first := true

	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}

		pub, err := parsePublicKeyBlock(block)
		if err != nil {
			return nil, err
		}

		kid := block.Headers["kid"]
		if kid == "" {
			kid = fingerprint(block.Bytes)
		}
		keys[kid] = pub
		if first {
			defaultKID = kid
			first = false
		}
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("no PEM public key blocks found")
	}
	return &trustStore{keys: keys, defaultKID: defaultKID}, nil
}

func parsePublicKeyPEM(data []byte) (stdcrypto.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	return parsePublicKeyBlock(block)
}

func parsePublicKeyBlock(block *pem.Block) (stdcrypto.PublicKey, error) {
	switch block.Type {
	case "PUBLIC KEY":
		return x509.ParsePKIXPublicKey(block.Bytes)
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	default:
		return nil, fmt.Errorf("unsupported PEM block type %q", block.Type)
	}
}

// fingerprint derives a stable key ID from the DER bytes of an anchor.
func fingerprint(der []byte) string {
	sum := sha256.Sum256(der)
	return hex.EncodeToString(sum[:8])
}
