package crypto

import (
	"context"
	"path"

	vault "github.com/hashicorp/vault/api"

	"github.com/turtacn/cle/internal/config"
	"github.com/turtacn/cle/pkg/errors"
	"github.com/turtacn/cle/pkg/logger"
)

// VaultClient provides access to the HashiCorp Vault KV v2 engine holding
// license trust material.
// VaultClient 提供对存放许可信任材料的 HashiCorp Vault KV v2 引擎的访问。
type VaultClient interface {
	// GetSecret reads the secret stored at secretPath under the mount.
	// GetSecret 读取挂载点下 secretPath 处存储的机密。
	GetSecret(ctx context.Context, secretPath string) (map[string]interface{}, error)

	// PutSecret writes data at secretPath under the mount.
	// PutSecret 在挂载点下的 secretPath 处写入数据。
	PutSecret(ctx context.Context, secretPath string, data map[string]interface{}) error

	// DeleteSecret removes the secret at secretPath.
	// DeleteSecret 删除 secretPath 处的机密。
	DeleteSecret(ctx context.Context, secretPath string) error

	// ListSecrets lists the secret names under dirPath.
	// ListSecrets 列出 dirPath 下的机密名称。
	ListSecrets(ctx context.Context, dirPath string) ([]string, error)
}

type vaultClientImpl struct {
	client    *vault.Client
	log       logger.Logger
	mountPath string
}

var _ VaultClient = (*vaultClientImpl)(nil)

// NewVaultClient creates and configures a new Vault client.
//
// Parameters:
//   - cfg: Vault connection settings.
//   - log: Structured logger.
//
// Returns:
//   - VaultClient: The configured client.
//   - error: Construction failure.
func NewVaultClient(cfg *config.VaultConfig, log logger.Logger) (VaultClient, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, errors.ErrVaultOperation("connect").WithCause(err)
	}
	client.SetToken(cfg.Token)

	// Token auth only. AppRole or Kubernetes auth would slot in here for
	// deployments that cannot provision a static token.

	return &vaultClientImpl{
		client:    client,
		log:       log.WithComponent("vault"),
		mountPath: cfg.MountPath,
	}, nil
}

func (v *vaultClientImpl) GetSecret(ctx context.Context, secretPath string) (map[string]interface{}, error) {
	secret, err := v.client.KVv2(v.mountPath).Get(ctx, secretPath)
	if err != nil {
		return nil, errors.ErrVaultOperation("get " + secretPath).WithCause(err)
	}
	if secret == nil || secret.Data == nil {
		return nil, errors.ErrVaultOperation("get " + secretPath + ": empty secret")
	}
	return secret.Data, nil
}

func (v *vaultClientImpl) PutSecret(ctx context.Context, secretPath string, data map[string]interface{}) error {
	if _, err := v.client.KVv2(v.mountPath).Put(ctx, secretPath, data); err != nil {
		return errors.ErrVaultOperation("put " + secretPath).WithCause(err)
	}
	return nil
}

func (v *vaultClientImpl) DeleteSecret(ctx context.Context, secretPath string) error {
	if err := v.client.KVv2(v.mountPath).Delete(ctx, secretPath); err != nil {
		return errors.ErrVaultOperation("delete " + secretPath).WithCause(err)
	}
	return nil
}

func (v *vaultClientImpl) ListSecrets(ctx context.Context, dirPath string) ([]string, error) {
	fullPath := path.Join(v.mountPath, "metadata", dirPath)
	secret, err := v.client.Logical().ListWithContext(ctx, fullPath)
	if err != nil {
		return nil, errors.ErrVaultOperation("list " + dirPath).WithCause(err)
	}
	if secret == nil {
		return []string{}, nil
	}

	raw, ok := secret.Data["keys"].([]interface{})
	if !ok {
		return []string{}, nil
	}
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		if s, ok := k.(string); ok {
			keys = append(keys, s)
		}
	}
	return keys, nil
}
