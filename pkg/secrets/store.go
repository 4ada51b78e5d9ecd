package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	vault "github.com/hashicorp/vault/api"
	"gopkg.in/yaml.v3"

	"example.com/StealthStack/pkg/crypto"
	"example.com/StealthStack/pkg/utils/file"
)

// Store 秘密存取的统一抽象
// 目前有两个实现：本地加密文件和 HashiCorp Vault
type Store interface {
	Get(ctx context.Context, name string) (string, error)
	Set(ctx context.Context, name, value string) error
	Delete(ctx context.Context, name string) error
}

// ErrNotFound 秘密不存在
type ErrNotFound struct {
	Name string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("secret '%s' not found", e.Name)
}

// NewFromEnv 按环境选一个后端：设置了 VAULT_ADDR 就用 Vault，
// 否则用本地加密文件 (keyPath 是 AES 密钥，storePath 是秘密文件)
func NewFromEnv(keyPath, storePath string) (Store, error) {
	if os.Getenv(vault.EnvVaultAddress) != "" {
		return NewVaultStore()
	}
	return NewFileStore(keyPath, storePath)
}

// FileStore 把秘密存在本地 YAML 文件里，值一律 AES-GCM 加密
type FileStore struct {
	crypter *crypto.Crypter
	path    string
}

func NewFileStore(keyPath, storePath string) (*FileStore, error) {
	key, err := crypto.LoadOrGenerateKey(keyPath)
	if err != nil {
		return nil, fmt.Errorf("load secret key failed: %w", err)
	}
	crypter, err := crypto.NewCrypter(key)
	if err != nil {
		return nil, err
	}
	return &FileStore{crypter: crypter, path: storePath}, nil
}

func (s *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read secret store failed: %w", err)
	}
	entries := map[string]string{}
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse secret store failed: %w", err)
	}
	return entries, nil
}

func (s *FileStore) save(entries map[string]string) error {
	data, err := yaml.Marshal(entries)
	if err != nil {
		return err
	}
	return file.CreateFileRecursive(s.path, data, 0600)
}

func (s *FileStore) Get(_ context.Context, name string) (string, error) {
	entries, err := s.load()
	if err != nil {
		return "", err
	}
	enc, ok := entries[name]
	if !ok {
		return "", &ErrNotFound{Name: name}
	}
	return s.crypter.Decrypt(enc)
}

func (s *FileStore) Set(_ context.Context, name, value string) error {
	entries, err := s.load()
	if err != nil {
		return err
	}
	enc, err := s.crypter.Encrypt(value)
	if err != nil {
		return err
	}
	entries[name] = enc
	return s.save(entries)
}

func (s *FileStore) Delete(_ context.Context, name string) error {
	entries, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := entries[name]; !ok {
		return &ErrNotFound{Name: name}
	}
	delete(entries, name)
	return s.save(entries)
}

const (
	vaultMount      = "secret"
	vaultPathPrefix = "sstack"
	vaultValueKey   = "value"
)

// VaultStore 把秘密放在 Vault 的 KV v2 引擎里
// 地址和令牌走 Vault 官方客户端的标准环境变量 (VAULT_ADDR / VAULT_TOKEN)
type VaultStore struct {
	kv *vault.KVv2
}

func NewVaultStore() (*VaultStore, error) {
	client, err := vault.NewClient(vault.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("create vault client failed: %w", err)
	}
	return &VaultStore{kv: client.KVv2(vaultMount)}, nil
}

func vaultPath(name string) string {
	return filepath.ToSlash(filepath.Join(vaultPathPrefix, name))
}

func (s *VaultStore) Get(ctx context.Context, name string) (string, error) {
	secret, err := s.kv.Get(ctx, vaultPath(name))
	if err != nil {
		if errors.Is(err, vault.ErrSecretNotFound) {
			return "", &ErrNotFound{Name: name}
		}
		return "", fmt.Errorf("vault read failed: %w", err)
	}
	value, ok := secret.Data[vaultValueKey].(string)
	if !ok {
		return "", &ErrNotFound{Name: name}
	}
	return value, nil
}

func (s *VaultStore) Set(ctx context.Context, name, value string) error {
	_, err := s.kv.Put(ctx, vaultPath(name), map[string]interface{}{vaultValueKey: value})
	if err != nil {
		return fmt.Errorf("vault write failed: %w", err)
	}
	return nil
}

func (s *VaultStore) Delete(ctx context.Context, name string) error {
	if err := s.kv.DeleteMetadata(ctx, vaultPath(name)); err != nil {
		return fmt.Errorf("vault delete failed: %w", err)
	}
	return nil
}
