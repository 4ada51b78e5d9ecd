package config

import (
	"fmt"
	"os"

	"example.com/StealthStack/pkg/crypto"
	"example.com/StealthStack/pkg/models"
	"example.com/StealthStack/pkg/utils/file"
	"gopkg.in/yaml.v3"
)

// Store 负责 inventory.yaml 的读写
// 敏感字段 (登录密码/私钥密码/sudo密码) 落盘前用 AES-GCM 加密
type Store interface {
	Load() (*Configuration, error)
	Save(cfg *Configuration) error
}

type defaultStore struct {
	Path string
	Key  []byte // 用于加解密清单中的敏感字段
}

func NewDefaultStore(path string, key []byte) Store {
	return &defaultStore{
		Path: path,
		Key:  key,
	}
}

func (s *defaultStore) Load() (*Configuration, error) {
	config := NewConfiguration()

	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			// 清单还不存在时返回空配置，首次 inventory add 时创建文件
			return config, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	// 解密 Identities 和 Nodes 中的敏感字段
	crypter, err := crypto.NewCrypter(s.Key)
	if err != nil {
		return nil, fmt.Errorf("初始化解密器失败: %w", err)
	}
	var decErr error
	config.Identities.IterCb(func(name string, id models.Identity) bool {
		if id.Password, decErr = decryptField(crypter, id.Password); decErr != nil {
			return false
		}
		if id.Passphrase, decErr = decryptField(crypter, id.Passphrase); decErr != nil {
			return false
		}
		config.Identities.Set(name, id)
		return true
	})
	if decErr != nil {
		return nil, decErr
	}
	config.Nodes.IterCb(func(name string, node models.Node) bool {
		if node.SudoPwd, decErr = decryptField(crypter, node.SudoPwd); decErr != nil {
			return false
		}
		config.Nodes.Set(name, node)
		return true
	})
	if decErr != nil {
		return nil, decErr
	}
	return config, nil
}

func (s *defaultStore) Save(cfg *Configuration) error {
	crypter, err := crypto.NewCrypter(s.Key)
	if err != nil {
		return fmt.Errorf("初始化加密器失败: %w", err)
	}

	// 加密时不改动调用方持有的 cfg，构造一份快照
	out := NewConfiguration()
	var encErr error
	cfg.Identities.IterCb(func(name string, id models.Identity) bool {
		if id.Password, encErr = encryptField(crypter, id.Password); encErr != nil {
			return false
		}
		if id.Passphrase, encErr = encryptField(crypter, id.Passphrase); encErr != nil {
			return false
		}
		out.Identities.Set(name, id)
		return true
	})
	if encErr != nil {
		return encErr
	}
	cfg.Hosts.IterCb(func(name string, host models.Host) bool {
		out.Hosts.Set(name, host)
		return true
	})
	cfg.Nodes.IterCb(func(name string, node models.Node) bool {
		if node.SudoPwd, encErr = encryptField(crypter, node.SudoPwd); encErr != nil {
			return false
		}
		out.Nodes.Set(name, node)
		return true
	})
	if encErr != nil {
		return encErr
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return err
	}
	return file.CreateFileRecursive(s.Path, data, 0600)
}

// decryptField 只解密带 ENC: 前缀的字段，明文字段原样返回
func decryptField(crypter *crypto.Crypter, value string) (string, error) {
	if !crypto.IsEncrypted(value) {
		return value, nil
	}
	return crypter.Decrypt(value)
}

// encryptField 空字段和已加密字段不重复加密
func encryptField(crypter *crypto.Crypter, value string) (string, error) {
	if value == "" || crypto.IsEncrypted(value) {
		return value, nil
	}
	return crypter.Encrypt(value)
}
