package cmd

import (
	"context"
	"fmt"
	"strings"

	cmdutils "example.com/StealthStack/cmd/utils"
	"example.com/StealthStack/pkg/config"
	"example.com/StealthStack/pkg/crypto"
	"example.com/StealthStack/pkg/executor"
	"example.com/StealthStack/pkg/models"
	"example.com/StealthStack/pkg/secrets"
	"example.com/StealthStack/pkg/ssh"
)

// openInventory 加载节点清单，返回持久化接口和查询接口
func openInventory() (config.Store, *config.Configuration, config.Provider, error) {
	configPath, keyPath := cmdutils.GetConfigFilePath()
	key, err := crypto.LoadOrGenerateKey(keyPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("加载清单密钥失败: %w", err)
	}
	store := config.NewDefaultStore(configPath, key)
	cfg, err := store.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("加载清单失败: %w", err)
	}
	return store, cfg, config.NewProvider(cfg), nil
}

// selectFleet 按角色标签圈定本次操作触达的节点
// 圈定后顺带解析清单里的凭据引用，连接层拿到的就是真实凭据
func selectFleet(ctx context.Context, provider config.Provider, role string) (map[string]models.Node, error) {
	fleet := provider.GetNodesByTag(role)
	if len(fleet) == 0 {
		return nil, fmt.Errorf("标签组 %s 下没有节点, 请先用 sstack inventory add 添加", role)
	}
	if err := resolveSecretRefs(ctx, provider, fleet); err != nil {
		return nil, err
	}
	return fleet, nil
}

// SecretRefPrefix 标记清单字段引用密钥库条目而非明文凭据
const SecretRefPrefix = "secret:"

// resolveSecretRefs 把 secret:<name> 形式的凭据引用替换成密钥库里的真实值
// 只改内存副本，不回写磁盘；密钥库按需惰性打开
func resolveSecretRefs(ctx context.Context, provider config.Provider, fleet map[string]models.Node) error {
	var store secrets.Store
	lookup := func(ref string) (string, error) {
		if store == nil {
			s, err := openSecretStore()
			if err != nil {
				return "", err
			}
			store = s
		}
		value, err := store.Get(ctx, strings.TrimPrefix(ref, SecretRefPrefix))
		if err != nil {
			return "", fmt.Errorf("解析凭据引用 %s 失败: %w", ref, err)
		}
		return value, nil
	}

	for name, node := range fleet {
		if strings.HasPrefix(node.SudoPwd, SecretRefPrefix) {
			value, err := lookup(node.SudoPwd)
			if err != nil {
				return err
			}
			node.SudoPwd = value
			provider.AddNode(name, node)
			fleet[name] = node
		}
		identity, ok := provider.GetIdentity(node.IdentityRef)
		if !ok {
			continue
		}
		changed := false
		if strings.HasPrefix(identity.Password, SecretRefPrefix) {
			value, err := lookup(identity.Password)
			if err != nil {
				return err
			}
			identity.Password = value
			changed = true
		}
		if strings.HasPrefix(identity.Passphrase, SecretRefPrefix) {
			value, err := lookup(identity.Passphrase)
			if err != nil {
				return err
			}
			identity.Passphrase = value
			changed = true
		}
		if changed {
			provider.AddIdentity(node.IdentityRef, identity)
		}
	}
	return nil
}

// sshConnect 把连接池适配成各执行层需要的连接函数
// 回环地址的节点不经 SSH，直接在本机执行
func sshConnect(connector *ssh.Connector) func(ctx context.Context, nodeId string, node models.Node) (executor.Executor, error) {
	return func(ctx context.Context, nodeId string, node models.Node) (executor.Executor, error) {
		if host, ok := connector.Config.GetHost(nodeId); ok {
			if host.Address == "localhost" || host.Address == "127.0.0.1" {
				return executor.NewLocalExecutor(), nil
			}
		}
		client, err := connector.Connect(ctx, nodeId)
		if err != nil {
			return nil, err
		}
		return executor.NewSSHExecutor(client), nil
	}
}
