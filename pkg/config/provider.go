package config

import (
	"fmt"

	"example.com/StealthStack/pkg/models"
	"example.com/StealthStack/pkg/utils/concurrent"
)

type defaultProvider struct {
	cfg         *Configuration
	lookupIndex *concurrent.Map[string, string]
}

func NewProvider(cfg *Configuration) Provider {
	provider := defaultProvider{
		cfg:         cfg,
		lookupIndex: concurrent.NewMap[string, string](concurrent.HashString),
	}
	provider.init()
	return provider
}

// add 将节点及其所有标识符 (ID / user@addr:port / 别名) 加入索引
func (cp defaultProvider) add(nodeId string) {
	node, ok := cp.GetNode(nodeId)
	if !ok {
		return
	}
	identity, ok := cp.GetIdentity(nodeId)
	if !ok {
		return
	}
	host, ok := cp.GetHost(nodeId)
	if !ok {
		return
	}
	cp.lookupIndex.Set(nodeId, nodeId)
	user := identity.User
	if user != "" {
		cp.lookupIndex.Set(fmt.Sprintf("%s@%s:%d", user, host.Address, host.Port), nodeId)
		for _, addr := range host.Alias {
			if addr == "" {
				continue
			}
			cp.lookupIndex.Set(fmt.Sprintf("%s@%s:%d", user, addr, host.Port), nodeId)
		}
	}
	for _, alias := range node.Alias {
		if alias == "" {
			continue
		}
		cp.lookupIndex.Set(alias, nodeId)
	}
}

// Find 匹配用户输入
func (cp defaultProvider) Find(input string) string {
	if nodeId, ok := cp.lookupIndex.Get(input); ok {
		return nodeId
	}
	return ""
}

func (cp defaultProvider) GetNode(nodeId string) (models.Node, bool) {
	return cp.cfg.Nodes.Get(nodeId)
}

func (cp defaultProvider) GetHost(nodeId string) (models.Host, bool) {
	if node, ok := cp.cfg.Nodes.Get(nodeId); ok {
		return cp.cfg.Hosts.Get(node.HostRef)
	}
	return models.Host{}, false
}

func (cp defaultProvider) GetIdentity(nodeId string) (models.Identity, bool) {
	if node, ok := cp.cfg.Nodes.Get(nodeId); ok {
		return cp.cfg.Identities.Get(node.IdentityRef)
	}
	return models.Identity{}, false
}

func (cp defaultProvider) AddNode(nodeId string, node models.Node) {
	cp.cfg.Nodes.Set(nodeId, node)
	cp.add(nodeId)
}

func (cp defaultProvider) AddHost(hostId string, host models.Host) {
	cp.cfg.Hosts.Set(hostId, host)
}

func (cp defaultProvider) AddIdentity(identityId string, identity models.Identity) {
	cp.cfg.Identities.Set(identityId, identity)
}

func (cp defaultProvider) DeleteNode(nodeId string) {
	if _, ok := cp.cfg.Nodes.Get(nodeId); ok {
		// Host 和 Identity 可能被多个 Node 引用，这里只删除节点本身
		cp.cfg.Nodes.Remove(nodeId)

		// 从索引中删除
		for _, key := range cp.lookupIndex.Keys() {
			if val, ok := cp.lookupIndex.Get(key); ok && val == nodeId {
				cp.lookupIndex.Remove(key)
			}
		}
	}
}

func (cp defaultProvider) ListNodes() map[string]models.Node {
	nodes := make(map[string]models.Node)
	for _, k := range cp.cfg.Nodes.Keys() {
		if v, ok := cp.cfg.Nodes.Get(k); ok {
			nodes[k] = v
		}
	}
	return nodes
}

// GetNodesByTag 返回带指定角色标签的全部节点
// 清单加载后节点集合在一次运行内不会变化，结果可以安全地并发读取
func (cp defaultProvider) GetNodesByTag(tag string) map[string]models.Node {
	nodes := make(map[string]models.Node)
	cp.cfg.Nodes.IterCb(func(id string, node models.Node) bool {
		if node.HasTag(tag) {
			nodes[id] = node
		}
		return true
	})
	return nodes
}

func (cp defaultProvider) init() {
	for _, nodeId := range cp.cfg.Nodes.Keys() {
		cp.add(nodeId)
	}
}
