package config

import (
	"example.com/StealthStack/pkg/models"
	"example.com/StealthStack/pkg/utils/concurrent"
)

// Configuration 对应 inventory.yaml 的顶层结构
type Configuration struct {
	Identities *concurrent.Map[string, models.Identity] `yaml:"identities"`
	Hosts      *concurrent.Map[string, models.Host]     `yaml:"hosts"`
	Nodes      *concurrent.Map[string, models.Node]     `yaml:"nodes"`
}

// NewConfiguration 创建一个空的 Configuration
// yaml 反序列化前必须先初始化内部的并发 Map
func NewConfiguration() *Configuration {
	return &Configuration{
		Identities: concurrent.NewMap[string, models.Identity](concurrent.HashString),
		Hosts:      concurrent.NewMap[string, models.Host](concurrent.HashString),
		Nodes:      concurrent.NewMap[string, models.Node](concurrent.HashString),
	}
}

// Provider 定义上层组件获取清单数据的接口
type Provider interface {
	GetNode(name string) (models.Node, bool)
	GetHost(name string) (models.Host, bool)
	GetIdentity(name string) (models.Identity, bool)
	AddHost(name string, host models.Host)
	AddIdentity(name string, identity models.Identity)
	AddNode(name string, node models.Node)
	DeleteNode(name string)
	ListNodes() map[string]models.Node
	// GetNodesByTag 返回所有带指定角色标签的节点，即一次操作的目标 Fleet
	GetNodesByTag(tag string) map[string]models.Node
	Find(input string) string
}
