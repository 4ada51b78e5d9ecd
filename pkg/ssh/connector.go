package ssh

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"example.com/StealthStack/pkg/config"
	"example.com/StealthStack/pkg/models"
	"example.com/StealthStack/pkg/utils/concurrent"
	"golang.org/x/crypto/ssh"
	"golang.org/x/sync/singleflight"
)

// Connector 负责创建 SSH 连接
type Connector struct {
	Config config.Provider
	// 连接池：缓存 nodeName -> *ssh.Client
	clients *concurrent.Map[string, *ssh.Client]
	// singleflight 组，用来控制并发和去重
	sf singleflight.Group
}

// NewConnector 创建一个新的 Connector
func NewConnector(cfg config.Provider) *Connector {
	return &Connector{
		Config:  cfg,
		clients: concurrent.NewMap[string, *ssh.Client](concurrent.HashString),
	}
}

// Connect 根据节点名称建立 SSH 连接
// 自动处理跳板机逻辑：如果节点配置了 ProxyJump，会递归建立连接
func (c *Connector) Connect(ctx context.Context, nodeName string) (*Client, error) {
	if cachedClient, ok := c.clients.Get(nodeName); ok {
		// 批量部署是短生命周期操作，假设缓存的连接可用
		node, _ := c.Config.GetNode(nodeName)
		host, _ := c.Config.GetHost(nodeName)
		identity, _ := c.Config.GetIdentity(nodeName)
		return newClient(cachedClient, node, host, identity), nil
	}
	// 缓存未命中，开始建立新连接
	// 【合并请求】即使 100 个协程同时调 Connect(host)，Do 里面的函数只会执行一次
	// 其他协程会阻塞在这里等待结果
	result, err, _ := c.sf.Do(nodeName, func() (interface{}, error) {
		// 双重检查：防止在进入 Do 之前那一瞬间，别的协程刚好把连接建立好了
		if cachedClient, ok := c.clients.Get(nodeName); ok {
			node, _ := c.Config.GetNode(nodeName)
			host, _ := c.Config.GetHost(nodeName)
			identity, _ := c.Config.GetIdentity(nodeName)
			return newClient(cachedClient, node, host, identity), nil
		}

		// 1. 获取节点配置
		node, ok := c.Config.GetNode(nodeName)
		if !ok {
			return nil, fmt.Errorf("node not found '%s'", nodeName)
		}

		// 2. 获取关联的 Host 和 Identity 数据
		host, ok := c.Config.GetHost(nodeName)
		if !ok {
			return nil, fmt.Errorf("host ref '%s' not found for node '%s'", node.HostRef, nodeName)
		}
		identity, ok := c.Config.GetIdentity(nodeName)
		if !ok {
			return nil, fmt.Errorf("identity ref '%s' not found for node '%s'", node.IdentityRef, nodeName)
		}

		// 3. 确定网络拨号器 (Dialer)
		// 如果有 ProxyJump，递归连接跳板机，将其 SSH 通道封装为 Dialer
		var dialer Dialer = &net.Dialer{Timeout: 10 * time.Second} // 默认直连

		if node.ProxyJump != "" {
			jumpHost := c.Config.Find(node.ProxyJump)
			if jumpHost == "" {
				jumpHost = node.ProxyJump
			}
			jumpNodeClient, err := c.Connect(ctx, jumpHost)
			if err != nil {
				return nil, fmt.Errorf("failed to connect to jump host '%s': %w", node.ProxyJump, err)
			}
			dialer = &SSHProxyDialer{Client: jumpNodeClient.sshClient}
		}

		// 4. 构建目标 SSH 配置 (认证信息)
		sshConfig, err := buildSSHConfig(identity)
		if err != nil {
			return nil, fmt.Errorf("failed to build ssh config for '%s': %w", nodeName, err)
		}

		// 5. 建立底层 TCP 连接 (通过 Dialer)
		targetAddr := fmt.Sprintf("%s:%d", host.Address, host.Port)
		conn, err := dialer.DialContext(ctx, "tcp", targetAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to dial target '%s' (%s): %w", nodeName, targetAddr, err)
		}

		// 6. 建立 SSH 会话
		ncc, chans, reqs, err := ssh.NewClientConn(conn, targetAddr, sshConfig)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("ssh handshake failed for '%s': %w", nodeName, err)
		}
		rawClient := ssh.NewClient(ncc, chans, reqs)
		c.clients.Set(nodeName, rawClient)

		// 部署阶段可能耗时较长 (拉镜像等)，心跳保活防止中间设备掐断空闲连接
		StartKeepAlive(rawClient, 30*time.Second, nil)

		return newClient(rawClient, node, host, identity), nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Client), nil
}

// CloseAll 关闭所有缓存的连接 (在程序退出前调用)
func (c *Connector) CloseAll() {
	c.clients.IterCb(func(name string, client *ssh.Client) bool {
		client.Close()
		return true
	})
	c.clients.Clear()
}

// buildSSHConfig 根据 Identity 模型构建 ssh.ClientConfig
func buildSSHConfig(id models.Identity) (*ssh.ClientConfig, error) {
	var auth AuthMethod
	switch id.AuthType {
	case "password":
		auth = &PasswordAuth{Password: id.Password}
	case "key":
		auth = &KeyAuth{Path: id.KeyPath, Passphrase: id.Passphrase}
	default:
		return nil, fmt.Errorf("unsupported auth type: %s", id.AuthType)
	}
	method, err := auth.GetMethod()
	if err != nil {
		return nil, err
	}

	return &ssh.ClientConfig{
		User:            id.User,
		Auth:            []ssh.AuthMethod{method},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // TODO: 集成 known_hosts 检查
		Timeout:         15 * time.Second,
	}, nil
}

// expandHomeDir 简单的路径处理辅助函数
func expandHomeDir(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return home + path[1:]
		}
	}
	return path
}
