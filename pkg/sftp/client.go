package sftp

import (
	"fmt"

	"example.com/StealthStack/pkg/ssh" // 复用已经建立的 ssh 连接 (包括跳板机隧道)
	"github.com/pkg/sftp"
)

// Client 包装了 sftp.Client，并持有底层的 ssh 连接引用
type Client struct {
	sftpClient *sftp.Client
	sshClient  *ssh.Client
}

// NewClient 基于现有的 SSH 连接创建一个 SFTP 客户端
// sftp.NewClient 会在 ssh 连接上打开一个新的 Subsystem
func NewClient(sshCli *ssh.Client) (*Client, error) {
	client, err := sftp.NewClient(sshCli.SSHClient())
	if err != nil {
		return nil, fmt.Errorf("failed to create sftp subsystem: %w", err)
	}
	return &Client{
		sftpClient: client,
		sshClient:  sshCli,
	}, nil
}

// SFTPClient 返回底层的 *sftp.Client 对象，
// 允许调用者执行 rename, chmod, stat 等高级操作
func (c *Client) SFTPClient() *sftp.Client {
	return c.sftpClient
}

// Close 关闭 SFTP 会话 (不会关闭底层的 SSH 连接)
func (c *Client) Close() error {
	return c.sftpClient.Close()
}

// JoinPath 处理远程路径拼接 (SFTP 协议强制使用 forward slash)
func (c *Client) JoinPath(elem ...string) string {
	return c.sftpClient.Join(elem...)
}
