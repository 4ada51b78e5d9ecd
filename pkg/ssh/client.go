package ssh

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"example.com/StealthStack/pkg/models"
	"golang.org/x/crypto/ssh"
)

// Client 包装一条已建立的 SSH 连接及其节点配置
type Client struct {
	sshClient *ssh.Client
	node      models.Node
	host      models.Host
	identity  models.Identity
}

func newClient(raw *ssh.Client, node models.Node, host models.Host, identity models.Identity) *Client {
	return &Client{
		sshClient: raw,
		node:      node,
		host:      host,
		identity:  identity,
	}
}

// Close 关闭连接
func (c *Client) Close() error {
	return c.sshClient.Close()
}

// SSHClient 暴露底层的 ssh.Client (供高级操作使用，如 SFTP)
func (c *Client) SSHClient() *ssh.Client {
	return c.sshClient
}

// Node 返回当前连接对应的节点配置
func (c *Client) Node() models.Node {
	return c.node
}

// Addr 返回 host:port 形式的目标地址
func (c *Client) Addr() string {
	return fmt.Sprintf("%s:%d", c.host.Address, c.host.Port)
}

func (c *Client) Run(ctx context.Context, cmd string) (string, error) {
	session, err := c.sshClient.NewSession()
	if err != nil {
		return "", err
	}
	defer session.Close()

	return startWithTimeout(ctx, session, cmd)
}

// RunWithSudo 执行 sudo 命令，自动注入密码，并返回干净的输出
// 密码优先取节点的 SudoPwd，为空时回退到登录密码
func (c *Client) RunWithSudo(ctx context.Context, command string) (string, error) {
	if c.node.SudoMode == "none" {
		// 节点声明无需提权 (通常是 root 直连)
		return c.Run(ctx, command)
	}

	session, err := c.sshClient.NewSession()
	if err != nil {
		return "", err
	}
	defer session.Close()

	password := c.node.SudoPwd
	if password == "" {
		password = c.identity.Password
	}

	// 把 "密码 + 换行符" 准备好，放入 Stdin
	// sudo -S 启动时会立刻从这里读走密码
	if password != "" {
		session.Stdin = strings.NewReader(password + "\n")
	}

	// -S: 从 Stdin 读密码
	// -p '': 将提示符设为空字符串，输出里就不会混入 "Password:" 之类的杂质
	// 整条命令包进 bash -c，保证 && 串联的每一段都在提权下执行
	fullCmd := fmt.Sprintf("sudo -S -p '' bash -c %q", command)
	return startWithTimeout(ctx, session, fullCmd)
}

// RunScriptWithSudo 以 root 权限执行一段本地脚本内容
// 脚本通过 stdin 管道送入远端 bash，避免先落盘再执行
func (c *Client) RunScriptWithSudo(ctx context.Context, script string) (string, error) {
	session, err := c.sshClient.NewSession()
	if err != nil {
		return "", err
	}
	defer session.Close()

	password := c.node.SudoPwd
	if password == "" {
		password = c.identity.Password
	}

	if c.node.SudoMode == "none" {
		session.Stdin = strings.NewReader(script)
		return startWithTimeout(ctx, session, "bash -s")
	}

	// 密码和脚本共用 stdin：sudo -S 先读走第一行密码，剩下的归 bash -s
	session.Stdin = strings.NewReader(password + "\n" + script)
	return startWithTimeout(ctx, session, "sudo -S -p '' bash -s")
}

func startWithTimeout(ctx context.Context, session *ssh.Session, command string) (string, error) {
	// 捕获 Stdout 和 Stderr 到同一个缓冲区
	var b bytes.Buffer
	session.Stdout = &b
	session.Stderr = &b

	if err := session.Start(command); err != nil {
		return "", fmt.Errorf("failed to start command: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- session.Wait()
	}()

	// 等待命令完成或上下文取消
	select {
	case err := <-done:
		if err != nil {
			return b.String(), fmt.Errorf("failed to run command: %v, output: %s", err, b.String())
		}
		return b.String(), nil
	case <-ctx.Done():
		// 上下文取消，尝试终止命令
		if killErr := session.Signal(ssh.SIGKILL); killErr != nil {
			return b.String(), fmt.Errorf("failed to kill command after context done: %v", killErr)
		}
		return b.String(), ctx.Err()
	}
}
