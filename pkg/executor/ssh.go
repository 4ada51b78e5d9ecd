package executor

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"example.com/StealthStack/pkg/sftp"
	"example.com/StealthStack/pkg/ssh"
)

// SSHExecutor 包装 ssh.Client 以满足 Executor 接口
// SFTP 子系统按需创建，纯命令型操作不会打开它
type SSHExecutor struct {
	client *ssh.Client

	mu   sync.Mutex
	sftp *sftp.Client
}

func NewSSHExecutor(client *ssh.Client) *SSHExecutor {
	return &SSHExecutor{client: client}
}

func (e *SSHExecutor) Run(ctx context.Context, cmd string) (string, error) {
	return e.client.Run(ctx, cmd)
}

func (e *SSHExecutor) RunWithSudo(ctx context.Context, cmd string) (string, error) {
	return e.client.RunWithSudo(ctx, cmd)
}

func (e *SSHExecutor) RunScriptWithSudo(ctx context.Context, script string) (string, error) {
	return e.client.RunScriptWithSudo(ctx, script)
}

// Upload 先经 SFTP 写入登录用户可写的暂存路径，再用 sudo install 落到目标位置
// 目标目录 (如 /opt/sstack) 通常只有 root 可写
func (e *SSHExecutor) Upload(ctx context.Context, content []byte, remotePath string, mode os.FileMode) error {
	cli, err := e.sftpClient()
	if err != nil {
		return err
	}

	stage := path.Join("/tmp", fmt.Sprintf(".sstack-stage-%s", path.Base(remotePath)))
	if err := cli.WriteFile(ctx, stage, content); err != nil {
		return fmt.Errorf("upload to stage failed: %w", err)
	}

	installCmd := fmt.Sprintf("mkdir -p %s && install -m %03o %s %s && rm -f %s",
		path.Dir(remotePath), mode.Perm(), stage, remotePath, stage)
	if _, err := e.client.RunWithSudo(ctx, installCmd); err != nil {
		return fmt.Errorf("install %s failed: %w", remotePath, err)
	}
	return nil
}

// UploadTree 一次性下发整棵配置树
// 文件先并发经 SFTP 写入暂存目录，再用一条提权命令按序落位，
// 避免每个文件一次 sudo 往返
func (e *SSHExecutor) UploadTree(ctx context.Context, root string, files map[string][]byte, mode os.FileMode) error {
	cli, err := e.sftpClient()
	if err != nil {
		return err
	}

	stage := path.Join("/tmp", fmt.Sprintf(".sstack-stage-%d", time.Now().UnixNano()))
	if err := cli.WriteTree(ctx, stage, files); err != nil {
		return fmt.Errorf("upload tree to stage failed: %w", err)
	}

	rels := make([]string, 0, len(files))
	for rel := range files {
		rels = append(rels, rel)
	}
	sort.Strings(rels)

	var b strings.Builder
	for _, rel := range rels {
		fmt.Fprintf(&b, "install -D -m %03o %s %s && ",
			mode.Perm(), path.Join(stage, rel), path.Join(root, rel))
	}
	fmt.Fprintf(&b, "rm -rf %s", stage)

	if _, err := e.client.RunWithSudo(ctx, b.String()); err != nil {
		return fmt.Errorf("install tree under %s failed: %w", root, err)
	}
	return nil
}

func (e *SSHExecutor) sftpClient() (*sftp.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sftp != nil {
		return e.sftp, nil
	}
	cli, err := sftp.NewClient(e.client)
	if err != nil {
		return nil, err
	}
	e.sftp = cli
	return cli, nil
}

// Close 关闭按需打开的 SFTP 会话 (底层 SSH 连接由 Connector 统一管理)
func (e *SSHExecutor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sftp != nil {
		err := e.sftp.Close()
		e.sftp = nil
		return err
	}
	return nil
}
