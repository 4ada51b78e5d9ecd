package executor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"example.com/StealthStack/pkg/utils/file"
)

// LocalExecutor 本地执行器
// 清单中地址为 localhost/127.0.0.1 的节点不经 SSH，直接在本机执行
type LocalExecutor struct{}

func NewLocalExecutor() *LocalExecutor {
	return &LocalExecutor{}
}

func (e *LocalExecutor) Run(ctx context.Context, cmd string) (string, error) {
	// 使用 bash -c 执行以支持复杂的 shell 语法
	c := exec.CommandContext(ctx, "bash", "-c", cmd)
	out, err := c.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("command failed: %w, output: %s", err, string(out))
	}
	return string(out), nil
}

func (e *LocalExecutor) RunWithSudo(ctx context.Context, cmd string) (string, error) {
	// 本地提权假设当前用户在 sudoers 中，或者已经有 root 权限
	// 注意：在非交互式环境下，需要密码的 sudo 会失败
	if !strings.HasPrefix(cmd, "sudo") && os.Geteuid() != 0 {
		// bash -c 包装，保证 && 串联的每一段都在提权下执行
		cmd = fmt.Sprintf("sudo bash -c %q", cmd)
	}
	return e.Run(ctx, cmd)
}

// RunScriptWithSudo 脚本经 stdin 送入 bash 执行，和 SSH 路径保持同样的语义
func (e *LocalExecutor) RunScriptWithSudo(ctx context.Context, script string) (string, error) {
	argv := []string{"bash", "-s"}
	if os.Geteuid() != 0 {
		argv = []string{"sudo", "bash", "-s"}
	}
	c := exec.CommandContext(ctx, argv[0], argv[1:]...)
	c.Stdin = strings.NewReader(script)
	out, err := c.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("script failed: %w, output: %s", err, string(out))
	}
	return string(out), nil
}

func (e *LocalExecutor) UploadTree(ctx context.Context, root string, files map[string][]byte, mode os.FileMode) error {
	for rel, content := range files {
		if err := e.Upload(ctx, content, filepath.Join(root, rel), mode); err != nil {
			return err
		}
	}
	return nil
}

func (e *LocalExecutor) Upload(ctx context.Context, content []byte, remotePath string, mode os.FileMode) error {
	// 本机直接写文件；目标目录归 root 时退回 sudo install
	if err := file.CreateFileRecursive(remotePath, content, mode); err == nil {
		return nil
	}
	stage := filepath.Join(os.TempDir(), ".sstack-stage-"+filepath.Base(remotePath))
	if err := os.WriteFile(stage, content, 0600); err != nil {
		return err
	}
	defer os.Remove(stage)
	installCmd := fmt.Sprintf("mkdir -p %s && install -m %03o %s %s",
		filepath.Dir(remotePath), mode.Perm(), stage, remotePath)
	_, err := e.RunWithSudo(ctx, installCmd)
	return err
}
