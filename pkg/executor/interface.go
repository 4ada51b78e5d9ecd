package executor

import (
	"context"
	"os"
)

// Executor 抽象对单个节点的远程操作能力
// 部署、状态查询、移除都只通过这个接口触达节点，
// 方便在测试中用假实现替换真实的 SSH 通道
type Executor interface {
	// Run 以普通权限执行命令并返回合并后的输出
	Run(ctx context.Context, cmd string) (string, error)
	// RunWithSudo 以 root 权限执行命令
	RunWithSudo(ctx context.Context, cmd string) (string, error)
	// RunScriptWithSudo 以 root 权限执行一段脚本，脚本内容不经命令行传递
	RunScriptWithSudo(ctx context.Context, script string) (string, error)
	// Upload 将渲染好的配置内容写入远端路径 (目录不存在时自动创建)
	Upload(ctx context.Context, content []byte, remotePath string, mode os.FileMode) error
	// UploadTree 将一组 相对路径 -> 内容 的配置树写入远端根目录下
	UploadTree(ctx context.Context, root string, files map[string][]byte, mode os.FileMode) error
}
