package sftp

import (
	"context"
	"fmt"
	"path"

	"golang.org/x/sync/errgroup"
)

// WriteFile 将内存中的内容写入远程文件，父目录不存在时自动创建
// 只面向渲染好的配置片段，体量小，单流写入即可
func (c *Client) WriteFile(ctx context.Context, remotePath string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.sftpClient.MkdirAll(path.Dir(remotePath)); err != nil {
		return fmt.Errorf("mkdir %s failed: %w", path.Dir(remotePath), err)
	}

	dst, err := c.sftpClient.Create(remotePath)
	if err != nil {
		return fmt.Errorf("create %s failed: %w", remotePath, err)
	}
	defer dst.Close()

	if _, err := dst.Write(content); err != nil {
		return fmt.Errorf("write %s failed: %w", remotePath, err)
	}
	return nil
}

// WriteTree 并发写入一组 相对路径 -> 内容 的文件到远程根目录下
// 单个文件失败会取消同组其余写入
func (c *Client) WriteTree(ctx context.Context, remoteRoot string, files map[string][]byte) error {
	g, ctx := errgroup.WithContext(ctx)
	// 配置树一般只有几个文件，限制一下并发防止打开过多 SFTP 请求
	g.SetLimit(4)

	for rel, content := range files {
		g.Go(func() error {
			return c.WriteFile(ctx, c.JoinPath(remoteRoot, rel), content)
		})
	}
	return g.Wait()
}
