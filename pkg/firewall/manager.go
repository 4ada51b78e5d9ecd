package firewall

import (
	"context"
	"fmt"

	"example.com/StealthStack/pkg/executor"
)

// DetectFirewall 自动探测节点使用的防火墙后端
// 探测优先级: firewalld -> ufw；两者都不存在时返回错误，由调用方决定是否容忍
func DetectFirewall(ctx context.Context, exec executor.Executor) (Firewall, error) {
	if _, err := exec.Run(ctx, "command -v firewall-cmd"); err == nil {
		return NewFirewalldBackend(exec, ""), nil
	}
	if _, err := exec.Run(ctx, "command -v ufw"); err == nil {
		return NewUfwBackend(exec), nil
	}
	return nil, fmt.Errorf("no supported firewall detected")
}
