package firewall

import (
	"context"
	"fmt"
)

type Action string

const (
	ActionAllow Action = "allow"
	ActionDeny  Action = "deny"
)

type Protocol string

const (
	ProtocolTCP Protocol = "tcp"
	ProtocolUDP Protocol = "udp"
)

// Rule 定义通用防火墙规则
// 部署阶段用它放行栈对外暴露的 HTTP/HTTPS 端口
type Rule struct {
	Port     string   // 例如 "80", "8080:8090"
	Service  string   // 例如 "http", "ssh"
	Protocol Protocol // tcp, udp
	Action   Action   // allow, deny
}

// Firewall 接口定义了防火墙管理的通用操作
type Firewall interface {
	Name() string
	Status(ctx context.Context) (string, error)
	AddRule(ctx context.Context, rule Rule) (string, error)
	RemoveRule(ctx context.Context, rule Rule) (string, error)
	Reload(ctx context.Context) (string, error)
}

// BackendError 定义防火墙后端错误
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("[%s] firewall error: %v", e.Backend, e.Err)
}
