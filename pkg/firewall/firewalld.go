package firewall

import (
	"context"
	"fmt"

	"example.com/StealthStack/pkg/executor"
)

type FirewalldBackend struct {
	exec executor.Executor
	zone string
}

func NewFirewalldBackend(exec executor.Executor, zone string) *FirewalldBackend {
	if zone == "" {
		zone = "public"
	}
	return &FirewalldBackend{exec: exec, zone: zone}
}

func (b *FirewalldBackend) Name() string {
	return "firewalld"
}

func (b *FirewalldBackend) Status(ctx context.Context) (string, error) {
	return b.exec.Run(ctx, "firewall-cmd --state")
}

// AddRule 写入持久规则后立即 reload 生效
func (b *FirewalldBackend) AddRule(ctx context.Context, rule Rule) (string, error) {
	args := b.buildRuleArgs(rule, false)
	cmd := fmt.Sprintf("firewall-cmd --permanent --zone=%s %s && firewall-cmd --reload", b.zone, args)
	return b.exec.RunWithSudo(ctx, cmd)
}

func (b *FirewalldBackend) RemoveRule(ctx context.Context, rule Rule) (string, error) {
	args := b.buildRuleArgs(rule, true)
	cmd := fmt.Sprintf("firewall-cmd --permanent --zone=%s %s && firewall-cmd --reload", b.zone, args)
	return b.exec.RunWithSudo(ctx, cmd)
}

func (b *FirewalldBackend) Reload(ctx context.Context) (string, error) {
	return b.exec.RunWithSudo(ctx, "firewall-cmd --reload")
}

func (b *FirewalldBackend) buildRuleArgs(rule Rule, remove bool) string {
	op := "--add"
	if remove {
		op = "--remove"
	}

	if rule.Port != "" {
		proto := string(rule.Protocol)
		if proto == "" {
			proto = "tcp"
		}
		return fmt.Sprintf("%s-port=%s/%s", op, rule.Port, proto)
	}
	if rule.Service != "" {
		return fmt.Sprintf("%s-service=%s", op, rule.Service)
	}
	return ""
}
