package deploy

import (
	"context"
	"fmt"
	"path"

	"example.com/StealthStack/pkg/executor"
	"example.com/StealthStack/pkg/firewall"
	"example.com/StealthStack/pkg/plan"
	"example.com/StealthStack/utils"
)

// step 一个安装阶段里的配置单元
// tags 决定标签过滤器能否放行，enabled 决定阶段开关能否放行
type step struct {
	name    string
	tags    []string
	enabled func(f plan.PhaseFlags) bool
	run     func(ctx context.Context, exec executor.Executor, vars StackVars, a Artifacts) error
}

// 单节点内的固定阶段顺序: docker -> compose -> traefik -> nginx
// 后面的阶段信任此前已持久化的状态，不会重新推导前置条件是否满足
var steps = []step{
	{
		name:    "docker-engine",
		tags:    []string{"docker"},
		enabled: func(f plan.PhaseFlags) bool { return f.Docker },
		run:     runDockerPhase,
	},
	{
		name:    "compose-definition",
		tags:    []string{"compose"},
		enabled: func(f plan.PhaseFlags) bool { return f.Compose },
		run:     runComposePhase,
	},
	{
		name:    "traefik-config",
		tags:    []string{"traefik", "config"},
		enabled: func(f plan.PhaseFlags) bool { return f.Traefik },
		run:     runTraefikPhase,
	},
	{
		name:    "nginx-config",
		tags:    []string{"nginx", "config"},
		enabled: func(f plan.PhaseFlags) bool { return f.Nginx },
		run:     runNginxPhase,
	},
}

// 容器运行时就位脚本：未安装则安装，已安装只确保服务在运行
// 经 stdin 整段送入远端 bash，重复 apply 是幂等的
const dockerProvisionScript = `set -e
if ! command -v docker >/dev/null 2>&1; then
    curl -fsSL https://get.docker.com | sh
fi
systemctl enable --now docker
`

// runDockerPhase 安装容器运行时并放行 HTTP/HTTPS 端口
func runDockerPhase(ctx context.Context, exec executor.Executor, vars StackVars, a Artifacts) error {
	if _, err := exec.RunScriptWithSudo(ctx, dockerProvisionScript); err != nil {
		return fmt.Errorf("provision docker failed: %w", err)
	}

	// 防火墙放行 web 端口；没有可识别的防火墙时不视为失败
	fw, err := firewall.DetectFirewall(ctx, exec)
	if err != nil {
		utils.Logger.Warn("no supported firewall detected, skip opening ports", "err", err)
		return nil
	}
	for _, port := range []string{vars.HTTPPort, vars.HTTPSPort} {
		rule := firewall.Rule{Port: port, Protocol: firewall.ProtocolTCP, Action: firewall.ActionAllow}
		if _, err := fw.AddRule(ctx, rule); err != nil {
			return fmt.Errorf("open port %s failed: %w", port, err)
		}
	}
	return nil
}

// runComposePhase 下发完整配置树、安装 systemd 单元并拉起服务
// 首次部署时 traefik/nginx 的配置必须先于 compose up 就位，
// 所以这里推送的是整棵配置树而不只是 compose 文件
func runComposePhase(ctx context.Context, exec executor.Executor, vars StackVars, a Artifacts) error {
	tree := make(Artifacts, len(a))
	for rel, content := range a {
		if rel == "sstack.service" {
			continue
		}
		tree[rel] = content
	}
	if err := exec.UploadTree(ctx, vars.StackDir, tree, 0644); err != nil {
		return fmt.Errorf("push config tree failed: %w", err)
	}

	if err := exec.Upload(ctx, a["sstack.service"], "/etc/systemd/system/sstack.service", 0644); err != nil {
		return err
	}
	if _, err := exec.RunWithSudo(ctx, "systemctl daemon-reload && systemctl enable sstack.service"); err != nil {
		return fmt.Errorf("enable sstack.service failed: %w", err)
	}

	if _, err := exec.RunWithSudo(ctx, composeCmd(vars, "up -d")); err != nil {
		return fmt.Errorf("compose up failed: %w", err)
	}
	return nil
}

func runTraefikPhase(ctx context.Context, exec executor.Executor, vars StackVars, a Artifacts) error {
	tree := Artifacts{
		"traefik/traefik.yml": a["traefik/traefik.yml"],
		"traefik/dynamic.yml": a["traefik/dynamic.yml"],
	}
	if err := exec.UploadTree(ctx, vars.StackDir, tree, 0644); err != nil {
		return err
	}
	if _, err := exec.RunWithSudo(ctx, composeCmd(vars, "up -d --force-recreate traefik")); err != nil {
		return fmt.Errorf("recreate traefik failed: %w", err)
	}
	return nil
}

func runNginxPhase(ctx context.Context, exec executor.Executor, vars StackVars, a Artifacts) error {
	tree := Artifacts{
		"nginx/nginx.conf":   a["nginx/nginx.conf"],
		"nginx/headers.conf": a["nginx/headers.conf"],
	}
	if err := exec.UploadTree(ctx, vars.StackDir, tree, 0644); err != nil {
		return err
	}
	if _, err := exec.RunWithSudo(ctx, composeCmd(vars, "up -d --force-recreate nginx")); err != nil {
		return fmt.Errorf("recreate nginx failed: %w", err)
	}
	return nil
}

// runHeaderConfig 响应头下发：只替换响应头相关的配置单元
// 动态配置被边缘代理 watch，落盘即生效；nginx 片段变更后重载容器
func runHeaderConfig(ctx context.Context, exec executor.Executor, vars StackVars, a Artifacts) error {
	if err := exec.UploadTree(ctx, vars.StackDir, a, 0644); err != nil {
		return err
	}
	if _, err := exec.RunWithSudo(ctx, composeCmd(vars, "up -d --force-recreate nginx")); err != nil {
		return fmt.Errorf("reload nginx failed: %w", err)
	}
	return nil
}

func composeCmd(vars StackVars, args string) string {
	return fmt.Sprintf("docker compose -f %s %s", path.Join(vars.StackDir, "docker-compose.yml"), args)
}
