package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"example.com/StealthStack/pkg/deploy"
	"example.com/StealthStack/pkg/headers"
	"example.com/StealthStack/pkg/models"
	"example.com/StealthStack/pkg/plan"
	"example.com/StealthStack/pkg/ssh"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// DeployOptions 四个 apply 类子命令 (full/docker/web/update) 共享的参数
type DeployOptions struct {
	op plan.Operation

	Role        string
	Set         []string
	HeadersMode string
	Headers     []string
	Concurrency uint
	Timeout     time.Duration

	policy headers.Policy
	vars   map[string]string
}

func NewDeployOptions(op plan.Operation) *DeployOptions {
	return &DeployOptions{
		op:          op,
		Role:        models.RoleWebserver,
		HeadersMode: string(headers.ModeTraefik),
		Timeout:     deploy.DefaultHostTimeout,
	}
}

func NewCmdFull() *cobra.Command {
	o := NewDeployOptions(plan.OpFullDeploy)
	cmd := &cobra.Command{
		Use:   "full",
		Short: "整栈部署: Docker + Compose + Traefik + Nginx",
		Long: `在目标角色的所有节点上执行完整部署。
按固定顺序应用: Docker 引擎 -> Compose 定义 -> Traefik 配置 -> Nginx 配置。
节点之间互相独立, 个别节点失败不会中止其余节点。
用法示例:
sstack full
sstack full --set domain=example.org --headers-mode custom
sstack full --role staging -o "Server=nginx"`,
		RunE: o.runE,
	}
	o.addFlags(cmd)
	return cmd
}

func NewCmdDocker() *cobra.Command {
	o := NewDeployOptions(plan.OpDockerOnly)
	cmd := &cobra.Command{
		Use:   "docker",
		Short: "仅部署 Docker 引擎和 Compose 定义",
		RunE:  o.runE,
	}
	o.addFlags(cmd)
	return cmd
}

func NewCmdWeb() *cobra.Command {
	o := NewDeployOptions(plan.OpWebOnly)
	cmd := &cobra.Command{
		Use:   "web",
		Short: "仅部署 Traefik 和 Nginx 配置",
		Long: `仅下发 Traefik 和 Nginx 的配置单元并重建对应容器。
假设 docker 阶段已经执行过, 不做前置校验。`,
		RunE: o.runE,
	}
	o.addFlags(cmd)
	return cmd
}

func NewCmdUpdate() *cobra.Command {
	o := NewDeployOptions(plan.OpUpdate)
	cmd := &cobra.Command{
		Use:   "update",
		Short: "重新渲染并下发配置, 不重装 Docker",
		RunE:  o.runE,
	}
	o.addFlags(cmd)
	return cmd
}

func (o *DeployOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Role, "role", "r", models.RoleWebserver, "目标角色标签")
	cmd.Flags().StringSliceVar(&o.Set, "set", nil, "部署变量覆盖 key=value (可重复)")
	cmd.Flags().StringVarP(&o.HeadersMode, "headers-mode", "m", string(headers.ModeTraefik), "响应头模式 (traefik/nginx/custom)")
	cmd.Flags().StringSliceVarP(&o.Headers, "header", "o", nil, "响应头覆盖 Name=Value (可重复)")
	cmd.Flags().UintVar(&o.Concurrency, "task", 0, "并行执行的节点数上限, 0 表示与节点数相同")
	cmd.Flags().DurationVar(&o.Timeout, "timeout", deploy.DefaultHostTimeout, "单节点超时")
}

func (o *DeployOptions) runE(cmd *cobra.Command, args []string) error {
	o.Complete(cmd, args)
	if err := o.Validate(); err != nil {
		return err
	}
	return o.Run()
}

func (o *DeployOptions) Complete(cmd *cobra.Command, args []string) {
	if o.Role == "" {
		o.Role = models.RoleWebserver
	}
}

func (o *DeployOptions) Validate() error {
	vars, err := plan.ParseOverrides(o.Set, nil)
	if err != nil {
		return err
	}
	o.vars = vars

	mode, err := headers.ParseMode(o.HeadersMode)
	if err != nil {
		return err
	}
	overrides, err := parseHeaderOverrides(o.Headers)
	if err != nil {
		return err
	}
	policy, err := headers.Resolve(mode, overrides)
	if err != nil {
		return err
	}
	o.policy = policy
	return nil
}

func (o *DeployOptions) Run() error {
	req, err := plan.Build(o.op, o.vars)
	if err != nil {
		return err
	}

	_, _, provider, err := openInventory()
	if err != nil {
		return err
	}
	fleet, err := selectFleet(context.Background(), provider, o.Role)
	if err != nil {
		return err
	}

	connector := ssh.NewConnector(provider)

	// Ctrl+C 后不再派发新节点，在途节点跑完再退出
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bar := progressbar.Default(int64(len(fleet)), o.op.String())
	runner := &deploy.Runner{
		Connect:     sshConnect(connector),
		Concurrency: o.Concurrency,
		HostTimeout: o.Timeout,
		OnResult: func(res deploy.Result) {
			bar.Add(1)
		},
	}

	results := runner.Apply(ctx, req, fleet, o.policy)
	bar.Finish()
	connector.CloseAll()

	agg := deploy.Aggregate(results)
	if ctx.Err() != nil && len(results) < len(fleet) {
		agg = deploy.AggregateInterrupted
	}
	printResults(results, agg)
	if !interactive {
		os.Exit(agg.ExitCode())
	}
	return nil
}

// parseHeaderOverrides 解析 Name=Value 格式的响应头覆盖项
// 名称是否可识别由策略校验层判定，这里只管格式和去重
func parseHeaderOverrides(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	overrides := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("响应头覆盖项 %q 不是 Name=Value 格式", p)
		}
		name = strings.TrimSpace(name)
		if _, dup := overrides[name]; dup {
			return nil, fmt.Errorf("响应头覆盖项 %q 重复", name)
		}
		overrides[name] = value
	}
	return overrides, nil
}

func printResults(results []deploy.Result, agg deploy.AggregateStatus) {
	for _, res := range results {
		marker := "OK"
		if res.Status != deploy.StatusSuccess {
			marker = "FAIL"
		}
		fmt.Printf("[%s] %s: %s\n", marker, res.NodeId, res.Message)
	}
	fmt.Printf("总体状态: %s\n", agg)
}

func init() {
	rootCmd.AddCommand(NewCmdFull())
	rootCmd.AddCommand(NewCmdDocker())
	rootCmd.AddCommand(NewCmdWeb())
	rootCmd.AddCommand(NewCmdUpdate())
}
