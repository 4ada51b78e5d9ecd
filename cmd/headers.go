package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"example.com/StealthStack/pkg/deploy"
	"example.com/StealthStack/pkg/headers"
	"example.com/StealthStack/pkg/models"
	"example.com/StealthStack/pkg/plan"
	"example.com/StealthStack/pkg/ssh"
	"github.com/spf13/cobra"
)

type HeadersOptions struct {
	Mode        string
	Overrides   []string
	Role        string
	Set         []string
	DryRun      bool
	Concurrency uint
	Timeout     time.Duration

	policy headers.Policy
	vars   map[string]string
}

func NewHeadersOptions() *HeadersOptions {
	return &HeadersOptions{
		Mode:    string(headers.ModeTraefik),
		Role:    models.RoleWebserver,
		Timeout: deploy.DefaultHostTimeout,
	}
}

func NewCmdHeaders() *cobra.Command {
	o := NewHeadersOptions()
	cmd := &cobra.Command{
		Use:   "headers",
		Short: "配置对外暴露的 HTTP 响应头",
		Long: `解析响应头策略并下发到目标节点。
三种模式:
  traefik  透明模式, 如实标识边缘代理并附加安全响应头, 不可覆盖
  nginx    标准模式, 标识内部 web 服务器, 可按名覆盖
  custom   伪装模式, 对外伪装成另一套技术栈, 可按名覆盖
用法示例:
sstack headers -m custom
sstack headers -m nginx -o "Server=Apache" --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Validate(); err != nil {
				return err
			}
			return o.Run()
		},
	}

	cmd.Flags().StringVarP(&o.Mode, "mode", "m", string(headers.ModeTraefik), "响应头模式 (traefik/nginx/custom)")
	cmd.Flags().StringSliceVarP(&o.Overrides, "header", "o", nil, "响应头覆盖 Name=Value (可重复)")
	cmd.Flags().StringVarP(&o.Role, "role", "r", models.RoleWebserver, "目标角色标签")
	cmd.Flags().StringSliceVar(&o.Set, "set", nil, "部署变量覆盖 key=value (可重复)")
	cmd.Flags().BoolVar(&o.DryRun, "dry-run", false, "只打印解析后的指令集, 不触达远端")
	cmd.Flags().UintVar(&o.Concurrency, "task", 0, "并行执行的节点数上限, 0 表示与节点数相同")
	cmd.Flags().DurationVar(&o.Timeout, "timeout", deploy.DefaultHostTimeout, "单节点超时")

	return cmd
}

func (o *HeadersOptions) Validate() error {
	mode, err := headers.ParseMode(o.Mode)
	if err != nil {
		return err
	}
	overrides, err := parseHeaderOverrides(o.Overrides)
	if err != nil {
		return err
	}
	// 校验失败在这里拦截，失败时不会有任何远程调用
	policy, err := headers.Resolve(mode, overrides)
	if err != nil {
		return err
	}
	o.policy = policy

	vars, err := plan.ParseOverrides(o.Set, nil)
	if err != nil {
		return err
	}
	o.vars = vars
	return nil
}

func (o *HeadersOptions) Run() error {
	printPolicy(o.policy)
	if o.DryRun {
		return nil
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := &deploy.Runner{
		Connect:     sshConnect(connector),
		Concurrency: o.Concurrency,
		HostTimeout: o.Timeout,
	}
	results := runner.ApplyHeaders(ctx, o.policy, fleet, o.vars)
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

func printPolicy(policy headers.Policy) {
	fmt.Printf("响应头模式: %s\n", policy.Mode)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "名称\t值\t来源")
	for _, d := range policy.Directives {
		origin := "内置"
		if d.Origin == headers.OriginOverride {
			origin = "覆盖"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.Name, d.Value, origin)
	}
	w.Flush()
}

func init() {
	rootCmd.AddCommand(NewCmdHeaders())
}
