package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	cmdutils "example.com/StealthStack/cmd/utils"
	"example.com/StealthStack/pkg/models"
	"example.com/StealthStack/pkg/removal"
	"example.com/StealthStack/pkg/ssh"
	"github.com/spf13/cobra"
)

func NewCmdRemove() *cobra.Command {
	var (
		role        string
		stackDir    string
		concurrency uint
		yes         bool
	)
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "从所有节点上移除整个栈",
		Long: `按固定顺序从目标角色的所有节点上拆除栈:
停止服务 -> 取消开机自启 -> 删除远端持久化状态。
每一步在整个节点群上完成后才进入下一步。
必须输入 yes 明确确认, 其他任何输入都会安全取消且不触达远端。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, provider, err := openInventory()
			if err != nil {
				return err
			}
			fleet, err := selectFleet(cmd.Context(), provider, role)
			if err != nil {
				return err
			}

			connector := ssh.NewConnector(provider)
			defer connector.CloseAll()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			coordinator := &removal.Coordinator{
				Connect:     sshConnect(connector),
				Concurrency: concurrency,
				StackDir:    stackDir,
				Confirm: func() (bool, error) {
					if yes {
						return true, nil
					}
					fmt.Printf("即将从 %d 个节点上移除整个栈, 包括远端的持久化配置。\n", len(fleet))
					return cmdutils.ConfirmFromTerminal("确认请输入 yes: ")
				},
			}

			report, err := coordinator.Run(ctx, fleet)
			if err != nil {
				if errors.Is(err, removal.ErrConfirmationDeclined) {
					// 拒绝是正常流程，不触达远端，退出码 0
					fmt.Println("已取消, 未做任何改动。")
					return nil
				}
				return err
			}

			printRemovalReport(report)
			if report.Failed() > 0 && !interactive {
				os.Exit(2)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&role, "role", "r", models.RoleWebserver, "目标角色标签")
	cmd.Flags().StringVar(&stackDir, "stack-dir", "/opt/sstack", "远端持久化状态目录")
	cmd.Flags().UintVar(&concurrency, "task", 0, "并行执行的节点数上限, 0 表示与节点数相同")
	cmd.Flags().BoolVar(&yes, "yes", false, "跳过交互确认 (脚本场景)")

	return cmd
}

func printRemovalReport(report removal.Report) {
	hosts := report.Hosts
	sort.Slice(hosts, func(a, b int) bool { return hosts[a].NodeId < hosts[b].NodeId })
	for _, h := range hosts {
		if h.State == removal.StateDone {
			fmt.Printf("[OK] %s: 移除完成\n", h.NodeId)
			continue
		}
		fmt.Printf("[FAIL] %s: 停在 %s: %v\n", h.NodeId, h.State, h.Err)
	}
}

func init() {
	rootCmd.AddCommand(NewCmdRemove())
}
