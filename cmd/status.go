package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"example.com/StealthStack/pkg/models"
	"example.com/StealthStack/pkg/ssh"
	"example.com/StealthStack/pkg/status"
	"github.com/spf13/cobra"
)

func NewCmdStatus() *cobra.Command {
	var (
		role        string
		concurrency uint
		timeout     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "巡检各节点上栈组件的运行状态",
		Long: `只读地查询每个节点的 Docker 引擎和栈容器状态。
不可达的节点显示为 unknown, 不会让整个查询失败, 也绝不改动远端。`,
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

			inspector := &status.Inspector{
				Connect:      sshConnect(connector),
				Provider:     provider,
				Concurrency:  concurrency,
				ProbeTimeout: timeout,
			}
			report := inspector.Query(context.Background(), fleet)
			printStatusReport(report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&role, "role", "r", models.RoleWebserver, "目标角色标签")
	cmd.Flags().UintVar(&concurrency, "task", 0, "并行查询的节点数上限, 0 表示与节点数相同")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "单节点探测超时")

	return cmd
}

func printStatusReport(report status.Report) {
	if len(report.Rows) == 0 {
		fmt.Println("没有可显示的状态记录。")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "节点\t服务\t状态\t健康")
	for _, row := range report.Rows {
		healthy := "-"
		if row.RunState != status.StateUnknown {
			healthy = "no"
			if row.Healthy {
				healthy = "yes"
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", row.NodeId, row.Service, row.RunState, healthy)
	}
	w.Flush()
}

func init() {
	rootCmd.AddCommand(NewCmdStatus())
}
