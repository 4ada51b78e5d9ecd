package cmd

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"example.com/StealthStack/pkg/deploy"
	"example.com/StealthStack/pkg/headers"
	"example.com/StealthStack/pkg/models"
	"github.com/spf13/cobra"
)

func NewCmdInfo() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "info",
		Short: "显示栈的生效配置和目标节点",
		Long: `显示部署变量的内置默认值、远端文件布局、
可用的响应头模式以及当前角色标签圈定的节点。只读, 不触达远端。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			vars := deploy.DefaultVars()
			fmt.Println("部署变量默认值:")
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintf(w, "domain\t%s\n", vars.Domain)
			fmt.Fprintf(w, "stack_dir\t%s\n", vars.StackDir)
			fmt.Fprintf(w, "http_port\t%s\n", vars.HTTPPort)
			fmt.Fprintf(w, "https_port\t%s\n", vars.HTTPSPort)
			fmt.Fprintf(w, "traefik_version\t%s\n", vars.TraefikVersion)
			fmt.Fprintf(w, "nginx_version\t%s\n", vars.NginxVersion)
			w.Flush()

			fmt.Println("\n远端文件布局:")
			for _, p := range []string{
				vars.StackDir + "/docker-compose.yml",
				vars.StackDir + "/traefik/traefik.yml",
				vars.StackDir + "/traefik/dynamic.yml",
				vars.StackDir + "/nginx/nginx.conf",
				vars.StackDir + "/nginx/headers.conf",
				"/etc/systemd/system/sstack.service",
			} {
				fmt.Printf("  %s\n", p)
			}

			fmt.Println("\n响应头模式:")
			for _, m := range []headers.Mode{headers.ModeTraefik, headers.ModeNginx, headers.ModeCustom} {
				policy, err := headers.Resolve(m, nil)
				if err != nil {
					return err
				}
				fmt.Printf("  %s:\n", m)
				for _, d := range policy.Directives {
					fmt.Printf("    %s: %s\n", d.Name, d.Value)
				}
			}

			_, _, provider, err := openInventory()
			if err != nil {
				return err
			}
			fleet := provider.GetNodesByTag(role)
			fmt.Printf("\n角色 %s 下的节点 (%d 个):\n", role, len(fleet))
			ids := make([]string, 0, len(fleet))
			for id := range fleet {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				fmt.Printf("  %s\n", id)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&role, "role", "r", models.RoleWebserver, "目标角色标签")
	return cmd
}

func init() {
	rootCmd.AddCommand(NewCmdInfo())
}
