package cmd

import (
	"context"
	"fmt"
	"strings"

	"example.com/StealthStack/cmd/version"
	"example.com/StealthStack/pkg/headers"
	"example.com/StealthStack/pkg/models"
	"example.com/StealthStack/pkg/ssh"
	"example.com/StealthStack/pkg/status"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

// resolveHeadersArgs 是 resolve_headers 工具的入参
type resolveHeadersArgs struct {
	Mode      string            `json:"mode" jsonschema:"响应头模式: traefik, nginx 或 custom"`
	Overrides map[string]string `json:"overrides,omitempty" jsonschema:"按名覆盖内置指令值, traefik 模式下忽略"`
}

type fleetStatusArgs struct {
	Role string `json:"role,omitempty" jsonschema:"角色标签, 默认 webservers"`
}

func NewCmdMCP() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "以 MCP 服务器模式运行 (stdio)",
		Long: `把只读能力暴露为 Model Context Protocol 工具, 供 AI 助手调用。
提供 resolve_headers (解析响应头策略) 和 fleet_status (巡检节点状态) 两个工具。
不暴露任何会改动远端状态的操作。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			server := mcp.NewServer(&mcp.Implementation{
				Name:    "sstack",
				Version: version.Version,
			}, nil)

			mcp.AddTool(server, &mcp.Tool{
				Name:        "resolve_headers",
				Description: "解析响应头策略并返回最终指令集, 不触达任何远端节点",
			}, resolveHeadersTool)

			mcp.AddTool(server, &mcp.Tool{
				Name:        "fleet_status",
				Description: "只读地查询各节点上栈组件的运行状态",
			}, fleetStatusTool)

			return server.Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
}

func resolveHeadersTool(ctx context.Context, req *mcp.CallToolRequest, args resolveHeadersArgs) (*mcp.CallToolResult, any, error) {
	mode, err := headers.ParseMode(args.Mode)
	if err != nil {
		return nil, nil, err
	}
	policy, err := headers.Resolve(mode, args.Overrides)
	if err != nil {
		return nil, nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "mode: %s\n", policy.Mode)
	for _, d := range policy.Directives {
		origin := "builtin"
		if d.Origin == headers.OriginOverride {
			origin = "override"
		}
		fmt.Fprintf(&b, "%s: %s (%s)\n", d.Name, d.Value, origin)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: b.String()}},
	}, nil, nil
}

func fleetStatusTool(ctx context.Context, req *mcp.CallToolRequest, args fleetStatusArgs) (*mcp.CallToolResult, any, error) {
	role := args.Role
	if role == "" {
		role = models.RoleWebserver
	}

	_, _, provider, err := openInventory()
	if err != nil {
		return nil, nil, err
	}
	fleet, err := selectFleet(ctx, provider, role)
	if err != nil {
		return nil, nil, err
	}

	connector := ssh.NewConnector(provider)
	defer connector.CloseAll()

	inspector := &status.Inspector{
		Connect:  sshConnect(connector),
		Provider: provider,
	}
	report := inspector.Query(ctx, fleet)

	var b strings.Builder
	for _, row := range report.Rows {
		fmt.Fprintf(&b, "%s %s %s healthy=%t\n", row.NodeId, row.Service, row.RunState, row.Healthy)
	}
	if b.Len() == 0 {
		b.WriteString("no rows")
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: b.String()}},
	}, nil, nil
}

func init() {
	rootCmd.AddCommand(NewCmdMCP())
}
