/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"example.com/StealthStack/cmd/version"
	"example.com/StealthStack/global"
	"example.com/StealthStack/utils"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sstack [command] [flags]",
	Short: "sstack(Stealth Stack)用于在主机群上部署和管理反向代理栈",
	Long: `sstack(Stealth Stack)是一个反向代理栈的编排工具,
通过 SSH 在一组主机上部署 Docker、Traefik 和 Nginx,
并统一管理对外暴露的 HTTP 响应头(隐藏或伪装服务器指纹)。
支持整栈部署、分阶段部署、配置更新、状态巡检和整栈移除。`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debugFlag, _ := cmd.Flags().GetBool("debug")
		if debugFlag {
			utils.Logger.SetLogLevel("debug")
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Run 在 init 中赋值而不是写在复合字面量里，
	// 避免 rootCmd -> runMenu -> rootCmd 的初始化循环
	rootCmd.Run = func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			version.PrintFullVersion()
			os.Exit(0)
		}
		// 终端里裸跑时进入交互式菜单，管道/脚本里只显示帮助
		if global.IsTerminal {
			runMenu()
			return
		}
		cmd.Help()
		os.Exit(0)
	}
	rootCmd.Flags().BoolP("version", "v", false, "显示版本信息")
	rootCmd.PersistentFlags().Bool("debug", false, "开启调试模式")
}
