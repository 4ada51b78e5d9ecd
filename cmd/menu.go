package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// menuEntry 交互式菜单的一项，直接复用对应子命令的执行逻辑
type menuEntry struct {
	key   string
	label string
	args  []string
}

var menuEntries = []menuEntry{
	{"1", "整栈部署 (full)", []string{"full"}},
	{"2", "仅部署 Docker (docker)", []string{"docker"}},
	{"3", "仅部署 Web 配置 (web)", []string{"web"}},
	{"4", "更新配置 (update)", []string{"update"}},
	{"5", "配置响应头 (headers)", []string{"headers"}},
	{"6", "状态巡检 (status)", []string{"status"}},
	{"7", "显示栈信息 (info)", []string{"info"}},
	{"8", "移除整个栈 (remove)", []string{"remove"}},
	{"9", "管理节点清单 (inventory list)", []string{"inventory", "list"}},
	{"q", "退出", nil},
}

// interactive 为 true 时 apply 类命令打印汇总状态而不是直接退出进程
// (菜单模式下退出码没有消费者)
var interactive bool

// runMenu 交互式菜单主循环
// 每次迭代独立执行一个操作，操作结束后回到菜单，直到操作员退出
func runMenu() {
	interactive = true
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Println("\n==== Stealth Stack ====")
		for _, e := range menuEntries {
			fmt.Printf("  [%s] %s\n", e.key, e.label)
		}
		fmt.Print("请选择: ")

		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		choice := strings.TrimSpace(line)
		if choice == "" {
			continue
		}
		if strings.EqualFold(choice, "q") {
			return
		}

		var selected *menuEntry
		for i := range menuEntries {
			if menuEntries[i].key == choice {
				selected = &menuEntries[i]
				break
			}
		}
		if selected == nil || selected.args == nil {
			fmt.Println("无效选项")
			continue
		}

		// 复用子命令入口，保持和非交互调用完全一致的行为
		rootCmd.SetArgs(selected.args)
		if err := rootCmd.Execute(); err != nil {
			fmt.Printf("操作失败: %v\n", err)
		}
		rootCmd.SetArgs(nil)
	}
}
