package cmd

import (
	"testing"

	"github.com/spf13/cobra"
)

// 各 apply 类命令的 --task 默认为 0:
// 执行层把 0 解释为与节点数相同, 即默认整群并行, flag 只是上限
func TestApplyCommandsDefaultToFleetWideConcurrency(t *testing.T) {
	cmds := []*cobra.Command{
		NewCmdFull(),
		NewCmdDocker(),
		NewCmdWeb(),
		NewCmdUpdate(),
		NewCmdHeaders(),
		NewCmdRemove(),
	}
	for _, c := range cmds {
		f := c.Flag("task")
		if f == nil {
			t.Errorf("%s: no --task flag", c.Name())
			continue
		}
		if f.DefValue != "0" {
			t.Errorf("%s: --task default = %s, want 0", c.Name(), f.DefValue)
		}
	}
}
